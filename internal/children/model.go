package children

import (
	"strconv"
	"strings"
	"time"
)

// MaxPickers is how many authorized pickers a child may have.
const MaxPickers = 3

// Child is a pupil who can be collected at the end of the day.
type Child struct {
	ID            int64     `json:"id"`
	ExternalID    *string   `json:"external_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	ClassName     *string   `json:"class_name"`
	GuardianPhone *string   `json:"guardian_phone"`
	QRHidden      bool      `json:"qr_hidden"`
	CreatedAt     time.Time `json:"created_at"`
}

// FullName joins first and last name.
func (c Child) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// NewChild holds the fields of a child being created.
type NewChild struct {
	ExternalID    *string
	FirstName     string
	LastName      string
	ClassName     *string
	GuardianPhone *string
}

// ChildPatch changes only the fields that are set.
type ChildPatch struct {
	FirstName     *string
	LastName      *string
	ClassName     *string
	GuardianPhone *string
}

// Picker is a person allowed to collect a specific child.
type Picker struct {
	ID           int64
	ChildID      int64
	Name         string
	Relationship *string
	PhotoURL     string
	SortOrder    int
	CreatedAt    time.Time
}

// NewPicker holds the fields of a picker being created.
type NewPicker struct {
	ChildID      int64
	Name         string
	Relationship *string
	PhotoURL     string
	SortOrder    int
}

// PickerView is the dashboard shape of a picker.
type PickerView struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Relationship *string `json:"relationship"`
	PhotoURL     string  `json:"photoUrl"`
	SortOrder    int     `json:"sortOrder"`
}

// ScanPicker is the scanner shape of a picker.
type ScanPicker struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Relationship *string `json:"relationship"`
	PhotoURL     string  `json:"photoUrl"`
}

// Lookup is what a scanner sees after resolving a QR code.
type Lookup struct {
	ID                int64        `json:"id"`
	FullName          string       `json:"fullName"`
	ClassName         *string      `json:"className"`
	SchoolName        string       `json:"schoolName"`
	AuthorizedPickers []ScanPicker `json:"authorizedPickers"`
}

// DefaultPickerName labels an unnamed picker by its 1-based position.
func DefaultPickerName(index int) string {
	return "Holder " + strconv.Itoa(index+1)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
