package teachers

import (
	"time"

	"pickup/internal/auth"
)

// Teacher is a staff member who can sign in to scan or administer.
type Teacher struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone"`
	PinHash   string      `json:"-"`
	Access    auth.Access `json:"access"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
}

// Profile is the part of a teacher returned at login.
type Profile struct {
	ID     int64       `json:"id"`
	Name   string      `json:"name"`
	Phone  string      `json:"phone"`
	Access auth.Access `json:"access"`
}

// Session is a successful login.
type Session struct {
	Token   string  `json:"token"`
	Teacher Profile `json:"teacher"`
}

// NewTeacher is a create request.
type NewTeacher struct {
	Name   string
	Phone  string
	PIN    string
	Access string
}

// Patch changes only the fields that are set.
type Patch struct {
	Name     *string
	Phone    *string
	IsActive *bool
	Access   *string
	PIN      *string
}
