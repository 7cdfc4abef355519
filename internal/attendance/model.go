package attendance

import "time"

// ActionOut is the only attendance action; check-in is disabled.
const ActionOut = "OUT"

// Placeholder stands in for names that cannot be resolved.
const Placeholder = "—"

// Log is one persisted departure.
type Log struct {
	ID        int64     `json:"id"`
	ChildID   *int64    `json:"child_id"`
	TeacherID *int64    `json:"teacher_id"`
	PickerID  *int64    `json:"picker_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// Record is a log joined with display names for the dashboard.
type Record struct {
	Log
	ChildName   string `json:"child_name"`
	ClassName   string `json:"class_name"`
	ChildClass  string `json:"child_class"`
	TeacherName string `json:"teacher_name"`
	PickerName  string `json:"picker_name"`
}

// DayReport lists the departures of one calendar date.
type DayReport struct {
	Date    string   `json:"date"`
	Count   int      `json:"count"`
	Records []Record `json:"records"`
}

// DepartureInput is a scanner's request to record a departure.
type DepartureInput struct {
	ChildID   int64
	Action    string
	Timestamp *time.Time
	Emergency bool
	PickerID  *int64
	TeacherID *int64
}

// Departure carries what a guardian notification needs about one log.
type Departure struct {
	LogID         int64
	Timestamp     time.Time
	ChildName     string
	GuardianPhone string
	PickerName    string
	TeacherName   string
}
