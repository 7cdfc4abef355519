package attendance

import (
	"regexp"
	"time"
)

const dateLayout = "2006-01-02"

var (
	exactDatePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	datePrefixPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)
)

// Rules holds the eligibility checks for recording a departure.
type Rules struct {
	WindowStart int // first allowed hour, inclusive
	WindowEnd   int // last allowed hour, inclusive
	DailyLimit  int
	Location    *time.Location
	Now         func() time.Time
}

// DefaultRules allows departures from 14:00 until 18:59, twice a day, on the server clock.
func DefaultRules() Rules {
	return Rules{WindowStart: 14, WindowEnd: 18, DailyLimit: 2, Location: time.Local, Now: time.Now}
}

func (r Rules) loc() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

// CurrentTime returns the rules clock in the configured location.
func (r Rules) CurrentTime() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return now().In(r.loc())
}

// IsValidScanTime reports whether action may be recorded at t.
func (r Rules) IsValidScanTime(action string, t time.Time) bool {
	if action != ActionOut {
		return false
	}
	hour := t.In(r.loc()).Hour()
	return hour >= r.WindowStart && hour <= r.WindowEnd
}

// Today is the current calendar date as YYYY-MM-DD.
func (r Rules) Today() string {
	return r.CurrentTime().Format(dateLayout)
}

// IsExactDate reports whether s is a real YYYY-MM-DD date.
func IsExactDate(s string) bool {
	if !exactDatePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// DatePrefix extracts YYYY-MM-DD from s directly or from the front of an ISO timestamp.
func DatePrefix(s string) (string, bool) {
	m := datePrefixPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	if _, err := time.Parse(dateLayout, m[1]); err != nil {
		return "", false
	}
	return m[1], true
}
