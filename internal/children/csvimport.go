package children

import (
	"regexp"
	"strings"

	"pickup/internal/apperr"
)

// MaxImportBytes bounds an uploaded roster.
const MaxImportBytes = 2 << 20

var importColumns = []string{"externalId", "firstName", "lastName", "className", "guardianPhone"}

var lineBreak = regexp.MustCompile(`\r?\n`)

// ParseRoster reads a roster CSV. Fields are split on commas without quote
// handling; the header must name every import column, in any order.
func ParseRoster(content string) ([]NewChild, error) {
	var lines []string
	for _, l := range lineBreak.Split(content, -1) {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) <= 1 {
		return nil, apperr.Validation("CSV must contain a header and at least one row")
	}

	header := splitTrim(strings.TrimPrefix(lines[0], "\ufeff"))
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, seen := pos[h]; !seen {
			pos[h] = i
		}
	}
	var missing []string
	for _, c := range importColumns {
		if _, ok := pos[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("Missing columns: " + strings.Join(missing, ", "))
	}

	out := make([]NewChild, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cols := splitTrim(line)
		get := func(name string) string {
			if i := pos[name]; i < len(cols) {
				return cols[i]
			}
			return ""
		}
		out = append(out, NewChild{
			ExternalID:    optional(get("externalId")),
			FirstName:     get("firstName"),
			LastName:      get("lastName"),
			ClassName:     optional(get("className")),
			GuardianPhone: optional(get("guardianPhone")),
		})
	}
	return out, nil
}

func splitTrim(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
