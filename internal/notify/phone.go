package notify

import "strings"

// NormalizeUgandaPhone turns a Ugandan mobile number into 256XXXXXXXXX.
// It accepts 0XXXXXXXXX, 7XXXXXXXX and 256XXXXXXXXX with any separators and
// returns "" for anything else.
func NormalizeUgandaPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	switch {
	case len(d) == 9 && strings.HasPrefix(d, "7"):
		return "256" + d
	case len(d) == 10 && strings.HasPrefix(d, "0"):
		return "256" + d[1:]
	case len(d) == 12 && strings.HasPrefix(d, "256"):
		return d
	}
	return ""
}
