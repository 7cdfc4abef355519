package children

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// QRKind tells which historical encoding a QR payload used.
type QRKind int

const (
	QRNumeric QRKind = iota + 1 // "42"
	QRJSON                      // {"id":42,...}
	QRLegacy                    // UGSCHOOL|42|EXT-1
)

func (k QRKind) String() string {
	switch k {
	case QRNumeric:
		return "numeric"
	case QRJSON:
		return "json"
	case QRLegacy:
		return "legacy"
	}
	return "unknown"
}

const legacyPrefix = "UGSCHOOL"

var errBadQR = errors.New("unrecognized QR payload")

// QRPayload is a decoded QR code. Every kind resolves through ChildID.
type QRPayload struct {
	Kind       QRKind
	ChildID    int64
	ExternalID string
}

// ParseQR decodes any of the supported payload encodings.
func ParseQR(code string) (QRPayload, error) {
	s := strings.TrimSpace(code)
	switch {
	case s == "":
		return QRPayload{}, errBadQR
	case isDigits(s):
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return QRPayload{}, errBadQR
		}
		return QRPayload{Kind: QRNumeric, ChildID: id}, nil
	case strings.HasPrefix(s, "{"):
		id, err := jsonID(s)
		if err != nil {
			return QRPayload{}, err
		}
		return QRPayload{Kind: QRJSON, ChildID: id}, nil
	}

	parts := strings.Split(s, "|")
	if len(parts) < 2 || parts[0] != legacyPrefix {
		return QRPayload{}, errBadQR
	}
	id, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return QRPayload{}, errBadQR
	}
	p := QRPayload{Kind: QRLegacy, ChildID: id}
	if len(parts) > 2 {
		p.ExternalID = parts[2]
	}
	return p, nil
}

// Matches reports whether c agrees with the external id a legacy code carries.
// Codes without one always match.
func (p QRPayload) Matches(c Child) bool {
	if p.ExternalID == "" || c.ExternalID == nil {
		return true
	}
	return strings.TrimSpace(p.ExternalID) == strings.TrimSpace(*c.ExternalID)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// jsonID accepts the id as a JSON number or a numeric string. Whole-valued
// floats such as 42.0 or 4.2e1 count as integers.
func jsonID(s string) (int64, error) {
	var body struct {
		ID json.RawMessage `json:"id"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	if err := dec.Decode(&body); err != nil || len(body.ID) == 0 {
		return 0, errBadQR
	}
	var n json.Number
	if err := json.Unmarshal(body.ID, &n); err == nil {
		return wholeNumber(n.String())
	}
	var str string
	if err := json.Unmarshal(body.ID, &str); err == nil {
		return wholeNumber(strings.TrimSpace(str))
	}
	return 0, errBadQR
}

func wholeNumber(s string) (int64, error) {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errBadQR
	}
	return int64(f), nil
}
