package children

import "testing"

func TestParseQR(t *testing.T) {
	cases := []struct {
		in   string
		kind QRKind
		id   int64
		ext  string
	}{
		{"42", QRNumeric, 42, ""},
		{`{"id":42}`, QRJSON, 42, ""},
		{`{"id":"42","externalId":"S-9"}`, QRJSON, 42, ""},
		{`{"id":42.0}`, QRJSON, 42, ""},
		{`{"id":4.2e1}`, QRJSON, 42, ""},
		{`{"id":" 42.0 "}`, QRJSON, 42, ""},
		{"UGSCHOOL|42|X", QRLegacy, 42, "X"},
		{"UGSCHOOL|42", QRLegacy, 42, ""},
	}
	for _, tc := range cases {
		p, err := ParseQR(tc.in)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if p.Kind != tc.kind || p.ChildID != tc.id || p.ExternalID != tc.ext {
			t.Fatalf("%q: got %+v", tc.in, p)
		}
	}

	for _, bad := range []string{"", "abc", "{}", `{"id":"x"}`, `{"id":1.5}`, `{"id":1e400}`, `{"id":"NaN"}`, `{"id":true}`, "UGSCHOOL", "OTHER|1|2", "UGSCHOOL||x"} {
		if _, err := ParseQR(bad); err == nil {
			t.Fatalf("%q accepted", bad)
		}
	}
}

func TestQRPayloadMatches(t *testing.T) {
	ext := "S-9"
	child := Child{ID: 42, ExternalID: &ext}
	cases := []struct {
		code string
		want bool
	}{
		{"UGSCHOOL|42|S-9", true},
		{"UGSCHOOL|42|S-10", false},
		{"UGSCHOOL|42", true},
		{"42", true},
	}
	for _, tc := range cases {
		p, err := ParseQR(tc.code)
		if err != nil {
			t.Fatal(err)
		}
		if got := p.Matches(child); got != tc.want {
			t.Errorf("%q: Matches = %v", tc.code, got)
		}
	}
	if p, _ := ParseQR("UGSCHOOL|42|S-10"); !p.Matches(Child{ID: 42}) {
		t.Error("child without external id must match")
	}
	if QRLegacy.String() != "legacy" || QRKind(0).String() != "unknown" {
		t.Error("kind names")
	}
}

func TestSplitFullName(t *testing.T) {
	cases := map[string][2]string{
		"Sarah":           {"Sarah", ""},
		"Sarah Nakato":    {"Sarah", "Nakato"},
		" Mary Jane Doe ": {"Mary", "Jane Doe"},
	}
	for in, want := range cases {
		f, l := SplitFullName(in)
		if f != want[0] || l != want[1] {
			t.Errorf("SplitFullName(%q) = %q, %q", in, f, l)
		}
	}
}
