package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"pickup/internal/apperr"
)

const testKey = "test-signing-key-0123456789"

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue(7, "Amina", AccessScanner, "pickup", testKey, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := Parse(tok.Value, testKey, "pickup")
	if err != nil {
		t.Fatal(err)
	}
	if claims.TeacherID != 7 || claims.Name != "Amina" || claims.Scope() != AccessScanner {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Role != RoleTeacher {
		t.Fatalf("role = %q", claims.Role)
	}
}

func TestParseRejects(t *testing.T) {
	expired, err := Issue(1, "x", AccessBoth, "pickup", testKey, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(expired.Value, testKey, "pickup"); err == nil {
		t.Fatal("expired token accepted")
	}

	good, _ := Issue(1, "x", AccessBoth, "pickup", testKey, time.Hour)
	if _, err := Parse(good.Value, "another-key-entirely-0000", "pickup"); err == nil {
		t.Fatal("token with wrong key accepted")
	}
	if _, err := Parse(good.Value, testKey, "someone-else"); err == nil {
		t.Fatal("issuer mismatch accepted")
	}
}

func TestScopeMatrix(t *testing.T) {
	cases := []struct {
		access      Access
		admin, scan bool
	}{
		{AccessAdmin, true, false},
		{AccessScanner, false, true},
		{AccessBoth, true, true},
		{AccessLegacy, true, true},
		{Access("janitor"), false, false},
	}
	for _, tc := range cases {
		if got := tc.access.CanAdmin(); got != tc.admin {
			t.Errorf("%s CanAdmin = %v", tc.access, got)
		}
		if got := tc.access.CanScan(); got != tc.scan {
			t.Errorf("%s CanScan = %v", tc.access, got)
		}
	}
	if ParseScope("") != AccessLegacy {
		t.Fatal("absent scope must be legacy")
	}
	if NormalizeAccess("superuser") != AccessBoth || NormalizeAccess("admin") != AccessAdmin {
		t.Fatal("normalize mismatch")
	}
}

func TestPIN(t *testing.T) {
	for pin, ok := range map[string]bool{"1234": true, "123": false, "12345": false, "12a4": false, "": false} {
		if ValidPIN(pin) != ok {
			t.Errorf("ValidPIN(%q) != %v", pin, ok)
		}
	}
	hash, err := HashPIN("5555")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPIN(hash, "5555") || CheckPIN(hash, "5556") {
		t.Fatal("pin comparison mismatch")
	}
}

func legacyToken(t *testing.T) string {
	t.Helper()
	claims := Claims{
		TeacherID: 3,
		Name:      "Old",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testKey))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestMiddlewareGuards(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authed := r.Group("/", Authenticate(testKey, "pickup"))
	authed.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })
	authed.GET("/scan", RequireScanner(), func(c *gin.Context) { c.Status(http.StatusOK) })

	scanner, _ := Issue(1, "s", AccessScanner, "pickup", testKey, time.Hour)
	admin, _ := Issue(2, "a", AccessAdmin, "pickup", testKey, time.Hour)

	cases := []struct {
		name, path, token string
		want              int
	}{
		{"missing", "/admin", "", http.StatusUnauthorized},
		{"garbage", "/admin", "Bearer nope", http.StatusUnauthorized},
		{"scanner on admin", "/admin", "Bearer " + scanner.Value, http.StatusForbidden},
		{"scanner on scan", "/scan", "Bearer " + scanner.Value, http.StatusOK},
		{"admin on scan", "/scan", "Bearer " + admin.Value, http.StatusForbidden},
		{"legacy on admin", "/admin", "Bearer " + legacyToken(t), http.StatusOK},
		{"legacy on scan", "/scan", "Bearer " + legacyToken(t), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", tc.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestScopeErrorsAreForbidden(t *testing.T) {
	for _, err := range []error{ErrAdminRequired, ErrScannerRequired} {
		if apperr.Status(err) != http.StatusForbidden {
			t.Errorf("%v maps to %d", err, apperr.Status(err))
		}
	}
}
