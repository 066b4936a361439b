package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"plantobill/internal/models"
)

func TestPasswordRoundTrip(t *testing.T) {
	h, err := HashPassword("secret123", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(h, "secret123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(h, "secret124") {
		t.Error("wrong password accepted")
	}
	if CheckPassword("not-a-hash", "secret123") {
		t.Error("garbage hash accepted")
	}
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 200; i++ {
		otp, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP: %v", err)
		}
		if len(otp) != 6 || strings.Trim(otp, "0123456789") != "" {
			t.Fatalf("otp %q is not 6 digits", otp)
		}
	}
}

func TestOTPMatches(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	code := "123456"
	exp := now.Add(10 * time.Minute)

	cases := []struct {
		name    string
		stored  *string
		expires *time.Time
		given   string
		at      time.Time
		want    bool
	}{
		{"exact match in time", &code, &exp, "123456", now, true},
		{"at expiry instant", &code, &exp, "123456", exp, true},
		{"after expiry", &code, &exp, "123456", exp.Add(time.Second), false},
		{"wrong code", &code, &exp, "654321", now, false},
		{"empty given", &code, &exp, "", now, false},
		{"cleared otp", nil, nil, "123456", now, false},
	}
	for _, tc := range cases {
		if got := OTPMatches(tc.stored, tc.expires, tc.given, tc.at); got != tc.want {
			t.Errorf("%s: OTPMatches = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTokenIssueParse(t *testing.T) {
	tokens := NewTokens("s3cret", 7*24*time.Hour)
	raw, err := tokens.Issue(Identity{UserID: 42, Email: "a@x.com", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	id, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id.UserID != 42 || id.Email != "a@x.com" || id.Role != models.RoleAdmin {
		t.Fatalf("identity = %+v", id)
	}
}

func TestTokenExpiredAndForeign(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens := NewTokens("s3cret", 7*24*time.Hour)
	tokens.Now = func() time.Time { return issued }
	raw, err := tokens.Issue(Identity{UserID: 1, Email: "a@x.com", Role: models.RoleTeamMember})
	if err != nil {
		t.Fatal(err)
	}

	tokens.Now = func() time.Time { return issued.Add(7*24*time.Hour + time.Minute) }
	if _, err := tokens.Parse(raw); err == nil {
		t.Error("expired token accepted")
	}

	tokens.Now = func() time.Time { return issued.Add(time.Hour) }
	other := NewTokens("other", time.Hour)
	other.Now = tokens.Now
	if _, err := other.Parse(raw); err == nil {
		t.Error("token signed with another secret accepted")
	}
	if _, err := tokens.Parse("not.a.token"); err == nil {
		t.Error("garbage token accepted")
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.Envelope {
	t.Helper()
	var env models.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestMiddlewareGates(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := FromContext(r.Context())
		w.Header().Set("X-User", id.Email)
		w.WriteHeader(http.StatusNoContent)
	})
	h := Authenticate(tokens)(RequireRoles(models.RoleAdmin, models.RoleProjectManager)(ok))

	issue := func(role string) string {
		raw, err := tokens.Issue(Identity{UserID: 7, Email: "u@x.com", Role: role})
		if err != nil {
			t.Fatal(err)
		}
		return "Bearer " + raw
	}

	cases := []struct {
		name   string
		header string
		want   int
		msg    string
	}{
		{"no header", "", http.StatusUnauthorized, "Access denied. No token provided."},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Access denied. No token provided."},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, "Invalid or expired token"},
		{"role not allowed", issue(models.RoleTeamMember), http.StatusForbidden, "Access denied. Insufficient permissions."},
		{"no role", issue(""), http.StatusForbidden, "Access denied. Insufficient permissions."},
		{"allowed", issue(models.RoleProjectManager), http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
			continue
		}
		if tc.msg == "" {
			if rec.Header().Get("X-User") != "u@x.com" {
				t.Errorf("%s: identity not attached", tc.name)
			}
			continue
		}
		env := decodeEnvelope(t, rec)
		if env.Success || env.Message != tc.msg {
			t.Errorf("%s: envelope = %+v", tc.name, env)
		}
	}
}
