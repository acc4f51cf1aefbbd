package identity_test

import (
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bekirdag/keydash/internal/identity"
)

func signSession(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestParseSession_Unverified(t *testing.T) {
	token := signSession(t, jwt.MapClaims{
		"sub":      "user_1",
		"org_id":   "org_9",
		"org_role": "org:admin",
	}, "whatever")

	s, err := identity.ParseSession(token, "")
	if err != nil {
		t.Fatalf("ParseSession failed: %v", err)
	}
	if s.UserID != "user_1" || s.OrganizationID != "org_9" {
		t.Errorf("unexpected session %+v", s)
	}
	if !s.IsAdmin() {
		t.Error("expected admin session")
	}
	if !s.IsSelf("user_1") || s.IsSelf("user_2") || s.IsSelf("") {
		t.Error("IsSelf mismatch")
	}
}

func TestParseSession_VerifiedSecret(t *testing.T) {
	token := signSession(t, jwt.MapClaims{"sub": "user_1", "org_id": "org_9", "org_role": "basic_member"}, "s3cret")

	s, err := identity.ParseSession(token, "s3cret")
	if err != nil {
		t.Fatalf("ParseSession failed: %v", err)
	}
	if s.IsAdmin() {
		t.Error("basic member must not be admin")
	}

	_, err = identity.ParseSession(token, "other")
	if !errors.Is(err, identity.ErrInvalidSession) {
		t.Errorf("expected ErrInvalidSession for wrong secret, got %v", err)
	}
}

func TestParseSession_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"missing subject", signSession(t, jwt.MapClaims{"org_id": "org_9"}, "k")},
		{"unknown role", signSession(t, jwt.MapClaims{"sub": "u", "org_role": "owner"}, "k")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := identity.ParseSession(tt.token, ""); !errors.Is(err, identity.ErrInvalidSession) {
				t.Errorf("expected ErrInvalidSession, got %v", err)
			}
		})
	}
}

func TestSession_PersonalAccount(t *testing.T) {
	token := signSession(t, jwt.MapClaims{"sub": "user_1"}, "k")
	s, err := identity.ParseSession(token, "")
	if err != nil {
		t.Fatalf("ParseSession failed: %v", err)
	}
	if s.HasOrganization() || s.IsAdmin() {
		t.Errorf("personal account should have no organization: %+v", s)
	}
}

func TestRole_Selectable(t *testing.T) {
	if !identity.RoleAdmin.Selectable() || !identity.RoleBasicMember.Selectable() {
		t.Error("admin and basic_member must be selectable")
	}
	if identity.RoleGuestMember.Selectable() {
		t.Error("guest_member must not be selectable")
	}
	for _, in := range []string{"admin", "org:admin", "member", "basic_member", "guest"} {
		if _, err := identity.ParseRole(in); err != nil {
			t.Errorf("ParseRole(%q): %v", in, err)
		}
	}
}
