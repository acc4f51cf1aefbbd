// Package identity talks to the organization provider that owns memberships,
// invitations and roles. keydash never stores any of this itself.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleBasicMember Role = "basic_member"
	RoleGuestMember Role = "guest_member"
)

// SelectableRoles are the roles a member can be moved to from the dashboard.
// Guests are shown but never assigned here.
var SelectableRoles = []Role{RoleAdmin, RoleBasicMember}

func ParseRole(value string) (Role, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimPrefix(v, "org:")
	switch v {
	case "admin":
		return RoleAdmin, nil
	case "basic_member", "member":
		return RoleBasicMember, nil
	case "guest_member", "guest":
		return RoleGuestMember, nil
	}
	return "", fmt.Errorf("unknown role %q", value)
}

func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleBasicMember:
		return "Member"
	case RoleGuestMember:
		return "Guest"
	default:
		return string(r)
	}
}

func (r Role) Selectable() bool {
	for _, role := range SelectableRoles {
		if role == r {
			return true
		}
	}
	return false
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
)

type Member struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Identifier string    `json:"identifier"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	ImageURL   string    `json:"image_url"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

type Invitation struct {
	ID           string           `json:"id"`
	EmailAddress string           `json:"email_address"`
	Role         Role             `json:"role"`
	Status       InvitationStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
}

type Page struct {
	Limit  int
	Offset int
}

const DefaultPageLimit = 20

func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type Provider interface {
	ListMembers(ctx context.Context, page Page) ([]Member, error)
	ListInvitations(ctx context.Context, page Page) ([]Invitation, error)
	UpdateMemberRole(ctx context.Context, userID string, role Role) error
	RemoveMember(ctx context.Context, userID string) error
	RevokeInvitation(ctx context.Context, invitationID string) error
	CreateInvitation(ctx context.Context, email string, role Role) (Invitation, error)
}

var (
	ErrNoOrganization = errors.New("no organization in session")
	ErrNotFound       = errors.New("not found")
	ErrInvalidSession = errors.New("invalid session token")
)

// APIError is a non-2xx answer from the provider. Message is what the
// provider said and is shown to the user verbatim.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity provider returned status %d", e.Status)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	if e.Status == 404 {
		return ErrNotFound
	}
	return nil
}

func (e *APIError) ServerMessage() string { return e.Message }
