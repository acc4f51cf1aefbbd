package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bekirdag/keydash/internal/identity"
)

var _ identity.Provider = (*Store)(nil)

func (s *Store) ListMembers(ctx context.Context, page identity.Page) ([]identity.Member, error) {
	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, identifier, first_name, last_name, image_url, role, created_at
		FROM members WHERE org_id = ? ORDER BY created_at ASC, user_id ASC LIMIT ? OFFSET ?`,
		s.organizationID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []identity.Member
	for rows.Next() {
		var (
			m       identity.Member
			role    string
			created int64
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Identifier, &m.FirstName, &m.LastName, &m.ImageURL, &role, &created); err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
		m.Role = identity.Role(role)
		m.CreatedAt = fromMillis(created)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return out, nil
}

func (s *Store) ListInvitations(ctx context.Context, page identity.Page) ([]identity.Invitation, error) {
	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, `SELECT id, email, role, status, created_at
		FROM invitations WHERE org_id = ? ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`,
		s.organizationID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var out []identity.Invitation
	for rows.Next() {
		var (
			inv     identity.Invitation
			role    string
			status  string
			created int64
		)
		if err := rows.Scan(&inv.ID, &inv.EmailAddress, &role, &status, &created); err != nil {
			return nil, fmt.Errorf("list invitations: %w", err)
		}
		inv.Role = identity.Role(role)
		inv.Status = identity.InvitationStatus(status)
		inv.CreatedAt = fromMillis(created)
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return out, nil
}

// UpdateMemberRole refuses to demote the last admin of the organization.
func (s *Store) UpdateMemberRole(ctx context.Context, userID string, role identity.Role) error {
	if !role.Selectable() {
		return &identity.APIError{Status: http.StatusBadRequest, Code: "invalid_role", Message: fmt.Sprintf("role %q cannot be assigned", role)}
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT role FROM members WHERE org_id = ? AND user_id = ?`, s.organizationID, userID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return &identity.APIError{Status: http.StatusNotFound, Code: "not_found", Message: "membership not found"}
		}
		if err != nil {
			return err
		}
		if identity.Role(current) == identity.RoleAdmin && role != identity.RoleAdmin {
			var admins int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM members WHERE org_id = ? AND role = ?`, s.organizationID, string(identity.RoleAdmin)).Scan(&admins); err != nil {
				return err
			}
			if admins <= 1 {
				return &identity.APIError{Status: http.StatusConflict, Code: "last_admin", Message: "an organization needs at least one admin"}
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE members SET role = ? WHERE org_id = ? AND user_id = ?`, string(role), s.organizationID, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return nil
}

// RemoveMember succeeds when the member is already gone.
func (s *Store) RemoveMember(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE org_id = ? AND user_id = ?`, s.organizationID, userID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// RevokeInvitation succeeds for an invitation that was already revoked.
// Accepted invitations cannot be revoked.
func (s *Store) RevokeInvitation(ctx context.Context, invitationID string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM invitations WHERE org_id = ? AND id = ?`, s.organizationID, invitationID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return &identity.APIError{Status: http.StatusNotFound, Code: "not_found", Message: "invitation not found"}
		}
		if err != nil {
			return err
		}
		switch identity.InvitationStatus(status) {
		case identity.InvitationRevoked:
			return nil
		case identity.InvitationAccepted:
			return &identity.APIError{Status: http.StatusConflict, Code: "already_accepted", Message: "invitation was already accepted"}
		}
		_, err = tx.ExecContext(ctx, `UPDATE invitations SET status = ? WHERE org_id = ? AND id = ?`, string(identity.InvitationRevoked), s.organizationID, invitationID)
		return err
	})
	if err != nil {
		return fmt.Errorf("revoke invitation: %w", err)
	}
	return nil
}

func (s *Store) CreateInvitation(ctx context.Context, email string, role identity.Role) (identity.Invitation, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return identity.Invitation{}, &identity.APIError{Status: http.StatusUnprocessableEntity, Code: "invalid_email", Message: "enter a valid email address"}
	}
	if !role.Selectable() {
		return identity.Invitation{}, &identity.APIError{Status: http.StatusBadRequest, Code: "invalid_role", Message: fmt.Sprintf("role %q cannot be assigned", role)}
	}
	inv := identity.Invitation{
		ID:           "inv_" + uuid.NewString(),
		EmailAddress: strings.ToLower(addr.Address),
		Role:         role,
		Status:       identity.InvitationPending,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var pending int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM invitations WHERE org_id = ? AND email = ? AND status = ?`,
			s.organizationID, inv.EmailAddress, string(identity.InvitationPending)).Scan(&pending); err != nil {
			return err
		}
		if pending > 0 {
			return &identity.APIError{Status: http.StatusConflict, Code: "duplicate_invitation", Message: inv.EmailAddress + " already has a pending invitation"}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO invitations (id, org_id, email, role, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			inv.ID, s.organizationID, inv.EmailAddress, string(inv.Role), string(inv.Status), toMillis(inv.CreatedAt))
		return err
	})
	if err != nil {
		return identity.Invitation{}, fmt.Errorf("create invitation: %w", err)
	}
	return inv, nil
}

// AddMember inserts or replaces a membership. Used for seeding.
func (s *Store) AddMember(ctx context.Context, m identity.Member) error {
	if m.ID == "" {
		m.ID = "mem_" + uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO members (org_id, user_id, id, identifier, first_name, last_name, image_url, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(org_id, user_id) DO UPDATE SET identifier = excluded.identifier, first_name = excluded.first_name,
			last_name = excluded.last_name, image_url = excluded.image_url, role = excluded.role`,
		s.organizationID, m.UserID, m.ID, m.Identifier, m.FirstName, m.LastName, m.ImageURL, string(m.Role), toMillis(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// AddInvitation inserts an invitation with whatever status it carries.
func (s *Store) AddInvitation(ctx context.Context, inv identity.Invitation) error {
	if inv.ID == "" {
		inv.ID = "inv_" + uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = s.now()
	}
	if inv.Status == "" {
		inv.Status = identity.InvitationPending
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO invitations (id, org_id, email, role, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, s.organizationID, inv.EmailAddress, string(inv.Role), string(inv.Status), toMillis(inv.CreatedAt))
	if err != nil {
		return fmt.Errorf("add invitation: %w", err)
	}
	return nil
}

// MemberRole looks up the role of userID, for sessions built without a token.
func (s *Store) MemberRole(ctx context.Context, userID string) (identity.Role, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM members WHERE org_id = ? AND user_id = ?`, s.organizationID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", identity.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("member role: %w", err)
	}
	return identity.Role(role), nil
}
