package dispatch

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bekirdag/keydash/internal/identity"
)

type UpdateRoleFunc func(ctx context.Context, userID string, role identity.Role) error

// RoleSelector is the role control of one member row. A change is sent as
// soon as it is chosen and shown optimistically; a failure puts the previous
// role back.
type RoleSelector struct {
	MemberID      string
	SessionUserID string

	current    identity.Role
	displayed  identity.Role
	dispatcher *Dispatcher
	update     UpdateRoleFunc
}

func NewRoleSelector(memberID, sessionUserID string, role identity.Role, update UpdateRoleFunc, notifier Notifier, opts ...Option) *RoleSelector {
	return &RoleSelector{
		MemberID:      memberID,
		SessionUserID: sessionUserID,
		current:       role,
		displayed:     role,
		dispatcher:    New("role:"+memberID, notifier, opts...),
		update:        update,
	}
}

func (s *RoleSelector) Options() []identity.Role {
	return append([]identity.Role(nil), identity.SelectableRoles...)
}

func (s *RoleSelector) Displayed() identity.Role { return s.displayed }
func (s *RoleSelector) Current() identity.Role   { return s.current }
func (s *RoleSelector) Busy() bool               { return s.dispatcher.Busy() }
func (s *RoleSelector) DispatcherID() string     { return s.dispatcher.ID() }

// Self reports the acting user's own row, which is always locked.
func (s *RoleSelector) Self() bool {
	return s.MemberID != "" && s.MemberID == s.SessionUserID
}

func (s *RoleSelector) Disabled() bool {
	return s.Self() || s.dispatcher.Busy() || s.update == nil
}

// Next is the role after the displayed one in option order. A guest moves to
// the first option.
func (s *RoleSelector) Next() identity.Role {
	opts := s.Options()
	for i, r := range opts {
		if r == s.displayed {
			return opts[(i+1)%len(opts)]
		}
	}
	return opts[0]
}

// Choose submits role. It does nothing when the control is disabled, the
// role is not selectable or nothing would change.
func (s *RoleSelector) Choose(role identity.Role) tea.Cmd {
	if s.Disabled() || !role.Selectable() || role == s.displayed {
		return nil
	}
	memberID, update := s.MemberID, s.update
	cmd, ok := s.dispatcher.Request(Action{
		Name:    "role_changed",
		Targets: []string{memberID},
		Success: "Role updated",
		Failure: "Could not update role",
		Run: func(ctx context.Context) error {
			return update(ctx, memberID, role)
		},
	})
	if !ok {
		return nil
	}
	s.displayed = role
	return cmd
}

func (s *RoleSelector) Resolve(msg ResultMsg) Outcome {
	out := s.dispatcher.Resolve(msg)
	if !out.Handled {
		return out
	}
	if out.Err != nil {
		s.displayed = s.current
	} else {
		s.current = s.displayed
	}
	return out
}

// Sync takes the role from a fresh fetch unless a change is in flight.
func (s *RoleSelector) Sync(role identity.Role) {
	if s.Busy() {
		return
	}
	s.current = role
	s.displayed = role
}
