package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/bekirdag/keydash/internal/identity"
)

type fakeRoles struct {
	calls atomic.Int32
	err   error
	last  identity.Role
}

func (f *fakeRoles) update(_ context.Context, _ string, role identity.Role) error {
	f.calls.Add(1)
	f.last = role
	return f.err
}

func TestRoleSelector_SelfLock(t *testing.T) {
	for _, role := range []identity.Role{identity.RoleAdmin, identity.RoleBasicMember, identity.RoleGuestMember} {
		svc := &fakeRoles{}
		s := NewRoleSelector("user_1", "user_1", role, svc.update, &Recorder{})
		if !s.Disabled() {
			t.Errorf("%s: own row must be disabled", role)
		}
		if s.Choose(s.Next()) != nil || svc.calls.Load() != 0 {
			t.Errorf("%s: self role change must not send a request", role)
		}
	}
}

func TestRoleSelector_GuestNotSelectable(t *testing.T) {
	svc := &fakeRoles{}
	s := NewRoleSelector("user_2", "user_1", identity.RoleBasicMember, svc.update, &Recorder{})
	for _, opt := range s.Options() {
		if opt == identity.RoleGuestMember {
			t.Fatal("guest must not be offered")
		}
	}
	if s.Choose(identity.RoleGuestMember) != nil {
		t.Error("choosing guest must be refused")
	}
	if s.Choose(identity.RoleBasicMember) != nil {
		t.Error("choosing the current role is a no-op")
	}
	if svc.calls.Load() != 0 {
		t.Errorf("no request expected, got %d", svc.calls.Load())
	}

	guest := NewRoleSelector("user_3", "user_1", identity.RoleGuestMember, svc.update, &Recorder{})
	if guest.Next() != identity.RoleAdmin {
		t.Errorf("a guest moves to the first option, got %s", guest.Next())
	}
}

func TestRoleSelector_FailureReverts(t *testing.T) {
	rec := &Recorder{}
	svc := &fakeRoles{err: &identity.APIError{Status: 403, Message: "cannot demote the last admin"}}
	s := NewRoleSelector("user_2", "user_1", identity.RoleAdmin, svc.update, rec)

	cmd := s.Choose(identity.RoleBasicMember)
	if cmd == nil {
		t.Fatal("expected a submit command")
	}
	if s.Displayed() != identity.RoleBasicMember || !s.Disabled() {
		t.Errorf("optimistic value not shown or control not disabled: %s", s.Displayed())
	}
	if s.Choose(identity.RoleAdmin) != nil {
		t.Error("a second change while in flight must be refused")
	}

	out := s.Resolve(result(t, cmd))
	if !out.Handled || out.Err == nil || out.Refresh {
		t.Errorf("unexpected outcome %+v", out)
	}
	if s.Displayed() != identity.RoleAdmin || s.Current() != identity.RoleAdmin {
		t.Errorf("displayed role should revert to admin, got %s", s.Displayed())
	}
	notes := rec.Notifications()
	if len(notes) != 1 || notes[0].Kind != KindError || notes[0].Message != "cannot demote the last admin" {
		t.Errorf("notifications = %+v", notes)
	}
	if svc.calls.Load() != 1 {
		t.Errorf("calls = %d", svc.calls.Load())
	}
}

func TestRoleSelector_SuccessCommits(t *testing.T) {
	rec := &Recorder{}
	svc := &fakeRoles{}
	s := NewRoleSelector("user_2", "user_1", identity.RoleBasicMember, svc.update, rec)

	out := s.Resolve(result(t, s.Choose(identity.RoleAdmin)))
	if !out.Succeeded || out.Refresh {
		t.Errorf("role change succeeds without a refresh: %+v", out)
	}
	if s.Current() != identity.RoleAdmin || s.Displayed() != identity.RoleAdmin || svc.last != identity.RoleAdmin {
		t.Errorf("role not committed: current=%s displayed=%s", s.Current(), s.Displayed())
	}
	if rec.Count(KindSuccess) != 1 || len(rec.Notifications()) != 1 {
		t.Errorf("notifications = %+v", rec.Notifications())
	}
	if s.Disabled() {
		t.Error("control should be enabled again")
	}
}

func TestRoleSelector_SyncSkipsInFlight(t *testing.T) {
	svc := &fakeRoles{err: errors.New("x")}
	s := NewRoleSelector("user_2", "user_1", identity.RoleBasicMember, svc.update, &Recorder{})
	s.Choose(identity.RoleAdmin)
	s.Sync(identity.RoleGuestMember)
	if s.Displayed() != identity.RoleAdmin {
		t.Error("sync must not override an in-flight change")
	}
}
