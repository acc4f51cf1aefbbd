package main

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bekirdag/keydash/internal/identity"
	"github.com/bekirdag/keydash/internal/keyservice"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu          sync.Mutex
	members     []identity.Member
	invitations []identity.Invitation
	err         error
	calls       []string
}

func (f *fakeProvider) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeProvider) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeProvider) ListMembers(ctx context.Context, page identity.Page) ([]identity.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pageOf(f.members, page), nil
}

func (f *fakeProvider) ListInvitations(ctx context.Context, page identity.Page) ([]identity.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pageOf(f.invitations, page), nil
}

func (f *fakeProvider) UpdateMemberRole(ctx context.Context, userID string, role identity.Role) error {
	if err := f.record("role " + userID + " " + string(role)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.members {
		if f.members[i].UserID == userID {
			f.members[i].Role = role
		}
	}
	return nil
}

func (f *fakeProvider) RemoveMember(ctx context.Context, userID string) error {
	if err := f.record("remove " + userID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.members[:0]
	for _, m := range f.members {
		if m.UserID != userID {
			out = append(out, m)
		}
	}
	f.members = out
	return nil
}

func (f *fakeProvider) RevokeInvitation(ctx context.Context, id string) error {
	if err := f.record("revoke " + id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.invitations {
		if f.invitations[i].ID == id {
			f.invitations[i].Status = identity.InvitationRevoked
		}
	}
	return nil
}

func (f *fakeProvider) CreateInvitation(ctx context.Context, email string, role identity.Role) (identity.Invitation, error) {
	if err := f.record("invite " + email + " " + string(role)); err != nil {
		return identity.Invitation{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	inv := identity.Invitation{ID: "inv_new", EmailAddress: email, Role: role, Status: identity.InvitationPending, CreatedAt: testNow}
	f.invitations = append(f.invitations, inv)
	return inv, nil
}

func pageOf[T any](all []T, page identity.Page) []T {
	page = page.Normalize()
	if page.Offset >= len(all) {
		return nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return append([]T(nil), all[page.Offset:end]...)
}

type fakeKeys struct {
	mu      sync.Mutex
	keys    []keyservice.Key
	err     error
	deleted [][]string
}

func (f *fakeKeys) ListKeys(ctx context.Context) ([]keyservice.Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]keyservice.Key(nil), f.keys...), nil
}

func (f *fakeKeys) DeleteKeys(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, append([]string(nil), ids...))
	if f.err != nil {
		return f.err
	}
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	out := f.keys[:0]
	for _, k := range f.keys {
		if !drop[k.ID] {
			out = append(out, k)
		}
	}
	f.keys = out
	return nil
}

func (f *fakeKeys) Deleted() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.deleted...)
}

func demoMembers() []identity.Member {
	return []identity.Member{
		{ID: "mem_1", UserID: "user_demo", Identifier: "demo@keydash.dev", FirstName: "Demo", LastName: "Admin", Role: identity.RoleAdmin},
		{ID: "mem_2", UserID: "user_grace", Identifier: "grace@keydash.dev", FirstName: "Grace", LastName: "Hopper", Role: identity.RoleBasicMember},
		{ID: "mem_3", UserID: "user_linus", Identifier: "linus@contractor.io", Role: identity.RoleGuestMember},
	}
}

func demoKeys() []keyservice.Key {
	name := "production"
	remaining := int64(0)
	return []keyservice.Key{
		{ID: "key_a", Start: "kd_aaaa", CreatedAt: testNow.Add(-48 * time.Hour), Name: &name, RemainingRequests: &remaining},
		{ID: "key_b", Start: "kd_bbbb", CreatedAt: testNow.Add(-time.Hour)},
		{ID: "key_c", Start: "kd_cccc", CreatedAt: testNow.Add(-24 * time.Hour)},
	}
}

// runCmd executes cmd and flattens batches into the messages they produce.
func runCmd(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(t, c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func firstMsg[T any](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("no %T among %d messages", zero, len(msgs))
	return zero
}

func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}
