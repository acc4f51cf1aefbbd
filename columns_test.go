package main

import (
	"strings"
	"testing"
	"time"

	"github.com/bekirdag/keydash/internal/dispatch"
	"github.com/bekirdag/keydash/internal/grid"
	"github.com/bekirdag/keydash/internal/identity"
	"github.com/bekirdag/keydash/internal/keyservice"
	"github.com/bekirdag/keydash/internal/rowmodel"
)

type stubCells struct {
	selectors map[string]*dispatch.RoleSelector
	busy      map[string]bool
	admin     bool
}

func (s stubCells) spinnerGlyph() string { return "*" }
func (s stubCells) roleSelector(userID string) (*dispatch.RoleSelector, bool) {
	sel, ok := s.selectors[userID]
	return sel, ok
}
func (s stubCells) removing(userID string) bool { return s.busy[userID] }
func (s stubCells) revokingInvitation(id string) bool { return s.busy[id] }
func (s stubCells) revokingKey(id string) bool { return s.busy[id] }
func (s stubCells) canRemove(rowmodel.MemberRow) bool { return s.admin }
func (s stubCells) canRevokeInvitation(r rowmodel.InvitationRow) bool { return s.admin && r.Revocable() }

func cellOf[T any](t *testing.T, reg grid.Registry[T], id string, row T) grid.Cell {
	t.Helper()
	col, ok := reg.Column(id)
	if !ok {
		t.Fatalf("no column %q", id)
	}
	return col.Cell(row)
}

func TestMemberColumns(t *testing.T) {
	rows := rowmodel.NewMemberRows(demoMembers())
	st := stubCells{
		selectors: map[string]*dispatch.RoleSelector{
			"user_demo":  dispatch.NewRoleSelector("user_demo", "user_demo", identity.RoleAdmin, nil, nil),
			"user_grace": dispatch.NewRoleSelector("user_grace", "user_demo", identity.RoleBasicMember, nil, nil),
		},
		busy:  map[string]bool{"user_grace": true},
		admin: true,
	}
	reg := memberColumns(st)

	if c := cellOf(t, reg, "role", rows[0]); c.Kind != grid.KindMuted || !strings.HasSuffix(c.Text, "(you)") {
		t.Errorf("own role cell = %+v", c)
	}
	if c := cellOf(t, reg, "role", rows[1]); c.Kind != grid.KindPlain || !strings.HasSuffix(c.Text, "▾") {
		t.Errorf("role cell = %+v", c)
	}
	if c := cellOf(t, reg, "actions", rows[1]); c.Kind != grid.KindLoading || c.Text != "* Removing" {
		t.Errorf("busy actions cell = %+v", c)
	}
	if c := cellOf(t, reg, "actions", rows[2]); c.Kind != grid.KindAction || c.Text != "Remove" {
		t.Errorf("actions cell = %+v", c)
	}
	if c := cellOf(t, reg, "member", rows[1]); c.Text != "[GR] Grace Hopper  grace@keydash.dev" {
		t.Errorf("member cell = %q", c.Text)
	}
}

func TestInvitationStatusCell(t *testing.T) {
	reg := invitationColumns(stubCells{admin: true})
	rows := rowmodel.NewInvitationRows([]identity.Invitation{
		{ID: "a", EmailAddress: "a@x.dev", Status: identity.InvitationPending},
		{ID: "b", EmailAddress: "b@x.dev", Status: identity.InvitationAccepted},
		{ID: "c", EmailAddress: "c@x.dev"},
	})
	if c := cellOf(t, reg, "status", rows[0]); c.Kind != grid.KindBadgePrimary {
		t.Errorf("pending cell = %+v", c)
	}
	if c := cellOf(t, reg, "status", rows[1]); c.Kind != grid.KindBadge {
		t.Errorf("accepted cell = %+v", c)
	}
	if c := cellOf(t, reg, "status", rows[2]); c.Text != grid.EmptyMarker {
		t.Errorf("unknown status cell = %+v", c)
	}
	if c := cellOf(t, reg, "actions", rows[1]); c.Text != "" {
		t.Errorf("accepted invitation should not be revocable, got %+v", c)
	}
}

func TestKeyColumns(t *testing.T) {
	past := testNow.Add(-48 * time.Hour)
	keys := demoKeys()
	keys[1].Expires = &past
	rows := rowmodel.NewKeyRows(keys, rowmodel.FixedClock(testNow))
	reg := keyColumns(stubCells{busy: map[string]bool{"key_c": true}})

	if !reg.HasSelect() {
		t.Fatal("key table needs a select column")
	}
	if c := cellOf(t, reg, "remaining", rows[0]); c.Text != "0" {
		t.Errorf("zero remaining should render, got %+v", c)
	}
	if c := cellOf(t, reg, "name", rows[1]); c.Kind != grid.KindEmpty {
		t.Errorf("missing name cell = %+v", c)
	}
	if c := cellOf(t, reg, "expires", rows[1]); c.Kind != grid.KindMuted {
		t.Errorf("expired cell = %+v", c)
	}
	if c := cellOf(t, reg, "actions", rows[2]); c.Text != "* Revoking" {
		t.Errorf("busy actions cell = %+v", c)
	}
}

func TestKeyDetailsMarkdown(t *testing.T) {
	kind := "fast"
	limit, rate, interval := int64(10), int64(5), int64(1000)
	k := keyservice.Key{ID: "key_z", Start: "kd_zzzz", CreatedAt: testNow, RatelimitType: &kind, RatelimitLimit: &limit, RatelimitRefillRate: &rate, RatelimitRefillInterval: &interval}
	md := keyDetailsMarkdown(rowmodel.NewKeyRow(k, rowmodel.FixedClock(testNow)))
	for _, want := range []string{"`kd_zzzz...`", "| ID | `key_z` |", "| Owner | " + grid.EmptyMarker + " |", "Ratelimit type: **fast**"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestUIConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, path := loadUIConfig(dir)
	if cfg.LastScreen != "" {
		t.Fatalf("fresh config = %+v", cfg)
	}
	cfg.LastScreen = "keys"
	cfg.HiddenKeyColumns = []string{"owner"}
	if err := saveUIConfig(cfg, path); err != nil {
		t.Fatal(err)
	}
	got, _ := loadUIConfig(dir)
	if got.LastScreen != "keys" || len(got.HiddenKeyColumns) != 1 {
		t.Errorf("loaded = %+v", got)
	}
}
