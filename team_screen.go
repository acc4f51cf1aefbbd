package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bekirdag/keydash/internal/dispatch"
	"github.com/bekirdag/keydash/internal/grid"
	"github.com/bekirdag/keydash/internal/identity"
	"github.com/bekirdag/keydash/internal/logging"
	"github.com/bekirdag/keydash/internal/rowmodel"
)

const (
	loadTimeout = 20 * time.Second
	// maxListRows caps how many rows a paged listing pulls in one refresh.
	maxListRows = 500
)

type teamTab int

const (
	tabMembers teamTab = iota
	tabInvitations
)

func (t teamTab) String() string {
	if t == tabInvitations {
		return "invitations"
	}
	return "members"
}

func parseTeamTab(value string) teamTab {
	if strings.EqualFold(strings.TrimSpace(value), "invitations") {
		return tabInvitations
	}
	return tabMembers
}

type membersLoadedMsg struct {
	members []identity.Member
	err     error
}

type invitationsLoadedMsg struct {
	invitations []identity.Invitation
	err         error
}

type teamKeyMap struct {
	SwitchTab  key.Binding
	ChangeRole key.Binding
	Remove     key.Binding
	Invite     key.Binding
	Copy       key.Binding
}

func newTeamKeyMap() teamKeyMap {
	return teamKeyMap{
		SwitchTab: key.NewBinding(
			key.WithKeys("tab", "t"),
			key.WithHelp("tab", "members/invitations"),
		),
		ChangeRole: key.NewBinding(
			key.WithKeys("enter", "r"),
			key.WithHelp("enter/r", "change role"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "remove/revoke"),
		),
		Invite: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "invite"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy email"),
		),
	}
}

type teamScreen struct {
	provider  identity.Provider
	session   identity.Session
	notifier  dispatch.Notifier
	log       *logging.Logger
	pageLimit int
	glyph     func() string
	keys      teamKeyMap
	opts      []dispatch.Option
	copy      func(string) error

	tab         teamTab
	members     *grid.Model[rowmodel.MemberRow]
	invitations *grid.Model[rowmodel.InvitationRow]

	membersLoading, invitationsLoading bool
	membersLoaded, invitationsLoaded   bool
	membersErr, invitationsErr         error

	roles    map[string]*dispatch.RoleSelector
	removals *dispatch.Registry
	revokes  *dispatch.Registry
	invites  *dispatch.Dispatcher
	invite   *inviteForm
}

type teamDeps struct {
	provider  identity.Provider
	session   identity.Session
	notifier  dispatch.Notifier
	log       *logging.Logger
	pageLimit int
	glyph     func() string
	styles    grid.Styles
	tab       teamTab
	copy      func(string) error
}

func newTeamScreen(d teamDeps) *teamScreen {
	log := d.log
	if log == nil {
		log = logging.Nop()
	}
	glyph := d.glyph
	if glyph == nil {
		glyph = func() string { return "…" }
	}
	copyFn := d.copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	opts := []dispatch.Option{dispatch.WithLogger(log.SugaredLogger)}
	t := &teamScreen{
		provider:  d.provider,
		session:   d.session,
		notifier:  d.notifier,
		log:       log,
		pageLimit: identity.Page{Limit: d.pageLimit}.Normalize().Limit,
		glyph:     glyph,
		keys:      newTeamKeyMap(),
		opts:      opts,
		copy:      copyFn,
		tab:       d.tab,
		roles:     make(map[string]*dispatch.RoleSelector),
		removals:  dispatch.NewRegistry("member", d.notifier, opts...),
		revokes:   dispatch.NewRegistry("invitation", d.notifier, opts...),
		invites:   dispatch.New("invite", d.notifier, opts...),
	}
	t.members = grid.New(memberColumns(t), grid.WithID("members"), grid.WithPageSize(d.pageLimit), grid.WithStyles(d.styles))
	t.invitations = grid.New(invitationColumns(t), grid.WithID("invitations"), grid.WithPageSize(d.pageLimit), grid.WithStyles(d.styles))
	t.focusTab()
	return t
}

func (t *teamScreen) Title() string { return "Team" }

// personal reports a session without an organization; there is no team to
// manage.
func (t *teamScreen) personal() bool { return !t.session.HasOrganization() }

func (t *teamScreen) Init() tea.Cmd { return t.Refresh() }

func (t *teamScreen) Refresh() tea.Cmd {
	if t.personal() {
		return nil
	}
	return tea.Batch(t.loadMembers(), t.loadInvitations())
}

func (t *teamScreen) loadMembers() tea.Cmd {
	if t.personal() || t.provider == nil {
		return nil
	}
	t.membersLoading = true
	provider, limit := t.provider, t.pageLimit
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		members, err := collectPages(ctx, limit, provider.ListMembers)
		return membersLoadedMsg{members: members, err: err}
	}
}

func (t *teamScreen) loadInvitations() tea.Cmd {
	if t.personal() || t.provider == nil {
		return nil
	}
	t.invitationsLoading = true
	provider, limit := t.provider, t.pageLimit
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		invitations, err := collectPages(ctx, limit, provider.ListInvitations)
		return invitationsLoadedMsg{invitations: invitations, err: err}
	}
}

// collectPages walks offset pages until a short page comes back.
func collectPages[T any](ctx context.Context, limit int, list func(context.Context, identity.Page) ([]T, error)) ([]T, error) {
	var out []T
	for offset := 0; offset < maxListRows; offset += limit {
		page, err := list(ctx, identity.Page{Limit: limit, Offset: offset})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < limit {
			break
		}
	}
	return out, nil
}

func (t *teamScreen) applyMembers(msg membersLoadedMsg) tea.Cmd {
	t.membersLoading = false
	if msg.err != nil {
		t.membersErr = msg.err
		t.log.Errorw("load members failed", "error", msg.err)
		t.notify(dispatch.KindError, "Could not load members", dispatch.ErrorMessage(msg.err))
		return nil
	}
	t.membersErr = nil
	t.membersLoaded = true
	rows := rowmodel.NewMemberRows(msg.members)
	cmd := t.members.SetRows(rows)

	ids := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		userID := r.UserID()
		// Role changes and removals address the user, so a row without
		// one gets no controls.
		if userID == "" {
			continue
		}
		ids = append(ids, userID)
		seen[userID] = true
		if sel, ok := t.roles[userID]; ok {
			sel.Sync(r.Role())
			continue
		}
		t.roles[userID] = dispatch.NewRoleSelector(userID, t.session.UserID, r.Role(), t.provider.UpdateMemberRole, t.notifier, t.opts...)
	}
	for userID, sel := range t.roles {
		if !seen[userID] && !sel.Busy() {
			delete(t.roles, userID)
		}
	}
	t.removals.Prune(ids)
	t.log.Debugw("members loaded", "count", len(rows))
	return cmd
}

func (t *teamScreen) applyInvitations(msg invitationsLoadedMsg) tea.Cmd {
	t.invitationsLoading = false
	if msg.err != nil {
		t.invitationsErr = msg.err
		t.log.Errorw("load invitations failed", "error", msg.err)
		t.notify(dispatch.KindError, "Could not load invitations", dispatch.ErrorMessage(msg.err))
		return nil
	}
	t.invitationsErr = nil
	t.invitationsLoaded = true
	rows := rowmodel.NewInvitationRows(msg.invitations)
	cmd := t.invitations.SetRows(rows)
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID()
	}
	t.revokes.Prune(ids)
	t.log.Debugw("invitations loaded", "count", len(rows))
	return cmd
}

func (t *teamScreen) notify(kind dispatch.Kind, title, message string) {
	if t.notifier != nil {
		t.notifier.Notify(dispatch.Notification{Kind: kind, Title: title, Message: message})
	}
}

// cell state

func (t *teamScreen) spinnerGlyph() string { return t.glyph() }

func (t *teamScreen) roleSelector(userID string) (*dispatch.RoleSelector, bool) {
	sel, ok := t.roles[userID]
	return sel, ok
}

func (t *teamScreen) removing(userID string) bool { return t.removals.Busy(userID) }

func (t *teamScreen) revokingInvitation(id string) bool { return t.revokes.Busy(id) }

// canRemove: admins may remove anyone but themselves.
func (t *teamScreen) canRemove(row rowmodel.MemberRow) bool {
	return t.session.IsAdmin() && row.UserID() != "" && !t.session.IsSelf(row.UserID())
}

func (t *teamScreen) canRevokeInvitation(row rowmodel.InvitationRow) bool {
	return t.session.IsAdmin() && row.Revocable()
}

// actions

func (t *teamScreen) switchTab() {
	if t.tab == tabMembers {
		t.tab = tabInvitations
	} else {
		t.tab = tabMembers
	}
	t.focusTab()
}

func (t *teamScreen) focusTab() {
	if t.tab == tabMembers {
		t.members.Focus()
		t.invitations.Blur()
	} else {
		t.invitations.Focus()
		t.members.Blur()
	}
}

func (t *teamScreen) changeRole() tea.Cmd {
	row, ok := t.members.Current()
	if !ok {
		return nil
	}
	sel, ok := t.roles[row.UserID()]
	if !ok {
		return nil
	}
	switch {
	case sel.Self():
		t.notify(dispatch.KindInfo, "Role locked", "You cannot change your own role")
		return nil
	case sel.Busy():
		return nil
	}
	return sel.Choose(sel.Next())
}

func (t *teamScreen) requestRemoval() *dispatch.Dispatcher {
	row, ok := t.members.Current()
	if !ok {
		return nil
	}
	if !t.canRemove(row) {
		switch {
		case row.UserID() == "":
			t.notify(dispatch.KindInfo, "Not allowed", "This member has no user account to remove")
		case t.session.IsSelf(row.UserID()):
			t.notify(dispatch.KindInfo, "Not allowed", "You cannot remove yourself")
		default:
			t.notify(dispatch.KindInfo, "Not allowed", "Only admins can remove members")
		}
		return nil
	}
	userID := row.UserID()
	provider := t.provider
	d := t.removals.For(userID)
	if _, ok := d.Request(dispatch.Action{
		Name:        "member_removed",
		Targets:     []string{userID},
		Destructive: true,
		Confirm: dispatch.Prompt{
			Title:        "Remove member",
			Description:  fmt.Sprintf("Are you sure you want to remove %s?", row.Identifier()),
			Alert:        "They lose access to this organization right away.",
			ConfirmLabel: "Remove member",
		},
		Success: "Member removed",
		Failure: "Could not remove member",
		Run: func(ctx context.Context) error {
			return provider.RemoveMember(ctx, userID)
		},
	}); !ok {
		return nil
	}
	return d
}

func (t *teamScreen) requestInvitationRevoke() *dispatch.Dispatcher {
	row, ok := t.invitations.Current()
	if !ok {
		return nil
	}
	if !t.canRevokeInvitation(row) {
		if !t.session.IsAdmin() {
			t.notify(dispatch.KindInfo, "Not allowed", "Only admins can revoke invitations")
		}
		return nil
	}
	id := row.ID()
	provider := t.provider
	d := t.revokes.For(id)
	if _, ok := d.Request(dispatch.Action{
		Name:        "invitation_revoked",
		Targets:     []string{id},
		Destructive: true,
		Confirm: dispatch.Prompt{
			Title:        "Revoke invitation",
			Description:  fmt.Sprintf("Revoke the invitation sent to %s?", row.Email()),
			ConfirmLabel: "Revoke invitation",
		},
		Success: "Invitation revoked",
		Failure: "Could not revoke invitation",
		Run: func(ctx context.Context) error {
			return provider.RevokeInvitation(ctx, id)
		},
	}); !ok {
		return nil
	}
	return d
}

// copyCurrentEmail copies the member identifier or invitation address under
// the cursor.
func (t *teamScreen) copyCurrentEmail() {
	var value string
	if t.tab == tabMembers {
		row, ok := t.members.Current()
		if !ok {
			return
		}
		value = row.Identifier()
	} else {
		row, ok := t.invitations.Current()
		if !ok {
			return
		}
		value = row.Email()
	}
	if value == "" {
		return
	}
	if err := t.copy(value); err != nil {
		t.notify(dispatch.KindError, "Clipboard unavailable", err.Error())
		return
	}
	t.notify(dispatch.KindInfo, "Copied", value)
}

func (t *teamScreen) openInvite() {
	if !t.session.IsAdmin() {
		t.notify(dispatch.KindInfo, "Not allowed", "Only admins can invite members")
		return
	}
	t.invite = newInviteForm()
}

func (t *teamScreen) inviteOpen() bool { return t.invite != nil }

func (t *teamScreen) handleInviteKey(msg tea.KeyMsg) tea.Cmd {
	if t.invites.Busy() {
		return nil
	}
	event, cmd := t.invite.Update(msg)
	switch event {
	case inviteCancel:
		t.invite = nil
		return nil
	case inviteSubmit:
		email, ok := t.invite.validate()
		if !ok {
			return nil
		}
		role, provider := t.invite.Role(), t.provider
		submit, ok := t.invites.Request(dispatch.Action{
			Name:    "invite_sent",
			Targets: []string{email},
			Success: "Invitation sent to " + email,
			Failure: "Could not send invitation",
			Run: func(ctx context.Context) error {
				_, err := provider.CreateInvitation(ctx, email, role)
				return err
			},
		})
		if !ok {
			return nil
		}
		return submit
	}
	return cmd
}

// HandleKey returns a dispatcher when the key opened a confirmation.
func (t *teamScreen) HandleKey(msg tea.KeyMsg) (tea.Cmd, *dispatch.Dispatcher) {
	if t.invite != nil {
		return t.handleInviteKey(msg), nil
	}
	if t.personal() {
		return nil, nil
	}
	active := t.activeFiltering()
	if !active {
		switch {
		case key.Matches(msg, t.keys.SwitchTab):
			t.switchTab()
			return nil, nil
		case key.Matches(msg, t.keys.Invite):
			t.openInvite()
			return nil, nil
		case key.Matches(msg, t.keys.Copy):
			t.copyCurrentEmail()
			return nil, nil
		case key.Matches(msg, t.keys.Remove):
			if t.tab == tabMembers {
				return nil, t.requestRemoval()
			}
			return nil, t.requestInvitationRevoke()
		case key.Matches(msg, t.keys.ChangeRole) && t.tab == tabMembers:
			return t.changeRole(), nil
		}
	}
	if t.tab == tabMembers {
		return t.members.Update(msg), nil
	}
	return t.invitations.Update(msg), nil
}

func (t *teamScreen) activeFiltering() bool {
	if t.tab == tabMembers {
		return t.members.Filtering()
	}
	return t.invitations.Filtering()
}

// Capturing reports that typed keys belong to a text field.
func (t *teamScreen) Capturing() bool {
	return t.invite != nil || t.activeFiltering()
}

// Resolve routes a finished request to the control that sent it and returns
// the follow-up refresh, if any.
func (t *teamScreen) Resolve(msg dispatch.ResultMsg) (dispatch.Outcome, tea.Cmd) {
	switch {
	case msg.DispatcherID == t.invites.ID():
		out := t.invites.Resolve(msg)
		if out.Succeeded {
			t.invite = nil
			t.tab = tabInvitations
			t.focusTab()
			return out, t.loadInvitations()
		}
		return out, nil
	case strings.HasPrefix(msg.DispatcherID, "role:"):
		for _, sel := range t.roles {
			if sel.DispatcherID() == msg.DispatcherID {
				return sel.Resolve(msg), nil
			}
		}
	case strings.HasPrefix(msg.DispatcherID, "member:"):
		out := t.removals.Resolve(msg)
		if out.Refresh {
			return out, t.loadMembers()
		}
		return out, nil
	case strings.HasPrefix(msg.DispatcherID, "invitation:"):
		out := t.revokes.Resolve(msg)
		if out.Refresh {
			return out, t.loadInvitations()
		}
		return out, nil
	}
	return dispatch.Outcome{}, nil
}

// Busy describes the request the status bar should mention, if any.
func (t *teamScreen) Busy() string {
	switch {
	case t.membersLoading:
		return "Loading members"
	case t.invitationsLoading:
		return "Loading invitations"
	case t.invites.Busy():
		return "Sending invitation"
	}
	return ""
}

func (t *teamScreen) SetWidth(width int) {
	t.members.SetWidth(width)
	t.invitations.SetWidth(width)
}

func (t *teamScreen) HelpKeys() []key.Binding {
	if t.personal() {
		return nil
	}
	if t.tab == tabMembers {
		return []key.Binding{t.keys.SwitchTab, t.keys.ChangeRole, t.keys.Remove, t.keys.Invite, t.keys.Copy}
	}
	return []key.Binding{t.keys.SwitchTab, t.keys.Remove, t.keys.Invite, t.keys.Copy}
}

func (t *teamScreen) View(st styles) string {
	if t.personal() {
		return st.placeholder.Render("This is a personal account") + "\n" +
			st.placeholderSub.Render("You can only manage teams in organization workspaces.")
	}

	tabs := []string{"Members", "Invitations"}
	rendered := make([]string, len(tabs))
	for i, label := range tabs {
		if teamTab(i) == t.tab {
			rendered[i] = st.tabActive.Render(label)
		} else {
			rendered[i] = st.tabInactive.Render(label)
		}
	}
	var b strings.Builder
	b.WriteString(st.tabsRow.Render(strings.Join(rendered, " ")))
	b.WriteString("\n\n")

	if t.tab == tabMembers {
		switch {
		case !t.membersLoaded && t.membersErr != nil:
			b.WriteString(st.placeholder.Render("Could not load members"))
			b.WriteString("\n" + st.placeholderSub.Render(dispatch.ErrorMessage(t.membersErr)+" (R to retry)"))
		case !t.membersLoaded:
			b.WriteString(st.placeholder.Render(t.glyph() + " Loading members"))
		default:
			b.WriteString(t.members.View())
		}
		return b.String()
	}

	switch {
	case !t.invitationsLoaded && t.invitationsErr != nil:
		b.WriteString(st.placeholder.Render("Could not load invitations"))
		b.WriteString("\n" + st.placeholderSub.Render(dispatch.ErrorMessage(t.invitationsErr)+" (R to retry)"))
	case !t.invitationsLoaded:
		b.WriteString(st.placeholder.Render(t.glyph() + " Loading invitations"))
	case t.invitations.Len() == 0 && t.invitations.Filter() == "":
		b.WriteString(st.placeholder.Render("No pending invitations"))
		sub := "Invite members to your team"
		if t.session.IsAdmin() {
			sub += " (press i)"
		}
		b.WriteString("\n" + st.placeholderSub.Render(sub))
	default:
		b.WriteString(t.invitations.View())
	}
	return b.String()
}
