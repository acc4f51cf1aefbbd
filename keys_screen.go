package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bekirdag/keydash/internal/dispatch"
	"github.com/bekirdag/keydash/internal/grid"
	"github.com/bekirdag/keydash/internal/keyservice"
	"github.com/bekirdag/keydash/internal/logging"
	"github.com/bekirdag/keydash/internal/rowmodel"
)

const revokeAlert = "This action can not be undone. Your users will no longer be able to authenticate using this key."

type keysLoadedMsg struct {
	keys []keyservice.Key
	err  error
}

type keysKeyMap struct {
	Revoke     key.Binding
	RevokeAll  key.Binding
	Details    key.Binding
	Copy       key.Binding
	HideColumn key.Binding
	Close      key.Binding
}

func newKeysKeyMap() keysKeyMap {
	return keysKeyMap{
		Revoke: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "revoke key"),
		),
		RevokeAll: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "revoke selected"),
		),
		Details: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy id"),
		),
		HideColumn: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "hide/show column"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc", "enter"),
			key.WithHelp("esc", "close details"),
		),
	}
}

type keysScreen struct {
	service  keyservice.Service
	notifier dispatch.Notifier
	log      *logging.Logger
	clock    rowmodel.Clock
	glyph    func() string
	keys     keysKeyMap
	copy     func(string) error
	// onHidden is told the hidden column set after every change.
	onHidden func([]string)

	grid    *grid.Model[rowmodel.KeyRow]
	loading bool
	loaded  bool
	err     error

	revokes *dispatch.Registry
	bulk    *dispatch.Dispatcher

	details     bool
	detailsID   string
	detailsView viewport.Model
}

type keysDeps struct {
	service  keyservice.Service
	notifier dispatch.Notifier
	log      *logging.Logger
	clock    rowmodel.Clock
	glyph    func() string
	pageSize int
	styles   grid.Styles
	hidden   []string
	onHidden func([]string)
	copy     func(string) error
}

func newKeysScreen(d keysDeps) *keysScreen {
	log := d.log
	if log == nil {
		log = logging.Nop()
	}
	glyph := d.glyph
	if glyph == nil {
		glyph = func() string { return "…" }
	}
	clock := d.clock
	if clock == nil {
		clock = rowmodel.SystemClock{}
	}
	copyFn := d.copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	opts := []dispatch.Option{dispatch.WithLogger(log.SugaredLogger)}
	s := &keysScreen{
		service:     d.service,
		notifier:    d.notifier,
		log:         log,
		clock:       clock,
		glyph:       glyph,
		keys:        newKeysKeyMap(),
		copy:        copyFn,
		onHidden:    d.onHidden,
		revokes:     dispatch.NewRegistry("key", d.notifier, opts...),
		bulk:        dispatch.New("keys:selection", d.notifier, opts...),
		detailsView: viewport.New(80, 16),
	}
	s.grid = grid.New(keyColumns(s), grid.WithID("keys"), grid.WithPageSize(d.pageSize), grid.WithStyles(d.styles))
	s.grid.SetHidden(d.hidden)
	return s
}

func (s *keysScreen) Title() string { return "API Keys" }

func (s *keysScreen) Init() tea.Cmd { return s.Refresh() }

func (s *keysScreen) Refresh() tea.Cmd {
	if s.service == nil {
		return nil
	}
	s.loading = true
	service := s.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		keys, err := service.ListKeys(ctx)
		return keysLoadedMsg{keys: keys, err: err}
	}
}

// applyKeys returns the selection-change command when a refresh cleared a
// selection.
func (s *keysScreen) applyKeys(msg keysLoadedMsg) tea.Cmd {
	s.loading = false
	if msg.err != nil {
		s.err = msg.err
		s.log.Errorw("load keys failed", "error", msg.err)
		s.notify(dispatch.KindError, "Could not load keys", dispatch.ErrorMessage(msg.err))
		return nil
	}
	s.err = nil
	s.loaded = true
	rows := rowmodel.NewKeyRows(msg.keys, s.clock)
	cmd := s.grid.SetRows(rows)
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID()
	}
	s.revokes.Prune(ids)
	if s.details && !s.refreshDetails() {
		s.details = false
	}
	s.log.Debugw("keys loaded", "count", len(rows))
	return cmd
}

func (s *keysScreen) notify(kind dispatch.Kind, title, message string) {
	if s.notifier != nil {
		s.notifier.Notify(dispatch.Notification{Kind: kind, Title: title, Message: message})
	}
}

func (s *keysScreen) spinnerGlyph() string { return s.glyph() }

// revokingKey covers both the row's own request and a bulk request that
// includes the row.
func (s *keysScreen) revokingKey(id string) bool {
	if s.revokes.Busy(id) {
		return true
	}
	if action, ok := s.bulk.Pending(); ok && s.bulk.Busy() {
		for _, target := range action.Targets {
			if target == id {
				return true
			}
		}
	}
	return false
}

func (s *keysScreen) requestRevoke(row rowmodel.KeyRow) *dispatch.Dispatcher {
	if s.revokingKey(row.ID()) {
		return nil
	}
	id := row.ID()
	service := s.service
	d := s.revokes.For(id)
	if _, ok := d.Request(dispatch.Action{
		Name:        "keys_revoked",
		Targets:     []string{id},
		Destructive: true,
		Confirm: dispatch.Prompt{
			Title:        "Revoke Api Key",
			Description:  fmt.Sprintf("Delete the key %s permanently", row.MaskedPrefix()),
			Alert:        revokeAlert,
			ConfirmLabel: "Delete permanently",
		},
		Success: "Key was deleted",
		Failure: "Could not delete key",
		Run: func(ctx context.Context) error {
			return service.DeleteKeys(ctx, []string{id})
		},
	}); !ok {
		return nil
	}
	return d
}

func (s *keysScreen) requestBulkRevoke() *dispatch.Dispatcher {
	ids := s.grid.SelectedIDs()
	if len(ids) == 0 {
		s.notify(dispatch.KindInfo, "Nothing selected", "Select keys with space first")
		return nil
	}
	service := s.service
	noun := "keys"
	if len(ids) == 1 {
		noun = "key"
	}
	if _, ok := s.bulk.Request(dispatch.Action{
		Name:        "keys_revoked",
		Targets:     ids,
		Destructive: true,
		Confirm: dispatch.Prompt{
			Title:        "Revoke Api Keys",
			Description:  fmt.Sprintf("Delete %d %s permanently", len(ids), noun),
			Alert:        revokeAlert,
			ConfirmLabel: "Delete permanently",
		},
		Success: fmt.Sprintf("%d %s deleted", len(ids), noun),
		Failure: "Could not delete keys",
		Run: func(ctx context.Context) error {
			return service.DeleteKeys(ctx, ids)
		},
	}); !ok {
		return nil
	}
	return s.bulk
}

func (s *keysScreen) openDetails() {
	row, ok := s.grid.Current()
	if !ok {
		return
	}
	s.detailsID = row.ID()
	s.details = true
	s.refreshDetails()
}

// refreshDetails re-renders the pane for the key it shows. It reports false
// when that key is gone.
func (s *keysScreen) refreshDetails() bool {
	for _, r := range s.grid.Rows() {
		if r.ID() == s.detailsID {
			s.detailsView.SetContent(RenderMarkdown(keyDetailsMarkdown(r)))
			s.detailsView.GotoTop()
			return true
		}
	}
	return false
}

func (s *keysScreen) copyCurrentID() {
	id := s.detailsID
	if !s.details {
		row, ok := s.grid.Current()
		if !ok {
			return
		}
		id = row.ID()
	}
	if err := s.copy(id); err != nil {
		s.notify(dispatch.KindError, "Clipboard unavailable", err.Error())
		return
	}
	s.notify(dispatch.KindInfo, "Copied", id)
}

func (s *keysScreen) toggleFocusedColumn() {
	col, ok := s.grid.FocusedColumn()
	if !ok || !s.grid.ToggleHidden(col.ID) {
		return
	}
	if s.onHidden != nil {
		s.onHidden(s.grid.HiddenColumns())
	}
}

func (s *keysScreen) HandleKey(msg tea.KeyMsg) (tea.Cmd, *dispatch.Dispatcher) {
	if s.details {
		switch {
		case key.Matches(msg, s.keys.Close):
			s.details = false
			return nil, nil
		case key.Matches(msg, s.keys.Copy):
			s.copyCurrentID()
			return nil, nil
		case key.Matches(msg, s.keys.Revoke):
			for _, r := range s.grid.Rows() {
				if r.ID() == s.detailsID {
					return nil, s.requestRevoke(r)
				}
			}
			return nil, nil
		}
		var cmd tea.Cmd
		s.detailsView, cmd = s.detailsView.Update(msg)
		return cmd, nil
	}

	if !s.grid.Filtering() {
		switch {
		case key.Matches(msg, s.keys.Revoke):
			if row, ok := s.grid.Current(); ok {
				return nil, s.requestRevoke(row)
			}
			return nil, nil
		case key.Matches(msg, s.keys.RevokeAll):
			return nil, s.requestBulkRevoke()
		case key.Matches(msg, s.keys.Details):
			s.openDetails()
			return nil, nil
		case key.Matches(msg, s.keys.Copy):
			s.copyCurrentID()
			return nil, nil
		case key.Matches(msg, s.keys.HideColumn):
			s.toggleFocusedColumn()
			return nil, nil
		}
	}
	return s.grid.Update(msg), nil
}

func (s *keysScreen) Capturing() bool { return s.grid.Filtering() }

func (s *keysScreen) Resolve(msg dispatch.ResultMsg) (dispatch.Outcome, tea.Cmd) {
	var (
		out  dispatch.Outcome
		cmds []tea.Cmd
	)
	switch {
	case msg.DispatcherID == s.bulk.ID():
		out = s.bulk.Resolve(msg)
		if out.Succeeded {
			cmds = append(cmds, s.grid.ClearSelection())
		}
	case strings.HasPrefix(msg.DispatcherID, "key:"):
		out = s.revokes.Resolve(msg)
	default:
		return dispatch.Outcome{}, nil
	}
	if out.Refresh {
		cmds = append(cmds, s.Refresh())
	}
	return out, tea.Batch(cmds...)
}

func (s *keysScreen) Busy() string {
	switch {
	case s.loading:
		return "Loading keys"
	case s.bulk.Busy():
		if action, ok := s.bulk.Pending(); ok {
			return fmt.Sprintf("Revoking %d keys", len(action.Targets))
		}
	}
	return ""
}

func (s *keysScreen) SetSize(width, height int) {
	s.grid.SetWidth(width)
	s.detailsView.Width = width
	if height > 4 {
		s.detailsView.Height = height
	}
	setMarkdownWordWrap(width - 4)
	if s.details {
		s.refreshDetails()
	}
}

func (s *keysScreen) HelpKeys() []key.Binding {
	if s.details {
		return []key.Binding{s.keys.Close, s.keys.Copy, s.keys.Revoke}
	}
	return []key.Binding{s.keys.Details, s.keys.Revoke, s.keys.RevokeAll, s.keys.Copy, s.keys.HideColumn}
}

func (s *keysScreen) View(st styles) string {
	switch {
	case !s.loaded && s.err != nil:
		return st.placeholder.Render("Could not load keys") + "\n" +
			st.placeholderSub.Render(dispatch.ErrorMessage(s.err)+" (R to retry)")
	case !s.loaded:
		return st.placeholder.Render(s.glyph() + " Loading keys")
	case s.details:
		return st.panel.Render(st.panelTitle.Render("Key details") + "\n" + s.detailsView.View())
	case s.grid.Len() == 0 && s.grid.Filter() == "":
		return st.placeholder.Render("No keys yet") + "\n" +
			st.placeholderSub.Render("Keys created for this workspace show up here.")
	}
	var b strings.Builder
	b.WriteString(s.grid.View())
	if hidden := s.grid.HiddenColumns(); len(hidden) > 0 {
		b.WriteString("\n")
		b.WriteString(st.placeholderSub.Render("hidden: " + strings.Join(hidden, ", ")))
	}
	return b.String()
}
