package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bekirdag/keydash/internal/config"
	"github.com/bekirdag/keydash/internal/dispatch"
	"github.com/bekirdag/keydash/internal/grid"
	"github.com/bekirdag/keydash/internal/identity"
	"github.com/bekirdag/keydash/internal/keyservice"
	"github.com/bekirdag/keydash/internal/logging"
	"github.com/bekirdag/keydash/internal/rowmodel"
)

const maxLogLines = 400

type screenID int

const (
	screenTeam screenID = iota
	screenKeys
)

func (s screenID) String() string {
	if s == screenKeys {
		return "keys"
	}
	return "team"
}

func parseScreen(value string) screenID {
	if strings.EqualFold(strings.TrimSpace(value), "keys") {
		return screenKeys
	}
	return screenTeam
}

// dashboardScreen is what the shell needs from a screen.
type dashboardScreen interface {
	Title() string
	Init() tea.Cmd
	Refresh() tea.Cmd
	HandleKey(msg tea.KeyMsg) (tea.Cmd, *dispatch.Dispatcher)
	Resolve(msg dispatch.ResultMsg) (dispatch.Outcome, tea.Cmd)
	Capturing() bool
	Busy() string
	HelpKeys() []key.Binding
	View(st styles) string
}

// toastQueue collects notifications raised during one update; the shell
// drains it before rendering.
type toastQueue struct {
	pending []dispatch.Notification
}

func (q *toastQueue) Notify(n dispatch.Notification) {
	q.pending = append(q.pending, n)
}

func (q *toastQueue) drain() []dispatch.Notification {
	out := q.pending
	q.pending = nil
	return out
}

type keyMap struct {
	Team      key.Binding
	Keys      key.Binding
	Refresh   key.Binding
	Logs      key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Team: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "team"),
		),
		Keys: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "api keys"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "refresh"),
		),
		Logs: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "activity log"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y/enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n/esc", "cancel"),
		),
	}
}

// helpKeys is the per-frame help.KeyMap: global bindings plus those of the
// active screen and grid.
type helpKeys struct {
	short []key.Binding
	full  [][]key.Binding
}

func (h helpKeys) ShortHelp() []key.Binding  { return h.short }
func (h helpKeys) FullHelp() [][]key.Binding { return h.full }

type modelDeps struct {
	provider  identity.Provider
	keys      keyservice.Service
	session   identity.Session
	cfg       config.Config
	log       *logging.Logger
	telemetry *telemetryLogger
	ui        *uiConfig
	uiPath    string
	clock     rowmodel.Clock
	copy      func(string) error
}

type model struct {
	width, height int

	styles  styles
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	spinnerActive  bool
	spinnerMessage string
	toastMessage   string
	toastKind      dispatch.Kind
	toastExpires   time.Time
	toastDuration  time.Duration

	logLines []string
	logs     viewport.Model
	showLogs bool

	toasts     *toastQueue
	screen     screenID
	team       *teamScreen
	keyScreen  *keysScreen
	confirming *dispatch.Dispatcher

	session   identity.Session
	log       *logging.Logger
	telemetry *telemetryLogger
	ui        *uiConfig
	uiPath    string
}

func newModel(d modelDeps) *model {
	log := d.log
	if log == nil {
		log = logging.Nop()
	}
	ui := d.ui
	if ui == nil {
		ui = &uiConfig{}
	}
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	toastSeconds := d.cfg.ToastSeconds
	if toastSeconds <= 0 {
		toastSeconds = 4
	}

	m := &model{
		styles:        newStyles(d.cfg.Theme),
		keys:          newKeyMap(),
		help:          help.New(),
		spinner:       sp,
		toastDuration: time.Duration(toastSeconds) * time.Second,
		logs:          viewport.New(80, 8),
		toasts:        &toastQueue{},
		screen:        parseScreen(ui.LastScreen),
		session:       d.session,
		log:           log,
		telemetry:     d.telemetry,
		ui:            ui,
		uiPath:        d.uiPath,
	}
	glyph := func() string { return m.spinner.View() }

	m.team = newTeamScreen(teamDeps{
		provider:  d.provider,
		session:   d.session,
		notifier:  m.toasts,
		log:       log,
		pageLimit: d.cfg.PageSize,
		glyph:     glyph,
		styles:    m.styles.grid,
		tab:       parseTeamTab(ui.TeamTab),
		copy:      d.copy,
	})
	m.keyScreen = newKeysScreen(keysDeps{
		service:  d.keys,
		notifier: m.toasts,
		log:      log,
		clock:    d.clock,
		glyph:    glyph,
		pageSize: d.cfg.PageSize,
		styles:   m.styles.grid,
		hidden:   ui.HiddenKeyColumns,
		copy:     d.copy,
		onHidden: func(ids []string) {
			m.ui.HiddenKeyColumns = ids
			m.saveUI()
		},
	})
	return m
}

func (m *model) active() dashboardScreen {
	if m.screen == screenKeys {
		return m.keyScreen
	}
	return m.team
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.team.Init(), m.keyScreen.Init())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if tick, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tick)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.applyLayout()
	case membersLoadedMsg:
		if cmd := m.team.applyMembers(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	case invitationsLoadedMsg:
		if cmd := m.team.applyInvitations(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	case keysLoadedMsg:
		if cmd := m.keyScreen.applyKeys(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	case dispatch.ResultMsg:
		if cmd := m.handleResult(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	case grid.SelectionChangedMsg:
		m.appendLog(fmt.Sprintf("%s: %d selected", msg.GridID, len(msg.IDs)))
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			m.saveUI()
			return m, tea.Quit
		}
		quit, cmd := m.handleKey(msg)
		if quit {
			m.saveUI()
			return m, tea.Quit
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	m.flushToasts()
	m.syncSpinner()
	return m, tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	if m.confirming != nil {
		return false, m.handleConfirmKey(msg)
	}
	screen := m.active()
	if !screen.Capturing() {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return true, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return false, nil
		case key.Matches(msg, m.keys.Team):
			m.setScreen(screenTeam)
			return false, nil
		case key.Matches(msg, m.keys.Keys):
			m.setScreen(screenKeys)
			return false, nil
		case key.Matches(msg, m.keys.Logs):
			m.showLogs = !m.showLogs
			return false, nil
		case key.Matches(msg, m.keys.Refresh):
			m.appendLog("refresh " + screen.Title())
			return false, screen.Refresh()
		}
	}
	cmd, pending := screen.HandleKey(msg)
	if pending != nil && pending.State() == dispatch.Confirming {
		m.confirming = pending
	}
	return false, cmd
}

// handleConfirmKey drives the confirmation overlay. Keys are ignored while
// the confirmed request is in flight.
func (m *model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	d := m.confirming
	if d.Busy() {
		return nil
	}
	switch {
	case key.Matches(msg, m.keys.Confirm):
		return d.Confirm()
	case key.Matches(msg, m.keys.Cancel):
		if action, ok := d.Pending(); ok {
			m.appendLog("cancelled " + action.Name)
		}
		d.Cancel()
		m.confirming = nil
	}
	return nil
}

func (m *model) handleResult(msg dispatch.ResultMsg) tea.Cmd {
	out, cmd := m.team.Resolve(msg)
	screen := screenTeam
	if !out.Handled {
		out, cmd = m.keyScreen.Resolve(msg)
		screen = screenKeys
	}
	if m.confirming != nil && m.confirming.State() == dispatch.Idle {
		m.confirming = nil
	}
	if !out.Handled {
		m.log.Debugw("dropped stale result", "dispatcher", msg.DispatcherID, "request_id", msg.RequestID)
		return nil
	}
	m.recordOutcome(screen, out)
	return cmd
}

func (m *model) recordOutcome(screen screenID, out dispatch.Outcome) {
	result := "success"
	errText := ""
	if !out.Succeeded {
		result = "error"
		errText = dispatch.ErrorMessage(out.Err)
	}
	m.telemetry.Emit(telemetryEvent{
		Event:     out.Action,
		Screen:    screen.String(),
		Targets:   out.Targets,
		Outcome:   result,
		Error:     errText,
		ElapsedMS: out.Elapsed.Milliseconds(),
	})
	m.log.Audit(out.Action,
		"screen", screen.String(),
		"targets", out.Targets,
		"outcome", result,
		"elapsed", out.Elapsed,
	)
	m.appendLog(fmt.Sprintf("%s %s %s (%s)", out.Action, strings.Join(out.Targets, ","), result, rowmodel.FormatDuration(out.Elapsed, false)))
}

func (m *model) setScreen(id screenID) {
	if m.screen == id {
		return
	}
	m.screen = id
	m.saveUI()
}

func (m *model) flushToasts() {
	for _, n := range m.toasts.drain() {
		line := n.Title
		if n.Message != "" {
			line += ": " + n.Message
		}
		m.appendLog(n.Kind.String() + " " + line)
		m.toastKind = n.Kind
		m.setToast(line, m.toastDuration)
	}
}

func (m *model) syncSpinner() {
	if m.confirming != nil && m.confirming.Busy() {
		m.showSpinner("Submitting")
		return
	}
	for _, s := range []dashboardScreen{m.active(), m.team, m.keyScreen} {
		if busy := s.Busy(); busy != "" {
			m.showSpinner(busy)
			return
		}
	}
	m.hideSpinner()
}

func (m *model) saveUI() {
	if m.uiPath == "" {
		return
	}
	m.ui.LastScreen = m.screen.String()
	m.ui.TeamTab = m.team.tab.String()
	m.ui.HiddenKeyColumns = m.keyScreen.grid.HiddenColumns()
	if err := saveUIConfig(m.ui, m.uiPath); err != nil {
		m.log.Warnw("save ui state failed", "path", m.uiPath, "error", err)
	}
}

func (m *model) applyLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	bodyWidth := m.width - 4
	if bodyWidth < 20 {
		bodyWidth = m.width
	}
	m.team.SetWidth(bodyWidth)
	m.keyScreen.SetSize(bodyWidth, m.height-10)
	m.logs.Width = m.width - 2
	m.help.Width = m.width - 4
}

func (m *model) appendLog(line string) {
	if line == "" {
		return
	}
	stamp := time.Now().Format("15:04:05")
	m.logLines = append(m.logLines, stamp+" "+line)
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
	m.logs.SetContent(strings.Join(m.logLines, "\n"))
	m.logs.GotoBottom()
}

func (m *model) showSpinner(message string) {
	m.spinnerActive = true
	m.spinnerMessage = strings.TrimSpace(message)
}

func (m *model) hideSpinner() {
	m.spinnerActive = false
	m.spinnerMessage = ""
}

func (m *model) setToast(msg string, duration time.Duration) {
	trimmed := strings.TrimSpace(msg)
	if trimmed == "" {
		m.toastMessage = ""
		m.toastExpires = time.Time{}
		return
	}
	if duration <= 0 {
		duration = 4 * time.Second
	}
	m.toastMessage = trimmed
	m.toastExpires = time.Now().Add(duration)
}

func (m *model) currentHelp() helpKeys {
	global := []key.Binding{m.keys.Team, m.keys.Keys, m.keys.Refresh, m.keys.Help, m.keys.Quit}
	if m.confirming != nil {
		return helpKeys{
			short: []key.Binding{m.keys.Confirm, m.keys.Cancel},
			full:  [][]key.Binding{{m.keys.Confirm, m.keys.Cancel}},
		}
	}
	bindings := m.active().HelpKeys()
	var gridMap grid.KeyMap
	if m.screen == screenKeys {
		gridMap = m.keyScreen.grid.KeyMap()
	} else if m.team.tab == tabInvitations {
		gridMap = m.team.invitations.KeyMap()
	} else {
		gridMap = m.team.members.KeyMap()
	}
	short := append(append([]key.Binding{}, bindings...), m.keys.Help, m.keys.Quit)
	full := append([][]key.Binding{bindings}, gridMap.FullHelp()...)
	full = append(full, append(global, m.keys.Logs))
	return helpKeys{short: short, full: full}
}

func (m *model) View() string {
	var builder strings.Builder

	builder.WriteString(m.renderTopBar())
	builder.WriteString("\n\n")
	builder.WriteString(m.styles.body.Render(m.active().View(m.styles)))
	builder.WriteString("\n\n")

	if m.showLogs {
		title := m.styles.panelTitle.Render("Activity")
		builder.WriteString(m.styles.panel.Width(m.width - 2).Render(title + "\n" + m.logs.View()))
		builder.WriteRune('\n')
	}

	if helpView := m.help.View(m.currentHelp()); helpView != "" {
		builder.WriteString(helpView)
		if !strings.HasSuffix(helpView, "\n") {
			builder.WriteRune('\n')
		}
	}
	builder.WriteString(m.renderStatus())

	if overlay := m.renderOverlay(); overlay != "" {
		builder.WriteString("\n")
		builder.WriteString(lipgloss.Place(m.width, m.height/2, lipgloss.Center, lipgloss.Center, overlay))
	}
	return m.styles.app.Render(builder.String())
}

func (m *model) renderTopBar() string {
	tabs := []struct {
		id    screenID
		label string
	}{
		{screenTeam, "1 Team"},
		{screenKeys, "2 API Keys"},
	}
	parts := []string{m.styles.topTitle.Render("keydash")}
	for _, t := range tabs {
		if t.id == m.screen {
			parts = append(parts, m.styles.tabActive.Render(t.label))
		} else {
			parts = append(parts, m.styles.tabInactive.Render(t.label))
		}
	}
	return m.styles.topBar.Width(m.width).Render(strings.Join(parts, " "))
}

func (m *model) renderStatus() string {
	segments := []string{
		m.styles.statusSeg.Render("Screen: " + m.active().Title()),
	}
	user := m.session.UserID
	if user == "" {
		user = grid.EmptyMarker
	}
	if m.session.HasOrganization() {
		role := m.session.OrgRole.Label()
		if role == "" {
			role = grid.EmptyMarker
		}
		segments = append(segments, m.styles.statusSeg.Render(fmt.Sprintf("%s @ %s (%s)", user, m.session.OrganizationID, role)))
	} else {
		segments = append(segments, m.styles.statusSeg.Render(user+" (personal)"))
	}
	if m.screen == screenKeys {
		if n := len(m.keyScreen.grid.SelectedIDs()); n > 0 {
			segments = append(segments, m.styles.statusSeg.Render(fmt.Sprintf("%d selected", n)))
		}
	}
	if m.spinnerActive {
		spin := m.spinner.View()
		if trimmed := strings.TrimSpace(m.spinnerMessage); trimmed != "" {
			spin = fmt.Sprintf("%s %s", spin, trimmed)
		}
		segments = append(segments, m.styles.statusSeg.Render(spin))
	}
	if m.toastMessage != "" {
		if time.Now().After(m.toastExpires) {
			m.toastMessage = ""
		} else {
			style := m.styles.toastInfo
			switch m.toastKind {
			case dispatch.KindSuccess:
				style = m.styles.toastOK
			case dispatch.KindError:
				style = m.styles.toastErr
			}
			segments = append(segments, m.styles.statusSeg.Render(style.Render(m.toastMessage)))
		}
	}
	content := strings.Join(segments, lipgloss.NewStyle().Render("│"))
	return m.styles.statusBar.Width(m.width).Render(content)
}

func (m *model) overlayWidth() int {
	w := 64
	if m.width-4 < w {
		w = m.width - 4
	}
	if w < 24 {
		w = 24
	}
	return w
}

func (m *model) renderOverlay() string {
	switch {
	case m.confirming != nil:
		return m.styles.cmdOverlay.Width(m.overlayWidth()).Render(m.renderConfirm(m.confirming))
	case m.screen == screenTeam && m.team.inviteOpen():
		content := m.team.invite.View(m.styles, m.team.invites.Busy(), m.spinner.View())
		return m.styles.cmdOverlay.Width(m.overlayWidth()).Render(content)
	}
	return ""
}

func (m *model) renderConfirm(d *dispatch.Dispatcher) string {
	action, _ := d.Pending()
	prompt := action.Confirm

	var b strings.Builder
	b.WriteString(m.styles.cmdPrompt.Render(prompt.Title))
	if prompt.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(prompt.Description)
	}
	if prompt.Alert != "" {
		b.WriteString("\n\n")
		b.WriteString(m.styles.cmdAlert.Render(prompt.Alert))
	}
	b.WriteString("\n\n")
	if d.Busy() {
		b.WriteString(m.styles.cmdHint.Render(m.spinner.View() + " Working… " + rowmodel.FormatDuration(d.Since(), false)))
		return b.String()
	}
	label := prompt.ConfirmLabel
	if label == "" {
		label = "confirm"
	}
	b.WriteString(m.styles.cmdDanger.Render("y/enter " + label))
	b.WriteString(m.styles.cmdHint.Render(" • n/esc cancel"))
	return b.String()
}
