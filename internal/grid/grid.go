// Package grid is a generic, selectable table for bubbletea. The same Model
// renders every table in the dashboard; what differs is the Registry of
// columns it is built with.
package grid

import (
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
)

const (
	DefaultPageSize = 20
	maxAutoWidth    = 36
	minWidth        = 3
	columnGap       = " "
)

// SelectionChangedMsg is emitted whenever the set of checked rows changes.
type SelectionChangedMsg struct {
	GridID string
	IDs    []string
}

// Filterable rows provide the text the fuzzy filter matches against.
type Filterable interface {
	FilterText() string
}

type config struct {
	id       string
	pageSize int
	styles   Styles
	keys     KeyMap
}

type Option func(*config)

func WithID(id string) Option {
	return func(c *config) { c.id = id }
}

func WithPageSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithStyles(s Styles) Option {
	return func(c *config) { c.styles = s }
}

func WithKeyMap(k KeyMap) Option {
	return func(c *config) { c.keys = k }
}

type Model[T Row] struct {
	id       string
	registry Registry[T]
	styles   Styles
	keys     KeyMap

	source   []T
	rows     []T
	selected map[string]bool
	hidden   map[string]bool
	sort     SortState
	filter   string

	cursor    int
	focusCol  int
	focused   bool
	width     int
	paginator paginator.Model

	filterInput textinput.Model
	filtering   bool
}

func New[T Row](registry Registry[T], opts ...Option) *Model[T] {
	cfg := config{pageSize: DefaultPageSize, styles: DefaultStyles(), keys: DefaultKeyMap()}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := paginator.New()
	p.Type = paginator.Dots
	p.PerPage = cfg.pageSize
	p.TotalPages = 1

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter"
	ti.CharLimit = 64

	return &Model[T]{
		id:          cfg.id,
		registry:    registry,
		styles:      cfg.styles,
		keys:        cfg.keys,
		selected:    make(map[string]bool),
		hidden:      make(map[string]bool),
		focused:     true,
		paginator:   p,
		filterInput: ti,
	}
}

func (m *Model[T]) ID() string { return m.id }

// SetRows replaces the data. Selection is cleared since the old ids may no
// longer match anything; the returned command reports that when something was
// selected.
func (m *Model[T]) SetRows(rows []T) tea.Cmd {
	m.source = append([]T(nil), rows...)
	hadSelection := len(m.selected) > 0
	m.selected = make(map[string]bool)
	m.rebuild()
	if hadSelection {
		return m.selectionChanged()
	}
	return nil
}

// Rows returns every row in rendered order, across all pages.
func (m *Model[T]) Rows() []T {
	return append([]T(nil), m.rows...)
}

// Visible returns the rows on the current page.
func (m *Model[T]) Visible() []T {
	start, end := m.pageBounds()
	return append([]T(nil), m.rows[start:end]...)
}

func (m *Model[T]) Len() int { return len(m.rows) }

func (m *Model[T]) Cursor() int { return m.cursor }

func (m *Model[T]) Current() (T, bool) {
	var zero T
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return zero, false
	}
	return m.rows[m.cursor], true
}

// SetCursorByID moves the cursor to the row with id, if it is rendered.
func (m *Model[T]) SetCursorByID(id string) bool {
	for i, r := range m.rows {
		if r.ID() == id {
			m.setCursor(i)
			return true
		}
	}
	return false
}

func (m *Model[T]) MoveCursor(delta int) {
	m.setCursor(m.cursor + delta)
}

func (m *Model[T]) setCursor(i int) {
	if len(m.rows) == 0 {
		m.cursor = 0
		m.paginator.Page = 0
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(m.rows) {
		i = len(m.rows) - 1
	}
	m.cursor = i
	m.paginator.Page = i / m.paginator.PerPage
}

// ToggleSort sorts by columnID, flipping direction on repeated calls. The
// first toggle sorts ascending.
func (m *Model[T]) ToggleSort(columnID string) bool {
	col, ok := m.registry.Column(columnID)
	if !ok || !col.Sortable || col.Select {
		return false
	}
	if m.sort.ColumnID == columnID && m.sort.Direction == Ascending {
		m.sort.Direction = Descending
	} else {
		m.sort = SortState{ColumnID: columnID, Direction: Ascending}
	}
	current, hasCurrent := m.Current()
	m.rebuild()
	if hasCurrent {
		m.SetCursorByID(current.ID())
	}
	return true
}

func (m *Model[T]) SortState() SortState { return m.sort }

func (m *Model[T]) IsSelected(id string) bool { return m.selected[id] }

func (m *Model[T]) ToggleRow(id string) tea.Cmd {
	return m.SetRowSelected(id, !m.selected[id])
}

func (m *Model[T]) SetRowSelected(id string, selected bool) tea.Cmd {
	if !m.registry.HasSelect() || !m.rendered(id) || m.selected[id] == selected {
		return nil
	}
	if selected {
		m.selected[id] = true
	} else {
		delete(m.selected, id)
	}
	return m.selectionChanged()
}

// AllOnPageSelected is the header checkbox. An empty page is never "all
// selected".
func (m *Model[T]) AllOnPageSelected() bool {
	page := m.Visible()
	if len(page) == 0 {
		return false
	}
	for _, r := range page {
		if !m.selected[r.ID()] {
			return false
		}
	}
	return true
}

// ToggleAllOnPage selects every row on the current page, or clears them when
// they are all already selected. Other pages are untouched.
func (m *Model[T]) ToggleAllOnPage() tea.Cmd {
	page := m.Visible()
	if !m.registry.HasSelect() || len(page) == 0 {
		return nil
	}
	target := !m.AllOnPageSelected()
	for _, r := range page {
		if target {
			m.selected[r.ID()] = true
		} else {
			delete(m.selected, r.ID())
		}
	}
	return m.selectionChanged()
}

// SelectedIDs returns checked row ids in rendered order.
func (m *Model[T]) SelectedIDs() []string {
	ids := make([]string, 0, len(m.selected))
	for _, r := range m.rows {
		if m.selected[r.ID()] {
			ids = append(ids, r.ID())
		}
	}
	return ids
}

func (m *Model[T]) ClearSelection() tea.Cmd {
	if len(m.selected) == 0 {
		return nil
	}
	m.selected = make(map[string]bool)
	return m.selectionChanged()
}

func (m *Model[T]) selectionChanged() tea.Cmd {
	msg := SelectionChangedMsg{GridID: m.id, IDs: m.SelectedIDs()}
	return func() tea.Msg { return msg }
}

func (m *Model[T]) rendered(id string) bool {
	for _, r := range m.rows {
		if r.ID() == id {
			return true
		}
	}
	return false
}

// ToggleHidden hides or shows a hideable column and reports whether it
// changed anything.
func (m *Model[T]) ToggleHidden(columnID string) bool {
	col, ok := m.registry.Column(columnID)
	if !ok || !col.Hideable || col.Select {
		return false
	}
	if m.hidden[columnID] {
		delete(m.hidden, columnID)
	} else {
		m.hidden[columnID] = true
	}
	if m.focusCol >= len(m.VisibleColumns()) {
		m.focusCol = len(m.VisibleColumns()) - 1
	}
	return true
}

// SetHidden restores a saved set of hidden columns. Unknown or unhideable ids
// are ignored.
func (m *Model[T]) SetHidden(ids []string) {
	m.hidden = make(map[string]bool)
	for _, id := range ids {
		if col, ok := m.registry.Column(id); ok && col.Hideable && !col.Select {
			m.hidden[id] = true
		}
	}
}

func (m *Model[T]) HiddenColumns() []string {
	var out []string
	for _, c := range m.registry.columns {
		if m.hidden[c.ID] {
			out = append(out, c.ID)
		}
	}
	return out
}

func (m *Model[T]) VisibleColumns() []Column[T] {
	cols := make([]Column[T], 0, len(m.registry.columns))
	for _, c := range m.registry.columns {
		if !m.hidden[c.ID] {
			cols = append(cols, c)
		}
	}
	return cols
}

// FocusedColumn is the column the sort and hide keys act on.
func (m *Model[T]) FocusedColumn() (Column[T], bool) {
	cols := m.VisibleColumns()
	if m.focusCol < 0 || m.focusCol >= len(cols) {
		return Column[T]{}, false
	}
	return cols[m.focusCol], true
}

func (m *Model[T]) moveFocusCol(delta int) {
	n := len(m.VisibleColumns())
	if n == 0 {
		return
	}
	m.focusCol = (m.focusCol + delta + n) % n
}

func (m *Model[T]) NextPage() {
	if m.paginator.OnLastPage() {
		return
	}
	m.paginator.NextPage()
	m.cursor = m.paginator.Page * m.paginator.PerPage
}

func (m *Model[T]) PrevPage() {
	if m.paginator.Page == 0 {
		return
	}
	m.paginator.PrevPage()
	m.cursor = m.paginator.Page * m.paginator.PerPage
}

func (m *Model[T]) Page() int       { return m.paginator.Page }
func (m *Model[T]) TotalPages() int { return m.paginator.TotalPages }

// SetFilter narrows the rendered rows to those fuzzily matching query.
// Surviving rows keep their order; selections on rows filtered away are
// dropped.
func (m *Model[T]) SetFilter(query string) tea.Cmd {
	query = strings.TrimSpace(query)
	if query == m.filter {
		return nil
	}
	m.filter = query
	m.rebuild()
	changed := false
	for id := range m.selected {
		if !m.rendered(id) {
			delete(m.selected, id)
			changed = true
		}
	}
	if changed {
		return m.selectionChanged()
	}
	return nil
}

func (m *Model[T]) Filter() string  { return m.filter }
func (m *Model[T]) Filtering() bool { return m.filtering }

func (m *Model[T]) Focus()          { m.focused = true }
func (m *Model[T]) Blur()           { m.focused = false }
func (m *Model[T]) Focused() bool   { return m.focused }
func (m *Model[T]) SetWidth(w int)  { m.width = w }
func (m *Model[T]) KeyMap() KeyMap  { return m.keys }
func (m *Model[T]) Styles() *Styles { return &m.styles }

type filterSource []string

func (s filterSource) String(i int) string { return s[i] }
func (s filterSource) Len() int            { return len(s) }

func (m *Model[T]) rebuild() {
	rows := m.source
	if m.filter != "" {
		texts := make(filterSource, len(m.source))
		for i, r := range m.source {
			texts[i] = filterText(r)
		}
		matched := make(map[int]bool)
		for _, match := range fuzzy.FindFrom(m.filter, texts) {
			matched[match.Index] = true
		}
		rows = make([]T, 0, len(matched))
		for i, r := range m.source {
			if matched[i] {
				rows = append(rows, r)
			}
		}
	}
	m.rows = append([]T(nil), rows...)

	if m.sort.Direction != Unsorted {
		if col, ok := m.registry.Column(m.sort.ColumnID); ok && col.Accessor != nil {
			dir := m.sort.Direction
			sort.SliceStable(m.rows, func(i, j int) bool {
				return sortLess(col.Accessor(m.rows[i]), col.Accessor(m.rows[j]), dir)
			})
		}
	}

	total := (len(m.rows) + m.paginator.PerPage - 1) / m.paginator.PerPage
	if total < 1 {
		total = 1
	}
	m.paginator.TotalPages = total
	m.setCursor(m.cursor)
}

func filterText(r any) string {
	if f, ok := r.(Filterable); ok {
		return f.FilterText()
	}
	if row, ok := r.(Row); ok {
		return row.ID()
	}
	return ""
}

func (m *Model[T]) pageBounds() (int, int) {
	return m.paginator.GetSliceBounds(len(m.rows))
}

func (m *Model[T]) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.filtering {
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			return cmd
		}
		return nil
	}
	if !m.focused {
		return nil
	}

	if m.filtering {
		switch {
		case key.Matches(keyMsg, m.keys.ApplyFilter):
			m.filtering = false
			m.filterInput.Blur()
			return nil
		case key.Matches(keyMsg, m.keys.ClearFilter):
			m.filtering = false
			m.filterInput.Blur()
			m.filterInput.SetValue("")
			return m.SetFilter("")
		}
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(keyMsg)
		return tea.Batch(cmd, m.SetFilter(m.filterInput.Value()))
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		m.MoveCursor(-1)
	case key.Matches(keyMsg, m.keys.Down):
		m.MoveCursor(1)
	case key.Matches(keyMsg, m.keys.Left):
		m.moveFocusCol(-1)
	case key.Matches(keyMsg, m.keys.Right):
		m.moveFocusCol(1)
	case key.Matches(keyMsg, m.keys.ToggleRow):
		if row, ok := m.Current(); ok {
			return m.ToggleRow(row.ID())
		}
	case key.Matches(keyMsg, m.keys.ToggleAll):
		return m.ToggleAllOnPage()
	case key.Matches(keyMsg, m.keys.Sort):
		if col, ok := m.FocusedColumn(); ok {
			m.ToggleSort(col.ID)
		}
	case key.Matches(keyMsg, m.keys.NextPage):
		m.NextPage()
	case key.Matches(keyMsg, m.keys.PrevPage):
		m.PrevPage()
	case key.Matches(keyMsg, m.keys.Filter):
		m.filtering = true
		m.filterInput.SetValue(m.filter)
		m.filterInput.CursorEnd()
		return m.filterInput.Focus()
	case key.Matches(keyMsg, m.keys.ClearFilter):
		if m.filter != "" {
			m.filterInput.SetValue("")
			return m.SetFilter("")
		}
	}
	return nil
}

func (m *Model[T]) View() string {
	cols, widths := m.layout()
	page := m.Visible()

	var lines []string
	lines = append(lines, m.renderHeader(cols, widths))
	start, _ := m.pageBounds()
	for i, row := range page {
		lines = append(lines, m.renderRow(row, start+i == m.cursor, cols, widths))
	}

	var footer []string
	if m.paginator.TotalPages > 1 {
		footer = append(footer, m.paginator.View()+" "+strconv.Itoa(m.paginator.Page+1)+"/"+strconv.Itoa(m.paginator.TotalPages))
	}
	if n := len(m.selected); n > 0 {
		footer = append(footer, strconv.Itoa(n)+" selected")
	}
	if m.filtering {
		footer = append(footer, m.filterInput.View())
	} else if m.filter != "" {
		footer = append(footer, "filter: "+m.filter)
	}
	if len(footer) > 0 {
		lines = append(lines, m.styles.Footer.Render(strings.Join(footer, "  ")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// layout picks the visible columns and their widths. Columns that would run
// past the configured width are dropped from the right.
func (m *Model[T]) layout() ([]Column[T], []int) {
	all := m.VisibleColumns()
	page := m.Visible()
	cols := make([]Column[T], 0, len(all))
	widths := make([]int, 0, len(all))
	used := 2
	for _, c := range all {
		w := c.Width
		if c.Select {
			w = runewidth.StringWidth(checkbox(false))
		} else if w <= 0 {
			w = runewidth.StringWidth(m.headerText(c))
			for _, row := range page {
				if cw := runewidth.StringWidth(c.Cell(row).Text); cw > w {
					w = cw
				}
			}
			if w > maxAutoWidth {
				w = maxAutoWidth
			}
		}
		if w < minWidth {
			w = minWidth
		}
		if m.width > 0 && len(cols) > 0 && used+len(columnGap)+w > m.width {
			break
		}
		used += len(columnGap) + w
		cols = append(cols, c)
		widths = append(widths, w)
	}
	return cols, widths
}

func (m *Model[T]) headerText(c Column[T]) string {
	if c.Select {
		return checkbox(m.AllOnPageSelected())
	}
	if !c.Sortable {
		return c.Header
	}
	dir := Unsorted
	if m.sort.ColumnID == c.ID {
		dir = m.sort.Direction
	}
	return c.Header + dir.indicator()
}

func (m *Model[T]) renderHeader(cols []Column[T], widths []int) string {
	focused, _ := m.FocusedColumn()
	parts := make([]string, len(cols))
	for i, c := range cols {
		style := m.styles.Header
		if m.focused && c.ID == focused.ID {
			style = m.styles.HeaderFocused
		}
		parts[i] = style.Render(fit(m.headerText(c), widths[i]))
	}
	return "  " + strings.Join(parts, columnGap)
}

func (m *Model[T]) renderRow(row T, isCursor bool, cols []Column[T], widths []int) string {
	cells := make([]Cell, len(cols))
	for i, c := range cols {
		if c.Select {
			cells[i] = Text(checkbox(m.selected[row.ID()]))
			continue
		}
		cells[i] = c.Cell(row)
	}

	if isCursor && m.focused {
		plain := make([]string, len(cells))
		for i, cell := range cells {
			plain[i] = fit(cell.Text, widths[i])
		}
		return "› " + m.styles.Cursor.Render(strings.Join(plain, columnGap))
	}

	parts := make([]string, len(cells))
	for i, cell := range cells {
		style := m.styles.forKind(cell.Kind)
		if m.selected[row.ID()] && cell.Kind == KindPlain {
			style = m.styles.Selected
		}
		parts[i] = style.Render(fit(cell.Text, widths[i]))
	}
	return "  " + strings.Join(parts, columnGap)
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

// fit truncates by display width before any styling is applied, then pads.
func fit(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}
