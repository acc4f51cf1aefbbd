package grid

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type testRow struct {
	id    string
	name  string
	count *int64
}

func (r testRow) ID() string         { return r.id }
func (r testRow) FilterText() string { return r.name }

func count(n int64) *int64 { return &n }

func testRegistry(t *testing.T) Registry[testRow] {
	t.Helper()
	reg, err := NewRegistry(
		SelectColumn[testRow](),
		Column[testRow]{
			ID: "name", Header: "Name", Sortable: true,
			Accessor: func(r testRow) any { return r.name },
			Cell:     func(r testRow) Cell { return Text(r.name) },
		},
		Column[testRow]{
			ID: "count", Header: "Count", Sortable: true, Hideable: true,
			Accessor: func(r testRow) any { return r.count },
			Cell: func(r testRow) Cell {
				if r.count == nil {
					return Empty()
				}
				return Text("n")
			},
		},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func ids(rows []testRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.id
	}
	return out
}

func runCmd(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

func TestNewRegistry_Validation(t *testing.T) {
	cell := func(testRow) Cell { return Text("") }
	tests := []struct {
		name string
		cols []Column[testRow]
		want error
	}{
		{"duplicate id", []Column[testRow]{{ID: "a", Cell: cell}, {ID: "a", Cell: cell}}, ErrDuplicateColumn},
		{"two select columns", []Column[testRow]{{ID: "s1", Select: true}, {ID: "s2", Select: true}}, ErrSelectColumn},
		{"sortable select", []Column[testRow]{{ID: "s", Select: true, Sortable: true}}, ErrSelectColumn},
		{"hideable select", []Column[testRow]{{ID: "s", Select: true, Hideable: true}}, ErrSelectColumn},
		{"missing cell", []Column[testRow]{{ID: "a"}}, ErrIncompleteColumn},
		{"sortable without accessor", []Column[testRow]{{ID: "a", Sortable: true, Cell: cell}}, ErrIncompleteColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.cols...); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestModel_EmptyRowsRenderHeaderOnly(t *testing.T) {
	m := New(testRegistry(t))
	m.SetRows(nil)
	view := m.View()
	if lines := strings.Split(view, "\n"); len(lines) != 1 {
		t.Fatalf("expected header-only table, got %d lines:\n%s", len(lines), view)
	}
	if !strings.Contains(view, "Name") {
		t.Errorf("header missing: %q", view)
	}
	if m.AllOnPageSelected() {
		t.Error("empty page must not be all-selected")
	}
	if cmd := m.ToggleAllOnPage(); cmd != nil {
		t.Error("toggling an empty page must not emit a selection change")
	}
}

func TestModel_SortStableAndNonMutating(t *testing.T) {
	m := New(testRegistry(t))
	source := []testRow{
		{id: "1", name: "beta"},
		{id: "2", name: "alpha"},
		{id: "3", name: "beta"},
		{id: "4", name: "alpha"},
	}
	snapshot := append([]testRow(nil), source...)
	m.SetRows(source)

	if !m.ToggleSort("name") {
		t.Fatal("name should be sortable")
	}
	if got := ids(m.Rows()); !reflect.DeepEqual(got, []string{"2", "4", "1", "3"}) {
		t.Errorf("ascending order = %v", got)
	}
	if s := m.SortState(); s.ColumnID != "name" || s.Direction != Ascending {
		t.Errorf("sort state = %+v", s)
	}

	m.ToggleSort("name")
	if got := ids(m.Rows()); !reflect.DeepEqual(got, []string{"1", "3", "2", "4"}) {
		t.Errorf("descending order = %v", got)
	}
	if !reflect.DeepEqual(source, snapshot) {
		t.Error("sorting mutated the source slice")
	}
	if m.ToggleSort("select") {
		t.Error("selection column must not be sortable")
	}
}

func TestModel_SortAbsentValuesLast(t *testing.T) {
	m := New(testRegistry(t))
	m.SetRows([]testRow{{id: "a"}, {id: "b", count: count(2)}, {id: "c", count: count(1)}})

	m.ToggleSort("count")
	if got := ids(m.Rows()); !reflect.DeepEqual(got, []string{"c", "b", "a"}) {
		t.Errorf("ascending = %v", got)
	}
	m.ToggleSort("count")
	if got := ids(m.Rows()); !reflect.DeepEqual(got, []string{"b", "c", "a"}) {
		t.Errorf("descending = %v", got)
	}
}

func TestModel_SelectAllOnPage(t *testing.T) {
	m := New(testRegistry(t), WithID("keys"))
	rows := []testRow{{id: "a", name: "a"}, {id: "b", name: "b"}, {id: "c", name: "c"}}
	m.SetRows(rows)

	msg, ok := runCmd(m.ToggleAllOnPage()).(SelectionChangedMsg)
	if !ok {
		t.Fatal("expected SelectionChangedMsg")
	}
	if msg.GridID != "keys" || !reflect.DeepEqual(msg.IDs, []string{"a", "b", "c"}) {
		t.Errorf("unexpected msg %+v", msg)
	}
	if !m.AllOnPageSelected() {
		t.Error("header should be checked after select all")
	}

	m.ToggleRow("b")
	if m.AllOnPageSelected() {
		t.Error("header must clear when one row is unchecked")
	}
	if got := m.SelectedIDs(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("selected = %v", got)
	}
	m.ToggleRow("b")
	if !m.AllOnPageSelected() {
		t.Error("header should be checked again")
	}

	m.ToggleAllOnPage()
	if len(m.SelectedIDs()) != 0 {
		t.Errorf("second toggle should clear the page, got %v", m.SelectedIDs())
	}
	if !reflect.DeepEqual(m.Rows(), rows) {
		t.Error("selection mutated row data")
	}
}

func TestModel_SelectAllConsidersCurrentPageOnly(t *testing.T) {
	m := New(testRegistry(t), WithPageSize(2))
	m.SetRows([]testRow{{id: "a"}, {id: "b"}, {id: "c"}})

	if m.TotalPages() != 2 {
		t.Fatalf("expected 2 pages, got %d", m.TotalPages())
	}
	m.ToggleAllOnPage()
	if got := m.SelectedIDs(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("selected = %v", got)
	}
	m.NextPage()
	if got := ids(m.Visible()); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("page 2 = %v", got)
	}
	if m.AllOnPageSelected() {
		t.Error("page 2 has no selected rows")
	}
	if cur, _ := m.Current(); cur.id != "c" {
		t.Errorf("cursor should move to the new page, got %q", cur.id)
	}
}

func TestModel_SetRowsClearsSelection(t *testing.T) {
	m := New(testRegistry(t))
	m.SetRows([]testRow{{id: "a"}, {id: "b"}})
	m.ToggleRow("a")
	cmd := m.SetRows([]testRow{{id: "a"}, {id: "b"}})
	if len(m.SelectedIDs()) != 0 || m.IsSelected("a") {
		t.Error("refresh must clear selection")
	}
	if cmd == nil {
		t.Fatal("clearing a selection should be reported")
	}
	if msg, ok := cmd().(SelectionChangedMsg); !ok || len(msg.IDs) != 0 {
		t.Errorf("selection msg = %#v", msg)
	}
	if cmd := m.SetRows([]testRow{{id: "a"}}); cmd != nil {
		t.Error("nothing was selected, nothing to report")
	}
	if cmd := m.ToggleRow("missing"); cmd != nil {
		t.Error("unknown ids cannot be selected")
	}
}

func TestModel_HiddenColumns(t *testing.T) {
	m := New(testRegistry(t))
	m.SetRows([]testRow{{id: "a", name: "a"}})

	if m.ToggleHidden("select") || m.ToggleHidden("name") {
		t.Error("only hideable columns can be hidden")
	}
	if !m.ToggleHidden("count") {
		t.Fatal("count is hideable")
	}
	if strings.Contains(m.View(), "Count") {
		t.Error("hidden column still rendered")
	}
	if got := m.HiddenColumns(); !reflect.DeepEqual(got, []string{"count"}) {
		t.Errorf("hidden = %v", got)
	}
	m.SetHidden([]string{"select", "bogus"})
	if len(m.HiddenColumns()) != 0 {
		t.Errorf("SetHidden accepted invalid ids: %v", m.HiddenColumns())
	}
}

func TestModel_EmptyMarkerRendered(t *testing.T) {
	m := New(testRegistry(t))
	m.SetRows([]testRow{{id: "a", name: "a"}})
	m.Blur()
	if !strings.Contains(m.View(), EmptyMarker) {
		t.Errorf("absent count should render the empty marker:\n%s", m.View())
	}
}

func TestModel_FilterPreservesOrderAndPrunesSelection(t *testing.T) {
	m := New(testRegistry(t))
	m.SetRows([]testRow{
		{id: "1", name: "production key"},
		{id: "2", name: "staging"},
		{id: "3", name: "prod backup"},
	})
	m.ToggleRow("2")
	m.ToggleRow("3")

	msg, ok := runCmd(m.SetFilter("prod")).(SelectionChangedMsg)
	if !ok {
		t.Fatal("pruning a selection should emit SelectionChangedMsg")
	}
	if !reflect.DeepEqual(msg.IDs, []string{"3"}) {
		t.Errorf("selection after filter = %v", msg.IDs)
	}
	if got := ids(m.Rows()); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Errorf("filtered rows = %v", got)
	}

	m.SetFilter("")
	if len(m.Rows()) != 3 {
		t.Errorf("clearing the filter should restore rows, got %d", len(m.Rows()))
	}
}

func TestModel_KeyBindings(t *testing.T) {
	m := New(testRegistry(t))
	m.SetRows([]testRow{{id: "a"}, {id: "b"}})

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if cur, _ := m.Current(); cur.id != "b" {
		t.Fatalf("cursor = %q", cur.id)
	}
	if _, ok := runCmd(m.Update(tea.KeyMsg{Type: tea.KeySpace})).(SelectionChangedMsg); !ok {
		t.Fatal("space should toggle the current row")
	}
	if !m.IsSelected("b") {
		t.Error("row b should be selected")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	if !m.AllOnPageSelected() {
		t.Error("a should select the page")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if col, _ := m.FocusedColumn(); col.ID != "name" {
		t.Fatalf("focused column = %q", col.ID)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if m.SortState().ColumnID != "name" {
		t.Error("s should sort the focused column")
	}
}
