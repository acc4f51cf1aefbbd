package grid

import (
	"errors"
	"fmt"
	"strings"
)

// Row is anything with a key that is unique within one grid.
type Row interface {
	ID() string
}

// Column declares one table column. Accessor feeds sorting; Cell feeds
// rendering and must not call out to services.
type Column[T any] struct {
	ID       string
	Header   string
	Width    int
	Sortable bool
	Hideable bool
	// Select marks the checkbox column. Its cells and header are drawn by
	// the grid.
	Select   bool
	Accessor func(T) any
	Cell     func(T) Cell
}

// SelectColumn is the checkbox column. A registry may hold at most one.
func SelectColumn[T any]() Column[T] {
	return Column[T]{ID: "select", Select: true, Width: 3}
}

type Registry[T any] struct {
	columns []Column[T]
}

var (
	ErrDuplicateColumn  = errors.New("duplicate column id")
	ErrSelectColumn     = errors.New("invalid selection column")
	ErrIncompleteColumn = errors.New("incomplete column")
)

func NewRegistry[T any](cols ...Column[T]) (Registry[T], error) {
	seen := make(map[string]bool, len(cols))
	selects := 0
	for _, c := range cols {
		if strings.TrimSpace(c.ID) == "" {
			return Registry[T]{}, fmt.Errorf("%w: empty id", ErrIncompleteColumn)
		}
		if seen[c.ID] {
			return Registry[T]{}, fmt.Errorf("%w: %s", ErrDuplicateColumn, c.ID)
		}
		seen[c.ID] = true
		if c.Select {
			selects++
			if selects > 1 {
				return Registry[T]{}, fmt.Errorf("%w: more than one selection column", ErrSelectColumn)
			}
			if c.Sortable || c.Hideable {
				return Registry[T]{}, fmt.Errorf("%w: %s cannot be sorted or hidden", ErrSelectColumn, c.ID)
			}
			continue
		}
		if c.Cell == nil {
			return Registry[T]{}, fmt.Errorf("%w: %s has no cell renderer", ErrIncompleteColumn, c.ID)
		}
		if c.Sortable && c.Accessor == nil {
			return Registry[T]{}, fmt.Errorf("%w: sortable %s has no accessor", ErrIncompleteColumn, c.ID)
		}
	}
	return Registry[T]{columns: append([]Column[T](nil), cols...)}, nil
}

// MustRegistry panics on an invalid registry. Registries are declared in code,
// so a failure here is a programming error.
func MustRegistry[T any](cols ...Column[T]) Registry[T] {
	r, err := NewRegistry(cols...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Registry[T]) Columns() []Column[T] {
	return append([]Column[T](nil), r.columns...)
}

func (r Registry[T]) Column(id string) (Column[T], bool) {
	for _, c := range r.columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column[T]{}, false
}

func (r Registry[T]) HasSelect() bool {
	for _, c := range r.columns {
		if c.Select {
			return true
		}
	}
	return false
}
