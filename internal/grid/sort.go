package grid

import (
	"fmt"
	"strings"
	"time"
)

type SortDirection int

const (
	Unsorted SortDirection = iota
	Ascending
	Descending
)

func (d SortDirection) indicator() string {
	switch d {
	case Ascending:
		return " ↑"
	case Descending:
		return " ↓"
	}
	return " ↕"
}

type SortState struct {
	ColumnID  string
	Direction SortDirection
}

// normalize unwraps optional pointer values so a nil pointer counts as
// absent.
func normalize(v any) any {
	switch tv := v.(type) {
	case *time.Time:
		if tv == nil {
			return nil
		}
		return *tv
	case *int64:
		if tv == nil {
			return nil
		}
		return *tv
	case *string:
		if tv == nil {
			return nil
		}
		return *tv
	}
	return v
}

// sortLess orders two accessor values. Absent values go last in either
// direction.
func sortLess(a, b any, dir SortDirection) bool {
	a, b = normalize(a), normalize(b)
	if (a == nil) != (b == nil) {
		return b == nil
	}
	if a == nil {
		return false
	}
	c := compareValues(a, b)
	if dir == Descending {
		return c > 0
	}
	return c < 0
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(strings.ToLower(av), strings.ToLower(bv))
		}
	case int:
		if bv, ok := b.(int); ok {
			return cmpOrdered(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmpOrdered(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmpOrdered(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func cmpOrdered[V int | int64 | float64](a, b V) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
