package grid

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Header        lipgloss.Style
	HeaderFocused lipgloss.Style
	Cell          lipgloss.Style
	Cursor        lipgloss.Style
	Selected      lipgloss.Style
	Badge         lipgloss.Style
	BadgePrimary  lipgloss.Style
	Muted         lipgloss.Style
	Empty         lipgloss.Style
	Loading       lipgloss.Style
	Action        lipgloss.Style
	Footer        lipgloss.Style
}

func DefaultStyles() Styles {
	base := lipgloss.NewStyle()
	return Styles{
		Header:        base.Copy().Bold(true),
		HeaderFocused: base.Copy().Bold(true).Underline(true),
		Cell:          base,
		Cursor:        base.Copy().Reverse(true),
		Selected:      base.Copy().Bold(true),
		Badge:         base.Copy().Foreground(lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#D1D5DB"}),
		BadgePrimary:  base.Copy().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}),
		Muted:         base.Copy().Faint(true),
		Empty:         base.Copy().Foreground(lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"}),
		Loading:       base.Copy().Italic(true),
		Action:        base.Copy().Foreground(lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}),
		Footer:        base.Copy().Faint(true),
	}
}

func (s Styles) forKind(k Kind) lipgloss.Style {
	switch k {
	case KindBadge:
		return s.Badge
	case KindBadgePrimary:
		return s.BadgePrimary
	case KindMuted:
		return s.Muted
	case KindEmpty:
		return s.Empty
	case KindLoading:
		return s.Loading
	case KindAction:
		return s.Action
	}
	return s.Cell
}
