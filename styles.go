package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bekirdag/keydash/internal/grid"
)

type palette struct {
	accent, muted, faint lipgloss.Color
	success, danger      lipgloss.Color
	badge, border        lipgloss.Color
}

var (
	darkPalette = palette{
		accent:  lipgloss.Color("#60A5FA"),
		muted:   lipgloss.Color("#9CA3AF"),
		faint:   lipgloss.Color("#4B5563"),
		success: lipgloss.Color("#34D399"),
		danger:  lipgloss.Color("#F87171"),
		badge:   lipgloss.Color("#D1D5DB"),
		border:  lipgloss.Color("#374151"),
	}
	lightPalette = palette{
		accent:  lipgloss.Color("#1D4ED8"),
		muted:   lipgloss.Color("#6B7280"),
		faint:   lipgloss.Color("#D1D5DB"),
		success: lipgloss.Color("#047857"),
		danger:  lipgloss.Color("#B91C1C"),
		badge:   lipgloss.Color("#4B5563"),
		border:  lipgloss.Color("#D1D5DB"),
	}
)

func paletteFor(theme string) palette {
	if theme == "light" {
		return lightPalette
	}
	return darkPalette
}

type styles struct {
	app, topBar, topTitle             lipgloss.Style
	body, placeholder, placeholderSub lipgloss.Style
	tabActive, tabInactive, tabsRow   lipgloss.Style
	statusBar, statusSeg              lipgloss.Style
	toastInfo, toastOK, toastErr      lipgloss.Style
	panel, panelTitle                 lipgloss.Style
	cmdOverlay, cmdPrompt, cmdHint    lipgloss.Style
	cmdAlert, cmdDanger               lipgloss.Style
	grid                              grid.Styles
}

func newStyles(theme string) styles {
	p := paletteFor(theme)
	base := lipgloss.NewStyle()

	g := grid.DefaultStyles()
	g.HeaderFocused = base.Copy().Bold(true).Underline(true).Foreground(p.accent)
	g.Badge = base.Copy().Foreground(p.badge)
	g.BadgePrimary = base.Copy().Bold(true).Foreground(p.accent)
	g.Muted = base.Copy().Foreground(p.muted)
	g.Empty = base.Copy().Foreground(p.faint)
	g.Loading = base.Copy().Italic(true).Foreground(p.muted)
	g.Action = base.Copy().Foreground(p.danger)
	g.Footer = base.Copy().Foreground(p.muted)

	return styles{
		app:            base,
		topBar:         base.Padding(0, 1),
		topTitle:       base.Copy().Bold(true),
		body:           base.Padding(0, 1),
		placeholder:    base.Copy().Bold(true).Padding(1, 2),
		placeholderSub: base.Copy().Foreground(p.muted).Padding(0, 2),
		tabActive:      base.Copy().Bold(true).Underline(true).Foreground(p.accent).Padding(0, 1),
		tabInactive:    base.Copy().Foreground(p.muted).Padding(0, 1),
		tabsRow:        base.Padding(0, 1),
		statusBar:      base.Padding(0, 1),
		statusSeg:      base.Padding(0, 1).MarginRight(1),
		toastInfo:      base.Copy(),
		toastOK:        base.Copy().Foreground(p.success),
		toastErr:       base.Copy().Bold(true).Foreground(p.danger),
		panel:          base.Border(lipgloss.NormalBorder()).BorderForeground(p.border).Padding(0, 1),
		panelTitle:     base.Copy().Bold(true),
		cmdOverlay:     base.Border(lipgloss.RoundedBorder()).BorderForeground(p.border).Padding(1, 2),
		cmdPrompt:      base.Copy().Bold(true),
		cmdHint:        base.Copy().Faint(true),
		cmdAlert:       base.Copy().Foreground(p.danger),
		cmdDanger:      base.Copy().Bold(true).Foreground(p.danger),
		grid:           g,
	}
}
