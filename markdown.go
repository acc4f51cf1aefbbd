package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/bekirdag/keydash/internal/grid"
	"github.com/bekirdag/keydash/internal/rowmodel"
)

type markdownTheme string

const (
	markdownThemeAuto  markdownTheme = "auto"
	markdownThemeDark  markdownTheme = "dark"
	markdownThemeLight markdownTheme = "light"
)

var (
	markdownMu       sync.Mutex
	markdownRenderer *glamour.TermRenderer
	markdownErr      error
	markdownStyle    = markdownThemeAuto
	markdownWordWrap = 80
)

// RenderMarkdown returns Glamour-rendered terminal output for the provided Markdown.
func RenderMarkdown(content string) string {
	renderer := ensureMarkdownRenderer()
	if renderer == nil {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}

func ensureMarkdownRenderer() *glamour.TermRenderer {
	markdownMu.Lock()
	defer markdownMu.Unlock()
	if markdownRenderer != nil && markdownErr == nil {
		return markdownRenderer
	}
	options := []glamour.TermRendererOption{
		glamour.WithWordWrap(markdownWordWrap),
	}
	switch markdownStyle {
	case markdownThemeLight:
		options = append(options, glamour.WithStandardStyle("light"))
	case markdownThemeDark:
		options = append(options, glamour.WithStandardStyle("dark"))
	default:
		options = append(options, glamour.WithAutoStyle())
	}
	markdownRenderer, markdownErr = glamour.NewTermRenderer(options...)
	if markdownErr != nil {
		return nil
	}
	return markdownRenderer
}

func setMarkdownWordWrap(width int) {
	markdownMu.Lock()
	if width < 0 {
		width = 0
	}
	if markdownWordWrap != width {
		markdownWordWrap = width
		markdownRenderer = nil
		markdownErr = nil
	}
	markdownMu.Unlock()
}

func setMarkdownTheme(theme markdownTheme) {
	markdownMu.Lock()
	if theme == "" {
		theme = markdownThemeAuto
	}
	if markdownStyle != theme {
		markdownStyle = theme
		markdownRenderer = nil
		markdownErr = nil
	}
	markdownMu.Unlock()
}

func markdownThemeFromString(value string) markdownTheme {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dark":
		return markdownThemeDark
	case "light":
		return markdownThemeLight
	default:
		return markdownThemeAuto
	}
}

func (t markdownTheme) String() string {
	switch t {
	case markdownThemeDark:
		return "dark"
	case markdownThemeLight:
		return "light"
	default:
		return "auto"
	}
}

// keyDetailsMarkdown is the document shown in the key details pane. Absent
// fields use the same marker as the table.
func keyDetailsMarkdown(row rowmodel.KeyRow) string {
	field := func(v string, ok bool) string {
		if !ok || v == "" {
			return grid.EmptyMarker
		}
		return v
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Key `%s`\n\n", row.MaskedPrefix())
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| ID | `%s` |\n", row.ID())
	fmt.Fprintf(&b, "| Created | %s |\n", row.CreatedAt())
	exp, ok := row.Expiry()
	if ok && row.Expired() {
		exp += " (expired)"
	}
	fmt.Fprintf(&b, "| Expires | %s |\n", field(exp, ok))
	fmt.Fprintf(&b, "| Remaining | %s |\n", field(row.Remaining()))
	fmt.Fprintf(&b, "| Owner | %s |\n", field(row.Owner()))
	fmt.Fprintf(&b, "| Name | %s |\n", field(row.Name()))
	fmt.Fprintf(&b, "| Ratelimit | %s |\n", field(row.RateLimit()))
	if row.Key.RatelimitType != nil && *row.Key.RatelimitType != "" {
		fmt.Fprintf(&b, "\nRatelimit type: **%s**\n", *row.Key.RatelimitType)
	}
	b.WriteString("\n_Press `y` to copy the key id, `x` to revoke it, `esc` to close._\n")
	return b.String()
}
