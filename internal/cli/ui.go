package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette, ANSI 256.
var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240") // ids, tree guides
)

// Styles shared by the commands and the editor.
var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorCyan)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

const iconArrow = "→"

// marker is the leading icon of a status line.
type marker struct {
	icon  string
	style lipgloss.Style
}

var (
	markSuccess = marker{"✓", lipgloss.NewStyle().Foreground(colorGreen)}
	markError   = marker{"✗", lipgloss.NewStyle().Foreground(colorRed)}
	markWarning = marker{"!", lipgloss.NewStyle().Foreground(colorYellow)}
	markInfo    = marker{"›", lipgloss.NewStyle().Foreground(colorGray)}
	markSpinner = lipgloss.NewStyle().Foreground(colorCyan)
)

func (m marker) line(msg string) string {
	return m.style.Render(m.icon) + " " + msg
}

func printSuccess(format string, args ...any) {
	fmt.Println(markSuccess.line(fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Println(markError.line(fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Println(markWarning.line(StyleWarning.Render(fmt.Sprintf(format, args...))))
}

func printInfo(format string, args ...any) {
	fmt.Println(markInfo.line(fmt.Sprintf(format, args...)))
}

// printDetail prints a dimmed, indented line under a status line.
func printDetail(format string, args ...any) {
	fmt.Println(indent(StyleDim.Render(fmt.Sprintf(format, args...))))
}

// printFile points at a written file.
func printFile(path string) {
	fmt.Println(indent(StyleDim.Render(iconArrow) + " " + StyleValue.Render(path)))
}

func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// printStats prints node and edge counts, plus the layout kind if set.
func printStats(nodes, edges int, kind string) {
	parts := []string{
		count(nodes, "node", "nodes"),
		count(edges, "edge", "edges"),
	}
	if kind != "" {
		parts = append(parts, kind)
	}
	fmt.Println(indent(StyleDim.Render(strings.Join(parts, " · "))))
}

func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Println()
}

func indent(s string) string {
	return "  " + s
}

func count(n int, one, many string) string {
	return fmt.Sprintf("%d %s", n, plural(n, one, many))
}
