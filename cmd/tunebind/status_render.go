package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const statusLabelWidth = 20

type statusKindStyle struct {
	tag   string
	style lipgloss.Style
}

var statusKinds = map[statusKind]statusKindStyle{
	statusInfo:  {"INFO", lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))},
	statusOK:    {"OK", lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))},
	statusWarn:  {"WARN", lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))},
	statusError: {"ERROR", lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)},
}

var styleHeader = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)

// renderStatusLine formats "  label: [TAG] message". Only the tag is colored
// so long details stay readable.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	k, ok := statusKinds[kind]
	if !ok {
		k = statusKinds[statusInfo]
	}
	tag := "[" + k.tag + "]"
	if colorize {
		tag = k.style.Render(tag)
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", tag)
	if message != "" {
		line += " " + message
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(line))
	if !colorize {
		return []string{line, rule}
	}
	return []string{styleHeader.Render(line), styleHeader.Render(rule)}
}

func passKind(passed bool) statusKind {
	if passed {
		return statusOK
	}
	return statusError
}

// shouldColorize honours NO_COLOR and only colors real terminals.
func shouldColorize(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
