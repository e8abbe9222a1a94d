// Package ui holds terminal presentation helpers for the flowtrack CLI.
package ui

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/TheFastest599/flowtrack/internal/model"
)

// ShouldUseColor reports whether stdout should be styled. NO_COLOR and the
// CLICOLOR conventions win over TTY detection.
func ShouldUseColor() bool {
	switch {
	case os.Getenv("NO_COLOR") != "":
		return false
	case strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1":
		return true
	case strings.TrimSpace(os.Getenv("CLICOLOR")) == "0":
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ANSI256 color codes.
const (
	colorTodo       = 245 // gray
	colorInProgress = 74  // blue
	colorDone       = 71  // green
	colorHigh       = 167 // red
	colorMedium     = 179 // yellow
	colorLow        = 245 // gray
	colorMuted      = 245
)

var noColor bool

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderStatus returns the status name colored by kanban column.
func RenderStatus(s model.TaskStatus) string {
	switch s {
	case model.StatusInProgress:
		return paint(colorInProgress, s.String())
	case model.StatusDone:
		return paint(colorDone, s.String())
	default:
		return paint(colorTodo, s.String())
	}
}

// RenderPriority returns the priority name colored by urgency.
func RenderPriority(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return paint(colorHigh, p.String())
	case model.PriorityLow:
		return paint(colorLow, p.String())
	default:
		return paint(colorMedium, p.String())
	}
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return paint(colorMuted, s)
}
