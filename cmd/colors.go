package cmd

import (
	"strings"

	"github.com/fatih/color"
)

var (
	colorInfo     = color.New(color.FgCyan).SprintFunc()
	colorLow      = color.New(color.FgGreen).SprintFunc()
	colorMedium   = color.New(color.FgYellow).SprintFunc()
	colorHigh     = color.New(color.FgRed).SprintFunc()
	colorCritical = color.New(color.FgRed, color.Bold).SprintFunc()
	colorDiag     = color.New(color.FgMagenta).SprintFunc()
)

// formatSeverityWithColor colors a normalized severity label.
func formatSeverityWithColor(severity string) string {
	switch strings.ToUpper(severity) {
	case "CRITICAL":
		return colorCritical(severity)
	case "HIGH":
		return colorHigh(severity)
	case "MEDIUM":
		return colorMedium(severity)
	case "LOW":
		return colorLow(severity)
	default:
		return colorInfo(severity)
	}
}

// formatLogLine highlights diagnostics in the live scan stream.
func formatLogLine(line string) string {
	switch {
	case strings.Contains(line, "NOT INSTALLED"),
		strings.Contains(line, "failed to start"),
		strings.Contains(line, "classifier error"):
		return colorDiag(line)
	case strings.HasPrefix(line, "[scanner]"), strings.HasPrefix(line, "[phase]"),
		strings.HasPrefix(line, "[rules]"), strings.HasPrefix(line, "[killchain]"):
		return colorInfo(line)
	default:
		return line
	}
}
