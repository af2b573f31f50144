package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/appbaseio/rebuild-indices/model/index"
	"github.com/appbaseio/rebuild-indices/model/result"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("42")
	colorError   = lipgloss.Color("196")
	colorMuted   = lipgloss.Color("240")

	headerStyle  = lipgloss.NewStyle().Bold(true)
	stepStyle    = lipgloss.NewStyle().Width(24)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Width(10)
	failureStyle = lipgloss.NewStyle().Foreground(colorError).Width(10)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

func statusStyle(s result.Status) lipgloss.Style {
	if s == result.Succeeded {
		return successStyle
	}
	return failureStyle
}

func renderResult(r result.Result) string {
	line := stepStyle.Render(r.StepID) + statusStyle(r.Status).Render(string(r.Status)) +
		mutedStyle.Render(fmt.Sprintf("attempts: %d", r.Attempts))
	if r.Err != nil {
		line += "\n  " + failureStyle.UnsetWidth().Render(r.Err.Error())
	}
	return line
}

// renderOutcome formats the per-step results of a run.
func renderOutcome(o result.Outcome) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (run %s): ", o.UpgradeID, o.RunID)))
	b.WriteString(statusStyle(o.Status).UnsetWidth().Render(string(o.Status)))
	b.WriteString("\n")
	for _, r := range o.Results {
		b.WriteString(renderResult(r))
		b.WriteString("\n")
	}
	if len(o.CleanupResults) > 0 {
		b.WriteString(headerStyle.Render("cleanup"))
		b.WriteString("\n")
		for _, r := range o.CleanupResults {
			b.WriteString(renderResult(r))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func printOutcome(w io.Writer, o result.Outcome) {
	fmt.Fprint(w, renderOutcome(o))
}

func printDeleted(w io.Writer, deleted []index.Name) {
	if len(deleted) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no expired clone"))
		return
	}
	for _, name := range deleted {
		fmt.Fprintln(w, "deleted", name)
	}
}
