// Package ui renders migration plans and status messages for the terminal.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/satishbabariya/prisma-schemadiff/migrate/planner"
)

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	destructive = color.New(color.FgRed, color.Bold).SprintFunc()
)

// Format selects how a plan is rendered
type Format string

const (
	TextFormat     Format = "text"
	JSONFormat     Format = "json"
	MarkdownFormat Format = "markdown"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", TextFormat:
		return TextFormat, nil
	case JSONFormat, MarkdownFormat:
		return f, nil
	case "md":
		return MarkdownFormat, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text, json or markdown)", s)
	}
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// PrintError prints an error message
func PrintError(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// PrintInfo prints an info message
func PrintInfo(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, SecondaryStyle.Render("ℹ "+fmt.Sprintf(format, args...)))
}

// RenderPlan writes plan to w in the requested format
func RenderPlan(w io.Writer, plan *planner.MigrationPlan, format Format) error {
	switch format {
	case JSONFormat:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	case MarkdownFormat:
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return err
		}
		out, err := r.Render(Markdown(plan))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return renderText(w, plan)
	}
}

func renderText(w io.Writer, plan *planner.MigrationPlan) error {
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Migration plan (%s)", plan.Flavour)))
	fmt.Fprintln(w, SecondaryStyle.Render(fmt.Sprintf("from %s to %s", short(plan.From), short(plan.To))))
	fmt.Fprintln(w)

	if plan.IsEmpty() {
		PrintSuccess(w, "Schemas are in sync, no steps to apply")
		return nil
	}

	data := pterm.TableData{{"#", "Step", "Table", "Description"}}
	for i, s := range plan.Steps {
		kind := string(s.Kind())
		if s.IsDestructive() {
			kind = destructive(kind + " !")
		}
		data = append(data, []string{strconv.Itoa(i + 1), kind, s.Table(), s.Description()})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, table)

	if warnings := plan.Warnings(); len(warnings) > 0 {
		fmt.Fprintln(w)
		for _, warning := range warnings {
			PrintWarning(w, "%s", warning)
		}
	}
	return nil
}

// Markdown renders plan as a markdown document
func Markdown(plan *planner.MigrationPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Migration plan (%s)\n\n", plan.Flavour)
	fmt.Fprintf(&b, "From `%s` to `%s`\n\n", short(plan.From), short(plan.To))

	if plan.IsEmpty() {
		b.WriteString("Schemas are in sync, no steps to apply.\n")
		return b.String()
	}

	b.WriteString("| # | Step | Table | Description |\n")
	b.WriteString("|---|------|-------|-------------|\n")
	for i, s := range plan.Steps {
		kind := string(s.Kind())
		if s.IsDestructive() {
			kind = "**" + kind + "**"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, kind, s.Table(), strings.ReplaceAll(s.Description(), "|", `\|`))
	}

	if warnings := plan.Warnings(); len(warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, warning := range warnings {
			fmt.Fprintf(&b, "- %s\n", warning)
		}
	}
	return b.String()
}

// short trims a fingerprint for display
func short(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}
