// Package ui renders human-readable output for the CLI: spec summaries,
// execution plans, version history, and task listings.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/specloom/specloom/internal/planner"
	"github.com/specloom/specloom/internal/spec"
	"github.com/specloom/specloom/internal/specstore"
	"github.com/specloom/specloom/internal/taskqueue"
)

// Semantic color palette.
var (
	colorPrimary = lipgloss.Color("#00BFFF") // Cyan — primary accent
	colorAccent  = lipgloss.Color("#FFD700") // Gold — attention
	colorSuccess = lipgloss.Color("#00E676") // Green — completed
	colorDanger  = lipgloss.Color("#FF5252") // Red — errors/failures
	colorMuted   = lipgloss.Color("#636363") // Gray — de-emphasized
	colorBlue    = lipgloss.Color("#5B8DEF") // Blue — in progress
)

var (
	styleTitle  = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	styleHeader = lipgloss.NewStyle().Bold(true)
	styleDim    = lipgloss.NewStyle().Foreground(colorMuted)
	styleError  = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	styleWarn   = lipgloss.NewStyle().Foreground(colorAccent)

	statusStyles = map[taskqueue.Status]lipgloss.Style{
		taskqueue.StatusPending:    lipgloss.NewStyle().Foreground(colorMuted),
		taskqueue.StatusInProgress: lipgloss.NewStyle().Foreground(colorBlue),
		taskqueue.StatusCompleted:  lipgloss.NewStyle().Foreground(colorSuccess),
		taskqueue.StatusFailed:     lipgloss.NewStyle().Foreground(colorDanger),
		taskqueue.StatusCancelled:  lipgloss.NewStyle().Foreground(colorMuted).Strikethrough(true),
	}

	priorityStyles = map[spec.Priority]lipgloss.Style{
		spec.PriorityCritical: lipgloss.NewStyle().Foreground(colorDanger).Bold(true),
		spec.PriorityHigh:     lipgloss.NewStyle().Foreground(colorAccent),
		spec.PriorityMedium:   lipgloss.NewStyle().Foreground(colorBlue),
		spec.PriorityLow:      lipgloss.NewStyle().Foreground(colorMuted),
	}
)

// Printer renders to a writer, stderr by default.
type Printer struct {
	w io.Writer
}

// New creates a printer writing to stderr.
func New() *Printer {
	return &Printer{w: os.Stderr}
}

// NewWriter creates a printer writing to w.
func NewWriter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Banner prints the program heading shown at the start of a session.
func (p *Printer) Banner() {
	fmt.Fprintln(p.w, styleTitle.Render("specloom")+" "+styleDim.Render("living-spec task planner"))
	fmt.Fprintln(p.w)
}

// Prompt prints the REPL input prompt without a trailing newline.
func (p *Printer) Prompt() {
	fmt.Fprint(p.w, styleTitle.Render("specloom> "))
}

// ShowHelp prints the REPL command reference.
func (p *Printer) ShowHelp() {
	lines := []string{
		styleHeader.Render("Commands:"),
		"  Type an instruction to change the spec (\"add search feature\")",
		"  " + styleHeader.Render("show") + "      — print the current spec",
		"  " + styleHeader.Render("plan") + "      — print the execution plan",
		"  " + styleHeader.Render("tasks") + "     — list tasks and statuses",
		"  " + styleHeader.Render("ready") + "     — list unblocked tasks",
		"  " + styleHeader.Render("start/done/fail <task>") + " — move a task",
		"  " + styleHeader.Render("versions") + "  — list rollback snapshots",
		"  " + styleHeader.Render("rollback <n>") + " — restore snapshot n",
		"  " + styleHeader.Render("quit") + "      — exit specloom",
	}
	fmt.Fprintln(p.w, strings.Join(lines, "\n"))
}

// Error prints msg with an error prefix.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, "%s %s\n", styleError.Render("error:"), msg)
}

// Info prints msg dimmed.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, styleDim.Render(msg))
}

// SpecSummary prints the project heading and the feature table.
func (p *Printer) SpecSummary(s *spec.Spec) {
	fmt.Fprintf(p.w, "%s %s\n", styleTitle.Render(s.ProjectName), styleDim.Render("v"+s.Version))
	if s.Overview != "" {
		fmt.Fprintln(p.w, styleDim.Render(s.Overview))
	}
	fmt.Fprintf(p.w, "%s %d\n\n", styleHeader.Render("features:"), len(s.Features))

	for _, f := range s.Features {
		pr := priorityStyles[f.Priority].Render(string(f.Priority))
		fmt.Fprintf(p.w, "  %-32s %-10s %s\n", f.ID, pr, f.Name)
		if len(f.Dependencies) > 0 {
			fmt.Fprintf(p.w, "    %s\n", styleDim.Render("depends: "+strings.Join(f.Dependencies, ", ")))
		}
	}
}

// Plan prints the leveled execution plan with task details.
func (p *Printer) Plan(levels [][]string, tasks []taskqueue.Task) {
	byID := make(map[string]taskqueue.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	fmt.Fprintln(p.w, styleTitle.Render("execution plan"))
	for i, level := range levels {
		fmt.Fprintf(p.w, "%s\n", styleHeader.Render(fmt.Sprintf("level %d", i+1)))
		for _, id := range level {
			t, ok := byID[id]
			if !ok {
				fmt.Fprintf(p.w, "  %s\n", id)
				continue
			}
			st := statusStyles[t.Status].Render(string(t.Status))
			fmt.Fprintf(p.w, "  %-36s %-12s %s %s\n",
				t.ID, st, t.Name, styleDim.Render("~"+formatDuration(t.EstimatedDuration)))
		}
	}
}

// RegenSummary prints the outcome of one plan regeneration.
func (p *Printer) RegenSummary(res planner.Result) {
	fmt.Fprintf(p.w, "%s generated: %d, preserved: %d, updated: %d %s\n",
		styleTitle.Render("plan updated —"),
		res.Generated, res.Preserved, res.Updated,
		styleDim.Render(fmt.Sprintf("(%s)", res.Duration.Round(time.Millisecond))))
	if len(res.ReadyTaskIDs) > 0 {
		fmt.Fprintf(p.w, "%s %s\n", styleHeader.Render("ready:"), strings.Join(res.ReadyTaskIDs, ", "))
	}
}

// Versions prints the in-memory rollback history, oldest first.
func (p *Printer) Versions(versions []specstore.VersionSnapshot) {
	if len(versions) == 0 {
		fmt.Fprintln(p.w, styleDim.Render("no versions recorded"))
		return
	}
	fmt.Fprintln(p.w, styleTitle.Render("version history"))
	for i, v := range versions {
		fmt.Fprintf(p.w, "  %s %-20s %-12s %s\n",
			styleHeader.Render(fmt.Sprintf("[%d]", i)),
			v.Timestamp.Format(time.DateTime),
			v.Author,
			v.Summary)
	}
}

// Tasks prints every task grouped under its owning feature.
func (p *Printer) Tasks(tasks []taskqueue.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(p.w, styleDim.Render("no tasks"))
		return
	}

	byFeature := make(map[string][]taskqueue.Task)
	var order []string
	for _, t := range tasks {
		if _, seen := byFeature[t.FeatureID]; !seen {
			order = append(order, t.FeatureID)
		}
		byFeature[t.FeatureID] = append(byFeature[t.FeatureID], t)
	}

	for _, fid := range order {
		fmt.Fprintln(p.w, styleHeader.Render(fid))
		for _, t := range byFeature[fid] {
			st := statusStyles[t.Status].Render(string(t.Status))
			fmt.Fprintf(p.w, "  %-36s %-12s %s\n", t.ID, st, t.Name)
		}
	}
}

// Event prints a one-line change notification, used in watch mode.
func (p *Printer) Event(ev specstore.ChangeEvent) {
	affected := strings.Join(ev.AffectedFeatureIDs, ", ")
	if affected == "" {
		affected = "(metadata)"
	}
	fmt.Fprintf(p.w, "%s %s %s %s\n",
		styleDim.Render(ev.Timestamp.Format(time.TimeOnly)),
		styleTitle.Render(string(ev.Type)),
		affected,
		styleDim.Render("by "+ev.Author))
}

func formatDuration(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}
