// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/job-dashboard/internal/backend"
	"github.com/jonathan/job-dashboard/internal/view"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintJob outputs a human-readable summary of one job and its contacts.
func (p *Printer) PrintJob(job *backend.Job, contacts []backend.Contact) {
	if job == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Title:    %s\n", job.Title))
	sb.WriteString(fmt.Sprintf("Company:  %s\n", job.Company))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", view.StatusBadge(job.Status).Label))
	sb.WriteString(fmt.Sprintf("Priority: %d (%s)\n", job.Priority, view.Tier(job.Priority).Label))
	if salary := view.FormatSalary(job.SalaryMin, job.SalaryMax, job.SalaryCurrency); salary != "-" {
		sb.WriteString(fmt.Sprintf("Salary:   %s\n", salary))
	}
	if job.Location != nil && *job.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", *job.Location))
	}

	var flags []string
	for _, f := range view.JobFlags(*job) {
		if f.Active {
			flags = append(flags, f.Label)
		}
	}
	if len(flags) > 0 {
		sb.WriteString(fmt.Sprintf("Flags:    %s\n", strings.Join(flags, ", ")))
	}

	for _, d := range []struct{ kind, heading string }{
		{view.DeclineUser, "Passed because"},
		{view.DeclineCompany, "Declined by company"},
	} {
		reasons := view.DeclineReasonsOf(*job, d.kind)
		if len(reasons) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n%s:\n", d.heading))
		p.writeList(&sb, reasons)
	}

	if sections := view.AnalysisSections(job.Notes); len(sections) > 0 {
		names := make([]string, 0, len(sections))
		for _, s := range sections {
			names = append(names, fmt.Sprintf("%s (%d)", s.Config.Label, len(s.Notes)))
		}
		sb.WriteString("\nAnalysis:\n")
		p.writeList(&sb, names)
	}

	if len(contacts) > 0 {
		names := make([]string, 0, len(contacts))
		for _, c := range contacts {
			name := c.Name
			if c.Title != nil && *c.Title != "" {
				name += ", " + *c.Title
			}
			names = append(names, name)
		}
		sb.WriteString("\nContacts:\n")
		p.writeList(&sb, names)
	}

	p.printBox("JOB "+job.ID, strings.TrimSuffix(sb.String(), "\n"))
}

// writeList writes up to maxItemsToShow bullet lines, then a remainder count.
func (p *Printer) writeList(sb *strings.Builder, items []string) {
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}

// PrintStats outputs the summary card counts of a loaded job list.
func (p *Printer) PrintStats(stats view.Stats) {
	var sb strings.Builder
	for _, card := range stats.Cards() {
		sb.WriteString(fmt.Sprintf("%-14s %d\n", card.Label+":", card.Value))
	}
	p.printBox("SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}
