// Package view holds the presentation logic of the dashboard: labels, colors,
// grouping and click semantics for the rendered components. Everything here
// is pure and is exercised by the HTML templates.
package view

import "github.com/jonathan/job-dashboard/internal/backend"

// Badge is the rendered label and color of a status.
type Badge struct {
	Code  string
	Label string
	Color string
}

var statusColors = map[string]string{
	backend.StatusSaved:        "blue",
	backend.StatusResearching:  "purple",
	backend.StatusReadyToApply: "cyan",
	backend.StatusApplying:     "yellow",
	backend.StatusApplied:      "green",
	backend.StatusInterviewing: "emerald",
	backend.StatusOffer:        "pink",
	backend.StatusRejected:     "red",
	backend.StatusWithdrawn:    "orange",
	backend.StatusArchived:     "gray",
}

var statusLabels = map[string]string{
	backend.StatusSaved:        "Saved",
	backend.StatusResearching:  "Researching",
	backend.StatusReadyToApply: "Ready to Apply",
	backend.StatusApplying:     "Applying",
	backend.StatusApplied:      "Applied",
	backend.StatusInterviewing: "Interviewing",
	backend.StatusOffer:        "Offer",
	backend.StatusRejected:     "Rejected",
	backend.StatusWithdrawn:    "Withdrawn",
	backend.StatusArchived:     "Archived",
}

// StatusBadge returns the badge for a status. Unknown codes keep the raw
// code as label and use the saved color.
func StatusBadge(code string) Badge {
	color, ok := statusColors[code]
	if !ok {
		color = statusColors[backend.StatusSaved]
	}
	label, ok := statusLabels[code]
	if !ok {
		label = code
	}
	return Badge{Code: code, Label: label, Color: color}
}

// StatusTitle returns the display label of a status.
func StatusTitle(code string) string {
	return StatusBadge(code).Label
}

// StatusOptions returns a badge for every pipeline stage, in pipeline order.
func StatusOptions() []Badge {
	out := make([]Badge, 0, len(backend.PipelineStatuses))
	for _, code := range backend.PipelineStatuses {
		out = append(out, StatusBadge(code))
	}
	return out
}

// PipelineGroup is one row of the status pipeline control.
type PipelineGroup struct {
	Label      string
	Statuses   []string
	CanUncheck bool
}

// PipelineGroups is the layout of the status pipeline control. Archived is
// rendered on its own, separated from the other groups.
var PipelineGroups = []PipelineGroup{
	{Label: "Pre-Apply", Statuses: []string{backend.StatusSaved, backend.StatusResearching, backend.StatusReadyToApply, backend.StatusApplying}},
	{Label: "Post-Apply", Statuses: []string{backend.StatusApplied, backend.StatusInterviewing}, CanUncheck: true},
	{Label: "Outcomes", Statuses: []string{backend.StatusOffer, backend.StatusRejected, backend.StatusWithdrawn}, CanUncheck: true},
	{Label: "Archived", Statuses: []string{backend.StatusArchived}, CanUncheck: true},
}

// pipelineButtonLabels shortens Ready to Apply on the pipeline control.
var pipelineButtonLabels = map[string]string{
	backend.StatusReadyToApply: "Ready",
}

// PipelineButton is one rendered status button.
type PipelineButton struct {
	Badge
	Active     bool
	CanUncheck bool
	// Next is the status a click submits; empty means the click does nothing.
	Next string
}

// PipelineView is the status pipeline for one job.
type PipelineView struct {
	Groups []PipelineGroupView
}

// PipelineGroupView is a group with its rendered buttons.
type PipelineGroupView struct {
	Label     string
	Separated bool
	Buttons   []PipelineButton
}

// StatusPipeline builds the pipeline control for a job in status current.
func StatusPipeline(current string) PipelineView {
	var v PipelineView
	for _, g := range PipelineGroups {
		gv := PipelineGroupView{Label: g.Label, Separated: g.Label == "Archived"}
		for _, code := range g.Statuses {
			b := StatusBadge(code)
			if short, ok := pipelineButtonLabels[code]; ok {
				b.Label = short
			}
			next, _ := NextStatus(current, code)
			gv.Buttons = append(gv.Buttons, PipelineButton{
				Badge:      b,
				Active:     current == code,
				CanUncheck: g.CanUncheck,
				Next:       next,
			})
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}

// NextStatus applies the pipeline click semantics. Clicking an inactive
// status selects it. Clicking the active status reverts to saved when its
// group allows unchecking and does nothing otherwise. changed is false when
// the click is a no-op.
func NextStatus(current, clicked string) (next string, changed bool) {
	if current != clicked {
		return clicked, true
	}
	for _, g := range PipelineGroups {
		for _, code := range g.Statuses {
			if code == clicked && g.CanUncheck {
				return backend.StatusSaved, true
			}
		}
	}
	return "", false
}
