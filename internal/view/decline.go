package view

import "github.com/jonathan/job-dashboard/internal/backend"

// Decline types.
const (
	DeclineUser    = "user"
	DeclineCompany = "company"
)

// DeclineTitle returns the picker heading for a decline type.
func DeclineTitle(declineType string) string {
	if declineType == DeclineCompany {
		return "Why did they decline?"
	}
	return "Why did you pass?"
}

// ToggleReason adds code to selected if absent and removes it if present.
// The input slice is not modified.
func ToggleReason(selected []string, code string) []string {
	out := make([]string, 0, len(selected)+1)
	found := false
	for _, s := range selected {
		if s == code {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, code)
	}
	return out
}

// DeclinePicker is the rendered decline reason picker.
type DeclinePicker struct {
	Type       string
	Title      string
	Categories []DeclineCategoryView
	Selected   []SelectedReason
}

// DeclineCategoryView is a category with its selection state.
type DeclineCategoryView struct {
	Name          string
	DisplayName   string
	Expanded      bool
	SelectedCount int
	Reasons       []DeclineReasonView
}

// DeclineReasonView is a selectable reason.
type DeclineReasonView struct {
	backend.DeclineReason
	Selected bool
}

// SelectedReason is a chip for a selected reason. Codes missing from the
// catalog show the raw code.
type SelectedReason struct {
	Code  string
	Label string
}

// BuildDeclinePicker combines a reason catalog with the selected codes.
// Categories holding a selected reason are expanded, as are categories named
// in expanded.
func BuildDeclinePicker(declineType string, catalog *backend.DeclineReasons, selected []string, expanded map[string]bool) DeclinePicker {
	p := DeclinePicker{Type: declineType, Title: DeclineTitle(declineType)}
	isSelected := make(map[string]bool, len(selected))
	for _, code := range selected {
		isSelected[code] = true
	}

	labels := make(map[string]string)
	if catalog != nil {
		for _, c := range catalog.Categories {
			cv := DeclineCategoryView{Name: c.Name, DisplayName: c.DisplayName, Expanded: expanded[c.Name]}
			for _, r := range c.Reasons {
				labels[r.Code] = r.DisplayName
				sel := isSelected[r.Code]
				if sel {
					cv.SelectedCount++
				}
				cv.Reasons = append(cv.Reasons, DeclineReasonView{DeclineReason: r, Selected: sel})
			}
			if cv.SelectedCount > 0 {
				cv.Expanded = true
			}
			p.Categories = append(p.Categories, cv)
		}
	}

	for _, code := range selected {
		label := labels[code]
		if label == "" {
			label = code
		}
		p.Selected = append(p.Selected, SelectedReason{Code: code, Label: label})
	}
	return p
}

// DeclineField returns the job field holding reasons of a decline type.
func DeclineField(declineType string) string {
	if declineType == DeclineCompany {
		return "company_decline_reasons"
	}
	return "user_decline_reasons"
}

// DeclineReasonsOf returns the selected reasons of a job for a decline type.
func DeclineReasonsOf(job backend.Job, declineType string) []string {
	if declineType == DeclineCompany {
		return job.CompanyDeclineReasons
	}
	return job.UserDeclineReasons
}
