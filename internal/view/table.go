package view

import (
	"time"

	"github.com/jonathan/job-dashboard/internal/backend"
)

// JobRow is one rendered row of the job table.
type JobRow struct {
	ID           string
	Title        string
	Company      string
	Location     string
	LocationType string
	Badge        Badge
	Salary       string
	Priority     TableLabel
	PriorityNum  int
	ContactCount int
	Updated      string
	Favorite     bool
	PerfectFit   bool
	AIForward    bool
	EasyApply    bool
}

// JobRows builds table rows for jobs.
func JobRows(jobs []backend.Job) []JobRow {
	rows := make([]JobRow, 0, len(jobs))
	for _, j := range jobs {
		loc := ""
		if j.Location != nil {
			loc = *j.Location
		}
		rows = append(rows, JobRow{
			ID:           j.ID,
			Title:        j.Title,
			Company:      j.Company,
			Location:     loc,
			LocationType: WorkLocationLabel(j.WorkLocationType),
			Badge:        StatusBadge(j.Status),
			Salary:       FormatSalary(j.SalaryMin, j.SalaryMax, j.SalaryCurrency),
			Priority:     PriorityLabel(j.Priority),
			PriorityNum:  j.Priority,
			ContactCount: j.ContactCount,
			Updated:      FormatDate(j.UpdatedAt),
			Favorite:     j.IsFavorite,
			PerfectFit:   j.IsPerfectFit,
			AIForward:    j.IsAIForward,
			EasyApply:    j.IsEasyApply,
		})
	}
	return rows
}

// FormatDate renders a timestamp as a short date, or "-" when unset.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006")
}
