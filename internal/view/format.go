package view

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jonathan/job-dashboard/internal/backend"
)

var printer = message.NewPrinter(language.AmericanEnglish)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"CAD": "CA$",
	"AUD": "A$",
}

// FormatMoney formats an amount with its currency symbol and no decimals.
// Currencies without a known symbol are prefixed with their code.
func FormatMoney(amount int, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := printer.Sprintf("%d", amount)
	if sym, ok := currencySymbols[currency]; ok {
		return sign + sym + digits
	}
	return sign + currency + " " + digits
}

// FormatSalary renders a salary range for the job table. Zero and nil bounds
// are treated as absent.
func FormatSalary(salaryMin, salaryMax *int, currency *string) string {
	cur := "USD"
	if currency != nil && *currency != "" {
		cur = *currency
	}
	lo, hi := 0, 0
	if salaryMin != nil {
		lo = *salaryMin
	}
	if salaryMax != nil {
		hi = *salaryMax
	}

	switch {
	case lo != 0 && hi != 0:
		if lo == hi {
			return FormatMoney(lo, cur)
		}
		return FormatMoney(lo, cur) + " - " + FormatMoney(hi, cur)
	case lo != 0:
		return FormatMoney(lo, cur) + "+"
	case hi != 0:
		return "Up to " + FormatMoney(hi, cur)
	default:
		return "-"
	}
}

var workLocationLabels = map[string]string{
	"remote":  "Remote",
	"hybrid":  "Hybrid",
	"on_site": "On-site",
}

// WorkLocationLabel returns the display label of a work location type.
func WorkLocationLabel(t *string) string {
	if t == nil || *t == "" {
		return "-"
	}
	if label, ok := workLocationLabels[*t]; ok {
		return label
	}
	return *t
}

// Option is a value/label pair for select inputs.
type Option struct {
	Value string
	Label string
}

// WorkLocationOptions lists the work location filter choices.
var WorkLocationOptions = []Option{
	{Value: "remote", Label: "Remote"},
	{Value: "hybrid", Label: "Hybrid"},
	{Value: "on_site", Label: "On-site"},
}

// RoleOptions lists the target roles.
var RoleOptions = []Option{
	{Value: "cto", Label: "CTO"},
	{Value: "vp", Label: "VP Engineering"},
	{Value: "director", Label: "Director"},
	{Value: "architect", Label: "Architect"},
	{Value: "developer", Label: "Developer"},
}

// RoleCodes are the accepted target_role values.
var RoleCodes = []string{"cto", "vp", "director", "architect", "developer"}

// RoleLabel returns the label of a target role, or the raw code.
func RoleLabel(role string) string {
	for _, o := range RoleOptions {
		if o.Value == role {
			return o.Label
		}
	}
	return role
}

// IngestSources lists the job board sources accepted by URL import.
var IngestSources = []Option{
	{Value: "", Label: "Auto-detect"},
	{Value: "linkedin", Label: "LinkedIn"},
	{Value: "indeed", Label: "Indeed"},
	{Value: "greenhouse", Label: "Greenhouse"},
	{Value: "lever", Label: "Lever"},
	{Value: "workday", Label: "Workday"},
}

// SortOptions lists the sortable columns with their labels.
var SortOptions = []Option{
	{Value: "updated_at", Label: "Last Updated"},
	{Value: "created_at", Label: "Date Added"},
	{Value: "priority", Label: "Priority"},
	{Value: "salary", Label: "Salary"},
	{Value: "title", Label: "Title"},
	{Value: "company", Label: "Company"},
}

// NextSort returns the sort after clicking a column header: the active
// descending column flips to ascending; anything else sorts descending.
func NextSort(currentField, currentOrder, clicked string) (field, order string) {
	if currentField == clicked && currentOrder == "desc" {
		return clicked, "asc"
	}
	return clicked, "desc"
}

// Stats are the summary card counts over a job list.
type Stats struct {
	Total        int
	Applied      int
	Interviewing int
	Rejected     int
}

// StatsCard is one rendered summary card.
type StatsCard struct {
	Label string
	Value int
	Icon  string
	Color string
}

// ComputeStats counts jobs by status.
func ComputeStats(jobs []backend.Job) Stats {
	s := Stats{Total: len(jobs)}
	for _, job := range jobs {
		switch job.Status {
		case backend.StatusApplied:
			s.Applied++
		case backend.StatusInterviewing:
			s.Interviewing++
		case backend.StatusRejected:
			s.Rejected++
		}
	}
	return s
}

// Cards returns the summary cards in display order.
func (s Stats) Cards() []StatsCard {
	return []StatsCard{
		{Label: "Total Jobs", Value: s.Total, Icon: "briefcase", Color: "blue"},
		{Label: "Applied", Value: s.Applied, Icon: "check-circle", Color: "green"},
		{Label: "Interviewing", Value: s.Interviewing, Icon: "clock", Color: "yellow"},
		{Label: "Rejected", Value: s.Rejected, Icon: "x-circle", Color: "red"},
	}
}
