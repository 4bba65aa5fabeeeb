package view

import "github.com/jonathan/job-dashboard/internal/backend"

// Flag keys as sent in PATCH bodies.
const (
	FlagFavorite   = "is_favorite"
	FlagPerfectFit = "is_perfect_fit"
	FlagAIForward  = "is_ai_forward"
	FlagEasyApply  = "is_easy_apply"
)

// FlagToggle is one rendered flag button.
type FlagToggle struct {
	Key    string
	Label  string
	Icon   string
	Color  string
	Active bool
}

// JobFlags returns the four flag toggles of a job in display order.
func JobFlags(job backend.Job) []FlagToggle {
	return []FlagToggle{
		{Key: FlagFavorite, Label: "Favorite", Icon: "heart", Color: "red", Active: job.IsFavorite},
		{Key: FlagPerfectFit, Label: "Perfect Fit", Icon: "target", Color: "purple", Active: job.IsPerfectFit},
		{Key: FlagAIForward, Label: "AI Forward", Icon: "sparkles", Color: "cyan", Active: job.IsAIForward},
		{Key: FlagEasyApply, Label: "Easy Apply", Icon: "zap", Color: "green", Active: job.IsEasyApply},
	}
}

// IsFlag reports whether key names a job flag.
func IsFlag(key string) bool {
	switch key {
	case FlagFavorite, FlagPerfectFit, FlagAIForward, FlagEasyApply:
		return true
	}
	return false
}

// ToggleBody is the PATCH body that flips a flag.
func ToggleBody(key string, current bool) map[string]bool {
	return map[string]bool{key: !current}
}
