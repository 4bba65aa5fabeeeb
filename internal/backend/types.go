package backend

import "time"

// Pipeline stage codes in display order.
const (
	StatusSaved        = "saved"
	StatusResearching  = "researching"
	StatusReadyToApply = "ready_to_apply"
	StatusApplying     = "applying"
	StatusApplied      = "applied"
	StatusInterviewing = "interviewing"
	StatusOffer        = "offer"
	StatusRejected     = "rejected"
	StatusWithdrawn    = "withdrawn"
	StatusArchived     = "archived"
)

// PipelineStatuses lists every pipeline stage in pipeline order.
var PipelineStatuses = []string{
	StatusSaved,
	StatusResearching,
	StatusReadyToApply,
	StatusApplying,
	StatusApplied,
	StatusInterviewing,
	StatusOffer,
	StatusRejected,
	StatusWithdrawn,
	StatusArchived,
}

// IsPipelineStatus reports whether code is a known pipeline stage.
func IsPipelineStatus(code string) bool {
	for _, s := range PipelineStatuses {
		if s == code {
			return true
		}
	}
	return false
}

// Note sources.
const (
	NoteSourceUser  = "user"
	NoteSourceAgent = "agent"
)

// Job is a tracked job posting as returned by the backend.
type Job struct {
	ID                    string      `json:"id"`
	Title                 string      `json:"title"`
	Company               string      `json:"company"`
	Location              *string     `json:"location"`
	WorkLocationType      *string     `json:"work_location_type"`
	EmploymentType        *string     `json:"employment_type"`
	URL                   *string     `json:"url"`
	DescriptionRaw        *string     `json:"description_raw"`
	Status                string      `json:"status"`
	TargetRole            *string     `json:"target_role"`
	Priority              int         `json:"priority"`
	SalaryMin             *int        `json:"salary_min"`
	SalaryMax             *int        `json:"salary_max"`
	SalaryCurrency        *string     `json:"salary_currency"`
	IsFavorite            bool        `json:"is_favorite"`
	IsPerfectFit          bool        `json:"is_perfect_fit"`
	IsAIForward           bool        `json:"is_ai_forward"`
	IsEasyApply           bool        `json:"is_easy_apply"`
	IsLocationCompatible  *bool       `json:"is_location_compatible"`
	UserDeclineReasons    []string    `json:"user_decline_reasons"`
	CompanyDeclineReasons []string    `json:"company_decline_reasons"`
	DeclineNotes          *string     `json:"decline_notes"`
	Tags                  []string    `json:"tags"`
	Notes                 []NoteEntry `json:"notes"`
	ContactCount          int         `json:"contact_count"`
	PostedAt              *time.Time  `json:"posted_at"`
	AppliedAt             *time.Time  `json:"applied_at"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// NoteEntry is a single entry in a job's append-only note feed.
type NoteEntry struct {
	Text      string         `json:"text"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	NoteType  string         `json:"note_type,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Contact is a person associated with a job.
type Contact struct {
	ID          string     `json:"id"`
	JobID       string     `json:"job_id"`
	Name        string     `json:"name"`
	Title       *string    `json:"title"`
	Email       *string    `json:"email"`
	LinkedInURL *string    `json:"linkedin_url"`
	ContactType string     `json:"contact_type"`
	IsJobPoster bool       `json:"is_job_poster"`
	Notes       *string    `json:"notes"`
	ContactedAt *time.Time `json:"contacted_at"`
}

// CoverLetter is a generated cover letter draft.
type CoverLetter struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	TargetRole string    `json:"target_role"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}

// JobList is one page of the job listing.
type JobList struct {
	Items      []Job `json:"items"`
	Total      int   `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// RoleScore is a role-fit score produced by analysis.
type RoleScore struct {
	Role  string `json:"role"`
	Score int    `json:"score"`
	Label string `json:"label"`
}

// AnalysisResult is the response of an analyze call. Fields other than
// role_scores are kept verbatim in Extra.
type AnalysisResult struct {
	RoleScores []RoleScore     `json:"role_scores"`
	Extra      map[string]any `json:"-"`
}

// DeclineReason is one selectable reason in the decline picker.
type DeclineReason struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// DeclineCategory groups decline reasons.
type DeclineCategory struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	Reasons     []DeclineReason `json:"reasons"`
}

// DeclineReasons is the catalog returned for one decline type.
type DeclineReasons struct {
	Categories []DeclineCategory `json:"categories"`
}
