// Package filters owns the persisted filter, sort and status selection of the
// job list view. State survives reloads through the job_filters cookie and is
// translated into the backend list query.
package filters

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/jonathan/job-dashboard/internal/backend"
)

// DefaultStatuses is every pipeline stage except applied and rejected.
const DefaultStatuses = "saved,researching,ready_to_apply,applying,interviewing,offer,withdrawn,archived"

// Sort fields accepted by the backend.
const (
	SortUpdatedAt = "updated_at"
	SortCreatedAt = "created_at"
	SortPriority  = "priority"
	SortSalary    = "salary"
	SortTitle     = "title"
	SortCompany   = "company"
)

// SortFields lists the sortable columns.
var SortFields = []string{SortUpdatedAt, SortCreatedAt, SortPriority, SortSalary, SortTitle, SortCompany}

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Work location types.
const (
	LocationRemote = "remote"
	LocationHybrid = "hybrid"
	LocationOnSite = "on_site"
)

// Field names, matching the JSON keys of the persisted payload.
const (
	FieldSearch           = "search"
	FieldStatus           = "status"
	FieldWorkLocationType = "workLocationType"
	FieldIsEasyApply      = "isEasyApply"
	FieldIsFavorite       = "isFavorite"
	FieldIsPerfectFit     = "isPerfectFit"
	FieldIsAiForward      = "isAiForward"
	FieldMinPriority      = "minPriority"
	FieldMinSalary        = "minSalary"
	FieldMaxAgeDays       = "maxAgeDays"
	FieldSortBy           = "sortBy"
	FieldSortOrder        = "sortOrder"
)

// ErrUnknownField is returned when updating a field that does not exist.
var ErrUnknownField = errors.New("unknown filter field")

// ErrInvalidValue is returned when a value does not fit its field.
var ErrInvalidValue = errors.New("invalid filter value")

// State is the filter configuration of the job list.
//
// Boolean facets are tri-state strings: "" (any), "true" or "false".
// Numeric facets are thresholds where 0 means no constraint.
type State struct {
	Search           string `json:"search"`
	Status           string `json:"status"`
	WorkLocationType string `json:"workLocationType"`
	IsEasyApply      string `json:"isEasyApply"`
	IsFavorite       string `json:"isFavorite"`
	IsPerfectFit     string `json:"isPerfectFit"`
	IsAiForward      string `json:"isAiForward"`
	MinPriority      int    `json:"minPriority"`
	MinSalary        int    `json:"minSalary"`
	MaxAgeDays       int    `json:"maxAgeDays"`
	SortBy           string `json:"sortBy"`
	SortOrder        string `json:"sortOrder"`
}

// Defaults returns the configuration used when nothing valid is persisted.
func Defaults() State {
	return State{
		Status:    DefaultStatuses,
		SortBy:    SortUpdatedAt,
		SortOrder: OrderDesc,
	}
}

// Load decodes a persisted payload (URL-encoded JSON) and merges it over the
// defaults. Absent, undecodable, unparsable or schema-invalid payloads yield
// the defaults. Load never fails.
func Load(raw string) State {
	if raw == "" {
		return Defaults()
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return Defaults()
	}
	if err := validatePayload([]byte(decoded)); err != nil {
		return Defaults()
	}

	s := Defaults()
	if err := json.Unmarshal([]byte(decoded), &s); err != nil {
		return Defaults()
	}
	return s
}

// Encode serializes s for persistence.
func (s State) Encode() string {
	data, err := json.Marshal(s)
	if err != nil {
		// State holds only strings and ints.
		return ""
	}
	return url.QueryEscape(string(data))
}

// Set returns a copy of s with exactly one field replaced. value is the form
// representation: integers for thresholds, "" / "true" / "false" for boolean
// facets. On error s is returned unchanged.
func (s State) Set(field, value string) (State, error) {
	next := s
	switch field {
	case FieldSearch:
		next.Search = value
	case FieldStatus:
		status, err := normalizeStatus(value)
		if err != nil {
			return s, err
		}
		next.Status = status
	case FieldWorkLocationType:
		if !oneOf(value, "", LocationRemote, LocationHybrid, LocationOnSite) {
			return s, errors.Wrapf(ErrInvalidValue, "%s=%q", field, value)
		}
		next.WorkLocationType = value
	case FieldIsEasyApply, FieldIsFavorite, FieldIsPerfectFit, FieldIsAiForward:
		if !oneOf(value, "", "true", "false") {
			return s, errors.Wrapf(ErrInvalidValue, "%s=%q", field, value)
		}
		*next.facet(field) = value
	case FieldMinPriority, FieldMinSalary, FieldMaxAgeDays:
		n, err := parseThreshold(value)
		if err != nil {
			return s, errors.Wrapf(ErrInvalidValue, "%s=%q", field, value)
		}
		if field == FieldMinPriority && n > 100 {
			return s, errors.Wrapf(ErrInvalidValue, "%s=%q", field, value)
		}
		*next.threshold(field) = n
	case FieldSortBy:
		if !oneOf(value, SortFields...) {
			return s, errors.Wrapf(ErrInvalidValue, "%s=%q", field, value)
		}
		next.SortBy = value
	case FieldSortOrder:
		if !oneOf(value, OrderAsc, OrderDesc) {
			return s, errors.Wrapf(ErrInvalidValue, "%s=%q", field, value)
		}
		next.SortOrder = value
	default:
		return s, errors.Wrapf(ErrUnknownField, "%q", field)
	}
	return next, nil
}

// Clear resets every field to its default but keeps the sort preference.
func (s State) Clear() State {
	next := Defaults()
	next.SortBy = s.SortBy
	next.SortOrder = s.SortOrder
	return next
}

// ToggleStatus adds code to the status set if absent and removes it if
// present. The result keeps pipeline order.
func (s State) ToggleStatus(code string) (State, error) {
	if !backend.IsPipelineStatus(code) {
		return s, errors.Wrapf(ErrInvalidValue, "status %q", code)
	}
	selected := s.StatusSet()
	selected[code] = !selected[code]

	next := s
	next.Status = joinStatuses(selected)
	return next, nil
}

// StatusSet returns the selected status codes as a set.
func (s State) StatusSet() map[string]bool {
	set := make(map[string]bool)
	for _, code := range strings.Split(s.Status, ",") {
		if code = strings.TrimSpace(code); code != "" {
			set[code] = true
		}
	}
	return set
}

// HasStatus reports whether code is selected.
func (s State) HasStatus(code string) bool {
	return s.StatusSet()[code]
}

// ActiveCount returns how many facets differ from their defaults. The sort
// preference is not counted.
func (s State) ActiveCount() int {
	d := Defaults()
	n := 0
	for _, changed := range []bool{
		s.Search != d.Search,
		s.Status != d.Status,
		s.WorkLocationType != "",
		s.IsEasyApply != "",
		s.IsFavorite != "",
		s.IsPerfectFit != "",
		s.IsAiForward != "",
		s.MinPriority > 0,
		s.MinSalary > 0,
		s.MaxAgeDays > 0,
	} {
		if changed {
			n++
		}
	}
	return n
}

func (s *State) facet(field string) *string {
	switch field {
	case FieldIsEasyApply:
		return &s.IsEasyApply
	case FieldIsFavorite:
		return &s.IsFavorite
	case FieldIsPerfectFit:
		return &s.IsPerfectFit
	default:
		return &s.IsAiForward
	}
}

func (s *State) threshold(field string) *int {
	switch field {
	case FieldMinPriority:
		return &s.MinPriority
	case FieldMinSalary:
		return &s.MinSalary
	default:
		return &s.MaxAgeDays
	}
}

func normalizeStatus(value string) (string, error) {
	set := make(map[string]bool)
	for _, code := range strings.Split(value, ",") {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if !backend.IsPipelineStatus(code) {
			return "", errors.Wrapf(ErrInvalidValue, "status %q", code)
		}
		set[code] = true
	}
	return joinStatuses(set), nil
}

// joinStatuses renders the selected codes in pipeline order. Codes the
// pipeline does not know are kept after the known ones, sorted.
func joinStatuses(set map[string]bool) string {
	codes := make([]string, 0, len(set))
	for _, code := range backend.PipelineStatuses {
		if set[code] {
			codes = append(codes, code)
		}
	}
	var unknown []string
	for code, on := range set {
		if on && !backend.IsPipelineStatus(code) {
			unknown = append(unknown, code)
		}
	}
	sort.Strings(unknown)
	return strings.Join(append(codes, unknown...), ",")
}

func parseThreshold(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Newf("negative threshold %d", n)
	}
	return n, nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
