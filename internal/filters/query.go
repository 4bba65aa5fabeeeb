package filters

import (
	"net/url"
	"strconv"
)

// Query translates s into backend list query parameters. Boolean facets are
// sent only when explicitly "true" or "false"; thresholds only when positive.
// Paging parameters are added by the pager.
func (s State) Query() url.Values {
	q := url.Values{}
	if s.Search != "" {
		q.Set("search", s.Search)
	}
	if s.Status != "" {
		q.Set("status", s.Status)
	}
	if s.WorkLocationType != "" {
		q.Set("work_location_type", s.WorkLocationType)
	}
	setFacet(q, "is_easy_apply", s.IsEasyApply)
	setFacet(q, "is_favorite", s.IsFavorite)
	setFacet(q, "is_perfect_fit", s.IsPerfectFit)
	setFacet(q, "is_ai_forward", s.IsAiForward)
	setThreshold(q, "min_priority", s.MinPriority)
	setThreshold(q, "min_salary", s.MinSalary)
	setThreshold(q, "max_age_days", s.MaxAgeDays)

	sortBy, sortOrder := s.SortBy, s.SortOrder
	if sortBy == "" {
		sortBy = SortUpdatedAt
	}
	if sortOrder == "" {
		sortOrder = OrderDesc
	}
	q.Set("sort_by", sortBy)
	q.Set("sort_order", sortOrder)
	return q
}

func setFacet(q url.Values, key, value string) {
	if value == "true" || value == "false" {
		q.Set(key, value)
	}
}

func setThreshold(q url.Values, key string, value int) {
	if value > 0 {
		q.Set(key, strconv.Itoa(value))
	}
}
