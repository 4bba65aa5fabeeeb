package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-dashboard/internal/backend"
	"github.com/jonathan/job-dashboard/internal/filters"
	"github.com/jonathan/job-dashboard/internal/listing"
	"github.com/jonathan/job-dashboard/internal/logger"
	"github.com/jonathan/job-dashboard/internal/server/middleware"
	"github.com/jonathan/job-dashboard/internal/view"
)

// HasMoreHeader tells the load-more script whether another page exists.
const HasMoreHeader = "X-Has-More"

// ---------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------

type statusFilter struct {
	view.Badge
	Checked bool
}

type facetFilter struct {
	Field string
	Label string
	Value string
}

// tableColumn is a job table header. Field is empty for unsortable columns.
type tableColumn struct {
	Label  string
	Field  string
	Active bool
	Order  string
}

var jobTableColumns = []tableColumn{
	{Label: "Title", Field: filters.SortTitle},
	{Label: "Company", Field: filters.SortCompany},
	{Label: "Location"},
	{Label: "Status"},
	{Label: "Salary", Field: filters.SortSalary},
	{Label: "Priority", Field: filters.SortPriority},
	{Label: "Contacts"},
	{Label: "Updated", Field: filters.SortUpdatedAt},
}

// dashboardView is the data of the dashboard page and its list partials.
type dashboardView struct {
	Ready         bool
	Filters       filters.State
	ActiveCount   int
	Statuses      []statusFilter
	Facets        []facetFilter
	WorkLocations []view.Option
	SortOptions   []view.Option
	Columns       []tableColumn
	Stats         []view.StatsCard
	Rows          []view.JobRow
	Total         int
	HasMore       bool
	Loading       bool
	Error         string
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, middleware.HomePath, http.StatusSeeOther)
}

// handleDashboard renders the job list. A changed filter query starts over
// at page 1; an unchanged one revalidates every loaded page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	store := filters.NewStore(s.cfg.IsProduction())
	st := store.Init(r)

	sess, err := s.sessions.Get(w, r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	pager := sess.Pager
	if pager.SetQuery(st.Query()) || pager.Pages() == 0 {
		_, err = pager.LoadMore(r.Context())
	} else {
		err = pager.Refresh(r.Context())
	}
	if s.redirectIfUnauthorized(w, r, err) {
		return
	}

	s.render(w, r, http.StatusOK, "dashboard", "", s.page("Dashboard", "dashboard", s.dashboardData(store, pager)))
}

func (s *Server) dashboardData(store *filters.Store, pager *listing.Pager) dashboardView {
	st := store.State()
	d := dashboardView{
		Ready:         store.Ready(),
		Filters:       st,
		ActiveCount:   st.ActiveCount(),
		WorkLocations: view.WorkLocationOptions,
		Facets: []facetFilter{
			{Field: filters.FieldIsFavorite, Label: "Favorite", Value: st.IsFavorite},
			{Field: filters.FieldIsPerfectFit, Label: "Perfect Fit", Value: st.IsPerfectFit},
			{Field: filters.FieldIsAiForward, Label: "AI Forward", Value: st.IsAiForward},
			{Field: filters.FieldIsEasyApply, Label: "Easy Apply", Value: st.IsEasyApply},
		},
	}
	for _, b := range view.StatusOptions() {
		d.Statuses = append(d.Statuses, statusFilter{Badge: b, Checked: st.HasStatus(b.Code)})
	}
	d.SortOptions = view.SortOptions
	for _, c := range jobTableColumns {
		c.Active = c.Field != "" && c.Field == st.SortBy
		c.Order = st.SortOrder
		d.Columns = append(d.Columns, c)
	}

	items := pager.Items()
	d.Stats = view.ComputeStats(items).Cards()
	d.Rows = view.JobRows(items)
	d.Total = pager.Total()
	d.HasMore = pager.HasMore()
	d.Loading = pager.Loading()
	if err := pager.Err(); err != nil {
		d.Error = "Failed to load jobs"
	}
	return d
}

// handleLoadMore fetches the next page and renders only its rows.
func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(w, r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	page, err := sess.Pager.LoadMore(r.Context())
	switch {
	case errors.Is(err, listing.ErrNoMorePages), errors.Is(err, listing.ErrSuperseded):
		w.Header().Set(HasMoreHeader, strconv.FormatBool(sess.Pager.HasMore()))
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, listing.ErrInFlight):
		w.WriteHeader(http.StatusConflict)
		return
	case backend.IsUnauthorized(err):
		w.Header().Set(LoginRedirectHeader, middleware.LoginRedirect(middleware.HomePath))
		w.WriteHeader(http.StatusUnauthorized)
		return
	case err != nil:
		w.Header().Set(HasMoreHeader, "true")
		s.render(w, r, http.StatusBadGateway, "dashboard", "list_error", dashboardView{Error: "Failed to load more jobs"})
		return
	}

	w.Header().Set(HasMoreHeader, strconv.FormatBool(sess.Pager.HasMore()))
	s.render(w, r, http.StatusOK, "dashboard", "job_rows", dashboardView{Rows: view.JobRows(page.Items)})
}

// handleRefresh revalidates every loaded page and renders the list.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	store := filters.NewStore(s.cfg.IsProduction())
	store.Init(r)

	sess, err := s.sessions.Get(w, r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	err = sess.Pager.Refresh(r.Context())
	if backend.IsUnauthorized(err) {
		w.Header().Set(LoginRedirectHeader, middleware.LoginRedirect(middleware.HomePath))
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard", "job_list", s.dashboardData(store, sess.Pager))
}

func (s *Server) handleUpdateFilter(w http.ResponseWriter, r *http.Request) {
	s.mutateFilters(w, r, func(store *filters.Store) error {
		_, err := store.Update(r.PostFormValue("field"), r.PostFormValue("value"))
		return err
	})
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	s.mutateFilters(w, r, func(store *filters.Store) error {
		_, err := store.Clear()
		return err
	})
}

func (s *Server) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	s.mutateFilters(w, r, func(store *filters.Store) error {
		_, err := store.ToggleStatus(r.PostFormValue("status"))
		return err
	})
}

// handleSort applies a column header click.
func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	s.mutateFilters(w, r, func(store *filters.Store) error {
		st := store.State()
		field, order := view.NextSort(st.SortBy, st.SortOrder, r.PostFormValue("field"))
		if _, err := store.Update(filters.FieldSortBy, field); err != nil {
			return err
		}
		_, err := store.Update(filters.FieldSortOrder, order)
		return err
	})
}

// mutateFilters applies fn to the cookie-backed filter state, writes the
// cookie back and returns to the dashboard.
func (s *Server) mutateFilters(w http.ResponseWriter, r *http.Request, fn func(*filters.Store) error) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	store := filters.NewStore(s.cfg.IsProduction())
	store.Init(r)
	if err := fn(store); err != nil {
		http.Error(w, err.Error(), HTTPStatus(err))
		return
	}
	store.Persist(w)
	http.Redirect(w, r, middleware.HomePath, http.StatusSeeOther)
}

// ---------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------

type searchView struct {
	Query    string
	Searched bool
	Rows     []view.JobRow
	Error    string
}

func (s *Server) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	d := searchView{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	if d.Query != "" {
		d.Searched = true
		list, err := s.backend.ListJobs(r.Context(), middleware.Token(r.Context()), url.Values{"search": {d.Query}})
		if s.redirectIfUnauthorized(w, r, err) {
			return
		}
		if err != nil {
			logger.FromContext(r.Context()).Errorw("search failed", logger.FieldError, err)
			d.Error = "Search failed"
		} else {
			d.Rows = view.JobRows(list.Items)
		}
	}
	s.render(w, r, http.StatusOK, "search", "", s.page("Search Jobs", "search", d))
}

// ---------------------------------------------------------------------
// New job
// ---------------------------------------------------------------------

// CreateJobRequest is the manual job form.
type CreateJobRequest struct {
	Title          string  `json:"title" validate:"required,max=500"`
	Company        string  `json:"company" validate:"required,max=500"`
	Location       *string `json:"location"`
	URL            *string `json:"url" validate:"omitempty,url"`
	DescriptionRaw *string `json:"description_raw"`
	TargetRole     *string `json:"target_role" validate:"omitempty,oneof=cto vp director architect developer"`
	Priority       int     `json:"priority" validate:"gte=0,lte=100"`
	Notes          *string `json:"notes"`
}

// DefaultJobPriority is the priority of a manually created job.
const DefaultJobPriority = 50

type newJobView struct {
	Form    CreateJobRequest
	Ingest  IngestJobRequest
	Roles   []view.Option
	Sources []view.Option
	Error   string
}

func (s *Server) newJobData() newJobView {
	return newJobView{
		Form:    CreateJobRequest{Priority: DefaultJobPriority},
		Roles:   view.RoleOptions,
		Sources: view.IngestSources,
	}
}

func (s *Server) handleNewJobPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "new_job", "", s.page("Add Job", "new", s.newJobData()))
}

// handleNewJobSubmit creates a job from the manual form or imports one from
// a URL, then opens its page.
func (s *Server) handleNewJobSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	d := s.newJobData()
	key := middleware.Token(r.Context())

	var job *backend.Job
	var err error
	action := "create job"
	if r.PostFormValue("mode") == "ingest" {
		action = "import job"
		d.Ingest = IngestJobRequest{
			URL:    strings.TrimSpace(r.PostFormValue("url")),
			Source: optional(r.PostFormValue("source")),
			Notes:  optional(r.PostFormValue("notes")),
		}
		if verr := s.validate.Struct(d.Ingest); verr != nil {
			err = validationError(verr)
		} else {
			job, err = s.backend.IngestJob(r.Context(), key, d.Ingest)
		}
	} else {
		d.Form, err = s.parseJobForm(r)
		if err == nil {
			job, err = s.backend.CreateJob(r.Context(), key, d.Form)
		}
	}

	if s.redirectIfUnauthorized(w, r, err) {
		return
	}
	if err == nil && job.ID == "" {
		err = errors.New("backend returned a job without id")
	}
	if err != nil {
		d.Error = formError(err, action)
		status := HTTPStatus(err)
		if status < 400 || status == http.StatusUnauthorized {
			status = http.StatusInternalServerError
		}
		s.render(w, r, status, "new_job", "", s.page("Add Job", "new", d))
		return
	}
	http.Redirect(w, r, "/dashboard/jobs/"+url.PathEscape(job.ID), http.StatusSeeOther)
}

func (s *Server) parseJobForm(r *http.Request) (CreateJobRequest, error) {
	req := CreateJobRequest{
		Title:          strings.TrimSpace(r.PostFormValue("title")),
		Company:        strings.TrimSpace(r.PostFormValue("company")),
		Location:       optional(r.PostFormValue("location")),
		URL:            optional(r.PostFormValue("url")),
		DescriptionRaw: optional(r.PostFormValue("description_raw")),
		TargetRole:     optional(r.PostFormValue("target_role")),
		Priority:       DefaultJobPriority,
		Notes:          optional(r.PostFormValue("notes")),
	}
	if raw := strings.TrimSpace(r.PostFormValue("priority")); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			return req, &ErrValidation{Field: "priority", Message: "must be a number"}
		}
		req.Priority = p
	}
	if err := s.validate.Struct(req); err != nil {
		return req, validationError(err)
	}
	return req, nil
}

// formError is the message shown above a failed form.
func formError(err error, action string) string {
	var ve *ErrValidation
	if errors.As(err, &ve) {
		return ve.Field + " " + ve.Message
	}
	var se *backend.StatusError
	if errors.As(err, &se) {
		if detail := se.Detail(); detail != "" {
			return detail
		}
	}
	return "Failed to " + action
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// ---------------------------------------------------------------------
// Job detail
// ---------------------------------------------------------------------

type summaryView struct {
	Note backend.NoteEntry
	Meta view.SummaryMeta
}

// declinePanel is a decline picker bound to its job.
type declinePanel struct {
	JobID string
	view.DeclinePicker
}

type jobView struct {
	Job            backend.Job
	Badge          view.Badge
	Pipeline       view.PipelineView
	Flags          []view.FlagToggle
	Gauge          view.Gauge
	RoleGauges     []view.RoleGauge
	Salary         string
	WorkLocation   string
	Summary        *summaryView
	Sections       []view.NoteSection
	UserNotes      []backend.NoteEntry
	Contacts       []backend.Contact
	ContactsError  string
	UserDecline    declinePanel
	CompanyDecline declinePanel
	CoverLetters   []backend.CoverLetter
	Roles          []view.Option
	Statuses       []view.Badge
	HasDescription bool
	Error          string
}

// handleJobPage renders a job with its contacts, decline pickers, notes and
// the session's analysis results. Only the job itself is required; the
// other panels degrade on failure.
func (s *Server) handleJobPage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid job ID", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	key := middleware.Token(ctx)
	log := logger.FromContext(ctx).With(logger.FieldJobID, id)

	job, err := s.backend.GetJob(ctx, key, id)
	if s.redirectIfUnauthorized(w, r, err) {
		return
	}
	if err != nil {
		log.Errorw("failed to load job", logger.FieldError, err)
		status, msg := http.StatusInternalServerError, "Failed to load job details"
		if backend.IsNotFound(err) {
			status, msg = http.StatusNotFound, "Job not found"
		}
		s.render(w, r, status, "job", "", s.page("Job", "dashboard", jobView{Error: msg}))
		return
	}

	sess, err := s.sessions.Get(w, r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	var (
		contacts                    []backend.Contact
		contactsErr                 error
		userReasons, companyReasons *backend.DeclineReasons
	)
	var g errgroup.Group
	g.Go(func() error {
		contacts, contactsErr = s.backend.ListContacts(ctx, key, id)
		return nil
	})
	g.Go(func() error {
		var err error
		if userReasons, err = s.backend.DeclineReasons(ctx, key, view.DeclineUser); err != nil {
			log.Warnw("failed to load decline reasons", "type", view.DeclineUser, logger.FieldError, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if companyReasons, err = s.backend.DeclineReasons(ctx, key, view.DeclineCompany); err != nil {
			log.Warnw("failed to load decline reasons", "type", view.DeclineCompany, logger.FieldError, err)
		}
		return nil
	})
	_ = g.Wait()

	expanded := make(map[string]bool)
	for _, name := range r.URL.Query()["expand"] {
		expanded[name] = true
	}

	d := jobView{
		Job:            *job,
		Badge:          view.StatusBadge(job.Status),
		Pipeline:       view.StatusPipeline(job.Status),
		Flags:          view.JobFlags(*job),
		Gauge:          view.PriorityGauge(job.Priority, view.GaugeSize, view.GaugeStroke),
		RoleGauges:     view.RoleGauges(sess.Scores.For(id)),
		Salary:         view.FormatSalary(job.SalaryMin, job.SalaryMax, job.SalaryCurrency),
		WorkLocation:   view.WorkLocationLabel(job.WorkLocationType),
		Sections:       view.AnalysisSections(job.Notes),
		UserNotes:      view.UserNotes(job.Notes),
		Contacts:       contacts,
		UserDecline:    declinePanel{id, view.BuildDeclinePicker(view.DeclineUser, userReasons, job.UserDeclineReasons, expanded)},
		CompanyDecline: declinePanel{id, view.BuildDeclinePicker(view.DeclineCompany, companyReasons, job.CompanyDeclineReasons, expanded)},
		CoverLetters:   sess.Letters.For(id),
		Roles:          view.RoleOptions,
		Statuses:       view.StatusOptions(),
		HasDescription: job.DescriptionRaw != nil && strings.TrimSpace(*job.DescriptionRaw) != "",
	}
	if contactsErr != nil {
		log.Warnw("failed to load contacts", logger.FieldError, contactsErr)
		d.ContactsError = "Failed to load contacts"
	}
	for _, sec := range d.Sections {
		if sec.Config.Type == view.NoteAnalysisSummary && len(sec.Notes) > 0 {
			d.Summary = &summaryView{Note: sec.Notes[0], Meta: view.SummaryMetadata(sec.Notes[0])}
		}
	}

	s.render(w, r, http.StatusOK, "job", "", s.page(job.Title, "dashboard", d))
}

// ---------------------------------------------------------------------
// Settings and login
// ---------------------------------------------------------------------

type settingsView struct {
	BackendURL  string
	Environment string
}

func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "settings", "", s.page("Settings", "settings", settingsView{
		BackendURL:  s.cfg.BackendURL,
		Environment: s.cfg.Environment,
	}))
}

type loginView struct {
	Redirect string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", "", s.page("Sign in", "", loginView{
		Redirect: safeRedirect(r.URL.Query().Get("redirect")),
	}))
}

// safeRedirect keeps post-login redirects on this site.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return middleware.HomePath
	}
	return target
}

// ---------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------

func (s *Server) page(title, nav string, data any) pageData {
	return pageData{Title: title, Nav: nav, Bypass: s.cfg.BypassEnabled(), Data: data}
}

// redirectIfUnauthorized sends the browser to the login page when err is a
// backend 401. It reports whether it did.
func (s *Server) redirectIfUnauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	target := r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return redirectToLogin(w, r, err, target)
}

// redirectToLogin is redirectIfUnauthorized with an explicit return page.
func redirectToLogin(w http.ResponseWriter, r *http.Request, err error, target string) bool {
	if !backend.IsUnauthorized(err) {
		return false
	}
	http.Redirect(w, r, middleware.LoginRedirect(target), http.StatusSeeOther)
	return true
}
