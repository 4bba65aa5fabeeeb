package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-dashboard/internal/config"
	"github.com/jonathan/job-dashboard/internal/filters"
	"github.com/jonathan/job-dashboard/internal/listing"
)

func pageDoc(t *testing.T, w *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(w.Body.String()))
	require.NoError(t, err)
	return doc
}

const declineCatalog = `{"categories":[{"name":"comp","display_name":"Compensation","reasons":[
	{"code":"low_salary","display_name":"Salary too low","category":"comp","description":"Below range"},
	{"code":"no_equity","display_name":"No equity","category":"comp","description":""}]}]}`

// stubJobPage registers the backend routes the job page reads.
func stubJobPage(fb *fakeBackend) {
	fb.reply("GET /jobs/{id}", http.StatusOK, fmt.Sprintf(`{
		"id":%q,"title":"Principal Engineer","company":"Acme","status":"interviewing","priority":85,
		"salary_min":180000,"salary_max":220000,"salary_currency":"USD","work_location_type":"remote",
		"is_favorite":true,"user_decline_reasons":["low_salary"],"company_decline_reasons":[],
		"description_raw":"Build things.",
		"notes":[
			{"text":"Strong match","timestamp":"2026-02-01T00:00:00Z","source":"agent","note_type":"ai_analysis_summary","metadata":{"priority_score":85,"recommendation":"apply"}},
			{"text":"Ask about team size","timestamp":"2026-02-02T00:00:00Z","source":"user","note_type":"general"}
		],
		"created_at":"2026-01-01T00:00:00Z","updated_at":"2026-02-02T00:00:00Z"}`, testJobID))
	fb.reply("GET /jobs/{id}/contacts", http.StatusOK, `[{"id":"c1","job_id":"j","name":"Dana Recruiter","contact_type":"recruiter","is_job_poster":true}]`)
	fb.reply("GET /decline-reasons/{type}", http.StatusOK, declineCatalog)
}

// pagedJobs serves total jobs in pages honoring page and page_size.
func pagedJobs(total int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
		if page < 1 {
			page = 1
		}
		if size < 1 {
			size = 20
		}
		var items []string
		for i := (page - 1) * size; i < page*size && i < total; i++ {
			items = append(items, fmt.Sprintf(`{"id":"job-%d","title":"Job %d","company":"Co %d","status":"saved","priority":%d,"updated_at":"2026-01-02T00:00:00Z","created_at":"2026-01-01T00:00:00Z"}`, i, i, i, i%100))
		}
		totalPages := (total + size - 1) / size
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"items":[%s],"total":%d,"page":%d,"page_size":%d,"total_pages":%d}`,
			strings.Join(items, ","), total, page, size, totalPages)
	}
}

func TestPages_UnauthenticatedRedirectsToLogin(t *testing.T) {
	s := newTestServer(t, newFakeBackend(t))
	w := newClient(s, "").get("/dashboard/settings")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?redirect=%2Fdashboard%2Fsettings", w.Header().Get("Location"))
}

func TestLoginPage(t *testing.T) {
	s := newTestServer(t, newFakeBackend(t))

	doc := pageDoc(t, newClient(s, "").get("/login?redirect=%2Fdashboard%2Fsearch"))
	redirect, _ := doc.Find("#login-form").Attr("data-redirect")
	assert.Equal(t, "/dashboard/search", redirect)

	doc = pageDoc(t, newClient(s, "").get("/login?redirect=https%3A%2F%2Fevil.example"))
	redirect, _ = doc.Find("#login-form").Attr("data-redirect")
	assert.Equal(t, "/dashboard", redirect)

	w := newClient(s, testKey).get("/login")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestDashboard_DefaultQuery(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle("GET /jobs", pagedJobs(3))
	s := newTestServer(t, fb)

	doc := pageDoc(t, newClient(s, testKey).get("/dashboard"))

	assert.Equal(t, 3, doc.Find("#job-rows tr").Length())
	assert.Equal(t, 0, doc.Find("#load-more").Length())
	assert.Equal(t, "3", strings.TrimSpace(doc.Find(".stat-value").First().Text()))

	calls := fb.callsTo(http.MethodGet, "/jobs")
	require.Len(t, calls, 1)
	q := calls[0].Query
	assert.Equal(t, filters.DefaultStatuses, q.Get("status"))
	assert.Equal(t, "updated_at", q.Get("sort_by"))
	assert.Equal(t, "desc", q.Get("sort_order"))
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "20", q.Get("page_size"))
	assert.Equal(t, testKey, calls[0].Key)
	assert.Equal(t, 0, doc.Find("[data-filters-pending]").Length())
}

func TestDashboard_PlaceholderUntilFiltersReady(t *testing.T) {
	s := newTestServer(t, newFakeBackend(t))
	store := filters.NewStore(false)
	pager := listing.NewPager(s.fetchJobs, 20)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	w := httptest.NewRecorder()
	s.render(w, req, http.StatusOK, "dashboard", "job_list", s.dashboardData(store, pager))
	doc := pageDoc(t, w)
	assert.Equal(t, 1, doc.Find("[data-filters-pending]").Length())
	assert.Equal(t, 0, doc.Find("table.jobs").Length())

	store.Init(req)
	w = httptest.NewRecorder()
	s.render(w, req, http.StatusOK, "dashboard", "job_list", s.dashboardData(store, pager))
	doc = pageDoc(t, w)
	assert.Equal(t, 0, doc.Find("[data-filters-pending]").Length())
	assert.Contains(t, doc.Text(), "No jobs match these filters.")
}

func TestDashboard_FilterUpdatePersistsAndRequeries(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle("GET /jobs", pagedJobs(1))
	s := newTestServer(t, fb)
	c := newClient(s, testKey)

	w := c.postForm("/dashboard/filters", url.Values{"field": {"minPriority"}, "value": {"61"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	require.Contains(t, c.cookies, filters.CookieName)

	pageDoc(t, c.get("/dashboard"))
	calls := fb.callsTo(http.MethodGet, "/jobs")
	require.NotEmpty(t, calls)
	assert.Equal(t, "61", calls[len(calls)-1].Query.Get("min_priority"))
}

func TestDashboard_InvalidFilterRejected(t *testing.T) {
	s := newTestServer(t, newFakeBackend(t))
	c := newClient(s, testKey)

	w := c.postForm("/dashboard/filters", url.Values{"field": {"minPriority"}, "value": {"abc"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.postForm("/dashboard/filters", url.Values{"field": {"bogus"}, "value": {"1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, c.cookies, filters.CookieName)
}

func TestDashboard_SortClickFlipsOrder(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle("GET /jobs", pagedJobs(1))
	s := newTestServer(t, fb)
	c := newClient(s, testKey)

	require.Equal(t, http.StatusSeeOther, c.postForm("/dashboard/sort", url.Values{"field": {"updated_at"}}).Code)
	pageDoc(t, c.get("/dashboard"))
	calls := fb.callsTo(http.MethodGet, "/jobs")
	last := calls[len(calls)-1].Query
	assert.Equal(t, "updated_at", last.Get("sort_by"))
	assert.Equal(t, "asc", last.Get("sort_order"))

	require.Equal(t, http.StatusSeeOther, c.postForm("/dashboard/sort", url.Values{"field": {"priority"}}).Code)
	pageDoc(t, c.get("/dashboard"))
	calls = fb.callsTo(http.MethodGet, "/jobs")
	last = calls[len(calls)-1].Query
	assert.Equal(t, "priority", last.Get("sort_by"))
	assert.Equal(t, "desc", last.Get("sort_order"))
}

func TestDashboard_ToggleStatusAndClear(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle("GET /jobs", pagedJobs(1))
	s := newTestServer(t, fb)
	c := newClient(s, testKey)

	require.Equal(t, http.StatusSeeOther, c.postForm("/dashboard/filters/status", url.Values{"status": {"saved"}}).Code)
	pageDoc(t, c.get("/dashboard"))
	calls := fb.callsTo(http.MethodGet, "/jobs")
	assert.NotContains(t, strings.Split(calls[len(calls)-1].Query.Get("status"), ","), "saved")

	require.Equal(t, http.StatusSeeOther, c.postForm("/dashboard/filters/clear", nil).Code)
	pageDoc(t, c.get("/dashboard"))
	calls = fb.callsTo(http.MethodGet, "/jobs")
	assert.Equal(t, filters.DefaultStatuses, calls[len(calls)-1].Query.Get("status"))
}

func TestDashboard_LoadMore(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle("GET /jobs", pagedJobs(45))
	s := newTestServer(t, fb)
	c := newClient(s, testKey)

	doc := pageDoc(t, c.get("/dashboard"))
	assert.Equal(t, 20, doc.Find("#job-rows tr").Length())
	assert.Equal(t, 1, doc.Find("#load-more").Length())

	w := c.get("/dashboard/jobs/more")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get(HasMoreHeader))
	assert.Equal(t, 20, strings.Count(w.Body.String(), "<tr "))

	w = c.get("/dashboard/jobs/more")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", w.Header().Get(HasMoreHeader))
	assert.Equal(t, 5, strings.Count(w.Body.String(), "<tr "))

	w = c.get("/dashboard/jobs/more")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, fb.callsTo(http.MethodGet, "/jobs"), 3)

	// Revisiting with the same filters revalidates the three loaded pages.
	doc = pageDoc(t, c.get("/dashboard"))
	assert.Equal(t, 45, doc.Find("#job-rows tr").Length())
	assert.Len(t, fb.callsTo(http.MethodGet, "/jobs"), 6)
}

func TestDashboard_Backend401RedirectsToLogin(t *testing.T) {
	fb := newFakeBackend(t)
	fb.reply("GET /jobs", http.StatusUnauthorized, `{"detail":"Invalid API key"}`)
	s := newTestServer(t, fb)

	w := newClient(s, "stale-key").get("/dashboard")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?redirect=%2Fdashboard", w.Header().Get("Location"))
}

func TestDashboard_BackendFailureShowsError(t *testing.T) {
	fb := newFakeBackend(t)
	fb.reply("GET /jobs", http.StatusInternalServerError, `{"detail":"db down"}`)
	s := newTestServer(t, fb)

	doc := pageDoc(t, newClient(s, testKey).get("/dashboard"))
	assert.Contains(t, doc.Find("#job-list .alert-error").Text(), "Failed to load jobs")
}

func TestSearchPage(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle("GET /jobs", pagedJobs(2))
	s := newTestServer(t, fb)
	c := newClient(s, testKey)

	doc := pageDoc(t, c.get("/dashboard/search"))
	assert.Equal(t, 0, doc.Find("table.jobs").Length())
	assert.Empty(t, fb.callsTo(http.MethodGet, "/jobs"))

	doc = pageDoc(t, c.get("/dashboard/search?q=+golang+"))
	assert.Equal(t, 2, doc.Find("table.jobs tbody tr").Length())
	calls := fb.callsTo(http.MethodGet, "/jobs")
	require.Len(t, calls, 1)
	assert.Equal(t, "golang", calls[0].Query.Get("search"))
}

func TestNewJob_ManualCreateRedirects(t *testing.T) {
	fb := newFakeBackend(t)
	fb.reply("POST /jobs", http.StatusCreated, jobJSON(testJobID, "Staff Engineer"))
	s := newTestServer(t, fb)
	c := newClient(s, testKey)

	pageDoc(t, c.get("/dashboard/jobs/new"))

	w := c.postForm("/dashboard/jobs/new", url.Values{
		"mode":        {"manual"},
		"title":       {"Staff Engineer"},
		"company":     {"Acme"},
		"target_role": {"architect"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard/jobs/"+testJobID, w.Header().Get("Location"))

	calls := fb.callsTo(http.MethodPost, "/jobs")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"title":"Staff Engineer","company":"Acme","location":null,"url":null,
		"description_raw":null,"target_role":"architect","priority":50,"notes":null}`, calls[0].Body)
}

func TestNewJob_ValidationRerendersForm(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestServer(t, fb)
	c := newClient(s, testKey)

	w := c.postForm("/dashboard/jobs/new", url.Values{"mode": {"manual"}, "company": {"Acme"}, "priority": {"150"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "title is required")
	assert.Contains(t, w.Body.String(), `value="Acme"`)
	assert.Empty(t, fb.callsTo(http.MethodPost, "/jobs"))
}

func TestNewJob_IngestShowsBackendDetail(t *testing.T) {
	fb := newFakeBackend(t)
	fb.reply("POST /jobs/ingest", http.StatusUnprocessableEntity, `{"detail":"Could not parse posting"}`)
	s := newTestServer(t, fb)

	w := newClient(s, testKey).postForm("/dashboard/jobs/new", url.Values{
		"mode": {"ingest"},
		"url":  {"https://jobs.example.com/42"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Could not parse posting")
}

func TestJobPage_RendersPanels(t *testing.T) {
	fb := newFakeBackend(t)
	stubJobPage(fb)
	s := newTestServer(t, fb)

	doc := pageDoc(t, newClient(s, testKey).get("/dashboard/jobs/"+testJobID))

	assert.Equal(t, "Principal Engineer", strings.TrimSpace(doc.Find("h1").First().Text()))
	assert.Contains(t, doc.Find(".salary").Text(), "$180,000 - $220,000")
	assert.Contains(t, doc.Find("svg.gauge").First().Text(), "TOP")
	assert.Contains(t, doc.Find(".summary").Text(), "apply")
	assert.Contains(t, doc.Find(".contact").Text(), "Dana Recruiter")

	userPicker := doc.Find("#decline-user")
	assert.Equal(t, 1, userPicker.Find(".chips .chip-on").Length())
	assert.Equal(t, 1, userPicker.Find("details[open]").Length())
	assert.Equal(t, 0, doc.Find("#decline-company details[open]").Length())

	active := doc.Find(".pipeline button.chip-on")
	require.Equal(t, 1, active.Length())
	assert.Equal(t, "Interviewing", strings.TrimSpace(active.Text()))
}

func TestJobPage_ToleratesPanelFailures(t *testing.T) {
	fb := newFakeBackend(t)
	fb.reply("GET /jobs/{id}", http.StatusOK, jobJSON(testJobID, "Engineer"))
	fb.reply("GET /jobs/{id}/contacts", http.StatusInternalServerError, `{"detail":"boom"}`)
	fb.reply("GET /decline-reasons/{type}", http.StatusInternalServerError, `{"detail":"boom"}`)
	s := newTestServer(t, fb)

	doc := pageDoc(t, newClient(s, testKey).get("/dashboard/jobs/"+testJobID))
	assert.Contains(t, doc.Find("section[aria-label=Contacts]").Text(), "Failed to load contacts")
	assert.Contains(t, doc.Find("#decline-user").Text(), "No decline reasons available")
}

func TestJobPage_NotFound(t *testing.T) {
	fb := newFakeBackend(t)
	fb.reply("GET /jobs/{id}", http.StatusNotFound, `{"detail":"Job not found"}`)
	s := newTestServer(t, fb)

	w := newClient(s, testKey).get("/dashboard/jobs/" + testJobID)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Job not found")

	w = newClient(s, testKey).get("/dashboard/jobs/nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobActions_FlagToggle(t *testing.T) {
	fb := newFakeBackend(t)
	fb.reply("PATCH /jobs/{id}", http.StatusOK, jobJSON(testJobID, "x"))
	s := newTestServer(t, fb)
	c := newClient(s, testKey)

	w := c.postForm("/dashboard/jobs/"+testJobID+"/flags", url.Values{"flag": {"is_favorite"}, "current": {"true"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard/jobs/"+testJobID, w.Header().Get("Location"))

	calls := fb.callsTo(http.MethodPatch, "/jobs/"+testJobID)
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"is_favorite":false}`, calls[0].Body)

	w = c.postForm("/dashboard/jobs/"+testJobID+"/flags", url.Values{"flag": {"status"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobActions_DeclineToggle(t *testing.T) {
	fb := newFakeBackend(t)
	stubJobPage(fb)
	fb.reply("PATCH /jobs/{id}", http.StatusOK, jobJSON(testJobID, "x"))
	s := newTestServer(t, fb)
	c := newClient(s, testKey)

	w := c.postForm("/dashboard/jobs/"+testJobID+"/decline", url.Values{
		"type": {"user"}, "code": {"no_equity"}, "category": {"comp"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard/jobs/"+testJobID+"?expand=comp#decline-user", w.Header().Get("Location"))

	calls := fb.callsTo(http.MethodPatch, "/jobs/"+testJobID)
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"user_decline_reasons":["low_salary","no_equity"]}`, calls[0].Body)

	w = c.postForm("/dashboard/jobs/"+testJobID+"/decline", url.Values{"type": {"other"}, "code": {"x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobActions_StatusAndDelete(t *testing.T) {
	fb := newFakeBackend(t)
	fb.reply("PATCH /jobs/{id}/status", http.StatusOK, jobJSON(testJobID, "x"))
	fb.handle("DELETE /jobs/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s := newTestServer(t, fb)
	c := newClient(s, testKey)

	w := c.postForm("/dashboard/jobs/"+testJobID+"/status", url.Values{"status": {"applied"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	calls := fb.callsTo(http.MethodPatch, "/jobs/"+testJobID+"/status")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"status":"applied"}`, calls[0].Body)

	w = c.postForm("/dashboard/jobs/"+testJobID+"/status", url.Values{"status": {"hired"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.postForm("/dashboard/jobs/"+testJobID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestJobActions_Backend401RedirectsToJobLogin(t *testing.T) {
	fb := newFakeBackend(t)
	fb.reply("PATCH /jobs/{id}/status", http.StatusUnauthorized, `{"detail":"bad key"}`)
	s := newTestServer(t, fb)

	w := newClient(s, testKey).postForm("/dashboard/jobs/"+testJobID+"/status", url.Values{"status": {"applied"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?redirect=%2Fdashboard%2Fjobs%2F"+testJobID, w.Header().Get("Location"))
}

func TestSettingsPage(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestServer(t, fb, func(c *config.Config) { c.LocalDevBypass = true })

	doc := pageDoc(t, newClient(s, "").get("/dashboard/settings"))
	assert.Equal(t, fb.URL, doc.Find("dd code").Text())
	assert.Contains(t, doc.Text(), "Bypassed")
	assert.Equal(t, 1, doc.Find(".topbar .badge-yellow").Length())
}
