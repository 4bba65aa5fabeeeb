package server

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/jonathan/job-dashboard/internal/backend"
	"github.com/jonathan/job-dashboard/internal/logger"
	"github.com/jonathan/job-dashboard/internal/server/middleware"
	"github.com/jonathan/job-dashboard/internal/view"
)

// Job page form actions. Each one applies a single change through the
// backend and returns to the job page.

func jobPagePath(id string) string {
	return "/dashboard/jobs/" + url.PathEscape(id)
}

// jobAction parses the form and the job id. ok is false when a response has
// been written.
func (s *Server) jobAction(w http.ResponseWriter, r *http.Request) (id string, ok bool) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid job ID", http.StatusBadRequest)
		return "", false
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// finishJobAction redirects to target, or to the login page when the
// backend rejected the key.
func (s *Server) finishJobAction(w http.ResponseWriter, r *http.Request, id, target, action string, err error) {
	if redirectToLogin(w, r, err, jobPagePath(id)) {
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Errorw("job action failed",
			logger.FieldJobID, id,
			"action", action,
			logger.FieldError, err,
		)
		http.Error(w, formError(err, action), HTTPStatus(err))
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleJobStatus submits a pipeline button. The button carries the status
// computed by view.NextStatus.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobAction(w, r)
	if !ok {
		return
	}
	status := r.PostFormValue("status")
	if !backend.IsPipelineStatus(status) {
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}
	_, err := s.backend.UpdateStatus(r.Context(), middleware.Token(r.Context()), id, status)
	s.finishJobAction(w, r, id, jobPagePath(id), "update status", err)
}

// handleJobFlag flips one of the job's boolean flags.
func (s *Server) handleJobFlag(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobAction(w, r)
	if !ok {
		return
	}
	key := r.PostFormValue("flag")
	if !view.IsFlag(key) {
		http.Error(w, "Invalid flag", http.StatusBadRequest)
		return
	}
	current, _ := strconv.ParseBool(r.PostFormValue("current"))
	_, err := s.backend.UpdateJob(r.Context(), middleware.Token(r.Context()), id, view.ToggleBody(key, current))
	s.finishJobAction(w, r, id, jobPagePath(id), "update job", err)
}

// handleJobDecline toggles one decline reason. The job is re-read first so
// the toggle applies to the current selection.
func (s *Server) handleJobDecline(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobAction(w, r)
	if !ok {
		return
	}
	declineType := r.PostFormValue("type")
	if declineType != view.DeclineUser && declineType != view.DeclineCompany {
		http.Error(w, "type must be one of: user company", http.StatusBadRequest)
		return
	}
	code := r.PostFormValue("code")
	if code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	key := middleware.Token(ctx)
	job, err := s.backend.GetJob(ctx, key, id)
	if err == nil {
		selected := view.ToggleReason(view.DeclineReasonsOf(*job, declineType), code)
		_, err = s.backend.UpdateJob(ctx, key, id, map[string][]string{view.DeclineField(declineType): selected})
	}

	target := jobPagePath(id)
	if category := r.PostFormValue("category"); category != "" {
		target += "?" + url.Values{"expand": {category}}.Encode()
	}
	s.finishJobAction(w, r, id, target+"#decline-"+declineType, "update decline reasons", err)
}

// handleJobDelete deletes the job and returns to the dashboard.
func (s *Server) handleJobDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobAction(w, r)
	if !ok {
		return
	}
	resp, err := s.backend.Do(r.Context(), backend.Request{
		Method: http.MethodDelete,
		Path:   "/jobs/" + id,
		APIKey: middleware.Token(r.Context()),
	})
	if err == nil && !resp.OK() {
		err = &backend.StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	s.finishJobAction(w, r, id, middleware.HomePath, "delete job", err)
}
