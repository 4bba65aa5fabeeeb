package server

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/job-dashboard/internal/backend"
)

// ---------------------------------------------------------------------
// Job proxy handlers
// ---------------------------------------------------------------------

// IngestJobRequest imports a job from a posting URL.
type IngestJobRequest struct {
	URL    string  `json:"url" validate:"required,url"`
	Source *string `json:"source" validate:"omitempty,oneof=linkedin indeed greenhouse lever workday"`
	Notes  *string `json:"notes" validate:"omitempty,max=10000"`
}

// UpdateStatusRequest moves a job to another pipeline stage.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,pipeline_status"`
}

// CoverLetterRequest asks the backend for a cover letter draft.
type CoverLetterRequest struct {
	TargetRole string `json:"target_role" validate:"required,oneof=cto vp director architect developer"`
}

// AddNoteRequest appends an entry to a job's note feed.
type AddNoteRequest struct {
	Text     string `json:"text" validate:"required,max=10000"`
	Source   string `json:"source,omitempty" validate:"omitempty,oneof=user agent"`
	NoteType string `json:"note_type,omitempty" validate:"omitempty,max=64"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("pipeline_status", func(fl validator.FieldLevel) bool {
		return backend.IsPipelineStatus(fl.Field().String())
	})
	return v
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	s.forward(w, r, backend.Request{
		Method: http.MethodGet,
		Path:   "/jobs",
		Query:  r.URL.RawQuery,
	}, "fetch jobs")
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	body, err := readJSONBody(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.forward(w, r, backend.Request{Method: http.MethodPost, Path: "/jobs", Body: body}, "create job")
}

func (s *Server) handleIngestJob(w http.ResponseWriter, r *http.Request) {
	var req IngestJobRequest
	body, err := s.decodeValid(r, &req)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.forward(w, r, backend.Request{Method: http.MethodPost, Path: "/jobs/ingest", Body: body}, "ingest job")
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.forward(w, r, backend.Request{Method: http.MethodGet, Path: "/jobs/" + id}, "fetch job")
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	body, err := readJSONBody(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.forward(w, r, backend.Request{Method: http.MethodPatch, Path: "/jobs/" + id, Body: body}, "update job")
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.forward(w, r, backend.Request{Method: http.MethodDelete, Path: "/jobs/" + id}, "delete job")
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var req UpdateStatusRequest
	body, err := s.decodeValid(r, &req)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.forward(w, r, backend.Request{Method: http.MethodPatch, Path: "/jobs/" + id + "/status", Body: body}, "update status")
}

// handleAnalyzeJob relays the analysis and keeps its role scores for the
// job page.
func (s *Server) handleAnalyzeJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	resp, ok := s.call(w, r, backend.Request{Method: http.MethodPost, Path: "/jobs/" + id + "/analyze"}, "analyze job")
	if !ok {
		return
	}

	if resp.OK() {
		var result backend.AnalysisResult
		if err := json.Unmarshal(resp.Body, &result); err == nil && len(result.RoleScores) > 0 {
			if sess, err := s.sessions.Get(w, r); err == nil {
				sess.Scores.Set(id, result.RoleScores)
			}
		}
	}
	s.relay(w, r, resp, "analyze job")
}

// handleGenerateCoverLetter relays the generated letter and appends it to the
// session's cover letter panel.
func (s *Server) handleGenerateCoverLetter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var req CoverLetterRequest
	body, err := s.decodeValid(r, &req)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	resp, ok := s.call(w, r, backend.Request{
		Method: http.MethodPost,
		Path:   "/jobs/" + id + "/cover-letter",
		Body:   body,
	}, "generate cover letter")
	if !ok {
		return
	}

	if resp.OK() {
		if letter, err := backend.DecodeCoverLetter(resp.Body); err == nil {
			if sess, err := s.sessions.Get(w, r); err == nil {
				sess.Letters.Append(id, *letter)
			}
		}
	}
	s.relay(w, r, resp, "generate cover letter")
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var req AddNoteRequest
	body, err := s.decodeValid(r, &req)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if req.Source == "" {
		if body, err = withDefault(body, "source", backend.NoteSourceUser); err != nil {
			s.badRequest(w, &ErrValidation{Field: "body", Message: "invalid JSON"})
			return
		}
	}
	s.forward(w, r, backend.Request{Method: http.MethodPost, Path: "/jobs/" + id + "/notes", Body: body}, "add note")
}
