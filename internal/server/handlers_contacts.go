package server

import (
	"net/http"

	"github.com/jonathan/job-dashboard/internal/backend"
	"github.com/jonathan/job-dashboard/internal/view"
)

// ---------------------------------------------------------------------
// Contacts and decline reasons
// ---------------------------------------------------------------------

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.forward(w, r, backend.Request{Method: http.MethodGet, Path: "/jobs/" + id + "/contacts"}, "fetch contacts")
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	contactID, err := pathID(r, "contactId")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.forward(w, r, backend.Request{
		Method: http.MethodDelete,
		Path:   "/jobs/" + id + "/contacts/" + contactID,
	}, "delete contact")
}

// handleDeclineReasons serves the reason catalog for ?type=user|company,
// defaulting to user.
func (s *Server) handleDeclineReasons(w http.ResponseWriter, r *http.Request) {
	declineType := r.URL.Query().Get("type")
	if declineType == "" {
		declineType = view.DeclineUser
	}
	if declineType != view.DeclineUser && declineType != view.DeclineCompany {
		s.errorResponse(w, http.StatusBadRequest, "type must be one of: user company")
		return
	}
	s.forward(w, r, backend.Request{Method: http.MethodGet, Path: "/decline-reasons/" + declineType}, "fetch decline reasons")
}
