package server

import (
	"net/http"

	"github.com/paradise-007/healthally/internal/app"
	"github.com/paradise-007/healthally/pkg/domain"
)

type askRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req askRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.app.Ask(r.Context(), sess, req.Query)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSymptoms(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req app.SymptomInput
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.app.CheckSymptoms(r.Context(), sess, req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/chat/history?start=&end=&q=
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	sessions, err := s.app.History(r.Context(), sess, app.HistoryFilter{
		Start:  q.Get("start"),
		End:    q.Get("end"),
		Search: q.Get("q"),
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeList(w, sessions)
}

func (s *Server) handleMedicineSearch(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	res, err := s.app.SearchMedicines(r.Context(), sess, r.URL.Query().Get("q"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
