package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/paradise-007/healthally/internal/app"
	"github.com/paradise-007/healthally/pkg/domain"
)

// GET /api/doctors?general=true
func (s *Server) handleDoctors(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	general, _ := strconv.ParseBool(r.URL.Query().Get("general"))
	doctors, err := s.app.ListDoctors(r.Context(), general)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeList(w, doctors)
}

// GET /api/doctors/{id}/slots?date=YYYY-MM-DD
func (s *Server) handleDoctorSlots(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	id, rest, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/api/doctors/"), "/")
	if !ok || id == "" || rest != "slots" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	slots, err := s.app.DoctorSlots(r.Context(), id, r.URL.Query().Get("date"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.app.MyAppointments(r.Context(), sess)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeList(w, items)
	case http.MethodPost:
		var req app.BookingInput
		if !decodeJSON(w, r, &req) {
			return
		}
		booking, err := s.app.BookAppointment(r.Context(), sess, req)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, booking)
	default:
		methodNotAllowed(w)
	}
}
