package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/paradise-007/healthally/internal/app"
	"github.com/paradise-007/healthally/pkg/domain"
	"github.com/paradise-007/healthally/pkg/store"
)

// GET /api/admin/dashboard?department=A&department=B
func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	dash, err := s.app.Dashboard(r.Context(), r.URL.Query()["department"])
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// POST /api/admin/exports/users?format=csv|xlsx answers with a download link
// when object storage is configured and with the file itself otherwise.
func (s *Server) handleAdminExportUsers(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	exp, err := s.app.ExportUsers(r.Context(), r.URL.Query().Get("format"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "admin.export.users", "success", "admin_id", sess.SubjectID, "rows", exp.Rows)
	if exp.URL != "" {
		writeJSON(w, http.StatusCreated, exp)
		return
	}
	contentType := exp.ContentType
	if contentType == "text/csv" {
		contentType += "; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Data)
}

// users

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	users, err := s.app.AdminListUsers(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeList(w, users)
}

func (s *Server) handleAdminUserByID(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	id, ok := pathID(r, "/api/admin/users/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var req app.UserUpdate
		if !decodeJSON(w, r, &req) {
			return
		}
		user, err := s.app.AdminUpdateUser(r.Context(), id, req)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := s.app.AdminDeleteUser(r.Context(), id); err != nil {
			writeAppError(w, r, err)
			return
		}
		s.audit(r, "admin.user.delete", "success", "admin_id", sess.SubjectID, "user_id", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// admins

func (s *Server) handleAdminAdmins(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	switch r.Method {
	case http.MethodGet:
		admins, err := s.app.AdminListAdmins(r.Context())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeList(w, admins)
	case http.MethodPost:
		var req app.AdminInput
		if !decodeJSON(w, r, &req) {
			return
		}
		admin, err := s.app.AdminCreateAdmin(r.Context(), req)
		if err != nil {
			s.audit(r, "admin.admin.create", "fail", "admin_id", sess.SubjectID, "reason", err.Error())
			writeAppError(w, r, err)
			return
		}
		s.audit(r, "admin.admin.create", "success", "admin_id", sess.SubjectID, "created_id", admin.ID)
		writeJSON(w, http.StatusCreated, admin)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAdminAdminByID(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	id, ok := pathID(r, "/api/admin/admins/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.AdminDeleteAdmin(r.Context(), sess, id); err != nil {
		s.audit(r, "admin.admin.delete", "fail", "admin_id", sess.SubjectID, "reason", err.Error())
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "admin.admin.delete", "success", "admin_id", sess.SubjectID, "deleted_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// doctors

func (s *Server) handleAdminDoctors(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	switch r.Method {
	case http.MethodGet:
		doctors, err := s.app.AdminListDoctors(r.Context())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeList(w, doctors)
	case http.MethodPost:
		var req app.DoctorInput
		if !decodeJSON(w, r, &req) {
			return
		}
		doctor, err := s.app.AdminCreateDoctor(r.Context(), req)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, doctor)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAdminDoctorByID(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	id, ok := pathID(r, "/api/admin/doctors/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var req app.DoctorInput
		if !decodeJSON(w, r, &req) {
			return
		}
		doctor, err := s.app.AdminUpdateDoctor(r.Context(), id, req)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doctor)
	case http.MethodDelete:
		if err := s.app.AdminDeleteDoctor(r.Context(), id); err != nil {
			writeAppError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// appointments

// GET /api/admin/appointments?userId=&doctorId=&date=
func (s *Server) handleAdminAppointments(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	items, err := s.app.AdminListAppointments(r.Context(), store.AppointmentFilter{
		UserID:   q.Get("userId"),
		DoctorID: q.Get("doctorId"),
		Date:     q.Get("date"),
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeList(w, items)
}

func (s *Server) handleAdminAppointmentByID(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	id, ok := pathID(r, "/api/admin/appointments/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.AdminDeleteAppointment(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// chat history

// GET /api/admin/chats?userId=
func (s *Server) handleAdminChats(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	msgs, err := s.app.AdminListChats(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeList(w, msgs)
}

func (s *Server) handleAdminChatByID(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	id, ok := pathID(r, "/api/admin/chats/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.AdminDeleteChat(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// first aid rooms

func (s *Server) handleAdminRooms(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	switch r.Method {
	case http.MethodGet:
		rooms, err := s.app.AdminListFirstAidRooms(r.Context())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeList(w, rooms)
	case http.MethodPost:
		var req domain.FirstAidRoom
		if !decodeJSON(w, r, &req) {
			return
		}
		room, err := s.app.AdminCreateFirstAidRoom(r.Context(), req)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, room)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAdminRoomByID(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	id, ok := pathID(r, "/api/admin/first-aid-rooms/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var req domain.FirstAidRoom
		if !decodeJSON(w, r, &req) {
			return
		}
		room, err := s.app.AdminUpdateFirstAidRoom(r.Context(), id, req)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	case http.MethodDelete:
		if err := s.app.AdminDeleteFirstAidRoom(r.Context(), id); err != nil {
			writeAppError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}
