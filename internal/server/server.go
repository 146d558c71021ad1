package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paradise-007/healthally/internal/app"
	"github.com/paradise-007/healthally/internal/ratelimit"
	"github.com/paradise-007/healthally/internal/util"
	"github.com/paradise-007/healthally/pkg/domain"
)

// maxJSONBody caps decoded request bodies.
const maxJSONBody = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// Redis backs the login and signup limiters. Required when either limit is positive.
	Redis                    *redis.Client
	LoginRateLimitPerMinute  int
	SignupRateLimitPerMinute int
	TrustedProxies           *util.TrustedProxies
	AllowedOrigins           []string
}

// Server exposes the HealthAlly HTTP API.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	trustedProxies *util.TrustedProxies
	allowedOrigins []string
	signupLimiter  *ratelimit.FixedWindowLimiter
	loginLimiter   *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured. A zero rate limit disables that limiter.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		if limit <= 0 {
			return nil, nil
		}
		limiter, err := ratelimit.NewFixedWindowLimiter(cfg.Redis, "healthally:ratelimit:"+name, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	signupLimiter, err := newLimiter("signup", cfg.SignupRateLimitPerMinute)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := newLimiter("login", cfg.LoginRateLimitPerMinute)
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		trustedProxies: cfg.TrustedProxies,
		allowedOrigins: cfg.AllowedOrigins,
		signupLimiter:  signupLimiter,
		loginLimiter:   loginLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(
		util.WithRequestLog("healthally",
			util.WithSecurityHeaders(
				util.WithCORS(s.allowedOrigins, s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/catalog", s.handleCatalog)

	// auth
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)
	s.mux.HandleFunc("/api/admin/login", s.handleAdminLogin)

	// assistant
	s.mux.Handle("/api/chat/ask", s.userOnly(s.handleAsk))
	s.mux.Handle("/api/chat/symptoms", s.userOnly(s.handleSymptoms))
	s.mux.Handle("/api/chat/history", s.userOnly(s.handleHistory))
	s.mux.Handle("/api/medicines/search", s.userOnly(s.handleMedicineSearch))

	// appointments
	s.mux.Handle("/api/doctors", s.authenticated(s.handleDoctors))
	s.mux.Handle("/api/doctors/", s.authenticated(s.handleDoctorSlots))
	s.mux.Handle("/api/appointments", s.userOnly(s.handleAppointments))
	s.mux.Handle("/api/profile", s.userOnly(s.handleProfile))

	// admin
	s.mux.Handle("/api/admin/dashboard", s.adminOnly(s.handleAdminDashboard))
	s.mux.Handle("/api/admin/exports/users", s.adminOnly(s.handleAdminExportUsers))
	s.mux.Handle("/api/admin/users", s.adminOnly(s.handleAdminUsers))
	s.mux.Handle("/api/admin/users/", s.adminOnly(s.handleAdminUserByID))
	s.mux.Handle("/api/admin/admins", s.adminOnly(s.handleAdminAdmins))
	s.mux.Handle("/api/admin/admins/", s.adminOnly(s.handleAdminAdminByID))
	s.mux.Handle("/api/admin/doctors", s.adminOnly(s.handleAdminDoctors))
	s.mux.Handle("/api/admin/doctors/", s.adminOnly(s.handleAdminDoctorByID))
	s.mux.Handle("/api/admin/appointments", s.adminOnly(s.handleAdminAppointments))
	s.mux.Handle("/api/admin/appointments/", s.adminOnly(s.handleAdminAppointmentByID))
	s.mux.Handle("/api/admin/chats", s.adminOnly(s.handleAdminChats))
	s.mux.Handle("/api/admin/chats/", s.adminOnly(s.handleAdminChatByID))
	s.mux.Handle("/api/admin/first-aid-rooms", s.adminOnly(s.handleAdminRooms))
	s.mux.Handle("/api/admin/first-aid-rooms/", s.adminOnly(s.handleAdminRoomByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Ready(r.Context()); err != nil {
		util.LoggerFromContext(r.Context()).Error("readiness check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Catalog())
}

// session wrappers
type sessionHandler func(http.ResponseWriter, *http.Request, domain.Session)

// authenticated accepts any live session.
func (s *Server) authenticated(next sessionHandler) http.Handler {
	return s.requireSession("authorize", func(domain.Session) bool { return true }, next)
}

func (s *Server) userOnly(next sessionHandler) http.Handler {
	return s.requireSession("authorize", func(sess domain.Session) bool { return sess.Kind == domain.SessionUser }, next)
}

func (s *Server) adminOnly(next sessionHandler) http.Handler {
	return s.requireSession("admin.authorize", domain.Session.IsAdmin, next)
}

func (s *Server) requireSession(event string, allowed func(domain.Session) bool, next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, event, "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		sess, ok, err := s.app.ResolveSession(r.Context(), token)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if !ok {
			s.audit(r, event, "fail", "reason", "invalid_session")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !allowed(sess) {
			s.audit(r, event, "fail", "subject_id", sess.SubjectID, "reason", "forbidden")
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		logger := util.LoggerFromContext(r.Context()).With("subject_id", sess.SubjectID, "session_kind", sess.Kind)
		next(w, r.WithContext(util.ContextWithLogger(r.Context(), logger)), sess)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		util.LoggerFromContext(r.Context()).Warn("missing bearer prefix", "path", r.URL.Path)
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		util.LoggerFromContext(r.Context()).Warn("empty bearer token", "path", r.URL.Path)
		return "", false
	}
	return token, true
}

// pathID extracts {id} from prefix + "{id}". Nested paths do not match.
func pathID(r *http.Request, prefix string) (string, bool) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// writeAppError maps application errors to statuses. Unknown errors are logged
// and hidden behind a generic 500.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, app.ErrCannotDeleteSelf):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrUsernameTaken), errors.Is(err, app.ErrSlotTaken), errors.Is(err, app.ErrRoomExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		util.ReportError(r, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

// allowRate consumes one attempt for the caller. A nil limiter allows everything.
func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	ok, retry := limiter.Allow(r.Context(), key)
	if ok {
		return true
	}
	seconds := int(math.Ceil(retry.Seconds()))
	if seconds <= 0 {
		seconds = 60
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}
