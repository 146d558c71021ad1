package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/paradise-007/healthally/internal/util"
	"github.com/paradise-007/healthally/pkg/analytics"
	"github.com/paradise-007/healthally/pkg/auth"
	"github.com/paradise-007/healthally/pkg/domain"
	"github.com/paradise-007/healthally/pkg/store"
)

// SignupInput is the registration form.
type SignupInput struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Contact    string `json:"contact"`
	Enrollment string `json:"enrollment"`
	Department string `json:"department"`
	Hostel     string `json:"hostel"`
}

// SignUp registers a user and logs them in right away.
func (a *App) SignUp(ctx context.Context, in SignupInput) (domain.User, string, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return domain.User{}, "", ErrUsernamePasswordRequired
	}
	if !domain.IsUserDepartment(in.Department) {
		return domain.User{}, "", ErrUnknownDepartment
	}
	if !domain.IsHostel(in.Hostel) {
		return domain.User{}, "", ErrUnknownHostel
	}
	if _, exists, err := a.store.GetUserByUsername(ctx, username); err != nil {
		return domain.User{}, "", fmt.Errorf("check username: %w", err)
	} else if exists {
		return domain.User{}, "", ErrUsernameTaken
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user, err := a.store.CreateUser(ctx, domain.User{
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Contact:      strings.TrimSpace(in.Contact),
		Enrollment:   strings.TrimSpace(in.Enrollment),
		Department:   in.Department,
		Hostel:       in.Hostel,
		LastLogin:    a.now().UTC(),
	})
	if errors.Is(err, store.ErrDuplicate) {
		return domain.User{}, "", ErrUsernameTaken
	}
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create user: %w", err)
	}
	err = a.recorder.RecordSignup(ctx, analytics.SignupEvent{
		UserID:     user.ID,
		Username:   user.Username,
		Email:      user.Email,
		Department: user.Department,
		Hostel:     user.Hostel,
		At:         user.LastLogin,
	})
	if err != nil {
		util.LoggerFromContext(ctx).Warn("analytics signup event dropped", "user_id", user.ID, "err", err)
	}
	token, err := a.sessions.NewSession(ctx, domain.Session{
		Kind:      domain.SessionUser,
		SubjectID: user.ID,
		Username:  user.Username,
	})
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, token, nil
}

// Login validates user credentials, stamps last_login and issues a session token.
func (a *App) Login(ctx context.Context, username, password string) (domain.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, "", ErrInvalidCredentials
	}
	user, ok, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	valid, rehash := auth.VerifyPassword(password, user.PasswordHash)
	if !valid {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if rehash {
		a.upgradePassword(ctx, "user", user.ID, password, a.store.SetUserPassword)
	}
	user.LastLogin = a.now().UTC()
	if err := a.store.SetLastLogin(ctx, user.ID, user.LastLogin); err != nil {
		return domain.User{}, "", fmt.Errorf("update last login: %w", err)
	}
	token, err := a.sessions.NewSession(ctx, domain.Session{
		Kind:      domain.SessionUser,
		SubjectID: user.ID,
		Username:  user.Username,
	})
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, token, nil
}

// AdminLogin validates admin credentials and issues an admin session token.
func (a *App) AdminLogin(ctx context.Context, username, password string) (domain.Admin, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.Admin{}, "", ErrInvalidCredentials
	}
	admin, ok, err := a.store.GetAdminByUsername(ctx, username)
	if err != nil {
		return domain.Admin{}, "", fmt.Errorf("fetch admin: %w", err)
	}
	if !ok {
		return domain.Admin{}, "", ErrInvalidCredentials
	}
	valid, rehash := auth.VerifyPassword(password, admin.PasswordHash)
	if !valid {
		return domain.Admin{}, "", ErrInvalidCredentials
	}
	if rehash {
		a.upgradePassword(ctx, "admin", admin.ID, password, a.store.SetAdminPassword)
	}
	token, err := a.sessions.NewSession(ctx, domain.Session{
		Kind:      domain.SessionAdmin,
		SubjectID: admin.ID,
		Username:  admin.Username,
	})
	if err != nil {
		return domain.Admin{}, "", fmt.Errorf("create session: %w", err)
	}
	return admin, token, nil
}

// upgradePassword replaces a plaintext credential with its bcrypt hash. A
// failure only logs; the login itself already succeeded.
func (a *App) upgradePassword(ctx context.Context, kind, id, password string, save func(context.Context, string, string) error) {
	logger := util.LoggerFromContext(ctx)
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = save(ctx, id, hash)
	}
	if err != nil {
		logger.Warn("password upgrade failed", "kind", kind, "id", id, "err", err)
		return
	}
	logger.Info("plaintext password upgraded", "kind", kind, "id", id)
}

// EnsureBootstrapAdmin creates the configured admin when no admin exists yet,
// so a fresh database can reach the admin routes. It reports whether an
// account was created. An empty username disables it.
func (a *App) EnsureBootstrapAdmin(ctx context.Context, in AdminInput) (bool, error) {
	if strings.TrimSpace(in.Username) == "" {
		return false, nil
	}
	count, err := a.store.Count(ctx, store.CollectionAdmins)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if _, err := a.AdminCreateAdmin(ctx, in); err != nil {
		return false, err
	}
	return true, nil
}

// Logout revokes the session token.
func (a *App) Logout(ctx context.Context, token string) error {
	if err := a.sessions.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ResolveSession maps a bearer token to its session. Sessions whose user or
// admin record no longer exists are rejected.
func (a *App) ResolveSession(ctx context.Context, token string) (domain.Session, bool, error) {
	sess, ok, err := a.sessions.Lookup(ctx, token)
	if err != nil || !ok {
		return domain.Session{}, false, err
	}
	switch sess.Kind {
	case domain.SessionUser:
		_, ok, err = a.store.GetUserByID(ctx, sess.SubjectID)
	case domain.SessionAdmin:
		_, ok, err = a.store.GetAdminByID(ctx, sess.SubjectID)
	default:
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("fetch session subject: %w", err)
	}
	if !ok {
		return domain.Session{}, false, nil
	}
	sess.Token = token
	return sess, true, nil
}
