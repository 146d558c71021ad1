package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paradise-007/healthally/pkg/auth"
	"github.com/paradise-007/healthally/pkg/domain"
)

func TestSignUpLogsInAndRecordsAnalytics(t *testing.T) {
	env := newTestEnv(t)
	user, sess := env.signUp(t, "asha", "ICT")
	if sess.Kind != domain.SessionUser || sess.SubjectID != user.ID || sess.Username != "asha" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret-pass" {
		t.Fatalf("password should be hashed")
	}
	if !user.LastLogin.Equal(monday) {
		t.Fatalf("last login = %v", user.LastLogin)
	}
	rows, _ := env.analytics.ListUsers(context.Background(), 0)
	if len(rows) != 1 || rows[0].UserID != user.ID || rows[0].Department != "ICT" {
		t.Fatalf("unexpected analytics rows %+v", rows)
	}
}

func TestSignUpValidation(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "asha", "ICT")
	ctx := context.Background()

	cases := map[string]struct {
		in   SignupInput
		want error
	}{
		"duplicate":      {SignupInput{Username: "asha", Password: "x", Department: "ICT", Hostel: "VISHWA HOSTEL"}, ErrUsernameTaken},
		"no password":    {SignupInput{Username: "ravi", Department: "ICT", Hostel: "VISHWA HOSTEL"}, ErrUsernamePasswordRequired},
		"bad department": {SignupInput{Username: "ravi", Password: "x", Department: "MIT", Hostel: "VISHWA HOSTEL"}, ErrUnknownDepartment},
		"bad hostel":     {SignupInput{Username: "ravi", Password: "x", Department: "OTHERS", Hostel: "Nowhere"}, ErrUnknownHostel},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := env.app.SignUp(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLoginUpdatesLastLogin(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.signUp(t, "asha", "ICT")
	ctx := context.Background()

	if _, _, err := env.app.Login(ctx, "asha", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, err := env.app.Login(ctx, "nobody", "secret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user should look like a bad password, got %v", err)
	}

	*env.clock = monday.Add(2 * time.Hour)
	_, token, err := env.app.Login(ctx, " asha ", "secret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	stored, _, _ := env.store.GetUserByID(ctx, user.ID)
	if !stored.LastLogin.Equal(monday.Add(2 * time.Hour)) {
		t.Fatalf("last login not updated: %v", stored.LastLogin)
	}

	if err := env.app.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok, _ := env.app.ResolveSession(ctx, token); ok {
		t.Fatalf("session should be gone after logout")
	}
}

func TestAdminLoginAndSessionSubjectCheck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, err := env.app.AdminCreateAdmin(ctx, AdminInput{Username: "root", Password: "admin-pass"})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if _, _, err := env.app.AdminLogin(ctx, "root", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	_, token, err := env.app.AdminLogin(ctx, "root", "admin-pass")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	sess, ok, err := env.app.ResolveSession(ctx, token)
	if err != nil || !ok || !sess.IsAdmin() || sess.SubjectID != admin.ID {
		t.Fatalf("unexpected admin session %+v ok=%v err=%v", sess, ok, err)
	}

	user, userSess := env.signUp(t, "asha", "ICT")
	if err := env.app.AdminDeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, ok, _ := env.app.ResolveSession(ctx, userSess.Token); ok {
		t.Fatalf("deleted user's session should not resolve")
	}
}

func TestLoginUpgradesPlaintextPasswords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, err := env.store.CreateUser(ctx, domain.User{Username: "ravi", PasswordHash: "old-pass", Department: "ICT"})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, _, err := env.app.Login(ctx, "ravi", "old-pas"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, err := env.app.Login(ctx, "ravi", "old-pass"); err != nil {
		t.Fatalf("legacy login: %v", err)
	}
	stored, _, _ := env.store.GetUserByID(ctx, user.ID)
	if !auth.IsHash(stored.PasswordHash) || !auth.CheckPassword("old-pass", stored.PasswordHash) {
		t.Fatalf("password not upgraded: %q", stored.PasswordHash)
	}
	if _, _, err := env.app.Login(ctx, "ravi", "old-pass"); err != nil {
		t.Fatalf("login after upgrade: %v", err)
	}

	admin, err := env.store.CreateAdmin(ctx, domain.Admin{Username: "warden", PasswordHash: "old-admin"})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if _, _, err := env.app.AdminLogin(ctx, "warden", "old-admin"); err != nil {
		t.Fatalf("legacy admin login: %v", err)
	}
	storedAdmin, _, _ := env.store.GetAdminByID(ctx, admin.ID)
	if !auth.IsHash(storedAdmin.PasswordHash) {
		t.Fatalf("admin password not upgraded: %q", storedAdmin.PasswordHash)
	}
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if created, err := env.app.EnsureBootstrapAdmin(ctx, AdminInput{}); err != nil || created {
		t.Fatalf("empty username should be a no-op, got created=%v err=%v", created, err)
	}
	if _, err := env.app.EnsureBootstrapAdmin(ctx, AdminInput{Username: "root"}); !errors.Is(err, ErrUsernamePasswordRequired) {
		t.Fatalf("expected password required, got %v", err)
	}
	created, err := env.app.EnsureBootstrapAdmin(ctx, AdminInput{Username: "root", Password: "admin-pass"})
	if err != nil || !created {
		t.Fatalf("first bootstrap should create, got created=%v err=%v", created, err)
	}
	if _, sess, err := env.app.AdminLogin(ctx, "root", "admin-pass"); err != nil || sess == "" {
		t.Fatalf("bootstrap admin login: %v", err)
	}
	created, err = env.app.EnsureBootstrapAdmin(ctx, AdminInput{Username: "other", Password: "other-pass"})
	if err != nil || created {
		t.Fatalf("second bootstrap should be a no-op, got created=%v err=%v", created, err)
	}
	admins, _ := env.store.ListAdmins(ctx)
	if len(admins) != 1 {
		t.Fatalf("expected one admin, got %d", len(admins))
	}
}
