package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/paradise-007/healthally/pkg/domain"
)

// ProfileUpdate holds the editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Email      *string `json:"email"`
	Contact    *string `json:"contact"`
	Department *string `json:"department"`
	Hostel     *string `json:"hostel"`
}

func (a *App) Profile(ctx context.Context, sess domain.Session) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(ctx, sess.SubjectID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

func (a *App) UpdateProfile(ctx context.Context, sess domain.Session, in ProfileUpdate) (domain.User, error) {
	user, err := a.Profile(ctx, sess)
	if err != nil {
		return domain.User{}, err
	}
	if err := applyProfile(&user, in); err != nil {
		return domain.User{}, err
	}
	// the stored hash is kept when PasswordHash is empty
	user.PasswordHash = ""
	ok, err := a.store.UpdateUser(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

func applyProfile(user *domain.User, in ProfileUpdate) error {
	if in.Department != nil {
		if !domain.IsUserDepartment(*in.Department) {
			return ErrUnknownDepartment
		}
		user.Department = *in.Department
	}
	if in.Hostel != nil {
		if !domain.IsHostel(*in.Hostel) {
			return ErrUnknownHostel
		}
		user.Hostel = *in.Hostel
	}
	if in.Email != nil {
		user.Email = strings.TrimSpace(*in.Email)
	}
	if in.Contact != nil {
		user.Contact = strings.TrimSpace(*in.Contact)
	}
	return nil
}
