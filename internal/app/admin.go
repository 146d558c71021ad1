package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paradise-007/healthally/internal/util"
	"github.com/paradise-007/healthally/pkg/auth"
	"github.com/paradise-007/healthally/pkg/domain"
	"github.com/paradise-007/healthally/pkg/scheduling"
	"github.com/paradise-007/healthally/pkg/store"
)

// users

func (a *App) AdminListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UserUpdate is the admin edit form for a user. Nil fields are left unchanged.
type UserUpdate struct {
	Username   *string `json:"username"`
	Enrollment *string `json:"enrollment"`
	ProfileUpdate
}

func (a *App) AdminUpdateUser(ctx context.Context, id string, in UserUpdate) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrNotFound
	}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name == "" {
			return domain.User{}, ErrUsernamePasswordRequired
		}
		user.Username = name
	}
	if in.Enrollment != nil {
		user.Enrollment = strings.TrimSpace(*in.Enrollment)
	}
	if err := applyProfile(&user, in.ProfileUpdate); err != nil {
		return domain.User{}, err
	}
	user.PasswordHash = ""
	ok, err = a.store.UpdateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		return domain.User{}, ErrUsernameTaken
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

// AdminDeleteUser removes the user and ends their sessions.
func (a *App) AdminDeleteUser(ctx context.Context, id string) error {
	ok, err := a.store.DeleteUser(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	a.revokeSubject(ctx, domain.SessionUser, id)
	return nil
}

// admins

func (a *App) AdminListAdmins(ctx context.Context) ([]domain.Admin, error) {
	admins, err := a.store.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// AdminInput creates an admin account.
type AdminInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *App) AdminCreateAdmin(ctx context.Context, in AdminInput) (domain.Admin, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return domain.Admin{}, ErrUsernamePasswordRequired
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.Admin{}, fmt.Errorf("hash password: %w", err)
	}
	admin, err := a.store.CreateAdmin(ctx, domain.Admin{
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return domain.Admin{}, ErrUsernameTaken
	}
	if err != nil {
		return domain.Admin{}, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}

func (a *App) AdminDeleteAdmin(ctx context.Context, sess domain.Session, id string) error {
	if id == sess.SubjectID {
		return ErrCannotDeleteSelf
	}
	ok, err := a.store.DeleteAdmin(ctx, id)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	a.revokeSubject(ctx, domain.SessionAdmin, id)
	return nil
}

func (a *App) revokeSubject(ctx context.Context, kind domain.SessionKind, id string) {
	if err := a.sessions.RevokeSubject(ctx, kind, id); err != nil {
		util.LoggerFromContext(ctx).Warn("revoke sessions failed", "kind", kind, "subject_id", id, "err", err)
	}
}

// doctors

func (a *App) AdminListDoctors(ctx context.Context) ([]domain.Doctor, error) {
	doctors, err := a.store.ListDoctors(ctx, store.DoctorFilter{IncludeUnavailable: true})
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

// DoctorInput is the doctor form. Work hours use "09:00 AM" clock strings.
type DoctorInput struct {
	Name             string           `json:"name"`
	Specialization   string           `json:"specialization"`
	Qualification    string           `json:"qualification"`
	WorkHours        domain.WorkHours `json:"workHours"`
	AvailabilityDays []string         `json:"availabilityDays"`
}

func (a *App) AdminCreateDoctor(ctx context.Context, in DoctorInput) (domain.Doctor, error) {
	doctor, err := doctorFromInput(in)
	if err != nil {
		return domain.Doctor{}, err
	}
	created, err := a.store.CreateDoctor(ctx, doctor)
	if err != nil {
		return domain.Doctor{}, fmt.Errorf("create doctor: %w", err)
	}
	return created, nil
}

func (a *App) AdminUpdateDoctor(ctx context.Context, id string, in DoctorInput) (domain.Doctor, error) {
	doctor, err := doctorFromInput(in)
	if err != nil {
		return domain.Doctor{}, err
	}
	doctor.ID = id
	ok, err := a.store.UpdateDoctor(ctx, doctor)
	if err != nil {
		return domain.Doctor{}, fmt.Errorf("update doctor: %w", err)
	}
	if !ok {
		return domain.Doctor{}, ErrNotFound
	}
	return doctor, nil
}

func (a *App) AdminDeleteDoctor(ctx context.Context, id string) error {
	return deleted(a.store.DeleteDoctor(ctx, id))
}

func doctorFromInput(in DoctorInput) (domain.Doctor, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Doctor{}, ErrInvalidDoctor
	}
	start, err := scheduling.ParseClock(in.WorkHours.StartTime)
	if err != nil {
		return domain.Doctor{}, ErrInvalidDoctor
	}
	end, err := scheduling.ParseClock(in.WorkHours.EndTime)
	if err != nil || !end.After(start) {
		return domain.Doctor{}, ErrInvalidDoctor
	}
	days := make([]string, 0, len(in.AvailabilityDays))
	for _, d := range in.AvailabilityDays {
		day, ok := weekdayName(d)
		if !ok {
			return domain.Doctor{}, ErrInvalidWeekday
		}
		days = append(days, day)
	}
	return domain.Doctor{
		Name:           name,
		Specialization: strings.TrimSpace(in.Specialization),
		Qualification:  strings.TrimSpace(in.Qualification),
		WorkHours: domain.WorkHours{
			StartTime: start.Format(scheduling.ClockLayout),
			EndTime:   end.Format(scheduling.ClockLayout),
		},
		AvailabilityDays: days,
	}, nil
}

func weekdayName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d.String(), true
		}
	}
	return "", false
}

// appointments

func (a *App) AdminListAppointments(ctx context.Context, filter store.AppointmentFilter) ([]domain.Appointment, error) {
	items, err := a.store.ListAppointments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return items, nil
}

func (a *App) AdminDeleteAppointment(ctx context.Context, id string) error {
	return deleted(a.store.DeleteAppointment(ctx, id))
}

// chat history

// AdminListChats lists messages oldest first. An empty userID lists everyone's.
func (a *App) AdminListChats(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	msgs, err := a.store.ListChatMessages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	return msgs, nil
}

func (a *App) AdminDeleteChat(ctx context.Context, id string) error {
	return deleted(a.store.DeleteChatMessage(ctx, id))
}

// first aid rooms

func (a *App) AdminListFirstAidRooms(ctx context.Context) ([]domain.FirstAidRoom, error) {
	rooms, err := a.store.ListFirstAidRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list first aid rooms: %w", err)
	}
	return rooms, nil
}

func (a *App) AdminCreateFirstAidRoom(ctx context.Context, room domain.FirstAidRoom) (domain.FirstAidRoom, error) {
	if err := validateRoom(&room); err != nil {
		return domain.FirstAidRoom{}, err
	}
	created, err := a.store.CreateFirstAidRoom(ctx, room)
	if errors.Is(err, store.ErrDuplicate) {
		return domain.FirstAidRoom{}, ErrRoomExists
	}
	if err != nil {
		return domain.FirstAidRoom{}, fmt.Errorf("create first aid room: %w", err)
	}
	return created, nil
}

func (a *App) AdminUpdateFirstAidRoom(ctx context.Context, id string, room domain.FirstAidRoom) (domain.FirstAidRoom, error) {
	if err := validateRoom(&room); err != nil {
		return domain.FirstAidRoom{}, err
	}
	room.ID = id
	ok, err := a.store.UpdateFirstAidRoom(ctx, room)
	if errors.Is(err, store.ErrDuplicate) {
		return domain.FirstAidRoom{}, ErrRoomExists
	}
	if err != nil {
		return domain.FirstAidRoom{}, fmt.Errorf("update first aid room: %w", err)
	}
	if !ok {
		return domain.FirstAidRoom{}, ErrNotFound
	}
	return room, nil
}

func (a *App) AdminDeleteFirstAidRoom(ctx context.Context, id string) error {
	return deleted(a.store.DeleteFirstAidRoom(ctx, id))
}

func validateRoom(room *domain.FirstAidRoom) error {
	room.Department = strings.TrimSpace(room.Department)
	if !domain.IsDepartment(room.Department) {
		return ErrUnknownDepartment
	}
	room.Room.RoomNumber = strings.TrimSpace(room.Room.RoomNumber)
	if room.Room.RoomNumber == "" {
		return ErrInvalidRoom
	}
	meds := room.Room.Medicines[:0]
	for _, m := range room.Room.Medicines {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			continue
		}
		if m.Quantity < 0 {
			m.Quantity = 0
		}
		meds = append(meds, m)
	}
	room.Room.Medicines = meds
	return nil
}

func deleted(ok bool, err error) error {
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
