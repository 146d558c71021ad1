package store

import (
	"context"
	"errors"
	"time"

	"github.com/paradise-007/healthally/pkg/domain"
)

var (
	// ErrDuplicate is returned when a unique field (username, department) already exists.
	ErrDuplicate = errors.New("duplicate record")
)

// Collection names a persisted record set.
type Collection string

const (
	CollectionUsers         Collection = "users"
	CollectionAdmins        Collection = "admins"
	CollectionDoctors       Collection = "doctors"
	CollectionAppointments  Collection = "appointments"
	CollectionChatHistory   Collection = "chat_history"
	CollectionFirstAidRooms Collection = "first_aid_rooms"
)

// Collections lists every collection in display order.
var Collections = []Collection{
	CollectionUsers,
	CollectionAdmins,
	CollectionDoctors,
	CollectionAppointments,
	CollectionChatHistory,
	CollectionFirstAidRooms,
}

// DoctorFilter narrows ListDoctors. Doctors without availability days are skipped
// unless IncludeUnavailable is set.
type DoctorFilter struct {
	Specialization     string
	IncludeUnavailable bool
}

// AppointmentFilter narrows ListAppointments. Empty fields match everything.
type AppointmentFilter struct {
	UserID   string
	DoctorID string
	Date     string
}

// Store defines persistence for the health assistant records.
// Lookups return (value, found, err); a missing record is not an error.
type Store interface {
	// users
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, bool, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, bool, error)
	UpdateUser(ctx context.Context, user domain.User) (bool, error)
	SetLastLogin(ctx context.Context, id string, at time.Time) error
	SetUserPassword(ctx context.Context, id, hash string) error
	ListUsers(ctx context.Context) ([]domain.User, error)
	DeleteUser(ctx context.Context, id string) (bool, error)
	UsersByDepartment(ctx context.Context) (map[string]int64, error)

	// admins
	CreateAdmin(ctx context.Context, admin domain.Admin) (domain.Admin, error)
	GetAdminByID(ctx context.Context, id string) (domain.Admin, bool, error)
	GetAdminByUsername(ctx context.Context, username string) (domain.Admin, bool, error)
	SetAdminPassword(ctx context.Context, id, hash string) error
	ListAdmins(ctx context.Context) ([]domain.Admin, error)
	DeleteAdmin(ctx context.Context, id string) (bool, error)

	// doctors
	CreateDoctor(ctx context.Context, doctor domain.Doctor) (domain.Doctor, error)
	GetDoctor(ctx context.Context, id string) (domain.Doctor, bool, error)
	ListDoctors(ctx context.Context, filter DoctorFilter) ([]domain.Doctor, error)
	UpdateDoctor(ctx context.Context, doctor domain.Doctor) (bool, error)
	DeleteDoctor(ctx context.Context, id string) (bool, error)

	// appointments
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	AppointmentExists(ctx context.Context, doctorID, date, timeSlot string) (bool, error)
	BookedSlots(ctx context.Context, doctorID, date string) ([]string, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) (bool, error)

	// chat history
	AppendChatMessage(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error)
	// ListChatMessages returns messages oldest first. An empty userID lists every user.
	ListChatMessages(ctx context.Context, userID string) ([]domain.ChatMessage, error)
	DeleteChatMessage(ctx context.Context, id string) (bool, error)

	// first aid rooms
	CreateFirstAidRoom(ctx context.Context, room domain.FirstAidRoom) (domain.FirstAidRoom, error)
	GetFirstAidRoom(ctx context.Context, department string) (domain.FirstAidRoom, bool, error)
	ListFirstAidRooms(ctx context.Context) ([]domain.FirstAidRoom, error)
	UpdateFirstAidRoom(ctx context.Context, room domain.FirstAidRoom) (bool, error)
	DeleteFirstAidRoom(ctx context.Context, id string) (bool, error)

	Count(ctx context.Context, c Collection) (int64, error)
}
