package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/paradise-007/healthally/pkg/domain"
)

// MemoryStore keeps records in-process. Used by tests and local runs without MongoDB.
// IDs are ObjectID hex strings so records move between stores unchanged.
type MemoryStore struct {
	mu           sync.RWMutex
	users        []domain.User
	admins       []domain.Admin
	doctors      []domain.Doctor
	appointments []domain.Appointment
	chats        []domain.ChatMessage
	rooms        []domain.FirstAidRoom
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// users

func (m *MemoryStore) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return domain.User{}, ErrDuplicate
		}
	}
	user.ID = newID()
	m.users = append(m.users, user)
	return user, nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, user domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, u := range m.users {
		if u.ID == user.ID {
			idx = i
		} else if u.Username == user.Username {
			return false, ErrDuplicate
		}
	}
	if idx < 0 {
		return false, nil
	}
	cur := m.users[idx]
	if user.PasswordHash == "" {
		user.PasswordHash = cur.PasswordHash
	}
	user.LastLogin = cur.LastLogin
	m.users[idx] = user
	return true, nil
}

func (m *MemoryStore) SetLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].LastLogin = at.UTC()
		}
	}
	return nil
}

func (m *MemoryStore) SetUserPassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].PasswordHash = hash
		}
	}
	return nil
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.User(nil), m.users...), nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ok bool
	m.users, ok = removeFirst(m.users, func(u domain.User) bool { return u.ID == id })
	return ok, nil
}

func (m *MemoryStore) UsersByDepartment(_ context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64)
	for _, u := range m.users {
		out[u.Department]++
	}
	return out, nil
}

// admins

func (m *MemoryStore) SetAdminPassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.admins {
		if m.admins[i].ID == id {
			m.admins[i].PasswordHash = hash
		}
	}
	return nil
}

func (m *MemoryStore) CreateAdmin(_ context.Context, admin domain.Admin) (domain.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.Username == admin.Username {
			return domain.Admin{}, ErrDuplicate
		}
	}
	admin.ID = newID()
	m.admins = append(m.admins, admin)
	return admin, nil
}

func (m *MemoryStore) GetAdminByID(_ context.Context, id string) (domain.Admin, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.admins {
		if a.ID == id {
			return a, true, nil
		}
	}
	return domain.Admin{}, false, nil
}

func (m *MemoryStore) GetAdminByUsername(_ context.Context, username string) (domain.Admin, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.admins {
		if a.Username == username {
			return a, true, nil
		}
	}
	return domain.Admin{}, false, nil
}

func (m *MemoryStore) ListAdmins(_ context.Context) ([]domain.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Admin(nil), m.admins...), nil
}

func (m *MemoryStore) DeleteAdmin(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ok bool
	m.admins, ok = removeFirst(m.admins, func(a domain.Admin) bool { return a.ID == id })
	return ok, nil
}

// doctors

func (m *MemoryStore) CreateDoctor(_ context.Context, doctor domain.Doctor) (domain.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doctor.ID = newID()
	m.doctors = append(m.doctors, doctor)
	return doctor, nil
}

func (m *MemoryStore) GetDoctor(_ context.Context, id string) (domain.Doctor, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.doctors {
		if d.ID == id {
			return d, true, nil
		}
	}
	return domain.Doctor{}, false, nil
}

func (m *MemoryStore) ListDoctors(_ context.Context, filter DoctorFilter) ([]domain.Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Doctor
	for _, d := range m.doctors {
		if len(d.AvailabilityDays) == 0 && !filter.IncludeUnavailable {
			continue
		}
		if filter.Specialization != "" && d.Specialization != filter.Specialization {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *MemoryStore) UpdateDoctor(_ context.Context, doctor domain.Doctor) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.doctors {
		if m.doctors[i].ID == doctor.ID {
			m.doctors[i] = doctor
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) DeleteDoctor(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ok bool
	m.doctors, ok = removeFirst(m.doctors, func(d domain.Doctor) bool { return d.ID == id })
	return ok, nil
}

// appointments

func (m *MemoryStore) CreateAppointment(_ context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appt.ID = newID()
	m.appointments = append(m.appointments, appt)
	return appt, nil
}

func (m *MemoryStore) AppointmentExists(_ context.Context, doctorID, date, timeSlot string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.TimeSlot == timeSlot {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) BookedSlots(_ context.Context, doctorID, date string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Date == date {
			out = append(out, a.TimeSlot)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListAppointments(_ context.Context, filter AppointmentFilter) ([]domain.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Appointment
	for _, a := range m.appointments {
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if filter.DoctorID != "" && a.DoctorID != filter.DoctorID {
			continue
		}
		if filter.Date != "" && a.Date != filter.Date {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].TimeSlot < out[j].TimeSlot
	})
	return out, nil
}

func (m *MemoryStore) DeleteAppointment(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ok bool
	m.appointments, ok = removeFirst(m.appointments, func(a domain.Appointment) bool { return a.ID == id })
	return ok, nil
}

// chat history

func (m *MemoryStore) AppendChatMessage(_ context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = newID()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	m.chats = append(m.chats, msg)
	return msg, nil
}

func (m *MemoryStore) ListChatMessages(_ context.Context, userID string) ([]domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ChatMessage
	for _, c := range m.chats {
		if userID == "" || c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *MemoryStore) DeleteChatMessage(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ok bool
	m.chats, ok = removeFirst(m.chats, func(c domain.ChatMessage) bool { return c.ID == id })
	return ok, nil
}

// first aid rooms

func (m *MemoryStore) CreateFirstAidRoom(_ context.Context, room domain.FirstAidRoom) (domain.FirstAidRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.Department == room.Department {
			return domain.FirstAidRoom{}, ErrDuplicate
		}
	}
	room.ID = newID()
	m.rooms = append(m.rooms, room)
	return room, nil
}

func (m *MemoryStore) GetFirstAidRoom(_ context.Context, department string) (domain.FirstAidRoom, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rooms {
		if r.Department == department {
			return r, true, nil
		}
	}
	return domain.FirstAidRoom{}, false, nil
}

func (m *MemoryStore) ListFirstAidRooms(_ context.Context) ([]domain.FirstAidRoom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.FirstAidRoom(nil), m.rooms...), nil
}

func (m *MemoryStore) UpdateFirstAidRoom(_ context.Context, room domain.FirstAidRoom) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, r := range m.rooms {
		if r.ID == room.ID {
			idx = i
		} else if r.Department == room.Department {
			return false, ErrDuplicate
		}
	}
	if idx < 0 {
		return false, nil
	}
	m.rooms[idx] = room
	return true, nil
}

func (m *MemoryStore) DeleteFirstAidRoom(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ok bool
	m.rooms, ok = removeFirst(m.rooms, func(r domain.FirstAidRoom) bool { return r.ID == id })
	return ok, nil
}

func (m *MemoryStore) Count(_ context.Context, c Collection) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch c {
	case CollectionUsers:
		return int64(len(m.users)), nil
	case CollectionAdmins:
		return int64(len(m.admins)), nil
	case CollectionDoctors:
		return int64(len(m.doctors)), nil
	case CollectionAppointments:
		return int64(len(m.appointments)), nil
	case CollectionChatHistory:
		return int64(len(m.chats)), nil
	case CollectionFirstAidRooms:
		return int64(len(m.rooms)), nil
	}
	return 0, nil
}

func removeFirst[T any](items []T, match func(T) bool) ([]T, bool) {
	for i, item := range items {
		if match(item) {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}
