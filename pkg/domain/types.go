package domain

import "time"

type SessionKind string

const (
	SessionUser  SessionKind = "user"
	SessionAdmin SessionKind = "admin"
)

// Session is the authenticated caller resolved from a bearer token.
// Handlers receive it explicitly; nothing reads login state from globals.
type Session struct {
	Token     string      `json:"-"`
	Kind      SessionKind `json:"kind"`
	SubjectID string      `json:"subjectId"`
	Username  string      `json:"username"`
}

func (s Session) IsAdmin() bool {
	return s.Kind == SessionAdmin
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Contact      string    `json:"contact"`
	Enrollment   string    `json:"enrollment"`
	Department   string    `json:"department"`
	Hostel       string    `json:"hostel"`
	LastLogin    time.Time `json:"lastLogin"`
}

type Admin struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// WorkHours holds wall-clock strings such as "09:00 AM".
type WorkHours struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type Doctor struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Specialization   string    `json:"specialization"`
	Qualification    string    `json:"qualification"`
	WorkHours        WorkHours `json:"workHours"`
	AvailabilityDays []string  `json:"availabilityDays"`
}

const (
	HostellerStatus = "Hosteller"
	CommuterStatus  = "Commuter"
)

type Appointment struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"userId,omitempty"`
	Name                 string    `json:"name"`
	EnrollmentNumber     string    `json:"enrollmentNumber"`
	Hosteller            string    `json:"hosteller"`
	Hostel               string    `json:"hostel"`
	ContactNumber        string    `json:"contactNumber"`
	College              string    `json:"college"`
	DoctorID             string    `json:"doctorId"`
	DoctorName           string    `json:"doctorName"`
	DoctorSpecialization string    `json:"doctorSpecialization"`
	DoctorWorkHours      WorkHours `json:"doctorWorkHours"`
	Disease              string    `json:"disease"`
	Date                 string    `json:"date"`
	TimeSlot             string    `json:"timeSlot"`
	AppointmentTime      time.Time `json:"appointmentTime"`
}

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleMedicine  ChatRole = "medicine"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Role      ChatRole  `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

type Faculty struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type StockedMedicine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type RoomDetails struct {
	RoomNumber      string            `json:"roomNumber"`
	Location        string            `json:"location,omitempty"`
	FacultyInCharge Faculty           `json:"facultyInCharge"`
	Medicines       []StockedMedicine `json:"medicines"`
}

// Stocks reports whether any of names is present in the room inventory.
// Names compare exactly, quantity is not consulted.
func (r RoomDetails) Stocks(names []string) bool {
	for _, med := range r.Medicines {
		for _, name := range names {
			if med.Name == name {
				return true
			}
		}
	}
	return false
}

type FirstAidRoom struct {
	ID         string      `json:"id"`
	Department string      `json:"department"`
	Room       RoomDetails `json:"firstAidRoom"`
}
