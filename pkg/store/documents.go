package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/paradise-007/healthally/pkg/domain"
)

// BSON documents stored in MongoDB. Field names follow the existing
// healthcare_chatbot database so older records stay readable.

type userDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Username   string             `bson:"username"`
	Email      string             `bson:"email"`
	Password   string             `bson:"password"`
	Contact    string             `bson:"contact"`
	Enrollment string             `bson:"enrollment"`
	Department string             `bson:"department"`
	Hostel     string             `bson:"hostel"`
	LastLogin  time.Time          `bson:"last_login"`
}

type adminDoc struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Username string             `bson:"username"`
	Email    string             `bson:"email,omitempty"`
	Password string             `bson:"password"`
}

type workHoursDoc struct {
	StartTime string `bson:"start_time"`
	EndTime   string `bson:"end_time"`
}

type doctorDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Name             string             `bson:"name"`
	Specialization   string             `bson:"specialization"`
	Qualification    string             `bson:"qualification"`
	WorkHours        workHoursDoc       `bson:"work_hours"`
	AvailabilityDays []string           `bson:"availability_days"`
}

type appointmentDoc struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	UserID               string             `bson:"user_id,omitempty"`
	Name                 string             `bson:"name"`
	EnrollmentNumber     string             `bson:"enrollment_number"`
	Hosteller            string             `bson:"hosteller"`
	Hostel               string             `bson:"hostel"`
	ContactNumber        string             `bson:"contact_number"`
	College              string             `bson:"college"`
	DoctorID             string             `bson:"doctor_id"`
	DoctorName           string             `bson:"doctor_name"`
	DoctorSpecialization string             `bson:"doctor_specialization"`
	DoctorWorkHours      string             `bson:"doctor_work_hours"`
	Disease              string             `bson:"disease"`
	Date                 string             `bson:"date"`
	TimeSlot             string             `bson:"time_slot"`
	AppointmentTime      time.Time          `bson:"appointment_time"`
}

type chatDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Message   flexMessage        `bson:"message"`
	Role      string             `bson:"role"`
	Timestamp flexTime           `bson:"timestamp"`
}

type facultyDoc struct {
	Name    string `bson:"name"`
	Contact string `bson:"contact"`
}

type stockDoc struct {
	Name     string `bson:"name"`
	Quantity int    `bson:"quantity"`
}

type roomDoc struct {
	RoomNumber      string     `bson:"room_number"`
	Location        string     `bson:"location,omitempty"`
	FacultyInCharge facultyDoc `bson:"faculty_in_charge"`
	Medicines       []stockDoc `bson:"medicines"`
}

type firstAidDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Department   string             `bson:"department"`
	FirstAidRoom roomDoc            `bson:"first_aid_room"`
}

// flexTime decodes timestamps written either as BSON datetimes or as
// integer unix milliseconds. It always encodes as a datetime.
type flexTime time.Time

func (t flexTime) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(time.Time(t))
}

func (t *flexTime) UnmarshalBSONValue(bt bsontype.Type, data []byte) error {
	v := bsoncore.Value{Type: bt, Data: data}
	var ms int64
	switch bt {
	case bson.TypeDateTime:
		ms = v.DateTime()
	case bson.TypeInt64:
		ms = v.Int64()
	case bson.TypeInt32:
		ms = int64(v.Int32())
	case bson.TypeDouble:
		ms = int64(v.Double())
	case bson.TypeNull, bson.TypeUndefined:
		*t = flexTime{}
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %s", bt)
	}
	*t = flexTime(time.UnixMilli(ms).UTC())
	return nil
}

// flexMessage decodes a chat message stored either as a string or as an
// embedded document (older medicine lookups); documents render as "key: value" lines.
type flexMessage string

func (m flexMessage) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(string(m))
}

func (m *flexMessage) UnmarshalBSONValue(bt bsontype.Type, data []byte) error {
	v := bsoncore.Value{Type: bt, Data: data}
	switch bt {
	case bson.TypeString:
		*m = flexMessage(v.StringValue())
	case bson.TypeEmbeddedDocument:
		elems, err := v.Document().Elements()
		if err != nil {
			return fmt.Errorf("decode message document: %w", err)
		}
		lines := make([]string, 0, len(elems))
		for _, el := range elems {
			text, ok := renderValue(el.Value())
			if !ok {
				continue
			}
			lines = append(lines, el.Key()+": "+text)
		}
		*m = flexMessage(strings.Join(lines, "\n"))
	case bson.TypeNull, bson.TypeUndefined:
		*m = ""
	default:
		text, _ := renderValue(v)
		*m = flexMessage(text)
	}
	return nil
}

// renderValue formats scalars plainly; nulls are reported as absent.
func renderValue(v bsoncore.Value) (string, bool) {
	switch v.Type {
	case bson.TypeString:
		return v.StringValue(), true
	case bson.TypeInt32:
		return strconv.FormatInt(int64(v.Int32()), 10), true
	case bson.TypeInt64:
		return strconv.FormatInt(v.Int64(), 10), true
	case bson.TypeDouble:
		f := v.Double()
		if math.IsNaN(f) {
			return "", false
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	case bson.TypeBoolean:
		return strconv.FormatBool(v.Boolean()), true
	case bson.TypeNull, bson.TypeUndefined:
		return "", false
	}
	return v.String(), true
}

func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

func hexID(oid primitive.ObjectID) string {
	if oid.IsZero() {
		return ""
	}
	return oid.Hex()
}

func toUserDoc(u domain.User) userDoc {
	oid, _ := objectID(u.ID)
	return userDoc{
		ID:         oid,
		Username:   u.Username,
		Email:      u.Email,
		Password:   u.PasswordHash,
		Contact:    u.Contact,
		Enrollment: u.Enrollment,
		Department: u.Department,
		Hostel:     u.Hostel,
		LastLogin:  u.LastLogin.UTC(),
	}
}

func fromUserDoc(d userDoc) domain.User {
	return domain.User{
		ID:           hexID(d.ID),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.Password,
		Contact:      d.Contact,
		Enrollment:   d.Enrollment,
		Department:   d.Department,
		Hostel:       d.Hostel,
		LastLogin:    d.LastLogin,
	}
}

func toAdminDoc(a domain.Admin) adminDoc {
	oid, _ := objectID(a.ID)
	return adminDoc{ID: oid, Username: a.Username, Email: a.Email, Password: a.PasswordHash}
}

func fromAdminDoc(d adminDoc) domain.Admin {
	return domain.Admin{ID: hexID(d.ID), Username: d.Username, Email: d.Email, PasswordHash: d.Password}
}

func toWorkHoursDoc(w domain.WorkHours) workHoursDoc {
	return workHoursDoc{StartTime: w.StartTime, EndTime: w.EndTime}
}

func fromWorkHoursDoc(d workHoursDoc) domain.WorkHours {
	return domain.WorkHours{StartTime: d.StartTime, EndTime: d.EndTime}
}

// Appointments keep the doctor's hours as one "start - end" string.
func formatWorkHours(w domain.WorkHours) string {
	if w.StartTime == "" && w.EndTime == "" {
		return ""
	}
	return w.StartTime + " - " + w.EndTime
}

func parseWorkHours(s string) domain.WorkHours {
	start, end, _ := strings.Cut(s, " - ")
	return domain.WorkHours{StartTime: strings.TrimSpace(start), EndTime: strings.TrimSpace(end)}
}

func toDoctorDoc(d domain.Doctor) doctorDoc {
	oid, _ := objectID(d.ID)
	return doctorDoc{
		ID:               oid,
		Name:             d.Name,
		Specialization:   d.Specialization,
		Qualification:    d.Qualification,
		WorkHours:        toWorkHoursDoc(d.WorkHours),
		AvailabilityDays: d.AvailabilityDays,
	}
}

func fromDoctorDoc(d doctorDoc) domain.Doctor {
	return domain.Doctor{
		ID:               hexID(d.ID),
		Name:             d.Name,
		Specialization:   d.Specialization,
		Qualification:    d.Qualification,
		WorkHours:        fromWorkHoursDoc(d.WorkHours),
		AvailabilityDays: d.AvailabilityDays,
	}
}

func toAppointmentDoc(a domain.Appointment) appointmentDoc {
	oid, _ := objectID(a.ID)
	return appointmentDoc{
		ID:                   oid,
		UserID:               a.UserID,
		Name:                 a.Name,
		EnrollmentNumber:     a.EnrollmentNumber,
		Hosteller:            a.Hosteller,
		Hostel:               a.Hostel,
		ContactNumber:        a.ContactNumber,
		College:              a.College,
		DoctorID:             a.DoctorID,
		DoctorName:           a.DoctorName,
		DoctorSpecialization: a.DoctorSpecialization,
		DoctorWorkHours:      formatWorkHours(a.DoctorWorkHours),
		Disease:              a.Disease,
		Date:                 a.Date,
		TimeSlot:             a.TimeSlot,
		AppointmentTime:      a.AppointmentTime.UTC(),
	}
}

func fromAppointmentDoc(d appointmentDoc) domain.Appointment {
	return domain.Appointment{
		ID:                   hexID(d.ID),
		UserID:               d.UserID,
		Name:                 d.Name,
		EnrollmentNumber:     d.EnrollmentNumber,
		Hosteller:            d.Hosteller,
		Hostel:               d.Hostel,
		ContactNumber:        d.ContactNumber,
		College:              d.College,
		DoctorID:             d.DoctorID,
		DoctorName:           d.DoctorName,
		DoctorSpecialization: d.DoctorSpecialization,
		DoctorWorkHours:      parseWorkHours(d.DoctorWorkHours),
		Disease:              d.Disease,
		Date:                 d.Date,
		TimeSlot:             d.TimeSlot,
		AppointmentTime:      d.AppointmentTime,
	}
}

func toChatDoc(m domain.ChatMessage) chatDoc {
	oid, _ := objectID(m.ID)
	return chatDoc{
		ID:        oid,
		UserID:    m.UserID,
		Message:   flexMessage(m.Message),
		Role:      string(m.Role),
		Timestamp: flexTime(m.Timestamp.UTC()),
	}
}

func fromChatDoc(d chatDoc) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        hexID(d.ID),
		UserID:    d.UserID,
		Message:   string(d.Message),
		Role:      domain.ChatRole(d.Role),
		Timestamp: time.Time(d.Timestamp),
	}
}

func toFirstAidDoc(r domain.FirstAidRoom) firstAidDoc {
	oid, _ := objectID(r.ID)
	meds := make([]stockDoc, 0, len(r.Room.Medicines))
	for _, m := range r.Room.Medicines {
		meds = append(meds, stockDoc{Name: m.Name, Quantity: m.Quantity})
	}
	return firstAidDoc{
		ID:         oid,
		Department: r.Department,
		FirstAidRoom: roomDoc{
			RoomNumber: r.Room.RoomNumber,
			Location:   r.Room.Location,
			FacultyInCharge: facultyDoc{
				Name:    r.Room.FacultyInCharge.Name,
				Contact: r.Room.FacultyInCharge.Contact,
			},
			Medicines: meds,
		},
	}
}

func fromFirstAidDoc(d firstAidDoc) domain.FirstAidRoom {
	meds := make([]domain.StockedMedicine, 0, len(d.FirstAidRoom.Medicines))
	for _, m := range d.FirstAidRoom.Medicines {
		meds = append(meds, domain.StockedMedicine{Name: m.Name, Quantity: m.Quantity})
	}
	return domain.FirstAidRoom{
		ID:         hexID(d.ID),
		Department: d.Department,
		Room: domain.RoomDetails{
			RoomNumber: d.FirstAidRoom.RoomNumber,
			Location:   d.FirstAidRoom.Location,
			FacultyInCharge: domain.Faculty{
				Name:    d.FirstAidRoom.FacultyInCharge.Name,
				Contact: d.FirstAidRoom.FacultyInCharge.Contact,
			},
			Medicines: meds,
		},
	}
}
