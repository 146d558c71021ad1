package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/paradise-007/healthally/pkg/domain"
	"github.com/paradise-007/healthally/pkg/scheduling"
	"github.com/paradise-007/healthally/pkg/store"
)

const (
	generalSpecialization = "General"
	contactPrefix         = "+91"
	maxEnrollmentLength   = 11
	maxContactDigits      = 10

	bookedMessage  = "Appointment booked successfully! 🎉"
	noSlotsMessage = "No available time slots for this doctor on the selected date."
)

// ListDoctors returns bookable doctors, only general practitioners when general is set.
func (a *App) ListDoctors(ctx context.Context, general bool) ([]domain.Doctor, error) {
	filter := store.DoctorFilter{}
	if general {
		filter.Specialization = generalSpecialization
	}
	doctors, err := a.store.ListDoctors(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

// SlotAvailability is the free slots of one doctor on one date.
type SlotAvailability struct {
	DoctorID  string   `json:"doctorId"`
	Date      string   `json:"date"`
	Weekday   string   `json:"weekday"`
	Available bool     `json:"available"`
	Slots     []string `json:"slots"`
	Message   string   `json:"message,omitempty"`
}

// DoctorSlots lists the unbooked 15-minute slots of the doctor's work hours on date.
// A doctor who does not work that weekday yields Available=false with a message.
func (a *App) DoctorSlots(ctx context.Context, doctorID, date string) (SlotAvailability, error) {
	day, err := scheduling.ParseDate(date)
	if err != nil {
		return SlotAvailability{}, ErrInvalidDate
	}
	doctor, ok, err := a.store.GetDoctor(ctx, doctorID)
	if err != nil {
		return SlotAvailability{}, fmt.Errorf("fetch doctor: %w", err)
	}
	if !ok {
		return SlotAvailability{}, ErrNotFound
	}
	out := SlotAvailability{
		DoctorID: doctor.ID,
		Date:     day.Format(scheduling.DateLayout),
		Weekday:  day.Weekday().String(),
		Slots:    []string{},
	}
	if !scheduling.WorksOn(doctor.AvailabilityDays, day) {
		out.Message = unavailableMessage(day.Weekday().String())
		return out, nil
	}
	free, err := a.freeSlots(ctx, doctor, out.Date)
	if err != nil {
		return SlotAvailability{}, err
	}
	out.Available = true
	out.Slots = free
	if len(free) == 0 {
		out.Message = noSlotsMessage
	}
	return out, nil
}

func (a *App) freeSlots(ctx context.Context, doctor domain.Doctor, date string) ([]string, error) {
	labels, err := scheduling.DayLabels(doctor.WorkHours.StartTime, doctor.WorkHours.EndTime)
	if err != nil {
		return nil, fmt.Errorf("doctor %s work hours: %w", doctor.ID, err)
	}
	booked, err := a.store.BookedSlots(ctx, doctor.ID, date)
	if err != nil {
		return nil, fmt.Errorf("list booked slots: %w", err)
	}
	return scheduling.WithoutBooked(labels, booked), nil
}

func unavailableMessage(weekday string) string {
	return fmt.Sprintf("The selected doctor is not available on %s. Please choose another date.", weekday)
}

// BookingInput is the appointment form. College is the student's department.
type BookingInput struct {
	Name             string `json:"name"`
	EnrollmentNumber string `json:"enrollmentNumber"`
	Hosteller        string `json:"hosteller"`
	Hostel           string `json:"hostel"`
	ContactNumber    string `json:"contactNumber"`
	College          string `json:"college"`
	DoctorID         string `json:"doctorId"`
	Disease          string `json:"disease"`
	Date             string `json:"date"`
	TimeSlot         string `json:"timeSlot"`
}

// Booking is a stored appointment with the confirmation text.
type Booking struct {
	Appointment domain.Appointment `json:"appointment"`
	Message     string             `json:"message"`
}

// BookAppointment validates the form and stores the appointment.
//
// The free-slot check and the insert are two separate store calls, so two
// concurrent requests for the same slot can both succeed.
func (a *App) BookAppointment(ctx context.Context, sess domain.Session, in BookingInput) (Booking, error) {
	in = trimBooking(in)
	if in.Name == "" || in.EnrollmentNumber == "" || in.ContactNumber == "" || in.Disease == "" ||
		in.DoctorID == "" || in.Date == "" || in.TimeSlot == "" || in.College == "" {
		return Booking{}, ErrAppointmentFields
	}
	if len([]rune(in.EnrollmentNumber)) > maxEnrollmentLength {
		return Booking{}, ErrInvalidEnrollment
	}
	contact := strings.TrimPrefix(in.ContactNumber, contactPrefix)
	if len(contact) == 0 || len(contact) > maxContactDigits || strings.IndexFunc(contact, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return Booking{}, ErrInvalidContact
	}
	if !domain.IsDepartment(in.College) {
		return Booking{}, ErrUnknownDepartment
	}
	hostel := domain.CommuterStatus
	switch in.Hosteller {
	case domain.HostellerStatus:
		if !domain.IsHostel(in.Hostel) {
			return Booking{}, ErrUnknownHostel
		}
		hostel = in.Hostel
	case domain.CommuterStatus:
	default:
		return Booking{}, ErrInvalidHosteller
	}

	day, err := scheduling.ParseDate(in.Date)
	if err != nil {
		return Booking{}, ErrInvalidDate
	}
	if day.Before(a.today()) {
		return Booking{}, ErrDateInPast
	}
	doctor, ok, err := a.store.GetDoctor(ctx, in.DoctorID)
	if err != nil {
		return Booking{}, fmt.Errorf("fetch doctor: %w", err)
	}
	if !ok {
		return Booking{}, ErrNotFound
	}
	if !scheduling.WorksOn(doctor.AvailabilityDays, day) {
		return Booking{}, ErrDoctorUnavailable
	}
	date := day.Format(scheduling.DateLayout)
	labels, err := scheduling.DayLabels(doctor.WorkHours.StartTime, doctor.WorkHours.EndTime)
	if err != nil {
		return Booking{}, fmt.Errorf("doctor %s work hours: %w", doctor.ID, err)
	}
	if !slices.Contains(labels, in.TimeSlot) {
		return Booking{}, ErrUnknownSlot
	}
	taken, err := a.store.AppointmentExists(ctx, doctor.ID, date, in.TimeSlot)
	if err != nil {
		return Booking{}, fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return Booking{}, ErrSlotTaken
	}

	appt, err := a.store.CreateAppointment(ctx, domain.Appointment{
		UserID:               sess.SubjectID,
		Name:                 in.Name,
		EnrollmentNumber:     in.EnrollmentNumber,
		Hosteller:            in.Hosteller,
		Hostel:               hostel,
		ContactNumber:        contactPrefix + contact,
		College:              in.College,
		DoctorID:             doctor.ID,
		DoctorName:           doctor.Name,
		DoctorSpecialization: doctor.Specialization,
		DoctorWorkHours:      doctor.WorkHours,
		Disease:              in.Disease,
		Date:                 date,
		TimeSlot:             in.TimeSlot,
		AppointmentTime:      a.now().UTC(),
	})
	if err != nil {
		return Booking{}, fmt.Errorf("create appointment: %w", err)
	}
	return Booking{Appointment: appt, Message: bookedMessage}, nil
}

// MyAppointments lists the caller's bookings.
func (a *App) MyAppointments(ctx context.Context, sess domain.Session) ([]domain.Appointment, error) {
	items, err := a.store.ListAppointments(ctx, store.AppointmentFilter{UserID: sess.SubjectID})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return items, nil
}

func trimBooking(in BookingInput) BookingInput {
	in.Name = strings.TrimSpace(in.Name)
	in.EnrollmentNumber = strings.TrimSpace(in.EnrollmentNumber)
	in.Hosteller = strings.TrimSpace(in.Hosteller)
	in.Hostel = strings.TrimSpace(in.Hostel)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	in.College = strings.TrimSpace(in.College)
	in.DoctorID = strings.TrimSpace(in.DoctorID)
	in.Disease = strings.TrimSpace(in.Disease)
	in.Date = strings.TrimSpace(in.Date)
	in.TimeSlot = strings.TrimSpace(in.TimeSlot)
	return in
}
