package app

import (
	"context"
	"errors"
	"testing"

	"github.com/paradise-007/healthally/pkg/domain"
)

func seedDoctor(t *testing.T, env *testEnv, specialization string, days ...string) domain.Doctor {
	t.Helper()
	doc, err := env.store.CreateDoctor(context.Background(), domain.Doctor{
		Name:             "Dr. Rao",
		Specialization:   specialization,
		WorkHours:        domain.WorkHours{StartTime: "09:00 AM", EndTime: "10:00 AM"},
		AvailabilityDays: days,
	})
	if err != nil {
		t.Fatalf("seed doctor: %v", err)
	}
	return doc
}

func validBooking(doctorID string) BookingInput {
	return BookingInput{
		Name:             "Asha Patel",
		EnrollmentNumber: "22012011001",
		Hosteller:        domain.CommuterStatus,
		ContactNumber:    "9876543210",
		College:          "ICT",
		DoctorID:         doctorID,
		Disease:          "Fever",
		Date:             "2024-06-03",
		TimeSlot:         "09:15 AM - 09:30 AM",
	}
}

func TestListDoctorsGeneralOnly(t *testing.T) {
	env := newTestEnv(t)
	seedDoctor(t, env, "General", "Monday")
	seedDoctor(t, env, "Dermatology", "Tuesday")
	seedDoctor(t, env, "General")
	ctx := context.Background()

	all, err := env.app.ListDoctors(ctx, false)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected two bookable doctors, got %d err=%v", len(all), err)
	}
	general, _ := env.app.ListDoctors(ctx, true)
	if len(general) != 1 || general[0].Specialization != "General" {
		t.Fatalf("unexpected general doctors %+v", general)
	}
	admin, _ := env.app.AdminListDoctors(ctx)
	if len(admin) != 3 {
		t.Fatalf("admin list should include unavailable doctors, got %d", len(admin))
	}
}

func TestDoctorSlotsAndBooking(t *testing.T) {
	env := newTestEnv(t)
	doc := seedDoctor(t, env, "General", "Monday")
	_, sess := env.signUp(t, "asha", "ICT")
	ctx := context.Background()

	slots, err := env.app.DoctorSlots(ctx, doc.ID, "2024-06-03")
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if !slots.Available || len(slots.Slots) != 4 || slots.Slots[0] != "09:00 AM - 09:15 AM" {
		t.Fatalf("unexpected slots %+v", slots)
	}

	booking, err := env.app.BookAppointment(ctx, sess, validBooking(doc.ID))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	appt := booking.Appointment
	if appt.ContactNumber != "+919876543210" || appt.Hostel != domain.CommuterStatus || appt.UserID != sess.SubjectID {
		t.Fatalf("unexpected appointment %+v", appt)
	}
	if appt.DoctorName != "Dr. Rao" || appt.DoctorWorkHours.EndTime != "10:00 AM" || !appt.AppointmentTime.Equal(monday) {
		t.Fatalf("doctor details not copied %+v", appt)
	}
	if booking.Message != bookedMessage {
		t.Fatalf("unexpected message %q", booking.Message)
	}

	slots, _ = env.app.DoctorSlots(ctx, doc.ID, "2024-06-03")
	if len(slots.Slots) != 3 {
		t.Fatalf("booked slot should disappear, got %v", slots.Slots)
	}
	for _, s := range slots.Slots {
		if s == "09:15 AM - 09:30 AM" {
			t.Fatalf("booked slot still listed")
		}
	}
	if _, err := env.app.BookAppointment(ctx, sess, validBooking(doc.ID)); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	mine, err := env.app.MyAppointments(ctx, sess)
	if err != nil || len(mine) != 1 {
		t.Fatalf("expected one appointment, got %d err=%v", len(mine), err)
	}
}

func TestDoctorSlotsOffDay(t *testing.T) {
	env := newTestEnv(t)
	doc := seedDoctor(t, env, "General", "Monday")
	slots, err := env.app.DoctorSlots(context.Background(), doc.ID, "2024-06-04")
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if slots.Available || len(slots.Slots) != 0 || slots.Message != "The selected doctor is not available on Tuesday. Please choose another date." {
		t.Fatalf("unexpected off day result %+v", slots)
	}
	if _, err := env.app.DoctorSlots(context.Background(), "missing", "2024-06-04"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDoctorSlotsFullyBooked(t *testing.T) {
	env := newTestEnv(t)
	doc := seedDoctor(t, env, "General", "Monday")
	_, sess := env.signUp(t, "asha", "ICT")
	ctx := context.Background()
	for _, slot := range []string{"09:00 AM - 09:15 AM", "09:15 AM - 09:30 AM", "09:30 AM - 09:45 AM", "09:45 AM - 10:00 AM"} {
		in := validBooking(doc.ID)
		in.TimeSlot = slot
		if _, err := env.app.BookAppointment(ctx, sess, in); err != nil {
			t.Fatalf("book %s: %v", slot, err)
		}
	}
	slots, err := env.app.DoctorSlots(ctx, doc.ID, "2024-06-03")
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if !slots.Available || len(slots.Slots) != 0 || slots.Message != noSlotsMessage {
		t.Fatalf("unexpected fully booked result %+v", slots)
	}
}

func TestBookAppointmentValidation(t *testing.T) {
	env := newTestEnv(t)
	doc := seedDoctor(t, env, "General", "Monday")
	_, sess := env.signUp(t, "asha", "ICT")

	cases := map[string]struct {
		mutate func(*BookingInput)
		want   error
	}{
		"missing disease":  {func(in *BookingInput) { in.Disease = " " }, ErrAppointmentFields},
		"long enrollment":  {func(in *BookingInput) { in.EnrollmentNumber = "220120110012" }, ErrInvalidEnrollment},
		"letters in phone": {func(in *BookingInput) { in.ContactNumber = "98765abc" }, ErrInvalidContact},
		"long phone":       {func(in *BookingInput) { in.ContactNumber = "98765432101" }, ErrInvalidContact},
		"unknown college":  {func(in *BookingInput) { in.College = "MIT" }, ErrUnknownDepartment},
		"hosteller hostel": {func(in *BookingInput) { in.Hosteller = domain.HostellerStatus; in.Hostel = "" }, ErrUnknownHostel},
		"bad status":       {func(in *BookingInput) { in.Hosteller = "Visitor" }, ErrInvalidHosteller},
		"past date":        {func(in *BookingInput) { in.Date = "2024-05-27" }, ErrDateInPast},
		"off day":          {func(in *BookingInput) { in.Date = "2024-06-04" }, ErrDoctorUnavailable},
		"bad slot":         {func(in *BookingInput) { in.TimeSlot = "11:00 AM - 11:15 AM" }, ErrUnknownSlot},
		"missing doctor":   {func(in *BookingInput) { in.DoctorID = "nope" }, ErrNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := validBooking(doc.ID)
			tc.mutate(&in)
			if _, err := env.app.BookAppointment(context.Background(), sess, in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBookAppointmentHostellerKeepsHostel(t *testing.T) {
	env := newTestEnv(t)
	doc := seedDoctor(t, env, "General", "Monday")
	_, sess := env.signUp(t, "asha", "ICT")
	in := validBooking(doc.ID)
	in.Hosteller = domain.HostellerStatus
	in.Hostel = "VISHWA HOSTEL"
	in.ContactNumber = "+919876543210"
	booking, err := env.app.BookAppointment(context.Background(), sess, in)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if booking.Appointment.Hostel != "VISHWA HOSTEL" || booking.Appointment.ContactNumber != "+919876543210" {
		t.Fatalf("unexpected appointment %+v", booking.Appointment)
	}
}
