package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/paradise-007/healthally/pkg/domain"
	"github.com/paradise-007/healthally/pkg/store"
)

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	user, sess := env.signUp(t, "asha", "ICT")
	ctx := context.Background()

	updated, err := env.app.UpdateProfile(ctx, sess, ProfileUpdate{
		Email:      strPtr(" new@example.edu "),
		Department: strPtr(domain.OtherDepartment),
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Email != "new@example.edu" || updated.Department != domain.OtherDepartment || updated.Hostel != "VISHWA HOSTEL" {
		t.Fatalf("unexpected profile %+v", updated)
	}
	if _, _, err := env.app.Login(ctx, "asha", "secret-pass"); err != nil {
		t.Fatalf("password must survive a profile update: %v", err)
	}
	if _, err := env.app.UpdateProfile(ctx, sess, ProfileUpdate{Hostel: strPtr("Nowhere")}); !errors.Is(err, ErrUnknownHostel) {
		t.Fatalf("expected ErrUnknownHostel, got %v", err)
	}
	stored, _, _ := env.store.GetUserByID(ctx, user.ID)
	if stored.Hostel != "VISHWA HOSTEL" {
		t.Fatalf("rejected update must not be stored")
	}
}

func TestAdminUserAndAdminManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asha, _ := env.signUp(t, "asha", "ICT")
	env.signUp(t, "ravi", "CCE")

	if _, err := env.app.AdminUpdateUser(ctx, asha.ID, UserUpdate{Username: strPtr("ravi")}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	updated, err := env.app.AdminUpdateUser(ctx, asha.ID, UserUpdate{Enrollment: strPtr("22012011001")})
	if err != nil || updated.Enrollment != "22012011001" {
		t.Fatalf("admin update: %+v err=%v", updated, err)
	}
	if err := env.app.AdminDeleteUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	root, err := env.app.AdminCreateAdmin(ctx, AdminInput{Username: "root", Password: "pw"})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if _, err := env.app.AdminCreateAdmin(ctx, AdminInput{Username: "root", Password: "pw"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected duplicate admin error, got %v", err)
	}
	sess := domain.Session{Kind: domain.SessionAdmin, SubjectID: root.ID, Username: "root"}
	if err := env.app.AdminDeleteAdmin(ctx, sess, root.ID); !errors.Is(err, ErrCannotDeleteSelf) {
		t.Fatalf("expected ErrCannotDeleteSelf, got %v", err)
	}
	admins, _ := env.app.AdminListAdmins(ctx)
	if len(admins) != 1 {
		t.Fatalf("expected one admin, got %d", len(admins))
	}
}

func TestAdminDoctorValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc, err := env.app.AdminCreateDoctor(ctx, DoctorInput{
		Name:             " Dr. Shah ",
		Specialization:   "General",
		WorkHours:        domain.WorkHours{StartTime: "9:00 am", EndTime: "1:30 pm"},
		AvailabilityDays: []string{"monday", "Friday"},
	})
	if err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	if doc.Name != "Dr. Shah" || doc.WorkHours.StartTime != "09:00 AM" || doc.WorkHours.EndTime != "01:30 PM" {
		t.Fatalf("doctor not normalized %+v", doc)
	}
	if doc.AvailabilityDays[0] != "Monday" {
		t.Fatalf("weekday not normalized %v", doc.AvailabilityDays)
	}

	bad := []DoctorInput{
		{Name: "", WorkHours: domain.WorkHours{StartTime: "09:00 AM", EndTime: "10:00 AM"}},
		{Name: "X", WorkHours: domain.WorkHours{StartTime: "10:00 AM", EndTime: "09:00 AM"}},
		{Name: "X", WorkHours: domain.WorkHours{StartTime: "09:00 AM", EndTime: "10:00 AM"}, AvailabilityDays: []string{"Someday"}},
	}
	for i, in := range bad {
		if _, err := env.app.AdminCreateDoctor(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}

	updated, err := env.app.AdminUpdateDoctor(ctx, doc.ID, DoctorInput{
		Name:      "Dr. Shah",
		WorkHours: domain.WorkHours{StartTime: "10:00 AM", EndTime: "11:00 AM"},
	})
	if err != nil || updated.ID != doc.ID {
		t.Fatalf("update doctor: %+v err=%v", updated, err)
	}
	if err := env.app.AdminDeleteDoctor(ctx, doc.ID); err != nil {
		t.Fatalf("delete doctor: %v", err)
	}
	if err := env.app.AdminDeleteDoctor(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAdminFirstAidRooms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := domain.FirstAidRoom{Department: "ICT", Room: domain.RoomDetails{
		RoomNumber: " A-101 ",
		Medicines:  []domain.StockedMedicine{{Name: " Paracetamol ", Quantity: 3}, {Name: ""}},
	}}
	created, err := env.app.AdminCreateFirstAidRoom(ctx, room)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if created.Room.RoomNumber != "A-101" || len(created.Room.Medicines) != 1 || created.Room.Medicines[0].Name != "Paracetamol" {
		t.Fatalf("room not normalized %+v", created.Room)
	}
	if _, err := env.app.AdminCreateFirstAidRoom(ctx, domain.FirstAidRoom{Department: "ICT", Room: domain.RoomDetails{RoomNumber: "B"}}); !errors.Is(err, ErrRoomExists) {
		t.Fatalf("expected ErrRoomExists, got %v", err)
	}
	if _, err := env.app.AdminCreateFirstAidRoom(ctx, domain.FirstAidRoom{Department: "CCE"}); !errors.Is(err, ErrInvalidRoom) {
		t.Fatalf("expected ErrInvalidRoom, got %v", err)
	}
	other, _ := env.app.AdminCreateFirstAidRoom(ctx, domain.FirstAidRoom{Department: "CCE", Room: domain.RoomDetails{RoomNumber: "C"}})
	other.Department = "ICT"
	if _, err := env.app.AdminUpdateFirstAidRoom(ctx, other.ID, other); !errors.Is(err, ErrRoomExists) {
		t.Fatalf("moving a room onto a taken department should fail, got %v", err)
	}
}

func TestAdminChatsAndAppointments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := seedDoctor(t, env, "General", "Monday")
	_, asha := env.signUp(t, "asha", "ICT")
	_, ravi := env.signUp(t, "ravi", "CCE")
	if _, err := env.app.Ask(ctx, asha, "fever"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if _, err := env.app.Ask(ctx, ravi, "cold"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	all, _ := env.app.AdminListChats(ctx, "")
	mine, _ := env.app.AdminListChats(ctx, asha.SubjectID)
	if len(all) <= len(mine) || len(mine) != 3 {
		t.Fatalf("unexpected chat counts all=%d mine=%d", len(all), len(mine))
	}
	if err := env.app.AdminDeleteChat(ctx, mine[0].ID); err != nil {
		t.Fatalf("delete chat: %v", err)
	}

	booking, err := env.app.BookAppointment(ctx, asha, validBooking(doc.ID))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	list, _ := env.app.AdminListAppointments(ctx, store.AppointmentFilter{DoctorID: doc.ID})
	if len(list) != 1 {
		t.Fatalf("expected one appointment for doctor, got %d", len(list))
	}
	if err := env.app.AdminDeleteAppointment(ctx, booking.Appointment.ID); err != nil {
		t.Fatalf("delete appointment: %v", err)
	}
	slots, _ := env.app.DoctorSlots(ctx, doc.ID, "2024-06-03")
	if len(slots.Slots) != 4 {
		t.Fatalf("deleted appointment should free its slot, got %v", slots.Slots)
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signUp(t, "asha", "ICT")
	env.signUp(t, "ravi", "ICT")
	_, meera := env.signUp(t, "meera", "CCE")
	seedDoctor(t, env, "General", "Monday")
	if _, err := env.app.SearchMedicines(ctx, meera, "fever"); err != nil {
		t.Fatalf("search: %v", err)
	}

	dash, err := env.app.Dashboard(ctx, nil)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Counts[store.CollectionUsers] != 3 || dash.Counts[store.CollectionDoctors] != 1 || dash.Counts[store.CollectionAppointments] != 0 {
		t.Fatalf("unexpected counts %v", dash.Counts)
	}
	if len(dash.Departments) != 2 || dash.Departments[0] != (DepartmentCount{Department: "ICT", Users: 2}) {
		t.Fatalf("unexpected distribution %+v", dash.Departments)
	}
	if !dash.AnalyticsEnabled || len(dash.AnalyticsUsers) != 3 || len(dash.AnalyticsQueries) != 1 {
		t.Fatalf("unexpected analytics tables users=%d queries=%d", len(dash.AnalyticsUsers), len(dash.AnalyticsQueries))
	}

	filtered, _ := env.app.Dashboard(ctx, []string{"CCE"})
	if len(filtered.Departments) != 1 || filtered.Departments[0].Department != "CCE" {
		t.Fatalf("department filter not applied %+v", filtered.Departments)
	}
}

func TestExportUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signUp(t, "asha", "ICT")

	exp, err := env.app.ExportUsers(ctx, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exp.Rows != 1 || exp.URL != "memory://"+exp.Key || exp.Data != nil {
		t.Fatalf("unexpected export %+v", exp)
	}
	if !exp.ExpiresAt.Equal(monday.Add(env.app.exportLinkTTL)) {
		t.Fatalf("unexpected expiry %v", exp.ExpiresAt)
	}
	obj, ok := env.exports.Get(exp.Key)
	if !ok || obj.ContentType != "text/csv" {
		t.Fatalf("export not uploaded")
	}
	lines := strings.Split(strings.TrimSpace(string(obj.Data)), "\n")
	if len(lines) != 2 || lines[0] != strings.Join(userExportHeader, ",") || !strings.Contains(lines[1], ",asha,") {
		t.Fatalf("unexpected csv %q", obj.Data)
	}

	env.app.exports = nil
	inline, err := env.app.ExportUsers(ctx, "")
	if err != nil || inline.URL != "" || len(inline.Data) == 0 {
		t.Fatalf("expected inline export, got %+v err=%v", inline, err)
	}

	sheet, err := env.app.ExportUsers(ctx, "XLSX")
	if err != nil {
		t.Fatalf("xlsx export: %v", err)
	}
	if sheet.Filename != "users-20240603-090000.xlsx" || sheet.ContentType != xlsxContentType || sheet.Rows != 1 {
		t.Fatalf("unexpected xlsx export %+v", sheet)
	}
	// xlsx files are zip archives
	if !bytes.HasPrefix(sheet.Data, []byte("PK")) {
		t.Fatalf("xlsx payload is not a zip archive")
	}

	if _, err := env.app.ExportUsers(ctx, "pdf"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown format, got %v", err)
	}
}

func TestPurgeExpiredExports(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.exports.Now = func() time.Time { return *env.clock }
	env.signUp(t, "asha", "ICT")

	old, err := env.app.ExportUsers(ctx, "csv")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	*env.clock = monday.Add(env.app.exportLinkTTL + time.Minute)
	fresh, err := env.app.ExportUsers(ctx, "xlsx")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	purged, err := env.app.PurgeExpiredExports(ctx)
	if err != nil || purged != 1 {
		t.Fatalf("expected one purged export, got %d err=%v", purged, err)
	}
	if _, ok := env.exports.Get(old.Key); ok {
		t.Fatalf("expired export still stored")
	}
	if _, ok := env.exports.Get(fresh.Key); !ok {
		t.Fatalf("fresh export was purged")
	}

	env.app.exports = nil
	if purged, err := env.app.PurgeExpiredExports(ctx); err != nil || purged != 0 {
		t.Fatalf("purge without storage: %d %v", purged, err)
	}
}
