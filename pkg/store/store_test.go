package store

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/paradise-007/healthally/pkg/domain"
)

func TestMemoryStoreRejectsDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u, err := s.CreateUser(ctx, domain.User{Username: "asha", Department: "ICT"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, ok := objectID(u.ID); !ok {
		t.Fatalf("memory ids should be object id hex, got %q", u.ID)
	}
	if _, err := s.CreateUser(ctx, domain.User{Username: "asha"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	other, _ := s.CreateUser(ctx, domain.User{Username: "ravi"})
	other.Username = "asha"
	if _, err := s.UpdateUser(ctx, other); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("rename onto a taken username should fail, got %v", err)
	}
}

func TestMemoryStoreUpdateKeepsPasswordAndLastLogin(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u, _ := s.CreateUser(ctx, domain.User{Username: "asha", PasswordHash: "hash"})
	at := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	if err := s.SetLastLogin(ctx, u.ID, at); err != nil {
		t.Fatalf("set last login: %v", err)
	}
	ok, err := s.UpdateUser(ctx, domain.User{ID: u.ID, Username: "asha", Email: "a@x.in"})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	got, _, _ := s.GetUserByID(ctx, u.ID)
	if got.PasswordHash != "hash" || !got.LastLogin.Equal(at) || got.Email != "a@x.in" {
		t.Fatalf("unexpected user %+v", got)
	}
}

func TestMemoryStoreBookedSlotsAndDoctors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	doc, _ := s.CreateDoctor(ctx, domain.Doctor{Name: "Dr. Shah", Specialization: "General", AvailabilityDays: []string{"Monday"}})
	_, _ = s.CreateDoctor(ctx, domain.Doctor{Name: "Dr. Off", Specialization: "General"})
	_, _ = s.CreateDoctor(ctx, domain.Doctor{Name: "Dr. Eye", Specialization: "Eye", AvailabilityDays: []string{"Friday"}})

	general, _ := s.ListDoctors(ctx, DoctorFilter{Specialization: "General"})
	if len(general) != 1 || general[0].ID != doc.ID {
		t.Fatalf("expected only the available general doctor, got %+v", general)
	}
	all, _ := s.ListDoctors(ctx, DoctorFilter{})
	if len(all) != 2 {
		t.Fatalf("doctors without availability must be hidden, got %d", len(all))
	}

	_, _ = s.CreateAppointment(ctx, domain.Appointment{DoctorID: doc.ID, Date: "2024-06-03", TimeSlot: "09:00 AM - 09:15 AM"})
	exists, _ := s.AppointmentExists(ctx, doc.ID, "2024-06-03", "09:00 AM - 09:15 AM")
	if !exists {
		t.Fatalf("expected appointment to exist")
	}
	booked, _ := s.BookedSlots(ctx, doc.ID, "2024-06-03")
	if !reflect.DeepEqual(booked, []string{"09:00 AM - 09:15 AM"}) {
		t.Fatalf("unexpected booked slots %v", booked)
	}
	if other, _ := s.BookedSlots(ctx, doc.ID, "2024-06-10"); len(other) != 0 {
		t.Fatalf("other dates should be free, got %v", other)
	}
}

func TestMemoryStoreChatOrderingAndCounts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	_, _ = s.AppendChatMessage(ctx, domain.ChatMessage{UserID: "u1", Message: "second", Timestamp: base.Add(time.Minute)})
	_, _ = s.AppendChatMessage(ctx, domain.ChatMessage{UserID: "u1", Message: "first", Timestamp: base})
	_, _ = s.AppendChatMessage(ctx, domain.ChatMessage{UserID: "u2", Message: "other", Timestamp: base})

	msgs, _ := s.ListChatMessages(ctx, "u1")
	if len(msgs) != 2 || msgs[0].Message != "first" || msgs[1].Message != "second" {
		t.Fatalf("unexpected order %+v", msgs)
	}
	all, _ := s.ListChatMessages(ctx, "")
	if len(all) != 3 {
		t.Fatalf("expected all messages, got %d", len(all))
	}
	if n, _ := s.Count(ctx, CollectionChatHistory); n != 3 {
		t.Fatalf("unexpected count %d", n)
	}
	ok, _ := s.DeleteChatMessage(ctx, msgs[0].ID)
	if !ok {
		t.Fatalf("expected delete")
	}
	if n, _ := s.Count(ctx, CollectionChatHistory); n != 2 {
		t.Fatalf("unexpected count after delete %d", n)
	}
}

func TestChatDocDecodesLegacyRecords(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "user_id", Value: "u1"},
		{Key: "message", Value: bson.D{
			{Key: "name", Value: "Paracetamol"},
			{Key: "composition", Value: math.NaN()},
			{Key: "price", Value: int32(25)},
		}},
		{Key: "role", Value: "medicine"},
		{Key: "timestamp", Value: int64(1717405200000)},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc chatDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	msg := fromChatDoc(doc)
	if msg.Message != "name: Paracetamol\nprice: 25" {
		t.Fatalf("unexpected message %q", msg.Message)
	}
	if !msg.Timestamp.Equal(time.UnixMilli(1717405200000)) {
		t.Fatalf("unexpected timestamp %v", msg.Timestamp)
	}
	if msg.Role != domain.ChatRoleMedicine {
		t.Fatalf("unexpected role %q", msg.Role)
	}
}

func TestChatDocWritesDatetime(t *testing.T) {
	at := time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)
	raw, err := bson.Marshal(toChatDoc(domain.ChatMessage{UserID: "u1", Message: "hi", Role: domain.ChatRoleUser, Timestamp: at}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ts := bson.Raw(raw).Lookup("timestamp")
	if ts.Type != bson.TypeDateTime {
		t.Fatalf("expected datetime, got %s", ts.Type)
	}
	var doc chatDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := time.Time(doc.Timestamp); !got.Equal(at) {
		t.Fatalf("unexpected timestamp %v", got)
	}
	if _, ok := bson.Raw(raw).Lookup("_id").ObjectIDOK(); ok {
		t.Fatalf("zero id should be omitted")
	}
}

func TestAppointmentDocKeepsLegacyShape(t *testing.T) {
	doctor := primitive.NewObjectID().Hex()
	a := domain.Appointment{
		DoctorID:        doctor,
		DoctorWorkHours: domain.WorkHours{StartTime: "09:00 AM", EndTime: "05:00 PM"},
		Date:            "2024-06-03",
		TimeSlot:        "09:00 AM - 09:15 AM",
	}
	raw, err := bson.Marshal(toAppointmentDoc(a))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["doctor_id"] != doctor || m["doctor_work_hours"] != "09:00 AM - 05:00 PM" {
		t.Fatalf("unexpected stored fields %v", m)
	}
	var doc appointmentDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := fromAppointmentDoc(doc).DoctorWorkHours; got != a.DoctorWorkHours {
		t.Fatalf("work hours round trip = %+v", got)
	}
}
