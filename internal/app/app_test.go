package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/paradise-007/healthally/pkg/analytics"
	"github.com/paradise-007/healthally/pkg/domain"
	"github.com/paradise-007/healthally/pkg/reference"
	"github.com/paradise-007/healthally/pkg/storage"
	"github.com/paradise-007/healthally/pkg/store"
)

const testMedicines = `name,composition,uses,price
Paracetamol,Acetaminophen 500mg,fever and headache relief,25
Cetirizine,Cetirizine 10mg,allergy and cold,
Ibuprofen,Ibuprofen 400mg,pain fever inflammation,40
`

const testSymptoms = `Symptom,Condition,Treatment,Precaution,Medicine
headache and fever,Flu,Rest and fluids,Stay hydrated,Paracetamol + Cetirizine
headache,Migraine,Dark room,Avoid screens,Ibuprofen
`

// monday is 2024-06-03 09:00 UTC.
var monday = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

type fakeAdvisor struct {
	answer string
	err    error
	asked  []string
}

func (f *fakeAdvisor) Advise(_ context.Context, question string) (string, error) {
	f.asked = append(f.asked, question)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type testEnv struct {
	app       *App
	store     *store.MemoryStore
	sessions  *store.MemorySessionStore
	analytics *analytics.MemoryStore
	exports   *storage.MemoryStore
	advisor   *fakeAdvisor
	clock     *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	medicines, err := reference.ParseMedicineCSV(strings.NewReader(testMedicines))
	if err != nil {
		t.Fatalf("parse medicines: %v", err)
	}
	symptoms, err := reference.ParseSymptomCSV(strings.NewReader(testSymptoms))
	if err != nil {
		t.Fatalf("parse symptoms: %v", err)
	}
	clock := monday
	env := &testEnv{
		store:     store.NewMemoryStore(),
		sessions:  store.NewMemorySessionStore(time.Hour),
		analytics: analytics.NewMemoryStore(),
		exports:   storage.NewMemoryStore(),
		advisor:   &fakeAdvisor{answer: "Drink plenty of water."},
		clock:     &clock,
	}
	env.app, err = New(Config{
		Store:     env.store,
		Sessions:  env.sessions,
		Medicines: medicines,
		Symptoms:  symptoms,
		Advisor:   env.advisor,
		Recorder:  analytics.NewDirectRecorder(env.analytics),
		Analytics: env.analytics,
		Exports:   env.exports,
		Location:  time.UTC,
		Now:       func() time.Time { return *env.clock },
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return env
}

func (e *testEnv) signUp(t *testing.T, username, department string) (domain.User, domain.Session) {
	t.Helper()
	user, token, err := e.app.SignUp(context.Background(), SignupInput{
		Username:   username,
		Email:      username + "@example.edu",
		Password:   "secret-pass",
		Department: department,
		Hostel:     "VISHWA HOSTEL",
	})
	if err != nil {
		t.Fatalf("sign up %s: %v", username, err)
	}
	sess, ok, err := e.app.ResolveSession(context.Background(), token)
	if err != nil || !ok {
		t.Fatalf("resolve session: ok=%v err=%v", ok, err)
	}
	return user, sess
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without store")
	}
	if _, err := New(Config{Store: store.NewMemoryStore(), Sessions: store.NewMemorySessionStore(time.Hour)}); err == nil {
		t.Fatalf("expected error without reference data")
	}
}

func TestInputErrorsMatchInvalidInput(t *testing.T) {
	for _, err := range []error{ErrUnknownDepartment, ErrAppointmentFields, ErrInvalidContact, ErrQueryRequired} {
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%v should match ErrInvalidInput", err)
		}
	}
	if errors.Is(ErrSlotTaken, ErrInvalidInput) {
		t.Fatalf("slot conflicts are not input errors")
	}
}

func TestCatalogAddsOthersForUsers(t *testing.T) {
	env := newTestEnv(t)
	c := env.app.Catalog()
	if len(c.UserDepartments) != len(c.Departments)+1 || c.UserDepartments[len(c.UserDepartments)-1] != domain.OtherDepartment {
		t.Fatalf("unexpected user departments %v", c.UserDepartments)
	}
	if len(domain.Departments) != len(c.Departments) {
		t.Fatalf("catalog must not mutate the department list")
	}
}
