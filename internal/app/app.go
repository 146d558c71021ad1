package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paradise-007/healthally/internal/util"
	"github.com/paradise-007/healthally/pkg/analytics"
	"github.com/paradise-007/healthally/pkg/domain"
	"github.com/paradise-007/healthally/pkg/reference"
	"github.com/paradise-007/healthally/pkg/storage"
	"github.com/paradise-007/healthally/pkg/store"
)

// Advisor produces free-text health advice. *ai.Advisor implements it.
type Advisor interface {
	Advise(ctx context.Context, question string) (string, error)
}

// Config holds runtime dependencies for the core application.
type Config struct {
	Store     store.Store
	Sessions  store.SessionStore
	Medicines *reference.MedicineTable
	Symptoms  *reference.SymptomTable
	// Advisor may be nil; ask requests then report an AI error next to the lookup result.
	Advisor Advisor
	// Recorder receives analytics events. Nil drops them.
	Recorder analytics.Recorder
	// Analytics backs the dashboard tables. Nil hides them.
	Analytics analytics.Store
	// Exports receives CSV exports. Nil returns them inline.
	Exports       storage.ObjectStore
	ExportLinkTTL time.Duration
	// Location decides calendar dates for history grouping and booking. Defaults to time.Local.
	Location *time.Location
	Now      func() time.Time
}

// App is the core application service wiring together storage, reference data and advice.
type App struct {
	store         store.Store
	sessions      store.SessionStore
	medicines     *reference.MedicineTable
	symptoms      *reference.SymptomTable
	advisor       Advisor
	recorder      analytics.Recorder
	analytics     analytics.Store
	exports       storage.ObjectStore
	exportLinkTTL time.Duration
	loc           *time.Location
	now           func() time.Time
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store required")
	}
	if cfg.Medicines == nil || cfg.Symptoms == nil {
		return nil, errors.New("reference datasets required")
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = analytics.NopRecorder{}
	}
	ttl := cfg.ExportLinkTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &App{
		store:         cfg.Store,
		sessions:      cfg.Sessions,
		medicines:     cfg.Medicines,
		symptoms:      cfg.Symptoms,
		advisor:       cfg.Advisor,
		recorder:      recorder,
		analytics:     cfg.Analytics,
		exports:       cfg.Exports,
		exportLinkTTL: ttl,
		loc:           loc,
		now:           now,
	}, nil
}

// Catalog lists the fixed campus choices offered by the forms.
type Catalog struct {
	Departments     []string `json:"departments"`
	UserDepartments []string `json:"userDepartments"`
	Hostels         []string `json:"hostels"`
}

func (a *App) Catalog() Catalog {
	userDepartments := append(append([]string{}, domain.Departments...), domain.OtherDepartment)
	return Catalog{
		Departments:     domain.Departments,
		UserDepartments: userDepartments,
		Hostels:         domain.Hostels,
	}
}

// Ready reports whether the stores answer.
func (a *App) Ready(ctx context.Context) error {
	if _, err := a.store.Count(ctx, store.CollectionUsers); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

func (a *App) today() time.Time {
	return a.calendarDay(a.now())
}

// saveMessage appends one chat record for the caller.
func (a *App) saveMessage(ctx context.Context, userID string, role domain.ChatRole, text string) (domain.ChatMessage, error) {
	msg, err := a.store.AppendChatMessage(ctx, domain.ChatMessage{
		UserID:    userID,
		Message:   text,
		Role:      role,
		Timestamp: a.now().UTC(),
	})
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("save %s message: %w", role, err)
	}
	return msg, nil
}

func (a *App) recordQuery(ctx context.Context, sess domain.Session, kind, query string, matched bool, details map[string]any) {
	err := a.recorder.RecordQuery(ctx, analytics.QueryEvent{
		UserID:   sess.SubjectID,
		Username: sess.Username,
		Kind:     kind,
		Query:    query,
		Matched:  matched,
		Details:  details,
		At:       a.now().UTC(),
	})
	if err != nil {
		util.LoggerFromContext(ctx).Warn("analytics query event dropped", "kind", kind, "err", err)
	}
}
