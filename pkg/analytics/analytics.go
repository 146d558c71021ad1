// Package analytics records signups and assistant queries in the relational
// users/queries tables shown on the admin dashboard.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paradise-007/healthally/pkg/queue"
)

const (
	KindSignup = "signup"
	KindQuery  = "query"
)

// Query kinds.
const (
	QueryAsk            = "ask"
	QuerySymptoms       = "symptoms"
	QueryMedicineSearch = "medicine_search"
)

type SignupEvent struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Hostel     string    `json:"hostel"`
	At         time.Time `json:"at"`
}

type QueryEvent struct {
	ID       string         `json:"id"`
	UserID   string         `json:"userId"`
	Username string         `json:"username"`
	Kind     string         `json:"kind"`
	Query    string         `json:"query"`
	Matched  bool           `json:"matched"`
	Details  map[string]any `json:"details,omitempty"`
	At       time.Time      `json:"at"`
}

// UserRow and QueryRow are the dashboard views of the two tables.
type UserRow struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Hostel     string    `json:"hostel"`
	SignedUpAt time.Time `json:"signedUpAt"`
}

type QueryRow struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Username  string          `json:"username"`
	Kind      string          `json:"kind"`
	Query     string          `json:"query"`
	Matched   bool            `json:"matched"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Store persists analytics rows. Saving an event id twice is a no-op so
// redelivered queue events do not duplicate rows.
type Store interface {
	SaveSignup(ctx context.Context, ev SignupEvent) error
	SaveQuery(ctx context.Context, ev QueryEvent) error
	// ListUsers and ListQueries return the newest rows first; limit <= 0 means all.
	ListUsers(ctx context.Context, limit int) ([]UserRow, error)
	ListQueries(ctx context.Context, limit int) ([]QueryRow, error)
}

// Recorder accepts events from request handlers.
type Recorder interface {
	RecordSignup(ctx context.Context, ev SignupEvent) error
	RecordQuery(ctx context.Context, ev QueryEvent) error
}

// NopRecorder drops every event. Used when no analytics database is configured.
type NopRecorder struct{}

func (NopRecorder) RecordSignup(context.Context, SignupEvent) error { return nil }
func (NopRecorder) RecordQuery(context.Context, QueryEvent) error   { return nil }

// DirectRecorder writes events synchronously.
type DirectRecorder struct {
	store Store
}

func NewDirectRecorder(store Store) *DirectRecorder {
	return &DirectRecorder{store: store}
}

func (r *DirectRecorder) RecordSignup(ctx context.Context, ev SignupEvent) error {
	return r.store.SaveSignup(ctx, normalizeSignup(ev))
}

func (r *DirectRecorder) RecordQuery(ctx context.Context, ev QueryEvent) error {
	return r.store.SaveQuery(ctx, normalizeQuery(ev))
}

// Publisher is the producing side of an event queue.
type Publisher interface {
	Publish(ctx context.Context, kind string, payload []byte) (string, error)
}

// QueueRecorder hands events to a queue; a consumer built with NewEventHandler stores them.
type QueueRecorder struct {
	pub Publisher
}

func NewQueueRecorder(pub Publisher) *QueueRecorder {
	return &QueueRecorder{pub: pub}
}

func (r *QueueRecorder) RecordSignup(ctx context.Context, ev SignupEvent) error {
	return r.publish(ctx, KindSignup, normalizeSignup(ev))
}

func (r *QueueRecorder) RecordQuery(ctx context.Context, ev QueryEvent) error {
	return r.publish(ctx, KindQuery, normalizeQuery(ev))
}

func (r *QueueRecorder) publish(ctx context.Context, kind string, ev any) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", kind, err)
	}
	_, err = r.pub.Publish(ctx, kind, payload)
	return err
}

var errUnknownKind = errors.New("unknown analytics event kind")

// NewEventHandler decodes queued events and saves them into store.
func NewEventHandler(store Store) queue.Handler {
	return func(ctx context.Context, ev queue.Event) error {
		switch ev.Kind {
		case KindSignup:
			var s SignupEvent
			if err := json.Unmarshal(ev.Payload, &s); err != nil {
				return fmt.Errorf("decode signup event: %w", err)
			}
			return store.SaveSignup(ctx, normalizeSignup(s))
		case KindQuery:
			var q QueryEvent
			if err := json.Unmarshal(ev.Payload, &q); err != nil {
				return fmt.Errorf("decode query event: %w", err)
			}
			return store.SaveQuery(ctx, normalizeQuery(q))
		}
		return fmt.Errorf("%w: %q", errUnknownKind, ev.Kind)
	}
}

func normalizeSignup(ev SignupEvent) SignupEvent {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return ev
}

func normalizeQuery(ev QueryEvent) QueryEvent {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return ev
}
