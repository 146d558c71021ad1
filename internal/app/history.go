package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paradise-007/healthally/pkg/domain"
	"github.com/paradise-007/healthally/pkg/scheduling"
)

// HistoryFilter narrows the chat history. Empty dates leave that side open.
type HistoryFilter struct {
	Start  string
	End    string
	Search string
}

// ChatSession groups the messages of one calendar day.
type ChatSession struct {
	Date     string               `json:"date"`
	Messages []domain.ChatMessage `json:"messages"`
}

// History returns the caller's messages oldest first, filtered by inclusive
// date range and case-insensitive substring, grouped by calendar date.
func (a *App) History(ctx context.Context, sess domain.Session, filter HistoryFilter) ([]ChatSession, error) {
	var start, end time.Time
	var err error
	if s := strings.TrimSpace(filter.Start); s != "" {
		if start, err = scheduling.ParseDate(s); err != nil {
			return nil, ErrInvalidDate
		}
	}
	if e := strings.TrimSpace(filter.End); e != "" {
		if end, err = scheduling.ParseDate(e); err != nil {
			return nil, ErrInvalidDate
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return nil, ErrInvalidDateRange
	}
	msgs, err := a.store.ListChatMessages(ctx, sess.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	needle := strings.ToLower(strings.TrimSpace(filter.Search))

	sessions := []ChatSession{}
	for _, msg := range msgs {
		day := a.calendarDay(msg.Timestamp)
		if !start.IsZero() && day.Before(start) {
			continue
		}
		if !end.IsZero() && day.After(end) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(msg.Message), needle) {
			continue
		}
		label := day.Format(scheduling.DateLayout)
		if n := len(sessions); n == 0 || sessions[n-1].Date != label {
			sessions = append(sessions, ChatSession{Date: label})
		}
		last := &sessions[len(sessions)-1]
		last.Messages = append(last.Messages, msg)
	}
	return sessions, nil
}

// calendarDay is the local date of t at midnight UTC, comparable with scheduling.ParseDate.
func (a *App) calendarDay(t time.Time) time.Time {
	local := t.In(a.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
