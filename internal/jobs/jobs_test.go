package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct {
	calls atomic.Int32
	n     int
	err   error
}

func (p *countingPurger) PurgeExpiredExports(ctx context.Context) (int, error) {
	p.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("missing deadline")
	}
	return p.n, p.err
}

func TestStartValidates(t *testing.T) {
	if _, err := Start(context.Background(), Config{PurgeEvery: time.Hour}); err == nil {
		t.Fatalf("expected error without purger")
	}
	if _, err := Start(context.Background(), Config{Exports: &countingPurger{}}); err == nil {
		t.Fatalf("expected error without interval")
	}
}

func TestStartRunsPurge(t *testing.T) {
	purger := &countingPurger{}
	scheduler, err := Start(context.Background(), Config{Exports: purger, PurgeEvery: time.Hour})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer scheduler.Stop()
	if scheduler.Len() != 1 {
		t.Fatalf("expected one job, got %d", scheduler.Len())
	}
	deadline := time.Now().Add(2 * time.Second)
	for purger.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if purger.calls.Load() == 0 {
		t.Fatalf("purge did not run on start")
	}
}

func TestPurgeExportsLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	PurgeExports(context.Background(), &countingPurger{n: 2}, time.Second, logger)
	if !strings.Contains(buf.String(), "purged=2") {
		t.Fatalf("expected purge count in log, got %q", buf.String())
	}

	buf.Reset()
	PurgeExports(context.Background(), &countingPurger{err: errors.New("boom")}, time.Second, logger)
	if !strings.Contains(buf.String(), "export purge failed") {
		t.Fatalf("expected failure log, got %q", buf.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	purger := &countingPurger{}
	PurgeExports(ctx, purger, time.Second, logger)
	if purger.calls.Load() != 0 {
		t.Fatalf("purge ran after cancellation")
	}
}
