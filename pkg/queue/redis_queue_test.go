package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T) *RedisEventQueue {
	t.Helper()
	redisSrv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: redisSrv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q, err := NewRedisEventQueue(client, RedisQueueConfig{
		Stream:     "test:events",
		Group:      "test-group",
		Consumer:   "consumer",
		RetryDelay: time.Millisecond,
		Block:      20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	return q
}

func TestRedisEventQueueRetriesThenSucceeds(t *testing.T) {
	q := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan Event, 1)
	err := q.Start(ctx, 1, func(_ context.Context, ev Event) error {
		if calls.Add(1) == 1 {
			return errors.New("database down")
		}
		done <- ev
		return nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := q.Publish(ctx, "query", []byte(`{"query":"fever"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case ev := <-done:
		if ev.Kind != "query" || string(ev.Payload) != `{"query":"fever"}` || ev.Attempts != 2 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("event was not delivered")
	}
	cancel()
	q.Wait()
}

func TestRedisEventQueueGivesUpAfterMaxRetries(t *testing.T) {
	q := newTestQueue(t)
	q.maxRetries = 2
	ctx := context.Background()
	if err := q.ensureGroup(ctx); err != nil {
		t.Fatalf("ensure group: %v", err)
	}
	if _, err := q.Publish(ctx, "signup", []byte(`{}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	var calls int
	handler := func(context.Context, Event) error {
		calls++
		return errors.New("always fails")
	}
	for i := 0; i < 2; i++ {
		msg := readOne(t, q, "c1")
		q.handleMessage(ctx, msg, handler)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	if n, _ := q.client.XLen(ctx, q.stream).Result(); n != 0 {
		t.Fatalf("expected the event to be dropped after max retries, stream len %d", n)
	}
}

func TestRedisEventQueueRequeueAndAckSuccess(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	if err := q.ensureGroup(ctx); err != nil {
		t.Fatalf("ensure group: %v", err)
	}
	if _, err := q.Publish(ctx, "query", []byte("p")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	msg := readOne(t, q, "c1")
	ev, ok := decodeEvent(msg)
	if !ok {
		t.Fatalf("decode event from %+v", msg.Values)
	}
	ev.Attempts = 1

	if err := q.requeueAndAck(ctx, msg.ID, ev); err != nil {
		t.Fatalf("requeue and ack: %v", err)
	}
	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected no pending messages, got %d", pending.Count)
	}
	again := readOne(t, q, "c2")
	if again.Values["event_id"] != ev.ID || again.Values["attempts"] != "1" {
		t.Fatalf("unexpected requeued payload: %+v", again.Values)
	}
}

func TestRedisEventQueueRequeueFailureKeepsPendingMessage(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	if err := q.ensureGroup(ctx); err != nil {
		t.Fatalf("ensure group: %v", err)
	}
	if _, err := q.Publish(ctx, "query", []byte("p")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	msg := readOne(t, q, "c1")
	ev, _ := decodeEvent(msg)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := q.requeueAndAck(canceled, msg.ID, ev); err == nil {
		t.Fatalf("expected requeueAndAck to fail on canceled context")
	}
	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 1 {
		t.Fatalf("expected original message to remain pending, got %d", pending.Count)
	}
	if n, _ := q.client.XLen(ctx, q.stream).Result(); n != 1 {
		t.Fatalf("expected no new message in stream on failure, got len=%d", n)
	}
}

func TestPublishRequiresKind(t *testing.T) {
	q := newTestQueue(t)
	if _, err := q.Publish(context.Background(), " ", nil); err == nil {
		t.Fatalf("expected error for empty kind")
	}
}

func readOne(t *testing.T, q *RedisEventQueue, consumer string) redis.XMessage {
	t.Helper()
	streams, err := q.client.XReadGroup(context.Background(), &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    -1,
	}).Result()
	if err != nil {
		t.Fatalf("readgroup: %v", err)
	}
	if len(streams) != 1 || len(streams[0].Messages) != 1 {
		t.Fatalf("expected one message, got %+v", streams)
	}
	return streams[0].Messages[0]
}
