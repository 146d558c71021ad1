// Package queue carries background events over a Redis stream consumer group.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paradise-007/healthally/internal/util"
)

// Event is one queued message. Payload is opaque to the queue.
type Event struct {
	ID         string
	Kind       string
	Payload    []byte
	Attempts   int
	EnqueuedAt time.Time
}

// Handler processes one event. A returned error schedules a retry until MaxRetries.
type Handler func(ctx context.Context, ev Event) error

type RedisEventQueue struct {
	client       *redis.Client
	stream       string
	group        string
	consumerBase string
	maxRetries   int
	block        time.Duration
	claimIdle    time.Duration
	retryDelay   time.Duration
	maxLen       int64
	readCount    int64
	claimCount   int64
	groupOnce    sync.Once
	groupErr     error
	wg           sync.WaitGroup
}

type RedisQueueConfig struct {
	Stream     string
	Group      string
	Consumer   string
	MaxRetries int
	Block      time.Duration
	ClaimIdle  time.Duration
	RetryDelay time.Duration
	MaxLen     int64
	ReadCount  int64
	ClaimCount int64
}

func NewRedisEventQueue(client *redis.Client, cfg RedisQueueConfig) (*RedisEventQueue, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		return nil, errors.New("queue stream required")
	}
	group := strings.TrimSpace(cfg.Group)
	if group == "" {
		group = "default"
	}
	consumer := strings.TrimSpace(cfg.Consumer)
	if consumer == "" {
		consumer = util.NewID()
	}
	q := &RedisEventQueue{
		client:       client,
		stream:       stream,
		group:        group,
		consumerBase: consumer,
		maxRetries:   orDefault(cfg.MaxRetries, 3),
		block:        orDefault(cfg.Block, 5*time.Second),
		claimIdle:    orDefault(cfg.ClaimIdle, 30*time.Second),
		retryDelay:   orDefault(cfg.RetryDelay, 2*time.Second),
		maxLen:       orDefault(cfg.MaxLen, 10000),
		readCount:    orDefault(cfg.ReadCount, 10),
		claimCount:   orDefault(cfg.ClaimCount, 10),
	}
	return q, nil
}

func orDefault[T int | int64 | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// Publish appends an event to the stream.
func (q *RedisEventQueue) Publish(ctx context.Context, kind string, payload []byte) (string, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return "", errors.New("event kind required")
	}
	ev := Event{ID: util.NewID(), Kind: kind, Payload: payload, EnqueuedAt: time.Now().UTC()}
	if err := q.client.XAdd(ctx, q.addArgs(ev)).Err(); err != nil {
		return "", fmt.Errorf("publish %s event: %w", kind, err)
	}
	return ev.ID, nil
}

// Start launches concurrency consumers. They stop when ctx is done; Wait blocks until they have.
func (q *RedisEventQueue) Start(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}
	for i := 0; i < concurrency; i++ {
		consumer := fmt.Sprintf("%s-%d", q.consumerBase, i)
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.consumeLoop(ctx, consumer, handler)
		}()
	}
	return nil
}

func (q *RedisEventQueue) Wait() {
	q.wg.Wait()
}

func (q *RedisEventQueue) ensureGroup(ctx context.Context) error {
	q.groupOnce.Do(func() {
		err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "$").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			q.groupErr = fmt.Errorf("create consumer group: %w", err)
		}
	})
	return q.groupErr
}

func (q *RedisEventQueue) consumeLoop(ctx context.Context, consumer string, handler Handler) {
	for ctx.Err() == nil {
		if msgs, err := q.claimPending(ctx, consumer); err == nil {
			for _, msg := range msgs {
				q.handleMessage(ctx, msg, handler)
			}
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    q.readCount,
			Block:    q.block,
		}).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				slog.Warn("queue read failed", "stream", q.stream, "consumer", consumer, "err", err)
				sleepCtx(ctx, q.retryDelay)
			}
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.handleMessage(ctx, msg, handler)
			}
		}
	}
}

func (q *RedisEventQueue) claimPending(ctx context.Context, consumer string) ([]redis.XMessage, error) {
	res, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  q.claimIdle,
		Start:    "0-0",
		Count:    q.claimCount,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return res, err
}

func (q *RedisEventQueue) handleMessage(ctx context.Context, msg redis.XMessage, handler Handler) {
	ev, ok := decodeEvent(msg)
	if !ok {
		slog.Warn("queue dropped malformed message", "stream", q.stream, "msg_id", msg.ID)
		q.ackAndDel(ctx, msg.ID)
		return
	}
	ev.Attempts++
	err := handler(ctx, ev)
	if err == nil {
		q.ackAndDel(ctx, msg.ID)
		return
	}
	if ev.Attempts >= q.maxRetries {
		slog.Error("queue event failed", "stream", q.stream, "kind", ev.Kind, "event_id", ev.ID, "attempts", ev.Attempts, "err", err)
		q.ackAndDel(ctx, msg.ID)
		return
	}
	slog.Warn("queue event retry", "stream", q.stream, "kind", ev.Kind, "event_id", ev.ID, "attempts", ev.Attempts, "err", err)
	if !sleepCtx(ctx, q.retryDelay) {
		return
	}
	if err := q.requeueAndAck(ctx, msg.ID, ev); err != nil {
		// left pending; XAutoClaim picks it up after claimIdle
		slog.Warn("queue requeue failed", "stream", q.stream, "event_id", ev.ID, "err", err)
	}
}

func (q *RedisEventQueue) ackAndDel(ctx context.Context, msgID string) {
	_, _ = q.client.XAck(ctx, q.stream, q.group, msgID).Result()
	_, _ = q.client.XDel(ctx, q.stream, msgID).Result()
}

// requeueAndAck appends the retry and acknowledges the original in one transaction.
func (q *RedisEventQueue) requeueAndAck(ctx context.Context, msgID string, ev Event) error {
	pipe := q.client.TxPipeline()
	pipe.XAdd(ctx, q.addArgs(ev))
	pipe.XAck(ctx, q.stream, q.group, msgID)
	pipe.XDel(ctx, q.stream, msgID)
	_, err := pipe.Exec(ctx)
	return err
}

func (q *RedisEventQueue) addArgs(ev Event) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":    ev.ID,
			"kind":        ev.Kind,
			"payload":     string(ev.Payload),
			"attempts":    strconv.Itoa(ev.Attempts),
			"enqueued_at": ev.EnqueuedAt.Format(time.RFC3339Nano),
		},
	}
}

func decodeEvent(msg redis.XMessage) (Event, bool) {
	id, _ := msg.Values["event_id"].(string)
	kind, _ := msg.Values["kind"].(string)
	if id == "" || kind == "" {
		return Event{}, false
	}
	ev := Event{ID: id, Kind: kind}
	if v, ok := msg.Values["payload"].(string); ok {
		ev.Payload = []byte(v)
	}
	if v, ok := msg.Values["attempts"].(string); ok {
		ev.Attempts, _ = strconv.Atoi(v)
	}
	if v, ok := msg.Values["enqueued_at"].(string); ok {
		ev.EnqueuedAt, _ = time.Parse(time.RFC3339Nano, v)
	}
	return ev, true
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
