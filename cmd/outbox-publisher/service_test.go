package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/db/models"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/angelmondragon/sunrise-backend/pkg/metrics"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox/registry"
)

const ordersTopic = "orders-topic"

// harness runs the publisher against in-memory rows and a scripted topic.
type harness struct {
	svc   *Service
	rows  *memoryRows
	dlq   *memoryDLQ
	topic *scriptedTopic
	reg   *prometheus.Registry
}

func newHarness(t *testing.T, maxAttempts int, rows ...models.OutboxEvent) *harness {
	t.Helper()
	events, err := registry.NewEventRegistry(config.PubSubConfig{OrdersTopic: ordersTopic})
	require.NoError(t, err)

	h := &harness{
		rows:  &memoryRows{pending: rows},
		dlq:   &memoryDLQ{},
		topic: &scriptedTopic{},
		reg:   prometheus.NewRegistry(),
	}
	h.svc, err = NewService(ServiceParams{
		Config:        &config.Config{Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: maxAttempts}},
		Logger:        logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:            inlineTx{},
		PubSub:        idlePubSub{},
		Repository:    h.rows,
		DLQRepository: h.dlq,
		Registry:      events,
		Metrics:       metrics.NewOutboxMetrics(h.reg),
		PublisherFactory: func(topic string) publisher {
			if topic != ordersTopic {
				return nil
			}
			return h.topic
		},
	})
	require.NoError(t, err)
	return h
}

func orderCreatedRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	env, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    id.String(),
		OccurredAt: time.Date(2026, 3, 14, 7, 59, 0, 0, time.UTC),
		Data:       json.RawMessage(`{"orderId":"` + uuid.NewString() + `","totalCents":1299}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       env,
		AttemptCount:  attempts,
		CreatedAt:     time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
	}
}

func TestBatchSettlesEachRowIndependently(t *testing.T) {
	first, second := orderCreatedRow(t, 0), orderCreatedRow(t, 0)
	h := newHarness(t, 5, first, second)
	h.topic.script(errors.New("deadline exceeded"), nil)

	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, []uuid.UUID{first.ID}, h.rows.retried)
	require.Equal(t, []uuid.UUID{second.ID}, h.rows.published)
	require.Empty(t, h.dlq.entries)
	require.Equal(t, 1.0, counterTotal(t, h.reg, metrics.PublishRetry))
	require.Equal(t, 1.0, counterTotal(t, h.reg, metrics.PublishPublished))
}

func TestPublishedMessageCarriesRoutingAttributes(t *testing.T) {
	row := orderCreatedRow(t, 0)
	h := newHarness(t, 5, row)

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, h.topic.sent, 1)

	msg := h.topic.sent[0]
	require.JSONEq(t, string(row.Payload), string(msg.Data))
	require.Equal(t, map[string]string{
		"event_id":       row.ID.String(),
		"event_type":     string(enums.EventOrderCreated),
		"aggregate_type": string(enums.AggregateOrder),
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     "2026-03-14T08:00:00Z",
	}, msg.Attributes)
}

func TestUnresolvableRowGoesStraightToDLQ(t *testing.T) {
	row := orderCreatedRow(t, 0)
	row.EventType = enums.OutboxEventType("order_burnt")
	h := newHarness(t, 5, row)

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Empty(t, h.topic.sent)
	require.Len(t, h.dlq.entries, 1)

	entry := h.dlq.entries[0]
	require.Equal(t, row.ID, entry.EventID)
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
	require.JSONEq(t, string(row.Payload), string(entry.Payload))
	require.Equal(t, []uuid.UUID{row.ID}, h.rows.terminal)
}

func TestLastAttemptFailureIsDeadLettered(t *testing.T) {
	row := orderCreatedRow(t, 2)
	h := newHarness(t, 3, row)
	h.topic.script(errors.New("unavailable"))

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)
	require.Equal(t, enums.OutboxDLQReasonMaxAttempts, h.dlq.entries[0].ErrorReason)
	require.Contains(t, *h.dlq.entries[0].ErrorMessage, "max publish attempts")
	require.Empty(t, h.rows.retried)
	require.Equal(t, 1.0, counterTotal(t, h.reg, metrics.PublishDLQ))
}

func TestDispatchOutcomes(t *testing.T) {
	cases := []struct {
		name     string
		attempts int
		result   error
		noResult bool
		want     outcome
		reason   enums.OutboxDLQErrorReason
	}{
		{name: "published", want: outcomePublished},
		{name: "transient", result: errors.New("unavailable"), want: outcomeRetry},
		{name: "exhausted", attempts: 4, result: errors.New("unavailable"), want: outcomeDead, reason: enums.OutboxDLQReasonMaxAttempts},
		{name: "rejected by broker", result: registry.NewNonRetryableError(errors.New("message too large")), want: outcomeDead, reason: enums.OutboxDLQReasonNonRetryable},
		{name: "no result", noResult: true, want: outcomeDead, reason: enums.OutboxDLQReasonNonRetryable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, 5)
			h.topic.script(tc.result)
			h.topic.nilResult = tc.noResult

			v := h.svc.dispatch(context.Background(), orderCreatedRow(t, tc.attempts))
			require.Equal(t, tc.want, v.outcome, "err=%v", v.err)
			require.Equal(t, tc.reason, v.reason)
			require.Equal(t, ordersTopic, v.topic)
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.svc.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestPublisherCacheBuildsOncePerTopic(t *testing.T) {
	cache := newPublisherCache()
	built := map[string]int{}
	factory := func(topic string) publisher {
		built[topic]++
		if topic == "missing" {
			return nil
		}
		return &scriptedTopic{}
	}

	first := cache.get(ordersTopic, factory)
	require.Same(t, first, cache.get(ordersTopic, factory))
	cache.get("missing", factory)
	cache.get("missing", factory)
	require.Equal(t, map[string]int{ordersTopic: 1, "missing": 2}, built)

	cache.stop()
	cache.get(ordersTopic, factory)
	require.Equal(t, 2, built[ordersTopic])
}

func counterTotal(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != "sunrise_outbox_publish_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

type memoryRows struct {
	pending   []models.OutboxEvent
	published []uuid.UUID
	retried   []uuid.UUID
	terminal  []uuid.UUID
}

func (m *memoryRows) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	return m.pending[:min(limit, len(m.pending))], nil
}

func (m *memoryRows) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	m.published = append(m.published, id)
	return nil
}

func (m *memoryRows) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.retried = append(m.retried, id)
	return nil
}

func (m *memoryRows) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	m.terminal = append(m.terminal, id)
	return nil
}

type memoryDLQ struct {
	entries []models.OutboxDLQ
}

func (m *memoryDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	m.entries = append(m.entries, entry)
	return nil
}

type inlineTx struct{}

func (inlineTx) Ping(context.Context) error { return nil }

func (inlineTx) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type idlePubSub struct{}

func (idlePubSub) Ping(context.Context) error { return nil }

func (idlePubSub) Publisher(string) *gcppubsub.Publisher { return nil }

// scriptedTopic answers publishes with queued errors; an empty queue succeeds.
type scriptedTopic struct {
	errs      []error
	nilResult bool
	sent      []*gcppubsub.Message
}

func (s *scriptedTopic) script(errs ...error) { s.errs = append(s.errs, errs...) }

func (s *scriptedTopic) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	s.sent = append(s.sent, msg)
	if s.nilResult {
		return nil
	}
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	return settledResult{err: err}
}

type settledResult struct{ err error }

func (r settledResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "msg-1", nil
}
