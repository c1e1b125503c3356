package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sunrise-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sunrise-backend/pkg/db/models"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
)

func emitOrderCreated(t *testing.T, db *gorm.DB, svc *Service, aggregateID uuid.UUID) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   aggregateID,
			Source:        "checkout",
			Data:          map[string]any{"orderId": aggregateID.String()},
		})
	})
	require.NoError(t, err)
}

func TestEmitWritesEnvelope(t *testing.T) {
	db := dbtest.NewSQLite(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	orderID := uuid.New()

	emitOrderCreated(t, db, svc, orderID)

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.Equal(t, "checkout", envelope.Source)
	require.Equal(t, rows[0].ID.String(), envelope.EventID)
	require.JSONEq(t, `{"orderId":"`+orderID.String()+`"}`, string(envelope.Data))
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{})
	require.Error(t, err)
}

func TestEmitIsAllOrNothing(t *testing.T) {
	db := dbtest.NewSQLite(t)
	svc := NewService(NewRepository(db), nil)
	good := DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Data:          map[string]string{"k": "v"},
	}
	bad := good
	bad.AggregateID = uuid.Nil

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, good, bad)
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, good, good)
	}))
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestEmitRejectsUnknownTypes(t *testing.T) {
	db := dbtest.NewSQLite(t)
	svc := NewService(NewRepository(db), nil)
	err := svc.Emit(context.Background(), db, DomainEvent{EventType: "order_exploded", AggregateType: enums.AggregateOrder, AggregateID: uuid.New()})
	require.ErrorContains(t, err, "order_exploded")
}

func TestPublishLifecycle(t *testing.T) {
	db := dbtest.NewSQLite(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	published, failed, terminal := uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{published, failed, terminal} {
		emitOrderCreated(t, db, svc, id)
	}
	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byAggregate := map[uuid.UUID]models.OutboxEvent{}
	for _, row := range rows {
		byAggregate[row.AggregateID] = row
	}
	require.NoError(t, repo.MarkPublishedTx(db, byAggregate[published].ID))
	require.NoError(t, repo.MarkFailedTx(db, byAggregate[failed].ID, errors.New("pubsub unavailable")))
	require.NoError(t, repo.MarkTerminalTx(db, byAggregate[terminal].ID, errors.New(strings.Repeat("x", 2000)), 3))

	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, failed, rows[0].AggregateID)
	require.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	require.Equal(t, "pubsub unavailable", *rows[0].LastError)

	var parked models.OutboxEvent
	require.NoError(t, db.First(&parked, "id = ?", byAggregate[terminal].ID).Error)
	require.Len(t, *parked.LastError, maxLastErrorLen)
}

func TestDeletePublishedBefore(t *testing.T) {
	db := dbtest.NewSQLite(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	old, fresh, pending := uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{old, fresh, pending} {
		emitOrderCreated(t, db, svc, id)
	}
	now := time.Now().UTC()
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", old).
		Update("published_at", now.Add(-10*24*time.Hour)).Error)
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", fresh).
		Update("published_at", now.Add(-time.Hour)).Error)

	deleted, err := repo.DeletePublishedBefore(context.Background(), now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	require.Equal(t, int64(2), remaining)
}

func TestDLQRepositoryTruncatesMessage(t *testing.T) {
	db := dbtest.NewSQLite(t)
	dlq := NewDLQRepository(db)
	eventID := uuid.New()
	msg := strings.Repeat("e", maxDLQErrorLen+10)

	require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
	}))

	entry, err := dlq.Get(context.Background(), eventID)
	require.NoError(t, err)
	require.Len(t, *entry.ErrorMessage, maxDLQErrorLen)

	_, err = dlq.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrDLQEntryNotFound)

	rows, err := dlq.List(context.Background(), DLQFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = dlq.List(context.Background(), DLQFilter{Reason: enums.OutboxDLQReasonNonRetryable})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestDLQRequeueResetsOutboxRow(t *testing.T) {
	db := dbtest.NewSQLite(t)
	repo := NewRepository(db)
	dlq := NewDLQRepository(db)

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, repo.Insert(db, event))
	require.NoError(t, repo.MarkTerminalTx(db, event.ID, errors.New("topic missing"), 10))
	require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
	}))

	pending, err := repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	require.NoError(t, dlq.Requeue(context.Background(), event.ID))

	pending, err = repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Nil(t, pending[0].LastError)

	require.ErrorIs(t, dlq.Requeue(context.Background(), event.ID), ErrDLQEntryNotFound)
}

func TestClipKeepsRunesWhole(t *testing.T) {
	require.Equal(t, "ab", clip("abc", 2))
	require.Equal(t, "caf", clip("café", 4))
	require.Equal(t, "short", clip("short", 10))
}
