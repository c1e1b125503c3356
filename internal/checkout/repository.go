package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sunrise-backend/pkg/db/models"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
)

// AttemptRepository persists payment attempts. Status changes are guarded so
// only a pending attempt can move, and each move reports whether it happened.
type AttemptRepository interface {
	WithTx(tx *gorm.DB) AttemptRepository
	Create(ctx context.Context, attempt *models.PaymentAttempt) error
	FindByReference(ctx context.Context, reference string) (*models.PaymentAttempt, error)
	MarkSucceeded(ctx context.Context, id, orderID uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.PaymentAttempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) WithTx(tx *gorm.DB) AttemptRepository {
	if tx == nil {
		return r
	}
	return &attemptRepository{db: tx}
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *attemptRepository) FindByReference(ctx context.Context, reference string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) MarkSucceeded(ctx context.Context, id, orderID uuid.UUID) (bool, error) {
	return r.transition(ctx, id, map[string]any{
		"status":   enums.PaymentAttemptSucceeded,
		"order_id": orderID,
	})
}

func (r *attemptRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return r.transition(ctx, id, map[string]any{
		"status":         enums.PaymentAttemptFailed,
		"failure_reason": reason,
	})
}

func (r *attemptRepository) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx, id, map[string]any{
		"status": enums.PaymentAttemptExpired,
	})
}

// ListExpiredPending returns pending attempts whose expiry is before now, oldest first.
func (r *attemptRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.PaymentAttempt, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", enums.PaymentAttemptPending, now.UTC()).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListAttempts returns attempts newest first, optionally narrowed to one
// status. It backs operator tooling rather than the checkout flow.
func ListAttempts(ctx context.Context, db *gorm.DB, status enums.PaymentAttemptStatus, limit int) ([]models.PaymentAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	q := db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []models.PaymentAttempt
	return rows, q.Find(&rows).Error
}

func (r *attemptRepository) transition(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("id = ? AND status = ?", id, enums.PaymentAttemptPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
