package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/sunrise-backend/internal/cart"
	"github.com/angelmondragon/sunrise-backend/internal/orders"
	"github.com/angelmondragon/sunrise-backend/internal/payments"
	pkgcheckout "github.com/angelmondragon/sunrise-backend/pkg/checkout"
	"github.com/angelmondragon/sunrise-backend/pkg/config"
	dbpkg "github.com/angelmondragon/sunrise-backend/pkg/db"
	"github.com/angelmondragon/sunrise-backend/pkg/db/models"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/angelmondragon/sunrise-backend/pkg/metrics"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/sunrise-backend/pkg/pricing"
)

const eventSource = "checkout"

var errAlreadyConfirmed = errors.New("payment attempt already confirmed")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartSession interface {
	Load(ctx context.Context, sessionID string) (*cart.Store, error)
	Clear(ctx context.Context, sessionID string) (*cart.View, error)
}

type gatewayResolver interface {
	Default() payments.Gateway
	For(provider enums.PaymentProvider) (payments.Gateway, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.DomainEvent) error
}

type ServiceParams struct {
	DB       txRunner
	Attempts AttemptRepository
	Orders   orders.Repository
	Cart     cartSession
	Gateways gatewayResolver
	Outbox   outboxPublisher
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
	Config   config.CheckoutConfig
	Currency enums.Currency
	Now      func() time.Time
}

// Service runs checkout: it turns a priced cart into a payment intent, and a
// confirmed payment into exactly one order.
type Service struct {
	db       txRunner
	attempts AttemptRepository
	orders   orders.Repository
	cart     cartSession
	gateways gatewayResolver
	outbox   outboxPublisher
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	cfg      config.CheckoutConfig
	loc      *time.Location
	currency enums.Currency
	now      func() time.Time
}

func NewService(p ServiceParams) (*Service, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Attempts == nil {
		return nil, fmt.Errorf("payment attempt repository required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if p.Gateways == nil {
		return nil, fmt.Errorf("payment gateways required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	currency := p.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	cfg := p.Config
	if cfg.PaymentAttemptTTL <= 0 {
		cfg.PaymentAttemptTTL = 2 * time.Hour
	}
	return &Service{
		db:       p.DB,
		attempts: p.Attempts,
		orders:   p.Orders,
		cart:     p.Cart,
		gateways: p.Gateways,
		outbox:   p.Outbox,
		metrics:  p.Metrics,
		logg:     p.Logger,
		cfg:      cfg,
		loc:      cfg.Location(),
		currency: currency,
		now:      now,
	}, nil
}

// Begin validates the delivery details, prices the session's cart and opens a
// payment intent for exactly the cart total.
func (s *Service) Begin(ctx context.Context, sessionID string, details pkgcheckout.DeliveryDetails) (*BeginResult, error) {
	now := s.now().UTC()
	details = details.Normalize()
	if _, err := pkgcheckout.ValidateDeliveryDetails(details, now, s.loc, s.cfg.MinLeadDays); err != nil {
		return nil, err
	}

	store, err := s.cart.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state := store.State()
	if state.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	breakdown, err := store.Breakdown()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cart cannot be priced")
	}
	if breakdown.TotalCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart total must be positive")
	}

	gateway := s.gateways.Default()
	provider := gateway.Provider()
	attemptID := uuid.New()

	metadata := details.Metadata()
	metadata["attemptId"] = attemptID.String()
	intent, err := gateway.CreateIntent(ctx, payments.IntentRequest{
		AmountCents:    breakdown.TotalCents,
		Currency:       s.currency,
		ReceiptEmail:   details.PurchaserEmail,
		IdempotencyKey: "checkout:" + attemptID.String(),
		Metadata:       metadata,
	})
	if err != nil {
		s.metrics.Stage(metrics.StageBegin, string(provider), metrics.OutcomeError)
		return nil, err
	}

	attempt, err := s.newAttempt(attemptID, sessionID, intent, state, breakdown, details, now)
	if err == nil {
		err = s.attempts.Create(ctx, attempt)
	}
	if err != nil {
		if cancelErr := gateway.CancelIntent(ctx, intent.Reference); cancelErr != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithPaymentReference(ctx, intent.Reference), "could not cancel orphaned intent")
		}
		s.metrics.Stage(metrics.StageBegin, string(provider), metrics.OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment attempt")
	}

	s.metrics.Stage(metrics.StageBegin, string(provider), metrics.OutcomeSuccess)
	if s.logg != nil {
		logCtx := s.logg.WithCartSession(ctx, sessionID)
		logCtx = s.logg.WithPaymentReference(logCtx, intent.Reference)
		logCtx = s.logg.WithFields(logCtx, map[string]any{"provider": provider, "total_cents": breakdown.TotalCents})
		s.logg.Info(logCtx, "checkout started")
	}
	return &BeginResult{
		Provider:         provider,
		PaymentReference: intent.Reference,
		ClientSecret:     intent.ClientSecret,
		Breakdown:        breakdown,
		Currency:         s.currency,
		ExpiresAt:        attempt.ExpiresAt,
	}, nil
}

func (s *Service) newAttempt(id uuid.UUID, sessionID string, intent *payments.Intent, state cart.State, breakdown pricing.Breakdown, details pkgcheckout.DeliveryDetails, now time.Time) (*models.PaymentAttempt, error) {
	snapshot, err := cart.EncodeSnapshot(state, now)
	if err != nil {
		return nil, err
	}
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return nil, err
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	return &models.PaymentAttempt{
		ID:           id,
		SessionID:    sessionID,
		Provider:     intent.Provider,
		Reference:    intent.Reference,
		Status:       enums.PaymentAttemptPending,
		AmountCents:  breakdown.TotalCents,
		Currency:     s.currency,
		Breakdown:    breakdownJSON,
		CartSnapshot: snapshot,
		Details:      detailsJSON,
		ExpiresAt:    now.Add(s.cfg.PaymentAttemptTTL),
	}, nil
}

// Confirm settles the payment for reference and writes its order. Calling it
// again for a settled payment returns the same order.
func (s *Service) Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error) {
	if input.PaymentReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	if s.logg != nil {
		ctx = s.logg.WithPaymentReference(ctx, input.PaymentReference)
	}
	attempt, err := s.findAttempt(ctx, input.PaymentReference)
	if err != nil {
		return nil, err
	}
	provider := string(attempt.Provider)

	switch attempt.Status {
	case enums.PaymentAttemptSucceeded:
		s.metrics.Stage(metrics.StageConfirm, provider, metrics.OutcomeReplay)
		return s.existingOrder(ctx, attempt.Reference)
	case enums.PaymentAttemptFailed, enums.PaymentAttemptExpired:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment attempt is no longer pending").
			WithDetails(map[string]string{"status": string(attempt.Status)})
	}

	gateway, err := s.gateways.For(attempt.Provider)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve payment gateway")
	}
	if s.now().After(attempt.ExpiresAt) {
		if _, expErr := s.expire(ctx, gateway, *attempt); expErr != nil && s.logg != nil {
			s.logg.Error(ctx, "expire stale payment attempt", expErr)
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment attempt expired")
	}

	var details pkgcheckout.DeliveryDetails
	if err := json.Unmarshal(attempt.Details, &details); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode delivery details")
	}
	confirmation, err := gateway.ConfirmPayment(ctx, payments.ConfirmRequest{
		Reference:   attempt.Reference,
		SourceID:    input.SourceID,
		AmountCents: attempt.AmountCents,
		Currency:    attempt.Currency,
		BuyerEmail:  details.PurchaserEmail,
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodePaymentDeclined) {
			s.metrics.Stage(metrics.StageConfirm, provider, metrics.OutcomeDeclined)
			if failErr := s.fail(ctx, *attempt, err.Error()); failErr != nil && s.logg != nil {
				s.logg.Error(ctx, "record declined payment", failErr)
			}
			return nil, err
		}
		s.metrics.Stage(metrics.StageConfirm, provider, metrics.OutcomeError)
		return nil, err
	}

	order, err := s.buildOrder(*attempt, details)
	if err != nil {
		s.metrics.Stage(metrics.StageConfirm, provider, metrics.OutcomeError)
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			if isDuplicateOrder(err) {
				return errAlreadyConfirmed
			}
			return err
		}
		changed, err := s.attempts.WithTx(tx).MarkSucceeded(ctx, attempt.ID, order.ID)
		if err != nil {
			return err
		}
		if !changed {
			return errAlreadyConfirmed
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Source:        eventSource,
			Data:          orderCreatedPayload(order),
		})
	})
	if errors.Is(err, errAlreadyConfirmed) {
		s.metrics.Stage(metrics.StageConfirm, provider, metrics.OutcomeReplay)
		return s.existingOrder(ctx, attempt.Reference)
	}
	if err != nil {
		s.metrics.Stage(metrics.StageConfirm, provider, metrics.OutcomeError)
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "processor_payment_id", confirmation.ProcessorPaymentID), "order write failed after capture", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	if _, err := s.cart.Clear(ctx, attempt.SessionID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithCartSession(ctx, attempt.SessionID), "cart not cleared after order")
	}

	s.metrics.Stage(metrics.StageConfirm, provider, metrics.OutcomeSuccess)
	s.metrics.ObserveOrderTotal(provider, order.TotalCents)
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(logCtx, "order created")
	}
	return &ConfirmResult{Order: orders.NewOrderDTO(*order)}, nil
}

// FailByReference records a processor-reported failure. Only pending attempts change.
func (s *Service) FailByReference(ctx context.Context, reference, reason string) error {
	attempt, err := s.findAttempt(ctx, reference)
	if err != nil {
		return err
	}
	if attempt.Status != enums.PaymentAttemptPending {
		return nil
	}
	return s.fail(ctx, *attempt, reason)
}

// ExpireStale marks pending attempts past their expiry as expired and cancels
// their intents. Failures on single attempts do not stop the sweep.
func (s *Service) ExpireStale(ctx context.Context, limit int) (int, error) {
	rows, err := s.attempts.ListExpiredPending(ctx, s.now(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired payment attempts")
	}
	var (
		expired int
		errs    error
	)
	for _, attempt := range rows {
		gateway, err := s.gateways.For(attempt.Provider)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		changed, err := s.expire(ctx, gateway, attempt)
		if err != nil {
			s.metrics.Stage(metrics.StageExpire, string(attempt.Provider), metrics.OutcomeError)
			errs = multierr.Append(errs, fmt.Errorf("expire %s: %w", attempt.Reference, err))
			continue
		}
		if changed {
			expired++
			s.metrics.Stage(metrics.StageExpire, string(attempt.Provider), metrics.OutcomeSuccess)
		}
	}
	return expired, errs
}

func (s *Service) expire(ctx context.Context, gateway payments.Gateway, attempt models.PaymentAttempt) (bool, error) {
	if err := gateway.CancelIntent(ctx, attempt.Reference); err != nil {
		return false, err
	}
	changed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		changed, err = s.attempts.WithTx(tx).MarkExpired(ctx, attempt.ID)
		if err != nil || !changed {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentAttemptExpired,
			AggregateType: enums.AggregatePaymentAttempt,
			AggregateID:   attempt.ID,
			Source:        eventSource,
			Data: payloads.PaymentAttemptExpiredEvent{
				AttemptID:   attempt.ID,
				Provider:    attempt.Provider,
				Reference:   attempt.Reference,
				AmountCents: attempt.AmountCents,
				ExpiredAt:   s.now().UTC(),
			},
		})
	})
	return changed, err
}

func (s *Service) fail(ctx context.Context, attempt models.PaymentAttempt, reason string) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := s.attempts.WithTx(tx).MarkFailed(ctx, attempt.ID, reason)
		if err != nil || !changed {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentAttemptFailed,
			AggregateType: enums.AggregatePaymentAttempt,
			AggregateID:   attempt.ID,
			Source:        eventSource,
			Data: payloads.PaymentAttemptFailedEvent{
				AttemptID:   attempt.ID,
				Provider:    attempt.Provider,
				Reference:   attempt.Reference,
				AmountCents: attempt.AmountCents,
				Reason:      reason,
				FailedAt:    s.now().UTC(),
			},
		})
	})
}

func (s *Service) findAttempt(ctx context.Context, reference string) (*models.PaymentAttempt, error) {
	attempt, err := s.attempts.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment attempt")
	}
	return attempt, nil
}

func (s *Service) existingOrder(ctx context.Context, reference string) (*ConfirmResult, error) {
	order, err := s.orders.FindByPaymentReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment confirmed but order is not visible yet")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &ConfirmResult{Order: orders.NewOrderDTO(*order), Replayed: true}, nil
}

func (s *Service) buildOrder(attempt models.PaymentAttempt, details pkgcheckout.DeliveryDetails) (*models.Order, error) {
	state, err := cart.DecodeSnapshot(attempt.CartSnapshot)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart snapshot")
	}
	var breakdown pricing.Breakdown
	if err := json.Unmarshal(attempt.Breakdown, &breakdown); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode breakdown")
	}
	day, err := time.Parse(pkgcheckout.DateLayout, details.DeliveryDate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode delivery date")
	}
	return orders.BuildOrder(orders.BuildInput{
		Items:            state.Items,
		Breakdown:        breakdown,
		Details:          details,
		DeliveryDate:     day,
		Currency:         attempt.Currency,
		PaymentProvider:  attempt.Provider,
		PaymentReference: attempt.Reference,
	})
}

func isDuplicateOrder(err error) bool {
	return dbpkg.IsUniqueViolation(err, "ux_orders_payment_reference") ||
		dbpkg.IsUniqueViolation(err, "orders.payment_reference")
}

func orderCreatedPayload(order *models.Order) payloads.OrderCreatedEvent {
	dto := orders.NewOrderDTO(*order)
	event := payloads.OrderCreatedEvent{
		OrderID:          order.ID,
		PaymentProvider:  order.PaymentProvider,
		PaymentReference: order.PaymentReference,
		PurchaserEmail:   dto.PurchaserEmail,
		PurchaserPhone:   dto.PurchaserPhone,
		RecipientPhone:   dto.RecipientPhone,
		DeliveryDate:     dto.DeliveryDate,
		DeliveryTime:     dto.DeliveryTime,
		DeliveryAddress:  dto.DeliveryAddress,
		CustomNote:       dto.CustomNote,
		Currency:         order.Currency,
		SubtotalCents:    order.SubtotalCents,
		TaxCents:         order.TaxCents,
		DeliveryFeeCents: order.DeliveryFeeCents,
		TipCents:         order.TipCents,
		TotalCents:       order.TotalCents,
		Items:            make([]payloads.OrderCreatedItem, 0, len(order.Items)),
		CreatedAt:        order.CreatedAt,
	}
	for _, item := range order.Items {
		var additions []cart.Addition
		_ = json.Unmarshal(item.Additions, &additions)
		var subtractions []cart.Subtraction
		_ = json.Unmarshal(item.Subtractions, &subtractions)
		line := payloads.OrderCreatedItem{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
			Note:           item.Note,
		}
		for _, a := range additions {
			line.Additions = append(line.Additions, a.Name)
		}
		for _, sub := range subtractions {
			line.Subtractions = append(line.Subtractions, sub.Name)
		}
		event.Items = append(event.Items, line)
	}
	return event
}
