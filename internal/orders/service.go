package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sunrise-backend/internal/cart"
	"github.com/angelmondragon/sunrise-backend/pkg/checkout"
	"github.com/angelmondragon/sunrise-backend/pkg/db/models"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/angelmondragon/sunrise-backend/pkg/pagination"
	"github.com/angelmondragon/sunrise-backend/pkg/pricing"
)

// allowedTransitions lists the only status moves after payment.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPaid: {enums.OrderStatusDelivered, enums.OrderStatusCanceled},
}

// Service exposes order reads and the few admin transitions.
type Service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "order not found")
	}
	dto := NewOrderDTO(*order)
	return &dto, nil
}

// GetByPaymentReference returns the order written for a payment, if any.
func (s *Service) GetByPaymentReference(ctx context.Context, reference string) (*OrderDTO, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	order, err := s.repo.FindByPaymentReference(ctx, reference)
	if err != nil {
		return nil, mapLookupError(err, "order not found for payment")
	}
	dto := NewOrderDTO(*order)
	return &dto, nil
}

// ListForDate pages through orders due on a delivery day.
func (s *Service) ListForDate(ctx context.Context, date time.Time, params pagination.Params) (*OrderListResult, error) {
	rows, next, err := s.repo.ListByDeliveryDate(ctx, date, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	result := &OrderListResult{Orders: make([]OrderDTO, 0, len(rows))}
	for _, row := range rows {
		result.Orders = append(result.Orders, NewOrderDTO(row))
	}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// UpdateStatus moves a paid order to delivered or canceled.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to enums.OrderStatus) (*OrderDTO, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]string{"status": string(to)})
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "order not found")
	}
	if order.Status == to {
		dto := NewOrderDTO(*order)
		return &dto, nil
	}
	if !transitionAllowed(order.Status, to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
			WithDetails(map[string]string{"from": string(order.Status), "to": string(to)})
	}
	changed, err := s.repo.UpdateStatus(ctx, id, order.Status, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !changed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, id.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"from": order.Status, "to": to})
		s.logg.Info(logCtx, "order status updated")
	}
	order.Status = to
	dto := NewOrderDTO(*order)
	return &dto, nil
}

func transitionAllowed(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func mapLookupError(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

// BuildInput is everything a confirmed payment contributes to an order.
type BuildInput struct {
	Items            []cart.LineItem
	Breakdown        pricing.Breakdown
	Details          checkout.DeliveryDetails
	DeliveryDate     time.Time
	Currency         enums.Currency
	PaymentProvider  enums.PaymentProvider
	PaymentReference string
}

// BuildOrder snapshots a priced cart into an unsaved order. Totals come from
// the breakdown recorded when the payment was created.
func BuildOrder(in BuildInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if strings.TrimSpace(in.PaymentReference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	b := in.Breakdown
	if b.SubtotalCents+b.TaxCents+b.DeliveryFeeCents+b.TipCents != b.TotalCents {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "breakdown does not add up")
	}

	order := &models.Order{
		Status:           enums.OrderStatusPaid,
		PurchaserEmail:   in.Details.PurchaserEmail,
		PurchaserPhone:   in.Details.PurchaserPhone,
		RecipientPhone:   optional(in.Details.RecipientPhone),
		DeliveryDate:     in.DeliveryDate,
		DeliveryTime:     in.Details.DeliveryTime,
		DeliveryAddress:  in.Details.DeliveryAddress,
		CustomNote:       optional(in.Details.CustomNote),
		SubtotalCents:    b.SubtotalCents,
		TaxCents:         b.TaxCents,
		DeliveryFeeCents: b.DeliveryFeeCents,
		TipCents:         b.TipCents,
		TotalCents:       b.TotalCents,
		Currency:         in.Currency,
		PaymentProvider:  in.PaymentProvider,
		PaymentReference: in.PaymentReference,
		Items:            make([]models.OrderItem, 0, len(in.Items)),
	}
	if order.Currency == "" {
		order.Currency = enums.CurrencyUSD
	}

	var linesTotal int64
	for _, item := range in.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id in cart")
		}
		additions, err := json.Marshal(nonNilAdditions(item.Additions))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode additions")
		}
		subtractions, err := json.Marshal(nonNilSubtractions(item.Subtractions))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode subtractions")
		}
		lineTotal := item.LineTotalCents()
		linesTotal += lineTotal
		order.Items = append(order.Items, models.OrderItem{
			ProductID:      productID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Additions:      additions,
			Subtractions:   subtractions,
			Note:           item.Note,
			Quantity:       int(item.Quantity),
			LineTotalCents: lineTotal,
		})
	}
	if linesTotal != b.SubtotalCents {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "line totals do not match subtotal").
			WithDetails(map[string]int64{"lines": linesTotal, "subtotal": b.SubtotalCents})
	}
	return order, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func nonNilAdditions(in []cart.Addition) []cart.Addition {
	if in == nil {
		return []cart.Addition{}
	}
	return in
}

func nonNilSubtractions(in []cart.Subtraction) []cart.Subtraction {
	if in == nil {
		return []cart.Subtraction{}
	}
	return in
}
