package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sunrise-backend/pkg/db/models"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	"github.com/angelmondragon/sunrise-backend/pkg/pricing"
)

// OrderDTO is the confirmed order returned to the storefront and the admin CLI.
type OrderDTO struct {
	ID               uuid.UUID             `json:"id"`
	Status           enums.OrderStatus     `json:"status"`
	PurchaserEmail   string                `json:"purchaserEmail"`
	PurchaserPhone   string                `json:"purchaserPhone"`
	RecipientPhone   string                `json:"recipientPhone,omitempty"`
	DeliveryDate     string                `json:"deliveryDate"`
	DeliveryTime     string                `json:"deliveryTime"`
	DeliveryAddress  string                `json:"deliveryAddress"`
	CustomNote       string                `json:"customNote,omitempty"`
	Breakdown        pricing.Breakdown     `json:"breakdown"`
	Currency         enums.Currency        `json:"currency"`
	PaymentProvider  enums.PaymentProvider `json:"paymentProvider"`
	PaymentReference string                `json:"paymentReference"`
	Items            []OrderItemDTO        `json:"items"`
	CreatedAt        time.Time             `json:"createdAt"`
}

type OrderItemDTO struct {
	ProductID      uuid.UUID       `json:"productId"`
	Name           string          `json:"name"`
	UnitPriceCents int64           `json:"unitPriceCents"`
	Additions      json.RawMessage `json:"additions"`
	Subtractions   json.RawMessage `json:"subtractions"`
	Note           string          `json:"note,omitempty"`
	Quantity       int             `json:"quantity"`
	LineTotalCents int64           `json:"lineTotalCents"`
}

// OrderListResult is one page of orders.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// NewOrderDTO maps a persisted order.
func NewOrderDTO(o models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              o.ID,
		Status:          o.Status,
		PurchaserEmail:  o.PurchaserEmail,
		PurchaserPhone:  o.PurchaserPhone,
		DeliveryDate:    o.DeliveryDate.Format("2006-01-02"),
		DeliveryTime:    o.DeliveryTime,
		DeliveryAddress: o.DeliveryAddress,
		Breakdown: pricing.Breakdown{
			SubtotalCents:    o.SubtotalCents,
			TaxCents:         o.TaxCents,
			DeliveryFeeCents: o.DeliveryFeeCents,
			TipCents:         o.TipCents,
			TotalCents:       o.TotalCents,
		},
		Currency:         o.Currency,
		PaymentProvider:  o.PaymentProvider,
		PaymentReference: o.PaymentReference,
		Items:            make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt:        o.CreatedAt,
	}
	if o.RecipientPhone != nil {
		dto.RecipientPhone = *o.RecipientPhone
	}
	if o.CustomNote != nil {
		dto.CustomNote = *o.CustomNote
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Additions:      item.Additions,
			Subtractions:   item.Subtractions,
			Note:           item.Note,
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return dto
}
