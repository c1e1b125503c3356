package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/sunrise-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(All()...))
	return conn
}

func TestOrderAssignsIDsAndPersistsItems(t *testing.T) {
	conn := newTestDB(t)

	order := &Order{
		PurchaserEmail:   "sam@example.com",
		PurchaserPhone:   "5125550100",
		DeliveryDate:     time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
		DeliveryTime:     "08:30",
		DeliveryAddress:  "100 Congress Ave, Austin TX",
		SubtotalCents:    5398,
		TaxCents:         445,
		DeliveryFeeCents: 500,
		TipCents:         300,
		TotalCents:       6643,
		Status:           enums.OrderStatusPaid,
		Currency:         enums.CurrencyUSD,
		PaymentProvider:  enums.PaymentProviderStripe,
		PaymentReference: "pi_123",
		Items: []OrderItem{{
			ProductID:      uuid.New(),
			Name:           "Continental Breakfast",
			UnitPriceCents: 2499,
			Additions:      json.RawMessage(`[{"id":"a","name":"Extra Bacon","priceCents":200}]`),
			Subtractions:   json.RawMessage(`[]`),
			Quantity:       2,
			LineTotalCents: 5398,
		}},
	}
	require.NoError(t, conn.Create(order).Error)
	require.NotEqual(t, uuid.Nil, order.ID)
	require.NotEqual(t, uuid.Nil, order.Items[0].ID)
	require.Equal(t, order.ID, order.Items[0].OrderID)

	var loaded Order
	require.NoError(t, conn.Preload("Items").First(&loaded, "id = ?", order.ID).Error)
	require.Len(t, loaded.Items, 1)
	require.Equal(t, int64(6643), loaded.TotalCents)
}

func TestOrderPaymentReferenceIsUnique(t *testing.T) {
	conn := newTestDB(t)
	base := func() *Order {
		return &Order{
			PurchaserEmail:   "sam@example.com",
			PurchaserPhone:   "5125550100",
			DeliveryDate:     time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
			DeliveryTime:     "08:30",
			DeliveryAddress:  "100 Congress Ave",
			Currency:         enums.CurrencyUSD,
			PaymentProvider:  enums.PaymentProviderStripe,
			PaymentReference: "pi_dup",
		}
	}
	require.NoError(t, conn.Create(base()).Error)
	require.Error(t, conn.Create(base()).Error)
}
