package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/sunrise-backend/api/middleware"
	"github.com/angelmondragon/sunrise-backend/api/responses"
	"github.com/angelmondragon/sunrise-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/sunrise-backend/internal/checkout"
	pkgcheckout "github.com/angelmondragon/sunrise-backend/pkg/checkout"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

type CheckoutService interface {
	Begin(ctx context.Context, sessionID string, details pkgcheckout.DeliveryDetails) (*checkoutsvc.BeginResult, error)
	Confirm(ctx context.Context, input checkoutsvc.ConfirmInput) (*checkoutsvc.ConfirmResult, error)
}

// beginRequest carries the raw checkout form; field rules live in pkg/checkout.
type beginRequest struct {
	PurchaserEmail  string `json:"purchaserEmail"`
	PurchaserPhone  string `json:"purchaserPhone"`
	RecipientPhone  string `json:"recipientPhone"`
	DeliveryDate    string `json:"deliveryDate"`
	DeliveryTime    string `json:"deliveryTime"`
	DeliveryAddress string `json:"deliveryAddress"`
	CustomNote      string `json:"customNote"`
}

type confirmRequest struct {
	PaymentReference string `json:"paymentReference" validate:"required,max=255"`
	SourceID         string `json:"sourceId" validate:"max=255"`
}

// CheckoutBegin prices the session cart and opens a payment with the configured processor.
func CheckoutBegin(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID := middleware.CartSessionFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session missing"))
			return
		}

		var payload beginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Begin(r.Context(), sessionID, pkgcheckout.DeliveryDetails(payload))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CheckoutConfirm settles a payment and returns the order. Replays answer 200 with the same order.
func CheckoutConfirm(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Confirm(r.Context(), checkoutsvc.ConfirmInput{
			PaymentReference: payload.PaymentReference,
			SourceID:         payload.SourceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
