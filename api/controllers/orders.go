package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/sunrise-backend/api/responses"
	"github.com/angelmondragon/sunrise-backend/api/validators"
	ordersvc "github.com/angelmondragon/sunrise-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

type OrderService interface {
	Get(ctx context.Context, id uuid.UUID) (*ordersvc.OrderDTO, error)
}

func OrderGet(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
