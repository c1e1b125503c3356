package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/sunrise-backend/api/middleware"
	"github.com/angelmondragon/sunrise-backend/api/responses"
	"github.com/angelmondragon/sunrise-backend/api/validators"
	cartsvc "github.com/angelmondragon/sunrise-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

const maxNoteLength = 500

type CartService interface {
	Get(ctx context.Context, sessionID string) (*cartsvc.View, error)
	AddItem(ctx context.Context, sessionID string, input cartsvc.AddItemInput) (*cartsvc.View, error)
	RemoveItem(ctx context.Context, sessionID, uniqueID string) (*cartsvc.View, error)
	UpdateQuantity(ctx context.Context, sessionID, uniqueID string, quantity int64) (*cartsvc.View, error)
	UpdateModifications(ctx context.Context, sessionID, uniqueID string, input cartsvc.ModificationsInput) (*cartsvc.View, error)
	UpdateTip(ctx context.Context, sessionID string, input cartsvc.TipInput) (*cartsvc.View, error)
	Clear(ctx context.Context, sessionID string) (*cartsvc.View, error)
}

type addItemRequest struct {
	ProductID      string   `json:"productId" validate:"required,uuid"`
	AdditionIDs    []string `json:"additionIds" validate:"omitempty,dive,uuid"`
	SubtractionIDs []string `json:"subtractionIds" validate:"omitempty,dive,uuid"`
	Note           string   `json:"note" validate:"max=500"`
	Quantity       int64    `json:"quantity" validate:"min=0,max=99"`
}

type updateQuantityRequest struct {
	Quantity int64 `json:"quantity" validate:"min=0,max=99"`
}

type modificationsRequest struct {
	AdditionIDs    *[]string `json:"additionIds"`
	SubtractionIDs *[]string `json:"subtractionIds"`
	Note           *string   `json:"note" validate:"omitempty,max=500"`
}

type tipRequest struct {
	Type    string `json:"type" validate:"required,oneof=percentage flat"`
	Value   int64  `json:"value" validate:"min=0,max=1000000"`
	Dollars string `json:"dollars" validate:"max=16"`
}

func CartGet(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (*cartsvc.View, error) {
		return svc.Get(r.Context(), sessionID)
	})
}

// CartAddItem adds a catalog product. Prices always come from the catalog, never the client.
func CartAddItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (*cartsvc.View, error) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		additionIDs, err := validators.ParseUUIDs("additionIds", payload.AdditionIDs)
		if err != nil {
			return nil, err
		}
		subtractionIDs, err := validators.ParseUUIDs("subtractionIds", payload.SubtractionIDs)
		if err != nil {
			return nil, err
		}
		quantity := payload.Quantity
		if quantity == 0 {
			quantity = 1
		}
		return svc.AddItem(r.Context(), sessionID, cartsvc.AddItemInput{
			ProductID:      productID,
			AdditionIDs:    additionIDs,
			SubtractionIDs: subtractionIDs,
			Note:           validators.SanitizeString(payload.Note, maxNoteLength),
			Quantity:       quantity,
		})
	})
}

// CartUpdateQuantity sets a line's quantity; zero removes the line.
func CartUpdateQuantity(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (*cartsvc.View, error) {
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.UpdateQuantity(r.Context(), sessionID, uniqueIDParam(r), payload.Quantity)
	})
}

func CartUpdateModifications(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (*cartsvc.View, error) {
		var payload modificationsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		input := cartsvc.ModificationsInput{}
		if payload.AdditionIDs != nil {
			ids, err := validators.ParseUUIDs("additionIds", *payload.AdditionIDs)
			if err != nil {
				return nil, err
			}
			if ids == nil {
				ids = []uuid.UUID{}
			}
			input.AdditionIDs = &ids
		}
		if payload.SubtractionIDs != nil {
			ids, err := validators.ParseUUIDs("subtractionIds", *payload.SubtractionIDs)
			if err != nil {
				return nil, err
			}
			if ids == nil {
				ids = []uuid.UUID{}
			}
			input.SubtractionIDs = &ids
		}
		if payload.Note != nil {
			note := validators.SanitizeString(*payload.Note, maxNoteLength)
			input.Note = &note
		}
		return svc.UpdateModifications(r.Context(), sessionID, uniqueIDParam(r), input)
	})
}

func CartRemoveItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (*cartsvc.View, error) {
		return svc.RemoveItem(r.Context(), sessionID, uniqueIDParam(r))
	})
}

// CartUpdateTip accepts a percentage, flat cents, or a flat amount typed in dollars.
func CartUpdateTip(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (*cartsvc.View, error) {
		var payload tipRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.UpdateTip(r.Context(), sessionID, cartsvc.TipInput{
			Type:    payload.Type,
			Value:   payload.Value,
			Dollars: strings.TrimSpace(payload.Dollars),
		})
	})
}

func CartClear(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (*cartsvc.View, error) {
		return svc.Clear(r.Context(), sessionID)
	})
}

func cartHandler(svc CartService, logg *logger.Logger, fn func(r *http.Request, sessionID string) (*cartsvc.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sessionID := middleware.CartSessionFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session missing"))
			return
		}
		view, err := fn(r, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func uniqueIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "uniqueId"))
}
