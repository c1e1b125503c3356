package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/angelmondragon/sunrise-backend/api/responses"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

const maxWebhookBytes = 1 << 20

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// receiver is the provider-neutral delivery pipeline. verify authenticates
// the raw payload and returns the decoded event with its delivery id.
type receiver[E any] struct {
	provider string
	guard    eventGuard
	logg     *logger.Logger
	verify   func(r *http.Request, payload []byte) (E, string, error)
	handle   func(ctx context.Context, event E) error
}

func (rc receiver[E]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if rc.guard == nil {
		responses.WriteError(ctx, rc.logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		responses.WriteError(ctx, rc.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
		return
	}

	event, eventID, err := rc.verify(r, payload)
	if err != nil {
		responses.WriteError(ctx, rc.logg, w, err)
		return
	}

	seen, err := rc.guard.CheckAndMark(ctx, eventID)
	if err != nil {
		responses.WriteError(ctx, rc.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	if seen {
		rc.note(ctx, eventID, "duplicate delivery ignored")
		responses.WriteSuccess(w, nil)
		return
	}

	if err := rc.handle(ctx, event); err != nil {
		// A failed event must stay retryable.
		if delErr := rc.guard.Delete(ctx, eventID); delErr != nil && rc.logg != nil {
			rc.logg.Error(rc.logg.WithFields(ctx, map[string]any{"event_id": eventID}), "release webhook marker", delErr)
		}
		responses.WriteError(ctx, rc.logg, w, err)
		return
	}

	rc.note(ctx, eventID, "processed")
	responses.WriteSuccess(w, nil)
}

func (rc receiver[E]) note(ctx context.Context, eventID, msg string) {
	if rc.logg == nil {
		return
	}
	ctx = rc.logg.WithFields(ctx, map[string]any{"provider": rc.provider, "event_id": eventID})
	rc.logg.Info(ctx, fmt.Sprintf("%s webhook %s", rc.provider, msg))
}

func unavailable(what string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeInternal, what+" unavailable"))
	}
}
