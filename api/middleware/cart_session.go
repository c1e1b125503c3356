package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/sunrise-backend/api/responses"
	"github.com/angelmondragon/sunrise-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

const CartTokenHeader = "X-Cart-Token"

// CartSession resolves the shopper's cart session from X-Cart-Token.
// A missing, expired or tampered token starts a new session. The current token
// is always echoed back, re-minted once half its lifetime has passed.
func CartSession(signer *auth.CartSigner, logg *logger.Logger, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			issuedAt := now()
			token := strings.TrimSpace(r.Header.Get(CartTokenHeader))

			var sessionID string
			if token != "" {
				claims, err := signer.Parse(token)
				switch {
				case err != nil:
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "reason", err.Error()), "cart token rejected; starting new session")
					}
					token = ""
				case signer.NeedsRefresh(claims, issuedAt):
					sessionID = claims.SessionID()
					token = ""
				default:
					sessionID = claims.SessionID()
				}
			}

			if token == "" {
				minted, claims, err := signer.Mint(issuedAt, sessionID)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint cart token"))
					return
				}
				token = minted
				sessionID = claims.SessionID()
			}

			w.Header().Set(CartTokenHeader, token)
			ctx = WithCartSession(ctx, sessionID)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
