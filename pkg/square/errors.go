package square

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
)

// mapError translates a Square SDK failure into a domain error. Specific
// error entries in the body win over the HTTP status.
func mapError(err error, op string) error {
	msg := fmt.Sprintf("square %s failed", op)
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
	code := codeForStatus(apiErr.StatusCode)
	for _, e := range bodyErrors(apiErr) {
		if c, ok := codeForError(e); ok {
			code = c
			break
		}
	}
	return pkgerrors.Wrap(code, err, msg)
}

func codeForError(e *sq.Error) (pkgerrors.Code, bool) {
	switch {
	case e == nil:
		return "", false
	case e.Code == sq.ErrorCodeIdempotencyKeyReused:
		return pkgerrors.CodeIdempotency, true
	case e.Category == sq.ErrorCategoryAuthenticationError:
		return pkgerrors.CodeDependency, true
	case e.Category == sq.ErrorCategoryPaymentMethodError:
		return pkgerrors.CodePaymentDeclined, true
	}
	return "", false
}

// bodyErrors decodes the {"errors":[...]} body the SDK wraps in APIError.
func bodyErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(inner.Error())), &body); err != nil {
		return nil
	}
	return body.Errors
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusPaymentRequired:
		return pkgerrors.CodePaymentDeclined
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return pkgerrors.CodeDependency
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}
