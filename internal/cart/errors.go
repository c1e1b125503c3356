package cart

import "errors"

var (
	ErrInvalidItem   = errors.New("cart: invalid line item")
	ErrInvalidTip    = errors.New("cart: invalid tip")
	ErrUnknownAction = errors.New("cart: unknown action")
)
