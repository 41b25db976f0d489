package orders

import "errors"

var (
	ErrNotFound          = errors.New("order: not found")
	ErrItemNotFound      = errors.New("order: item not found")
	ErrAccessDenied      = errors.New("order: access denied")
	ErrInsufficientStock = errors.New("order: insufficient stock")
	ErrEmpty             = errors.New("order: no items")
	ErrNotEditable       = errors.New("order: items can no longer be changed")
	ErrInvalidTransition = errors.New("order: invalid status transition")
	ErrInvalidQuantity   = errors.New("order: quantity must be greater than zero")
)
