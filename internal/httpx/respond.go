package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tathang/foodcourt/internal/auth"
	"github.com/tathang/foodcourt/internal/billing"
	"github.com/tathang/foodcourt/internal/catalog"
	"github.com/tathang/foodcourt/internal/orders"
	"github.com/tathang/foodcourt/internal/payos"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
}

// statusOf maps domain sentinel errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, orders.ErrItemNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, billing.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrBadLogin):
		return http.StatusUnauthorized
	case errors.Is(err, orders.ErrInsufficientStock),
		errors.Is(err, orders.ErrEmpty),
		errors.Is(err, orders.ErrNotEditable),
		errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, orders.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, billing.ErrDuplicate),
		errors.Is(err, auth.ErrUserExists),
		errors.Is(err, auth.ErrOTPInvalid):
		return http.StatusConflict
	case errors.Is(err, payos.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
