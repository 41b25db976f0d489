package httpx

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tathang/foodcourt/internal/auth"
	"github.com/tathang/foodcourt/internal/billing"
	"github.com/tathang/foodcourt/internal/metrics"
	"github.com/tathang/foodcourt/internal/orders"
	"github.com/tathang/foodcourt/internal/payos"
)

type PaymentHandler struct {
	Bills   *billing.Service
	Gateway *payos.Client
	Orders  *orders.Service
	Log     *zap.Logger
}

type payRequest struct {
	Method string `json:"method"`
}

// Pay settles an order. CASH and MOMO complete synchronously; PAYOS returns
// a hosted checkout URL and the bill stays pending until the webhook fires.
func (h *PaymentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	method, ok := billing.ParseMethod(req.Method)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown payment method " + req.Method})
		return
	}

	// Reject before touching billing if the caller does not own the order.
	if _, _, err := h.Orders.Get(r.Context(), auth.UserID(r), orderID); err != nil {
		writeError(w, err)
		return
	}

	if method == billing.MethodPayOS {
		url, err := h.Gateway.CreatePaymentLink(r.Context(), orderID)
		metrics.RecordOrderOperation("pay_gateway", err)
		if err != nil {
			h.Log.Error("payment link creation failed", zap.String("order_id", orderID), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"checkout_url": url})
		return
	}

	bill, err := h.Bills.CreateBill(r.Context(), orderID, method)
	metrics.RecordOrderOperation("pay", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (h *PaymentHandler) Bill(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if _, _, err := h.Orders.Get(r.Context(), auth.UserID(r), orderID); err != nil {
		writeError(w, err)
		return
	}
	bill, err := h.Bills.BillByOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// Webhook ingests gateway confirmations. The response is always
// {"success":true}: failing here would only make the provider retry a
// payload we cannot process, so errors are logged and swallowed.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err == nil {
		err = h.Gateway.HandleWebhook(r.Context(), raw)
	}
	if err != nil {
		h.Log.Error("webhook processing failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Success is the post-checkout redirect target. Settlement happens through
// the webhook, so there is nothing to do here.
func (h *PaymentHandler) Success(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "payment received, your order will update shortly",
		"order_id": r.URL.Query().Get("orderId"),
	})
}

// Cancel marks the pending gateway bill FAILED when the customer backs out
// of the hosted checkout page.
func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing orderId"})
		return
	}
	bill, err := h.Bills.FailPendingGatewayBill(r.Context(), orderID)
	if err != nil {
		h.Log.Warn("cancel redirect with no pending bill", zap.String("order_id", orderID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}
