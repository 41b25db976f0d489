package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tathang/foodcourt/internal/auth"
	"github.com/tathang/foodcourt/internal/metrics"
	"github.com/tathang/foodcourt/internal/orders"
)

type OrdersHandler struct {
	Svc *orders.Service
	Log *zap.Logger
}

type itemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type orderResponse struct {
	Order *orders.Order      `json:"order"`
	Items []orders.OrderItem `json:"items,omitempty"`
}

func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Create(r.Context(), auth.UserID(r))
	metrics.RecordOrderOperation("create", err)
	if err != nil {
		h.Log.Error("order create failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse{Order: o})
}

func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.List(r.Context(), auth.UserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, items, err := h.Svc.Get(r.Context(), auth.UserID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: o, Items: items})
}

func (h *OrdersHandler) Items(w http.ResponseWriter, r *http.Request) {
	_, items, err := h.Svc.Get(r.Context(), auth.UserID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *OrdersHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	o, err := h.Svc.AddItem(r.Context(), auth.UserID(r), chi.URLParam(r, "id"), req.ProductID, req.Quantity)
	metrics.RecordOrderOperation("add_item", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: o})
}

func (h *OrdersHandler) UpdateItemQty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	o, err := h.Svc.UpdateItemQty(r.Context(), auth.UserID(r), chi.URLParam(r, "id"), chi.URLParam(r, "productID"), req.Quantity)
	metrics.RecordOrderOperation("update_item", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: o})
}

func (h *OrdersHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.RemoveItem(r.Context(), auth.UserID(r), chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	metrics.RecordOrderOperation("remove_item", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: o})
}

func (h *OrdersHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Confirm(r.Context(), auth.UserID(r), chi.URLParam(r, "id"))
	metrics.RecordOrderOperation("confirm", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: o})
}

func (h *OrdersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Cancel(r.Context(), auth.UserID(r), chi.URLParam(r, "id"))
	metrics.RecordOrderOperation("cancel", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: o})
}

func (h *OrdersHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	b, err := h.Svc.Calculate(r.Context(), auth.UserID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	to, ok := orders.ParseStatus(req.Status)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status " + req.Status})
		return
	}
	o, err := h.Svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), to)
	metrics.RecordOrderOperation("update_status", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: o})
}
