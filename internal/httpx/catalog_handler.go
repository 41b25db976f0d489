package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tathang/foodcourt/internal/catalog"
)

type CatalogHandler struct {
	Store catalog.Store
	Log   *zap.Logger
}

func (h *CatalogHandler) Menu(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.Menu(r.Context())
	if err != nil {
		h.Log.Error("menu query failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Store.Categories(r.Context())
	if err != nil {
		h.Log.Error("categories query failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.ProductByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) ProductsByCategory(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ProductsByCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}
