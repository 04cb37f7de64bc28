package httpx

import (
	"net/http"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type CartHandler struct {
	Engine *cart.Engine
	Log    zerolog.Logger
}

type addToCartReq struct {
	ProductID       string   `json:"productId"`
	Quantity        *int     `json:"quantity"`
	SelectedOptions []string `json:"selectedOptions"`
}

type updateCartReq struct {
	Quantity        *int     `json:"quantity"`
	SelectedOptions []string `json:"selectedOptions"`
}

type removeCartReq struct {
	SelectedOptions []string `json:"selectedOptions"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.get)
	r.Post("/cart", h.add)
	r.Put("/cart/{productId}", h.update)
	r.Delete("/cart/{productId}", h.remove)
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Engine.View(r.Context(), CustomerID(r.Context()))
	if err != nil {
		fail(w, r, h.Log, err, nil)
		return
	}
	ok(w, http.StatusOK, "cart retrieved", view)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addToCartReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.Log, err, nil)
		return
	}
	if req.Quantity == nil {
		fail(w, r, h.Log, apperr.Validation("quantity is required"), nil)
		return
	}
	view, err := h.Engine.Add(r.Context(), CustomerID(r.Context()), req.ProductID, *req.Quantity, req.SelectedOptions)
	if err != nil {
		fail(w, r, h.Log, err, nil)
		return
	}
	ok(w, http.StatusOK, "item added to cart", view)
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateCartReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.Log, err, nil)
		return
	}
	if req.Quantity == nil {
		fail(w, r, h.Log, apperr.Validation("quantity is required"), nil)
		return
	}
	view, err := h.Engine.UpdateQuantity(r.Context(), CustomerID(r.Context()), chi.URLParam(r, "productId"), *req.Quantity, req.SelectedOptions)
	if err != nil {
		fail(w, r, h.Log, err, nil)
		return
	}
	ok(w, http.StatusOK, "cart updated", view)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	var req removeCartReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.Log, err, nil)
		return
	}
	// some clients cannot send a DELETE body
	if len(req.SelectedOptions) == 0 {
		if q := r.URL.Query().Get("selectedOptions"); q != "" {
			req.SelectedOptions = strings.Split(q, ",")
		}
	}
	view, err := h.Engine.Remove(r.Context(), CustomerID(r.Context()), chi.URLParam(r, "productId"), req.SelectedOptions)
	if err != nil {
		fail(w, r, h.Log, err, nil)
		return
	}
	ok(w, http.StatusOK, "item removed from cart", view)
}
