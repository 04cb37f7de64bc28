package httpx

import (
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type OrdersHandler struct {
	Service *orders.Service
	Log     zerolog.Logger
}

type createOrderReq struct {
	AddressID               string `json:"addressId"`
	PaymentMethod           string `json:"paymentMethod"`
	ProviderPaymentMethodID string `json:"providerPaymentMethodId"`
}

type patchOrderReq struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type cancelResp struct {
	Order  orders.Order       `json:"order"`
	Refund *orders.RefundInfo `json:"refund,omitempty"`
}

type advanceReq struct {
	Status string `json:"status"`
}

const (
	actionCancel         = "cancel"
	actionConfirmPayment = "confirmPayment"
)

// blocked checkouts are the caller's to fix, so they report 400
var checkoutOverrides = overrides{apperr.KindConflict: http.StatusBadRequest}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/order", h.create)
	r.Get("/order", h.list)
	r.Get("/order/{id}", h.get)
	r.Patch("/order/{id}", h.patch)
}

func (h *OrdersHandler) RegisterAdmin(r chi.Router) {
	r.Patch("/order/{id}/status", h.advance)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.Log, err, nil)
		return
	}
	created, err := h.Service.Create(r.Context(), CustomerID(r.Context()), orders.CreateInput{
		AddressID:               req.AddressID,
		PaymentMethod:           req.PaymentMethod,
		ProviderPaymentMethodID: req.ProviderPaymentMethodID,
		IdempotencyKey:          r.Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		fail(w, r, h.Log, err, checkoutOverrides)
		return
	}
	if created.Replayed {
		ok(w, http.StatusOK, "order already created", created)
		return
	}
	ok(w, http.StatusCreated, "order created", created)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	res, err := h.Service.List(r.Context(), CustomerID(r.Context()), page, limit)
	if err != nil {
		fail(w, r, h.Log, err, nil)
		return
	}
	okList(w, "orders retrieved", res.Orders, NewMeta(res.Page, res.Limit, res.Total))
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.Get(r.Context(), CustomerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.Log, err, nil)
		return
	}
	ok(w, http.StatusOK, "order retrieved", o)
}

// patch cancels the order unless the body asks for payment confirmation.
func (h *OrdersHandler) patch(w http.ResponseWriter, r *http.Request) {
	var req patchOrderReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.Log, err, nil)
		return
	}
	customer, id := CustomerID(r.Context()), chi.URLParam(r, "id")

	switch req.Action {
	case "", actionCancel:
		o, refund, err := h.Service.Cancel(r.Context(), customer, id, req.Reason)
		if err != nil {
			fail(w, r, h.Log, err, nil)
			return
		}
		msg := "order cancelled"
		if refund != nil {
			msg = "order cancelled, refund pending"
		}
		ok(w, http.StatusOK, msg, cancelResp{Order: o, Refund: refund})
	case actionConfirmPayment:
		o, err := h.Service.ConfirmPayment(r.Context(), customer, id)
		if err != nil {
			fail(w, r, h.Log, err, nil)
			return
		}
		ok(w, http.StatusOK, "payment confirmed", o)
	default:
		fail(w, r, h.Log, apperr.Validation("unknown action %q", req.Action), nil)
	}
}

func (h *OrdersHandler) advance(w http.ResponseWriter, r *http.Request) {
	var req advanceReq
	if err := decode(r, &req); err != nil {
		fail(w, r, h.Log, err, nil)
		return
	}
	to, valid := orders.ParseStatus(req.Status)
	if !valid {
		fail(w, r, h.Log, apperr.Validation("unknown status %q", req.Status), nil)
		return
	}
	o, err := h.Service.Advance(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		fail(w, r, h.Log, err, nil)
		return
	}
	ok(w, http.StatusOK, "order status updated", o)
}
