package httpx

import (
	"errors"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/payment"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SandboxHandler plays the customer confirming a payment with the provider.
type SandboxHandler struct {
	Sandbox *payment.Sandbox
	Log     zerolog.Logger
}

func (h *SandboxHandler) Register(r chi.Router) {
	r.Post("/sandbox/payments/{intentId}/succeed", h.succeed)
}

func (h *SandboxHandler) succeed(w http.ResponseWriter, r *http.Request) {
	in, err := h.Sandbox.Succeed(r.Context(), chi.URLParam(r, "intentId"))
	switch {
	case errors.Is(err, payment.ErrIntentNotFound):
		fail(w, r, h.Log, apperr.NotFound("payment intent %s not found", chi.URLParam(r, "intentId")), nil)
		return
	case errors.Is(err, payment.ErrInvalidState):
		fail(w, r, h.Log, apperr.Conflict("%v", err), nil)
		return
	case err != nil:
		fail(w, r, h.Log, err, nil)
		return
	}
	ok(w, http.StatusOK, "payment intent succeeded", in)
}
