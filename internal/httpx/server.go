package httpx

import (
	"net"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Deps struct {
	Cart    *CartHandler
	Orders  *OrdersHandler
	Sandbox *SandboxHandler // nil unless PAYMENT_PROVIDER=sandbox
	Limiter ratelimit.Limiter
	Log     zerolog.Logger
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		// limited ahead of auth so rejected identities are throttled too
		if d.Limiter != nil {
			r.Use(ratelimit.Middleware(d.Limiter, rateSubject, tooManyRequests(), d.Log))
		}
		r.Use(requireCustomer(d.Log))
		d.Cart.Register(r)
		d.Orders.Register(r)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAdmin(d.Log))
		d.Orders.RegisterAdmin(r)
	})

	if d.Sandbox != nil {
		d.Sandbox.Register(r)
	}
	return r
}

// rateSubject counts per customer, falling back to the client address when
// the request carries no valid identity.
func rateSubject(r *http.Request) string {
	if id, err := uuid.Parse(r.Header.Get(HeaderCustomerID)); err == nil {
		return "customer:" + id.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func tooManyRequests() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const msg = "too many requests, slow down"
		writeJSON(w, http.StatusTooManyRequests, envelope{
			Message:   msg,
			Error:     &errorBody{Code: "RATE_LIMITED", Message: msg},
			Timestamp: time.Now().UTC(),
		})
	})
}
