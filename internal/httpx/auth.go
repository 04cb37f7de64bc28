package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Authentication happens at the gateway; it forwards the customer id and
// role as headers.
const (
	HeaderCustomerID = "X-Customer-Id"
	HeaderRole       = "X-Role"
)

type ctxKey int

const customerKey ctxKey = iota

func CustomerID(ctx context.Context) string {
	id, _ := ctx.Value(customerKey).(string)
	return id
}

func WithCustomer(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, customerKey, id)
}

func requireCustomer(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(r.Header.Get(HeaderCustomerID))
			if err != nil {
				fail(w, r, log, apperr.Unauthorized("missing or invalid customer identity"), nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCustomer(r.Context(), id.String())))
		})
	}
}

func requireAdmin(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(HeaderRole) != "admin" {
				fail(w, r, log, apperr.Forbidden("admin role required"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
