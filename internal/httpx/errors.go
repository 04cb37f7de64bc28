package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindConflict:          http.StatusConflict,
	apperr.KindInsufficientStock: http.StatusBadRequest,
	apperr.KindUnauthorized:      http.StatusUnauthorized,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindInternal:          http.StatusInternalServerError,
}

type overrides map[apperr.Kind]int

// fail writes err as an error envelope. Internal causes are logged and
// never written to the client.
func fail(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error, over overrides) {
	kind := apperr.KindOf(err)
	code, found := over[kind]
	if !found {
		code = statusByKind[kind]
	}

	body := &errorBody{Code: kind.String(), Message: "internal server error"}
	e, typed := apperr.As(err)
	if typed && e.Message != "" {
		body.Message = e.Message
	}
	switch kind {
	case apperr.KindInternal:
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).Str("path", r.URL.Path).Msg("internal error")
	case apperr.KindInsufficientStock:
		body.Details = stockDetails{Available: e.Available, Requested: e.Requested}
	}

	writeJSON(w, code, envelope{Success: false, Message: body.Message, Error: body, Timestamp: time.Now().UTC()})
}
