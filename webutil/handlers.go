package webutil

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// AppHandler represents a handler function that returns an error.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler adapts an AppHandler to the standard http.HandlerFunc signature.
// A returned error is logged and turned into a JSON error response, unless the
// handler already started writing its own response.
func MakeHandler(handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		err := handler(ww, r)
		if err == nil {
			return
		}

		var httpErr *HTTPError
		var publicMessage string
		var statusCode int

		switch {
		case errors.As(err, &httpErr):
			statusCode = httpErr.Code
			publicMessage = httpErr.Message
			logLevel := slog.LevelWarn
			if statusCode >= 500 {
				logLevel = slog.LevelError
			}
			cause := errors.Unwrap(httpErr)
			if cause != nil && cause.Error() != publicMessage {
				slog.Log(r.Context(), logLevel, "Client error response",
					"code", httpErr.Code,
					"msg", httpErr.Message,
					"cause", cause,
					"path", r.URL.Path,
					"method", r.Method,
				)
			} else {
				slog.Log(r.Context(), logLevel, "Client error response",
					"code", httpErr.Code,
					"msg", httpErr.Message,
					"path", r.URL.Path,
					"method", r.Method,
				)
			}

		case errors.Is(err, sql.ErrNoRows):
			statusCode = http.StatusNotFound
			publicMessage = msgNotFound
			slog.Info("Resource not found (sql.ErrNoRows)", "path", r.URL.Path, "method", r.Method, "error", err)

		default:
			statusCode = http.StatusInternalServerError
			publicMessage = msgInternalServer
			slog.Error("Unhandled internal error", "path", r.URL.Path, "method", r.Method, "error", err)
		}

		if HasResponseWriterSentHeader(ww) {
			slog.Warn("Handler returned error after writing response header",
				"path", r.URL.Path,
				"method", r.Method,
				"error", err,
			)
			return
		}

		RespondWithError(ww, statusCode, publicMessage)
	}
}
