package main

import (
	"log/slog"
	"net/http"

	"github.com/protomem/census-registry/internal/ctxstore"
	"github.com/protomem/census-registry/internal/response"
)

func (app *application) reportServerError(r *http.Request, err error) {
	attrs := []any{"method", r.Method, "url", r.URL.String()}
	if tid, ok := ctxstore.From[string](r.Context(), _traceIDKey); ok {
		attrs = append(attrs, _traceIDKey.String(), tid)
	}

	app.logger.Error(err.Error(), slog.Group("request", attrs...))
}

// errorResponse writes the empty-object error body the API contract fixes for
// every failure status.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int) {
	if err := response.JSON(w, status, response.JSONObject{}); err != nil {
		app.reportServerError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.reportServerError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError)
}

func (app *application) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Debug("bad request", "method", r.Method, "url", r.URL.String(), "error", err.Error())
	app.errorResponse(w, r, http.StatusBadRequest)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound)
}

func (app *application) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed)
}
