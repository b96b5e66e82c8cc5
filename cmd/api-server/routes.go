package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (app *application) routes() http.Handler {
	mux := chi.NewRouter()

	mux.NotFound(app.notFound)
	mux.MethodNotAllowed(app.methodNotAllowed)

	mux.Use(app.traceID)
	mux.Use(app.logAccess)
	mux.Use(app.recoverPanic)

	mux.Use(app.CORS)

	mux.Get("/api/v1/status", app.handleStatus)

	mux.Post("/imports/", app.handleCreateImport)
	mux.Patch("/imports/{importId}/citizens/{citizenId}/", app.handlePatchCitizen)
	mux.Get("/imports/{importId}/citizens/", app.handleListCitizens)
	mux.Get("/imports/{importId}/citizens/birthdays/", app.handleBirthdayStats)
	mux.Get("/imports/{importId}/towns/stat/percentile/age/", app.handleTownAgeStats)

	app.logger.Debug("routes configured", "routes", chiRoutesToStrings(mux.Routes()))

	return mux
}

func chiRoutesToStrings(routes []chi.Route) []string {
	parsedRoutes := make([]string, 0, len(routes))
	for _, route := range routes {
		parsedRoutes = append(parsedRoutes, route.Pattern)
	}
	return parsedRoutes
}
