package main

import (
	"errors"
	"net/http"

	"github.com/protomem/census-registry/internal/model"
	"github.com/protomem/census-registry/internal/request"
	"github.com/protomem/census-registry/internal/response"
)

func (app *application) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := response.JSON(w, http.StatusOK, response.JSONObject{"status": "OK"}); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Create Import
//
// POST /imports/ accepts a batch of citizens and persists it atomically under
// a fresh import id. Any validation, parse or storage failure rejects the
// whole batch with 400 and leaves nothing behind.
func (app *application) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := request.Body(w, r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	importID, err := app.census.CreateImport(ctx, body)
	if err != nil {
		if model.IsClientError(err) {
			app.badRequest(w, r, err)
			return
		}

		app.serverError(w, r, err)
		return
	}

	created := response.JSONObject{"data": response.JSONObject{"import_id": importID}}
	if err := response.JSON(w, http.StatusCreated, created); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Patch Citizen
//
// PATCH /imports/{importId}/citizens/{citizenId}/ applies a partial update
// (any non-empty subset of the mutable fields, relatives included) and
// responds with the citizen's full current state. Unknown citizens map to 400
// together with the rest of the input-error taxonomy.
func (app *application) handlePatchCitizen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	importID, err := importIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	citizenID, err := citizenIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	body, err := request.Body(w, r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	citizen, err := app.census.PatchCitizen(ctx, importID, citizenID, body)
	if err != nil {
		if model.IsClientError(err) {
			app.badRequest(w, r, err)
			return
		}

		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, response.JSONObject{"data": citizen}); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle List Citizens
//
// GET /imports/{importId}/citizens/ returns every citizen of the import with
// its direct relatives; 404 when the import is unknown.
func (app *application) handleListCitizens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	importID, err := importIDFromRequest(r)
	if err != nil {
		app.notFound(w, r)
		return
	}

	citizens, err := app.census.ListCitizens(ctx, importID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			app.notFound(w, r)
			return
		}

		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, response.JSONObject{"data": citizens}); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Birthday Stats
//
// GET /imports/{importId}/citizens/birthdays/ returns, per calendar month,
// how many presents each citizen owes their relatives; 404 when the import is
// unknown.
func (app *application) handleBirthdayStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	importID, err := importIDFromRequest(r)
	if err != nil {
		app.notFound(w, r)
		return
	}

	stats, err := app.census.BirthdayStats(ctx, importID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			app.notFound(w, r)
			return
		}

		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, response.JSONObject{"data": stats}); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Town Age Stats
//
// GET /imports/{importId}/towns/stat/percentile/age/ returns p50/p75/p99 age
// percentiles per town; an unknown import yields an empty list.
func (app *application) handleTownAgeStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	importID, err := importIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	stats, err := app.census.TownAgeStats(ctx, importID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, response.JSONObject{"data": stats}); err != nil {
		app.serverError(w, r, err)
	}
}
