package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/protomem/census-registry/internal/model"
	"github.com/protomem/census-registry/internal/validator"
)

func importIDFromRequest(r *http.Request) (model.ID, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "importId"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid import id: %w", err)
	}
	return model.ID(id), nil
}

func citizenIDFromRequest(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "citizenId"))

	var v validator.Validator
	v.Check(err == nil, "citizen id must be an integer")
	v.Check(err == nil && id >= 0, "citizen id must not be negative")
	if v.HasErrors() {
		return 0, fmt.Errorf("invalid citizen id %q", chi.URLParam(r, "citizenId"))
	}

	return id, nil
}
