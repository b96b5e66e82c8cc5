package census

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/protomem/census-registry/internal/model"
	"github.com/protomem/census-registry/internal/validator"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ruleSet holds the configurable validation rules and the clock they are
// checked against.
type ruleSet struct {
	rejectFutureBirthDate bool
	rejectSelfRelative    bool
	now                   func() time.Time
}

// fieldRules is the static dispatch table from attribute name to its check.
// Every citizen record must carry exactly these fields.
var fieldRules = map[string]func(ruleSet, any) bool{
	"citizen_id": ruleSet.checkInt,
	"town":       ruleSet.checkAddress,
	"street":     ruleSet.checkAddress,
	"building":   ruleSet.checkAddress,
	"apartment":  ruleSet.checkInt,
	"name":       ruleSet.checkName,
	"birth_date": ruleSet.checkBirthDate,
	"gender":     ruleSet.checkGender,
	"relatives":  ruleSet.checkRelatives,
}

func (ruleSet) checkInt(value any) bool {
	_, ok := intValue(value)
	return ok
}

func (ruleSet) checkAddress(value any) bool {
	s, ok := value.(string)
	return ok && validator.MinRunes(s, 1) && validator.MaxRunes(s, 256) && validator.ContainsAlnum(s)
}

func (ruleSet) checkName(value any) bool {
	s, ok := value.(string)
	return ok && validator.MinRunes(s, 1) && validator.MaxRunes(s, 256)
}

func (r ruleSet) checkBirthDate(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}

	date, err := model.ParseDate(s)
	if err != nil {
		return false
	}
	if r.rejectFutureBirthDate && date.Time.After(r.now()) {
		return false
	}

	return true
}

func (ruleSet) checkGender(value any) bool {
	s, ok := value.(string)
	return ok && validator.In(model.Gender(s), model.GenderMale, model.GenderFemale)
}

func (ruleSet) checkRelatives(value any) bool {
	_, ok := relativesValue(value)
	return ok
}

// intValue accepts only integral JSON numbers; bodies are decoded with
// UseNumber so 3.0 and 1e2 are not integers here.
func intValue(value any) (int, bool) {
	num, ok := value.(json.Number)
	if !ok {
		return 0, false
	}

	n, err := strconv.Atoi(num.String())
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}

func relativesValue(value any) ([]int, bool) {
	list, ok := value.([]any)
	if !ok {
		return nil, false
	}

	relatives := make([]int, 0, len(list))
	for _, item := range list {
		n, ok := intValue(item)
		if !ok {
			return nil, false
		}
		relatives = append(relatives, n)
	}

	// Duplicate entries would map to duplicate edge rows.
	if !validator.NoDuplicates(relatives) {
		return nil, false
	}

	return relatives, true
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after value")
	}

	object, ok := payload.(map[string]any)
	if !ok {
		return nil, errors.New("value is not an object")
	}

	return object, nil
}

// parseBatch validates a whole import payload and returns the typed citizens.
// Relative symmetry is checked incrementally against already-scanned citizens;
// forward references are resolved once the batch is fully known.
func (r ruleSet) parseBatch(data []byte) ([]model.Citizen, error) {
	payload, err := decodeObject(data)
	if err != nil {
		return nil, model.NewError("batch", model.ErrInvalid)
	}

	rawCitizens, ok := payload["citizens"].([]any)
	if !ok {
		return nil, model.NewError("citizens", model.ErrInvalid)
	}

	citizens := make([]model.Citizen, 0, len(rawCitizens))
	declared := make(map[int][]int, len(rawCitizens))

	for _, raw := range rawCitizens {
		citizen, err := r.parseCitizen(raw)
		if err != nil {
			return nil, err
		}

		if _, exists := declared[citizen.CitizenID]; exists {
			return nil, fmt.Errorf("duplicate citizen_id %d: %w", citizen.CitizenID, model.ErrInvalid)
		}

		// An already-scanned relative must have listed this citizen back.
		for _, rel := range citizen.Relatives {
			if back, seen := declared[rel]; seen && !slices.Contains(back, citizen.CitizenID) {
				return nil, model.NewError("relatives", model.ErrInvalid)
			}
		}

		declared[citizen.CitizenID] = citizen.Relatives
		citizens = append(citizens, citizen)
	}

	// Resolve forward references: every declared pair must exist in the batch
	// and be mutual.
	for id, relatives := range declared {
		for _, rel := range relatives {
			back, exists := declared[rel]
			if !exists {
				return nil, model.NewError("relatives", model.ErrInvalid)
			}
			if rel != id && !slices.Contains(back, id) {
				return nil, model.NewError("relatives", model.ErrInvalid)
			}
		}
	}

	return citizens, nil
}

func (r ruleSet) parseCitizen(raw any) (model.Citizen, error) {
	record, ok := raw.(map[string]any)
	if !ok {
		return model.Citizen{}, model.NewError("citizen", model.ErrInvalid)
	}

	var v validator.Validator
	v.Check(len(record) == len(fieldRules), "must have exactly the required fields")
	for name, rule := range fieldRules {
		value, exists := record[name]
		v.CheckField(exists && rule(r, value), name, "is missing or invalid")
	}
	if v.HasErrors() {
		return model.Citizen{}, fieldError("citizen", v)
	}

	citizenID, _ := intValue(record["citizen_id"])
	apartment, _ := intValue(record["apartment"])
	birthDate, _ := model.ParseDate(record["birth_date"].(string))
	relatives, _ := relativesValue(record["relatives"])

	if r.rejectSelfRelative && slices.Contains(relatives, citizenID) {
		return model.Citizen{}, fmt.Errorf("citizen %d relates to itself: %w", citizenID, model.ErrInvalid)
	}

	return model.Citizen{
		CitizenID: citizenID,
		Town:      record["town"].(string),
		Street:    record["street"].(string),
		Building:  record["building"].(string),
		Apartment: apartment,
		Name:      record["name"].(string),
		BirthDate: birthDate,
		Gender:    model.Gender(record["gender"].(string)),
		Relatives: relatives,
	}, nil
}

// parsePatch validates a partial update for one citizen. citizen_id itself is
// immutable and never a legal key.
func (r ruleSet) parsePatch(citizenID int, data []byte) (model.CitizenUpdate, []int, bool, error) {
	var (
		upd          model.CitizenUpdate
		relatives    []int
		hasRelatives bool
	)

	record, err := decodeObject(data)
	if err != nil {
		return upd, nil, false, model.NewError("patch", model.ErrInvalid)
	}
	if len(record) == 0 {
		return upd, nil, false, model.NewError("patch", model.ErrInvalid)
	}

	var v validator.Validator
	for name, value := range record {
		rule, known := fieldRules[name]
		if !known || name == "citizen_id" {
			v.CheckField(false, name, "is not a mutable field")
			continue
		}
		v.CheckField(rule(r, value), name, "is invalid")
	}
	if v.HasErrors() {
		return upd, nil, false, fieldError("patch", v)
	}

	for name, value := range record {
		switch name {
		case "town":
			s := value.(string)
			upd.Town = &s
		case "street":
			s := value.(string)
			upd.Street = &s
		case "building":
			s := value.(string)
			upd.Building = &s
		case "apartment":
			n, _ := intValue(value)
			upd.Apartment = &n
		case "name":
			s := value.(string)
			upd.Name = &s
		case "birth_date":
			date, _ := model.ParseDate(value.(string))
			upd.BirthDate = &date
		case "gender":
			gender := model.Gender(value.(string))
			upd.Gender = &gender
		case "relatives":
			relatives, _ = relativesValue(value)
			hasRelatives = true
		}
	}

	if hasRelatives && r.rejectSelfRelative && slices.Contains(relatives, citizenID) {
		return upd, nil, false, fmt.Errorf("citizen %d relates to itself: %w", citizenID, model.ErrInvalid)
	}

	return upd, relatives, hasRelatives, nil
}

func fieldError(entity string, v validator.Validator) error {
	if len(v.FieldErrors) == 0 {
		return model.NewError(entity, model.ErrInvalid)
	}

	fields := maps.Keys(v.FieldErrors)
	slices.Sort(fields)

	return fmt.Errorf("%s fields [%s]: %w", entity, strings.Join(fields, " "), model.ErrInvalid)
}
