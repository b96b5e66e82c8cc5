package database

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/protomem/census-registry/internal/model"
)

var citizenColumns = []string{
	"import_id", "citizen_id", "town", "street", "building",
	"apartment", "name", "birth_date", "gender",
}

// InsertCitizens persists the batch one row at a time, mirroring the citizen
// write order of an import; the caller wraps it in WithTx.
func (s *Storage) InsertCitizens(ctx context.Context, importID model.ID, citizens []model.Citizen) ([]model.Citizen, error) {
	logger := s.Logger.With("query", "insertCitizens")

	stored := make([]model.Citizen, 0, len(citizens))
	for _, citizen := range citizens {
		citizen.ImportID = importID

		query, args, err := s.db.Builder.
			Insert("citizens").
			Columns(citizenColumns...).
			Values(
				citizen.ImportID, citizen.CitizenID, citizen.Town, citizen.Street,
				citizen.Building, citizen.Apartment, citizen.Name, citizen.BirthDate, citizen.Gender,
			).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return nil, err
		}

		logger.Debug("build query", "sql", query, "args", args)

		row := s.ext.QueryRowxContext(ctx, query, args...)
		if err := row.Scan(&citizen.ID); err != nil {
			logger.Warn("failed query execute", "error", err)

			if IsUniqueViolation(err) {
				return nil, model.NewError("citizen", model.ErrExists)
			}
			if IsValueRejected(err) {
				return nil, model.NewError("citizen", model.ErrInvalid)
			}

			return nil, err
		}

		stored = append(stored, citizen)
	}

	logger.Debug("success query execute", "importId", importID, "countCitizens", len(stored))

	return stored, nil
}

func (s *Storage) GetCitizen(ctx context.Context, importID model.ID, citizenID int) (model.Citizen, error) {
	logger := s.Logger.With("query", "getCitizen")

	query, args, err := s.db.Builder.
		Select("*").
		From("citizens").
		Where(squirrel.Eq{"import_id": importID}).
		Where(squirrel.Eq{"citizen_id": citizenID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Citizen{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var citizen model.Citizen
	row := s.ext.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&citizen); err != nil {
		if IsNoRows(err) {
			return model.Citizen{}, model.NewError("citizen", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.Citizen{}, err
	}

	return citizen, nil
}

func (s *Storage) UpdateCitizen(ctx context.Context, id model.ID, upd model.CitizenUpdate) error {
	logger := s.Logger.With("query", "updateCitizen")

	data := make(map[string]any, 7)
	if upd.Town != nil {
		data["town"] = *upd.Town
	}
	if upd.Street != nil {
		data["street"] = *upd.Street
	}
	if upd.Building != nil {
		data["building"] = *upd.Building
	}
	if upd.Apartment != nil {
		data["apartment"] = *upd.Apartment
	}
	if upd.Name != nil {
		data["name"] = *upd.Name
	}
	if upd.BirthDate != nil {
		data["birth_date"] = *upd.BirthDate
	}
	if upd.Gender != nil {
		data["gender"] = *upd.Gender
	}
	if len(data) == 0 {
		return nil
	}

	query, args, err := s.db.Builder.
		Update("citizens").
		SetMap(data).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	logger.Debug("build query", "sql", query, "args", args)

	if _, err := s.ext.ExecContext(ctx, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		if IsValueRejected(err) {
			return model.NewError("citizen", model.ErrInvalid)
		}

		return err
	}

	logger.Debug("success query execute", "updateId", id, "countUpdatedFields", len(data))

	return nil
}

func (s *Storage) ListCitizens(ctx context.Context, importID model.ID) ([]model.Citizen, error) {
	logger := s.Logger.With("query", "listCitizens")

	query, args, err := s.db.Builder.
		Select("*").
		From("citizens").
		Where(squirrel.Eq{"import_id": importID}).
		OrderBy("citizen_id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	citizens := make([]model.Citizen, 0)
	if err := sqlx.SelectContext(ctx, s.ext, &citizens, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		return nil, err
	}

	logger.Debug("success query execute", "countCitizens", len(citizens))

	return citizens, nil
}
