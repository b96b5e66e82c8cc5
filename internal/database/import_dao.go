package database

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/protomem/census-registry/internal/model"
)

func (s *Storage) CreateImport(ctx context.Context) (model.ID, error) {
	logger := s.Logger.With("query", "createImport")

	query, args, err := s.db.Builder.
		Insert("imports").
		Columns("created_at").
		Values(time.Now()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var id model.ID
	row := s.ext.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&id); err != nil {
		logger.Warn("failed query execute", "error", err)

		return 0, err
	}

	return id, nil
}

func (s *Storage) HasImport(ctx context.Context, importID model.ID) (bool, error) {
	query, args, err := s.db.Builder.
		Select("1").
		From("imports").
		Where(squirrel.Eq{"id": importID}).
		ToSql()
	if err != nil {
		return false, err
	}

	s.Logger.Debug("build query", "query", "hasImport", "sql", query, "args", args)

	var one int
	row := s.ext.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&one); err != nil {
		if IsNoRows(err) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}
