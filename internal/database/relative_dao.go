package database

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/protomem/census-registry/internal/model"
)

// InsertEdges bulk-inserts relative pairs in one statement.
func (s *Storage) InsertEdges(ctx context.Context, edges []model.Edge) error {
	logger := s.Logger.With("query", "insertEdges")

	if len(edges) == 0 {
		return nil
	}

	builder := s.db.Builder.
		Insert("relatives").
		Columns("import_id", "citizen_1", "citizen_2")
	for _, edge := range edges {
		builder = builder.Values(edge.ImportID, edge.Citizen1, edge.Citizen2)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	logger.Debug("build query", "sql", query, "args", args)

	if _, err := s.ext.ExecContext(ctx, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		if IsUniqueViolation(err) {
			return model.NewError("relative", model.ErrExists)
		}

		return err
	}

	logger.Debug("success query execute", "countEdges", len(edges))

	return nil
}

// DeleteEdges removes every pair touching the citizen row within the import.
func (s *Storage) DeleteEdges(ctx context.Context, importID model.ID, citizenRow model.ID) error {
	logger := s.Logger.With("query", "deleteEdges")

	query, args, err := s.db.Builder.
		Delete("relatives").
		Where(squirrel.Eq{"import_id": importID}).
		Where(squirrel.Or{
			squirrel.Eq{"citizen_1": citizenRow},
			squirrel.Eq{"citizen_2": citizenRow},
		}).
		ToSql()
	if err != nil {
		return err
	}

	logger.Debug("build query", "sql", query, "args", args)

	if _, err := s.ext.ExecContext(ctx, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		return err
	}

	return nil
}

func (s *Storage) ListEdges(ctx context.Context, importID model.ID) ([]model.Edge, error) {
	logger := s.Logger.With("query", "listEdges")

	query, args, err := s.db.Builder.
		Select("*").
		From("relatives").
		Where(squirrel.Eq{"import_id": importID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	edges := make([]model.Edge, 0)
	if err := sqlx.SelectContext(ctx, s.ext, &edges, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		return nil, err
	}

	return edges, nil
}

// ListRelatives resolves the public citizen_ids at graph distance 1: the
// other endpoint of every edge the citizen row appears in.
func (s *Storage) ListRelatives(ctx context.Context, importID model.ID, citizenRow model.ID) ([]int, error) {
	logger := s.Logger.With("query", "listRelatives")

	query, args, err := s.db.Builder.
		Select("c.citizen_id").
		From("relatives r").
		Join("citizens c ON c.id = CASE WHEN r.citizen_1 = ? THEN r.citizen_2 ELSE r.citizen_1 END", citizenRow).
		Where(squirrel.Eq{"r.import_id": importID}).
		Where(squirrel.Or{
			squirrel.Eq{"r.citizen_1": citizenRow},
			squirrel.Eq{"r.citizen_2": citizenRow},
		}).
		OrderBy("c.citizen_id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	relatives := make([]int, 0)
	if err := sqlx.SelectContext(ctx, s.ext, &relatives, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		return nil, err
	}

	return relatives, nil
}
