// Package census is the validation, consistency-maintenance and aggregation
// engine over the citizen/relatives graph. Storage is reached only through the
// Repo interface so the transaction boundary stays explicit and testable.
package census

import (
	"context"
	"log/slog"
	"time"

	"github.com/protomem/census-registry/internal/model"

	"golang.org/x/exp/slices"
)

// Repo is the transactional store the engine runs against. WithTx hands the
// callback a Repo whose writes commit or roll back as one unit.
type Repo interface {
	WithTx(ctx context.Context, fn func(repo Repo) error) error

	CreateImport(ctx context.Context) (model.ID, error)
	HasImport(ctx context.Context, importID model.ID) (bool, error)

	InsertCitizens(ctx context.Context, importID model.ID, citizens []model.Citizen) ([]model.Citizen, error)
	GetCitizen(ctx context.Context, importID model.ID, citizenID int) (model.Citizen, error)
	UpdateCitizen(ctx context.Context, id model.ID, upd model.CitizenUpdate) error
	ListCitizens(ctx context.Context, importID model.ID) ([]model.Citizen, error)

	InsertEdges(ctx context.Context, edges []model.Edge) error
	DeleteEdges(ctx context.Context, importID model.ID, citizenRow model.ID) error
	ListEdges(ctx context.Context, importID model.ID) ([]model.Edge, error)
	ListRelatives(ctx context.Context, importID model.ID, citizenRow model.ID) ([]int, error)
}

type Config struct {
	// RejectFutureBirthDate fails validation for birth dates after "now".
	RejectFutureBirthDate bool
	// RejectSelfRelative fails validation for a citizen listing itself.
	RejectSelfRelative bool
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

type Service struct {
	logger *slog.Logger
	repo   Repo
	rules  ruleSet
}

func New(logger *slog.Logger, repo Repo, cfg Config) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		logger: logger.With("module", "census"),
		repo:   repo,
		rules: ruleSet{
			rejectFutureBirthDate: cfg.RejectFutureBirthDate,
			rejectSelfRelative:    cfg.RejectSelfRelative,
			now:                   now,
		},
	}
}

// CreateImport validates a raw batch payload and persists it atomically:
// import row, citizens and relative edges all become visible together or not
// at all.
func (s *Service) CreateImport(ctx context.Context, body []byte) (model.ID, error) {
	citizens, err := s.rules.parseBatch(body)
	if err != nil {
		s.logger.Debug("rejected batch", "error", err)
		return 0, err
	}

	var importID model.ID
	err = s.repo.WithTx(ctx, func(repo Repo) error {
		id, err := repo.CreateImport(ctx)
		if err != nil {
			return err
		}

		stored, err := repo.InsertCitizens(ctx, id, citizens)
		if err != nil {
			return err
		}

		edges := relativeEdges(id, stored)
		if len(edges) > 0 {
			if err := repo.InsertEdges(ctx, edges); err != nil {
				return err
			}
		}

		importID = id
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("created import", "importId", importID, "citizens", len(citizens))

	return importID, nil
}

// relativeEdges emits each unordered pair once, from the lower-id side. Self
// pairs emit nothing, so no self-loop rows exist even when self-relations are
// accepted.
func relativeEdges(importID model.ID, citizens []model.Citizen) []model.Edge {
	rows := make(map[int]model.ID, len(citizens))
	for _, citizen := range citizens {
		rows[citizen.CitizenID] = citizen.ID
	}

	var edges []model.Edge
	for _, citizen := range citizens {
		for _, rel := range citizen.Relatives {
			if rel > citizen.CitizenID {
				edges = append(edges, model.Edge{
					ImportID: importID,
					Citizen1: rows[citizen.CitizenID],
					Citizen2: rows[rel],
				})
			}
		}
	}

	return edges
}

// PatchCitizen applies a partial update in one transaction: field changes and
// relative-edge replacement commit together or not at all.
func (s *Service) PatchCitizen(ctx context.Context, importID model.ID, citizenID int, body []byte) (model.Citizen, error) {
	upd, relatives, hasRelatives, err := s.rules.parsePatch(citizenID, body)
	if err != nil {
		s.logger.Debug("rejected patch", "importId", importID, "citizenId", citizenID, "error", err)
		return model.Citizen{}, err
	}

	var patched model.Citizen
	err = s.repo.WithTx(ctx, func(repo Repo) error {
		citizen, err := repo.GetCitizen(ctx, importID, citizenID)
		if err != nil {
			return err
		}

		if !upd.Empty() {
			if err := repo.UpdateCitizen(ctx, citizen.ID, upd); err != nil {
				return err
			}
		}

		if hasRelatives {
			if err := s.replaceRelatives(ctx, repo, citizen, relatives); err != nil {
				return err
			}
		}

		current, err := repo.GetCitizen(ctx, importID, citizenID)
		if err != nil {
			return err
		}

		if hasRelatives {
			current.Relatives = slices.Clone(relatives)
			if current.Relatives == nil {
				current.Relatives = make([]int, 0)
			}
		} else {
			current.Relatives, err = repo.ListRelatives(ctx, importID, current.ID)
			if err != nil {
				return err
			}
		}

		patched = current
		return nil
	})
	if err != nil {
		return model.Citizen{}, err
	}

	return patched, nil
}

// replaceRelatives drops every edge touching the citizen and inserts the new
// set. Each new id must resolve within the same import.
func (s *Service) replaceRelatives(ctx context.Context, repo Repo, citizen model.Citizen, relatives []int) error {
	if err := repo.DeleteEdges(ctx, citizen.ImportID, citizen.ID); err != nil {
		return err
	}

	all, err := repo.ListCitizens(ctx, citizen.ImportID)
	if err != nil {
		return err
	}
	rows := make(map[int]model.ID, len(all))
	for _, other := range all {
		rows[other.CitizenID] = other.ID
	}

	edges := make([]model.Edge, 0, len(relatives))
	for _, rel := range relatives {
		row, ok := rows[rel]
		if !ok {
			return model.NewError("relative", model.ErrNotFound)
		}
		if rel == citizen.CitizenID {
			continue // accepted self-relation still emits no edge row
		}

		edge := model.Edge{ImportID: citizen.ImportID, Citizen1: citizen.ID, Citizen2: row}
		if rel < citizen.CitizenID {
			edge.Citizen1, edge.Citizen2 = edge.Citizen2, edge.Citizen1
		}
		edges = append(edges, edge)
	}

	if len(edges) == 0 {
		return nil
	}

	return repo.InsertEdges(ctx, edges)
}

// ListCitizens returns every citizen of the import with its direct relatives
// resolved from the undirected edge set.
func (s *Service) ListCitizens(ctx context.Context, importID model.ID) ([]model.Citizen, error) {
	exists, err := s.repo.HasImport(ctx, importID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, model.NewError("import", model.ErrNotFound)
	}

	citizens, err := s.repo.ListCitizens(ctx, importID)
	if err != nil {
		return nil, err
	}

	edges, err := s.repo.ListEdges(ctx, importID)
	if err != nil {
		return nil, err
	}

	index := make(map[model.ID]int, len(citizens))
	for i := range citizens {
		citizens[i].Relatives = make([]int, 0)
		index[citizens[i].ID] = i
	}

	for _, edge := range edges {
		a, b := index[edge.Citizen1], index[edge.Citizen2]
		citizens[a].Relatives = append(citizens[a].Relatives, citizens[b].CitizenID)
		citizens[b].Relatives = append(citizens[b].Relatives, citizens[a].CitizenID)
	}

	for i := range citizens {
		slices.Sort(citizens[i].Relatives)
	}

	return citizens, nil
}
