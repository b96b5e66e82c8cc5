package census

import (
	"context"
	"math"
	"sync"
	"unicode/utf8"

	"github.com/protomem/census-registry/internal/model"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// InMemory implements Repo with the same constraints the postgres schema
// enforces (id uniqueness, integer and varchar ranges, pair uniqueness), so
// the engine and HTTP layer can be tested without a database.
type InMemory struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	nextImport  model.ID
	nextCitizen model.ID
	nextEdge    model.ID

	imports  map[model.ID]struct{}
	citizens map[model.ID]model.Citizen
	edges    map[model.ID]model.Edge
}

func NewInMemory() *InMemory {
	return &InMemory{
		imports:  map[model.ID]struct{}{},
		citizens: map[model.ID]model.Citizen{},
		edges:    map[model.ID]model.Edge{},
	}
}

type memorySnapshot struct {
	nextImport  model.ID
	nextCitizen model.ID
	nextEdge    model.ID
	imports     map[model.ID]struct{}
	citizens    map[model.ID]model.Citizen
	edges       map[model.ID]model.Edge
}

// WithTx serializes transactions and restores the pre-transaction state when
// the callback fails, mirroring a rolled-back database transaction.
func (m *InMemory) WithTx(ctx context.Context, fn func(repo Repo) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}

	return nil
}

func (m *InMemory) snapshot() memorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return memorySnapshot{
		nextImport:  m.nextImport,
		nextCitizen: m.nextCitizen,
		nextEdge:    m.nextEdge,
		imports:     maps.Clone(m.imports),
		citizens:    maps.Clone(m.citizens),
		edges:       maps.Clone(m.edges),
	}
}

func (m *InMemory) restore(snap memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextImport = snap.nextImport
	m.nextCitizen = snap.nextCitizen
	m.nextEdge = snap.nextEdge
	m.imports = snap.imports
	m.citizens = snap.citizens
	m.edges = snap.edges
}

func (m *InMemory) CreateImport(ctx context.Context) (model.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextImport++
	m.imports[m.nextImport] = struct{}{}

	return m.nextImport, nil
}

func (m *InMemory) HasImport(ctx context.Context, importID model.ID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.imports[importID]
	return exists, nil
}

func (m *InMemory) InsertCitizens(ctx context.Context, importID model.ID, citizens []model.Citizen) ([]model.Citizen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]model.Citizen, 0, len(citizens))
	for _, citizen := range citizens {
		if err := checkColumnRanges(citizen); err != nil {
			return nil, err
		}

		for _, other := range m.citizens {
			if other.ImportID == importID && other.CitizenID == citizen.CitizenID {
				return nil, model.NewError("citizen", model.ErrExists)
			}
		}

		m.nextCitizen++
		citizen.ID = m.nextCitizen
		citizen.ImportID = importID
		citizen.Relatives = nil // edges live in their own table
		m.citizens[citizen.ID] = citizen
		stored = append(stored, citizen)
	}

	return stored, nil
}

// checkColumnRanges mirrors the storage-layer limits: integer columns and
// varchar(256).
func checkColumnRanges(citizen model.Citizen) error {
	if citizen.CitizenID > math.MaxInt32 || citizen.Apartment > math.MaxInt32 {
		return model.NewError("citizen", model.ErrInvalid)
	}
	for _, value := range []string{citizen.Town, citizen.Street, citizen.Building, citizen.Name} {
		if utf8.RuneCountInString(value) > 256 {
			return model.NewError("citizen", model.ErrInvalid)
		}
	}
	return nil
}

func (m *InMemory) GetCitizen(ctx context.Context, importID model.ID, citizenID int) (model.Citizen, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, citizen := range m.citizens {
		if citizen.ImportID == importID && citizen.CitizenID == citizenID {
			return citizen, nil
		}
	}

	return model.Citizen{}, model.NewError("citizen", model.ErrNotFound)
}

func (m *InMemory) UpdateCitizen(ctx context.Context, id model.ID, upd model.CitizenUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	citizen, exists := m.citizens[id]
	if !exists {
		return model.NewError("citizen", model.ErrNotFound)
	}

	if upd.Town != nil {
		citizen.Town = *upd.Town
	}
	if upd.Street != nil {
		citizen.Street = *upd.Street
	}
	if upd.Building != nil {
		citizen.Building = *upd.Building
	}
	if upd.Apartment != nil {
		citizen.Apartment = *upd.Apartment
	}
	if upd.Name != nil {
		citizen.Name = *upd.Name
	}
	if upd.BirthDate != nil {
		citizen.BirthDate = *upd.BirthDate
	}
	if upd.Gender != nil {
		citizen.Gender = *upd.Gender
	}

	if err := checkColumnRanges(citizen); err != nil {
		return err
	}

	m.citizens[id] = citizen
	return nil
}

func (m *InMemory) ListCitizens(ctx context.Context, importID model.ID) ([]model.Citizen, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	citizens := make([]model.Citizen, 0)
	for _, citizen := range m.citizens {
		if citizen.ImportID == importID {
			citizens = append(citizens, citizen)
		}
	}

	slices.SortFunc(citizens, func(a, b model.Citizen) int {
		return a.CitizenID - b.CitizenID
	})

	return citizens, nil
}

func (m *InMemory) InsertEdges(ctx context.Context, edges []model.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, edge := range edges {
		if _, exists := m.citizens[edge.Citizen1]; !exists {
			return model.NewError("edge", model.ErrNotFound)
		}
		if _, exists := m.citizens[edge.Citizen2]; !exists {
			return model.NewError("edge", model.ErrNotFound)
		}

		for _, other := range m.edges {
			if other.ImportID != edge.ImportID {
				continue
			}
			samePair := (other.Citizen1 == edge.Citizen1 && other.Citizen2 == edge.Citizen2) ||
				(other.Citizen1 == edge.Citizen2 && other.Citizen2 == edge.Citizen1)
			if samePair {
				return model.NewError("edge", model.ErrExists)
			}
		}

		m.nextEdge++
		edge.ID = m.nextEdge
		m.edges[edge.ID] = edge
	}

	return nil
}

func (m *InMemory) DeleteEdges(ctx context.Context, importID model.ID, citizenRow model.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, edge := range m.edges {
		if edge.ImportID == importID && (edge.Citizen1 == citizenRow || edge.Citizen2 == citizenRow) {
			delete(m.edges, id)
		}
	}

	return nil
}

func (m *InMemory) ListEdges(ctx context.Context, importID model.ID) ([]model.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	edges := make([]model.Edge, 0)
	for _, edge := range m.edges {
		if edge.ImportID == importID {
			edges = append(edges, edge)
		}
	}

	slices.SortFunc(edges, func(a, b model.Edge) int {
		return int(a.ID) - int(b.ID)
	})

	return edges, nil
}

func (m *InMemory) ListRelatives(ctx context.Context, importID model.ID, citizenRow model.ID) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	relatives := make([]int, 0)
	for _, edge := range m.edges {
		if edge.ImportID != importID {
			continue
		}

		var other model.ID
		switch citizenRow {
		case edge.Citizen1:
			other = edge.Citizen2
		case edge.Citizen2:
			other = edge.Citizen1
		default:
			continue
		}

		relatives = append(relatives, m.citizens[other].CitizenID)
	}

	slices.Sort(relatives)

	return relatives, nil
}
