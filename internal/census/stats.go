package census

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/protomem/census-registry/internal/model"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// daysPerYear converts an age interval to fractional years.
const daysPerYear = 365.25

// GiftEntry is one citizen's present count for a month: how many of their
// relatives celebrate a birthday then.
type GiftEntry struct {
	CitizenID int `json:"citizen_id"`
	Presents  int `json:"presents"`
}

// BirthdayStats maps every month "1".."12" to the present counts owed in it.
// For citizen X born in month M, each relative of X gains one present toward M.
func (s *Service) BirthdayStats(ctx context.Context, importID model.ID) (map[string][]GiftEntry, error) {
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

	byRow := make(map[model.ID]model.Citizen, len(citizens))
	for _, citizen := range citizens {
		byRow[citizen.ID] = citizen
	}

	var presents [13]map[int]int
	for month := 1; month <= 12; month++ {
		presents[month] = map[int]int{}
	}

	// Each undirected edge yields two directed observations.
	for _, edge := range edges {
		first, second := byRow[edge.Citizen1], byRow[edge.Citizen2]
		presents[int(first.BirthDate.Month())][second.CitizenID]++
		presents[int(second.BirthDate.Month())][first.CitizenID]++
	}

	stats := make(map[string][]GiftEntry, 12)
	for month := 1; month <= 12; month++ {
		ids := maps.Keys(presents[month])
		slices.Sort(ids)

		entries := make([]GiftEntry, 0, len(ids))
		for _, id := range ids {
			entries = append(entries, GiftEntry{CitizenID: id, Presents: presents[month][id]})
		}
		stats[strconv.Itoa(month)] = entries
	}

	return stats, nil
}

// TownPercentiles holds the age order statistics for one town.
type TownPercentiles struct {
	Town string  `json:"town"`
	P50  float64 `json:"p50"`
	P75  float64 `json:"p75"`
	P99  float64 `json:"p99"`
}

// TownAgeStats groups citizens by exact town name and computes the 50th, 75th
// and 99th age percentiles per town. An unknown import yields an empty list.
func (s *Service) TownAgeStats(ctx context.Context, importID model.ID) ([]TownPercentiles, error) {
	citizens, err := s.repo.ListCitizens(ctx, importID)
	if err != nil {
		return nil, err
	}

	now := s.rules.now()
	ages := make(map[string][]float64)
	for _, citizen := range citizens {
		ages[citizen.Town] = append(ages[citizen.Town], ageYears(citizen.BirthDate, now))
	}

	towns := maps.Keys(ages)
	slices.Sort(towns)

	stats := make([]TownPercentiles, 0, len(towns))
	for _, town := range towns {
		list := ages[town]
		slices.Sort(list)

		stats = append(stats, TownPercentiles{
			Town: town,
			P50:  percentile(list, 50),
			P75:  percentile(list, 75),
			P99:  percentile(list, 99),
		})
	}

	return stats, nil
}

func ageYears(birthDate model.Date, now time.Time) float64 {
	return now.Sub(birthDate.Time).Hours() / 24 / daysPerYear
}

// percentile interpolates linearly between the two nearest order statistics
// of an ascending-sorted sample; the result is rounded to 2 decimal places.
func percentile(sorted []float64, p float64) float64 {
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))

	value := sorted[lo]
	if hi != lo {
		value += (sorted[hi] - sorted[lo]) * (rank - float64(lo))
	}

	return math.Round(value*100) / 100
}
