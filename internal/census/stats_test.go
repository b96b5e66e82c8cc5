package census

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/protomem/census-registry/internal/model"
)

func TestService_BirthdayStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	importID, err := svc.CreateImport(ctx, []byte(testBatch))
	require.NoError(t, err)

	stats, err := svc.BirthdayStats(ctx, importID)
	require.NoError(t, err)
	require.Len(t, stats, 12)

	// Citizen 1 is born in December with relatives 2 and 3: both owe one
	// present in month 12.
	require.Equal(t, []GiftEntry{{CitizenID: 2, Presents: 1}, {CitizenID: 3, Presents: 1}}, stats["12"])

	// Citizens 2 (April) and 3 (November) each give citizen 1 a present in
	// their own birth months.
	require.Equal(t, []GiftEntry{{CitizenID: 1, Presents: 1}}, stats["4"])
	require.Equal(t, []GiftEntry{{CitizenID: 1, Presents: 1}}, stats["11"])

	// Months without birthdays are present and empty, not null.
	for _, month := range []string{"1", "2", "3", "5", "6", "7", "8", "9", "10"} {
		require.NotNil(t, stats[month])
		require.Empty(t, stats[month])
	}
}

func TestService_BirthdayStats_CountsDistinctRelativesPerMonth(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	// Citizens 1 and 2 are both born in March and both relate to citizen 3.
	body := `{"citizens": [
		{"citizen_id": 1, "town": "Керчь", "street": "с1", "building": "2", "apartment": 1,
		 "name": "а", "birth_date": "05.03.1990", "gender": "male", "relatives": [3]},
		{"citizen_id": 2, "town": "Керчь", "street": "с1", "building": "2", "apartment": 2,
		 "name": "б", "birth_date": "17.03.1992", "gender": "female", "relatives": [3]},
		{"citizen_id": 3, "town": "Керчь", "street": "с1", "building": "2", "apartment": 3,
		 "name": "в", "birth_date": "28.07.1994", "gender": "male", "relatives": [1, 2]}
	]}`

	importID, err := svc.CreateImport(ctx, []byte(body))
	require.NoError(t, err)

	stats, err := svc.BirthdayStats(ctx, importID)
	require.NoError(t, err)

	require.Equal(t, []GiftEntry{{CitizenID: 3, Presents: 2}}, stats["3"])
	require.Equal(t, []GiftEntry{{CitizenID: 1, Presents: 1}, {CitizenID: 2, Presents: 1}}, stats["7"])
}

func TestService_BirthdayStats_TotalMatchesDirectedEdgeCount(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	importID, err := svc.CreateImport(ctx, []byte(testBatch))
	require.NoError(t, err)

	stats, err := svc.BirthdayStats(ctx, importID)
	require.NoError(t, err)

	total := 0
	for _, entries := range stats {
		for _, entry := range entries {
			total += entry.Presents
		}
	}

	edges, err := repo.ListEdges(ctx, importID)
	require.NoError(t, err)
	require.Equal(t, 2*len(edges), total)
}

func TestService_BirthdayStats_UnknownImport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.BirthdayStats(ctx, 42)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestService_TownAgeStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	body := `{"citizens": [
		{"citizen_id": 1, "town": "Москва", "street": "с1", "building": "2", "apartment": 1,
		 "name": "а", "birth_date": "01.08.1999", "gender": "male", "relatives": []},
		{"citizen_id": 2, "town": "Москва", "street": "с1", "building": "2", "apartment": 2,
		 "name": "б", "birth_date": "01.08.2009", "gender": "female", "relatives": []},
		{"citizen_id": 3, "town": "Керчь", "street": "с1", "building": "2", "apartment": 3,
		 "name": "в", "birth_date": "01.08.1979", "gender": "male", "relatives": []}
	]}`

	importID, err := svc.CreateImport(ctx, []byte(body))
	require.NoError(t, err)

	stats, err := svc.TownAgeStats(ctx, importID)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Towns come out in lexicographic order.
	require.Equal(t, "Керчь", stats[0].Town)
	require.Equal(t, "Москва", stats[1].Town)

	now := testClock()
	young := ageYears(model.NewDate(2009, time.August, 1), now)
	old := ageYears(model.NewDate(1999, time.August, 1), now)

	// One citizen: every percentile is that citizen's age.
	single := ageYears(model.NewDate(1979, time.August, 1), now)
	require.Equal(t, round2(single), stats[0].P50)
	require.Equal(t, round2(single), stats[0].P75)
	require.Equal(t, round2(single), stats[0].P99)

	// Two citizens: linear interpolation between the order statistics.
	require.Equal(t, round2(young+(old-young)*0.50), stats[1].P50)
	require.Equal(t, round2(young+(old-young)*0.75), stats[1].P75)
	require.Equal(t, round2(young+(old-young)*0.99), stats[1].P99)
}

func TestService_TownAgeStats_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	importID, err := svc.CreateImport(ctx, []byte(testBatch))
	require.NoError(t, err)

	first, err := svc.TownAgeStats(ctx, importID)
	require.NoError(t, err)
	second, err := svc.TownAgeStats(ctx, importID)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestService_TownAgeStats_UnknownImportIsEmpty(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	stats, err := svc.TownAgeStats(ctx, 42)
	require.NoError(t, err)
	require.Empty(t, stats)
}

func TestPercentile(t *testing.T) {
	cases := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"single value", []float64{33.3}, 99, 33.3},
		{"median of odd count", []float64{1, 2, 3, 4, 5}, 50, 3},
		{"p75 of odd count", []float64{1, 2, 3, 4, 5}, 75, 4},
		{"p99 interpolates", []float64{1, 2, 3, 4, 5}, 99, 4.96},
		{"median of two", []float64{10, 20}, 50, 15},
		{"p75 of two", []float64{10, 20}, 75, 17.5},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.InDelta(t, tc.want, percentile(tc.sorted, tc.p), 1e-9)
		})
	}
}

func TestAgeYears(t *testing.T) {
	now := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	// 2000-01-01 .. 2020-01-01 is exactly 7305 days = 20 Julian years.
	require.InDelta(t, 20.0, ageYears(model.NewDate(2000, time.January, 1), now), 1e-9)
	require.InDelta(t, 0.0, ageYears(model.NewDate(2020, time.January, 1), now), 1e-9)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
