package census

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/protomem/census-registry/internal/model"
)

func newTestService(t *testing.T) (*Service, *InMemory) {
	t.Helper()

	repo := NewInMemory()
	svc := New(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, Config{
		RejectFutureBirthDate: true,
		RejectSelfRelative:    true,
		Now:                   testClock,
	})

	return svc, repo
}

const testBatch = `{"citizens": [
	{"citizen_id": 1, "town": "Москва", "street": "Льва Толстого", "building": "16к7стр5",
	 "apartment": 7, "name": "Иванов Иван Иванович", "birth_date": "26.12.1986",
	 "gender": "male", "relatives": [2, 3]},
	{"citizen_id": 2, "town": "Москва", "street": "Льва Толстого", "building": "16к7стр5",
	 "apartment": 7, "name": "Иванов Сергей Иванович", "birth_date": "17.04.1997",
	 "gender": "male", "relatives": [1]},
	{"citizen_id": 3, "town": "Керчь", "street": "Иосифа Бродского", "building": "2",
	 "apartment": 11, "name": "Романова Мария Леонидовна", "birth_date": "23.11.1986",
	 "gender": "female", "relatives": [1]}
]}`

func TestService_CreateImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	importID, err := svc.CreateImport(ctx, []byte(testBatch))
	require.NoError(t, err)
	require.NotZero(t, importID)

	citizens, err := svc.ListCitizens(ctx, importID)
	require.NoError(t, err)
	require.Len(t, citizens, 3)

	require.Equal(t, []int{2, 3}, citizens[0].Relatives)
	require.Equal(t, []int{1}, citizens[1].Relatives)
	require.Equal(t, []int{1}, citizens[2].Relatives)
	require.Equal(t, "Иванов Сергей Иванович", citizens[1].Name)
}

func TestService_CreateImport_EmptyBatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	importID, err := svc.CreateImport(ctx, []byte(`{"citizens": []}`))
	require.NoError(t, err)

	citizens, err := svc.ListCitizens(ctx, importID)
	require.NoError(t, err)
	require.Empty(t, citizens)
}

func TestService_CreateImport_InvalidBatchWritesNothing(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	body := `{"citizens": [
		{"citizen_id": 1, "town": "Керчь", "street": "с1", "building": "2", "apartment": 11,
		 "name": "н", "birth_date": "01.04.1980", "gender": "female", "relatives": []},
		{"citizen_id": 1, "town": "Керчь", "street": "с1", "building": "2", "apartment": 11,
		 "name": "н", "birth_date": "01.04.1980", "gender": "female", "relatives": []}
	]}`

	_, err := svc.CreateImport(ctx, []byte(body))
	require.ErrorIs(t, err, model.ErrInvalid)

	exists, err := repo.HasImport(ctx, 1)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestService_CreateImport_StorageRejectionRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	// 4294967296 passes field validation but exceeds the integer column range.
	body := `{"citizens": [
		{"citizen_id": 1, "town": "Керчь", "street": "с1", "building": "2", "apartment": 11,
		 "name": "н", "birth_date": "01.04.1980", "gender": "female", "relatives": []},
		{"citizen_id": 4294967296, "town": "Керчь", "street": "с1", "building": "2", "apartment": 11,
		 "name": "н", "birth_date": "01.04.1980", "gender": "female", "relatives": []}
	]}`

	_, err := svc.CreateImport(ctx, []byte(body))
	require.ErrorIs(t, err, model.ErrInvalid)

	exists, err := repo.HasImport(ctx, 1)
	require.NoError(t, err)
	require.False(t, exists)

	citizens, err := repo.ListCitizens(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, citizens)
}

func TestService_PatchCitizen_Fields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	importID, err := svc.CreateImport(ctx, []byte(testBatch))
	require.NoError(t, err)

	patched, err := svc.PatchCitizen(ctx, importID, 3, []byte(`{"town": "Москва", "apartment": 21}`))
	require.NoError(t, err)
	require.Equal(t, "Москва", patched.Town)
	require.Equal(t, 21, patched.Apartment)
	require.Equal(t, "Романова Мария Леонидовна", patched.Name)
	require.Equal(t, []int{1}, patched.Relatives)
}

func TestService_PatchCitizen_ReplacesRelatives(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	importID, err := svc.CreateImport(ctx, []byte(testBatch))
	require.NoError(t, err)

	patched, err := svc.PatchCitizen(ctx, importID, 1, []byte(`{"relatives": [3]}`))
	require.NoError(t, err)
	require.Equal(t, []int{3}, patched.Relatives)

	citizens, err := svc.ListCitizens(ctx, importID)
	require.NoError(t, err)
	require.Equal(t, []int{3}, citizens[0].Relatives)
	require.Empty(t, citizens[1].Relatives)
	require.Equal(t, []int{1}, citizens[2].Relatives)
}

func TestService_PatchCitizen_EmptyRelativesDropsAllEdges(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	importID, err := svc.CreateImport(ctx, []byte(testBatch))
	require.NoError(t, err)

	patched, err := svc.PatchCitizen(ctx, importID, 1, []byte(`{"relatives": []}`))
	require.NoError(t, err)
	require.Empty(t, patched.Relatives)
	require.NotNil(t, patched.Relatives)

	edges, err := repo.ListEdges(ctx, importID)
	require.NoError(t, err)
	require.Empty(t, edges)
}

func TestService_PatchCitizen_UnknownRelativeRollsBackFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	importID, err := svc.CreateImport(ctx, []byte(testBatch))
	require.NoError(t, err)

	_, err = svc.PatchCitizen(ctx, importID, 1, []byte(`{"town": "Севастополь", "relatives": [99]}`))
	require.ErrorIs(t, err, model.ErrNotFound)

	// Field changes must not survive the failed relatives update.
	citizens, err := svc.ListCitizens(ctx, importID)
	require.NoError(t, err)
	require.Equal(t, "Москва", citizens[0].Town)
	require.Equal(t, []int{2, 3}, citizens[0].Relatives)
}

func TestService_PatchCitizen_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	importID, err := svc.CreateImport(ctx, []byte(testBatch))
	require.NoError(t, err)

	_, err = svc.PatchCitizen(ctx, importID, 99, []byte(`{"town": "Москва"}`))
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.PatchCitizen(ctx, importID+1, 1, []byte(`{"town": "Москва"}`))
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestService_ListCitizens_UnknownImport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.ListCitizens(ctx, 42)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestService_ImportsAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, err := svc.CreateImport(ctx, []byte(testBatch))
	require.NoError(t, err)
	second, err := svc.CreateImport(ctx, []byte(testBatch))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// Same citizen_id values live independently in each import.
	patched, err := svc.PatchCitizen(ctx, second, 1, []byte(`{"name": "Петров Пётр"}`))
	require.NoError(t, err)
	require.Equal(t, "Петров Пётр", patched.Name)

	citizens, err := svc.ListCitizens(ctx, first)
	require.NoError(t, err)
	require.Equal(t, "Иванов Иван Иванович", citizens[0].Name)
}
