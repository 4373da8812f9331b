package review

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postop-risk-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "reviews.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	return store
}

func sampleReview(alertID string) *Review {
	return &Review{
		AlertID:           alertID,
		PatientID:         "patient-7",
		Metric:            "temperature",
		SuggestedSeverity: domain.SeverityCritical,
		ReviewedSeverity:  domain.SeverityUrgent,
		Disposition:       DispositionDowngraded,
		Agreed:            false,
		Notes:             "Post-anesthesia fever, resolved overnight",
		ReviewerID:        "rn-204",
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reviews.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	rv := sampleReview("alert-1")
	require.NoError(t, store.Save(ctx, rv))
	assert.NotZero(t, rv.ID)
	assert.False(t, rv.CreatedAt.IsZero())

	got, err := store.Get(ctx, "alert-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "patient-7", got.PatientID)
	assert.Equal(t, domain.SeverityCritical, got.SuggestedSeverity)
	assert.Equal(t, domain.SeverityUrgent, got.ReviewedSeverity)
	assert.Equal(t, DispositionDowngraded, got.Disposition)
	assert.False(t, got.Agreed)
}

func TestSQLiteStore_SaveReplacesExisting(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	first := sampleReview("alert-1")
	require.NoError(t, store.Save(ctx, first))

	second := sampleReview("alert-1")
	second.Disposition = DispositionConfirmed
	second.ReviewedSeverity = domain.SeverityCritical
	second.Agreed = true
	require.NoError(t, store.Save(ctx, second))

	assert.Equal(t, first.ID, second.ID, "save for the same alert updates in place")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.Get(ctx, "alert-1")
	require.NoError(t, err)
	assert.Equal(t, DispositionConfirmed, got.Disposition)
	assert.True(t, got.Agreed)
}

func TestSQLiteStore_SaveRejectsUnknownDisposition(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	rv := sampleReview("alert-1")
	rv.Disposition = "maybe"
	assert.Error(t, store.Save(context.Background(), rv))
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	got, err := store.Get(context.Background(), "no-such-alert")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	for _, id := range []string{"alert-1", "alert-2", "alert-3"} {
		require.NoError(t, store.Save(ctx, sampleReview(id)))
	}

	all, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	require.NoError(t, store.Delete(ctx, all[0].ID))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_ExportImportRoundTrip(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleReview("alert-1")))
	require.NoError(t, store.Save(ctx, sampleReview("alert-2")))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	other := createTestStore(t)
	defer other.Close()

	// Pre-seed one overlapping review; the import skips it.
	require.NoError(t, other.Save(ctx, sampleReview("alert-2")))

	imported, skipped, err := other.ImportJSON(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	count, err := other.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
