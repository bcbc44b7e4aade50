package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkarvo/medguide-bot/internal/medinfo"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLookupCacheRoundtrip(t *testing.T) {
	store := newTestStore(t)

	result := &medinfo.Result{
		Name:        "paracetamol",
		Status:      medinfo.StatusSuccess,
		Info:        "# Paracetamol\n\nPrice: 3.50e",
		URL:         "https://example.com/paracetamol",
		Description: "Common pain reliever",
	}
	require.NoError(t, store.SetLookup("paracetamol", result))

	got, fetchedAt, err := store.GetLookup("paracetamol")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *result, *got)
	assert.WithinDuration(t, time.Now(), fetchedAt, 5*time.Second)
}

func TestLookupCacheMiss(t *testing.T) {
	store := newTestStore(t)

	got, fetchedAt, err := store.GetLookup("nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, fetchedAt.IsZero())
}

func TestLookupCacheOverwrite(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetLookup("ibuprofen", &medinfo.Result{
		Name: "ibuprofen", Status: medinfo.StatusFallback, Info: "old",
	}))
	require.NoError(t, store.SetLookup("ibuprofen", &medinfo.Result{
		Name: "ibuprofen", Status: medinfo.StatusSuccess, Info: "new",
	}))

	got, _, err := store.GetLookup("ibuprofen")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, medinfo.StatusSuccess, got.Status)
	assert.Equal(t, "new", got.Info)
}

func TestReportLog(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveReport(&StoredReport{
			TelegramID: 42,
			Medicines:  []string{"Paracetamol", "Ibuprofen"},
			Report:     "## Paracetamol\n...",
			ElapsedMS:  1500,
		}))
	}
	require.NoError(t, store.SaveReport(&StoredReport{
		TelegramID: 99,
		Medicines:  []string{"Amoxicillin"},
		Report:     "## Amoxicillin\n...",
		ElapsedMS:  900,
	}))

	reports, err := store.RecentReports(42, 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Greater(t, reports[0].ID, reports[1].ID, "newest first")
	assert.Equal(t, []string{"Paracetamol", "Ibuprofen"}, reports[0].Medicines)

	other, err := store.RecentReports(99, 10)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, []string{"Amoxicillin"}, other[0].Medicines)
}

func TestRecentReportsEmptyForUnknownUser(t *testing.T) {
	store := newTestStore(t)

	reports, err := store.RecentReports(12345, 5)
	require.NoError(t, err)
	assert.Empty(t, reports)
}
