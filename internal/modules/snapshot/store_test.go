package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anandsharma/kite-bridge/internal/modules/portfolio"
)

func testSnapshot() *portfolio.Snapshot {
	return &portfolio.Snapshot{
		Holdings: []portfolio.Position{
			{
				Symbol: "ACME", Exchange: "NSE", Quantity: 10,
				AvgPrice: 100, InvestedValue: 1000, LastPrice: 120,
				CurrentValue: 1200, NetPnLAbs: 200, NetPnLPct: 20,
				TodaysPnLAbs: 50, TodaysPnLPct: 5,
			},
		},
		Totals: portfolio.Totals{
			InvestedValue: 1000, CurrentValue: 1200,
			NetPnLAbs: 200, NetPnLPct: 20,
			TodaysPnLAbs: 50, TodaysPnLPct: 5,
		},
		Quotes: map[string]portfolio.QuoteRef{
			"111": {PriorClose: 115, LastPrice: 120},
		},
		BuildMetrics: portfolio.BuildMetrics{
			DurationMs:      42,
			HoldingsFetched: true,
			QuotesFetched:   true,
			CompletedAtUTC:  "2025-06-02T10:05:00Z",
		},
		Source: portfolio.SourceLive,
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	store := New(path, zerolog.Nop())

	original := testSnapshot()
	require.NoError(t, store.Save(original))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestSave_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "snapshot.json")
	store := New(path, zerolog.Nop())

	require.NoError(t, store.Save(testSnapshot()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestSave_ReplacesPriorRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	store := New(path, zerolog.Nop())

	first := testSnapshot()
	require.NoError(t, store.Save(first))

	second := testSnapshot()
	second.Holdings[0].Symbol = "NEWCO"
	second.Totals.InvestedValue = 9999
	require.NoError(t, store.Save(second))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "NEWCO", loaded.Holdings[0].Symbol)
	assert.Equal(t, 9999.0, loaded.Totals.InvestedValue)
	require.Len(t, loaded.Holdings, 1)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "snapshot.json"), zerolog.Nop())

	require.NoError(t, store.Save(testSnapshot()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "snapshot.json", entries[0].Name())
}

func TestLoad_MissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "never-written.json"), zerolog.Nop())

	_, err := store.Load()
	require.ErrorIs(t, err, ErrAbsent)
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	store := New(path, zerolog.Nop())
	_, err := store.Load()
	require.ErrorIs(t, err, ErrAbsent)
}
