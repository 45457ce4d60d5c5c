package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertd/alertd/internal/alert"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLoadAbsentReturnsEmpty(t *testing.T) {
	s := newStore(t)

	alerts, err := s.LoadAlerts()
	require.NoError(t, err)
	assert.Empty(t, alerts)

	keys, err := s.LoadKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	blob, err := s.LoadGameData()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(blob))
}

func TestAlertsRoundTrip(t *testing.T) {
	s := newStore(t)
	in := alert.Store{
		"2026-08-20": {
			{ID: "a_1", Location: "Ashdod", Time: "08:00", Timestamp: "2026-08-20T08:00:00Z", Date: "2026-08-20"},
			{ID: "b_2", Location: "Haifa", Time: "09:00", Timestamp: "2026-08-20T09:00:00Z", Date: "2026-08-20"},
		},
	}
	require.NoError(t, s.SaveAlerts(in))

	out, err := s.LoadAlerts()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestKeysRoundTrip(t *testing.T) {
	s := newStore(t)
	in := map[string]bool{"x_1": true, "y_2": true}
	require.NoError(t, s.SaveKeys(in))

	out, err := s.LoadKeys()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestGameDataVerbatim(t *testing.T) {
	s := newStore(t)
	blob := json.RawMessage(`{"scores":{"dan":12},"level":3}`)
	require.NoError(t, s.SaveGameData(blob))

	out, err := s.LoadGameData()
	require.NoError(t, err)
	assert.Equal(t, string(blob), string(out))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveKeys(map[string]bool{"k_1": true}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "processed_keys.json", entries[0].Name())

	// Document is human readable (indented JSON).
	b, err := os.ReadFile(filepath.Join(dir, "processed_keys.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n")
}
