// Package ingest decides new-vs-duplicate, owns all writes to the alert
// store and the processed-key table, and drives the periodic pipeline.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alertd/alertd/internal/alert"
	"github.com/alertd/alertd/internal/storage"
)

const (
	// DefaultWindow is the same-location tolerance of the secondary
	// duplicate filter.
	DefaultWindow = 5 * time.Second
	// DefaultRetention is how long processed identity keys are kept.
	DefaultRetention = 7 * 24 * time.Hour
)

type Engine struct {
	store     *storage.Store
	log       *zap.Logger
	window    time.Duration
	retention time.Duration

	// Serializes ingest with sweep: both read-modify-write the key table.
	mu sync.Mutex
}

func NewEngine(store *storage.Store, log *zap.Logger, window, retention time.Duration) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Engine{store: store, log: log, window: window, retention: retention}
}

// Ingest walks candidates in arrival order, applies both dedup checks,
// appends accepted alerts to their day and persists both documents.
// The accepted alerts are returned for the caller to publish; the engine
// itself touches no transport.
func (e *Engine) Ingest(candidates []alert.Candidate) ([]alert.Alert, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	alerts, err := e.store.LoadAlerts()
	if err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}
	keys, err := e.store.LoadKeys()
	if err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}

	var accepted []alert.Alert
	changed := false
	for _, c := range candidates {
		if keys[c.ID] {
			duplicatesSuppressed.WithLabelValues("key").Inc()
			continue
		}
		a := c.Normalized()
		if e.windowDuplicate(alerts[a.Date], c) {
			// Near-simultaneous upstream duplicate under a different
			// synthesized id: remember the key, keep the stored alert as is.
			keys[c.ID] = true
			changed = true
			duplicatesSuppressed.WithLabelValues("window").Inc()
			continue
		}
		alerts[a.Date] = append(alerts[a.Date], a)
		keys[c.ID] = true
		changed = true
		accepted = append(accepted, a)
		alertsAccepted.Inc()
	}

	if changed {
		if err := e.store.SaveAlerts(alerts); err != nil {
			return nil, fmt.Errorf("save alerts: %w", err)
		}
		if err := e.store.SaveKeys(keys); err != nil {
			return nil, fmt.Errorf("save keys: %w", err)
		}
	}
	keysRetained.Set(float64(len(keys)))
	ingestCycles.Inc()
	return accepted, nil
}

func (e *Engine) windowDuplicate(day []alert.Alert, c alert.Candidate) bool {
	loc := alert.CanonicalLocation(c.Location)
	for _, a := range day {
		if alert.CanonicalLocation(a.Location) != loc {
			continue
		}
		t, err := time.Parse(time.RFC3339, a.Timestamp)
		if err != nil {
			continue
		}
		d := c.At.Sub(t)
		if d < 0 {
			d = -d
		}
		if d < e.window {
			return true
		}
	}
	return false
}

// Sweep prunes identity keys whose embedded millis age exceeds the
// retention window. Keys without a parseable millis suffix are kept, so a
// batch of malformed ids never turns into a mass deletion.
func (e *Engine) Sweep(now time.Time) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys, err := e.store.LoadKeys()
	if err != nil {
		return 0, fmt.Errorf("load keys: %w", err)
	}
	cutoff := now.Add(-e.retention)
	removed := 0
	for id := range keys {
		at, ok := millisFromID(id)
		if !ok {
			continue
		}
		if at.Before(cutoff) {
			delete(keys, id)
			removed++
		}
	}
	if removed > 0 {
		if err := e.store.SaveKeys(keys); err != nil {
			return 0, fmt.Errorf("save keys: %w", err)
		}
	}
	keysRetained.Set(float64(len(keys)))
	e.log.Info("retention sweep", zap.Int("removed", removed), zap.Int("kept", len(keys)))
	return removed, nil
}

// millisFromID extracts the epoch-millis suffix of a synthesized id.
// Values that would predate the feed's existence are rejected rather than
// interpreted as 1970-era timestamps.
func millisFromID(id string) (time.Time, bool) {
	i := strings.LastIndex(id, "_")
	if i < 0 || i == len(id)-1 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(id[i+1:], 10, 64)
	if err != nil || ms < 1e12 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
