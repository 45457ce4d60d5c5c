package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alertd/alertd/internal/alert"
	"github.com/alertd/alertd/internal/feed"
	"github.com/alertd/alertd/internal/storage"
)

type captureSink struct {
	mu     sync.Mutex
	events []alert.Alert
}

func (c *captureSink) Publish(a alert.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, a)
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func newScheduler(t *testing.T, payload string, status int) (*Scheduler, *captureSink) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	engine := NewEngine(store, zap.NewNop(), 0, 0)
	sink := &captureSink{}
	fc := feed.NewClient(srv.URL, "", 2*time.Second)
	return NewScheduler(fc, engine, sink, zap.NewNop(), time.Second, time.Hour), sink
}

func TestRunOncePublishesAccepted(t *testing.T) {
	s, sink := newScheduler(t, `[{"location":"Ashdod"},{"location":"Haifa"}]`, http.StatusOK)

	accepted, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, accepted)
	assert.Equal(t, 2, sink.count())
	assert.False(t, s.LastCycle().IsZero())

	// Second delivery of the same payload: candidates synthesize fresh ids
	// from "now", but the window dedup suppresses them all.
	accepted, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, accepted)
	assert.Equal(t, 2, sink.count())
}

func TestRunOnceMalformedPayload(t *testing.T) {
	for _, payload := range []string{`42`, `null`, `"nope"`, `{"weird":true}`} {
		s, sink := newScheduler(t, payload, http.StatusOK)
		accepted, err := s.RunOnce(context.Background())
		require.NoError(t, err, "payload %s must degrade, not error", payload)
		assert.Zero(t, accepted)
		assert.Zero(t, sink.count())
	}
}

func TestRunOnceFeedFailure(t *testing.T) {
	s, sink := newScheduler(t, `boom`, http.StatusInternalServerError)
	_, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrUnavailable)
	assert.Zero(t, sink.count())
}

func TestTickSurvivesFailure(t *testing.T) {
	s, _ := newScheduler(t, `oops`, http.StatusBadGateway)
	// Must not panic or propagate; the loop keeps scheduling after this.
	s.tick(context.Background())
	assert.True(t, s.LastCycle().IsZero())
}

func TestTickSkipsWhenBusy(t *testing.T) {
	s, sink := newScheduler(t, `[{"location":"Ashdod"}]`, http.StatusOK)
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.tick(context.Background()) // in-flight cycle: skipped, not queued
	assert.Zero(t, sink.count())
}
