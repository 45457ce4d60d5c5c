package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alertd/alertd/internal/alert"
)

func TestPublishReachesSubscriber(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration runs through the hub goroutine; give it a beat.
	time.Sleep(100 * time.Millisecond)

	a := alert.Alert{ID: "x_1", Location: "Ashdod", Time: "08:00",
		Timestamp: "2026-08-20T08:00:00Z", Date: "2026-08-20"}
	hub.Publish(a)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "newAlert", ev.Event)
	assert.Equal(t, a, ev.Data)
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	// No Run loop and no clients: the buffered channel absorbs the events
	// and the overflow is dropped, the caller never stalls.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(alert.Alert{ID: "x", Location: "A"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked the pipeline")
	}
}
