package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alertd/alertd/internal/alert"
	"github.com/alertd/alertd/internal/feed"
	"github.com/alertd/alertd/internal/ingest"
	"github.com/alertd/alertd/internal/stats"
	"github.com/alertd/alertd/internal/storage"
	"github.com/alertd/alertd/internal/ws"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	maxBlobBytes = 1 << 20
)

type Handler struct {
	store *storage.Store
	sched *ingest.Scheduler
	feed  *feed.Client
	hub   *ws.Hub
	log   *zap.Logger
	start time.Time
}

func NewHandler(store *storage.Store, sched *ingest.Scheduler, fc *feed.Client, hub *ws.Hub, log *zap.Logger) *Handler {
	return &Handler{store: store, sched: sched, feed: fc, hub: hub, log: log, start: time.Now()}
}

// GET /api/alerts/:date
func (h *Handler) alertsByDate(c *gin.Context) {
	store, err := h.store.LoadAlerts()
	if err != nil {
		h.fail(c, err)
		return
	}
	day := store[c.Param("date")]
	if day == nil {
		day = []alert.Alert{}
	}
	c.JSON(http.StatusOK, day)
}

// GET /api/alerts?from&to&limit&offset
func (h *Handler) listAlerts(c *gin.Context) {
	store, err := h.store.LoadAlerts()
	if err != nil {
		h.fail(c, err)
		return
	}
	from := c.Query("from")
	to := c.Query("to")
	limit := intQuery(c, "limit", defaultLimit)
	if limit < 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	// Dates are YYYY-MM-DD, so the inclusive range filter is a plain
	// string comparison.
	var all []alert.Alert
	for date, day := range store {
		if from != "" && date < from {
			continue
		}
		if to != "" && date > to {
			continue
		}
		all = append(all, day...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return parseTS(all[i].Timestamp).After(parseTS(all[j].Timestamp))
	})

	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := all[offset:end]
	if page == nil {
		page = []alert.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts": page,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GET /api/stats
func (h *Handler) getStats(c *gin.Context) {
	store, err := h.store.LoadAlerts()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats.Aggregate(store))
}

// GET /api/debug — live fetch plus shape metadata, for diagnosing feed drift.
func (h *Handler) debug(c *gin.Context) {
	raw, err := h.feed.Fetch(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	shape, records := alert.DetectShape(raw)
	var payload any = json.RawMessage(raw)
	if !json.Valid(raw) {
		payload = string(raw)
	}
	c.JSON(http.StatusOK, gin.H{
		"shape":   shape.String(),
		"records": len(records),
		"payload": payload,
	})
}

// GET /api/test-connection
func (h *Handler) testConnection(c *gin.Context) {
	if err := h.feed.Probe(c.Request.Context()); err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": false, "feedUrl": h.feed.URL(), "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "feedUrl": h.feed.URL()})
}

// GET /api/health
func (h *Handler) health(c *gin.Context) {
	var last any
	if t := h.sched.LastCycle(); !t.IsZero() {
		last = t.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptimeSeconds": int(time.Since(h.start).Seconds()),
		"lastCycle":     last,
	})
}

// POST /api/check-now — one synchronous out-of-band ingestion cycle.
func (h *Handler) checkNow(c *gin.Context) {
	accepted, err := h.sched.RunOnce(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, feed.ErrUnavailable) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": accepted})
}

// GET /api/gameData
func (h *Handler) getGameData(c *gin.Context) {
	blob, err := h.store.LoadGameData()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", blob)
}

// POST /api/gameData — the blob is opaque, but it must at least be JSON.
// On a bad body the stored document is left untouched.
func (h *Handler) putGameData(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBlobBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
		return
	}
	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body is not valid JSON"})
		return
	}
	if err := h.store.SaveGameData(body); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) serveWS(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func intQuery(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseTS(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
