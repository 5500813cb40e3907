package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sensord/sensord/internal/models"
)

// maxSeriesLimit caps the limit parameter on series queries.
const maxSeriesLimit = 200000

// apiKeyHeader carries the device's shared secret on ingest.
const apiKeyHeader = "X-API-Key"

// Publisher receives successfully ingested batches. Implementations are
// best-effort observers: a publish failure never fails the request.
type Publisher interface {
	PublishMeasurements(ctx context.Context, deviceID string, rows []models.Measurement) error
}

// Handler exposes the measurement HTTP endpoints.
type Handler struct {
	store   *Store
	limiter *KeyLimiter
	events  Publisher
	debug   bool
}

// NewHandler creates a Handler. limiter and events may be nil.
func NewHandler(store *Store, limiter *KeyLimiter, events Publisher, debug bool) *Handler {
	return &Handler{store: store, limiter: limiter, events: events, debug: debug}
}

// ---------------------------------------------------------------------------
// Request / Response types
// ---------------------------------------------------------------------------

// IngestMeasure is one element of the POST /ingest body.
type IngestMeasure struct {
	Metric models.Metric   `json:"metric" example:"temperature"`
	Value  float64         `json:"value" example:"21.5"`
	TS     string          `json:"ts,omitempty" example:"2025-08-31T10:00:00Z"`
	Meta   json.RawMessage `json:"meta,omitempty"`
}

// IngestResponse is returned by POST /ingest.
type IngestResponse struct {
	OK       bool `json:"ok"`
	Inserted int  `json:"inserted"`
}

// LatestResponse is returned by GET /latest. Data is a single row when a
// metric filter was given (null when there is none), otherwise a list
// with at most one row per metric.
type LatestResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

// SeriesResponse is returned by GET /series.
type SeriesResponse struct {
	OK    bool                 `json:"ok"`
	Count int                  `json:"count"`
	Data  []models.Measurement `json:"data"`
}

type errorResponse struct {
	Error string `json:"error" example:"invalid metric"`
}

// ---------------------------------------------------------------------------
// POST /ingest
// ---------------------------------------------------------------------------

// Ingest godoc
//
//	@Summary		Ingest a batch of measurements
//	@Description	Validates the batch, resolves the caller's device from the
//	@Description	X-API-Key header, and inserts all rows in one transaction.
//	@Description	Rows without a ts share a single server-assigned timestamp.
//	@Tags			measurements
//	@Accept			json
//	@Produce		json
//	@Param			X-API-Key	header		string			true	"device shared secret"
//	@Param			body		body		[]IngestMeasure	true	"measurements"
//	@Success		200			{object}	IngestResponse
//	@Failure		400			{object}	errorResponse
//	@Failure		401			{object}	errorResponse
//	@Failure		403			{object}	errorResponse
//	@Failure		429			{object}	errorResponse
//	@Failure		503			{object}	errorResponse
//	@Router			/ingest [post]
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	apiKey := r.Header.Get(apiKeyHeader)
	if apiKey == "" {
		writeErr(w, http.StatusUnauthorized, "missing "+apiKeyHeader)
		return
	}
	if !h.limiter.Allow(apiKey) {
		writeErr(w, http.StatusTooManyRequests, "ingest rate exceeded")
		return
	}

	var batch []IngestMeasure
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	// One "now" for the whole batch: every row that arrived without a
	// timestamp gets the identical value.
	now := time.Now().UTC()

	rows := make([]InsertRow, 0, len(batch))
	for i, m := range batch {
		if !m.Metric.Valid() {
			writeErr(w, http.StatusBadRequest, fmt.Sprintf("measurements[%d]: invalid metric %q", i, m.Metric))
			return
		}
		ts := now
		if m.TS != "" {
			parsed, err := parseTimestamp(m.TS)
			if err != nil {
				writeErr(w, http.StatusBadRequest, fmt.Sprintf("measurements[%d]: invalid ts: %v", i, err))
				return
			}
			ts = parsed
		}
		rows = append(rows, InsertRow{TS: ts, Metric: m.Metric, Value: m.Value, Meta: m.Meta})
	}

	deviceID, err := h.store.DeviceIDByKey(r.Context(), apiKey)
	if err != nil {
		h.unavailable(w, "ingest: device lookup", err)
		return
	}
	if deviceID == "" {
		writeErr(w, http.StatusForbidden, "invalid API key")
		return
	}

	inserted, err := h.store.InsertMeasurements(r.Context(), deviceID, rows)
	if err != nil {
		h.unavailable(w, "ingest: insert", err)
		return
	}

	h.publish(r.Context(), deviceID, rows)

	slog.Info("batch ingested", "device_id", deviceID, "inserted", inserted)
	writeJSON(w, http.StatusOK, IngestResponse{OK: true, Inserted: inserted})
}

// publish forwards the accepted batch to the optional event sink.
func (h *Handler) publish(ctx context.Context, deviceID string, rows []InsertRow) {
	if h.events == nil || len(rows) == 0 {
		return
	}

	out := make([]models.Measurement, len(rows))
	for i, row := range rows {
		meta := row.Meta
		if len(meta) == 0 {
			meta = json.RawMessage(`{}`)
		}
		out[i] = models.Measurement{
			DeviceID: deviceID,
			TS:       row.TS.UTC().Format(time.RFC3339Nano),
			Metric:   row.Metric,
			Value:    row.Value,
			Meta:     meta,
		}
	}

	if err := h.events.PublishMeasurements(ctx, deviceID, out); err != nil {
		slog.Warn("measurement event publish failed", "device_id", deviceID, "error", err)
	}
}

// ---------------------------------------------------------------------------
// GET /latest
// ---------------------------------------------------------------------------

// Latest godoc
//
//	@Summary		Most recent measurement(s) for a device
//	@Description	With metric: the single most recent row for that metric, or
//	@Description	null. Without: the most recent row per distinct metric.
//	@Tags			measurements
//	@Produce		json
//	@Param			device_id	query		string	true	"device id"
//	@Param			metric		query		string	false	"metric filter"
//	@Success		200			{object}	LatestResponse
//	@Failure		400			{object}	errorResponse
//	@Failure		503			{object}	errorResponse
//	@Router			/latest [get]
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeErr(w, http.StatusBadRequest, "device_id is required")
		return
	}

	metric, ok := optionalMetric(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid metric "+strconv.Quote(r.URL.Query().Get("metric")))
		return
	}

	rows, err := h.store.Latest(r.Context(), deviceID, metric)
	if err != nil {
		h.unavailable(w, "latest", err)
		return
	}

	if metric != "" {
		var data any
		if len(rows) > 0 {
			data = rows[0]
		}
		writeJSON(w, http.StatusOK, LatestResponse{OK: true, Data: data})
		return
	}

	if rows == nil {
		rows = []models.Measurement{}
	}
	writeJSON(w, http.StatusOK, LatestResponse{OK: true, Data: rows})
}

// ---------------------------------------------------------------------------
// GET /series
// ---------------------------------------------------------------------------

// Series godoc
//
//	@Summary		Time-bounded measurement range for a device
//	@Description	Half-open window [start, end); end defaults to now, start to
//	@Description	end minus 24h. Naive timestamps are read as UTC.
//	@Tags			measurements
//	@Produce		json
//	@Param			device_id	query		string	true	"device id"
//	@Param			metric		query		string	false	"metric filter"
//	@Param			start		query		string	false	"inclusive lower bound (ISO-8601)"
//	@Param			end			query		string	false	"exclusive upper bound (ISO-8601)"
//	@Param			limit		query		int		false	"max rows, 1..200000"
//	@Success		200			{object}	SeriesResponse
//	@Failure		400			{object}	errorResponse
//	@Failure		503			{object}	errorResponse
//	@Router			/series [get]
func (h *Handler) Series(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	deviceID := q.Get("device_id")
	if deviceID == "" {
		writeErr(w, http.StatusBadRequest, "device_id is required")
		return
	}

	metric, ok := optionalMetric(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid metric "+strconv.Quote(q.Get("metric")))
		return
	}

	end := time.Now().UTC()
	if s := q.Get("end"); s != "" {
		parsed, err := parseTimestamp(s)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid end: "+err.Error())
			return
		}
		end = parsed
	}

	start := end.Add(-24 * time.Hour)
	if s := q.Get("start"); s != "" {
		parsed, err := parseTimestamp(s)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid start: "+err.Error())
			return
		}
		start = parsed
	}

	limit := 0
	if s := q.Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 || parsed > maxSeriesLimit {
			writeErr(w, http.StatusBadRequest, fmt.Sprintf("limit must be an integer in [1, %d]", maxSeriesLimit))
			return
		}
		limit = parsed
	}

	rows, err := h.store.Series(r.Context(), SeriesSpec{
		DeviceID: deviceID,
		Metric:   metric,
		Start:    start,
		End:      end,
		Limit:    limit,
	})
	if err != nil {
		h.unavailable(w, "series", err)
		return
	}

	if rows == nil {
		rows = []models.Measurement{}
	}
	writeJSON(w, http.StatusOK, SeriesResponse{OK: true, Count: len(rows), Data: rows})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// optionalMetric reads the metric query parameter. ok is false when a
// value is present but not part of the closed metric set.
func optionalMetric(r *http.Request) (models.Metric, bool) {
	s := r.URL.Query().Get("metric")
	if s == "" {
		return "", true
	}
	m := models.Metric(s)
	return m, m.Valid()
}

// timestampLayouts are tried in order. The naive forms are interpreted
// as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// unavailable logs the full storage failure server-side and reports a
// generic signal to the caller. Debug mode opts into the detail.
func (h *Handler) unavailable(w http.ResponseWriter, op string, err error) {
	slog.Error("storage failure", "op", op, "error", err)
	msg := "temporarily unavailable"
	if h.debug {
		msg = err.Error()
	}
	writeErr(w, http.StatusServiceUnavailable, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
