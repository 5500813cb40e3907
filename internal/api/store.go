package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sensord/sensord/internal/models"
)

// KeyCache is an optional lookaside cache for api_key to device id
// resolution. Implementations must be safe for concurrent use and must
// degrade to a miss on any internal failure.
type KeyCache interface {
	GetDeviceID(ctx context.Context, apiKey string) (string, bool)
	SetDeviceID(ctx context.Context, apiKey, deviceID string)
}

// Store provides database access for the measurement endpoints. It is
// safe for concurrent use; each call acquires its own connection from
// the pool and releases it on every exit path.
type Store struct {
	db    *sql.DB
	tc    TimestampConfig
	cache KeyCache
}

// NewStore wraps an existing *sql.DB pool. cache may be nil.
func NewStore(pool *sql.DB, tc TimestampConfig, cache KeyCache) *Store {
	return &Store{db: pool, tc: tc, cache: cache}
}

// TimestampConfig returns the representation the store was built with.
func (s *Store) TimestampConfig() TimestampConfig {
	return s.tc
}

// DeviceIDByKey resolves an API key to a device id. An unknown key
// returns ("", nil); errors are storage failures only.
func (s *Store) DeviceIDByKey(ctx context.Context, apiKey string) (string, error) {
	if s.cache != nil {
		if id, ok := s.cache.GetDeviceID(ctx, apiKey); ok {
			return id, nil
		}
	}

	var id string
	err := s.db.QueryRowContext(ctx, queryDeviceIDByKey, apiKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("device lookup: %w", err)
	}

	if s.cache != nil {
		s.cache.SetDeviceID(ctx, apiKey, id)
	}
	return id, nil
}

// InsertRow is one measurement ready for insertion. TS must already be
// resolved (the handler stamps one shared "now" on rows that arrived
// without a timestamp).
type InsertRow struct {
	TS     time.Time
	Metric models.Metric
	Value  float64
	Meta   json.RawMessage
}

// InsertMeasurements writes the whole batch with a single multi-row
// INSERT, which PostgreSQL executes atomically: either every row lands
// or none does. An empty batch is a zero-row success.
func (s *Store) InsertMeasurements(ctx context.Context, deviceID string, rows []InsertRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO measurements (device_id, ts, metric, value, meta) VALUES ")

	args := make([]any, 0, len(rows)*5)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := 0; j < 5; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("$" + strconv.Itoa(i*5+j+1))
		}
		sb.WriteByte(')')

		meta := row.Meta
		if len(meta) == 0 {
			meta = json.RawMessage(`{}`)
		}
		args = append(args, deviceID, s.encodeTS(row.TS), string(row.Metric), row.Value, []byte(meta))
	}

	res, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("insert measurements: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("insert measurements: rows affected: %w", err)
	}
	return int(n), nil
}

// encodeTS binds a timestamp the way the detected representation wants
// it: ISO text for text-backed columns, native time otherwise.
func (s *Store) encodeTS(ts time.Time) any {
	if s.tc.IsText {
		return ts.UTC().Format(time.RFC3339Nano)
	}
	return ts
}

// Latest returns the most recent measurement for (device, metric), or
// the most recent one per distinct metric when metric is empty. Rows
// come back ordered by metric name.
func (s *Store) Latest(ctx context.Context, deviceID string, metric models.Metric) ([]models.Measurement, error) {
	query, args := BuildLatestQuery(s.tc, deviceID, metric)
	return s.queryMeasurements(ctx, query, args)
}

// Series returns measurements in [spec.Start, spec.End), ascending by
// timestamp with the metric-name tie-break described on BuildSeriesQuery.
func (s *Store) Series(ctx context.Context, spec SeriesSpec) ([]models.Measurement, error) {
	query, args := BuildSeriesQuery(s.tc, spec)
	return s.queryMeasurements(ctx, query, args)
}

func (s *Store) queryMeasurements(ctx context.Context, query string, args []any) ([]models.Measurement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	var out []models.Measurement
	for rows.Next() {
		var (
			m    models.Measurement
			ts   time.Time
			meta []byte
		)
		if err := rows.Scan(&m.DeviceID, &ts, &m.Metric, &m.Value, &meta); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		m.TS = ts.UTC().Format(time.RFC3339Nano)
		if len(meta) == 0 {
			meta = []byte(`{}`)
		}
		m.Meta = json.RawMessage(meta)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("measurement rows: %w", err)
	}
	return out, nil
}
