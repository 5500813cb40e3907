package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/sensord/sensord/internal/api"
	"github.com/sensord/sensord/internal/models"
)

// postgresSource streams rows from a single ordered query. The driver
// fetches rows incrementally, so draining them in Batch-sized chunks
// keeps memory bounded; the connection stays pinned to the query for
// the lifetime of the export and is released by Close.
type postgresSource struct {
	db    *sql.DB
	rows  *sql.Rows
	batch int
	done  bool
}

func newPostgresSource(ctx context.Context, opts Options) (*postgresSource, error) {
	pool, err := sql.Open("pgx", opts.Target)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Same representation detection the API runs at startup, so the
	// export sorts chronologically on text-backed schemas too.
	tc := api.DetectTimestampConfig(ctx, pool)
	query, args := buildExportQuery(tc, opts.Metric, opts.DeviceID)

	rows, err := pool.QueryContext(ctx, query, args...)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("export query: %w", err)
	}

	return &postgresSource{db: pool, rows: rows, batch: opts.Batch}, nil
}

// Next drains up to batch rows from the open query.
func (s *postgresSource) Next(_ context.Context) ([]models.ExportRow, error) {
	if s.done || s.batch <= 0 {
		return nil, nil
	}

	chunk := make([]models.ExportRow, 0, s.batch)
	for len(chunk) < s.batch && s.rows.Next() {
		var (
			ts       any
			deviceID string
			value    float64
		)
		if err := s.rows.Scan(&ts, &deviceID, &value); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		chunk = append(chunk, models.ExportRow{
			TS:       formatTS(ts),
			DeviceID: deviceID,
			Value:    value,
		})
	}

	if len(chunk) < s.batch {
		s.done = true
		if err := s.rows.Err(); err != nil {
			return nil, fmt.Errorf("export rows: %w", err)
		}
	}
	return chunk, nil
}

// Close releases the row cursor and the connection pool. Safe to call
// after an error or early termination.
func (s *postgresSource) Close() error {
	if s.rows != nil {
		s.rows.Close()
	}
	return s.db.Close()
}

// formatTS renders a scanned timestamp regardless of the physical
// column type: native time for timestamptz, raw text otherwise.
func formatTS(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
