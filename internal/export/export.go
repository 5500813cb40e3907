// Package export streams the full measurement history for one metric
// into a CSV file. Two backends hide behind one chunked-source
// contract: a streaming PostgreSQL query and a paginated PostgREST
// endpoint. The consumer is strictly sequential, so memory stays
// bounded to one chunk regardless of table size.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/sensord/sensord/internal/models"
)

// Source yields ordered chunks of export rows until exhausted. Next
// returns an empty chunk (or nil) when the stream is done; callers must
// Close the source on every exit path.
type Source interface {
	Next(ctx context.Context) ([]models.ExportRow, error)
	Close() error
}

// Options selects and parameterises a backend.
type Options struct {
	// Target is either a postgres:// DSN or a remote base URL.
	Target string
	// Key is the remote access credential; required for remote targets.
	Key string
	// Metric scopes the export to one metric.
	Metric string
	// DeviceID optionally restricts the export to one device.
	DeviceID string
	// Batch is the chunk size. Zero or negative yields an empty stream.
	Batch int
}

// NewSource picks the backend from the connection target: a
// storage-native DSN streams straight from the database, anything else
// is treated as a PostgREST-style endpoint requiring Key.
func NewSource(ctx context.Context, opts Options) (Source, error) {
	if strings.HasPrefix(opts.Target, "postgres://") || strings.HasPrefix(opts.Target, "postgresql://") {
		return newPostgresSource(ctx, opts)
	}
	if opts.Key == "" {
		return nil, errors.New("remote export requires an access key")
	}
	return newRemoteSource(opts), nil
}

// csvHeader is written as the first row of every export file.
var csvHeader = []string{"ts", "device_id", "value"}

// Run drains src into a CSV file at outPath and returns the number of
// data rows written. Progress is reported per chunk while the stream is
// in flight. On a chunk failure the rows already flushed stay on disk
// and the error is returned.
func Run(ctx context.Context, src Source, outPath string) (int, error) {
	f, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	total := 0
	for {
		chunk, err := src.Next(ctx)
		if err != nil {
			w.Flush()
			return total, fmt.Errorf("fetch chunk after %d rows: %w", total, err)
		}
		if len(chunk) == 0 {
			break
		}

		for _, row := range chunk {
			record := []string{
				row.TS,
				row.DeviceID,
				strconv.FormatFloat(row.Value, 'f', -1, 64),
			}
			if err := w.Write(record); err != nil {
				return total, fmt.Errorf("write row: %w", err)
			}
		}

		// Flush per chunk so a long export is visibly progressing on
		// disk and an abort loses at most one chunk.
		w.Flush()
		if err := w.Error(); err != nil {
			return total, fmt.Errorf("csv flush: %w", err)
		}

		total += len(chunk)
		slog.Info("export progress", "rows", total)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return total, fmt.Errorf("csv flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return total, fmt.Errorf("close %s: %w", outPath, err)
	}
	return total, nil
}
