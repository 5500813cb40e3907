package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
)

// ISOTimestampPattern matches ISO-8601-like strings of the form
// YYYY-MM-DD(T or space)HH:MM:SS[.frac][Z or +-HH:MM]. It is bound as a
// parameter to the text guard so malformed rows are filtered out before
// the cast can fail mid-query.
const ISOTimestampPattern = `^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`

// TimestampConfig describes how the measurements.ts column is physically
// stored and how every query must read it. It is computed once at
// startup and treated as immutable afterwards.
type TimestampConfig struct {
	// Expr is the SQL fragment that reads ts as a timestamptz value:
	// the bare column for typed schemas, a cast for text-backed ones.
	Expr string

	// IsText is true when ts is stored as raw text. Queries then carry
	// the ISO guard predicate and its pattern parameter.
	IsText bool

	// Degraded is true when schema introspection failed and the typed
	// default was assumed. Queries may fail at execution time in this
	// mode; the health endpoint reports it.
	Degraded bool
}

// Mode names the active representation for logs and health output.
func (tc TimestampConfig) Mode() string {
	if tc.IsText {
		return "text"
	}
	return "timestamptz"
}

// DetectTimestampConfig inspects the storage schema once and derives the
// timestamp handling for the process lifetime. Introspection failure is
// not fatal: the service starts with the typed-timestamp assumption and
// flags itself degraded.
func DetectTimestampConfig(ctx context.Context, pool *sql.DB) TimestampConfig {
	var dataType string
	err := pool.QueryRowContext(ctx, queryTSColumnType).Scan(&dataType)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Column not declared at all: treat like an unknown type.
		dataType = ""
	case err != nil:
		slog.Error("timestamp column introspection failed, assuming timestamptz", "error", err)
		return TimestampConfig{Expr: "ts", Degraded: true}
	}

	tc := configForColumnType(dataType)
	slog.Info("timestamp representation detected", "data_type", dataType, "mode", tc.Mode())
	return tc
}

// configForColumnType maps a declared column type to its TimestampConfig.
// Anything other than a timezone-aware timestamp is read through a cast;
// string-typed and unknown columns additionally carry the ISO guard.
// Naive timestamp columns take the cast alone: the regex operator does
// not apply to them, and the cast cannot fail on a typed value.
func configForColumnType(dataType string) TimestampConfig {
	switch dataType {
	case "timestamp with time zone":
		return TimestampConfig{Expr: "ts"}
	case "timestamp without time zone", "timestamp":
		return TimestampConfig{Expr: "ts::timestamptz"}
	default:
		return TimestampConfig{Expr: "ts::timestamptz", IsText: true}
	}
}
