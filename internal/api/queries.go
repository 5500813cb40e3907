// Package api implements the measurement HTTP handlers, the
// timestamp-representation detector, and the query builder that adapts
// every lookup to the detected representation.
package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sensord/sensord/internal/models"
)

// SQL fragments with a fixed shape. Queries whose text depends on the
// timestamp representation are assembled by the builder below.
const (
	// queryTSColumnType asks the catalog for the declared type of the
	// timestamp column. One row, or none when the column is missing.
	queryTSColumnType = `
SELECT data_type
FROM information_schema.columns
WHERE table_schema = 'public'
  AND table_name = 'measurements'
  AND column_name = 'ts'`

	// queryDeviceIDByKey resolves an API key to a device id. The id is
	// read as text so integer and UUID keyed schemas behave the same.
	queryDeviceIDByKey = `SELECT id::text FROM devices WHERE api_key = $1`
)

// SeriesSpec describes one series lookup. Zero-value fields mean
// "no filter": an empty Metric selects all metrics, a zero Limit
// disables truncation.
type SeriesSpec struct {
	DeviceID string
	Metric   models.Metric
	Start    time.Time
	End      time.Time
	Limit    int
}

// conds accumulates WHERE predicates and their arguments in lockstep so
// the textual placeholder order can never drift from the argument order.
type conds struct {
	where []string
	args  []any
}

// add appends one predicate. Each %s in format is replaced with the next
// positional placeholder, and the corresponding value is appended to args.
func (c *conds) add(format string, vals ...any) {
	ph := make([]any, len(vals))
	for i, v := range vals {
		c.args = append(c.args, v)
		ph[i] = "$" + strconv.Itoa(len(c.args))
	}
	c.where = append(c.where, fmt.Sprintf(format, ph...))
}

// base returns the shared filter set: the device token comparison and,
// for text-backed timestamps, the guard that excludes rows whose raw
// value would not survive the cast.
func base(tc TimestampConfig, deviceID string) *conds {
	c := &conds{}
	c.add("device_id::text = %s", deviceID)
	if tc.IsText {
		c.add("ts ~ %s", ISOTimestampPattern)
	}
	return c
}

func measurementColumns(tc TimestampConfig) string {
	return "device_id::text, " + tc.Expr + " AS ts, metric, value, meta"
}

// BuildLatestQuery renders the "latest" lookup for one device. With a
// metric it selects the single most recent row for that metric; without
// one it selects the most recent row per distinct metric.
func BuildLatestQuery(tc TimestampConfig, deviceID string, metric models.Metric) (string, []any) {
	c := base(tc, deviceID)

	if metric != "" {
		c.add("metric = %s", string(metric))
		q := "SELECT " + measurementColumns(tc) +
			" FROM measurements WHERE " + strings.Join(c.where, " AND ") +
			" ORDER BY " + tc.Expr + " DESC LIMIT 1"
		return q, c.args
	}

	q := "SELECT DISTINCT ON (metric) " + measurementColumns(tc) +
		" FROM measurements WHERE " + strings.Join(c.where, " AND ") +
		" ORDER BY metric ASC, " + tc.Expr + " DESC"
	return q, c.args
}

// BuildSeriesQuery renders the time-bounded range lookup. The range is
// half-open: Start inclusive, End exclusive. Rows come back ascending by
// timestamp, with metric name as the tie-break when no metric filter is
// applied. The limit truncates after ordering.
func BuildSeriesQuery(tc TimestampConfig, spec SeriesSpec) (string, []any) {
	c := base(tc, spec.DeviceID)
	c.add(tc.Expr+" >= %s", spec.Start)
	c.add(tc.Expr+" < %s", spec.End)

	order := " ORDER BY " + tc.Expr + " ASC"
	if spec.Metric != "" {
		c.add("metric = %s", string(spec.Metric))
	} else {
		order += ", metric ASC"
	}

	q := "SELECT " + measurementColumns(tc) +
		" FROM measurements WHERE " + strings.Join(c.where, " AND ") + order

	if spec.Limit > 0 {
		c.args = append(c.args, spec.Limit)
		q += " LIMIT $" + strconv.Itoa(len(c.args))
	}
	return q, c.args
}
