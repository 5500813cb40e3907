package export

import (
	"strconv"
	"strings"

	"github.com/sensord/sensord/internal/api"
)

// buildExportQuery renders the full-history query for one metric. The
// timestamp column is emitted raw, so the CSV carries whatever
// representation storage holds, but ordering always goes through the
// detected expression: a text-backed column sorted on its raw value
// comes back lexicographically, not chronologically, whenever offsets
// are mixed. Text mode also carries the ISO guard so the ordering cast
// cannot fail on malformed rows.
func buildExportQuery(tc api.TimestampConfig, metric, deviceID string) (string, []any) {
	where := []string{"metric = $1"}
	args := []any{metric}

	if tc.IsText {
		args = append(args, api.ISOTimestampPattern)
		where = append(where, "ts ~ $"+strconv.Itoa(len(args)))
	}
	if deviceID != "" {
		args = append(args, deviceID)
		where = append(where, "device_id::text = $"+strconv.Itoa(len(args)))
	}

	q := "SELECT ts, device_id::text, value FROM measurements WHERE " +
		strings.Join(where, " AND ") + " ORDER BY " + tc.Expr + " ASC"
	return q, args
}
