package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sensord/sensord/internal/models"
)

var (
	typedTC = TimestampConfig{Expr: "ts"}
	textTC  = TimestampConfig{Expr: "ts::timestamptz", IsText: true}
)

func TestBuildLatestQuery_WithMetric(t *testing.T) {
	query, args := BuildLatestQuery(typedTC, "dev-1", models.MetricTemperature)

	require.Equal(t,
		"SELECT device_id::text, ts AS ts, metric, value, meta FROM measurements"+
			" WHERE device_id::text = $1 AND metric = $2"+
			" ORDER BY ts DESC LIMIT 1",
		query)
	require.Equal(t, []any{"dev-1", "temperature"}, args)
}

func TestBuildLatestQuery_PerMetric(t *testing.T) {
	query, args := BuildLatestQuery(typedTC, "dev-1", "")

	require.Contains(t, query, "SELECT DISTINCT ON (metric)")
	require.Contains(t, query, "ORDER BY metric ASC, ts DESC")
	require.NotContains(t, query, "LIMIT")
	require.Equal(t, []any{"dev-1"}, args)
}

func TestBuildLatestQuery_TextGuard(t *testing.T) {
	query, args := BuildLatestQuery(textTC, "dev-1", models.MetricHumidity)

	require.Contains(t, query, "ts::timestamptz AS ts")
	require.Contains(t, query, "ts ~ $2")
	require.Contains(t, query, "metric = $3")
	require.Equal(t, []any{"dev-1", ISOTimestampPattern, "humidity"}, args)
}

func TestBuildSeriesQuery_ParameterOrder(t *testing.T) {
	start := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	query, args := BuildSeriesQuery(textTC, SeriesSpec{
		DeviceID: "dev-1",
		Metric:   models.MetricTemperature,
		Start:    start,
		End:      end,
		Limit:    50,
	})

	// device token, guard pattern, lower bound, upper bound, metric, limit.
	require.Equal(t, []any{"dev-1", ISOTimestampPattern, start, end, "temperature", 50}, args)

	require.Contains(t, query, "device_id::text = $1")
	require.Contains(t, query, "ts ~ $2")
	require.Contains(t, query, "ts::timestamptz >= $3")
	require.Contains(t, query, "ts::timestamptz < $4")
	require.Contains(t, query, "metric = $5")
	require.Contains(t, query, "LIMIT $6")
}

func TestBuildSeriesQuery_NoMetricTieBreak(t *testing.T) {
	start := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	query, args := BuildSeriesQuery(typedTC, SeriesSpec{
		DeviceID: "dev-1",
		Start:    start,
		End:      start.Add(time.Hour),
	})

	require.Contains(t, query, "ORDER BY ts ASC, metric ASC")
	require.NotContains(t, query, "LIMIT")
	require.Len(t, args, 3)
}

func TestBuildSeriesQuery_TypedOmitsGuard(t *testing.T) {
	start := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	query, args := BuildSeriesQuery(typedTC, SeriesSpec{
		DeviceID: "dev-1",
		Start:    start,
		End:      start.Add(time.Hour),
		Limit:    1,
	})

	require.NotContains(t, query, "~")
	require.Equal(t, []any{"dev-1", start, start.Add(time.Hour), 1}, args)
}
