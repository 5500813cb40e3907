package api

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigForColumnType(t *testing.T) {
	tests := []struct {
		dataType string
		isText   bool
		expr     string
	}{
		{"timestamp with time zone", false, "ts"},
		{"text", true, "ts::timestamptz"},
		{"character varying", true, "ts::timestamptz"},
		// Naive timestamps cast cleanly but cannot carry the regex
		// guard: the match operator is undefined for them.
		{"timestamp without time zone", false, "ts::timestamptz"},
		{"timestamp", false, "ts::timestamptz"},
		{"", true, "ts::timestamptz"},
	}

	for _, tt := range tests {
		t.Run(tt.dataType, func(t *testing.T) {
			tc := configForColumnType(tt.dataType)
			require.Equal(t, tt.isText, tc.IsText)
			require.Equal(t, tt.expr, tc.Expr)
			require.False(t, tc.Degraded)
		})
	}
}

func TestTimestampConfigMode(t *testing.T) {
	require.Equal(t, "timestamptz", configForColumnType("timestamp with time zone").Mode())
	require.Equal(t, "text", configForColumnType("text").Mode())
}

// The guard pattern runs as a POSIX regex inside PostgreSQL; Go's
// regexp accepts the same syntax, so the pattern is testable here.
func TestISOTimestampPattern(t *testing.T) {
	re := regexp.MustCompile(ISOTimestampPattern)

	matching := []string{
		"2025-08-31T10:00:00Z",
		"2025-08-31 10:00:00+09:00",
		"2025-08-31T10:00:00.123456Z",
		"2025-08-31T10:00:00",
		"2025-08-31 10:00:00.5-05:00",
	}
	for _, s := range matching {
		require.True(t, re.MatchString(s), "should match %q", s)
	}

	rejected := []string{
		"",
		"not-a-time",
		"2025-08-31",
		"2025-08-31T10:00",
		"10:00:00Z",
		"2025-8-31T10:00:00Z",
		"2025-08-31T10:00:00+0900",
	}
	for _, s := range rejected {
		require.False(t, re.MatchString(s), "should reject %q", s)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-08-31T10:00:00Z", time.Date(2025, 8, 31, 10, 0, 0, 0, time.UTC)},
		{"2025-08-31T10:00:00+09:00", time.Date(2025, 8, 31, 1, 0, 0, 0, time.UTC)},
		{"2025-08-31T10:00:00", time.Date(2025, 8, 31, 10, 0, 0, 0, time.UTC)},
		{"2025-08-31 10:00:00", time.Date(2025, 8, 31, 10, 0, 0, 0, time.UTC)},
		{"2025-08-31T10:00:00.25", time.Date(2025, 8, 31, 10, 0, 0, 250000000, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimestamp(tt.in)
			require.NoError(t, err)
			require.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}

	_, err := parseTimestamp("yesterday")
	require.Error(t, err)
}
