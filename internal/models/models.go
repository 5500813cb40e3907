// Package models contains shared domain structs used by the server and
// the export tool.
package models

import "encoding/json"

// Metric identifies what a measurement value represents.
type Metric string

// The closed set of metrics the service accepts.
const (
	MetricTemperature        Metric = "temperature"
	MetricHumidity           Metric = "humidity"
	MetricDistanceUltrasonic Metric = "distance_ultrasonic"
)

// Valid reports whether m is one of the known metrics.
func (m Metric) Valid() bool {
	switch m {
	case MetricTemperature, MetricHumidity, MetricDistanceUltrasonic:
		return true
	}
	return false
}

// Measurement is one sensor reading as it leaves the query endpoints.
// TS is RFC3339 text with an explicit offset. Meta is never null on
// output; an absent annotation bag becomes {}.
type Measurement struct {
	DeviceID string          `json:"device_id"`
	TS       string          `json:"ts"`
	Metric   Metric          `json:"metric"`
	Value    float64         `json:"value"`
	Meta     json.RawMessage `json:"meta"`
}

// ExportRow is the row shape shared by both export backends. TS is kept
// as text so the CSV reproduces whatever representation the backend
// returned.
type ExportRow struct {
	TS       string
	DeviceID string
	Value    float64
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	OK            bool   `json:"ok"`
	Degraded      bool   `json:"degraded,omitempty"`
	TimestampMode string `json:"timestamp_mode,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ServiceInfo is returned by GET /.
type ServiceInfo struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Version string `json:"version"`
}
