package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sensord/sensord/internal/httpx"
	"github.com/sensord/sensord/internal/models"
)

// remoteSource pages through a PostgREST-style measurements endpoint in
// fixed-size offset windows. The remote total is unknown up front, so
// the terminal condition is data-driven: an empty page ends the stream.
type remoteSource struct {
	client   *httpx.Client
	baseURL  string
	key      string
	metric   string
	deviceID string
	batch    int
	offset   int
	done     bool
}

func newRemoteSource(opts Options) *remoteSource {
	return &remoteSource{
		client:   httpx.NewClient(30*time.Second, 2),
		baseURL:  strings.TrimRight(opts.Target, "/"),
		key:      opts.Key,
		metric:   opts.Metric,
		deviceID: opts.DeviceID,
		batch:    opts.Batch,
	}
}

// remoteRow mirrors the selected columns of the remote measurements
// table. DeviceID stays untyped: the remote schema may key devices by
// integer or by UUID.
type remoteRow struct {
	TS       string  `json:"ts"`
	DeviceID any     `json:"device_id"`
	Value    float64 `json:"value"`
}

// Next fetches the next page. The offset always advances by the full
// batch size; a short page simply makes the following request come back
// empty.
func (s *remoteSource) Next(ctx context.Context) ([]models.ExportRow, error) {
	if s.done || s.batch <= 0 {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch page at offset %d: %w", s.offset, err)
	}
	defer httpx.DrainClose(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("fetch page at offset %d: status %d", s.offset, resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var page []remoteRow
	if err := dec.Decode(&page); err != nil {
		return nil, fmt.Errorf("decode page at offset %d: %w", s.offset, err)
	}

	if len(page) == 0 {
		s.done = true
		return nil, nil
	}
	s.offset += s.batch

	chunk := make([]models.ExportRow, len(page))
	for i, row := range page {
		chunk[i] = models.ExportRow{
			TS:       row.TS,
			DeviceID: stringifyID(row.DeviceID),
			Value:    row.Value,
		}
	}
	return chunk, nil
}

// Close is a no-op: each page is a self-contained request.
func (s *remoteSource) Close() error {
	return nil
}

func (s *remoteSource) pageURL() string {
	q := url.Values{}
	q.Set("select", "ts,device_id,value")
	q.Set("metric", "eq."+s.metric)
	q.Set("order", "ts.asc")
	if s.deviceID != "" {
		q.Set("device_id", "eq."+s.deviceID)
	}
	q.Set("offset", fmt.Sprint(s.offset))
	q.Set("limit", fmt.Sprint(s.batch))
	return s.baseURL + "/rest/v1/measurements?" + q.Encode()
}

func stringifyID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
