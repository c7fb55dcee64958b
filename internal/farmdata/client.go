// Package farmdata is a thin HTTP client for the farm-data bridge,
// which fronts the hosted IREGIO KPI service.
package farmdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SummaryStats are the per-KPI statistics returned by the bridge
// (mean, std, min, max, trend plus whatever else the service adds).
type SummaryStats map[string]any

// SummaryResponse is the summarize call result: per-alias statistics
// plus any non-summary metadata fields the bridge returned alongside.
type SummaryResponse struct {
	Summaries map[string]SummaryStats
	Meta      map[string]json.RawMessage
}

// UnmarshalJSON splits the envelope into summaries and metadata, so
// callers can carry the metadata forward without knowing its shape.
func (r *SummaryResponse) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	r.Summaries = make(map[string]SummaryStats)
	r.Meta = make(map[string]json.RawMessage)

	for key, raw := range fields {
		if key == "summaries" {
			if err := json.Unmarshal(raw, &r.Summaries); err != nil {
				return fmt.Errorf("parse summaries: %w", err)
			}
			continue
		}
		r.Meta[key] = raw
	}
	return nil
}

// SummaryRequest selects the KPI scope of a summarize call. An empty
// SelectedCodes asks the bridge for everything it has.
type SummaryRequest struct {
	FarmCode      string
	Language      string
	Months        int
	SelectedCodes []string
}

// SeriesRequest selects the KPI scope of a time-series fetch.
type SeriesRequest struct {
	FarmCode        string
	Language        string
	Months          int
	SelectedAliases []string
}

// Row is one time-series record: a Date column plus KPI alias columns.
type Row map[string]any

// Client calls the farm-data bridge over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a bridge client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SummarizeKPIs fetches summary statistics for the selected KPI codes,
// or for every KPI when the selection is empty.
func (c *Client) SummarizeKPIs(ctx context.Context, req SummaryRequest) (*SummaryResponse, error) {
	q := url.Values{}
	q.Set("farm_code", req.FarmCode)
	q.Set("language", req.Language)
	q.Set("months", strconv.Itoa(req.Months))
	for _, code := range req.SelectedCodes {
		q.Add("selected_kpis", code)
	}

	body, err := c.get(ctx, "/summarize_kpis", q)
	if err != nil {
		return nil, err
	}

	// envelope: {"result": {...}} or the payload directly
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	payload := body
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Result) > 0 {
		payload = envelope.Result
	}

	var resp SummaryResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("parse summarize response: %w", err)
	}
	return &resp, nil
}

// FetchSeries fetches time-series rows for the selected KPI aliases.
// A farm with no rows yields an empty slice, not an error.
func (c *Client) FetchSeries(ctx context.Context, req SeriesRequest) ([]Row, error) {
	q := url.Values{}
	q.Set("farm_code", req.FarmCode)
	q.Set("language", req.Language)
	q.Set("months", strconv.Itoa(req.Months))
	for _, alias := range req.SelectedAliases {
		q.Add("selected_kpis", alias)
	}

	body, err := c.get(ctx, "/get_farm_kpis", q)
	if err != nil {
		return nil, err
	}
	return extractRows(body), nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge url: %w", err)
	}
	u.Path += path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bridge returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// extractRows tolerates the bridge's two row shapes: a bare list, or an
// object with a "result" list. Anything else yields no rows.
func extractRows(body []byte) []Row {
	var rows []Row
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows
	}
	var envelope struct {
		Result []Row `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		return envelope.Result
	}
	return nil
}
