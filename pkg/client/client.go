// Package client is a small Go client for the clima-AGS series API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonas9200/clima-AGS/pkg/api"
	"github.com/jonas9200/clima-AGS/pkg/readings"
)

// Query selects a series. Zero Start/End are open bounds; Period (24h, 7d,
// 30d) is resolved by the server and only fills missing bounds.
type Query struct {
	DeviceID string
	Start    time.Time
	End      time.Time
	Period   string
}

func (q Query) values() url.Values {
	v := url.Values{}
	v.Set(api.ParamDevice, q.DeviceID)
	if !q.Start.IsZero() {
		v.Set(api.ParamStart, q.Start.Format(readings.StoreTimeLayout))
	}
	if !q.End.IsZero() {
		v.Set(api.ParamEnd, q.End.Format(readings.StoreTimeLayout))
	}
	if q.Period != "" {
		v.Set(api.ParamPeriod, q.Period)
	}
	return v
}

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// IsUnavailable reports whether err is a 503 from the API.
func IsUnavailable(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL. A nil hc uses a
// client with a 15s timeout.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) Devices(ctx context.Context) ([]string, error) {
	var out api.DevicesResponse
	if err := c.get(ctx, api.PathDevices, nil, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

func (c *Client) Series(ctx context.Context, q Query) (api.SeriesResponse, error) {
	var out api.SeriesResponse
	err := c.get(ctx, api.PathSeries, q.values(), &out)
	return out, err
}

// Hourly fetches buckets computed by the server.
func (c *Client) Hourly(ctx context.Context, q Query) (api.HourlyResponse, error) {
	var out api.HourlyResponse
	err := c.get(ctx, api.PathHourly, q.values(), &out)
	return out, err
}

// HourlySeries fetches the raw series and buckets it locally. The result
// matches Hourly for the same query.
func (c *Client) HourlySeries(ctx context.Context, q Query) (api.HourlyResponse, error) {
	s, err := c.Series(ctx, q)
	if err != nil {
		return api.HourlyResponse{}, err
	}
	return api.HourlyResponse{
		TotalRain: s.TotalRain,
		Buckets:   readings.Hourly(s.Records),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
		var body api.ErrorResponse
		if b, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil && json.Unmarshal(b, &body) == nil {
			apiErr.Message = body.Message
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
