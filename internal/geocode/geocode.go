package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"farmlink/internal/models"

	"go.uber.org/zap"
)

const (
	serviceName = "geocode"

	// MinQueryLength is the shortest name that is sent upstream.
	MinQueryLength = 2
	resultCount    = 6
)

// Observer records upstream call latency.
type Observer interface {
	ObserveUpstream(service string, start time.Time, err error)
}

// Client searches place names with the Open-Meteo geocoding API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	observer   Observer
	logger     *zap.Logger
}

// NewClient creates a geocoding client. observer may be nil.
func NewClient(baseURL string, timeout time.Duration, observer Observer, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		observer:   observer,
		logger:     logger,
	}
}

type searchResponse struct {
	Results []models.Place `json:"results"`
}

// Search returns up to six candidate places. Names shorter than MinQueryLength
// yield no results and no request.
func (c *Client) Search(ctx context.Context, name string) (places []models.Place, err error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < MinQueryLength {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream(serviceName, start, err)
		}
	}()

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid geocoding base url: %w", err)
	}
	q := u.Query()
	q.Set("name", name)
	q.Set("count", fmt.Sprint(resultCount))
	q.Set("language", "en")
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocoding request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.NetworkError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.NetworkError{Service: serviceName, StatusCode: resp.StatusCode}
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &models.ParseError{Service: serviceName, Err: err}
	}
	c.logger.Debug("geocoding search", zap.String("name", name), zap.Int("results", len(payload.Results)))
	return payload.Results, nil
}
