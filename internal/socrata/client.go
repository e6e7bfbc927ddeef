// Package socrata is the HTTP client for the Chicago open-data query API.
package socrata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/soql"
)

// Row is one result row. Socrata returns every field as a string; callers
// coerce values to their storage types.
type Row map[string]string

type Client struct {
	httpClient *http.Client
	baseURL    string
	appToken   string
	log        zerolog.Logger
}

// NewClient builds a client against baseURL (e.g.
// "https://data.cityofchicago.org/resource/"). appToken may be empty;
// without one requests share the anonymous throttling pool. Timeout bounds
// each query; there is no retry here, a failed query is fatal to its caller.
func NewClient(baseURL, appToken string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		appToken:   appToken,
		log:        log,
	}
}

// Query executes a SoQL statement against a dataset and returns its rows.
func (c *Client) Query(ctx context.Context, datasetID string, stmt *soql.Statement) ([]Row, error) {
	query := stmt.String()
	endpoint := fmt.Sprintf("%s/%s.json?%s", c.baseURL, datasetID,
		url.Values{"$query": {query}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query dataset %s: %w", datasetID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("query dataset %s: status %d: %s", datasetID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rows []Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode dataset %s response: %w", datasetID, err)
	}

	c.log.Debug().
		Str("dataset", datasetID).
		Int("rows", len(rows)).
		Dur("elapsed", time.Since(started)).
		Msg("socrata query completed")

	return rows, nil
}
