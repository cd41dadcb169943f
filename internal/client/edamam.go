// Nutrition lookup against the Edamam food database parser.
//
// Environment (see config.NutritionConfig):
//   - EDAMAM_APP_ID, EDAMAM_APP_KEY: API credentials
//   - EDAMAM_URL: parser endpoint
//   - EDAMAM_TIMEOUT: request timeout (default 10s)

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/optifit/backend/internal/config"
)

const maxNutritionResponseBytes = 4 << 20

var ErrNutritionNotConfigured = errors.New("nutrition api not configured")

type EdamamClient struct {
	baseURL    string
	appID      string
	appKey     string
	httpClient *http.Client
}

func NewEdamamClient(cfg config.NutritionConfig) (*EdamamClient, error) {
	if cfg.AppID == "" || cfg.AppKey == "" {
		return nil, fmt.Errorf("%w: missing EDAMAM_APP_ID/EDAMAM_APP_KEY", ErrNutritionNotConfigured)
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("invalid EDAMAM_URL: %q", cfg.BaseURL)
	}

	return &EdamamClient{
		baseURL: cfg.BaseURL,
		appID:   cfg.AppID,
		appKey:  cfg.AppKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// SearchFood returns the parser response verbatim so it can be cached as is.
func (c *EdamamClient) SearchFood(ctx context.Context, query string) (json.RawMessage, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse nutrition url: %w", err)
	}
	q := endpoint.Query()
	q.Set("app_id", c.appID)
	q.Set("app_key", c.appKey)
	q.Set("ingr", query)
	endpoint.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to nutrition api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxNutritionResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nutrition api returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("nutrition api returned invalid json")
	}

	return json.RawMessage(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
