package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPSource опрашивает внешний data provider по HTTP.
// Контракт провайдера: GET {base}/v1/series/{id}/latest -> {"value": <number|null>}.
// null означает "серия существует, текущего значения нет".
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPSource создает HTTP источник данных
func NewHTTPSource(baseURL, apiKey string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPSource{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type seriesResponse struct {
	Value *float64 `json:"value"`
}

// Fetch возвращает текущее значение серии; nil без ошибки при null
func (s *HTTPSource) Fetch(ctx context.Context, seriesID string) (*float64, error) {
	endpoint := fmt.Sprintf("%s/v1/series/%s/latest", s.baseURL, url.PathEscape(seriesID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("series %s not found", seriesID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for series %s", resp.StatusCode, seriesID)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed seriesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("malformed response for series %s: %w", seriesID, err)
	}

	return parsed.Value, nil
}

// Name возвращает имя источника
func (s *HTTPSource) Name() string {
	return "http"
}
