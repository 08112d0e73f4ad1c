// Package transport provides HTTP clients for the external collaborators of
// the conversation domain: the property search service and the CRM.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"buyerbot_backend/internal/conversation/domain"
	"buyerbot_backend/internal/conversation/ports"
	"buyerbot_backend/platform/apperr"
	"buyerbot_backend/platform/logger"
)

const defaultHTTPTimeout = 10 * time.Second

// PropertyClient implements ports.PropertyFinder against the listing API.
type PropertyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

func NewPropertyClient(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) *PropertyClient {
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}
	return &PropertyClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type listingResponse struct {
	Listings []struct {
		ID        string  `json:"id"`
		Address   string  `json:"address"`
		Price     int64   `json:"price"`
		Bedrooms  int     `json:"bedrooms"`
		Bathrooms float64 `json:"bathrooms"`
		URL       string  `json:"url"`
		Score     float64 `json:"matchScore"`
	} `json:"listings"`
}

// Find queries the listing API and normalizes results into domain matches.
func (c *PropertyClient) Find(ctx context.Context, query ports.PropertyQuery) ([]domain.PropertyMatch, error) {
	params := url.Values{}
	params.Set("max_price", strconv.FormatInt(query.MaxPrice, 10))
	params.Set("limit", strconv.Itoa(query.Limit))
	for key, value := range query.Preferences {
		params.Set(key, value)
	}

	endpoint := fmt.Sprintf("%s/v1/listings/search?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "property search: build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.TransientNetwork("property search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, apperr.UpstreamService(
			fmt.Sprintf("property search returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Internal(fmt.Sprintf("property search returned %d", resp.StatusCode))
	}

	var payload listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperr.UpstreamService("property search: malformed response", err)
	}

	matches := make([]domain.PropertyMatch, 0, len(payload.Listings))
	for _, l := range payload.Listings {
		matches = append(matches, domain.PropertyMatch{
			ID:        l.ID,
			Address:   l.Address,
			Price:     l.Price,
			Bedrooms:  l.Bedrooms,
			Bathrooms: l.Bathrooms,
			URL:       l.URL,
			Score:     l.Score,
		})
	}
	return matches, nil
}
