package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"buyerbot_backend/platform/apperr"
	"buyerbot_backend/platform/logger"
)

// CRMHTTPClient implements ports.CRMClient against the CRM REST API.
type CRMHTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

func NewCRMClient(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) *CRMHTTPClient {
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}
	return &CRMHTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// AddTags applies tags to a contact. Tag application is idempotent on the
// CRM side, so retries are safe.
func (c *CRMHTTPClient) AddTags(ctx context.Context, contactID string, tags []string) error {
	body := map[string]interface{}{"tags": tags}
	return c.post(ctx, fmt.Sprintf("/v1/contacts/%s/tags", contactID), body)
}

// AddNote appends a note to a contact's timeline.
func (c *CRMHTTPClient) AddNote(ctx context.Context, contactID string, note string) error {
	body := map[string]interface{}{"body": note}
	return c.post(ctx, fmt.Sprintf("/v1/contacts/%s/notes", contactID), body)
}

func (c *CRMHTTPClient) post(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "crm: encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "crm: build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.TransientNetwork("crm request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return apperr.UpstreamService(fmt.Sprintf("crm returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return apperr.Internal(fmt.Sprintf("crm returned %d", resp.StatusCode))
	}
	return nil
}
