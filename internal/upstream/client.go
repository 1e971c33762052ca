package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"carshop-display-backend/config"
	"carshop-display-backend/internal/model"
)

// Client talks to an external screen API that acts as the system of record.
type Client struct {
	baseURL string
	headers map[string]string
	client  *http.Client
}

// assignRequest is the body the screen API expects when a screen is assigned.
type assignRequest struct {
	CustomerName  string     `json:"customerName"`
	Brand         string     `json:"brand"`
	Type          string     `json:"type"`
	LicensePlate  string     `json:"licensePlate"`
	Year          string     `json:"year"`
	Service       string     `json:"service"`
	EstimatedTime *time.Time `json:"estimatedTime"`
	AssignedBy    string     `json:"assignedBy,omitempty"`
}

type clearRequest struct {
	ClearedBy string `json:"clearedBy,omitempty"`
}

// NewClient builds a client from the upstream config, honouring the optional proxy.
func NewClient(cfg *config.UpstreamConfig) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Upstream client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: cfg.Headers,
		client: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// ListScreens fetches every screen's current payload.
func (c *Client) ListScreens(ctx context.Context) ([]model.ScreenPayload, error) {
	var screens []model.ScreenPayload
	if err := c.do(ctx, http.MethodGet, "/screens", nil, &screens); err != nil {
		return nil, err
	}
	return screens, nil
}

// AssignScreen stores rec on the given screen.
func (c *Client) AssignScreen(ctx context.Context, screenID string, rec model.SlotRecord, actor string) error {
	body := assignRequest{
		CustomerName:  rec.CustomerName,
		Brand:         rec.Brand,
		Type:          rec.CarType,
		LicensePlate:  rec.LicensePlate,
		Year:          rec.Year,
		Service:       rec.Service,
		EstimatedTime: rec.EstimatedFinishAt,
		AssignedBy:    actor,
	}
	return c.do(ctx, http.MethodPost, "/screens/"+url.PathEscape(screenID)+"/assign", body, nil)
}

// ClearScreen returns the given screen to standby.
func (c *Client) ClearScreen(ctx context.Context, screenID string, actor string) error {
	return c.do(ctx, http.MethodPost, "/screens/"+url.PathEscape(screenID)+"/clear", clearRequest{ClearedBy: actor}, nil)
}

// do sends one request. Client errors from the API are reported as validation
// or data errors; anything else is returned as-is for the caller to treat as transport failure.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s: %s", model.ErrData, method, path, strings.TrimSpace(string(body)))
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s %s: %s", model.ErrValidation, method, path, strings.TrimSpace(string(body)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("received non-2xx status code: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	return nil
}
