package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"trip-console/internal/domain"
	"trip-console/internal/platform/obs"
	"trip-console/internal/ports"
)

// Client implements ports.TripPlanner against the remote planning service.
//
// Every call POSTs the same JSON payload to {base}/plan, {base}/simulate or
// {base}/alerts and validates the response shape before returning it.
// The client is safe for concurrent use.
type Client struct {
	session     *http.Client
	baseURL     string
	maxAttempts int
	backoff     time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.session = hc }
}

// WithMaxAttempts enables retries of transient failures. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n >= 1 {
			c.maxAttempts = n
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("planner base url is empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("planner base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("planner base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		session:     &http.Client{Timeout: 30 * time.Second},
		baseURL:     baseURL,
		maxAttempts: 1,
		backoff:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the normalised service root the client posts to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Plan(ctx context.Context, req domain.TripRequest) (_ *domain.RoutePlan, err error) {
	defer obs.Time(ctx, "planner.Plan")(&err)

	var resp planResponse
	if err := c.post(ctx, "/plan", req, &resp); err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	plan, err := resp.toDomain()
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	return plan, nil
}

func (c *Client) Simulate(ctx context.Context, req domain.TripRequest) (_ *domain.SimulationResult, err error) {
	defer obs.Time(ctx, "planner.Simulate")(&err)

	var resp simulateResponse
	if err := c.post(ctx, "/simulate", req, &resp); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	sim, err := resp.toDomain()
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	return sim, nil
}

func (c *Client) Alerts(ctx context.Context, req domain.TripRequest) (_ []domain.Alert, err error) {
	defer obs.Time(ctx, "planner.Alerts")(&err)

	var resp alertsResponse
	if err := c.post(ctx, "/alerts", req, &resp); err != nil {
		return nil, fmt.Errorf("alerts: %w", err)
	}

	return resp.toDomain(), nil
}

// post sends payload as JSON to path and decodes a 2xx body into out.
func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + path

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	})
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ports.ErrMalformedResponse, path, err)
	}

	return nil
}
