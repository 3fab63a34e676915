package usps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/vor/internal/address"
	"github.com/dukerupert/vor/internal/telemetry"
)

const (
	// DefaultBaseURL is the production USPS APIs host.
	DefaultBaseURL = "https://apis.usps.com"

	// DefaultTokenURL is the production OAuth token endpoint.
	DefaultTokenURL = DefaultBaseURL + "/oauth2/v3/token"

	lookupPath = "/addresses/v3/address"

	defaultTimeout    = 15 * time.Second
	defaultPacing     = 100 * time.Millisecond
	defaultMaxRetries = 2
)

// Config contains configuration for the USPS address validation client.
type Config struct {
	Credentials Credentials

	// BaseURL overrides the provider host (for testing or the CAT
	// environment). Defaults to DefaultBaseURL.
	BaseURL string

	// TokenURL overrides the OAuth token endpoint. Defaults to
	// DefaultTokenURL.
	TokenURL string

	// Timeout is the per-request HTTP timeout. Defaults to 15s.
	Timeout time.Duration

	// Pacing is slept after every successful lookup so a large batch
	// stays under the provider's allowed call rate. Defaults to 100ms.
	Pacing time.Duration

	// MaxRetries bounds the refresh/backoff loop. Defaults to 2.
	MaxRetries int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional; when set, provider calls and token
	// refreshes are counted.
	Metrics *telemetry.Pipeline
}

// Client validates addresses against the USPS Addresses API.
// It implements address.Validator and recovers locally from
// unauthorized (token refresh) and rate-limited (backoff) responses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenManager
	pacing     time.Duration
	maxRetries int
	logger     *slog.Logger
	metrics    *telemetry.Pipeline

	// sleep is replaced in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// Compile-time check that Client implements address.Validator.
var _ address.Validator = (*Client)(nil)

// NewClient creates a new USPS address validation client.
func NewClient(cfg Config) (*Client, error) {
	if !cfg.Credentials.complete() {
		return nil, ErrMissingCredentials
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Pacing <= 0 {
		cfg.Pacing = defaultPacing
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		tokens:     NewTokenManager(cfg.Credentials, cfg.TokenURL, httpClient, logger),
		pacing:     cfg.Pacing,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
		metrics:    cfg.Metrics,
		sleep:      sleepContext,
	}, nil
}

// lookupResponse mirrors the fields we consume from the provider.
// Missing nested fields decode to empty values so a partial response
// degrades to "not usable" instead of failing the batch.
type lookupResponse struct {
	Address struct {
		StreetAddress    string `json:"streetAddress"`
		SecondaryAddress string `json:"secondaryAddress"`
		City             string `json:"city"`
		State            string `json:"state"`
		ZIPCode          string `json:"ZIPCode"`
		ZIPPlus4         string `json:"ZIPPlus4"`
	} `json:"address"`
	AdditionalInfo struct {
		DPVConfirmation string `json:"DPVConfirmation"`
	} `json:"additionalInfo"`
}

// Validate looks up one address. It returns (nil, nil) for every
// ordinary miss: blank street, undeliverable response, exhausted retry
// budget, or an unexpected provider status. Only a token exchange
// failure is returned as an error.
func (c *Client) Validate(ctx context.Context, q address.Query) (*address.Candidate, error) {
	q = cleanQuery(q)
	if !q.HasStreet() {
		return nil, nil
	}

	params := c.queryParams(q)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Linear backoff before each retry.
		if attempt > 0 {
			delay := time.Duration(attempt) * 500 * time.Millisecond
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		authHeader, err := c.tokens.AuthHeader(ctx)
		if err != nil {
			return nil, err
		}

		status, body, err := c.lookup(ctx, params, authHeader)
		if err != nil {
			// Transport failure: log and degrade to a miss rather
			// than aborting the batch.
			c.logger.Warn("address lookup request failed", "error", err)
			c.metrics.ProviderCall("transport_error")
			return nil, nil
		}
		c.metrics.ProviderCall(strconv.Itoa(status))

		switch {
		case status == http.StatusUnauthorized:
			c.logger.Debug("unauthorized response, refreshing token", "attempt", attempt)
			c.metrics.TokenRefresh()
			if err := c.tokens.Refresh(ctx); err != nil {
				return nil, err
			}
			continue

		case status == http.StatusTooManyRequests:
			delay := time.Second + time.Duration(attempt)*500*time.Millisecond
			c.logger.Debug("rate limited, backing off", "attempt", attempt, "delay", delay)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue

		case status >= 200 && status < 300:
			candidate := parseCandidate(body)
			// Pace successful calls so a batch stays under the
			// provider's rate limit.
			if err := c.sleep(ctx, c.pacing); err != nil {
				return nil, err
			}
			return candidate, nil

		default:
			c.logger.Warn("address lookup returned unexpected status",
				"status", status,
				"street", q.Street,
			)
			return nil, nil
		}
	}

	c.logger.Warn("address lookup retry budget exhausted", "street", q.Street)
	return nil, nil
}

// lookup performs a single provider call and returns the status and body.
func (c *Client) lookup(ctx context.Context, params url.Values, authHeader string) (int, []byte, error) {
	reqURL := c.baseURL + lookupPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, body, nil
}

// queryParams builds the outgoing query string. Blank fields are
// omitted entirely rather than sent as empty values.
func (c *Client) queryParams(q address.Query) url.Values {
	params := url.Values{}
	set := func(key, value string) {
		if value != "" {
			params.Set(key, value)
		}
	}
	set("streetAddress", q.Street)
	set("secondaryAddress", q.Secondary)
	set("city", q.City)
	set("state", q.State)
	set("ZIPCode", q.Zip5)
	set("ZIPPlus4", q.Zip4)
	return params
}

// parseCandidate decodes a successful response defensively: malformed
// or partial payloads produce a candidate with empty fields, which the
// classifier treats as not usable.
func parseCandidate(body []byte) *address.Candidate {
	var payload lookupResponse
	// A decode failure leaves the zero value in place.
	_ = json.Unmarshal(body, &payload)

	return &address.Candidate{
		Street:       payload.Address.StreetAddress,
		Secondary:    payload.Address.SecondaryAddress,
		City:         payload.Address.City,
		State:        payload.Address.State,
		Zip5:         payload.Address.ZIPCode,
		Zip4:         payload.Address.ZIPPlus4,
		Confirmation: payload.AdditionalInfo.DPVConfirmation,
		Raw:          body,
	}
}

// cleanQuery trims every field so blank strings are treated as absent.
func cleanQuery(q address.Query) address.Query {
	return address.Query{
		Street:    strings.TrimSpace(q.Street),
		Secondary: strings.TrimSpace(q.Secondary),
		City:      strings.TrimSpace(q.City),
		State:     strings.TrimSpace(q.State),
		Zip5:      strings.TrimSpace(q.Zip5),
		Zip4:      strings.TrimSpace(q.Zip4),
	}
}

// sleepContext sleeps for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
