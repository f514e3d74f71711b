// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/culturefeed/internal/metrics"
	"github.com/tomtom215/culturefeed/internal/recommend"
)

// maxResponseBytes bounds one upstream response body.
const maxResponseBytes = 8 << 20

// ErrUpstreamStatus is wrapped by errors for non-200 upstream responses.
var ErrUpstreamStatus = errors.New("unexpected upstream status")

// HTTPConfig configures HTTPProvider.
type HTTPConfig struct {
	// BaseURL of the catalog service, e.g. http://catalog:8080.
	BaseURL string

	// Timeout bounds one request. Default: 10s
	Timeout time.Duration

	// RequestsPerSecond and Burst bound the request rate. Zero disables
	// rate limiting.
	RequestsPerSecond float64
	Burst             int

	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default: 5
	FailureThreshold uint32

	// OpenTimeout is how long the circuit stays open before a probe.
	// Default: 30s
	OpenTimeout time.Duration

	// Client overrides the HTTP client.
	Client *http.Client
}

type candidatesResponse struct {
	Items []recommend.Item `json:"items"`
}

// HTTPProvider fetches candidates from an upstream catalog service.
type HTTPProvider struct {
	baseURL *url.URL
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[interface{}]
	name    string
	logger  zerolog.Logger
}

// NewHTTPProvider creates an upstream catalog client.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHTTPProvider(cfg HTTPConfig, logger zerolog.Logger) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("catalog base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("catalog base URL must be http or https, got %q", base.Scheme)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	p := &HTTPProvider{
		baseURL: base,
		client:  client,
		limiter: limiter,
		name:    "catalog-" + base.Host,
		logger:  logger,
	}
	metrics.SetCatalogCircuitState(p.name, 0)

	p.cb = gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        p.name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not an upstream failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("catalog circuit breaker state transition")
			metrics.SetCatalogCircuitState(name, stateToInt(to))
		},
	})
	return p, nil
}

// FetchCandidates implements recommend.CatalogProvider.
func (p *HTTPProvider) FetchCandidates(ctx context.Context, kind recommend.SectionKind, limit int) ([]recommend.Item, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("catalog rate limit: %w", err)
	}

	result, err := p.cb.Execute(func() (interface{}, error) {
		return p.fetch(ctx, kind, limit)
	})
	metrics.RecordCatalogRequest(SourceHTTP, err)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.logger.Debug().Err(err).Str("kind", string(kind)).Msg("catalog request rejected by circuit breaker")
		}
		return nil, err
	}
	items, ok := result.([]recommend.Item)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return items, nil
}

func (p *HTTPProvider) fetch(ctx context.Context, kind recommend.SectionKind, limit int) ([]recommend.Item, error) {
	u := p.baseURL.JoinPath("candidates")
	q := url.Values{}
	q.Set("kind", string(kind))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("%w %d: %s", ErrUpstreamStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var body candidatesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	if body.Items == nil {
		body.Items = []recommend.Item{}
	}
	return body.Items, nil
}

// State returns the circuit breaker state.
func (p *HTTPProvider) State() gobreaker.State {
	return p.cb.State()
}

// stateToInt converts circuit breaker state to its metric value.
func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
