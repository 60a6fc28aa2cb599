package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kjstillabower/model-catalog/internal/models"
	"github.com/kjstillabower/model-catalog/internal/observability"
)

// CatalogClient lists the models offered by an upstream.
type CatalogClient interface {
	ListModels(ctx context.Context) ([]models.ModelRecord, error)
	Ping(ctx context.Context) error
}

var (
	ErrUnauthorized     = errors.New("upstream rejected credentials")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
	ErrUpstreamRejected = errors.New("upstream rejected request")
	ErrInvalidResponse  = errors.New("invalid upstream response")
	ErrCircuitOpen      = errors.New("circuit breaker open")
)

// maxBodyBytes caps how much of an upstream listing is read.
const maxBodyBytes = 8 << 20

// BreakerConfig enables the circuit breaker around upstream calls.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures that open the circuit
	SuccessThreshold int           // probe requests allowed while half-open
	Timeout          time.Duration // how long the circuit stays open
}

// Options configures an OpenAIClient. Zero retry values fall back to 3 attempts, 100ms base, 2s max.
type Options struct {
	URL            string // full URL of the model list, e.g. http://localhost:11434/v1/models
	APIKey         string // optional bearer token
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	Breaker        *BreakerConfig
	HTTPClient     *http.Client
}

// OpenAIClient reads an OpenAI-compatible model list endpoint.
type OpenAIClient struct {
	url            string
	apiKey         string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *gobreaker.CircuitBreaker
}

// BreakerComponent is the component label used for circuit breaker metrics.
const BreakerComponent = "catalog_upstream"

// NewOpenAIClient validates opts.URL and returns a client. A non-nil opts.Breaker
// wraps every upstream call in a circuit breaker.
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	u, err := url.Parse(strings.TrimSpace(opts.URL))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid upstream URL %q: scheme must be http or https", opts.URL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q: missing host", opts.URL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 100 * time.Millisecond
	}
	if opts.RetryMaxDelay <= 0 {
		opts.RetryMaxDelay = 2 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	c := &OpenAIClient{
		url:            u.String(),
		apiKey:         opts.APIKey,
		timeout:        opts.Timeout,
		client:         httpClient,
		retryAttempts:  opts.RetryAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		retryMaxDelay:  opts.RetryMaxDelay,
	}
	if opts.Breaker != nil {
		c.breaker = newBreaker(*opts.Breaker)
		observability.CircuitBreakerState.WithLabelValues(BreakerComponent).Set(0)
	}
	return c, nil
}

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	threshold := uint32(cfg.FailureThreshold)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        BreakerComponent,
		MaxRequests: uint32(cfg.SuccessThreshold),
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.RecordCircuitTransition(name, from.String(), to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isUpstreamFault(err)
		},
	})
}

// BreakerState returns the breaker state name, or "disabled".
func (c *OpenAIClient) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

type modelListResponse struct {
	Object string               `json:"object"`
	Data   []models.ModelRecord `json:"data"`
}

// ListModels fetches the upstream model list, retrying rate limits, 5xx and timeouts
// with exponential backoff.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]models.ModelRecord, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.UpstreamRetriesTotal.Inc()
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := c.guardedCall(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		observability.UpstreamErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		if !c.isRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("exhausted retries: %w", lastErr)
}

func (c *OpenAIClient) guardedCall(ctx context.Context) ([]models.ModelRecord, error) {
	if c.breaker == nil {
		return c.callAPI(ctx)
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.callAPI(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	return out.([]models.ModelRecord), nil
}

func (c *OpenAIClient) callAPI(ctx context.Context) ([]models.ModelRecord, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
		observability.UpstreamDuration.WithLabelValues("error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(status).Inc()
	observability.UpstreamDuration.WithLabelValues(status).Observe(duration)

	if err := handleErrorResponse(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return decodeModelList(body)
}

// decodeModelList accepts {"data":[...]} as well as a bare JSON array.
func decodeModelList(body []byte) ([]models.ModelRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidResponse)
	}
	if trimmed[0] == '[' {
		var recs []models.ModelRecord
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, fmt.Errorf("%w: parse model array: %v", ErrInvalidResponse, err)
		}
		return recs, nil
	}
	var list modelListResponse
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("%w: parse model list: %v", ErrInvalidResponse, err)
	}
	if list.Data == nil {
		return nil, fmt.Errorf("%w: missing data field", ErrInvalidResponse)
	}
	return list.Data, nil
}

func (c *OpenAIClient) isRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	return isUpstreamFault(err)
}

// isUpstreamFault reports errors that reflect upstream health: rate limits, 5xx,
// timeouts and transport failures. Bad credentials and bad payloads do not.
func isUpstreamFault(err error) bool {
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrUpstreamRejected) || errors.Is(err, ErrInvalidResponse) {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "http request failed")
}

func (c *OpenAIClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func (c *OpenAIClient) buildRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	return req, nil
}

func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrUnauthorized, resp.StatusCode)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamRejected, resp.StatusCode)
	}
	return nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// Ping performs a single unretried list call with a short timeout.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.guardedCall(ctx); err != nil {
		return fmt.Errorf("upstream ping: %w", err)
	}
	return nil
}
