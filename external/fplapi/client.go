package fplapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/valyala/fasthttp"

	"github.com/riskibarqy/fpl-sync/internal/platform/logging"
	"github.com/riskibarqy/fpl-sync/internal/platform/resilience"
	"github.com/riskibarqy/fpl-sync/internal/usecase"
)

const (
	defaultBaseURL = "https://fantasy.premierleague.com/api"
	defaultTimeout = 20 * time.Second
	maxBodyBytes   = 16 << 20
)

var errTransient = crerr.New("fpl transient failure")

var validate = validator.New(validator.WithRequiredStructEnabled())

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads public FPL endpoints. All methods implement
// usecase.SnapshotProvider and are safe for concurrent use.
type Client struct {
	httpClient     *fasthttp.Client
	baseURL        string
	timeout        time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

var _ usecase.SnapshotProvider = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxBodyBytes,
		}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		timeout:        timeout,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(cfg.CircuitBreaker),
		circuitEnabled: cfg.CircuitBreaker.Enabled,
	}
}

func (c *Client) FetchBootstrap(ctx context.Context) (usecase.ExternalBootstrap, error) {
	var resp bootstrapResponse
	if err := c.getJSON(ctx, "/bootstrap-static/", &resp); err != nil {
		return usecase.ExternalBootstrap{}, fmt.Errorf("fetch bootstrap: %w", err)
	}
	if err := validate.Struct(resp); err != nil {
		return usecase.ExternalBootstrap{}, fmt.Errorf("%w: bootstrap payload incomplete: %v", usecase.ErrFetchFailed, err)
	}
	return mapBootstrap(resp), nil
}

func (c *Client) FetchFixtures(ctx context.Context) ([]usecase.ExternalFixture, error) {
	var items []fixtureItem
	if err := c.getJSON(ctx, "/fixtures/", &items); err != nil {
		return nil, fmt.Errorf("fetch fixtures: %w", err)
	}
	return mapFixtures(items), nil
}

func (c *Client) FetchLiveStats(ctx context.Context, gameweekID int) ([]usecase.ExternalPlayerGameweekStat, error) {
	if gameweekID <= 0 {
		return nil, fmt.Errorf("%w: gameweek id must be greater than zero", usecase.ErrInvalidInput)
	}

	var resp liveResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/event/%d/live/", gameweekID), &resp); err != nil {
		return nil, fmt.Errorf("fetch live stats gameweek_id=%d: %w", gameweekID, err)
	}
	if err := validate.Struct(resp); err != nil {
		return nil, fmt.Errorf("%w: live payload incomplete gameweek_id=%d: %v", usecase.ErrFetchFailed, gameweekID, err)
	}
	return mapLiveStats(gameweekID, resp), nil
}

func (c *Client) FetchEntry(ctx context.Context, entryID int64) (usecase.ExternalEntry, error) {
	if entryID <= 0 {
		return usecase.ExternalEntry{}, fmt.Errorf("%w: entry id must be greater than zero", usecase.ErrInvalidInput)
	}

	var resp entryResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/entry/%d/", entryID), &resp); err != nil {
		return usecase.ExternalEntry{}, fmt.Errorf("fetch entry entry_id=%d: %w", entryID, err)
	}
	if err := validate.Struct(resp); err != nil {
		return usecase.ExternalEntry{}, fmt.Errorf("%w: entry payload incomplete entry_id=%d: %v", usecase.ErrFetchFailed, entryID, err)
	}
	return mapEntry(resp), nil
}

func (c *Client) FetchEntryHistory(ctx context.Context, entryID int64) (usecase.ExternalEntryHistory, error) {
	if entryID <= 0 {
		return usecase.ExternalEntryHistory{}, fmt.Errorf("%w: entry id must be greater than zero", usecase.ErrInvalidInput)
	}

	var resp entryHistoryResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/entry/%d/history/", entryID), &resp); err != nil {
		return usecase.ExternalEntryHistory{}, fmt.Errorf("fetch entry history entry_id=%d: %w", entryID, err)
	}
	return mapEntryHistory(resp), nil
}

func (c *Client) FetchEntryTransfers(ctx context.Context, entryID int64) ([]usecase.ExternalEntryTransfer, error) {
	if entryID <= 0 {
		return nil, fmt.Errorf("%w: entry id must be greater than zero", usecase.ErrInvalidInput)
	}

	var items []entryTransferItem
	if err := c.getJSON(ctx, fmt.Sprintf("/entry/%d/transfers/", entryID), &items); err != nil {
		return nil, fmt.Errorf("fetch entry transfers entry_id=%d: %w", entryID, err)
	}
	return mapEntryTransfers(items), nil
}

func (c *Client) FetchEntryPicks(ctx context.Context, entryID int64, gameweekID int) (usecase.ExternalEntryPicks, error) {
	if entryID <= 0 {
		return usecase.ExternalEntryPicks{}, fmt.Errorf("%w: entry id must be greater than zero", usecase.ErrInvalidInput)
	}
	if gameweekID <= 0 {
		return usecase.ExternalEntryPicks{}, fmt.Errorf("%w: gameweek id must be greater than zero", usecase.ErrInvalidInput)
	}

	var resp entryPicksResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/entry/%d/event/%d/picks/", entryID, gameweekID), &resp); err != nil {
		return usecase.ExternalEntryPicks{}, fmt.Errorf("fetch entry picks entry_id=%d gameweek_id=%d: %w", entryID, gameweekID, err)
	}
	return mapEntryPicks(gameweekID, resp), nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "fpl circuit breaker rejected request", "state", c.breaker.State(), "path", path)
			return fmt.Errorf("%w: fpl api is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path

	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return fmt.Errorf("%w: %v", usecase.ErrFetchFailed, err)
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("%w: unexpected response payload type %T", usecase.ErrFetchFailed, out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode payload: %v", usecase.ErrFetchFailed, err)
	}

	return nil
}

// executeRequest makes exactly one attempt. Retry policy lives in the
// scheduler: a failed scope keeps its old fingerprint and is re-detected
// next cycle, so retrying here would only multiply pressure on a
// rate-limited upstream.
func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := c.doOnce(fullURL)
	if err != nil {
		c.logger.WarnContext(ctx, "fpl request failed", "url", fullURL, "error", err)
		return nil, err
	}
	return raw, nil
}

func (c *Client) doOnce(fullURL string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	req.Header.Set(fasthttp.HeaderUserAgent, "fpl-sync/1.0")

	if err := c.httpClient.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, fmt.Errorf("%w: send request: %v", errTransient, err)
	}

	status := resp.StatusCode()
	body := append([]byte(nil), resp.Body()...)
	if status >= 200 && status < 300 {
		return body, nil
	}
	if isRetryableStatus(status) {
		return nil, fmt.Errorf("%w: upstream status=%d body=%s", errTransient, status, abbreviateBody(body))
	}
	return nil, fmt.Errorf("upstream status=%d body=%s", status, abbreviateBody(body))
}

func isRetryableStatus(status int) bool {
	switch status {
	case fasthttp.StatusTooManyRequests,
		fasthttp.StatusInternalServerError,
		fasthttp.StatusBadGateway,
		fasthttp.StatusServiceUnavailable,
		fasthttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}
