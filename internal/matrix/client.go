package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/azulrosales/routing-solver/internal/metrics"
)

const defaultBaseURL = "https://api.distancematrix.ai"

// ClientConfig configures a distancematrix.ai client. The API key is
// injected here (from the environment at process start) and is never
// written to logs or responses.
type ClientConfig struct {
	APIKey     string
	BaseURL    string       // defaults to the public endpoint
	HTTPClient *http.Client // defaults to a 30s-timeout client
	RPS        float64      // outbound request rate limit; 0 = unlimited
	Burst      int
	Cache      Cache // optional; nil disables caching
}

// Client fetches matrices over HTTP with retries, rate limiting, and an
// optional cache in front of the API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	limiter *rate.Limiter
	cache   Cache
}

func NewClient(cfg ClientConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		httpc:   httpc,
		limiter: lim,
		cache:   cfg.Cache,
	}
}

type apiResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []apiElement `json:"elements"`
	} `json:"rows"`
}

type apiElement struct {
	Status   string `json:"status"`
	Duration struct {
		Value int `json:"value"` // seconds
	} `json:"duration"`
	Distance struct {
		Value int `json:"value"` // meters
	} `json:"distance"`
}

// Matrix returns the N×N matrix for the given locations. Unresolvable
// pairs come back as the NoRoute / ElementFailed sentinels; callers must
// filter those before treating entries as travel values.
func (c *Client) Matrix(ctx context.Context, locations []string, dim Dimension) ([][]int, error) {
	if len(locations) == 0 {
		return nil, &UpstreamError{Detail: "no locations given"}
	}
	key := cacheKey(locations, dim)
	if c.cache != nil {
		if m, ok := c.cache.Get(ctx, key); ok {
			metrics.MatrixRequests.WithLabelValues("cache_hit").Inc()
			return m, nil
		}
	}

	joined := strings.Join(locations, "|")
	q := url.Values{}
	q.Set("origins", joined)
	q.Set("destinations", joined)
	q.Set("key", c.apiKey)
	endpoint := c.baseURL + "/maps/api/distancematrix/json?" + q.Encode()

	resp, err := c.doWithRetry(ctx, endpoint)
	if err != nil {
		metrics.MatrixRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	var ar apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		metrics.MatrixRequests.WithLabelValues("error").Inc()
		return nil, &UpstreamError{Detail: "decode response", Err: err}
	}
	if ar.Status != "" && ar.Status != "OK" {
		metrics.MatrixRequests.WithLabelValues("error").Inc()
		return nil, &UpstreamError{Detail: "response status " + ar.Status}
	}
	if len(ar.Rows) != len(locations) {
		metrics.MatrixRequests.WithLabelValues("error").Inc()
		return nil, &UpstreamError{Detail: fmt.Sprintf("got %d rows for %d locations", len(ar.Rows), len(locations))}
	}

	out := make([][]int, len(locations))
	for i, row := range ar.Rows {
		if len(row.Elements) != len(locations) {
			metrics.MatrixRequests.WithLabelValues("error").Inc()
			return nil, &UpstreamError{Detail: fmt.Sprintf("row %d has %d elements for %d locations", i, len(row.Elements), len(locations))}
		}
		out[i] = make([]int, len(locations))
		for j, el := range row.Elements {
			switch el.Status {
			case "OK":
				if dim == DimensionDistance {
					out[i][j] = (el.Distance.Value + 500) / 1000 // kilometers
				} else {
					out[i][j] = (el.Duration.Value + 30) / 60 // minutes
				}
			case "ZERO_RESULTS":
				out[i][j] = NoRoute
			default:
				out[i][j] = ElementFailed
			}
		}
	}

	metrics.MatrixRequests.WithLabelValues("ok").Inc()
	if c.cache != nil {
		c.cache.Set(ctx, key, out)
	}
	return out, nil
}

// doWithRetry retries transient failures (network errors, 429 and 5xx
// responses) with exponential backoff while respecting context
// cancellation.
func (c *Client) doWithRetry(ctx context.Context, endpoint string) (*http.Response, error) {
	const maxAttempts = 4
	backoff := 200 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.do(ctx, endpoint)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var ue *UpstreamError
		if errors.As(err, &ue) {
			switch ue.StatusCode {
			case http.StatusTooManyRequests,
				http.StatusInternalServerError,
				http.StatusBadGateway,
				http.StatusServiceUnavailable,
				http.StatusGatewayTimeout:
				retry = true
			}
			var netErr net.Error
			if !retry && errors.As(ue.Err, &netErr) {
				retry = true
			}
		}
		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &UpstreamError{Detail: "create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(b))}
	}
	return resp, nil
}
