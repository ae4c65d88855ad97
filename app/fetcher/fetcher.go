package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lysyi3m/paper-comb/app/metrics"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var ErrEmptyBody = errors.New("upstream returned an empty body")

type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.Status)
}

// Page selects a window of a paginated feed. A zero MaxResults leaves the
// upstream default in place.
type Page struct {
	Start      int
	MaxResults int
}

type Options struct {
	UserAgent       string
	RequestInterval time.Duration
	MaxRetries      int
	MaxBodyBytes    int64

	// Backoff between retries. Zero values use the defaults below.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	Breaker BreakerConfig
}

const (
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second
)

type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	opts    Options
}

func NewFetcher(client *http.Client, opts Options) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.Breaker.Name == "" {
		opts.Breaker = DefaultBreakerConfig()
	}

	limit := rate.Inf
	if opts.RequestInterval > 0 {
		limit = rate.Every(opts.RequestInterval)
	}

	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		breaker: newBreaker(opts.Breaker),
		opts:    opts,
	}
}

// Fetch downloads one page of the feed at feedURL. Network failures, empty
// bodies, 429 and 5xx responses are retried; other errors are returned at once.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string, page Page) ([]byte, error) {
	requestURL, err := PageURL(feedURL, page)
	if err != nil {
		return nil, err
	}

	var data []byte
	attempt := 0

	operation := func() error {
		attempt++

		result, err := f.breaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, requestURL)
		})
		if err != nil {
			metrics.UpstreamRequests.WithLabelValues(resultLabel(err)).Inc()
			if !isRetryable(err) {
				return backoff.Permanent(err)
			}
			slog.Warn("Feed fetch failed, retrying", "url", requestURL, "attempt", attempt, "error", err)
			return err
		}

		metrics.UpstreamRequests.WithLabelValues("ok").Inc()
		data = result.([]byte)
		return nil
	}

	if err := backoff.Retry(operation, f.newBackOff(ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("failed to fetch feed: %w", ctxErr)
		}
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	slog.Debug("Feed fetched", "url", requestURL, "bytes", len(data), "attempts", attempt)
	return data, nil
}

func (f *Fetcher) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.opts.InitialBackoff
	b.MaxInterval = f.opts.MaxBackoff
	b.Multiplier = 2.0
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.opts.MaxRetries)), ctx)
}

func (f *Fetcher) doFetch(ctx context.Context, requestURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{URL: requestURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var body io.Reader = resp.Body
	if f.opts.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, f.opts.MaxBodyBytes)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if len(data) == 0 {
		return nil, ErrEmptyBody
	}

	return data, nil
}

// PageURL adds start and max_results query parameters to feedURL.
func PageURL(feedURL string, page Page) (string, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return "", fmt.Errorf("invalid feed URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid feed URL: unsupported scheme %q", u.Scheme)
	}

	query := u.Query()
	if page.Start > 0 {
		query.Set("start", strconv.Itoa(page.Start))
	}
	if page.MaxResults > 0 {
		query.Set("max_results", strconv.Itoa(page.MaxResults))
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, ErrEmptyBody) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError ||
			httpErr.StatusCode == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func resultLabel(err error) string {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		return strconv.Itoa(httpErr.StatusCode)
	case errors.Is(err, ErrEmptyBody):
		return "empty"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	default:
		return "error"
	}
}
