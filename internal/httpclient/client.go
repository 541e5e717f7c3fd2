package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rsilvagit/go-airdrop/internal/logger"
)

// DefaultUserAgent is the static desktop user agent sent with every request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// DefaultMaxBodyBytes caps how much of a response body Fetch reads.
const DefaultMaxBodyBytes = 8 << 20

// Options configures the fetch client.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	ProxyURL   string
	MinDelay   time.Duration // minimum spacing between two requests to the same host
	MaxDelay   time.Duration // upper bound of the random spacing; zero disables jitter
	MaxRetries int           // total attempts on 429/503; 1 means a single attempt
	MaxBody    int64         // bodies larger than this fail with ErrBodyTooLarge
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 1
	}
	if o.MaxBody <= 0 {
		o.MaxBody = DefaultMaxBodyBytes
	}
	if o.MaxDelay < o.MinDelay {
		o.MaxDelay = o.MinDelay
	}
	return o
}

// Response is a fully read HTTP response.
type Response struct {
	URL        *url.URL
	StatusCode int
	Body       []byte
}

// Client wraps http.Client with a fixed timeout, static headers and
// per-host request spacing.
type Client struct {
	inner      *http.Client
	log        logger.Logger
	userAgent  string
	mu         sync.Mutex
	lastReq    map[string]time.Time
	minDelay   time.Duration
	maxDelay   time.Duration
	maxRetries int
	maxBody    int64
	backoff    time.Duration
}

// New creates a Client with the given options.
func New(opts Options, log logger.Logger) (*Client, error) {
	opts = opts.withDefaults()

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}

	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("httpclient: invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	if log == nil {
		log = logger.NewNop()
	}

	return &Client{
		inner:      &http.Client{Transport: transport, Timeout: opts.Timeout},
		log:        log,
		userAgent:  opts.UserAgent,
		lastReq:    make(map[string]time.Time),
		minDelay:   opts.MinDelay,
		maxDelay:   opts.MaxDelay,
		maxRetries: opts.MaxRetries,
		maxBody:    opts.MaxBody,
		backoff:    2 * time.Second,
	}, nil
}

// Fetch issues a GET for rawURL and returns the full body. Timeouts,
// connection failures, non-2xx statuses and bodies over the size cap come
// back as *TransportError.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: fmt.Errorf("building request: %w", err)}
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &TransportError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &TransportError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		c.log.Warn("response body over size cap",
			logger.String("url", rawURL),
			logger.Int64("max_bytes", c.maxBody))
		return nil, &TransportError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, c.maxBody)}
	}

	return &Response{URL: resp.Request.URL, StatusCode: resp.StatusCode, Body: body}, nil
}

// Do executes the request with the static headers and host spacing. When
// MaxRetries > 1, 429 and 503 responses are retried with exponential backoff.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.setHeaders(req)

	if err := c.rateLimit(req.Context(), req.URL.Host); err != nil {
		return nil, err
	}

	for attempt := range c.maxRetries {
		resp, err := c.inner.Do(req)
		if err != nil {
			return nil, fmt.Errorf("httpclient: request failed: %w", err)
		}

		last := attempt == c.maxRetries-1
		if last || (resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable) {
			return resp, nil
		}

		resp.Body.Close()
		wait := time.Duration(1<<uint(attempt)) * c.backoff
		c.log.Warn("throttled, backing off",
			logger.String("host", req.URL.Host),
			logger.Int("status", resp.StatusCode),
			logger.Duration("backoff", wait),
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", c.maxRetries))

		select {
		case <-time.After(wait):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	return nil, fmt.Errorf("httpclient: no attempts made")
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/rss+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	// Accept-Encoding is left to http.Transport so it can decompress transparently.
}

func (c *Client) rateLimit(ctx context.Context, host string) error {
	if c.minDelay <= 0 && c.maxDelay <= 0 {
		return nil
	}

	c.mu.Lock()
	last, ok := c.lastReq[host]
	c.lastReq[host] = time.Now()
	c.mu.Unlock()

	if !ok {
		return nil
	}

	delay := c.minDelay
	if spread := c.maxDelay - c.minDelay; spread > 0 {
		delay += time.Duration(rand.Int63n(int64(spread)))
	}

	if elapsed := time.Since(last); elapsed < delay {
		wait := delay - elapsed
		c.log.Debug("spacing requests",
			logger.String("host", host),
			logger.Duration("wait", wait.Round(time.Millisecond)))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	c.lastReq[host] = time.Now()
	c.mu.Unlock()

	return nil
}
