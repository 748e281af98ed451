package sharedhttp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"mangascout/internal/buildinfo"
	"mangascout/internal/domain"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
)

var errClosed = errors.New("fetcher is closed")

type options struct {
	log        zerolog.Logger
	retryDelay time.Duration
	maxJitter  time.Duration
}

type Option func(*options)

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithRetryDelay sets the base delay between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) {
		o.retryDelay = d
		o.maxJitter = d / 3
		if o.maxJitter <= 0 {
			o.maxJitter = time.Millisecond
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		log:        zerolog.Nop(),
		retryDelay: 3 * time.Second,
		maxJitter:  time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Client is a net/http based Fetcher with per-source headers and retries.
type Client struct {
	name    string
	client  *http.Client
	headers map[string]string
	retries uint
	opts    options
	closed  atomic.Bool
}

func NewClient(cfg domain.AdapterConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	retries := cfg.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}

	var rt http.RoundTripper = Transport
	if cfg.CloudflareBypass {
		rt = cloudflarebp.AddCloudFlareByPass(Transport.Clone())
	}

	return &Client{
		name: cfg.Name,
		client: &http.Client{
			Timeout:   timeout,
			Transport: rt,
		},
		headers: mergeHeaders(map[string]string{"User-Agent": buildinfo.UserAgent()}, DefaultHeaders, cfg.Headers),
		retries: uint(retries),
		opts:    buildOptions(opts),
	}
}

func (c *Client) Fetch(ctx context.Context, rawURL string, headers map[string]string, params url.Values) (*Response, error) {
	target, err := withParams(rawURL, params)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidConfig, "fetch", rawURL, err)
	}

	return c.do(ctx, "fetch", http.MethodGet, target, headers, nil, maxPageSize)
}

func (c *Client) FetchBytes(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	return c.do(ctx, "fetch bytes", http.MethodGet, rawURL, mergeHeaders(map[string]string{"Accept": "image/avif,image/webp,image/*,*/*;q=0.8"}, headers), nil, maxImageSize)
}

func (c *Client) PostForm(ctx context.Context, rawURL string, headers map[string]string, form url.Values) (*Response, error) {
	h := mergeHeaders(map[string]string{"Content-Type": "application/x-www-form-urlencoded; charset=UTF-8"}, headers)
	return c.do(ctx, "post", http.MethodPost, rawURL, h, form, maxPageSize)
}

// Close drops idle connections. It is safe to call more than once.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, op, method, rawURL string, headers map[string]string, form url.Values, limit int64) (*Response, error) {
	if c.closed.Load() {
		return nil, domain.NewError(domain.KindUnreachable, op, rawURL, errClosed)
	}

	var out *Response

	err := retry.Do(func() error {
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
		if err != nil {
			return retry.Unrecoverable(domain.NewError(domain.KindInvalidConfig, op, rawURL, err))
		}

		for k, v := range mergeHeaders(c.headers, headers) {
			req.Header.Set(k, v)
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			return transportError(op, rawURL, err)
		}
		defer resp.Body.Close()

		c.opts.log.Trace().Str("source", c.name).Str("method", method).Str("url", rawURL).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("request done")

		if err := CheckStatusCode(op, rawURL, resp.StatusCode); err != nil {
			return err
		}

		data, err := io.ReadAll(io.LimitReader(bufio.NewReader(resp.Body), limit))
		if err != nil {
			return transportError(op, rawURL, err)
		}

		out = &Response{
			StatusCode: resp.StatusCode,
			Body:       data,
			Header:     resp.Header,
			FinalURL:   resp.Request.URL.String(),
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(c.retries),
		retry.Delay(c.opts.retryDelay),
		retry.MaxJitter(c.opts.maxJitter),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.opts.log.Debug().Err(err).Str("source", c.name).Str("url", rawURL).Uint("attempt", n+1).Msg("retrying request")
		}),
	)
	if err != nil {
		return nil, finalError(ctx, op, rawURL, err)
	}

	return out, nil
}
