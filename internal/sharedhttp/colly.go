package sharedhttp

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"mangascout/internal/domain"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/avast/retry-go"
	"github.com/gocolly/colly"
	"github.com/gocolly/colly/extensions"
)

// CollyFetcher runs requests through a colly collector. Sources that need a
// rotating browser user agent are configured with transport "colly".
type CollyFetcher struct {
	name     string
	rt       http.RoundTripper
	timeout  time.Duration
	headers  map[string]string
	randomUA bool
	retries  uint
	opts     options
	closed   atomic.Bool
}

func NewCollyFetcher(cfg domain.AdapterConfig, opts ...Option) *CollyFetcher {
	_, hasUA := cfg.Headers["User-Agent"]

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var rt http.RoundTripper = Transport
	if cfg.CloudflareBypass {
		rt = cloudflarebp.AddCloudFlareByPass(Transport.Clone())
	}

	retries := cfg.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}

	return &CollyFetcher{
		name:     cfg.Name,
		rt:       rt,
		timeout:  timeout,
		headers:  mergeHeaders(DefaultHeaders, cfg.Headers),
		randomUA: !hasUA,
		retries:  uint(retries),
		opts:     buildOptions(opts),
	}
}

// boundTransport runs every round trip under ctx. colly v1 requests carry no
// context of their own.
type boundTransport struct {
	ctx context.Context
	rt  http.RoundTripper
}

func (b boundTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return b.rt.RoundTrip(req.WithContext(b.ctx))
}

// collector returns a collector bound to ctx for a single attempt. Clones share
// their backend, so each attempt gets a new one.
func (f *CollyFetcher) collector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.MaxBodySize(maxImageSize),
	)
	c.SetRequestTimeout(f.timeout)
	c.WithTransport(boundTransport{ctx: ctx, rt: f.rt})
	c.ParseHTTPErrorResponse = true
	if f.randomUA {
		extensions.RandomUserAgent(c)
	}
	return c
}

func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string, params url.Values) (*Response, error) {
	target, err := withParams(rawURL, params)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidConfig, "fetch", rawURL, err)
	}

	return f.do(ctx, "fetch", http.MethodGet, target, headers, nil)
}

func (f *CollyFetcher) FetchBytes(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	return f.do(ctx, "fetch bytes", http.MethodGet, rawURL, mergeHeaders(map[string]string{"Accept": "image/avif,image/webp,image/*,*/*;q=0.8"}, headers), nil)
}

func (f *CollyFetcher) PostForm(ctx context.Context, rawURL string, headers map[string]string, form url.Values) (*Response, error) {
	h := mergeHeaders(map[string]string{"Content-Type": "application/x-www-form-urlencoded; charset=UTF-8"}, headers)
	return f.do(ctx, "post", http.MethodPost, rawURL, h, form)
}

func (f *CollyFetcher) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *CollyFetcher) do(ctx context.Context, op, method, rawURL string, headers map[string]string, form url.Values) (*Response, error) {
	if f.closed.Load() {
		return nil, domain.NewError(domain.KindUnreachable, op, rawURL, errClosed)
	}

	var out *Response

	err := retry.Do(func() error {
		if err := ctx.Err(); err != nil {
			return transportError(op, rawURL, err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()
		c := f.collector(attemptCtx)

		var resp *colly.Response
		c.OnResponse(func(r *colly.Response) {
			resp = r
		})

		hdr := http.Header{}
		for k, v := range mergeHeaders(f.headers, headers) {
			hdr.Set(k, v)
		}

		var body *strings.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}

		start := time.Now()
		var reqErr error
		if body != nil {
			reqErr = c.Request(method, rawURL, body, nil, hdr)
		} else {
			reqErr = c.Request(method, rawURL, nil, nil, hdr)
		}
		if reqErr != nil {
			return transportError(op, rawURL, reqErr)
		}
		if err := ctx.Err(); err != nil {
			return transportError(op, rawURL, err)
		}
		if resp == nil {
			return domain.NewError(domain.KindUnreachable, op, rawURL, nil)
		}

		f.opts.log.Trace().Str("source", f.name).Str("method", method).Str("url", rawURL).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("request done")

		if err := CheckStatusCode(op, rawURL, resp.StatusCode); err != nil {
			return err
		}

		out = &Response{
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
			FinalURL:   resp.Request.URL.String(),
		}
		if resp.Headers != nil {
			out.Header = *resp.Headers
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(f.retries),
		retry.Delay(f.opts.retryDelay),
		retry.MaxJitter(f.opts.maxJitter),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, finalError(ctx, op, rawURL, err)
	}

	return out, nil
}
