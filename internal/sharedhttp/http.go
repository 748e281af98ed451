package sharedhttp

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"mangascout/internal/domain"

	"github.com/avast/retry-go"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultRetries = 3

	maxPageSize  = 10 << 20
	maxImageSize = 50 << 20
)

var Transport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ReadBufferSize:        65536,
	WriteBufferSize:       65536,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// DefaultHeaders are sent with every page request unless a source overrides them.
var DefaultHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "ru-RU,ru;q=0.8,en-US;q=0.5,en;q=0.3",
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	FinalURL   string
}

// Fetcher is the transport every adapter and the downloader use.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, headers map[string]string, params url.Values) (*Response, error)
	FetchBytes(ctx context.Context, rawURL string, headers map[string]string) (*Response, error)
	PostForm(ctx context.Context, rawURL string, headers map[string]string, form url.Values) (*Response, error)
	Close() error
}

// New builds the fetcher a source is configured for.
func New(cfg domain.AdapterConfig, opts ...Option) Fetcher {
	if cfg.Transport == "colly" {
		return NewCollyFetcher(cfg, opts...)
	}
	return NewClient(cfg, opts...)
}

// CheckStatusCode returns nil for 2xx. Client errors are wrapped as unrecoverable so
// retry.Do gives up immediately, server errors are left retryable.
func CheckStatusCode(op, rawURL string, statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil

	case statusCode >= 500:
		return domain.StatusError(op, rawURL, statusCode)

	default:
		return retry.Unrecoverable(domain.StatusError(op, rawURL, statusCode))
	}
}

// transportError classifies a failed round trip.
func transportError(op, rawURL string, err error) error {
	if errors.Is(err, context.Canceled) {
		return retry.Unrecoverable(err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.NewError(domain.KindTimeout, op, rawURL, err)
	}

	return domain.NewError(domain.KindUnreachable, op, rawURL, err)
}

// finalError makes sure a cancelled context surfaces as context.Canceled and an
// expired one as a timeout, whatever the last attempt reported.
func finalError(ctx context.Context, op, rawURL string, err error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil || domain.KindOf(err) != domain.KindUnknown {
		return err
	}
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return domain.NewError(domain.KindTimeout, op, rawURL, ctxErr)
	}
	return ctxErr
}

func withParams(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, vs := range params {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func mergeHeaders(layers ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, l := range layers {
		for k, v := range l {
			out[http.CanonicalHeaderKey(k)] = v
		}
	}
	return out
}
