package domain

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUnreachable
	KindTimeout
	KindHTTPStatus
	KindRateLimited
	KindMalformed
	KindNotFound
	KindNoImagesFound
	KindInvalidConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http status"
	case KindRateLimited:
		return "rate limited"
	case KindMalformed:
		return "malformed"
	case KindNotFound:
		return "not found"
	case KindNoImagesFound:
		return "no images found"
	case KindInvalidConfig:
		return "invalid config"
	default:
		return "unknown"
	}
}

// Error is the typed failure every adapter, transport and downloader reports.
type Error struct {
	Kind   ErrorKind
	Op     string
	URL    string
	Status int
	Err    error
}

var (
	ErrUnreachable   = &Error{Kind: KindUnreachable}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrHTTPStatus    = &Error{Kind: KindHTTPStatus}
	ErrRateLimited   = &Error{Kind: KindRateLimited}
	ErrMalformed     = &Error{Kind: KindMalformed}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrNoImagesFound = &Error{Kind: KindNoImagesFound}
	ErrInvalidConfig = &Error{Kind: KindInvalidConfig}
)

func NewError(kind ErrorKind, op, url string, err error) *Error {
	return &Error{Kind: kind, Op: op, URL: url, Err: err}
}

// StatusError maps a non-2xx response onto an error kind.
func StatusError(op, url string, status int) *Error {
	kind := KindHTTPStatus
	switch status {
	case http.StatusNotFound, http.StatusGone:
		kind = KindNotFound
	case http.StatusForbidden, http.StatusTooManyRequests:
		kind = KindRateLimited
	}

	return &Error{Kind: kind, Op: op, URL: url, Status: status}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (%d)", msg, e.Status)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.URL != "" {
		msg += " for " + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can use errors.Is(err, domain.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
