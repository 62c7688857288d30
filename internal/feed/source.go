// Package feed provides polling HTTP data sources with pluggable parsing,
// failure observers, and chained status handling. A source never lets a
// fetch failure escape to the caller: observers are notified and the call
// site simply sees "no data".
package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	dErrors "dronewatch/pkg/domain-errors"
)

// DefaultTimeout bounds a single fetch, matching the upstream feeds'
// nominal two-second cadence.
const DefaultTimeout = 2 * time.Second

// ParseFunc turns a response body into a typed value.
type ParseFunc[T any] func(r io.Reader) (T, error)

// FailureObserver receives every fetch failure. The return value reports
// whether the observer handled the failure; it only matters to sources
// configured with StopOnFirstHandled.
type FailureObserver func(err error) bool

// StatusHandler inspects a non-2xx style outcome. It returns the parsed
// value and true when it produced one, or an error to escalate the
// outcome as a source failure.
type StatusHandler[T any] func(status int, header http.Header, body io.Reader) (T, bool, error)

// Source fetches a URL and parses the body into T. Exactly one fetch
// runs at a time per source; concurrent callers serialize on the fetch
// mutex and observe complete outcomes only.
type Source[T any] struct {
	mu            sync.Mutex
	url           *url.URL
	parse         ParseFunc[T]
	client        *http.Client
	handlers      []StatusHandler[T]
	observers     []FailureObserver
	stopOnHandled bool
	logger        *slog.Logger
}

// Option configures a Source.
type Option[T any] func(*Source[T])

// WithClient replaces the default HTTP client.
func WithClient[T any](client *http.Client) Option[T] {
	return func(s *Source[T]) { s.client = client }
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(s *Source[T]) { s.logger = logger }
}

// WithStatusHandler appends a handler to the status chain. Handlers run
// in registration order; the first to produce a value wins.
func WithStatusHandler[T any](h StatusHandler[T]) Option[T] {
	return func(s *Source[T]) { s.handlers = append(s.handlers, h) }
}

// StopOnFirstHandled stops failure delivery at the first observer that
// reports the failure handled.
func StopOnFirstHandled[T any]() Option[T] {
	return func(s *Source[T]) { s.stopOnHandled = true }
}

// NewSource creates a source for the given address. Only http and https
// schemes are accepted.
func NewSource[T any](rawURL string, parse ParseFunc[T], opts ...Option[T]) (*Source[T], error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid source address")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unsupported scheme %q", u.Scheme)
	}
	if parse == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "parse function is required")
	}
	s := &Source[T]{
		url:    u,
		parse:  parse,
		client: &http.Client{Timeout: DefaultTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// URL returns the source address.
func (s *Source[T]) URL() *url.URL { return s.url }

// OnFailure registers a failure observer. Observers are invoked in
// registration order for every failure.
func (s *Source[T]) OnFailure(obs FailureObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// Fetch performs one fetch-and-parse cycle. Failures are delivered to
// observers and reported as ok=false; they are never returned.
func (s *Source[T]) Fetch(ctx context.Context) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok, err := s.do(ctx, s.url)
	if err != nil {
		s.fire(err)
		var zero T
		return zero, false
	}
	return v, ok
}

// do executes a GET against u and dispatches on the outcome. Callers
// hold the fetch mutex.
func (s *Source[T]) do(ctx context.Context, u *url.URL) (T, bool, error) {
	var zero T

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return zero, false, dErrors.Wrap(err, dErrors.CodeValidation, "building request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return zero, false, dErrors.Wrap(err, dErrors.CodeTransport, "fetching "+u.Redacted())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		v, err := s.parse(resp.Body)
		if err != nil {
			return zero, false, dErrors.Wrap(err, dErrors.CodeParse, "parsing response body")
		}
		return v, true, nil
	case resp.StatusCode == http.StatusNoContent:
		return zero, false, nil
	default:
		return s.handleStatus(resp)
	}
}

// handleStatus runs the status chain and falls back to the default
// classification for error-class outcomes nobody handled.
func (s *Source[T]) handleStatus(resp *http.Response) (T, bool, error) {
	var zero T
	for _, h := range s.handlers {
		v, handled, err := h(resp.StatusCode, resp.Header, resp.Body)
		if err != nil {
			return zero, false, err
		}
		if handled {
			return v, true, nil
		}
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return zero, false, dErrors.Newf(dErrors.CodeNotFound, "resource %s not found", resp.Request.URL.Redacted())
	case resp.StatusCode >= 400:
		return zero, false, dErrors.Newf(dErrors.CodeTransport, "server responded with status %d", resp.StatusCode)
	default:
		// Informational and redirect-class outcomes carry no data.
		return zero, false, nil
	}
}

// fire delivers a failure to every observer, or up to the first handler
// in stop-on-first-handled mode. Callers hold the fetch mutex.
func (s *Source[T]) fire(err error) {
	s.logger.Warn("source fetch failed", "url", s.url.Redacted(), "error", err)
	for _, obs := range s.observers {
		if obs(err) && s.stopOnHandled {
			return
		}
	}
}
