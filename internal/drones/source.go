// Package drones polls the sensor snapshot feed and detects exclusion
// zone violations.
package drones

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dronewatch/internal/drones/models"
	"dronewatch/internal/feed"
)

// DefaultPollInterval is the nominal sensor update cadence. Consumers
// must not assume exact periodicity.
const DefaultPollInterval = 2 * time.Second

// Source polls the snapshot feed and keeps the freshest capture. The
// stored capture and its time are replaced together under one mutex so
// readers never observe a partial update.
type Source struct {
	feed     *feed.Source[*models.Report]
	feedOpts []feed.Option[*models.Report]
	logger   *slog.Logger

	mu     sync.Mutex
	latest models.Capture
	polled bool
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithLogger sets the source logger.
func WithLogger(logger *slog.Logger) SourceOption {
	return func(s *Source) { s.logger = logger }
}

// WithFeedOptions passes options through to the underlying feed source.
func WithFeedOptions(opts ...feed.Option[*models.Report]) SourceOption {
	return func(s *Source) { s.feedOpts = opts }
}

// NewSource creates a snapshot source for the given feed address.
func NewSource(rawURL string, opts ...SourceOption) (*Source, error) {
	s := &Source{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	feedOpts := append([]feed.Option[*models.Report]{feed.WithLogger[*models.Report](s.logger)}, s.feedOpts...)
	f, err := feed.NewSource(rawURL, models.ParseReport, feedOpts...)
	if err != nil {
		return nil, err
	}
	s.feed = f
	return s, nil
}

// OnFailure registers a failure observer on the snapshot feed.
func (s *Source) OnFailure(obs feed.FailureObserver) { s.feed.OnFailure(obs) }

// Update fetches the feed once and, on success, replaces the stored
// capture with the report's freshest one. A report without captures is
// logged and leaves the previous capture in place.
func (s *Source) Update(ctx context.Context) bool {
	report, ok := s.feed.Fetch(ctx)
	if !ok {
		return false
	}
	capture, ok := report.Freshest()
	if !ok {
		s.logger.Error("snapshot report carried no capture")
		return false
	}

	s.mu.Lock()
	s.latest = capture
	s.polled = true
	s.mu.Unlock()
	return true
}

// Latest returns the freshest stored capture. ok is false until the
// first successful update. The returned capture is a consistent pair of
// time and observations; its observation slice is never mutated after
// storage.
func (s *Source) Latest() (models.Capture, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.polled
}
