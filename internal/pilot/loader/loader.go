// Package loader resolves pilot identities for violating drones against
// the external pilot registry feed.
package loader

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"time"

	"dronewatch/internal/feed"
	"dronewatch/internal/pilot/models"
	dErrors "dronewatch/pkg/domain-errors"
	"dronewatch/pkg/restpath"
)

// serialPattern constrains drone serials to word characters and dashes,
// matching what the sensor feed emits.
var serialPattern = regexp.MustCompile(`^[-\w]+$`)

// Loader fetches identity records by drone serial. It enforces the
// privacy policy before any request leaves the process: identities may
// only be resolved for violations inside the retention window.
type Loader struct {
	source    *feed.RestSource[*models.Document]
	feedOpts  []feed.Option[*models.Document]
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// WithFeedOptions passes options through to the underlying rest source.
func WithFeedOptions(opts ...feed.Option[*models.Document]) Option {
	return func(l *Loader) { l.feedOpts = opts }
}

// New creates a loader against the pilot registry base address. The
// serial is the sole path parameter appended to the base.
func New(baseURL string, retention time.Duration, opts ...Option) (*Loader, error) {
	if retention <= 0 {
		return nil, dErrors.Newf(dErrors.CodeValidation, "retention must be positive, got %v", retention)
	}
	l := &Loader{retention: retention, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}

	serial, err := restpath.String("serialNumber", serialPattern)
	if err != nil {
		return nil, err
	}
	resource, err := restpath.NewResource("", serial)
	if err != nil {
		return nil, err
	}
	parse := func(r io.Reader) (*models.Document, error) {
		return models.ParseDocument(r, l.logger)
	}
	feedOpts := append([]feed.Option[*models.Document]{feed.WithLogger[*models.Document](l.logger)}, l.feedOpts...)
	source, err := feed.NewRestSource(baseURL, restpath.NewPath(resource), parse, feedOpts...)
	if err != nil {
		return nil, err
	}
	l.source = source
	return l, nil
}

// Load resolves the pilot behind a violating drone and seals a record
// with the looked-up identity, the violation distance, and an expiry of
// violationTime plus the retention window.
//
// Failure classes: CodePrivacyRejected for violation times outside the
// retention window (never retried), CodeNotFound for unknown serials,
// CodeTransport for transient network failures, CodeMalformedResponse
// for bodies that cannot represent an identity.
func (l *Loader) Load(ctx context.Context, serial string, violationTime time.Time, distance float64) (*models.Pilot, error) {
	now := l.now()
	if err := l.checkViolationTime(violationTime, now); err != nil {
		return nil, err
	}

	doc, err := l.source.Get(ctx, serial)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeParse) {
			return nil, dErrors.Wrap(err, dErrors.CodeMalformedResponse, "pilot response cannot be decoded")
		}
		return nil, err
	}

	pilot, err := models.Builder{
		Serial:    serial,
		FirstName: doc.FirstName,
		LastName:  doc.LastName,
		Email:     doc.Email,
		Phone:     doc.Phone,
		Distance:  distance,
		Expire:    violationTime.Add(l.retention),
	}.Build(now)
	if err != nil {
		// A fetched document that cannot seal a record, e.g. a 200
		// body with no name fields, counts as a malformed response.
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedResponse, "pilot document cannot seal an identity record")
	}
	return pilot, nil
}

// Retention returns the loader's retention window.
func (l *Loader) Retention() time.Duration { return l.retention }

// checkViolationTime rejects stale and future violation timestamps so
// identity data is never requested outside the retention window.
func (l *Loader) checkViolationTime(violationTime, now time.Time) error {
	if violationTime.After(now) {
		return dErrors.New(dErrors.CodePrivacyRejected, "violation time lies in the future")
	}
	if now.After(violationTime.Add(l.retention)) {
		return dErrors.New(dErrors.CodePrivacyRejected, "violation time outside the retention window")
	}
	return nil
}
