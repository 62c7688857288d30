// Package updater drives the two background loops of the monitor: the
// poller that keeps the sensor snapshot fresh and the registry loop
// that folds new captures into the pilot registry.
package updater

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"dronewatch/internal/drones"
	"dronewatch/internal/drones/metrics"
	dronemodels "dronewatch/internal/drones/models"
	"dronewatch/internal/pilot/registry"
	dErrors "dronewatch/pkg/domain-errors"
	pstrings "dronewatch/pkg/platform/strings"
)

// Defaults carried over from the sensor deployment.
const (
	DefaultInterval       = 2 * time.Second
	DefaultIdleWait       = 250 * time.Millisecond
	DefaultNoCaptureWait  = 100 * time.Millisecond
	DefaultBackoffUnit    = 100 * time.Millisecond
	DefaultRetryThreshold = 5
)

// Snapshots is the sensor snapshot state the poller refreshes and the
// registry loop reads.
type Snapshots interface {
	Update(ctx context.Context) bool
	Latest() (dronemodels.Capture, bool)
}

// Registry receives the violations of each new capture.
type Registry interface {
	Apply(ctx context.Context, captureTime time.Time, violations []registry.Violation, observed []string)
	EvictExpired()
}

// Updater schedules snapshot polling and registry cycles.
type Updater struct {
	source   Snapshots
	detector *drones.Detector
	registry Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics

	interval       time.Duration
	idleWait       time.Duration
	noCaptureWait  time.Duration
	backoffUnit    time.Duration
	retryThreshold int
}

// Option configures an Updater.
type Option func(*Updater)

// WithLogger sets the logger used for scheduling events.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Updater) {
		u.logger = logger
	}
}

// WithMetrics attaches drones module metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(u *Updater) {
		u.metrics = m
	}
}

// WithIdleWait overrides the registry loop idle sleep.
func WithIdleWait(d time.Duration) Option {
	return func(u *Updater) {
		u.idleWait = d
	}
}

// WithRetry overrides the poll retry backoff unit and threshold.
func WithRetry(unit time.Duration, threshold int) Option {
	return func(u *Updater) {
		u.backoffUnit = unit
		u.retryThreshold = threshold
	}
}

// New creates an updater polling the source every interval.
func New(source Snapshots, detector *drones.Detector, reg Registry, interval time.Duration, opts ...Option) (*Updater, error) {
	if source == nil || detector == nil || reg == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "updater requires a source, a detector and a registry")
	}
	if interval <= 0 {
		return nil, dErrors.Newf(dErrors.CodeValidation, "poll interval must be positive, got %v", interval)
	}
	u := &Updater{
		source:         source,
		detector:       detector,
		registry:       reg,
		logger:         slog.Default(),
		interval:       interval,
		idleWait:       DefaultIdleWait,
		noCaptureWait:  DefaultNoCaptureWait,
		backoffUnit:    DefaultBackoffUnit,
		retryThreshold: DefaultRetryThreshold,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Run starts both loops and blocks until the context is cancelled.
func (u *Updater) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return u.RunPoller(ctx)
	})
	g.Go(func() error {
		return u.RunRegistry(ctx)
	})
	return g.Wait()
}

// RunPoller refreshes the snapshot until the context is cancelled. A
// failed poll is retried with linear backoff up to the retry threshold;
// past the threshold the loop holds the full poll interval between
// attempts. After a successful poll the next one is scheduled at the
// capture time plus the interval, so a slow fetch does not drift the
// cadence; a capture that stops advancing degrades to the no-capture
// wait rather than an immediate re-poll.
func (u *Updater) RunPoller(ctx context.Context) error {
	retries := 0
	for ctx.Err() == nil {
		start := time.Now()
		ok := u.source.Update(ctx)
		if u.metrics != nil {
			outcome := "success"
			if !ok {
				outcome = "failure"
			}
			u.metrics.ObservePoll(outcome, time.Since(start).Seconds())
		}

		if ok {
			retries = 0
		} else if retries < u.retryThreshold {
			retries++
			u.logger.Debug("poll failed, backing off", "retry", retries)
			if !sleepCtx(ctx, time.Duration(retries)*u.backoffUnit) {
				break
			}
			continue
		}

		wait := u.noCaptureWait
		if !ok {
			wait = u.interval
		} else if capture, polled := u.source.Latest(); polled {
			wait = time.Until(capture.Time.Add(u.interval))
			if wait <= 0 {
				wait = u.noCaptureWait
			}
		}
		if !sleepCtx(ctx, wait) {
			break
		}
	}
	return ctx.Err()
}

// RunRegistry watches the snapshot for a new capture time and folds
// each new capture into the registry, evicting expired records while
// idle.
func (u *Updater) RunRegistry(ctx context.Context) error {
	var last time.Time
	for ctx.Err() == nil {
		capture, polled := u.source.Latest()
		if polled && capture.Time.After(last) {
			u.applyCapture(ctx, capture)
			last = capture.Time
		} else {
			u.registry.EvictExpired()
		}
		if !sleepCtx(ctx, u.idleWait) {
			break
		}
	}
	return ctx.Err()
}

func (u *Updater) applyCapture(ctx context.Context, capture dronemodels.Capture) {
	detection := u.detector.Detect(capture)

	violations := make([]registry.Violation, 0, len(detection.Violations))
	for _, o := range detection.Violations {
		violations = append(violations, registry.Violation{
			Serial:   o.Serial,
			Distance: u.detector.Distance(o),
		})
	}
	serials := make([]string, 0, len(capture.Drones))
	for _, o := range capture.Drones {
		serials = append(serials, o.Serial)
	}
	observed := pstrings.DedupeAndTrim(serials)

	u.registry.Apply(ctx, detection.CaptureTime, violations, observed)

	if u.metrics != nil {
		u.metrics.CaptureViolations.Set(float64(len(violations)))
	}
	if len(violations) > 0 {
		u.logger.Info("capture applied",
			"captureTime", detection.CaptureTime,
			"drones", len(capture.Drones),
			"violations", len(violations))
	}
}

// sleepCtx waits for d or until the context is cancelled, reporting
// whether the full wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
