// Package registry maintains the in-memory set of pilot identity
// records for drones that violated the exclusion zone. Records are
// keyed by drone serial, merged by minimum distance, and evicted once
// their retention window lapses.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"dronewatch/internal/pilot/metrics"
	"dronewatch/internal/pilot/models"
	dErrors "dronewatch/pkg/domain-errors"
)

// Lookup resolves the pilot identity behind a drone serial. The
// violation time and distance seed the sealed record.
type Lookup interface {
	Load(ctx context.Context, serial string, violationTime time.Time, distance float64) (*models.Pilot, error)
	Retention() time.Duration
}

// Violation is one zone breach to fold into the registry: the drone
// serial and its distance to the nest in millimeters.
type Violation struct {
	Serial   string
	Distance float64
}

// Registry is the in-memory identity store. A single writer applies
// captures; any number of readers may snapshot concurrently.
type Registry struct {
	lookup  Lookup
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.RWMutex
	records map[string]*models.Pilot
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for lookup and eviction events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithMetrics attaches pilot module metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// New creates an empty registry backed by the given identity lookup.
func New(lookup Lookup, opts ...Option) (*Registry, error) {
	if lookup == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "registry requires an identity lookup")
	}
	r := &Registry{
		lookup:  lookup,
		logger:  slog.Default(),
		now:     time.Now,
		records: make(map[string]*models.Pilot),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Apply folds one capture into the registry. Violators get a record,
// resolved through the lookup when unseen; records of drones observed
// again, violating or not, have their retention window extended from
// the capture time. Expired records are evicted first so a drone that
// returns after its window lapsed triggers a fresh lookup.
func (r *Registry) Apply(ctx context.Context, captureTime time.Time, violations []Violation, observed []string) {
	r.EvictExpired()

	retention := r.lookup.Retention()
	expire := captureTime.Add(retention)
	now := r.now()

	unseen := r.mergeKnown(violations)

	for _, v := range unseen {
		pilot, ok := r.resolve(ctx, v, captureTime, now, expire)
		if !ok {
			continue
		}
		r.mu.Lock()
		// The lookup ran unlocked; a concurrent Apply may have sealed
		// this serial in the meantime, in which case merge instead.
		if existing, found := r.records[v.Serial]; found {
			if err := existing.MergeDistance(v.Distance); err != nil {
				r.logger.Warn("dropping distance merge", "serial", v.Serial, "error", err)
			}
		} else {
			r.records[v.Serial] = pilot
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	for _, serial := range observed {
		if record, found := r.records[serial]; found {
			record.ExtendExpiry(expire)
		}
	}
	size := len(r.records)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RegistrySize.Set(float64(size))
	}
}

// mergeKnown folds distances of already-registered violators and
// returns those that still need an identity lookup.
func (r *Registry) mergeKnown(violations []Violation) []Violation {
	r.mu.Lock()
	defer r.mu.Unlock()

	var unseen []Violation
	for _, v := range violations {
		record, found := r.records[v.Serial]
		if !found {
			unseen = append(unseen, v)
			continue
		}
		if err := record.MergeDistance(v.Distance); err != nil {
			r.logger.Warn("dropping distance merge", "serial", v.Serial, "error", err)
		}
	}
	return unseen
}

// resolve looks up the pilot behind an unseen violator. Lookups run
// outside the registry lock. Missing or malformed identities yield a
// stub record so the violation is still reported; transport failures
// yield nothing, leaving the serial unseen so the next capture retries;
// privacy rejections yield nothing and are final for this violation.
func (r *Registry) resolve(ctx context.Context, v Violation, captureTime, now, expire time.Time) (*models.Pilot, bool) {
	pilot, err := r.lookup.Load(ctx, v.Serial, captureTime, v.Distance)
	if err == nil {
		r.observeLookup("resolved")
		return pilot, true
	}

	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotFound, dErrors.CodeMalformedResponse:
		r.observeLookup(string(dErrors.CodeOf(err)))
		r.logger.Warn("identity unavailable, registering stub", "serial", v.Serial, "error", err)
		stub, stubErr := models.Stub(v.Serial, v.Distance, expire, now)
		if stubErr != nil {
			r.logger.Error("stub record rejected", "serial", v.Serial, "error", stubErr)
			return nil, false
		}
		if r.metrics != nil {
			r.metrics.StubRecords.Inc()
		}
		return stub, true
	case dErrors.CodeTransport:
		r.observeLookup(string(dErrors.CodeTransport))
		r.logger.Warn("identity lookup failed, retrying next capture", "serial", v.Serial, "error", err)
	case dErrors.CodePrivacyRejected:
		r.observeLookup(string(dErrors.CodePrivacyRejected))
		r.logger.Info("identity lookup outside retention window", "serial", v.Serial)
	default:
		r.observeLookup("failed")
		r.logger.Error("identity lookup failed", "serial", v.Serial, "error", err)
	}
	return nil, false
}

// EvictExpired removes records whose retention window has lapsed.
func (r *Registry) EvictExpired() {
	now := r.now()

	r.mu.Lock()
	for serial, record := range r.records {
		if record.Expired(now) {
			delete(r.records, serial)
			r.logger.Debug("evicted expired record", "serial", serial)
		}
	}
	size := len(r.records)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RegistrySize.Set(float64(size))
	}
}

// Snapshot returns copies of all live records, ordered by serial.
func (r *Registry) Snapshot() []models.Pilot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Pilot, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, *record)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Serial() < out[j].Serial()
	})
	return out
}

// Size returns the number of live records.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *Registry) observeLookup(outcome string) {
	if r.metrics != nil {
		r.metrics.ObserveLookup(outcome)
	}
}
