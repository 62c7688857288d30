// Package models defines the pilot identity record and its two-phase
// lifecycle. A record is assembled through a Builder and sealed by
// Build; after sealing only the closest distance (minimum-merge) and
// the expiry (monotonic forward) can change.
package models

import (
	"fmt"
	"strings"
	"time"

	dErrors "dronewatch/pkg/domain-errors"
)

// DefaultRetention is how long a record stays visible after the drone
// was last seen by the sensor.
const DefaultRetention = 10 * time.Minute

// Builder accumulates pilot fields before sealing. Fields may be set
// freely and may remain empty until Build validates them.
type Builder struct {
	Serial    string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Distance  float64
	Expire    time.Time
}

// Build validates the mandatory fields and seals the record: the serial
// must be non-blank, the distance non-negative, the name resolvable, and
// the expiry strictly in the future relative to now.
func (b Builder) Build(now time.Time) (*Pilot, error) {
	serial := strings.TrimSpace(b.Serial)
	if serial == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "pilot requires a drone serial")
	}
	if b.Distance < 0 {
		return nil, dErrors.Newf(dErrors.CodeValidation, "pilot distance must be non-negative, got %v", b.Distance)
	}
	name := strings.TrimSpace(strings.TrimSpace(b.FirstName) + " " + strings.TrimSpace(b.LastName))
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "pilot requires a resolvable name")
	}
	if b.Expire.IsZero() || !b.Expire.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "pilot expiry must lie strictly in the future")
	}
	return &Pilot{
		serial:   serial,
		name:     name,
		email:    b.Email,
		phone:    b.Phone,
		distance: b.Distance,
		expire:   b.Expire,
	}, nil
}

// Stub seals a minimal record for a violation whose identity lookup
// failed, so the violation is never silently dropped. The serial stands
// in for the name; email and phone stay undefined.
func Stub(serial string, distance float64, expire, now time.Time) (*Pilot, error) {
	return Builder{
		Serial:    serial,
		FirstName: fmt.Sprintf("[Pilot of %s]", serial),
		Distance:  distance,
		Expire:    expire,
	}.Build(now)
}

// Pilot is a sealed identity record. It is exclusively owned by the
// registry keyed by its drone serial; all mutation goes through the
// merge methods below.
type Pilot struct {
	serial   string
	name     string
	email    string
	phone    string
	distance float64
	expire   time.Time
}

// Serial returns the drone serial the record is keyed by.
func (p *Pilot) Serial() string { return p.serial }

// Name returns the resolved pilot name.
func (p *Pilot) Name() string { return p.name }

// Email returns the pilot email, empty when undefined.
func (p *Pilot) Email() string { return p.email }

// Phone returns the pilot phone number, empty when undefined.
func (p *Pilot) Phone() string { return p.phone }

// ClosestDistance returns the smallest distance to the nest observed so
// far, in millimeters.
func (p *Pilot) ClosestDistance() float64 { return p.distance }

// ExpireTime returns when the record stops being visible.
func (p *Pilot) ExpireTime() time.Time { return p.expire }

// Expired reports whether the record is no longer valid at now. A record
// expiring exactly at now is expired.
func (p *Pilot) Expired(now time.Time) bool {
	return !p.expire.After(now)
}

// MergeDistance folds a new observation distance into the record,
// keeping the minimum. Negative distances are rejected.
func (p *Pilot) MergeDistance(distance float64) error {
	if distance < 0 {
		return dErrors.Newf(dErrors.CodeValidation, "distance must be non-negative, got %v", distance)
	}
	if distance < p.distance {
		p.distance = distance
	}
	return nil
}

// ExtendExpiry moves the expiry forward to the given time. Earlier times
// are ignored so the expiry never moves backward on a sealed record.
func (p *Pilot) ExtendExpiry(expire time.Time) {
	if expire.After(p.expire) {
		p.expire = expire
	}
}
