// Package restpath builds parameterized resource paths for REST lookups.
// A Parameter knows how to turn one typed value into a validated,
// percent-encoded path segment and back. A Path strings resources with
// parameters together and resolves them into a relative URL.
package restpath

import (
	"net/url"
	"regexp"
	"strconv"
	"unicode"

	dErrors "dronewatch/pkg/domain-errors"
)

// Parameter converts values of type V to and from path segments.
// Construction validates the name and codec functions up front so a
// misconfigured parameter fails at wiring time, not at request time.
type Parameter[V any] struct {
	name            string
	stringValidator func(string) bool
	valueValidator  func(V) bool
	encode          func(V) string
	decode          func(string) (V, error)
}

// Option configures an optional validator on a Parameter.
type Option[V any] func(*Parameter[V])

// WithPattern validates the string form against a regular expression.
func WithPattern[V any](pattern *regexp.Regexp) Option[V] {
	return func(p *Parameter[V]) {
		p.stringValidator = func(s string) bool {
			return pattern.MatchString(s)
		}
	}
}

// WithStringValidator validates the raw (percent-decoded) string form.
func WithStringValidator[V any](valid func(string) bool) Option[V] {
	return func(p *Parameter[V]) { p.stringValidator = valid }
}

// WithValueValidator validates the typed value before encoding. When not
// supplied, the value validator encodes the value and runs the string
// validator on the result.
func WithValueValidator[V any](valid func(V) bool) Option[V] {
	return func(p *Parameter[V]) { p.valueValidator = valid }
}

// NewParameter creates a parameter with the given name and codec pair.
// The name must be identifier-like: a letter or underscore followed by
// letters, digits, or underscores.
func NewParameter[V any](name string, encode func(V) string, decode func(string) (V, error), opts ...Option[V]) (*Parameter[V], error) {
	if !validName(name) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid parameter name %q", name)
	}
	if encode == nil || decode == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "parameter requires both encode and decode functions")
	}
	p := &Parameter[V]{name: name, encode: encode, decode: decode}
	for _, opt := range opts {
		opt(p)
	}
	if p.stringValidator == nil {
		p.stringValidator = func(string) bool { return true }
	}
	if p.valueValidator == nil {
		p.valueValidator = func(v V) bool { return p.stringValidator(p.encode(v)) }
	}
	return p, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// Name returns the immutable parameter name.
func (p *Parameter[V]) Name() string { return p.name }

// Encode validates the typed value and returns its percent-encoded
// path-segment form.
func (p *Parameter[V]) Encode(value V) (string, error) {
	if !p.valueValidator(value) {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid value for parameter %q", p.name)
	}
	return url.PathEscape(p.encode(value)), nil
}

// Decode percent-decodes the segment, validates the string form, and
// converts it back into a typed value.
func (p *Parameter[V]) Decode(raw string) (V, error) {
	var zero V
	s, err := url.PathUnescape(raw)
	if err != nil {
		return zero, dErrors.Wrap(err, dErrors.CodeValidation, "malformed percent-encoding")
	}
	if !p.stringValidator(s) {
		return zero, dErrors.Newf(dErrors.CodeValidation, "invalid string form for parameter %q", p.name)
	}
	return p.decode(s)
}

// EncodeAny implements PathParameter. Values of the wrong dynamic type
// are rejected as validation errors.
func (p *Parameter[V]) EncodeAny(value any) (string, error) {
	typed, ok := value.(V)
	if !ok {
		return "", dErrors.Newf(dErrors.CodeValidation, "wrong value type %T for parameter %q", value, p.name)
	}
	return p.Encode(typed)
}

// PathParameter is the erased view of a Parameter that a Path holds.
type PathParameter interface {
	Name() string
	EncodeAny(value any) (string, error)
}

// String creates a string-valued parameter with identity encoding,
// optionally constrained by a pattern.
func String(name string, pattern *regexp.Regexp) (*Parameter[string], error) {
	identity := func(s string) string { return s }
	fromString := func(s string) (string, error) { return s, nil }
	if pattern == nil {
		return NewParameter(name, identity, fromString)
	}
	return NewParameter(name, identity, fromString, WithPattern[string](pattern))
}

// Int creates an int-valued parameter using decimal encoding.
func Int(name string) (*Parameter[int], error) {
	return NewParameter(name, strconv.Itoa, func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeValidation, "not a decimal integer")
		}
		return n, nil
	}, WithPattern[int](intPattern))
}

var intPattern = regexp.MustCompile(`^-?[0-9]+$`)
