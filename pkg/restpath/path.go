package restpath

import (
	"net/url"
	"strings"

	dErrors "dronewatch/pkg/domain-errors"
)

// Resource is one segment of a Path: an optional base path fragment
// followed by zero or more parameters. Parameter names are unique within
// a resource.
type Resource struct {
	basePath string
	params   []PathParameter
}

// NewResource creates a resource from a path fragment and its parameter
// definitions. The fragment may be empty, relative, or absolute. A
// fragment ending in "/" keeps its last segment when parameters are
// resolved against it; otherwise the last segment is replaced, following
// URI reference resolution.
func NewResource(basePath string, params ...PathParameter) (*Resource, error) {
	if _, err := url.Parse(basePath); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid base path")
	}
	r := &Resource{basePath: basePath}
	seen := make(map[string]struct{}, len(params))
	for _, p := range params {
		if p == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "nil parameter")
		}
		if _, dup := seen[p.Name()]; dup {
			return nil, dErrors.Newf(dErrors.CodeValidation, "duplicate parameter name %q", p.Name())
		}
		seen[p.Name()] = struct{}{}
		r.params = append(r.params, p)
	}
	return r, nil
}

// ParameterCount returns the number of parameters the resource expects.
func (r *Resource) ParameterCount() int { return len(r.params) }

func (r *Resource) resolveValues(values []any) (string, error) {
	encoded := make([]string, 0, len(r.params))
	for i, p := range r.params {
		s, err := p.EncodeAny(values[i])
		if err != nil {
			return "", err
		}
		encoded = append(encoded, s)
	}
	return resolveRelative(r.basePath, strings.Join(encoded, "/")), nil
}

func (r *Resource) resolveNamed(values map[string]any) (string, error) {
	encoded := make([]string, 0, len(r.params))
	for _, p := range r.params {
		v, present := values[p.Name()]
		if !present {
			return "", dErrors.Newf(dErrors.CodeValidation, "missing parameter %q", p.Name())
		}
		s, err := p.EncodeAny(v)
		if err != nil {
			return "", err
		}
		encoded = append(encoded, s)
	}
	return resolveRelative(r.basePath, strings.Join(encoded, "/")), nil
}

// resolveRelative merges a path reference against a base path the way
// URI reference resolution does: an absolute reference wins outright, a
// relative one replaces everything after the base's final slash.
func resolveRelative(base, ref string) string {
	switch {
	case ref == "":
		return base
	case strings.HasPrefix(ref, "/"):
		return ref
	case base == "":
		return ref
	}
	if i := strings.LastIndex(base, "/"); i >= 0 {
		return base[:i+1] + ref
	}
	return ref
}

// Path is an ordered sequence of resources. Paths are built once at
// configuration time and are read-only afterwards; every resolution
// produces a fresh address.
type Path struct {
	resources []*Resource
}

// NewPath creates a path from its resources in order.
func NewPath(resources ...*Resource) *Path {
	return &Path{resources: resources}
}

// ParameterCount returns the total parameter count across all resources.
func (p *Path) ParameterCount() int {
	n := 0
	for _, r := range p.resources {
		n += r.ParameterCount()
	}
	return n
}

// ParameterNames returns all parameter names in resource order.
func (p *Path) ParameterNames() []string {
	names := make([]string, 0, p.ParameterCount())
	for _, r := range p.resources {
		for _, param := range r.params {
			names = append(names, param.Name())
		}
	}
	return names
}

// ResolveValues resolves the path with positional values. The number of
// values must match the total parameter count exactly.
func (p *Path) ResolveValues(values ...any) (*url.URL, error) {
	if len(values) > p.ParameterCount() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "too many parameters: got %d, want %d", len(values), p.ParameterCount())
	}
	if len(values) < p.ParameterCount() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "not enough parameters: got %d, want %d", len(values), p.ParameterCount())
	}
	acc := ""
	next := 0
	for _, r := range p.resources {
		seg, err := r.resolveValues(values[next : next+r.ParameterCount()])
		if err != nil {
			return nil, err
		}
		next += r.ParameterCount()
		acc = resolveRelative(acc, seg)
	}
	return parseResolved(acc)
}

// ResolveNamed resolves the path with named values. Every parameter name
// must be present in the map.
func (p *Path) ResolveNamed(values map[string]any) (*url.URL, error) {
	acc := ""
	for _, r := range p.resources {
		seg, err := r.resolveNamed(values)
		if err != nil {
			return nil, err
		}
		acc = resolveRelative(acc, seg)
	}
	return parseResolved(acc)
}

func parseResolved(path string) (*url.URL, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "resolved parameters form an invalid address")
	}
	return u, nil
}
