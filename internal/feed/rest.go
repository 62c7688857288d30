package feed

import (
	"context"

	"dronewatch/pkg/restpath"
)

// RestSource specializes Source for request/response lookups whose
// address carries path parameters. The configured base address is
// combined with a resolved restpath.Path per call.
type RestSource[T any] struct {
	src  *Source[T]
	path *restpath.Path
}

// NewRestSource creates a parameterized source. The base address must
// not carry a query or fragment; parameters resolve into its path.
func NewRestSource[T any](baseURL string, path *restpath.Path, parse ParseFunc[T], opts ...Option[T]) (*RestSource[T], error) {
	src, err := NewSource(baseURL, parse, opts...)
	if err != nil {
		return nil, err
	}
	if src.url.RawQuery != "" || src.url.Fragment != "" {
		return nil, errRestBase
	}
	return &RestSource[T]{src: src, path: path}, nil
}

// OnFailure registers a failure observer on the underlying source.
func (s *RestSource[T]) OnFailure(obs FailureObserver) { s.src.OnFailure(obs) }

// Get resolves the path with positional values and performs one fetch.
// Unlike Source.Fetch, the classified error is returned to the caller in
// addition to being delivered to observers, so lookup clients can branch
// on the failure class.
func (s *RestSource[T]) Get(ctx context.Context, values ...any) (T, error) {
	var zero T
	ref, err := s.path.ResolveValues(values...)
	if err != nil {
		return zero, err
	}

	s.src.mu.Lock()
	defer s.src.mu.Unlock()

	v, ok, err := s.src.do(ctx, s.src.url.ResolveReference(ref))
	if err != nil {
		s.src.fire(err)
		return zero, err
	}
	if !ok {
		return zero, errNoContent
	}
	return v, nil
}

// GetNamed resolves the path with named values and performs one fetch.
func (s *RestSource[T]) GetNamed(ctx context.Context, values map[string]any) (T, error) {
	var zero T
	ref, err := s.path.ResolveNamed(values)
	if err != nil {
		return zero, err
	}

	s.src.mu.Lock()
	defer s.src.mu.Unlock()

	v, ok, err := s.src.do(ctx, s.src.url.ResolveReference(ref))
	if err != nil {
		s.src.fire(err)
		return zero, err
	}
	if !ok {
		return zero, errNoContent
	}
	return v, nil
}
