// Package service gives every entity type list, get, save and delete on top
// of the dispatcher. A Service is a configured value, not a base type: the
// fetch functions it calls are injected and default to dispatcher.Fetch.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/kenchiwar/fe-invetory/pkg/cache"
	"github.com/kenchiwar/fe-invetory/pkg/dispatcher"
	"github.com/kenchiwar/fe-invetory/pkg/events"
	"github.com/kenchiwar/fe-invetory/pkg/metrics"
	"github.com/kenchiwar/fe-invetory/pkg/query"
)

const logPrefix = "service:service"

// FetchFunc performs one dispatcher call and returns its payload as R.
type FetchFunc[R any] func(ctx context.Context, method dispatcher.Method, path string, body any, opts ...dispatcher.CallOption) (R, error)

// Fetchers are the calls a Service makes. Exec is used where the payload is
// discarded and accepts a 2xx answer without data.
type Fetchers[T any] struct {
	One  FetchFunc[T]
	Many FetchFunc[[]T]
	Exec FetchFunc[json.RawMessage]
}

// FromDispatcher binds Fetchers to d.
func FromDispatcher[T any](d *dispatcher.Dispatcher) Fetchers[T] {
	return Fetchers[T]{
		One: func(ctx context.Context, m dispatcher.Method, path string, body any, opts ...dispatcher.CallOption) (T, error) {
			return dispatcher.Fetch[T](ctx, d, m, path, body, opts...)
		},
		Many: func(ctx context.Context, m dispatcher.Method, path string, body any, opts ...dispatcher.CallOption) ([]T, error) {
			return dispatcher.Fetch[[]T](ctx, d, m, path, body, opts...)
		},
		Exec: func(ctx context.Context, m dispatcher.Method, path string, body any, opts ...dispatcher.CallOption) (json.RawMessage, error) {
			return dispatcher.Exec(ctx, d, m, path, body, opts...)
		},
	}
}

// Identifiable is implemented by entities that expose their id, which is then
// carried on change events.
type Identifiable interface {
	GetID() int64
}

type settings struct {
	cache     *cache.Layer
	publisher events.Publisher
	metrics   *metrics.Collector
}

// Option configures a Service.
type Option func(*settings)

// WithCache invalidates cached reads of the endpoint on l after mutations.
func WithCache(l *cache.Layer) Option {
	return func(s *settings) { s.cache = l }
}

// WithPublisher announces mutations on p.
func WithPublisher(p events.Publisher) Option {
	return func(s *settings) { s.publisher = p }
}

// WithMetrics counts invalidations on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *settings) { s.metrics = c }
}

// Service implements the conventional endpoint shape for entity T with input D:
//
//	list       GET    {endpoint}
//	get by id  GET    {endpoint}/{id}
//	save       POST   {endpoint}/save
//	delete     DELETE {endpoint}?id={id}
type Service[T any, D any] struct {
	endpoint string
	fetch    Fetchers[T]
	settings
}

// New creates a Service for endpoint backed by d. The dispatcher's cache and
// metrics are used unless overridden.
func New[T any, D any](endpoint string, d *dispatcher.Dispatcher, opts ...Option) *Service[T, D] {
	base := []Option{WithCache(d.Cache()), WithMetrics(d.Metrics())}
	return NewWithFetchers[T, D](endpoint, FromDispatcher[T](d), append(base, opts...)...)
}

// NewWithFetchers creates a Service calling f.
func NewWithFetchers[T any, D any](endpoint string, f Fetchers[T], opts ...Option) *Service[T, D] {
	s := &Service[T, D]{endpoint: normalizeEndpoint(endpoint), fetch: f}
	for _, opt := range opts {
		opt(&s.settings)
	}
	if s.publisher == nil {
		s.publisher = &events.NoOpPublisher{}
	}
	return s
}

// Endpoint returns the collection path, e.g. /Brand.
func (s *Service[T, D]) Endpoint() string {
	return s.endpoint
}

// GetAll lists the collection. Pass dispatcher.Cached() to read through the cache.
func (s *Service[T, D]) GetAll(ctx context.Context, opts ...dispatcher.CallOption) ([]T, error) {
	return s.fetch.Many(ctx, dispatcher.MethodGet, s.endpoint, nil, opts...)
}

// GetByID fetches one record.
func (s *Service[T, D]) GetByID(ctx context.Context, id int64, opts ...dispatcher.CallOption) (T, error) {
	return s.fetch.One(ctx, dispatcher.MethodGet, s.endpoint+"/"+strconv.FormatInt(id, 10), nil, opts...)
}

// Query lists the collection filtered by b.
func (s *Service[T, D]) Query(ctx context.Context, b *query.Builder, opts ...dispatcher.CallOption) ([]T, error) {
	return s.fetch.Many(ctx, dispatcher.MethodGet, s.endpoint, nil, append([]dispatcher.CallOption{dispatcher.Query(b)}, opts...)...)
}

// Save creates or updates a record. It always POSTs to {endpoint}/save; an
// update is signalled by an id inside dto.
func (s *Service[T, D]) Save(ctx context.Context, dto D, opts ...dispatcher.CallOption) (T, error) {
	saved, err := s.fetch.One(ctx, dispatcher.MethodPost, s.endpoint+"/save", dto, opts...)
	if err != nil {
		return saved, err
	}
	var id int64
	if v, ok := any(saved).(Identifiable); ok {
		id = v.GetID()
	}
	s.afterMutation(ctx, events.ActionSaved, id)
	return saved, nil
}

// Delete removes a record. No body is sent.
func (s *Service[T, D]) Delete(ctx context.Context, id int64, opts ...dispatcher.CallOption) error {
	params := url.Values{"id": {strconv.FormatInt(id, 10)}}
	if _, err := s.fetch.Exec(ctx, dispatcher.MethodDelete, s.endpoint, nil, append([]dispatcher.CallOption{dispatcher.Params(params)}, opts...)...); err != nil {
		return err
	}
	s.afterMutation(ctx, events.ActionDeleted, id)
	return nil
}

// InvalidateCache drops every cached read of the endpoint.
func (s *Service[T, D]) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if _, err := s.cache.Invalidate(ctx, s.endpoint); err != nil {
		return err
	}
	s.metrics.RecordInvalidation(s.endpoint)
	return nil
}

// afterMutation never fails the mutation that triggered it.
func (s *Service[T, D]) afterMutation(ctx context.Context, action events.Action, id int64) {
	if err := s.InvalidateCache(ctx); err != nil {
		slog.Warn(fmt.Sprintf("%s - Cache invalidation for %s failed: %v", logPrefix, s.endpoint, err))
	}
	if err := s.publisher.Publish(ctx, events.NewEntityChanged(s.endpoint, action, id)); err != nil {
		slog.Warn(fmt.Sprintf("%s - Publishing %s of %s failed: %v", logPrefix, action, s.endpoint, err))
	}
}

func normalizeEndpoint(endpoint string) string {
	return "/" + strings.Trim(strings.TrimSpace(endpoint), "/")
}
