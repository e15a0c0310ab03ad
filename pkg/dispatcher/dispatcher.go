// Package dispatcher is the single funnel for entity I/O. It routes a verb and
// path through the transport (and the response cache for opted-in GETs),
// unwraps the response envelope and returns the typed payload.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kenchiwar/fe-invetory/pkg/cache"
	"github.com/kenchiwar/fe-invetory/pkg/metrics"
	"github.com/kenchiwar/fe-invetory/pkg/query"
	"github.com/kenchiwar/fe-invetory/pkg/transport"
)

const logPrefix = "dispatcher:dispatch"

const tracerName = "github.com/kenchiwar/fe-invetory/pkg/dispatcher"

// ErrUnsupportedMethod is returned before any I/O when the verb has no route.
var ErrUnsupportedMethod = errors.New("unsupported method")

// Method is an HTTP verb the dispatcher knows how to route.
type Method int

const (
	MethodGet Method = iota + 1
	MethodPost
	MethodPut
	MethodDelete
	MethodPatch
)

var methodNames = map[Method]string{
	MethodGet:    http.MethodGet,
	MethodPost:   http.MethodPost,
	MethodPut:    http.MethodPut,
	MethodDelete: http.MethodDelete,
	MethodPatch:  http.MethodPatch,
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod maps a verb name (any case) to a Method.
func ParseMethod(s string) (Method, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for m, name := range methodNames {
		if name == upper {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
}

// Sender performs a transport request. *transport.Client implements it.
type Sender interface {
	Send(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// Descriptor is the per-call request description. It is built for one call
// and discarded afterwards.
type Descriptor struct {
	Method    Method
	Path      string
	Body      any
	Cacheable bool
	Config    *transport.RequestConfig
}

// route performs a described call. hit reports a cache hit.
type route func(ctx context.Context, desc *Descriptor) (resp *transport.Response, hit bool, err error)

// Dispatcher routes descriptors to the transport. It holds no per-call state
// and is safe for concurrent use.
type Dispatcher struct {
	sender  Sender
	cache   *cache.Layer
	metrics *metrics.Collector
	tracer  trace.Tracer
	routes  map[Method]route
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCache enables response caching for GET calls made with Cached().
func WithCache(l *cache.Layer) Option {
	return func(d *Dispatcher) { d.cache = l }
}

// WithMetrics records request metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(d *Dispatcher) { d.metrics = c }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// New creates a Dispatcher over s.
func New(s Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender: s,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.routes = map[Method]route{
		MethodGet:    d.get,
		MethodPost:   d.withBody,
		MethodPut:    d.withBody,
		MethodPatch:  d.withBody,
		MethodDelete: d.delete,
	}
	return d
}

// Cache returns the configured cache layer, or nil.
func (d *Dispatcher) Cache() *cache.Layer {
	return d.cache
}

// Metrics returns the configured collector, or nil.
func (d *Dispatcher) Metrics() *metrics.Collector {
	return d.metrics
}

// CallOption adjusts a single call.
type CallOption func(*callConfig)

type callConfig struct {
	cached  bool
	params  url.Values
	headers http.Header
}

// Cached opts a GET into the response cache. Other verbs ignore it.
func Cached() CallOption {
	return func(c *callConfig) { c.cached = true }
}

// Params adds query parameters.
func Params(v url.Values) CallOption {
	return func(c *callConfig) {
		for k, vs := range v {
			for _, s := range vs {
				c.params.Add(k, s)
			}
		}
	}
}

// Query adds the serialized state of b as query parameters.
func Query(b *query.Builder) CallOption {
	return func(c *callConfig) {
		if b == nil {
			return
		}
		for k, vs := range b.Values() {
			for _, s := range vs {
				c.params.Add(k, s)
			}
		}
	}
}

// Header sets a request header for this call.
func Header(key, value string) CallOption {
	return func(c *callConfig) { c.headers.Set(key, value) }
}

// Describe builds the descriptor for one call.
func Describe(method Method, path string, body any, opts ...CallOption) *Descriptor {
	cc := callConfig{params: url.Values{}, headers: http.Header{}}
	for _, opt := range opts {
		opt(&cc)
	}
	return &Descriptor{
		Method:    method,
		Path:      path,
		Body:      body,
		Cacheable: cc.cached && method == MethodGet,
		Config:    &transport.RequestConfig{Params: cc.params, Headers: cc.headers},
	}
}

// Fetch performs method on path and returns the envelope's data as T. Errors
// from the transport or cache are logged with the verb and path and returned
// unchanged.
func Fetch[T any](ctx context.Context, d *Dispatcher, method Method, path string, body any, opts ...CallOption) (T, error) {
	var zero T
	desc := Describe(method, path, body, opts...)

	resp, err := d.Do(ctx, desc)
	if err != nil {
		return zero, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return zero, nil
	}
	env, err := DecodeEnvelope[T](resp.Body)
	if err != nil {
		d.metrics.RecordError("decode", method.String(), endpointLabel(path))
		slog.Error(fmt.Sprintf("%s - %s %s returned an invalid envelope: %v", logPrefix, method, path, err))
		return zero, fmt.Errorf("%s %s: %w", method, path, err)
	}
	slog.Debug(fmt.Sprintf("%s - %s %s code=%s", logPrefix, method, path, env.Code))
	return env.Data, nil
}

// Exec performs method on path for its side effect. Unlike Fetch, a 2xx
// response with an empty body or an envelope without data succeeds with a nil
// payload.
func Exec(ctx context.Context, d *Dispatcher, method Method, path string, body any, opts ...CallOption) (json.RawMessage, error) {
	resp, err := d.Do(ctx, Describe(method, path, body, opts...))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, nil
	}
	env, err := DecodeEnvelope[json.RawMessage](resp.Body)
	switch {
	case errors.Is(err, errMissingData):
		slog.Debug(fmt.Sprintf("%s - %s %s answered without data", logPrefix, method, path))
		return nil, nil
	case err != nil:
		d.metrics.RecordError("decode", method.String(), endpointLabel(path))
		slog.Error(fmt.Sprintf("%s - %s %s returned an invalid envelope: %v", logPrefix, method, path, err))
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return env.Data, nil
}

// Do routes desc through the dispatch table and returns the raw response.
func (d *Dispatcher) Do(ctx context.Context, desc *Descriptor) (*transport.Response, error) {
	r, ok := d.routes[desc.Method]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnsupportedMethod, desc.Method)
		d.metrics.RecordError("unsupported_method", desc.Method.String(), endpointLabel(desc.Path))
		slog.Error(fmt.Sprintf("%s - %v (path %s)", logPrefix, err, desc.Path))
		return nil, err
	}
	if desc.Config == nil {
		desc.Config = &transport.RequestConfig{}
	}

	endpoint := endpointLabel(desc.Path)
	ctx, span := d.tracer.Start(ctx, desc.Method.String()+" "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", desc.Method.String()),
			attribute.String("url.path", desc.Path),
			attribute.Bool("cache.requested", desc.Cacheable),
		),
	)
	defer span.End()

	start := time.Now()
	resp, hit, err := r(ctx, desc)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status), attribute.Bool("cache.hit", hit))

	if desc.Cacheable && d.cache != nil {
		if hit {
			d.metrics.RecordCacheHit(endpoint)
		} else {
			d.metrics.RecordCacheMiss(endpoint)
		}
	}
	if !hit {
		d.metrics.RecordRequest(desc.Method.String(), endpoint, status, time.Since(start))
	}

	if err != nil {
		kind := "unknown"
		var te *transport.Error
		if errors.As(err, &te) {
			kind = te.Kind.String()
		}
		d.metrics.RecordError(kind, desc.Method.String(), endpoint)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error(fmt.Sprintf("%s - %s %s failed: %v", logPrefix, desc.Method, desc.Path, err))
		return nil, err
	}
	return resp, nil
}

func (d *Dispatcher) send(ctx context.Context, desc *Descriptor, body any) (*transport.Response, error) {
	return d.sender.Send(ctx, &transport.Request{
		Method: desc.Method.String(),
		Path:   desc.Path,
		Body:   body,
		Config: desc.Config,
	})
}

func (d *Dispatcher) get(ctx context.Context, desc *Descriptor) (*transport.Response, bool, error) {
	fetch := func(ctx context.Context) (*transport.Response, error) {
		return d.send(ctx, desc, nil)
	}
	if !desc.Cacheable || d.cache == nil {
		resp, err := fetch(ctx)
		return resp, false, err
	}
	return d.cache.Do(ctx, http.MethodGet, desc.Path, desc.Config.Params, fetch)
}

func (d *Dispatcher) withBody(ctx context.Context, desc *Descriptor) (*transport.Response, bool, error) {
	resp, err := d.send(ctx, desc, desc.Body)
	return resp, false, err
}

// delete sends the payload in the request config; the positional body stays empty.
func (d *Dispatcher) delete(ctx context.Context, desc *Descriptor) (*transport.Response, bool, error) {
	if desc.Body != nil {
		desc.Config.Data = desc.Body
		desc.Body = nil
	}
	resp, err := d.send(ctx, desc, nil)
	return resp, false, err
}

// endpointLabel drops the query string.
func endpointLabel(path string) string {
	p, _, _ := strings.Cut(path, "?")
	return p
}
