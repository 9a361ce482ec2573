package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Query is a read request routed by its concrete type.
type Query interface {
	Validate() error
}

// QueryHandler answers one query type.
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryHandlerFunc lets a plain function serve as a QueryHandler.
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle calls f.
func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// HandlerFor adapts a typed handler method, such as GetEntryHandler.Handle,
// to QueryHandler.
func HandlerFor[Q Query, R any](fn func(context.Context, Q) (R, error)) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		typed, ok := query.(Q)
		if !ok {
			return nil, fmt.Errorf("handler expects %T, got %T", *new(Q), query)
		}
		return fn(ctx, typed)
	})
}

// Middleware decorates a QueryHandler.
type Middleware func(QueryHandler) QueryHandler

// QueryBus routes read requests. Bus-wide middlewares wrap every handler;
// middlewares passed to Register wrap only that query, inside the bus-wide
// ones.
type QueryBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]QueryHandler
	common   []Middleware
}

// NewQueryBus creates a query bus. common is applied outermost first.
func NewQueryBus(common ...Middleware) *QueryBus {
	return &QueryBus{
		handlers: make(map[reflect.Type]QueryHandler),
		common:   common,
	}
}

// Register binds handler to the concrete type of query.
func (b *QueryBus) Register(query Query, handler QueryHandler, extra ...Middleware) error {
	t := reflect.TypeOf(query)
	chain := append(append([]Middleware{}, b.common...), extra...)
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.handlers[t]; taken {
		return fmt.Errorf("query %s registered twice", t.Name())
	}
	b.handlers[t] = handler
	return nil
}

// Ask validates query and returns its handler's answer.
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %T: %w", query, err)
	}

	b.mu.RLock()
	handler, ok := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no handler registered for %T", query)
	}

	result, err := handler.Handle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%T: %w", query, err)
	}
	return result, nil
}

// Cache stores query answers. ttl is in seconds.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl int) error
}

// CacheKey names a query by its type and field values.
func CacheKey(query Query) string {
	return fmt.Sprintf("%T:%+v", query, query)
}

// Cached answers repeated queries from cache for ttl seconds. Failures are
// never stored.
func Cached(cache Cache, ttl int) Middleware {
	return func(next QueryHandler) QueryHandler {
		return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
			key := CacheKey(query)
			if hit, ok := cache.Get(ctx, key); ok {
				return hit, nil
			}
			result, err := next.Handle(ctx, query)
			if err != nil {
				return nil, err
			}
			_ = cache.Set(ctx, key, result, ttl)
			return result, nil
		})
	}
}

// Metrics receives one observation per answered query.
type Metrics interface {
	ObserveQuery(queryType string, took time.Duration, err error)
}

// Measured reports each query's latency and outcome.
func Measured(metrics Metrics) Middleware {
	return func(next QueryHandler) QueryHandler {
		return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
			start := time.Now()
			result, err := next.Handle(ctx, query)
			metrics.ObserveQuery(reflect.TypeOf(query).Name(), time.Since(start), err)
			return result, err
		})
	}
}
