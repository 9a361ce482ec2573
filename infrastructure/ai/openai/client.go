// Package openai adapts an OpenAI-compatible API to the embedder and
// summarizer ports. Every call goes through one circuit breaker so a failing
// provider stops costing request latency.
package openai

import (
	"context"
	"errors"
	"time"

	pkgerrors "chatarchive/pkg/errors"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// API is the subset of the go-openai client used here.
type API interface {
	CreateEmbeddings(ctx context.Context, conv goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error)
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// BreakerConfig holds configuration for the circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used in production
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "openai",
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// NewAPI builds a go-openai client. An empty baseURL targets api.openai.com.
func NewAPI(apiKey, baseURL string) *goopenai.Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return goopenai.NewClientWithConfig(cfg)
}

// guardedClient runs API calls through the breaker
type guardedClient struct {
	api     API
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func newGuardedClient(api API, cfg BreakerConfig, logger *zap.Logger) *guardedClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up is not the provider's fault
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &guardedClient{api: api, breaker: breaker, logger: logger}
}

func (c *guardedClient) execute(service string, fn func() (interface{}, error)) (interface{}, error) {
	out, err := c.breaker.Execute(fn)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, pkgerrors.NewUnavailableError(service).WithCode("CIRCUIT_OPEN").WithCause(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, pkgerrors.NewTimeoutError(service).WithCause(err)
	}
	return nil, pkgerrors.NewExternalError(service, err)
}
