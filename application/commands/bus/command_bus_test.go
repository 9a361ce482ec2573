package bus

import (
	"context"
	"errors"
	"testing"

	pkgerrors "chatarchive/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pingCommand struct {
	Name string
}

func (c pingCommand) Validate() error {
	if c.Name == "" {
		return pkgerrors.NewValidationError("name is required")
	}
	return nil
}

type countingCache struct {
	clears int
}

func (c *countingCache) Clear(ctx context.Context) error {
	c.clears++
	return nil
}

func TestCommandBus_Dispatch(t *testing.T) {
	cache := &countingCache{}
	b := NewCommandBus(LoggingMiddleware(zap.NewNop()), InvalidationMiddleware(cache, zap.NewNop()))

	require.NoError(t, b.Register(pingCommand{}, HandlerFor(func(ctx context.Context, cmd pingCommand) (string, error) {
		if cmd.Name == "fail" {
			return "", pkgerrors.NewConflictError("busy")
		}
		return "pong " + cmd.Name, nil
	})))

	t.Run("returns handler result", func(t *testing.T) {
		result, err := b.Dispatch(context.Background(), pingCommand{Name: "a"})
		require.NoError(t, err)
		assert.Equal(t, "pong a", result)
		assert.Equal(t, 1, cache.clears)
	})

	t.Run("validation errors keep their type", func(t *testing.T) {
		err := b.Send(context.Background(), pingCommand{})
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("handler errors keep their type and skip invalidation", func(t *testing.T) {
		before := cache.clears
		err := b.Send(context.Background(), pingCommand{Name: "fail"})
		assert.True(t, pkgerrors.IsConflict(err))
		assert.Equal(t, before, cache.clears)
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		err := b.Register(pingCommand{}, HandlerFor(func(ctx context.Context, cmd pingCommand) (string, error) { return "", nil }))
		assert.Error(t, err)
	})
}

type otherCommand struct{}

func (otherCommand) Validate() error { return nil }

func TestCommandBus_UnknownCommand(t *testing.T) {
	b := NewCommandBus()
	err := b.Send(context.Background(), otherCommand{})
	assert.True(t, errors.Is(err, ErrHandlerNotFound))
}
