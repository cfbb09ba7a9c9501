package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pingCommand struct {
	Target string
}

func (c pingCommand) Validate() error {
	if c.Target == "" {
		return errors.New("target is required")
	}
	return nil
}

type recordingMetrics struct {
	commands []string
	errs     []error
}

func (m *recordingMetrics) RecordCommand(commandType string, duration time.Duration, err error) {
	m.commands = append(m.commands, commandType)
	m.errs = append(m.errs, err)
}

func TestCommandBus_Execute(t *testing.T) {
	metrics := &recordingMetrics{}
	b := NewCommandBus(LoggingMiddleware(zap.NewNop()), MetricsMiddleware(metrics))
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (*CommandResult, error) {
		return &CommandResult{Data: "pong:" + cmd.(pingCommand).Target, Version: "v1"}, nil
	})))

	result, err := b.Execute(context.Background(), pingCommand{Target: "a"})

	require.NoError(t, err)
	assert.Equal(t, "pong:a", result.Data)
	assert.Equal(t, "v1", result.Version)
	assert.Equal(t, []string{"pingCommand"}, metrics.commands)
}

func TestCommandBus_Execute_Errors(t *testing.T) {
	boom := errors.New("boom")
	b := NewCommandBus()
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (*CommandResult, error) {
		return nil, boom
	})))

	t.Run("validation", func(t *testing.T) {
		_, err := b.Execute(context.Background(), pingCommand{})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("handler failure keeps cause", func(t *testing.T) {
		_, err := b.Execute(context.Background(), pingCommand{Target: "a"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unregistered", func(t *testing.T) {
		_, err := NewCommandBus().Execute(context.Background(), pingCommand{Target: "a"})
		assert.ErrorIs(t, err, ErrHandlerNotFound)
	})
}

func TestCommandBus_Register_Duplicate(t *testing.T) {
	b := NewCommandBus()
	handler := CommandHandlerFunc(func(ctx context.Context, cmd Command) (*CommandResult, error) { return nil, nil })

	require.NoError(t, b.Register(pingCommand{}, handler))
	assert.Error(t, b.Register(pingCommand{}, handler))
}

func TestCommandBus_NilResultBecomesEmpty(t *testing.T) {
	b := NewCommandBus()
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (*CommandResult, error) {
		return nil, nil
	})))

	result, err := b.Execute(context.Background(), pingCommand{Target: "a"})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Data)
	assert.NoError(t, b.Send(context.Background(), pingCommand{Target: "a"}))
}

func TestPipeline_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) (*CommandResult, error) {
				order = append(order, name)
				return next.Handle(ctx, cmd)
			})
		}
	}
	handler := NewPipeline(tag("outer"), tag("inner")).Execute(CommandHandlerFunc(
		func(ctx context.Context, cmd Command) (*CommandResult, error) {
			order = append(order, "handler")
			return nil, nil
		}))

	_, _ = handler.Handle(context.Background(), pingCommand{Target: "x"})

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
