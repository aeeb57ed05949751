package discord

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adminlove520/daily-stock-analysis/pkg/errors"
	"github.com/adminlove520/daily-stock-analysis/pkg/logger"
)

// fakeReplier records every reply for assertions
type fakeReplier struct {
	acks       []string
	ephemerals []string
	sends      []string
	embeds     []*Embed
	deferred   bool
}

func (f *fakeReplier) Ack(text string) error       { f.acks = append(f.acks, text); return nil }
func (f *fakeReplier) AckWorking() error           { f.deferred = true; return nil }
func (f *fakeReplier) Ephemeral(text string) error { f.ephemerals = append(f.ephemerals, text); return nil }
func (f *fakeReplier) Send(text string) error      { f.sends = append(f.sends, text); return nil }
func (f *fakeReplier) SendEmbed(embed *Embed) error {
	f.embeds = append(f.embeds, embed)
	return nil
}

var _ Replier = (*fakeReplier)(nil)

func newTestContext(command string) (*CommandContext, *fakeReplier) {
	reply := &fakeReplier{}
	return &CommandContext{
		Ctx:          context.Background(),
		InvocationID: "test-invocation",
		Command:      command,
		Options:      map[string]string{},
		UserID:       "user-1",
		Reply:        reply,
	}, reply
}

func TestRegistry_UnknownCommand(t *testing.T) {
	registry := NewRegistry(logger.Get())

	cmdCtx, reply := newTestContext("nonexistent")
	registry.Handle(cmdCtx)

	require.Len(t, reply.ephemerals, 1)
	assert.Equal(t, "❌ 未知指令: /nonexistent", reply.ephemerals[0])
	assert.Empty(t, reply.sends)
}

func TestRegistry_HandlerSuccess(t *testing.T) {
	registry := NewRegistry(logger.Get())
	registry.Register(CommandConfig{
		Name: "ping",
		Handler: func(cmdCtx *CommandContext) error {
			return cmdCtx.Reply.Ack("pong")
		},
	})

	cmdCtx, reply := newTestContext("ping")
	registry.Handle(cmdCtx)

	require.Len(t, reply.acks, 1)
	assert.Equal(t, "pong", reply.acks[0])
	assert.Empty(t, reply.ephemerals)
	assert.Empty(t, reply.sends)
}

func TestRegistry_CommandNameNormalized(t *testing.T) {
	registry := NewRegistry(logger.Get())
	registry.Register(CommandConfig{
		Name:    "ping",
		Handler: func(cmdCtx *CommandContext) error { return cmdCtx.Reply.Ack("pong") },
	})

	cmdCtx, reply := newTestContext("  PING ")
	registry.Handle(cmdCtx)

	require.Len(t, reply.acks, 1)
}

func TestRegistry_ValidationErrorIsEphemeral(t *testing.T) {
	registry := NewRegistry(logger.Get())
	registry.Register(CommandConfig{
		Name: "add",
		Handler: func(cmdCtx *CommandContext) error {
			return errors.NewValidationError("code", "股票代码格式错误，请输入 6 位数字代码", "abc")
		},
	})

	cmdCtx, reply := newTestContext("add")
	registry.Handle(cmdCtx)

	require.Len(t, reply.ephemerals, 1)
	assert.Equal(t, "❌ 股票代码格式错误，请输入 6 位数字代码", reply.ephemerals[0])
	assert.Empty(t, reply.sends)
}

func TestRegistry_WrappedValidationErrorIsEphemeral(t *testing.T) {
	registry := NewRegistry(logger.Get())
	registry.Register(CommandConfig{
		Name: "add",
		Handler: func(cmdCtx *CommandContext) error {
			err := errors.NewValidationError("code", "股票代码格式错误，请输入 6 位数字代码", "abc")
			return errors.Wrap(err, "add failed")
		},
	})

	cmdCtx, reply := newTestContext("add")
	registry.Handle(cmdCtx)

	require.Len(t, reply.ephemerals, 1)
	assert.Empty(t, reply.sends)
}

func TestRegistry_HandlerErrorGetsTerminalReply(t *testing.T) {
	registry := NewRegistry(logger.Get())
	registry.Register(CommandConfig{
		Name: "broken",
		Handler: func(cmdCtx *CommandContext) error {
			return errors.New("engine timeout")
		},
	})

	cmdCtx, reply := newTestContext("broken")
	registry.Handle(cmdCtx)

	require.Len(t, reply.sends, 1)
	assert.Equal(t, "❌ 执行异常: engine timeout", reply.sends[0])
}

func TestRegistry_HandlerPanicRecovered(t *testing.T) {
	registry := NewRegistry(logger.Get())
	registry.Register(CommandConfig{
		Name: "panicking",
		Handler: func(cmdCtx *CommandContext) error {
			panic("nil dereference")
		},
	})

	cmdCtx, reply := newTestContext("panicking")

	assert.NotPanics(t, func() { registry.Handle(cmdCtx) })

	require.Len(t, reply.sends, 1)
	assert.Equal(t, "❌ 执行异常: nil dereference", reply.sends[0])
}

func TestRegistry_MiddlewareOrder(t *testing.T) {
	registry := NewRegistry(logger.Get())

	var trace []string
	mw := func(label string) CommandMiddleware {
		return func(next CommandHandler) CommandHandler {
			return func(cmdCtx *CommandContext) error {
				trace = append(trace, label)
				return next(cmdCtx)
			}
		}
	}

	registry.Use(mw("global"))
	registry.Register(CommandConfig{
		Name:       "traced",
		Middleware: []CommandMiddleware{mw("local")},
		Handler: func(cmdCtx *CommandContext) error {
			trace = append(trace, "handler")
			return nil
		},
	})

	cmdCtx, _ := newTestContext("traced")
	registry.Handle(cmdCtx)

	assert.Equal(t, []string{"global", "local", "handler"}, trace)
}

func TestRegistry_CommandsPreserveRegistrationOrder(t *testing.T) {
	registry := NewRegistry(logger.Get())

	noop := func(cmdCtx *CommandContext) error { return nil }
	for _, name := range []string{"ping", "watchlist_list", "analysis", "market"} {
		registry.Register(CommandConfig{Name: name, Handler: noop})
	}

	configs := registry.Commands()
	names := make([]string, 0, len(configs))
	for _, config := range configs {
		names = append(names, config.Name)
	}

	assert.Equal(t, []string{"ping", "watchlist_list", "analysis", "market"}, names)
	assert.True(t, registry.HasCommand("ping"))
	assert.False(t, registry.HasCommand("missing"))
}
