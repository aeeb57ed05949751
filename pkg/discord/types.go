package discord

import (
	"context"
	"time"
)

// Replier sends responses for a single command invocation. Implementations
// track whether the initial interaction response has been sent and route
// later messages through the follow-up path, so handlers never have to care.
type Replier interface {
	// Ack sends the initial visible response
	Ack(text string) error

	// AckWorking sends the deferred "bot is thinking" response
	AckWorking() error

	// Ephemeral sends a reply visible only to the invoker
	Ephemeral(text string) error

	// Send sends a plain-text message: the initial response if none was
	// sent yet, a follow-up otherwise
	Send(text string) error

	// SendEmbed sends a rich embed message
	SendEmbed(embed *Embed) error
}

// Embed is a platform-neutral rich message, converted by the gateway adapter
// into one Discord embed.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
}

// EmbedField is one named field within an embed
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Option declares one typed slash-command parameter. All parameters in this
// bot are strings; the declaration is what Discord validates client-side.
type Option struct {
	Name        string
	Description string
	Required    bool
}

// CommandContext contains all data for command execution
type CommandContext struct {
	Ctx          context.Context
	InvocationID string
	Command      string
	Options      map[string]string
	UserID       string
	ChannelID    string

	// Latency reports the current gateway round-trip time
	Latency func() time.Duration

	Reply Replier
}

// StringOption returns a named option value, empty when absent
func (c *CommandContext) StringOption(name string) string {
	return c.Options[name]
}

// CommandHandler is a function that handles a command
type CommandHandler func(ctx *CommandContext) error

// CommandMiddleware wraps command handlers with additional logic
type CommandMiddleware func(next CommandHandler) CommandHandler

// CommandConfig defines a command registration
type CommandConfig struct {
	Name        string
	Description string
	Options     []Option
	Handler     CommandHandler
	Middleware  []CommandMiddleware
}
