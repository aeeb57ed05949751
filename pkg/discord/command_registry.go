package discord

import (
	"fmt"
	"strings"

	"github.com/adminlove520/daily-stock-analysis/pkg/errors"
	"github.com/adminlove520/daily-stock-analysis/pkg/logger"
)

// Registry manages command registration and routing
type Registry struct {
	commands   map[string]*CommandConfig
	order      []string
	middleware []CommandMiddleware
	log        *logger.Logger
}

// NewRegistry creates a new command registry
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		commands:   make(map[string]*CommandConfig),
		order:      make([]string, 0),
		middleware: make([]CommandMiddleware, 0),
		log:        log.With("component", "command_registry"),
	}
}

// Register registers a command with the registry
func (r *Registry) Register(config CommandConfig) {
	if config.Name == "" {
		r.log.Errorw("Cannot register command without name")
		return
	}
	if config.Handler == nil {
		r.log.Errorw("Cannot register command without handler", "command", config.Name)
		return
	}

	if _, exists := r.commands[config.Name]; !exists {
		r.order = append(r.order, config.Name)
	}
	r.commands[config.Name] = &config

	r.log.Debugw("Registered command",
		"name", config.Name,
		"description", config.Description,
		"options", len(config.Options),
	)
}

// MustRegister registers a command and panics on error (for init-time registration)
func (r *Registry) MustRegister(config CommandConfig) {
	if config.Name == "" || config.Handler == nil {
		panic(fmt.Sprintf("invalid command config: name=%s handler=%v", config.Name, config.Handler))
	}
	r.Register(config)
}

// Use adds global middleware (applied to all commands)
func (r *Registry) Use(middleware CommandMiddleware) {
	r.middleware = append(r.middleware, middleware)
}

// Commands returns all registered commands in registration order, so command
// synchronization against the platform is deterministic.
func (r *Registry) Commands() []*CommandConfig {
	commands := make([]*CommandConfig, 0, len(r.order))
	for _, name := range r.order {
		commands = append(commands, r.commands[name])
	}
	return commands
}

// HasCommand checks if command is registered
func (r *Registry) HasCommand(command string) bool {
	_, exists := r.commands[strings.ToLower(strings.TrimSpace(command))]
	return exists
}

// Handle routes an invocation to its registered handler. Every failure path
// ends in a terminal reply to the invoker; nothing propagates out of here
// and a handler panic cannot crash the dispatch loop.
func (r *Registry) Handle(cmdCtx *CommandContext) {
	command := strings.ToLower(strings.TrimSpace(cmdCtx.Command))

	r.log.Debugw("Routing command",
		"command", command,
		"invocation_id", cmdCtx.InvocationID,
		"user_id", cmdCtx.UserID,
	)

	config, exists := r.commands[command]
	if !exists {
		r.log.Warnw("Unknown command", "command", command, "user_id", cmdCtx.UserID)
		if err := cmdCtx.Reply.Ephemeral(fmt.Sprintf("❌ 未知指令: /%s", command)); err != nil {
			r.log.Errorw("Failed to reply to unknown command", "error", err)
		}
		return
	}

	handler := config.Handler

	// Apply command-specific middleware (reverse order)
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		handler = config.Middleware[i](handler)
	}

	// Apply global middleware (reverse order)
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorw("Command handler panicked",
				"command", command,
				"invocation_id", cmdCtx.InvocationID,
				"panic", rec,
			)
			r.replyFailure(cmdCtx, fmt.Sprintf("❌ 执行异常: %v", rec))
		}
	}()

	if err := handler(cmdCtx); err != nil {
		r.log.Errorw("Command execution failed",
			"command", command,
			"invocation_id", cmdCtx.InvocationID,
			"error", err,
		)
		r.handleCommandError(cmdCtx, err)
		return
	}

	r.log.Infow("Command executed",
		"command", command,
		"invocation_id", cmdCtx.InvocationID,
	)
}

// handleCommandError converts a handler error into a user-visible reply
func (r *Registry) handleCommandError(cmdCtx *CommandContext, err error) {
	var valErr *errors.ValidationError
	if errors.As(err, &valErr) {
		if sendErr := cmdCtx.Reply.Ephemeral(fmt.Sprintf("❌ %s", valErr.Message)); sendErr != nil {
			r.log.Errorw("Failed to send validation reply", "error", sendErr)
		}
		return
	}

	r.replyFailure(cmdCtx, fmt.Sprintf("❌ 执行异常: %s", err.Error()))
}

func (r *Registry) replyFailure(cmdCtx *CommandContext, text string) {
	if err := cmdCtx.Reply.Send(text); err != nil {
		r.log.Errorw("Failed to send failure reply",
			"command", cmdCtx.Command,
			"invocation_id", cmdCtx.InvocationID,
			"error", err,
		)
	}
}
