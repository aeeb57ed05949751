package discordgo

import (
	"context"
	"sync"

	dg "github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/adminlove520/daily-stock-analysis/pkg/discord"
	"github.com/adminlove520/daily-stock-analysis/pkg/errors"
	"github.com/adminlove520/daily-stock-analysis/pkg/logger"
)

// Client owns the single long-lived gateway connection and dispatches
// inbound events to the command registry.
type Client struct {
	session  *dg.Session
	registry *discord.Registry
	cfg      Config
	log      *logger.Logger

	// limiter paces outbound sends under the platform rate limit
	limiter *rate.Limiter

	mu      sync.Mutex
	running bool
}

// Config contains Discord gateway configuration
type Config struct {
	Token        string
	GuildID      string
	PresenceText string
	Debug        bool

	RateLimitBurst int // default 5
	RateLimitRate  int // per second, default 5
}

// NewClient creates a gateway client bound to a command registry
func NewClient(cfg Config, registry *discord.Registry, log *logger.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "discord bot token is required")
	}

	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 5
	}
	if cfg.RateLimitRate == 0 {
		cfg.RateLimitRate = 5
	}

	session, err := dg.New("Bot " + cfg.Token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create discord session")
	}

	// Message content intent is needed for the !sync trigger
	session.Identify.Intents = dg.IntentsGuilds | dg.IntentsGuildMessages | dg.IntentMessageContent
	session.LogLevel = dg.LogWarning
	if cfg.Debug {
		session.LogLevel = dg.LogInformational
	}

	client := &Client{
		session:  session,
		registry: registry,
		cfg:      cfg,
		log:      log.With("component", "discord_client"),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst),
	}

	session.AddHandler(client.onReady)
	session.AddHandler(client.onMessageCreate)
	session.AddHandler(client.onInteractionCreate)

	return client, nil
}

// Start opens the gateway connection and blocks until ctx is cancelled
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("client is already running")
	}
	c.running = true
	c.mu.Unlock()

	if err := c.session.Open(); err != nil {
		return errors.Wrap(err, "failed to open gateway connection")
	}

	c.log.Infow("Gateway connection established")

	<-ctx.Done()

	c.log.Infow("Stopping client due to context cancellation")
	if err := c.session.Close(); err != nil {
		c.log.Errorw("Failed to close gateway connection", "error", err)
	}

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	return ctx.Err()
}

// SyncCommands overwrites the application command set from the registry.
// Bulk overwrite is idempotent; calling it repeatedly is harmless.
func (c *Client) SyncCommands() error {
	configs := c.registry.Commands()

	commands := make([]*dg.ApplicationCommand, 0, len(configs))
	for _, cfg := range configs {
		options := make([]*dg.ApplicationCommandOption, 0, len(cfg.Options))
		for _, opt := range cfg.Options {
			options = append(options, &dg.ApplicationCommandOption{
				Type:        dg.ApplicationCommandOptionString,
				Name:        opt.Name,
				Description: opt.Description,
				Required:    opt.Required,
			})
		}

		commands = append(commands, &dg.ApplicationCommand{
			Name:        cfg.Name,
			Description: cfg.Description,
			Options:     options,
		})
	}

	_, err := c.session.ApplicationCommandBulkOverwrite(c.session.State.User.ID, c.cfg.GuildID, commands)
	if err != nil {
		return errors.Wrap(err, "failed to overwrite application commands")
	}

	c.log.Infow("Slash commands synchronized", "count", len(commands))
	return nil
}

// onReady announces presence and registers the slash command set
func (c *Client) onReady(s *dg.Session, r *dg.Ready) {
	c.log.Infof("Logged in as %s (ID: %s)", r.User.Username, r.User.ID)

	if err := s.UpdateWatchStatus(0, c.cfg.PresenceText); err != nil {
		c.log.Errorw("Failed to set presence", "error", err)
	}

	if err := c.SyncCommands(); err != nil {
		c.log.Errorw("Failed to sync commands on ready", "error", err)
	}
}

// onMessageCreate handles the single privileged plain-text trigger. All
// other message content is ignored; slash commands are the interface.
func (c *Client) onMessageCreate(s *dg.Session, m *dg.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	if m.Content != "!sync" {
		return
	}

	if err := c.SyncCommands(); err != nil {
		c.log.Errorw("Manual command sync failed", "error", err)
		c.sendChannel(m.ChannelID, "❌ Slash Commands 同步失败，请查阅日志")
		return
	}

	c.log.Infof("Slash commands manually synced by %s", m.Author.Username)
	c.sendChannel(m.ChannelID, "✅ Slash Commands 已手动同步完成！")
}

// onInteractionCreate routes slash command invocations to the registry
func (c *Client) onInteractionCreate(s *dg.Session, i *dg.InteractionCreate) {
	if i.Type != dg.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()

	options := make(map[string]string, len(data.Options))
	for _, opt := range data.Options {
		if opt.Type == dg.ApplicationCommandOptionString {
			options[opt.Name] = opt.StringValue()
		}
	}

	cmdCtx := &discord.CommandContext{
		Ctx:          context.Background(),
		InvocationID: uuid.NewString(),
		Command:      data.Name,
		Options:      options,
		UserID:       interactionUserID(i.Interaction),
		ChannelID:    i.ChannelID,
		Latency:      s.HeartbeatLatency,
		Reply:        newInteractionReplier(s, i.Interaction, c.limiter),
	}

	c.registry.Handle(cmdCtx)
}

func (c *Client) sendChannel(channelID, text string) {
	if err := c.limiter.Wait(context.Background()); err != nil {
		return
	}
	if _, err := c.session.ChannelMessageSend(channelID, text); err != nil {
		c.log.Errorw("Failed to send channel message", "channel_id", channelID, "error", err)
	}
}

func interactionUserID(i *dg.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
