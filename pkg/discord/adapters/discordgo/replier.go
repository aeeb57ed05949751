package discordgo

import (
	"context"
	"sync"

	dg "github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/adminlove520/daily-stock-analysis/pkg/discord"
	"github.com/adminlove520/daily-stock-analysis/pkg/errors"
)

// Compile-time check
var _ discord.Replier = (*interactionReplier)(nil)

// interactionReplier implements discord.Replier over one interaction.
// Discord allows exactly one initial response per interaction; everything
// after it must go through the follow-up webhook, so the replier tracks
// which state it is in.
type interactionReplier struct {
	session     *dg.Session
	interaction *dg.Interaction
	limiter     *rate.Limiter

	mu        sync.Mutex
	responded bool
}

func newInteractionReplier(session *dg.Session, interaction *dg.Interaction, limiter *rate.Limiter) *interactionReplier {
	return &interactionReplier{
		session:     session,
		interaction: interaction,
		limiter:     limiter,
	}
}

// Ack sends the initial visible response
func (r *interactionReplier) Ack(text string) error {
	return r.respond(&dg.InteractionResponse{
		Type: dg.InteractionResponseChannelMessageWithSource,
		Data: &dg.InteractionResponseData{Content: text},
	})
}

// AckWorking sends the deferred "bot is thinking" response
func (r *interactionReplier) AckWorking() error {
	return r.respond(&dg.InteractionResponse{
		Type: dg.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// Ephemeral sends a reply visible only to the invoker
func (r *interactionReplier) Ephemeral(text string) error {
	r.mu.Lock()
	responded := r.responded
	r.mu.Unlock()

	if !responded {
		return r.respond(&dg.InteractionResponse{
			Type: dg.InteractionResponseChannelMessageWithSource,
			Data: &dg.InteractionResponseData{
				Content: text,
				Flags:   dg.MessageFlagsEphemeral,
			},
		})
	}

	return r.followUp(&dg.WebhookParams{
		Content: text,
		Flags:   dg.MessageFlagsEphemeral,
	})
}

// Send sends text as the initial response if none was sent yet, as a
// follow-up otherwise
func (r *interactionReplier) Send(text string) error {
	r.mu.Lock()
	responded := r.responded
	r.mu.Unlock()

	if !responded {
		return r.Ack(text)
	}

	return r.followUp(&dg.WebhookParams{Content: text})
}

// SendEmbed sends a rich embed message
func (r *interactionReplier) SendEmbed(embed *discord.Embed) error {
	dgEmbed := convertEmbed(embed)

	r.mu.Lock()
	responded := r.responded
	r.mu.Unlock()

	if !responded {
		return r.respond(&dg.InteractionResponse{
			Type: dg.InteractionResponseChannelMessageWithSource,
			Data: &dg.InteractionResponseData{
				Embeds: []*dg.MessageEmbed{dgEmbed},
			},
		})
	}

	return r.followUp(&dg.WebhookParams{
		Embeds: []*dg.MessageEmbed{dgEmbed},
	})
}

func (r *interactionReplier) respond(resp *dg.InteractionResponse) error {
	if err := r.limiter.Wait(context.Background()); err != nil {
		return errors.Wrap(err, "rate limiter error")
	}

	r.mu.Lock()
	if r.responded {
		r.mu.Unlock()
		return errors.New("interaction already has an initial response")
	}
	r.mu.Unlock()

	if err := r.session.InteractionRespond(r.interaction, resp); err != nil {
		return errors.Wrap(err, "failed to respond to interaction")
	}

	r.mu.Lock()
	r.responded = true
	r.mu.Unlock()

	return nil
}

func (r *interactionReplier) followUp(params *dg.WebhookParams) error {
	if err := r.limiter.Wait(context.Background()); err != nil {
		return errors.Wrap(err, "rate limiter error")
	}

	if _, err := r.session.FollowupMessageCreate(r.interaction, true, params); err != nil {
		return errors.Wrap(err, "failed to send follow-up message")
	}

	return nil
}

// convertEmbed converts the platform-neutral embed into a discordgo embed
func convertEmbed(embed *discord.Embed) *dg.MessageEmbed {
	fields := make([]*dg.MessageEmbedField, 0, len(embed.Fields))
	for _, f := range embed.Fields {
		fields = append(fields, &dg.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}

	out := &dg.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
		Fields:      fields,
	}

	if embed.Footer != "" {
		out.Footer = &dg.MessageEmbedFooter{Text: embed.Footer}
	}

	return out
}
