package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/adminlove520/daily-stock-analysis/internal/render"
	"github.com/adminlove520/daily-stock-analysis/pkg/errors"
)

// discordMessageLimit keeps each webhook message under the 2000-character
// platform cap with headroom for the title line.
const discordMessageLimit = 1900

// DiscordWebhookChannel pushes reports to a Discord webhook URL. This path
// is independent of the interactive gateway session.
type DiscordWebhookChannel struct {
	url  string
	http *http.Client
}

// NewDiscordWebhookChannel creates a Discord webhook channel
func NewDiscordWebhookChannel(url string) *DiscordWebhookChannel {
	return &DiscordWebhookChannel{
		url:  url,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name identifies the channel in logs and metrics
func (c *DiscordWebhookChannel) Name() string {
	return "discord_webhook"
}

type discordWebhookPayload struct {
	Content string `json:"content"`
}

// Push delivers the report, chunked under the message cap, in order
func (c *DiscordWebhookChannel) Push(ctx context.Context, report *Report) error {
	text := report.Body
	if report.Title != "" {
		text = report.Title + "\n\n" + text
	}

	for _, chunk := range render.Paginate(text, discordMessageLimit) {
		if err := c.post(ctx, chunk); err != nil {
			return err
		}
	}

	return nil
}

func (c *DiscordWebhookChannel) post(ctx context.Context, content string) error {
	body, err := json.Marshal(discordWebhookPayload{Content: content})
	if err != nil {
		return errors.Wrap(err, "failed to marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "webhook request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

var _ Channel = (*DiscordWebhookChannel)(nil)
