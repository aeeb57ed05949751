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

// WeCom group-bot markdown messages cap at 4096 bytes. CJK runes encode to
// three bytes, so 1300 characters stays under the cap in the worst case.
const wecomMessageLimit = 1300

// WecomChannel pushes reports to a WeCom (企业微信) group bot webhook
type WecomChannel struct {
	url  string
	http *http.Client
}

// NewWecomChannel creates a WeCom channel
func NewWecomChannel(url string) *WecomChannel {
	return &WecomChannel{
		url:  url,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name identifies the channel in logs and metrics
func (c *WecomChannel) Name() string {
	return "wecom"
}

type wecomPayload struct {
	MsgType  string        `json:"msgtype"`
	Markdown wecomMarkdown `json:"markdown"`
}

type wecomMarkdown struct {
	Content string `json:"content"`
}

type wecomResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Push delivers the report, chunked under the payload cap, in order
func (c *WecomChannel) Push(ctx context.Context, report *Report) error {
	text := report.Body
	if report.Title != "" {
		text = report.Title + "\n\n" + text
	}

	for _, chunk := range render.Paginate(text, wecomMessageLimit) {
		if err := c.post(ctx, chunk); err != nil {
			return err
		}
	}

	return nil
}

func (c *WecomChannel) post(ctx context.Context, content string) error {
	body, err := json.Marshal(wecomPayload{
		MsgType:  "markdown",
		Markdown: wecomMarkdown{Content: content},
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal wecom payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build wecom request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "wecom request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("wecom returned status %d", resp.StatusCode)
	}

	var out wecomResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return errors.Wrap(err, "failed to decode wecom response")
	}
	if out.ErrCode != 0 {
		return errors.Newf("wecom rejected message: %d %s", out.ErrCode, out.ErrMsg)
	}

	return nil
}

var _ Channel = (*WecomChannel)(nil)
