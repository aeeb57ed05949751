package commands

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/adminlove520/daily-stock-analysis/internal/adapters/config"
	"github.com/adminlove520/daily-stock-analysis/internal/domain/analysis"
	"github.com/adminlove520/daily-stock-analysis/internal/metrics"
	"github.com/adminlove520/daily-stock-analysis/internal/notify"
	"github.com/adminlove520/daily-stock-analysis/internal/render"
	watchlistsvc "github.com/adminlove520/daily-stock-analysis/internal/services/watchlist"
	"github.com/adminlove520/daily-stock-analysis/pkg/discord"
	"github.com/adminlove520/daily-stock-analysis/pkg/errors"
	"github.com/adminlove520/daily-stock-analysis/pkg/logger"
	"github.com/adminlove520/daily-stock-analysis/pkg/taskpool"
)

const watchlistColor = 0x3498DB

// Handlers owns the slash-command implementations and their dependencies
type Handlers struct {
	watchlist *watchlistsvc.Service
	engine    analysis.Engine
	notifier  *notify.Service
	pool      *taskpool.Pool
	report    config.ReportConfig
	log       *logger.Logger
}

// NewHandlers creates the command handler set
func NewHandlers(
	watchlist *watchlistsvc.Service,
	engine analysis.Engine,
	notifier *notify.Service,
	pool *taskpool.Pool,
	report config.ReportConfig,
	log *logger.Logger,
) *Handlers {
	return &Handlers{
		watchlist: watchlist,
		engine:    engine,
		notifier:  notifier,
		pool:      pool,
		report:    report,
		log:       log.With("component", "commands"),
	}
}

// RegisterAll wires every command into the registry. Registration order is
// the order commands appear in the Discord UI after synchronization.
func (h *Handlers) RegisterAll(registry *discord.Registry) {
	registry.Use(instrument)

	registry.MustRegister(discord.CommandConfig{
		Name:        "ping",
		Description: "检查机器人是否在线",
		Handler:     h.Ping,
	})

	registry.MustRegister(discord.CommandConfig{
		Name:        "watchlist_list",
		Description: "查看当前自选股列表",
		Handler:     h.WatchlistList,
	})

	registry.MustRegister(discord.CommandConfig{
		Name:        "watchlist_add",
		Description: "添加股票到自选列表",
		Options: []discord.Option{
			{Name: "code", Description: "6 位股票代码", Required: true},
			{Name: "name", Description: "股票名称", Required: false},
			{Name: "comment", Description: "备注", Required: false},
		},
		Handler: h.WatchlistAdd,
	})

	registry.MustRegister(discord.CommandConfig{
		Name:        "watchlist_remove",
		Description: "从自选列表移除股票",
		Options: []discord.Option{
			{Name: "code", Description: "6 位股票代码", Required: true},
		},
		Handler: h.WatchlistRemove,
	})

	registry.MustRegister(discord.CommandConfig{
		Name:        "analysis",
		Description: "立即分析指定股票",
		Options: []discord.Option{
			{Name: "code", Description: "6 位股票代码", Required: true},
		},
		Handler: h.Analysis,
	})

	registry.MustRegister(discord.CommandConfig{
		Name:        "market",
		Description: "生成今日大盘复盘报告",
		Handler:     h.Market,
	})
}

// instrument records per-command execution counts and durations
func instrument(next discord.CommandHandler) discord.CommandHandler {
	return func(cmdCtx *discord.CommandContext) error {
		start := time.Now()
		err := next(cmdCtx)
		metrics.CommandDuration.WithLabelValues(cmdCtx.Command).Observe(time.Since(start).Seconds())

		status := "success"
		if err != nil {
			var valErr *errors.ValidationError
			if errors.As(err, &valErr) {
				status = "validation_error"
			} else {
				status = "error"
			}
		}
		metrics.CommandExecutions.WithLabelValues(cmdCtx.Command, status).Inc()

		return err
	}
}

// Ping replies with the gateway round-trip latency
func (h *Handlers) Ping(cmdCtx *discord.CommandContext) error {
	ms := int64(math.Round(float64(cmdCtx.Latency()) / float64(time.Millisecond)))
	return cmdCtx.Reply.Ack(fmt.Sprintf("Pong! Latency: %dms", ms))
}

// WatchlistList shows the stored watchlist, falling back to the static
// config list when the store is empty.
func (h *Handlers) WatchlistList(cmdCtx *discord.CommandContext) error {
	if err := cmdCtx.Reply.AckWorking(); err != nil {
		return err
	}

	entries, err := h.watchlist.List(cmdCtx.Ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load watchlist")
	}

	if len(entries) == 0 {
		if fallback := h.watchlist.FallbackCodes(); len(fallback) > 0 {
			return cmdCtx.Reply.Send(fmt.Sprintf(
				"📅 数据库暂无自选股，当前配置文件加载: `%s`",
				strings.Join(fallback, ", "),
			))
		}
		return cmdCtx.Reply.Send("❌ 当前暂无自选股，请使用 `/watchlist_add` 添加")
	}

	lines := make([]string, 0, len(entries))
	for i, entry := range entries {
		line := fmt.Sprintf("%d. `%s`", i+1, entry.Code)
		if entry.Name != "" {
			line += fmt.Sprintf(" (%s)", entry.Name)
		}
		if entry.Comment != "" {
			line += fmt.Sprintf(" - *%s*", entry.Comment)
		}
		if !entry.CreatedAt.IsZero() {
			line += " · " + humanize.Time(entry.CreatedAt)
		}
		lines = append(lines, line)
	}

	return cmdCtx.Reply.SendEmbed(&discord.Embed{
		Title:       "📋 我的自选股清单",
		Description: strings.Join(lines, "\n"),
		Color:       watchlistColor,
		Footer:      fmt.Sprintf("共 %d 只", len(entries)),
	})
}

// WatchlistAdd validates the code and stores a new entry
func (h *Handlers) WatchlistAdd(cmdCtx *discord.CommandContext) error {
	code := cmdCtx.StringOption("code")
	name := cmdCtx.StringOption("name")
	comment := cmdCtx.StringOption("comment")

	if err := h.watchlist.Add(cmdCtx.Ctx, code, name, comment); err != nil {
		var valErr *errors.ValidationError
		if errors.As(err, &valErr) {
			return err
		}
		if errors.Is(err, errors.ErrAlreadyExists) {
			return cmdCtx.Reply.Ephemeral(fmt.Sprintf("❌ 添加失败，`%s` 已在自选列表中", code))
		}
		h.log.Errorw("Watchlist add failed", "code", code, "error", err)
		return cmdCtx.Reply.Ephemeral("❌ 添加失败，请查阅日志")
	}

	text := fmt.Sprintf("✅ 已添加自选股: `%s`", code)
	if name != "" {
		text += fmt.Sprintf(" (%s)", name)
	}
	return cmdCtx.Reply.Ack(text)
}

// WatchlistRemove deletes an entry by code
func (h *Handlers) WatchlistRemove(cmdCtx *discord.CommandContext) error {
	code := cmdCtx.StringOption("code")

	if err := h.watchlist.Remove(cmdCtx.Ctx, code); err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			h.log.Errorw("Watchlist remove failed", "code", code, "error", err)
		}
		return cmdCtx.Reply.Ephemeral(fmt.Sprintf("❌ 移除失败或未找到代码: `%s`", code))
	}

	return cmdCtx.Reply.Ack(fmt.Sprintf("🗑️ 已成功移除自选股: `%s`", code))
}

// Analysis runs a single-stock analysis on the worker pool and replies with
// a rendered embed. The successful result is also fanned out to the
// configured notification channels without blocking the reply.
func (h *Handlers) Analysis(cmdCtx *discord.CommandContext) error {
	code := cmdCtx.StringOption("code")

	if err := cmdCtx.Reply.Ack(fmt.Sprintf("🔍 正在启动针对 `%s` 的分析任务，请稍候...", code)); err != nil {
		return err
	}

	value, err := h.runBlocking("analysis:"+code, func() (interface{}, error) {
		return h.engine.ProcessSingleStock(cmdCtx.Ctx, code)
	})
	if err != nil {
		if errors.Is(err, errors.ErrEmptyResult) {
			return cmdCtx.Reply.Send(fmt.Sprintf("❌ 分析 `%s` 失败，请检查代码是否正确或查阅日志。", code))
		}
		return errors.Wrapf(err, "analysis of %s failed", code)
	}

	result := value.(*analysis.Result)

	if err := cmdCtx.Reply.SendEmbed(render.StockEmbed(result)); err != nil {
		return errors.Wrap(err, "failed to send analysis embed")
	}

	if h.notifier.ChannelCount() > 0 {
		go func() {
			report := h.notifier.GenerateDashboardReport([]*analysis.Result{result})
			h.notifier.Send(context.Background(), report)
		}()
	}

	return nil
}

// Market runs the market review on the worker pool and posts the report in
// channel-sized chunks. The full report goes out through fan-out untruncated.
func (h *Handlers) Market(cmdCtx *discord.CommandContext) error {
	if err := cmdCtx.Reply.Ack("📊 正在搜集市场情报并生成复盘报告..."); err != nil {
		return err
	}

	value, err := h.runBlocking("market_review", func() (interface{}, error) {
		return h.engine.MarketReview(cmdCtx.Ctx)
	})
	if err != nil {
		if errors.Is(err, errors.ErrEmptyResult) {
			return cmdCtx.Reply.Send("❌ 生成大盘报告失败。")
		}
		return errors.Wrap(err, "market review failed")
	}

	report := value.(string)

	chunks := render.PaginateReport(report, h.report.ChunkSize, h.report.SecondaryThreshold, h.report.MaxChunks)
	for _, chunk := range chunks {
		if err := cmdCtx.Reply.Send(chunk); err != nil {
			return errors.Wrap(err, "failed to send report chunk")
		}
	}

	if h.notifier.ChannelCount() > 0 {
		go func() {
			h.notifier.Send(context.Background(), h.notifier.TextReport("📊 大盘复盘报告", report))
		}()
	}

	return nil
}

// runBlocking executes fn on the worker pool and keeps the in-flight gauge
// accurate across the wait.
func (h *Handlers) runBlocking(label string, fn func() (interface{}, error)) (interface{}, error) {
	metrics.BridgeInFlight.Inc()
	defer metrics.BridgeInFlight.Dec()

	return h.pool.Run(label, fn)
}
