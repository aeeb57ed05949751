package commands

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adminlove520/daily-stock-analysis/internal/adapters/config"
	"github.com/adminlove520/daily-stock-analysis/internal/domain/analysis"
	domain "github.com/adminlove520/daily-stock-analysis/internal/domain/watchlist"
	"github.com/adminlove520/daily-stock-analysis/internal/notify"
	watchlistsvc "github.com/adminlove520/daily-stock-analysis/internal/services/watchlist"
	"github.com/adminlove520/daily-stock-analysis/pkg/discord"
	"github.com/adminlove520/daily-stock-analysis/pkg/errors"
	"github.com/adminlove520/daily-stock-analysis/pkg/logger"
	"github.com/adminlove520/daily-stock-analysis/pkg/taskpool"
)

// recordingReplier captures every reply a handler makes
type recordingReplier struct {
	acks       []string
	ephemerals []string
	sends      []string
	embeds     []*discord.Embed
	deferred   bool
}

func (r *recordingReplier) Ack(text string) error { r.acks = append(r.acks, text); return nil }
func (r *recordingReplier) AckWorking() error     { r.deferred = true; return nil }
func (r *recordingReplier) Ephemeral(text string) error {
	r.ephemerals = append(r.ephemerals, text)
	return nil
}
func (r *recordingReplier) Send(text string) error { r.sends = append(r.sends, text); return nil }
func (r *recordingReplier) SendEmbed(embed *discord.Embed) error {
	r.embeds = append(r.embeds, embed)
	return nil
}

var _ discord.Replier = (*recordingReplier)(nil)

// stubEngine returns canned results
type stubEngine struct {
	result    *analysis.Result
	resultErr error
	report    string
	reportErr error
}

func (e *stubEngine) ProcessSingleStock(ctx context.Context, code string) (*analysis.Result, error) {
	return e.result, e.resultErr
}

func (e *stubEngine) MarketReview(ctx context.Context) (string, error) {
	return e.report, e.reportErr
}

var _ analysis.Engine = (*stubEngine)(nil)

// memoryRepo is a minimal in-memory watchlist store
type memoryRepo struct {
	entries []*domain.Entry
}

func (r *memoryRepo) GetAll(ctx context.Context) ([]*domain.Entry, error) { return r.entries, nil }

func (r *memoryRepo) Add(ctx context.Context, entry *domain.Entry) error {
	for _, existing := range r.entries {
		if existing.Code == entry.Code {
			return errors.ErrAlreadyExists
		}
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memoryRepo) Remove(ctx context.Context, code string) error {
	for i, existing := range r.entries {
		if existing.Code == code {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return errors.ErrNotFound
}

// countingChannel counts fan-out pushes
type countingChannel struct {
	mu     sync.Mutex
	pushes int
}

func (c *countingChannel) Name() string { return "counting" }

func (c *countingChannel) Push(ctx context.Context, report *notify.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushes++
	return nil
}

func (c *countingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushes
}

type fixture struct {
	handlers *Handlers
	repo     *memoryRepo
	engine   *stubEngine
	channel  *countingChannel
}

func newFixture(fallback []string) *fixture {
	log := logger.Get()
	repo := &memoryRepo{}
	engine := &stubEngine{}
	channel := &countingChannel{}

	handlers := NewHandlers(
		watchlistsvc.NewService(repo, fallback, log),
		engine,
		notify.NewService([]notify.Channel{channel}, log),
		taskpool.New(2, log),
		config.ReportConfig{ChunkSize: 1900, SecondaryThreshold: 3800, MaxChunks: 2},
		log,
	)

	return &fixture{handlers: handlers, repo: repo, engine: engine, channel: channel}
}

func newCommandContext(command string, options map[string]string) (*discord.CommandContext, *recordingReplier) {
	if options == nil {
		options = map[string]string{}
	}
	reply := &recordingReplier{}
	return &discord.CommandContext{
		Ctx:          context.Background(),
		InvocationID: "test",
		Command:      command,
		Options:      options,
		UserID:       "user-1",
		Latency:      func() time.Duration { return 42 * time.Millisecond },
		Reply:        reply,
	}, reply
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPing(t *testing.T) {
	f := newFixture(nil)
	cmdCtx, reply := newCommandContext("ping", nil)

	require.NoError(t, f.handlers.Ping(cmdCtx))

	require.Len(t, reply.acks, 1)
	assert.Equal(t, "Pong! Latency: 42ms", reply.acks[0])
}

func TestWatchlistList_EmptyWithFallback(t *testing.T) {
	f := newFixture([]string{"600519", "000001"})
	cmdCtx, reply := newCommandContext("watchlist_list", nil)

	require.NoError(t, f.handlers.WatchlistList(cmdCtx))

	assert.True(t, reply.deferred)
	require.Len(t, reply.sends, 1)
	assert.Equal(t, "📅 数据库暂无自选股，当前配置文件加载: `600519, 000001`", reply.sends[0])
}

func TestWatchlistList_EmptyNoFallback(t *testing.T) {
	f := newFixture(nil)
	cmdCtx, reply := newCommandContext("watchlist_list", nil)

	require.NoError(t, f.handlers.WatchlistList(cmdCtx))

	require.Len(t, reply.sends, 1)
	assert.Equal(t, "❌ 当前暂无自选股，请使用 `/watchlist_add` 添加", reply.sends[0])
}

func TestWatchlistList_RendersEntries(t *testing.T) {
	f := newFixture(nil)
	f.repo.entries = []*domain.Entry{
		{Code: "600519", Name: "贵州茅台", Comment: "白酒龙头", CreatedAt: time.Now().Add(-24 * time.Hour)},
		{Code: "000001", Name: "平安银行"},
	}

	cmdCtx, reply := newCommandContext("watchlist_list", nil)
	require.NoError(t, f.handlers.WatchlistList(cmdCtx))

	require.Len(t, reply.embeds, 1)
	embed := reply.embeds[0]
	assert.Equal(t, "📋 我的自选股清单", embed.Title)
	assert.Contains(t, embed.Description, "1. `600519` (贵州茅台) - *白酒龙头*")
	assert.Contains(t, embed.Description, "2. `000001` (平安银行)")
	assert.Equal(t, "共 2 只", embed.Footer)
}

func TestWatchlistAdd_Success(t *testing.T) {
	f := newFixture(nil)
	cmdCtx, reply := newCommandContext("watchlist_add", map[string]string{
		"code": "600519",
		"name": "贵州茅台",
	})

	require.NoError(t, f.handlers.WatchlistAdd(cmdCtx))

	require.Len(t, reply.acks, 1)
	assert.Equal(t, "✅ 已添加自选股: `600519` (贵州茅台)", reply.acks[0])
	require.Len(t, f.repo.entries, 1)
}

func TestWatchlistAdd_InvalidCode(t *testing.T) {
	f := newFixture(nil)
	cmdCtx, reply := newCommandContext("watchlist_add", map[string]string{"code": "abc123"})

	err := f.handlers.WatchlistAdd(cmdCtx)

	var valErr *errors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Empty(t, f.repo.entries)
	assert.Empty(t, reply.acks)
}

func TestWatchlistAdd_Duplicate(t *testing.T) {
	f := newFixture(nil)
	f.repo.entries = []*domain.Entry{{Code: "600519"}}

	cmdCtx, reply := newCommandContext("watchlist_add", map[string]string{"code": "600519"})
	require.NoError(t, f.handlers.WatchlistAdd(cmdCtx))

	require.Len(t, reply.ephemerals, 1)
	assert.Equal(t, "❌ 添加失败，`600519` 已在自选列表中", reply.ephemerals[0])
}

func TestWatchlistRemove_Success(t *testing.T) {
	f := newFixture(nil)
	f.repo.entries = []*domain.Entry{{Code: "600519"}}

	cmdCtx, reply := newCommandContext("watchlist_remove", map[string]string{"code": "600519"})
	require.NoError(t, f.handlers.WatchlistRemove(cmdCtx))

	require.Len(t, reply.acks, 1)
	assert.Equal(t, "🗑️ 已成功移除自选股: `600519`", reply.acks[0])
	assert.Empty(t, f.repo.entries)
}

func TestWatchlistRemove_NotFound(t *testing.T) {
	f := newFixture(nil)

	cmdCtx, reply := newCommandContext("watchlist_remove", map[string]string{"code": "600519"})
	require.NoError(t, f.handlers.WatchlistRemove(cmdCtx))

	require.Len(t, reply.ephemerals, 1)
	assert.Equal(t, "❌ 移除失败或未找到代码: `600519`", reply.ephemerals[0])
}

func TestAnalysis_Success(t *testing.T) {
	f := newFixture(nil)
	f.engine.result = &analysis.Result{
		Code:            "600519",
		Name:            "贵州茅台",
		SentimentScore:  78,
		OperationAdvice: "持有",
		AnalysisSummary: "基本面稳健",
	}

	cmdCtx, reply := newCommandContext("analysis", map[string]string{"code": "600519"})
	require.NoError(t, f.handlers.Analysis(cmdCtx))

	require.Len(t, reply.acks, 1)
	assert.Equal(t, "🔍 正在启动针对 `600519` 的分析任务，请稍候...", reply.acks[0])

	require.Len(t, reply.embeds, 1)
	assert.Contains(t, reply.embeds[0].Title, "贵州茅台 (600519)")

	// Fan-out happens off the reply path
	waitFor(t, func() bool { return f.channel.count() == 1 })
}

func TestAnalysis_EmptyResultIsSoftFailure(t *testing.T) {
	f := newFixture(nil)
	f.engine.resultErr = errors.ErrEmptyResult

	cmdCtx, reply := newCommandContext("analysis", map[string]string{"code": "999999"})
	require.NoError(t, f.handlers.Analysis(cmdCtx))

	require.Len(t, reply.sends, 1)
	assert.Equal(t, "❌ 分析 `999999` 失败，请检查代码是否正确或查阅日志。", reply.sends[0])
	assert.Empty(t, reply.embeds)

	// No fan-out on failure
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.channel.count())
}

func TestAnalysis_EngineErrorPropagates(t *testing.T) {
	f := newFixture(nil)
	f.engine.resultErr = errors.ErrEngineUnavailable

	cmdCtx, reply := newCommandContext("analysis", map[string]string{"code": "600519"})
	err := f.handlers.Analysis(cmdCtx)

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEngineUnavailable)
	assert.Empty(t, reply.embeds)
}

func TestMarket_Success(t *testing.T) {
	f := newFixture(nil)
	f.engine.report = "今日大盘震荡收涨。"

	cmdCtx, reply := newCommandContext("market", nil)
	require.NoError(t, f.handlers.Market(cmdCtx))

	require.Len(t, reply.acks, 1)
	assert.Equal(t, "📊 正在搜集市场情报并生成复盘报告...", reply.acks[0])

	require.Len(t, reply.sends, 1)
	assert.Equal(t, "今日大盘震荡收涨。", reply.sends[0])

	waitFor(t, func() bool { return f.channel.count() == 1 })
}

func TestMarket_LongReportChunkedWithNotice(t *testing.T) {
	f := newFixture(nil)
	f.engine.report = strings.Repeat("市", 5000)

	cmdCtx, reply := newCommandContext("market", nil)
	require.NoError(t, f.handlers.Market(cmdCtx))

	require.Len(t, reply.sends, 2)
	assert.True(t, strings.HasSuffix(reply.sends[1], "...(余下内容已通过 Webhook 推送)"))

	waitFor(t, func() bool { return f.channel.count() == 1 })
}

func TestMarket_EmptyReportIsSoftFailure(t *testing.T) {
	f := newFixture(nil)
	f.engine.reportErr = errors.ErrEmptyResult

	cmdCtx, reply := newCommandContext("market", nil)
	require.NoError(t, f.handlers.Market(cmdCtx))

	require.Len(t, reply.sends, 1)
	assert.Equal(t, "❌ 生成大盘报告失败。", reply.sends[0])
}

func TestRegisterAll_CommandSet(t *testing.T) {
	f := newFixture(nil)
	registry := discord.NewRegistry(logger.Get())

	f.handlers.RegisterAll(registry)

	configs := registry.Commands()
	names := make([]string, 0, len(configs))
	for _, cfg := range configs {
		names = append(names, cfg.Name)
	}

	assert.Equal(t, []string{
		"ping",
		"watchlist_list",
		"watchlist_add",
		"watchlist_remove",
		"analysis",
		"market",
	}, names)
}
