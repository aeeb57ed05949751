package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adminlove520/daily-stock-analysis/internal/domain/analysis"
	"github.com/adminlove520/daily-stock-analysis/internal/metrics"
	"github.com/adminlove520/daily-stock-analysis/internal/render"
	"github.com/adminlove520/daily-stock-analysis/pkg/logger"
)

// Report is a consolidated notification payload built from one or more
// analysis results.
type Report struct {
	Title   string
	Body    string
	Results []*analysis.Result
}

// Channel delivers a report to one configured destination
type Channel interface {
	Name() string
	Push(ctx context.Context, report *Report) error
}

// Service fans a report out to every configured channel. Delivery is
// best-effort: failures are logged and counted, never propagated, so a dead
// webhook cannot break the interactive reply that already went out.
type Service struct {
	channels []Channel
	log      *logger.Logger
}

// NewService creates a fan-out service over the given channels
func NewService(channels []Channel, log *logger.Logger) *Service {
	return &Service{
		channels: channels,
		log:      log.With("component", "notify"),
	}
}

// GenerateDashboardReport consolidates results into one report
func (s *Service) GenerateDashboardReport(results []*analysis.Result) *Report {
	sections := make([]string, 0, len(results))
	for _, result := range results {
		sections = append(sections, render.StockText(result))
	}

	return &Report{
		Title:   fmt.Sprintf("📊 A股智能分析报告 (%d 只)", len(results)),
		Body:    strings.Join(sections, "\n\n———\n\n"),
		Results: results,
	}
}

// TextReport wraps an already-rendered plain-text report (market review)
func (s *Service) TextReport(title, body string) *Report {
	return &Report{Title: title, Body: body}
}

// Send pushes the report to all channels. It never returns an error.
func (s *Service) Send(ctx context.Context, report *Report) {
	for _, channel := range s.channels {
		start := time.Now()

		if err := channel.Push(ctx, report); err != nil {
			metrics.FanoutDeliveries.WithLabelValues(channel.Name(), "error").Inc()
			s.log.Errorw("Fan-out delivery failed",
				"channel", channel.Name(),
				"error", err,
			)
			continue
		}

		metrics.FanoutDeliveries.WithLabelValues(channel.Name(), "success").Inc()
		s.log.Debugw("Fan-out delivered",
			"channel", channel.Name(),
			"duration", time.Since(start),
		)
	}
}

// ChannelCount returns how many channels are configured
func (s *Service) ChannelCount() int {
	return len(s.channels)
}
