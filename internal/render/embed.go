package render

import (
	"fmt"
	"strings"

	"github.com/adminlove520/daily-stock-analysis/internal/domain/analysis"
	"github.com/adminlove520/daily-stock-analysis/pkg/discord"
)

// Severity colors, selected purely from the sentiment score.
const (
	ColorPositive = 0x2ECC71
	ColorNegative = 0xE74C3C
	ColorNeutral  = 0x95A5A6
)

// Defaults substituted for absent dashboard sub-fields.
const (
	defaultTimeSensitivity = "本周内"
	defaultVolumeStatus    = "平量"
	defaultChipHealth      = "一般"
	defaultPricePoint      = "N/A"

	footerText = "由 AI 股票分析系统生成"
)

// ScoreColor maps a sentiment score to a severity color.
// score >= 70 is positive, score <= 40 is negative, everything between is
// neutral. Boundaries are inclusive.
func ScoreColor(score int) int {
	switch {
	case score >= 70:
		return ColorPositive
	case score <= 40:
		return ColorNegative
	default:
		return ColorNeutral
	}
}

// StockEmbed renders one analysis result into a rich embed. The function is
// pure: the same result always yields byte-identical output.
func StockEmbed(result *analysis.Result) *discord.Embed {
	embed := &discord.Embed{
		Title:       fmt.Sprintf("%s %s (%s) · %s", titleEmoji(result), result.Name, result.Code, result.OperationAdvice),
		Description: bodyText(result),
		Color:       ScoreColor(result.SentimentScore),
		Footer:      footerText,
	}

	embed.Fields = append(embed.Fields, discord.EmbedField{
		Name:   "🌡️ 情绪评分",
		Value:  fmt.Sprintf("%d/100", result.SentimentScore),
		Inline: true,
	})

	dash := result.Dashboard

	if cc := coreConclusion(dash); cc != nil {
		if cc.CompositeScore != nil {
			embed.Fields = append(embed.Fields, discord.EmbedField{
				Name:   "🎯 综合评分",
				Value:  fmt.Sprintf("%.1f/100", *cc.CompositeScore),
				Inline: true,
			})
		}
	}

	if result.TrendPrediction != "" {
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:   "📈 趋势预判",
			Value:  result.TrendPrediction,
			Inline: true,
		})
	}

	if cc := coreConclusion(dash); cc != nil {
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:   "⏱️ 时效性",
			Value:  orDefault(cc.TimeSensitivity, defaultTimeSensitivity),
			Inline: true,
		})
	}

	if sp := sniperPoints(dash); sp != nil {
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name: "🎯 狙击点位",
			Value: strings.Join([]string{
				"理想买点: " + orDefault(sp.IdealBuy, defaultPricePoint),
				"止损位: " + orDefault(sp.StopLoss, defaultPricePoint),
				"止盈位: " + orDefault(sp.TakeProfit, defaultPricePoint),
			}, "\n"),
		})
	}

	if field, ok := technicalField(dash); ok {
		embed.Fields = append(embed.Fields, field)
	}

	if ps := positionStrategy(dash); ps != nil {
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name: "📊 仓位策略",
			Value: strings.Join([]string{
				"建议仓位: " + orDefault(ps.SuggestedPosition, defaultPricePoint),
				"风险控制: " + orDefault(ps.RiskControl, defaultPricePoint),
			}, "\n"),
		})
	}

	if field, ok := riskField(result); ok {
		embed.Fields = append(embed.Fields, field)
	}

	return embed
}

// titleEmoji picks the title emoji from the advice label, falling back to
// the sentiment score when the advice is unrecognized.
func titleEmoji(result *analysis.Result) string {
	advice := result.OperationAdvice
	switch {
	case strings.Contains(advice, "买"):
		return "🚀"
	case strings.Contains(advice, "卖"), strings.Contains(advice, "回避"):
		return "🛑"
	case result.SentimentScore >= 70:
		return "🔥"
	case result.SentimentScore <= 40:
		return "⚠️"
	default:
		return "👀"
	}
}

// bodyText prefers the engine's own one-line conclusion over the generic summary
func bodyText(result *analysis.Result) string {
	if cc := coreConclusion(result.Dashboard); cc != nil && cc.OneLineDiagnosis != "" {
		return cc.OneLineDiagnosis
	}
	return result.AnalysisSummary
}

// technicalField combines the three independent data-perspective sub-fields.
// Included when at least one is present; absent labels take their defaults,
// an absent bias is simply left out.
func technicalField(dash *analysis.Dashboard) (discord.EmbedField, bool) {
	if dash == nil || dash.DataPerspective == nil {
		return discord.EmbedField{}, false
	}

	dp := dash.DataPerspective
	if dp.MABiasPct == nil && dp.VolumeStatus == "" && dp.ChipHealth == "" {
		return discord.EmbedField{}, false
	}

	lines := make([]string, 0, 3)
	if dp.MABiasPct != nil {
		lines = append(lines, fmt.Sprintf("均线乖离: %+.2f%%", *dp.MABiasPct))
	}
	lines = append(lines, "量能状态: "+orDefault(dp.VolumeStatus, defaultVolumeStatus))
	lines = append(lines, "筹码健康度: "+orDefault(dp.ChipHealth, defaultChipHealth))

	return discord.EmbedField{
		Name:  "📐 技术与筹码",
		Value: strings.Join(lines, "\n"),
	}, true
}

// riskField renders up to the first three dashboard risk alerts as bullets,
// falling back to the flat risk warning. Omitted when neither exists.
func riskField(result *analysis.Result) (discord.EmbedField, bool) {
	if dash := result.Dashboard; dash != nil && dash.Intelligence != nil && len(dash.Intelligence.RiskAlerts) > 0 {
		alerts := dash.Intelligence.RiskAlerts
		if len(alerts) > 3 {
			alerts = alerts[:3]
		}

		lines := make([]string, 0, len(alerts))
		for _, alert := range alerts {
			lines = append(lines, "• "+alert)
		}

		return discord.EmbedField{
			Name:  "⚠️ 风险提示",
			Value: strings.Join(lines, "\n"),
		}, true
	}

	if result.RiskWarning != "" {
		return discord.EmbedField{
			Name:  "⚠️ 风险提示",
			Value: result.RiskWarning,
		}, true
	}

	return discord.EmbedField{}, false
}

func coreConclusion(dash *analysis.Dashboard) *analysis.CoreConclusion {
	if dash == nil {
		return nil
	}
	return dash.CoreConclusion
}

func sniperPoints(dash *analysis.Dashboard) *analysis.SniperPoints {
	if dash == nil || dash.BattlePlan == nil {
		return nil
	}
	return dash.BattlePlan.SniperPoints
}

func positionStrategy(dash *analysis.Dashboard) *analysis.PositionStrategy {
	if dash == nil || dash.BattlePlan == nil {
		return nil
	}
	return dash.BattlePlan.PositionStrategy
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
