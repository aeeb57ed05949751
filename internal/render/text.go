package render

import (
	"fmt"
	"strings"

	"github.com/adminlove520/daily-stock-analysis/internal/domain/analysis"
)

// StockText renders one result as a compact markdown summary for channels
// that cannot display embeds (webhook fan-out, Telegram). Pure like
// StockEmbed.
func StockText(result *analysis.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 **%s (%s) 分析报告**\n", result.Name, result.Code)
	fmt.Fprintf(&b, "💡 建议: %s\n", result.OperationAdvice)
	fmt.Fprintf(&b, "🌡️ 情绪: %d/100\n", result.SentimentScore)
	fmt.Fprintf(&b, "📈 趋势: %s\n", result.TrendPrediction)
	fmt.Fprintf(&b, "\n📝 **摘要**: %s", bodyText(result))

	if field, ok := riskField(result); ok {
		b.WriteString("\n\n⚠️ **风险提示**\n")
		b.WriteString(field.Value)
	}

	return b.String()
}
