package telegram

import (
	"fmt"
	"strings"

	"options-income-screener/internal/entity"
)

// FormatPickMessage formats a single screened pick into a Markdown string for Telegram.
func FormatPickMessage(pick *entity.ScreenedPick) string {
	var sb strings.Builder

	var title, emoji string
	switch pick.Strategy {
	case entity.StrategyCoveredCall:
		title = "Covered Call Pick"
		emoji = "📞"
	case entity.StrategyCashSecuredPut:
		title = "Cash-Secured Put Pick"
		emoji = "🛡"
	default:
		title = "Options Pick"
		emoji = "📊"
	}

	sb.WriteString(fmt.Sprintf("%s **%s: %s**\n", emoji, title, pick.Symbol))
	sb.WriteString(fmt.Sprintf("🏆 Score: %.3f (rank #%d)\n\n", pick.Score, pick.Rank))

	// Contract
	sb.WriteString("📄 **Contract:**\n")
	sb.WriteString(fmt.Sprintf("• 🎯 Strike: $%.2f (spot $%.2f)\n", pick.Strike, pick.SpotPrice))
	sb.WriteString(fmt.Sprintf("• 📅 Expiry: %s (%d DTE)\n", pick.Expiry.Format("2006-01-02"), pick.DTE))
	sb.WriteString(fmt.Sprintf("• 💵 Premium (mid): $%.2f\n", pick.Mid))
	sb.WriteString(fmt.Sprintf("• 📈 Annualized ROI: %.1f%%\n", pick.ROIAnnual*100))
	sb.WriteString(fmt.Sprintf("• 🌡 IV Rank: %.0f | Delta: %.2f\n", pick.IVRank, pick.Delta))
	sb.WriteString(fmt.Sprintf("• 🔁 OI: %d | Volume: %d\n", pick.OpenInt, pick.Volume))
	if pick.MarginOfSafety != nil {
		sb.WriteString(fmt.Sprintf("• 🛡 Margin of Safety: %.1f%%\n", *pick.MarginOfSafety*100))
	}
	sb.WriteString("\n")

	// Context
	sb.WriteString("🔧 **Context:**\n")
	sb.WriteString(fmt.Sprintf("• Trend Strength: %.2f\n", pick.TrendStrength))
	if pick.EarningsDaysUntil != nil {
		sb.WriteString(fmt.Sprintf("• 📅 Earnings in %d days\n", *pick.EarningsDaysUntil))
	}
	sb.WriteString(fmt.Sprintf("• Sentiment Signal: %s\n", pick.SentimentSignal))

	if pick.Rationale != nil && *pick.Rationale != "" {
		sb.WriteString(fmt.Sprintf("\n🧠 **Rationale:**\n_%s_\n", *pick.Rationale))
	}

	return sb.String()
}

// FormatMonitoringAlert formats a monitoring alert into a Markdown string for Telegram.
func FormatMonitoringAlert(alert *entity.MonitoringAlert) string {
	var sb strings.Builder

	var emoji string
	switch alert.Severity {
	case entity.AlertSeverityCritical:
		emoji = "🚨"
	case entity.AlertSeverityWarning:
		emoji = "⚠️"
	default:
		emoji = "ℹ️"
	}

	sb.WriteString(fmt.Sprintf("%s **[%s] %s**\n", emoji, strings.ToUpper(string(alert.Severity)), alert.AlertType))
	sb.WriteString(fmt.Sprintf("💬 %s\n", alert.Message))
	sb.WriteString(fmt.Sprintf("📅 %s\n", alert.CreatedAt.Format("2006-01-02 15:04:05")))
	return sb.String()
}

// FormatDailySummary formats a pipeline run plus its top picks into multiple
// Markdown strings for Telegram, splitting so no message exceeds the API limit.
func FormatDailySummary(run *entity.PipelineRun, picks []entity.ScreenedPick) []string {
	const maxLen = 4090
	var messages []string
	var currentMessage strings.Builder
	part := 1

	startNewPart := func() {
		currentMessage.Reset()
		var header string
		if part == 1 {
			header = "📊 *Daily Options Income Screen* 📊\n\n"
		} else {
			header = fmt.Sprintf("---*Daily Options Income Screen Part %d*---\n\n", part)
		}
		currentMessage.WriteString(header)
	}

	startNewPart()

	var statusIcon string
	switch run.Status {
	case entity.RunStatusSuccess:
		statusIcon = "✅"
	case entity.RunStatusPartial:
		statusIcon = "🟡"
	default:
		statusIcon = "🔴"
	}
	currentMessage.WriteString(fmt.Sprintf("%s *Run:* %s\n", statusIcon, run.Status))
	currentMessage.WriteString(fmt.Sprintf("📈 *Symbols:* %d ok / %d failed of %d\n", run.SymbolsSucceeded, run.SymbolsFailed, run.SymbolsAttempted))
	currentMessage.WriteString(fmt.Sprintf("⏱ *Duration:* %.0fs\n\n", run.DurationSeconds))

	if len(picks) == 0 {
		currentMessage.WriteString("_Tidak ada pick yang lolos screening hari ini._\n")
		return []string{currentMessage.String()}
	}

	for _, p := range picks {
		var entryBuilder strings.Builder
		entryBuilder.WriteString(fmt.Sprintf("📈 *- - - - - %s (%s) - - - - -*\n", p.Symbol, strings.ToUpper(string(p.Strategy))))
		entryBuilder.WriteString(fmt.Sprintf("🎯 *Strike:* $%.2f exp %s\n", p.Strike, p.Expiry.Format("2006-01-02")))
		entryBuilder.WriteString(fmt.Sprintf("💵 *Premium:* $%.2f | *ROI/yr:* %.1f%%\n", p.Mid, p.ROIAnnual*100))
		entryBuilder.WriteString(fmt.Sprintf("🏆 *Score:* %.3f\n\n", p.Score))

		entryString := entryBuilder.String()
		if currentMessage.Len()+len(entryString) > maxLen {
			messages = append(messages, currentMessage.String())
			part++
			startNewPart()
		}
		currentMessage.WriteString(entryString)
	}

	messages = append(messages, currentMessage.String())
	return messages
}
