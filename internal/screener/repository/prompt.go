package repository

import (
	"fmt"
	"strings"

	"options-income-screener/internal/entity"
)

// BuildRationalePrompt builds the prompt asking for one short rationale per pick.
func BuildRationalePrompt(picks []entity.ScreenedPick) string {
	var sb strings.Builder

	sb.WriteString(`You are an options income strategist. For each candidate below, write a 2-3 sentence rationale explaining why the contract is attractive for premium selling, citing the concrete numbers given. Be factual, no hype.

Respond ONLY with JSON in this exact shape:
{"rationales": [{"pick_id": <id>, "rationale": "<text>"}]}

Candidates:
`)

	for _, p := range picks {
		strategy := "covered call"
		if p.Strategy == entity.StrategyCashSecuredPut {
			strategy = "cash-secured put"
		}
		sb.WriteString(fmt.Sprintf("- pick_id=%d %s on %s: strike $%.2f exp %s (%d DTE), premium $%.2f, annualized ROI %.1f%%, delta %.2f, IV rank %.0f, trend strength %.2f",
			p.ID, strategy, p.Symbol, p.Strike, p.Expiry.Format("2006-01-02"), p.DTE,
			p.Mid, p.ROIAnnual*100, p.Delta, p.IVRank, p.TrendStrength))
		if p.MarginOfSafety != nil {
			sb.WriteString(fmt.Sprintf(", margin of safety %.1f%%", *p.MarginOfSafety*100))
		}
		if p.EarningsDaysUntil != nil {
			sb.WriteString(fmt.Sprintf(", earnings in %d days", *p.EarningsDaysUntil))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
