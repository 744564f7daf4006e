package service

import (
	"fmt"
	"strings"

	"golang-stock-insight/internal/analyzer/dto"
	"golang-stock-insight/internal/entity"
)

// RuleBasedNarrativeProvider is the name reported when the deterministic
// narrative replaces an AI-generated one.
const RuleBasedNarrativeProvider = "rule_based"

// BuildRuleBasedNarrative assembles a deterministic narrative from the scored
// report. It is the degradation path when no AI provider is configured or the
// whole fallback chain fails; the analysis still completes.
func BuildRuleBasedNarrative(report *dto.AnalysisReport) string {
	var b strings.Builder

	b.WriteString("## Composite Assessment\n\n")
	if desc := marketDescription(report.Market); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "%s scores %.1f/100 overall, blending technicals, fundamentals and news sentiment.\n\n", report.Symbol, report.Scores.Composite)
	fmt.Fprintf(&b, "- Technical: %.1f/100\n", report.Scores.Technical)
	fmt.Fprintf(&b, "- Fundamental: %.1f/100\n", report.Scores.Fundamental)
	fmt.Fprintf(&b, "- Sentiment: %.1f/100\n", report.Scores.Sentiment)
	if report.Scores.Partial {
		fmt.Fprintf(&b, "\nData was incomplete for: %s. The remaining weights were renormalized.\n", strings.Join(report.Scores.Missing, ", "))
	}

	if report.Technical != nil {
		b.WriteString("\n## Technical Picture\n\n")
		fmt.Fprintf(&b, "- MA trend: %s\n", report.Technical.MATrend)
		fmt.Fprintf(&b, "- RSI: %.1f%s\n", report.Technical.RSI, rsiNote(report.Technical))
		fmt.Fprintf(&b, "- MACD: %s\n", report.Technical.MACDSignal)
		fmt.Fprintf(&b, "- Bollinger position: %.2f (%s)\n", report.Technical.BollingerPosition, report.Technical.BollingerBreach)
		fmt.Fprintf(&b, "- Volume: %.2fx trailing average, %s\n", report.Technical.VolumeRatio, report.Technical.VolumeSignal)
		fmt.Fprintf(&b, "\nTechnical read: %s\n", strengthLabel(report.Scores.Technical))
	}

	if report.Fundamental != nil {
		b.WriteString("\n## Financial Health\n\n")
		fmt.Fprintf(&b, "%d of %d financial indicators were available.\n", report.Fundamental.IndicatorsUsed, report.Fundamental.IndicatorTotal)
		fmt.Fprintf(&b, "Financial health: %s\n", strengthLabel(report.Fundamental.Score))
	}

	if report.Sentiment != nil {
		b.WriteString("\n## Market Sentiment\n\n")
		if report.Sentiment.TotalAnalyzed == 0 {
			b.WriteString("No recent news was available; sentiment defaulted to neutral with zero confidence.\n")
		} else {
			fmt.Fprintf(&b, "Based on %d news items:\n", report.Sentiment.TotalAnalyzed)
			fmt.Fprintf(&b, "- Trend: %s\n", report.Sentiment.Trend)
			fmt.Fprintf(&b, "- Overall sentiment: %.3f\n", report.Sentiment.Overall)
			fmt.Fprintf(&b, "- Confidence: %.0f%%\n", report.Sentiment.Confidence*100)
		}
	}

	b.WriteString("\n## Recommendation\n\n")
	fmt.Fprintf(&b, "%s. This is a deterministic rule-based summary generated without an AI provider; treat it as a starting point, not advice.\n", capitalize(report.Scores.Recommendation))

	return b.String()
}

func marketDescription(market entity.Market) string {
	switch market {
	case entity.MarketAStock:
		return "**Market:** China A-shares (CNY, T+1 settlement, ±10% daily price limit)."
	case entity.MarketHKStock:
		return "**Market:** Hong Kong (HKD, T+0 settlement, no daily price limit)."
	case entity.MarketUSStock:
		return "**Market:** United States (USD, T+0 settlement, pre/post-market sessions)."
	default:
		return ""
	}
}

func rsiNote(t *dto.TechnicalAnalysis) string {
	switch {
	case t.Overbought:
		return " (overbought)"
	case t.Oversold:
		return " (oversold)"
	default:
		return ""
	}
}

func strengthLabel(score float64) string {
	switch {
	case score >= 70:
		return "strong"
	case score >= 50:
		return "neutral"
	default:
		return "weak"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
