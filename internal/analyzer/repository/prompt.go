package repository

import (
	"fmt"
	"strings"

	"golang-stock-insight/internal/analyzer/dto"
)

// BuildNarrativePrompt renders the structured analysis result into the
// prompt sent to whichever narrative backend wins the fallback chain.
func BuildNarrativePrompt(report *dto.AnalysisReport) string {
	var b strings.Builder

	b.WriteString("You are a senior global equity analyst. Based on the following structured data, write a deep analysis of the stock.\n\n")

	b.WriteString(fmt.Sprintf(`**Basic information:**
- Symbol: %s
- Market: %s
- Current price: %.2f
- Price change: %.2f%%
- Volume ratio: %.2f
- Volatility: %.2f%%

`, report.Symbol, report.Market, report.PriceInfo.CurrentPrice, report.PriceInfo.PriceChangePct, report.PriceInfo.VolumeRatio, report.PriceInfo.Volatility))

	if t := report.Technical; t != nil {
		b.WriteString(fmt.Sprintf(`**Technical analysis:**
- MA trend: %s
- RSI: %.1f
- MACD signal: %s
- Bollinger position: %.2f
- Volume signal: %s

`, t.MATrend, t.RSI, t.MACDSignal, t.BollingerPosition, t.VolumeSignal))
	}

	if f := report.Fundamental; f != nil {
		b.WriteString(fmt.Sprintf("**Fundamentals:** score %.1f/100 from %d of %d indicators.\n\n",
			f.Score, f.IndicatorsUsed, f.IndicatorTotal))
	}

	if s := report.Sentiment; s != nil {
		b.WriteString(fmt.Sprintf(`**Market sentiment:**
- Overall sentiment: %.3f
- Trend: %s
- Confidence: %.2f
- News analyzed: %d

`, s.Overall, s.Trend, s.Confidence, s.TotalAnalyzed))
	}

	b.WriteString(fmt.Sprintf(`**Composite scores:**
- Technical: %.1f/100
- Fundamental: %.1f/100
- Sentiment: %.1f/100
- Composite: %.1f/100
- Recommendation: %s

`, report.Scores.Technical, report.Scores.Fundamental, report.Scores.Sentiment, report.Scores.Composite, report.Scores.Recommendation))

	if report.Scores.Partial {
		b.WriteString(fmt.Sprintf("Note: data for the following categories was unavailable and the remaining weights were renormalized: %s.\n\n",
			strings.Join(report.Scores.Missing, ", ")))
	}

	b.WriteString(`**Requirements:**
1. Assess the market environment and liquidity characteristics for this exchange.
2. Weigh the technical, fundamental, and sentiment evidence against each other, calling out conflicts.
3. Give a concrete strategy: entry timing, risk controls, and holding horizon.
4. Stay objective and note the key risks that would invalidate the thesis.

Answer in professional, plain language. Do not fabricate data beyond what is provided above.`)

	return b.String()
}
