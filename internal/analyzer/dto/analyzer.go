package dto

import (
	"time"

	"golang-stock-insight/internal/entity"
)

// Trend labels for the moving average stack.
const (
	MATrendBullish = "bullish"
	MATrendBearish = "bearish"
	MATrendMixed   = "mixed"
)

// MACD signal labels over the last two bars.
const (
	MACDBullishCross = "bullish_cross"
	MACDBearishCross = "bearish_cross"
	MACDNeutral      = "neutral"
)

// Volume signal labels.
const (
	VolumeConfirmsTrend = "confirms_trend"
	VolumeDivergence    = "divergence"
	VolumeNeutral       = "neutral"
)

// Bollinger breach labels.
const (
	BollingerInside     = "inside"
	BollingerAboveUpper = "above_upper"
	BollingerBelowLower = "below_lower"
)

// MovingAverage is one computed MA value.
type MovingAverage struct {
	Window int     `json:"window"`
	Value  float64 `json:"value"`
}

// TechnicalAnalysis carries the computed indicator set for one symbol.
// Indicators whose lookback exceeds the available series are listed in
// Omitted instead of being fabricated.
type TechnicalAnalysis struct {
	MATrend           string          `json:"ma_trend"`
	MovingAverages    []MovingAverage `json:"moving_averages"`
	RSI               float64         `json:"rsi"`
	Overbought        bool            `json:"overbought"`
	Oversold          bool            `json:"oversold"`
	MACDSignal        string          `json:"macd_signal"`
	BollingerPosition float64         `json:"bb_position"`
	BollingerBreach   string          `json:"bb_breach"`
	VolumeRatio       float64         `json:"volume_ratio"`
	VolumeSignal      string          `json:"volume_signal"`
	VolumeUp          bool            `json:"volume_up"`
	Omitted           []string        `json:"omitted,omitempty"`
}

// SentimentAnalysis carries the aggregate sentiment metrics for a news set.
type SentimentAnalysis struct {
	Overall       float64            `json:"overall_sentiment"`
	Trend         string             `json:"sentiment_trend"`
	Confidence    float64            `json:"confidence_score"`
	TotalAnalyzed int                `json:"total_analyzed"`
	PositiveRatio float64            `json:"positive_ratio"`
	NegativeRatio float64            `json:"negative_ratio"`
	ByCategory    map[string]float64 `json:"sentiment_by_category,omitempty"`
}

// FundamentalAnalysis carries the fundamental score and its coverage.
type FundamentalAnalysis struct {
	Score          float64 `json:"score"`
	IndicatorsUsed int     `json:"indicators_used"`
	IndicatorTotal int     `json:"indicator_total"`
}

// Scores is the composite scoring result. Composite is the weighted sum of
// the three sub-scores; when categories are missing the weights actually
// applied are disclosed in AppliedWeights.
type Scores struct {
	Technical      float64            `json:"technical"`
	Fundamental    float64            `json:"fundamental"`
	Sentiment      float64            `json:"sentiment"`
	Composite      float64            `json:"comprehensive"`
	Recommendation string             `json:"recommendation"`
	Partial        bool               `json:"partial"`
	Missing        []string           `json:"missing_categories,omitempty"`
	AppliedWeights map[string]float64 `json:"applied_weights"`
}

// PriceInfo summarizes the latest bar for display and prompting.
type PriceInfo struct {
	CurrentPrice   float64 `json:"current_price"`
	PriceChangePct float64 `json:"price_change"`
	VolumeRatio    float64 `json:"volume_ratio"`
	Volatility     float64 `json:"volatility"`
}

// DataQuality discloses how complete the underlying data was.
type DataQuality struct {
	IndicatorsUsed   int      `json:"financial_indicators_count"`
	NewsCount        int      `json:"total_news_count"`
	Partial          bool     `json:"partial"`
	FailedCategories []string `json:"failed_categories,omitempty"`
}

// AnalysisReport is the final result delivered for one task.
type AnalysisReport struct {
	TaskID       string               `json:"task_id"`
	Symbol       string               `json:"symbol"`
	Market       entity.Market        `json:"market"`
	AnalysisDate time.Time            `json:"analysis_date"`
	PriceInfo    PriceInfo            `json:"price_info"`
	Technical    *TechnicalAnalysis   `json:"technical_analysis,omitempty"`
	Sentiment    *SentimentAnalysis   `json:"sentiment_analysis,omitempty"`
	Fundamental  *FundamentalAnalysis `json:"fundamental_analysis,omitempty"`
	Scores       Scores               `json:"scores"`
	Narrative    string               `json:"ai_analysis"`
	NarrativeBy  string               `json:"ai_provider"`
	DataQuality  DataQuality          `json:"data_quality"`
}
