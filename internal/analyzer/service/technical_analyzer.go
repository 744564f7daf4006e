package service

import (
	"fmt"
	"math"

	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/internal/analyzer/dto"
	"golang-stock-insight/internal/entity"
	"golang-stock-insight/pkg/utils"
)

// Signal curve constants for the 50-base technical score.
const (
	scoreBase          = 50.0
	scoreMATrend       = 20.0
	scoreRSIHealthy    = 10.0
	scoreRSIOversold   = 5.0
	scoreRSIOverbought = -5.0
	scoreMACDCross     = 15.0
	scoreBBMidBand     = 5.0
	scoreBBNearLower   = 10.0
	scoreBBNearUpper   = -5.0
	scoreVolumeSignal  = 10.0
)

// TechnicalAnalyzer computes technical indicators and the technical score for
// a price series. Pure and deterministic: same series, same result.
type TechnicalAnalyzer interface {
	Analyze(series *entity.PriceSeries) (*dto.TechnicalAnalysis, error)
	Score(analysis *dto.TechnicalAnalysis) float64
}

// NewTechnicalAnalyzer creates a new TechnicalAnalyzer.
func NewTechnicalAnalyzer(cfg config.Analyzer) TechnicalAnalyzer {
	return &technicalAnalyzer{cfg: cfg}
}

type technicalAnalyzer struct {
	cfg config.Analyzer
}

// Analyze computes the full indicator set. Indicators whose lookback exceeds
// the available series are listed in Omitted and left at their neutral value,
// never fabricated.
func (a *technicalAnalyzer) Analyze(series *entity.PriceSeries) (*dto.TechnicalAnalysis, error) {
	if series == nil || series.Len() == 0 {
		return nil, fmt.Errorf("empty price series")
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	closes := series.Closes()
	volumes := series.Volumes()
	latest := closes[len(closes)-1]

	result := &dto.TechnicalAnalysis{
		MATrend:           dto.MATrendMixed,
		RSI:               50,
		MACDSignal:        dto.MACDNeutral,
		BollingerPosition: 0.5,
		BollingerBreach:   dto.BollingerInside,
		VolumeRatio:       1,
		VolumeSignal:      dto.VolumeNeutral,
	}

	// Moving averages and trend classification.
	allAbove, allBelow := true, true
	computedAny := false
	for _, window := range a.cfg.MAWindows {
		if window > len(closes) {
			result.Omitted = append(result.Omitted, fmt.Sprintf("ma_%d", window))
			continue
		}
		value := mean(closes[len(closes)-window:])
		result.MovingAverages = append(result.MovingAverages, dto.MovingAverage{Window: window, Value: value})
		computedAny = true
		if latest <= value {
			allAbove = false
		}
		if latest >= value {
			allBelow = false
		}
	}
	switch {
	case !computedAny:
		result.MATrend = dto.MATrendMixed
	case allAbove:
		result.MATrend = dto.MATrendBullish
	case allBelow:
		result.MATrend = dto.MATrendBearish
	}

	// RSI, Wilder smoothing.
	if len(closes) > a.cfg.RSIWindow {
		result.RSI = rsi(closes, a.cfg.RSIWindow)
		result.Overbought = result.RSI > 70
		result.Oversold = result.RSI < 30
	} else {
		result.Omitted = append(result.Omitted, "rsi")
	}

	// MACD cross over the last two bars of (MACD - signal).
	if len(closes) >= a.cfg.MACDSlowSpan+a.cfg.MACDSignalSpan {
		result.MACDSignal = macdCross(closes, a.cfg.MACDFastSpan, a.cfg.MACDSlowSpan, a.cfg.MACDSignalSpan)
	} else {
		result.Omitted = append(result.Omitted, "macd")
	}

	// Bollinger position, clamped to [0,1]; breach flags carry the raw side.
	if len(closes) >= a.cfg.BollingerWindow {
		window := closes[len(closes)-a.cfg.BollingerWindow:]
		mid := mean(window)
		sd := stdDev(window, mid)
		upper := mid + a.cfg.BollingerStdDevs*sd
		lower := mid - a.cfg.BollingerStdDevs*sd
		if upper > lower {
			raw := (latest - lower) / (upper - lower)
			result.BollingerPosition = utils.Clamp(raw, 0, 1)
			switch {
			case raw > 1:
				result.BollingerBreach = dto.BollingerAboveUpper
			case raw < 0:
				result.BollingerBreach = dto.BollingerBelowLower
			}
		}
	} else {
		result.Omitted = append(result.Omitted, "bollinger")
	}

	// Volume ratio against the trailing average, with trend agreement.
	if len(volumes) > a.cfg.VolumeWindow {
		trailing := mean(volumes[len(volumes)-a.cfg.VolumeWindow-1 : len(volumes)-1])
		if trailing > 0 {
			result.VolumeRatio = volumes[len(volumes)-1] / trailing
		}
		priceUp := closes[len(closes)-1] > closes[len(closes)-2]
		result.VolumeUp = priceUp
		if result.VolumeRatio > 1 {
			agrees := (priceUp && result.MATrend == dto.MATrendBullish) ||
				(!priceUp && result.MATrend == dto.MATrendBearish)
			if agrees {
				result.VolumeSignal = dto.VolumeConfirmsTrend
			} else {
				result.VolumeSignal = dto.VolumeDivergence
			}
		}
	} else {
		result.Omitted = append(result.Omitted, "volume")
	}

	return result, nil
}

// Score aggregates the per-indicator signals additively from a base of 50 and
// clamps into [0,100].
func (a *technicalAnalyzer) Score(analysis *dto.TechnicalAnalysis) float64 {
	score := scoreBase

	switch analysis.MATrend {
	case dto.MATrendBullish:
		score += scoreMATrend
	case dto.MATrendBearish:
		score -= scoreMATrend
	}

	switch {
	case analysis.RSI >= 30 && analysis.RSI <= 70:
		score += scoreRSIHealthy
	case analysis.RSI < 30:
		score += scoreRSIOversold
	default:
		score += scoreRSIOverbought
	}

	switch analysis.MACDSignal {
	case dto.MACDBullishCross:
		score += scoreMACDCross
	case dto.MACDBearishCross:
		score -= scoreMACDCross
	}

	switch {
	case analysis.BollingerPosition >= 0.2 && analysis.BollingerPosition <= 0.8:
		score += scoreBBMidBand
	case analysis.BollingerPosition < 0.2:
		score += scoreBBNearLower
	default:
		score += scoreBBNearUpper
	}

	if analysis.VolumeSignal == dto.VolumeConfirmsTrend {
		if analysis.VolumeUp {
			score += scoreVolumeSignal
		} else {
			score -= scoreVolumeSignal
		}
	}

	return utils.Clamp(score, 0, 100)
}

// rsi computes the Wilder-smoothed relative strength index for the final bar:
// a seed average over the first window of deltas, then recursive smoothing
// over the remainder. A flat series yields 50, an all-gain series 100.
func rsi(closes []float64, window int) float64 {
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= window; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(window)
	avgLoss /= float64(window)

	n := float64(window)
	for i := window + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(n-1) + gain) / n
		avgLoss = (avgLoss*(n-1) + loss) / n
	}

	if avgGain == 0 && avgLoss == 0 {
		return 50
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// macdCross classifies the last two bars of (MACD - signal): a sign transition
// from non-positive to positive is a bullish cross, the inverse bearish.
func macdCross(closes []float64, fastSpan, slowSpan, signalSpan int) string {
	fast := ema(closes, fastSpan)
	slow := ema(closes, slowSpan)
	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = fast[i] - slow[i]
	}
	signal := ema(macdLine, signalSpan)

	n := len(closes)
	prev := macdLine[n-2] - signal[n-2]
	cur := macdLine[n-1] - signal[n-1]
	switch {
	case prev <= 0 && cur > 0:
		return dto.MACDBullishCross
	case prev >= 0 && cur < 0:
		return dto.MACDBearishCross
	default:
		return dto.MACDNeutral
	}
}

// ema computes an exponential moving average series with alpha 2/(span+1),
// seeded from the first value.
func ema(values []float64, span int) []float64 {
	alpha := 2.0 / (float64(span) + 1)
	out := make([]float64, len(values))
	for i, v := range values {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = alpha*v + (1-alpha)*out[i-1]
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
