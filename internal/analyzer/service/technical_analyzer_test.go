package service

import (
	"testing"
	"time"

	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/internal/analyzer/dto"
	"golang-stock-insight/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultAnalyzerConfig() config.Analyzer {
	return config.Analyzer{
		TechnicalPeriodDays: 180,
		MAWindows:           []int{5, 10, 20, 60},
		RSIWindow:           14,
		MACDFastSpan:        12,
		MACDSlowSpan:        26,
		MACDSignalSpan:      9,
		BollingerWindow:     20,
		BollingerStdDevs:    2,
		VolumeWindow:        20,
	}
}

func seriesFromCloses(closes []float64, volume float64) *entity.PriceSeries {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]entity.Candle, len(closes))
	for i, c := range closes {
		candles[i] = entity.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    volume,
		}
	}
	return &entity.PriceSeries{Symbol: "600519", Market: entity.MarketAStock, Candles: candles}
}

func TestTechnicalAnalyzer_FlatSeries(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	analyzer := NewTechnicalAnalyzer(defaultAnalyzerConfig())

	result, err := analyzer.Analyze(seriesFromCloses(closes, 1000))
	require.NoError(t, err)

	assert.Equal(t, dto.MATrendMixed, result.MATrend, "flat price sits on every MA")
	assert.InDelta(t, 50, result.RSI, 1e-9, "flat series has no gains or losses")
	assert.False(t, result.Overbought)
	assert.False(t, result.Oversold)
	assert.Contains(t, result.Omitted, "ma_60")
	assert.Contains(t, result.Omitted, "macd")
}

func TestTechnicalAnalyzer_RisingSeries(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	analyzer := NewTechnicalAnalyzer(defaultAnalyzerConfig())

	result, err := analyzer.Analyze(seriesFromCloses(closes, 1000))
	require.NoError(t, err)

	assert.Equal(t, dto.MATrendBullish, result.MATrend)
	assert.InDelta(t, 100, result.RSI, 1e-9, "all-gain series pins RSI at 100")
	assert.True(t, result.Overbought)
	assert.NotEqual(t, dto.MACDBearishCross, result.MACDSignal)
	assert.Empty(t, result.Omitted)
}

func TestTechnicalAnalyzer_RSIScaleInvariance(t *testing.T) {
	closes := make([]float64, 40)
	v := 100.0
	for i := range closes {
		// Deterministic wobble, no randomness.
		if i%3 == 0 {
			v += 2.5
		} else {
			v -= 0.9
		}
		closes[i] = v
	}
	scaled := make([]float64, len(closes))
	for i, c := range closes {
		scaled[i] = c * 7
	}

	analyzer := NewTechnicalAnalyzer(defaultAnalyzerConfig())
	a, err := analyzer.Analyze(seriesFromCloses(closes, 1000))
	require.NoError(t, err)
	b, err := analyzer.Analyze(seriesFromCloses(scaled, 1000))
	require.NoError(t, err)

	assert.InDelta(t, a.RSI, b.RSI, 1e-9, "RSI must not depend on price scale")
}

func TestTechnicalAnalyzer_Deterministic(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 50 + float64(i%7) - float64(i%3)
	}
	analyzer := NewTechnicalAnalyzer(defaultAnalyzerConfig())

	first, err := analyzer.Analyze(seriesFromCloses(closes, 500))
	require.NoError(t, err)
	second, err := analyzer.Analyze(seriesFromCloses(closes, 500))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, analyzer.Score(first), analyzer.Score(second))
}

func TestMACDCross(t *testing.T) {
	// Hand-checkable spans: fast EMA degenerates to the raw series, so the
	// sign of (MACD - signal) flips exactly on the last bar.
	bullish := macdCross([]float64{10, 10, 10, 9, 12}, 1, 2, 2)
	assert.Equal(t, dto.MACDBullishCross, bullish)

	bearish := macdCross([]float64{10, 10, 10, 11, 8}, 1, 2, 2)
	assert.Equal(t, dto.MACDBearishCross, bearish)

	neutral := macdCross([]float64{10, 10, 10, 10, 10}, 1, 2, 2)
	assert.Equal(t, dto.MACDNeutral, neutral)
}

func TestTechnicalAnalyzer_VolumeConfirmsTrend(t *testing.T) {
	cfg := defaultAnalyzerConfig()
	cfg.MAWindows = []int{2, 3}
	cfg.RSIWindow = 3
	cfg.BollingerWindow = 3
	cfg.VolumeWindow = 3

	closes := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
	series := seriesFromCloses(closes, 1000)
	series.Candles[len(series.Candles)-1].Volume = 3000

	result, err := NewTechnicalAnalyzer(cfg).Analyze(series)
	require.NoError(t, err)

	assert.Equal(t, dto.MATrendBullish, result.MATrend)
	assert.Greater(t, result.VolumeRatio, 1.0)
	assert.Equal(t, dto.VolumeConfirmsTrend, result.VolumeSignal)
	assert.True(t, result.VolumeUp)
}

func TestTechnicalAnalyzer_ScoreExtremes(t *testing.T) {
	analyzer := NewTechnicalAnalyzer(defaultAnalyzerConfig())

	allBullish := &dto.TechnicalAnalysis{
		MATrend:           dto.MATrendBullish,
		RSI:               50,
		MACDSignal:        dto.MACDBullishCross,
		BollingerPosition: 0.5,
		VolumeSignal:      dto.VolumeConfirmsTrend,
		VolumeUp:          true,
	}
	assert.Equal(t, 100.0, analyzer.Score(allBullish))

	allBearish := &dto.TechnicalAnalysis{
		MATrend:           dto.MATrendBearish,
		RSI:               80,
		MACDSignal:        dto.MACDBearishCross,
		BollingerPosition: 0.9,
		VolumeSignal:      dto.VolumeConfirmsTrend,
		VolumeUp:          false,
	}
	assert.Equal(t, 0.0, analyzer.Score(allBearish))
}

func TestTechnicalAnalyzer_ShortSeriesOmitsEverything(t *testing.T) {
	analyzer := NewTechnicalAnalyzer(defaultAnalyzerConfig())

	result, err := analyzer.Analyze(seriesFromCloses([]float64{10, 11, 12}, 100))
	require.NoError(t, err)

	assert.Equal(t, dto.MATrendMixed, result.MATrend)
	assert.Contains(t, result.Omitted, "rsi")
	assert.Contains(t, result.Omitted, "macd")
	assert.Contains(t, result.Omitted, "bollinger")
	assert.Contains(t, result.Omitted, "volume")
}

func TestTechnicalAnalyzer_EmptySeries(t *testing.T) {
	analyzer := NewTechnicalAnalyzer(defaultAnalyzerConfig())
	_, err := analyzer.Analyze(&entity.PriceSeries{Symbol: "600519"})
	require.Error(t, err)
}
