package service

import (
	"fmt"

	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/internal/analyzer/dto"
	"golang-stock-insight/internal/entity"
	"golang-stock-insight/pkg/utils"
)

// FundamentalScorer maps a financial indicator set onto a 0-100 score.
type FundamentalScorer interface {
	Score(indicators *entity.FinancialIndicators) (*dto.FundamentalAnalysis, error)
}

// NewFundamentalScorer creates a scorer from the configured curves.
func NewFundamentalScorer(cfg config.Fundamental) FundamentalScorer {
	curves := make(map[entity.IndicatorName]config.Curve, len(cfg.Curves))
	for _, c := range cfg.Curves {
		curves[entity.IndicatorName(c.Indicator)] = c
	}
	return &fundamentalScorer{curves: curves}
}

type fundamentalScorer struct {
	curves map[entity.IndicatorName]config.Curve
}

// Score averages the per-indicator partial scores over the indicators
// actually present. Missing indicators are excluded, never counted as zero.
func (s *fundamentalScorer) Score(indicators *entity.FinancialIndicators) (*dto.FundamentalAnalysis, error) {
	if indicators == nil {
		return nil, fmt.Errorf("no financial indicators")
	}

	sum := 0.0
	used := 0
	for _, name := range entity.IndicatorVocabulary {
		value, present := indicators.Get(name)
		if !present {
			continue
		}
		curve, ok := s.curves[name]
		if !ok {
			continue
		}
		sum += curveScore(curve, value)
		used++
	}
	if used == 0 {
		return nil, fmt.Errorf("no usable financial indicators for %s", indicators.Symbol)
	}

	return &dto.FundamentalAnalysis{
		Score:          sum / float64(used),
		IndicatorsUsed: used,
		IndicatorTotal: len(entity.IndicatorVocabulary),
	}, nil
}

// curveScore ramps linearly from 0 at Worst to 100 at Best and clamps beyond
// the anchors. A curve with Worst > Best scores lower values higher.
func curveScore(c config.Curve, value float64) float64 {
	if c.Best == c.Worst {
		return 50
	}
	t := (value - c.Worst) / (c.Best - c.Worst)
	return utils.Clamp(t, 0, 1) * 100
}
