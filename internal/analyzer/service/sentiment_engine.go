package service

import (
	"strings"

	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/internal/analyzer/dto"
	"golang-stock-insight/internal/entity"
	"golang-stock-insight/pkg/utils"
)

// Sentiment trend labels, from most negative to most positive.
const (
	SentimentVeryNegative = "very_negative"
	SentimentNegative     = "negative"
	SentimentNeutral      = "neutral"
	SentimentPositive     = "positive"
	SentimentVeryPositive = "very_positive"
)

// SentimentEngine scores a news collection with lexicon-based polarity.
type SentimentEngine interface {
	Analyze(items []entity.NewsItem) *dto.SentimentAnalysis
	Score(analysis *dto.SentimentAnalysis) float64
}

// NewSentimentEngine creates an engine over the configured lexicon. The
// lexicon is read-only after construction.
func NewSentimentEngine(cfg config.Analyzer, lexicon config.Lexicon) SentimentEngine {
	positive := make([]string, len(lexicon.PositiveTerms))
	for i, t := range lexicon.PositiveTerms {
		positive[i] = strings.ToLower(t)
	}
	negative := make([]string, len(lexicon.NegativeTerms))
	for i, t := range lexicon.NegativeTerms {
		negative[i] = strings.ToLower(t)
	}
	return &sentimentEngine{
		cfg:             cfg,
		positive:        positive,
		negative:        negative,
		categoryWeights: lexicon.CategoryWeights,
	}
}

type sentimentEngine struct {
	cfg             config.Analyzer
	positive        []string
	negative        []string
	categoryWeights map[string]float64
}

// Analyze caps the input at MaxNewsCount newest items, truncates bodies, and
// aggregates per-item polarity into the overall metrics. Zero items is the
// explicit degenerate case: neutral with confidence 0, surfaced through
// TotalAnalyzed.
func (e *sentimentEngine) Analyze(items []entity.NewsItem) *dto.SentimentAnalysis {
	if e.cfg.MaxNewsCount > 0 && len(items) > e.cfg.MaxNewsCount {
		items = items[:e.cfg.MaxNewsCount]
	}
	if len(items) == 0 {
		return &dto.SentimentAnalysis{Trend: SentimentNeutral}
	}

	scores := make([]float64, 0, len(items))
	weightedSum, weightTotal := 0.0, 0.0
	positives, negatives := 0, 0
	categorySum := map[string]float64{}
	categoryCount := map[string]int{}

	for _, item := range items {
		body := item.Body
		if e.cfg.MaxNewsItemLength > 0 {
			body = utils.Truncate(body, e.cfg.MaxNewsItemLength)
		}
		score := e.itemScore(item.Title + " " + body)
		scores = append(scores, score)

		weight := 1.0
		if w, ok := e.categoryWeights[string(item.Category)]; ok {
			weight = w
		}
		weightedSum += score * weight
		weightTotal += weight

		if score > 0 {
			positives++
		} else if score < 0 {
			negatives++
		}
		categorySum[string(item.Category)] += score
		categoryCount[string(item.Category)]++
	}

	overall := weightedSum / weightTotal
	byCategory := make(map[string]float64, len(categorySum))
	for cat, sum := range categorySum {
		byCategory[cat] = sum / float64(categoryCount[cat])
	}

	return &dto.SentimentAnalysis{
		Overall:       overall,
		Trend:         trendLabel(overall),
		Confidence:    confidence(scores),
		TotalAnalyzed: len(items),
		PositiveRatio: float64(positives) / float64(len(items)),
		NegativeRatio: float64(negatives) / float64(len(items)),
		ByCategory:    byCategory,
	}
}

// Score rescales overall sentiment from [-1,1] to the composite's [0,100].
func (e *sentimentEngine) Score(analysis *dto.SentimentAnalysis) float64 {
	if analysis == nil || analysis.TotalAnalyzed == 0 {
		return 50
	}
	return (analysis.Overall + 1) * 50
}

// itemScore counts lexicon hits in the text and maps them to a signed score
// in [-1,1]. No hits means neutral, not negative.
func (e *sentimentEngine) itemScore(text string) float64 {
	lowered := strings.ToLower(text)
	pos, neg := 0, 0
	for _, term := range e.positive {
		pos += strings.Count(lowered, term)
	}
	for _, term := range e.negative {
		neg += strings.Count(lowered, term)
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

// trendLabel buckets overall sentiment into five trend labels.
func trendLabel(overall float64) string {
	switch {
	case overall >= 0.5:
		return SentimentVeryPositive
	case overall >= 0.1:
		return SentimentPositive
	case overall > -0.1:
		return SentimentNeutral
	case overall > -0.5:
		return SentimentNegative
	default:
		return SentimentVeryNegative
	}
}

// confidence is the inverse of dispersion across per-item scores: 1/(1+sigma)
// clamped to [0,1]. Unanimous items score high, scattered ones low.
func confidence(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	m := mean(scores)
	sigma := stdDev(scores, m)
	return utils.Clamp(1/(1+sigma), 0, 1)
}
