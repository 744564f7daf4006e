package service

import (
	"fmt"

	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/internal/analyzer/dto"
)

// Category names used in weight disclosure and missing-category reporting.
const (
	CategoryTechnical   = "technical"
	CategoryFundamental = "fundamental"
	CategorySentiment   = "sentiment"
)

// SubScore is one category's input to the composite: the score itself and
// whether the category's data was actually available.
type SubScore struct {
	Value     float64
	Available bool
}

// CompositeScorer blends the three sub-scores into the final score and
// recommendation.
type CompositeScorer interface {
	Combine(technical, fundamental, sentiment SubScore) (*dto.Scores, error)
}

// NewCompositeScorer validates the weights and threshold ladder up front so
// invalid configuration can never surface at request time.
func NewCompositeScorer(weights config.Weights, rec config.Recommendation) (CompositeScorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &compositeScorer{weights: weights, rec: rec}, nil
}

type compositeScorer struct {
	weights config.Weights
	rec     config.Recommendation
}

// Combine computes the weighted sum over available categories. When a
// category is missing its weight is redistributed proportionally over the
// rest and the applied weights are disclosed; a missing category defaults the
// sub-score slot to the neutral 50 for display only.
func (s *compositeScorer) Combine(technical, fundamental, sentiment SubScore) (*dto.Scores, error) {
	type part struct {
		name   string
		weight float64
		sub    SubScore
	}
	parts := []part{
		{CategoryTechnical, s.weights.Technical, technical},
		{CategoryFundamental, s.weights.Fundamental, fundamental},
		{CategorySentiment, s.weights.Sentiment, sentiment},
	}

	availableWeight := 0.0
	var missing []string
	for _, p := range parts {
		if p.sub.Available {
			availableWeight += p.weight
		} else {
			missing = append(missing, p.name)
		}
	}
	if availableWeight == 0 {
		return nil, fmt.Errorf("no scoring categories available")
	}

	composite := 0.0
	applied := make(map[string]float64, len(parts))
	for _, p := range parts {
		if !p.sub.Available {
			applied[p.name] = 0
			continue
		}
		w := p.weight / availableWeight
		applied[p.name] = w
		composite += w * p.sub.Value
	}

	return &dto.Scores{
		Technical:      displayScore(technical),
		Fundamental:    displayScore(fundamental),
		Sentiment:      displayScore(sentiment),
		Composite:      composite,
		Recommendation: s.recommend(composite),
		Partial:        len(missing) > 0,
		Missing:        missing,
		AppliedWeights: applied,
	}, nil
}

// recommend walks the descending threshold ladder. The ladder is validated to
// end at 0, so every composite in [0,100] lands on a label.
func (s *compositeScorer) recommend(composite float64) string {
	for _, th := range s.rec.Thresholds {
		if composite >= th.Min {
			return th.Label
		}
	}
	return s.rec.Thresholds[len(s.rec.Thresholds)-1].Label
}

func displayScore(sub SubScore) float64 {
	if !sub.Available {
		return 50
	}
	return sub.Value
}
