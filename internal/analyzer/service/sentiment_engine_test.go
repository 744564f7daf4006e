package service

import (
	"fmt"
	"testing"
	"time"

	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/internal/entity"

	"github.com/stretchr/testify/assert"
)

func testLexicon() config.Lexicon {
	return config.Lexicon{
		PositiveTerms: []string{"growth", "beat", "上涨"},
		NegativeTerms: []string{"loss", "miss", "下跌"},
		CategoryWeights: map[string]float64{
			"company_news":    1.0,
			"announcement":    1.2,
			"research_report": 0.9,
		},
	}
}

func newsItem(id, title string, category entity.NewsCategory) entity.NewsItem {
	return entity.NewsItem{
		ID:        id,
		Timestamp: time.Now(),
		Source:    "test",
		Title:     title,
		Category:  category,
	}
}

func testSentimentEngine() SentimentEngine {
	return NewSentimentEngine(config.Analyzer{MaxNewsCount: 100, MaxNewsItemLength: 2000}, testLexicon())
}

func TestSentimentEngine_ZeroItems(t *testing.T) {
	engine := testSentimentEngine()

	result := engine.Analyze(nil)
	assert.Equal(t, 0, result.TotalAnalyzed)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Equal(t, SentimentNeutral, result.Trend)
	assert.Equal(t, 50.0, engine.Score(result), "no news must map to the neutral composite input")
}

func TestSentimentEngine_UnanimousPositive(t *testing.T) {
	engine := testSentimentEngine()

	items := []entity.NewsItem{
		newsItem("1", "Revenue growth beat expectations", entity.NewsCategoryCompany),
		newsItem("2", "Strong growth quarter", entity.NewsCategoryAnnouncement),
	}
	result := engine.Analyze(items)

	assert.InDelta(t, 1.0, result.Overall, 1e-9)
	assert.Equal(t, SentimentVeryPositive, result.Trend)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9, "zero dispersion means full confidence")
	assert.Equal(t, 2, result.TotalAnalyzed)
	assert.InDelta(t, 1.0, result.PositiveRatio, 1e-9)
	assert.InDelta(t, 0.0, result.NegativeRatio, 1e-9)
	assert.InDelta(t, 100, engine.Score(result), 1e-9)
}

func TestSentimentEngine_MixedPolarity(t *testing.T) {
	engine := testSentimentEngine()

	items := []entity.NewsItem{
		newsItem("1", "growth", entity.NewsCategoryCompany),
		newsItem("2", "loss", entity.NewsCategoryCompany),
	}
	result := engine.Analyze(items)

	assert.InDelta(t, 0.0, result.Overall, 1e-9)
	assert.Equal(t, SentimentNeutral, result.Trend)
	assert.InDelta(t, 0.5, result.PositiveRatio, 1e-9)
	assert.InDelta(t, 0.5, result.NegativeRatio, 1e-9)
	assert.Less(t, result.Confidence, 1.0, "disagreement lowers confidence")
	assert.InDelta(t, 50, engine.Score(result), 1e-9)
}

func TestSentimentEngine_PerItemScoreBalancesHits(t *testing.T) {
	engine := testSentimentEngine()

	// Two positive hits and one negative hit: (2-1)/(2+1).
	items := []entity.NewsItem{
		newsItem("1", "growth beat but some loss", entity.NewsCategoryCompany),
	}
	result := engine.Analyze(items)
	assert.InDelta(t, 1.0/3.0, result.Overall, 1e-9)
}

func TestSentimentEngine_CategoryWeighting(t *testing.T) {
	engine := testSentimentEngine()

	// Positive announcement (weight 1.2) against negative research (0.9):
	// overall = (1*1.2 - 1*0.9) / 2.1.
	items := []entity.NewsItem{
		newsItem("1", "growth", entity.NewsCategoryAnnouncement),
		newsItem("2", "loss", entity.NewsCategoryResearch),
	}
	result := engine.Analyze(items)
	assert.InDelta(t, 0.3/2.1, result.Overall, 1e-9)
	assert.InDelta(t, 1.0, result.ByCategory["announcement"], 1e-9)
	assert.InDelta(t, -1.0, result.ByCategory["research_report"], 1e-9)
}

func TestSentimentEngine_ChineseLexicon(t *testing.T) {
	engine := testSentimentEngine()

	items := []entity.NewsItem{
		newsItem("1", "股价上涨创新高", entity.NewsCategoryCompany),
		newsItem("2", "业绩下跌", entity.NewsCategoryCompany),
	}
	result := engine.Analyze(items)
	assert.InDelta(t, 0.5, result.PositiveRatio, 1e-9)
	assert.InDelta(t, 0.5, result.NegativeRatio, 1e-9)
}

func TestSentimentEngine_CapsItemCount(t *testing.T) {
	engine := NewSentimentEngine(config.Analyzer{MaxNewsCount: 3, MaxNewsItemLength: 2000}, testLexicon())

	var items []entity.NewsItem
	for i := 0; i < 10; i++ {
		items = append(items, newsItem(fmt.Sprintf("%d", i), "growth", entity.NewsCategoryCompany))
	}
	result := engine.Analyze(items)
	assert.Equal(t, 3, result.TotalAnalyzed)
}
