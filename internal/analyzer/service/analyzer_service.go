package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/internal/analyzer/dto"
	"golang-stock-insight/internal/analyzer/repository"
	"golang-stock-insight/internal/entity"
	"golang-stock-insight/pkg/cache"
	"golang-stock-insight/pkg/logger"
)

// AnalyzerService runs the full pipeline for one task: fetch, score, narrate,
// deliver. One call per task, executed on an orchestrator worker.
type AnalyzerService interface {
	Analyze(ctx context.Context, task *entity.AnalysisTask)
}

// NewAnalyzerService wires the pipeline. The AI repository may be nil; every
// narrative then degrades to the rule-based one.
func NewAnalyzerService(
	cfg *config.Config,
	store *cache.Store,
	marketData repository.MarketDataRepository,
	fundamentals repository.FundamentalRepository,
	news repository.NewsRepository,
	ai repository.AIRepository,
	technical TechnicalAnalyzer,
	fundamentalScorer FundamentalScorer,
	sentiment SentimentEngine,
	composite CompositeScorer,
	broadcaster Broadcaster,
	log *logger.Logger,
) AnalyzerService {
	return &analyzerService{
		cfg:               cfg,
		store:             store,
		marketData:        marketData,
		fundamentals:      fundamentals,
		news:              news,
		ai:                ai,
		technical:         technical,
		fundamentalScorer: fundamentalScorer,
		sentiment:         sentiment,
		composite:         composite,
		broadcaster:       broadcaster,
		logger:            log,
	}
}

type analyzerService struct {
	cfg               *config.Config
	store             *cache.Store
	marketData        repository.MarketDataRepository
	fundamentals      repository.FundamentalRepository
	news              repository.NewsRepository
	ai                repository.AIRepository
	technical         TechnicalAnalyzer
	fundamentalScorer FundamentalScorer
	sentiment         SentimentEngine
	composite         CompositeScorer
	broadcaster       Broadcaster
	logger            *logger.Logger
}

// fetched carries the joined results of the three concurrent category
// fetches. A nil field means that category failed.
type fetched struct {
	series     *entity.PriceSeries
	indicators *entity.FinancialIndicators
	newsItems  []entity.NewsItem
	newsOK     bool
	failures   []string
}

// Analyze drives the task state machine. ctx is cancelled when the owning
// client disconnects; shared cache fetches keep their own lifetime through
// the singleflight group, so other clients are unaffected.
func (s *analyzerService) Analyze(ctx context.Context, task *entity.AnalysisTask) {
	task.Transition(entity.TaskStateFetching)
	s.progress(task, 10, "fetching", "Fetching market data, fundamentals and news")

	data := s.fetchAll(ctx, task)
	if err := ctx.Err(); err != nil {
		task.Fail(err)
		return
	}
	if len(data.failures) == 3 {
		s.fail(task, "fetch", fmt.Errorf("all data categories failed: %v", data.failures))
		return
	}

	task.Transition(entity.TaskStateScoring)
	s.progress(task, 40, "scoring", "Computing indicator, fundamental and sentiment scores")

	report, err := s.score(task, data)
	if err != nil {
		s.fail(task, "scoring", err)
		return
	}
	s.broadcaster.Publish(task.ClientID, dto.NewStreamEvent(dto.EventScoreUpdate, dto.ScoreUpdateData{
		TaskID: task.ID,
		Symbol: task.Symbol,
		Scores: report.Scores,
	}))

	task.Transition(entity.TaskStateNarrating)
	s.progress(task, 70, "narrating", "Generating analysis narrative")

	if err := s.narrate(ctx, task, report); err != nil {
		task.Fail(err)
		return
	}

	s.broadcaster.Publish(task.ClientID, dto.NewStreamEvent(dto.EventFinalResult, report))
	task.Transition(entity.TaskStateDone)
	s.progress(task, 100, "done", "Analysis complete")
}

// fetchAll runs the three category fetches concurrently through the cache,
// each under its own timeout. A failure in one category never blocks the
// others.
func (s *analyzerService) fetchAll(ctx context.Context, task *entity.AnalysisTask) *fetched {
	key := fmt.Sprintf("%s:%s", task.Market, task.Symbol)
	data := &fetched{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	record := func(category string, err error) {
		mu.Lock()
		data.failures = append(data.failures, category)
		mu.Unlock()
		task.MarkPartial(category)
		s.logger.Warn("Category fetch failed",
			logger.StringField("task_id", task.ID),
			logger.StringField("category", category),
			logger.ErrorField(err),
		)
		s.broadcaster.Publish(task.ClientID, dto.NewStreamEvent(dto.EventLog, dto.LogData{
			Type:    "warning",
			Message: fmt.Sprintf("%s data unavailable for %s", category, task.Symbol),
		}))
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		fctx, cancel := context.WithTimeout(ctx, s.cfg.Analyzer.FetchTimeout)
		defer cancel()
		v, err := s.store.GetOrFetch(fctx, cache.CategoryPrice, key, func(fctx context.Context) (interface{}, error) {
			return s.marketData.GetPriceSeries(fctx, task.Symbol, task.Market, s.cfg.Analyzer.TechnicalPeriodDays)
		})
		if err != nil {
			record("price", err)
			return
		}
		mu.Lock()
		data.series = v.(*entity.PriceSeries)
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		fctx, cancel := context.WithTimeout(ctx, s.cfg.Analyzer.FetchTimeout)
		defer cancel()
		v, err := s.store.GetOrFetch(fctx, cache.CategoryFundamental, key, func(fctx context.Context) (interface{}, error) {
			return s.fundamentals.GetFinancialIndicators(fctx, task.Symbol, task.Market)
		})
		if err != nil {
			record("fundamental", err)
			return
		}
		mu.Lock()
		data.indicators = v.(*entity.FinancialIndicators)
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		fctx, cancel := context.WithTimeout(ctx, s.cfg.Analyzer.FetchTimeout)
		defer cancel()
		v, err := s.store.GetOrFetch(fctx, cache.CategoryNews, key, func(fctx context.Context) (interface{}, error) {
			return s.news.GetNews(fctx, task.Symbol, task.Market, s.cfg.Analyzer.MaxNewsCount)
		})
		if err != nil {
			record("news", err)
			return
		}
		mu.Lock()
		data.newsItems = v.([]entity.NewsItem)
		data.newsOK = true
		mu.Unlock()
	}()
	wg.Wait()

	return data
}

// score turns the fetched data into the report skeleton: sub-analyses,
// composite scores and data quality disclosure.
func (s *analyzerService) score(task *entity.AnalysisTask, data *fetched) (*dto.AnalysisReport, error) {
	report := &dto.AnalysisReport{
		TaskID:       task.ID,
		Symbol:       task.Symbol,
		Market:       task.Market,
		AnalysisDate: time.Now(),
	}

	technicalSub := SubScore{}
	if data.series != nil {
		analysis, err := s.technical.Analyze(data.series)
		if err != nil {
			s.logger.Warn("Technical analysis failed",
				logger.StringField("task_id", task.ID),
				logger.ErrorField(err),
			)
		} else {
			report.Technical = analysis
			report.PriceInfo = priceInfo(data.series, analysis)
			technicalSub = SubScore{Value: s.technical.Score(analysis), Available: true}
		}
	}

	fundamentalSub := SubScore{}
	if data.indicators != nil {
		analysis, err := s.fundamentalScorer.Score(data.indicators)
		if err != nil {
			s.logger.Warn("Fundamental scoring failed",
				logger.StringField("task_id", task.ID),
				logger.ErrorField(err),
			)
		} else {
			report.Fundamental = analysis
			fundamentalSub = SubScore{Value: analysis.Score, Available: true}
		}
	}

	sentimentSub := SubScore{}
	if data.newsOK {
		analysis := s.sentiment.Analyze(data.newsItems)
		report.Sentiment = analysis
		sentimentSub = SubScore{Value: s.sentiment.Score(analysis), Available: true}
	}

	scores, err := s.composite.Combine(technicalSub, fundamentalSub, sentimentSub)
	if err != nil {
		return nil, err
	}
	report.Scores = *scores

	report.DataQuality = dto.DataQuality{
		NewsCount:        len(data.newsItems),
		Partial:          len(task.PartialCategories()) > 0,
		FailedCategories: task.PartialCategories(),
	}
	if report.Fundamental != nil {
		report.DataQuality.IndicatorsUsed = report.Fundamental.IndicatorsUsed
	}
	return report, nil
}

// narrate streams the AI narrative to the client, degrading to the
// deterministic rule-based narrative when the whole chain fails. Only a
// client cancellation propagates as an error.
func (s *analyzerService) narrate(ctx context.Context, task *entity.AnalysisTask, report *dto.AnalysisReport) error {
	if s.ai == nil {
		report.Narrative = BuildRuleBasedNarrative(report)
		report.NarrativeBy = RuleBasedNarrativeProvider
		return nil
	}

	prompt := repository.BuildNarrativePrompt(report)
	onToken := func(token string) {
		s.broadcaster.Publish(task.ClientID, dto.NewStreamEvent(dto.EventAIToken, dto.AITokenData{
			TaskID:  task.ID,
			Content: token,
		}))
	}

	onReset := func() {
		s.broadcaster.Publish(task.ClientID, dto.NewStreamEvent(dto.EventAIToken, dto.AITokenData{
			TaskID: task.ID,
			Reset:  true,
		}))
	}

	var text, provider string
	var err error
	if namer, ok := s.ai.(repository.StreamNamer); ok {
		text, provider, err = namer.GenerateStreamNamed(ctx, prompt, onToken, onReset)
	} else {
		provider = s.ai.Name()
		text, err = s.ai.GenerateStream(ctx, prompt, onToken)
	}
	if err != nil {
		if repository.IsCancelled(err) || ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("All AI providers failed, using rule-based narrative",
			logger.StringField("task_id", task.ID),
			logger.ErrorField(err),
		)
		s.broadcaster.Publish(task.ClientID, dto.NewStreamEvent(dto.EventLog, dto.LogData{
			Type:    "warning",
			Message: "AI narrative unavailable, generated a rule-based summary instead",
		}))
		report.Narrative = BuildRuleBasedNarrative(report)
		report.NarrativeBy = RuleBasedNarrativeProvider
		return nil
	}

	report.Narrative = text
	report.NarrativeBy = provider
	return nil
}

func (s *analyzerService) progress(task *entity.AnalysisTask, percent int, stage, message string) {
	s.broadcaster.Publish(task.ClientID, dto.NewStreamEvent(dto.EventProgress, dto.ProgressData{
		TaskID:  task.ID,
		Symbol:  task.Symbol,
		Percent: percent,
		Stage:   stage,
		Message: message,
	}))
}

func (s *analyzerService) fail(task *entity.AnalysisTask, classification string, err error) {
	task.Fail(err)
	s.logger.Error("Analysis task failed",
		logger.StringField("task_id", task.ID),
		logger.StringField("symbol", task.Symbol),
		logger.ErrorField(err),
	)
	s.broadcaster.Publish(task.ClientID, dto.NewStreamEvent(dto.EventError, dto.ErrorData{
		TaskID:         task.ID,
		Symbol:         task.Symbol,
		Classification: classification,
		Error:          err.Error(),
	}))
}

// priceInfo summarizes the latest bar: price, day change, volume ratio and
// the daily-return volatility of the series, in percent.
func priceInfo(series *entity.PriceSeries, analysis *dto.TechnicalAnalysis) dto.PriceInfo {
	info := dto.PriceInfo{VolumeRatio: analysis.VolumeRatio}
	closes := series.Closes()
	n := len(closes)
	if n == 0 {
		return info
	}
	info.CurrentPrice = closes[n-1]
	if n > 1 && closes[n-2] != 0 {
		info.PriceChangePct = (closes[n-1] - closes[n-2]) / closes[n-2] * 100
	}
	if n > 2 {
		returns := make([]float64, 0, n-1)
		for i := 1; i < n; i++ {
			if closes[i-1] != 0 {
				returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
			}
		}
		if len(returns) > 0 {
			info.Volatility = stdDev(returns, mean(returns)) * 100
		}
	}
	return info
}
