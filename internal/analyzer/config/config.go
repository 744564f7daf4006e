package config

import (
	"fmt"
	"math"
	"time"

	"golang-stock-insight/pkg/cache"
	"golang-stock-insight/pkg/config"
)

const weightEpsilon = 1e-6

// Analyzer holds the scoring pipeline configuration.
type Analyzer struct {
	TechnicalPeriodDays int           `mapstructure:"technical_period_days"`
	MAWindows           []int         `mapstructure:"ma_windows"`
	RSIWindow           int           `mapstructure:"rsi_window"`
	MACDFastSpan        int           `mapstructure:"macd_fast_span"`
	MACDSlowSpan        int           `mapstructure:"macd_slow_span"`
	MACDSignalSpan      int           `mapstructure:"macd_signal_span"`
	BollingerWindow     int           `mapstructure:"bollinger_window"`
	BollingerStdDevs    float64       `mapstructure:"bollinger_std_devs"`
	VolumeWindow        int           `mapstructure:"volume_window"`
	MaxNewsCount        int           `mapstructure:"max_news_count"`
	MaxNewsItemLength   int           `mapstructure:"max_news_item_length"`
	MaxConcurrentTasks  int           `mapstructure:"max_concurrent_tasks"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	TaskRetention       time.Duration `mapstructure:"task_retention"`
	ClientQueueSize     int           `mapstructure:"client_queue_size"`
}

// Weights holds the composite blend weights. They must sum to 1.0.
type Weights struct {
	Technical   float64 `mapstructure:"technical"`
	Fundamental float64 `mapstructure:"fundamental"`
	Sentiment   float64 `mapstructure:"sentiment"`
}

// Validate rejects weight sets that do not sum to 1.0 within epsilon.
func (w Weights) Validate() error {
	sum := w.Technical + w.Fundamental + w.Sentiment
	if math.Abs(sum-1.0) > weightEpsilon {
		return fmt.Errorf("analysis weights must sum to 1.0, got %.6f", sum)
	}
	if w.Technical < 0 || w.Fundamental < 0 || w.Sentiment < 0 {
		return fmt.Errorf("analysis weights must be non-negative")
	}
	return nil
}

// Threshold maps a minimum composite score to a recommendation label.
type Threshold struct {
	Min   float64 `mapstructure:"min"`
	Label string  `mapstructure:"label"`
}

// Recommendation holds the threshold ladder, highest first.
type Recommendation struct {
	Thresholds []Threshold `mapstructure:"thresholds"`
}

// Validate checks that the thresholds partition [0,100] with no gaps or
// overlaps: strictly descending minimums ending at 0.
func (r Recommendation) Validate() error {
	if len(r.Thresholds) == 0 {
		return fmt.Errorf("recommendation thresholds must not be empty")
	}
	prev := 100.0 + 1
	for i, th := range r.Thresholds {
		if th.Label == "" {
			return fmt.Errorf("recommendation threshold %d has no label", i)
		}
		if th.Min >= prev {
			return fmt.Errorf("recommendation thresholds must be strictly descending, %0.1f follows %0.1f", th.Min, prev)
		}
		if th.Min > 100 || th.Min < 0 {
			return fmt.Errorf("recommendation threshold %0.1f outside [0,100]", th.Min)
		}
		prev = th.Min
	}
	if last := r.Thresholds[len(r.Thresholds)-1].Min; last != 0 {
		return fmt.Errorf("recommendation thresholds must cover [0,100], lowest minimum is %0.1f", last)
	}
	return nil
}

// Lexicon holds the sentiment dictionaries and category weights. Loaded once
// at start-up and passed by reference; never mutated at runtime.
type Lexicon struct {
	PositiveTerms   []string           `mapstructure:"positive_terms"`
	NegativeTerms   []string           `mapstructure:"negative_terms"`
	CategoryWeights map[string]float64 `mapstructure:"category_weights"`
}

// Curve maps a fundamental indicator onto a 0-100 partial score with a
// direction-aware linear ramp between Worst and Best.
type Curve struct {
	Indicator string  `mapstructure:"indicator"`
	Worst     float64 `mapstructure:"worst"`
	Best      float64 `mapstructure:"best"`
}

// Fundamental holds the scoring curves keyed by indicator name.
type Fundamental struct {
	Curves []Curve `mapstructure:"curves"`
}

// AIProvider holds a single narrative backend's configuration.
type AIProvider struct {
	APIKey              string  `mapstructure:"api_key"`
	Model               string  `mapstructure:"model"`
	BaseURL             string  `mapstructure:"base_url"`
	MaxTokens           int     `mapstructure:"max_tokens"`
	Temperature         float64 `mapstructure:"temperature"`
	MaxRequestPerMinute int     `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int     `mapstructure:"max_token_per_minute"`
}

// AI holds the narrative layer configuration. ProviderOrder is the fallback
// chain; an empty chain degrades to the rule-based narrative.
type AI struct {
	ProviderOrder []string   `mapstructure:"provider_order"`
	OpenAI        AIProvider `mapstructure:"openai"`
	Anthropic     AIProvider `mapstructure:"anthropic"`
	Gemini        AIProvider `mapstructure:"gemini"`
	Zhipu         AIProvider `mapstructure:"zhipu"`
}

// YahooFinance holds the market data collaborator configuration.
type YahooFinance struct {
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// News holds the news collaborator configuration.
type News struct {
	FeedURLs            []string `mapstructure:"feed_urls"`
	MaxRequestPerMinute int      `mapstructure:"max_request_per_minute"`
}

// Config holds the full configuration for the analysis service.
type Config struct {
	App            config.App     `mapstructure:"app"`
	Logger         config.Logger  `mapstructure:"logger"`
	API            config.API     `mapstructure:"api"`
	Cache          cache.Config   `mapstructure:"cache"`
	Analyzer       Analyzer       `mapstructure:"analyzer"`
	Weights        Weights        `mapstructure:"weights"`
	Recommendation Recommendation `mapstructure:"recommendation"`
	Lexicon        Lexicon        `mapstructure:"lexicon"`
	Fundamental    Fundamental    `mapstructure:"fundamental"`
	AI             AI             `mapstructure:"ai"`
	YahooFinance   YahooFinance   `mapstructure:"yahoo_finance"`
	News           News           `mapstructure:"news"`
}

// Load loads the analyzer configuration from the given path and applies
// defaults. Invalid weights or thresholds are rejected here so they can
// never surface at request time.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Recommendation.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Analyzer.TechnicalPeriodDays == 0 {
		c.Analyzer.TechnicalPeriodDays = 180
	}
	if len(c.Analyzer.MAWindows) == 0 {
		c.Analyzer.MAWindows = []int{5, 10, 20, 60}
	}
	if c.Analyzer.RSIWindow == 0 {
		c.Analyzer.RSIWindow = 14
	}
	if c.Analyzer.MACDFastSpan == 0 {
		c.Analyzer.MACDFastSpan = 12
	}
	if c.Analyzer.MACDSlowSpan == 0 {
		c.Analyzer.MACDSlowSpan = 26
	}
	if c.Analyzer.MACDSignalSpan == 0 {
		c.Analyzer.MACDSignalSpan = 9
	}
	if c.Analyzer.BollingerWindow == 0 {
		c.Analyzer.BollingerWindow = 20
	}
	if c.Analyzer.BollingerStdDevs == 0 {
		c.Analyzer.BollingerStdDevs = 2
	}
	if c.Analyzer.VolumeWindow == 0 {
		c.Analyzer.VolumeWindow = 20
	}
	if c.Analyzer.MaxNewsCount == 0 {
		c.Analyzer.MaxNewsCount = 100
	}
	if c.Analyzer.MaxNewsItemLength == 0 {
		c.Analyzer.MaxNewsItemLength = 2000
	}
	if c.Analyzer.MaxConcurrentTasks == 0 {
		c.Analyzer.MaxConcurrentTasks = 4
	}
	if c.Analyzer.FetchTimeout == 0 {
		c.Analyzer.FetchTimeout = 30 * time.Second
	}
	if c.Analyzer.TaskRetention == 0 {
		c.Analyzer.TaskRetention = time.Hour
	}
	if c.Analyzer.ClientQueueSize == 0 {
		c.Analyzer.ClientQueueSize = 256
	}
	if c.Cache.PriceTTL == 0 {
		c.Cache.PriceTTL = time.Hour
	}
	if c.Cache.FundamentalTTL == 0 {
		c.Cache.FundamentalTTL = 6 * time.Hour
	}
	if c.Cache.NewsTTL == 0 {
		c.Cache.NewsTTL = 2 * time.Hour
	}
	if c.Weights == (Weights{}) {
		c.Weights = Weights{Technical: 0.4, Fundamental: 0.4, Sentiment: 0.2}
	}
	if len(c.Recommendation.Thresholds) == 0 {
		c.Recommendation.Thresholds = []Threshold{
			{Min: 80, Label: "strong buy"},
			{Min: 60, Label: "buy"},
			{Min: 40, Label: "hold"},
			{Min: 20, Label: "sell"},
			{Min: 0, Label: "strong sell"},
		}
	}
	if len(c.Lexicon.CategoryWeights) == 0 {
		c.Lexicon.CategoryWeights = map[string]float64{
			"company_news":    1.0,
			"announcement":    1.2,
			"research_report": 0.9,
		}
	}
	if len(c.Lexicon.PositiveTerms) == 0 {
		c.Lexicon.PositiveTerms = DefaultPositiveTerms()
	}
	if len(c.Lexicon.NegativeTerms) == 0 {
		c.Lexicon.NegativeTerms = DefaultNegativeTerms()
	}
	if len(c.Fundamental.Curves) == 0 {
		c.Fundamental.Curves = DefaultFundamentalCurves()
	}
}
