package repository

import (
	"context"

	"golang-stock-insight/internal/entity"
)

// MarketDataRepository fetches historical price bars for a symbol.
type MarketDataRepository interface {
	GetPriceSeries(ctx context.Context, symbol string, market entity.Market, periodDays int) (*entity.PriceSeries, error)
}

// FundamentalRepository fetches the financial indicator set for a symbol.
type FundamentalRepository interface {
	GetFinancialIndicators(ctx context.Context, symbol string, market entity.Market) (*entity.FinancialIndicators, error)
}

// NewsRepository fetches recent news items for a symbol, newest first,
// deduplicated by id, capped at maxCount.
type NewsRepository interface {
	GetNews(ctx context.Context, symbol string, market entity.Market, maxCount int) ([]entity.NewsItem, error)
}

// AIRepository is one narrative backend. GenerateStream invokes onToken for
// each token in order and returns the full text; cancelling ctx stops token
// production and releases the underlying connection.
type AIRepository interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string, onToken func(token string)) (string, error)
}

// StreamNamer is implemented by composite backends that can report which
// underlying provider produced the narrative. onReset fires when already
// relayed tokens turn out to belong to a provider that failed mid-stream; the
// consumer should discard them before the replacement stream arrives.
type StreamNamer interface {
	GenerateStreamNamed(ctx context.Context, prompt string, onToken func(token string), onReset func()) (text string, provider string, err error)
}
