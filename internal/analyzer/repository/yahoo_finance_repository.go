package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/internal/entity"
	"golang-stock-insight/pkg/logger"

	"golang.org/x/time/rate"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// yahooFinanceRepository fetches price bars and fundamentals from the Yahoo
// Finance public API. It implements both MarketDataRepository and
// FundamentalRepository so one client and one rate limiter cover both.
type yahooFinanceRepository struct {
	client         *http.Client
	cfg            config.YahooFinance
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewYahooFinanceRepository creates a new Yahoo Finance data repository.
func NewYahooFinanceRepository(cfg config.YahooFinance, log *logger.Logger) *yahooFinanceRepository {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultYahooBaseURL
	}
	if cfg.MaxRequestPerMinute == 0 {
		cfg.MaxRequestPerMinute = 60
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.MaxRequestPerMinute)

	return &yahooFinanceRepository{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}
}

// yahooChartResponse is the v8 chart API response shape.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// yahooQuoteSummaryResponse is the v10 quoteSummary response shape, trimmed to
// the modules the indicator mapping needs. Yahoo wraps every number in a
// {raw, fmt} object.
type yahooQuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				TrailingPE    yahooRaw `json:"trailingPE"`
				PriceToSales  yahooRaw `json:"priceToSalesTrailing12Months"`
				DividendYield yahooRaw `json:"dividendYield"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				PriceToBook    yahooRaw `json:"priceToBook"`
				PegRatio       yahooRaw `json:"pegRatio"`
				EarningsGrowth yahooRaw `json:"earningsQuarterlyGrowth"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				ProfitMargins    yahooRaw `json:"profitMargins"`
				GrossMargins     yahooRaw `json:"grossMargins"`
				OperatingMargins yahooRaw `json:"operatingMargins"`
				ReturnOnEquity   yahooRaw `json:"returnOnEquity"`
				ReturnOnAssets   yahooRaw `json:"returnOnAssets"`
				CurrentRatio     yahooRaw `json:"currentRatio"`
				QuickRatio       yahooRaw `json:"quickRatio"`
				DebtToEquity     yahooRaw `json:"debtToEquity"`
				RevenueGrowth    yahooRaw `json:"revenueGrowth"`
			} `json:"financialData"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type yahooRaw struct {
	Raw *float64 `json:"raw"`
}

// yahooSymbol maps a symbol to Yahoo's ticker convention for its market:
// A-shares carry an .SS or .SZ suffix, Hong Kong tickers an .HK suffix.
func yahooSymbol(symbol string, market entity.Market) string {
	upper := strings.ToUpper(symbol)
	switch market {
	case entity.MarketAStock:
		if strings.Contains(upper, ".") {
			return upper
		}
		if strings.HasPrefix(upper, "6") {
			return upper + ".SS"
		}
		return upper + ".SZ"
	case entity.MarketHKStock:
		if strings.Contains(upper, ".") {
			return upper
		}
		trimmed := strings.TrimLeft(upper, "0")
		for len(trimmed) < 4 {
			trimmed = "0" + trimmed
		}
		return trimmed + ".HK"
	default:
		return upper
	}
}

// chartRange picks the smallest Yahoo range covering periodDays of daily bars.
func chartRange(periodDays int) string {
	switch {
	case periodDays <= 30:
		return "1mo"
	case periodDays <= 90:
		return "3mo"
	case periodDays <= 180:
		return "6mo"
	case periodDays <= 365:
		return "1y"
	default:
		return "2y"
	}
}

// GetPriceSeries fetches daily OHLCV bars covering periodDays calendar days.
func (r *yahooFinanceRepository) GetPriceSeries(ctx context.Context, symbol string, market entity.Market, periodDays int) (*entity.PriceSeries, error) {
	ticker := yahooSymbol(symbol, market)
	apiURL := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		r.cfg.BaseURL, url.PathEscape(ticker), chartRange(periodDays))

	body, err := r.sendRequest(ctx, apiURL)
	if err != nil {
		return nil, NewFetchError("price", symbol, err)
	}

	var chart yahooChartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, NewFetchError("price", symbol, fmt.Errorf("failed to decode chart response: %w", err))
	}
	if chart.Chart.Error != nil {
		return nil, NewFetchError("price", symbol, fmt.Errorf("chart api error: %s", chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, NewFetchError("price", symbol, fmt.Errorf("no chart data returned"))
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	candles := make([]entity.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Null bars show up on holidays and halts, skip them.
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		candles = append(candles, entity.Candle{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      deref(quote.Open, i),
			High:      deref(quote.High, i),
			Low:       deref(quote.Low, i),
			Close:     *quote.Close[i],
			Volume:    deref(quote.Volume, i),
		})
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp.Before(candles[j].Timestamp) })

	series := &entity.PriceSeries{Symbol: symbol, Market: market, Candles: candles}
	if err := series.Validate(); err != nil {
		return nil, NewFetchError("price", symbol, err)
	}
	return series, nil
}

// GetFinancialIndicators fetches the fundamentals Yahoo exposes and maps them
// onto the indicator vocabulary. Indicators Yahoo does not publish stay absent
// so the scorer can report partial coverage honestly.
func (r *yahooFinanceRepository) GetFinancialIndicators(ctx context.Context, symbol string, market entity.Market) (*entity.FinancialIndicators, error) {
	ticker := yahooSymbol(symbol, market)
	apiURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=summaryDetail,financialData,defaultKeyStatistics",
		r.cfg.BaseURL, url.PathEscape(ticker))

	body, err := r.sendRequest(ctx, apiURL)
	if err != nil {
		return nil, NewFetchError("fundamental", symbol, err)
	}

	var summary yahooQuoteSummaryResponse
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, NewFetchError("fundamental", symbol, fmt.Errorf("failed to decode quote summary: %w", err))
	}
	if summary.QuoteSummary.Error != nil {
		return nil, NewFetchError("fundamental", symbol, fmt.Errorf("quote summary error: %s", summary.QuoteSummary.Error.Description))
	}
	if len(summary.QuoteSummary.Result) == 0 {
		return nil, NewFetchError("fundamental", symbol, fmt.Errorf("no quote summary returned"))
	}

	res := summary.QuoteSummary.Result[0]
	values := map[entity.IndicatorName]float64{}
	putPercent := func(name entity.IndicatorName, v yahooRaw) {
		if v.Raw != nil {
			values[name] = *v.Raw * 100
		}
	}
	put := func(name entity.IndicatorName, v yahooRaw) {
		if v.Raw != nil {
			values[name] = *v.Raw
		}
	}

	putPercent(entity.IndicatorNetMargin, res.FinancialData.ProfitMargins)
	putPercent(entity.IndicatorGrossMargin, res.FinancialData.GrossMargins)
	putPercent(entity.IndicatorOperatingMargin, res.FinancialData.OperatingMargins)
	putPercent(entity.IndicatorROE, res.FinancialData.ReturnOnEquity)
	putPercent(entity.IndicatorROA, res.FinancialData.ReturnOnAssets)
	put(entity.IndicatorCurrentRatio, res.FinancialData.CurrentRatio)
	put(entity.IndicatorQuickRatio, res.FinancialData.QuickRatio)
	putPercent(entity.IndicatorRevenueGrowth, res.FinancialData.RevenueGrowth)
	putPercent(entity.IndicatorProfitGrowth, res.DefaultKeyStatistics.EarningsGrowth)
	put(entity.IndicatorPERatio, res.SummaryDetail.TrailingPE)
	put(entity.IndicatorPSRatio, res.SummaryDetail.PriceToSales)
	put(entity.IndicatorPBRatio, res.DefaultKeyStatistics.PriceToBook)
	put(entity.IndicatorPEGRatio, res.DefaultKeyStatistics.PegRatio)
	putPercent(entity.IndicatorDividendYield, res.SummaryDetail.DividendYield)
	// Yahoo reports debtToEquity as a percentage; the scoring curves expect
	// the plain ratio.
	if res.FinancialData.DebtToEquity.Raw != nil {
		de := *res.FinancialData.DebtToEquity.Raw / 100
		values[entity.IndicatorDebtToEquity] = de
		values[entity.IndicatorDebtRatio] = de / (1 + de) * 100
	}

	return &entity.FinancialIndicators{Symbol: symbol, Market: market, Values: values}, nil
}

func (r *yahooFinanceRepository) sendRequest(ctx context.Context, apiURL string) ([]byte, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("Failed to send request to Yahoo Finance", logger.ErrorField(err), logger.StringField("url", apiURL))
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.Error("Received non-OK response from Yahoo Finance",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("url", apiURL),
		)
		return nil, fmt.Errorf("received non-OK response: %d - %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func deref(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}
