package entity

// IndicatorName is one of the fixed 25-indicator vocabulary.
type IndicatorName string

// Profitability indicators (1-5).
const (
	IndicatorNetMargin       IndicatorName = "net_margin"
	IndicatorROE             IndicatorName = "roe"
	IndicatorROA             IndicatorName = "roa"
	IndicatorGrossMargin     IndicatorName = "gross_margin"
	IndicatorOperatingMargin IndicatorName = "operating_margin"
)

// Solvency indicators (6-10).
const (
	IndicatorCurrentRatio     IndicatorName = "current_ratio"
	IndicatorQuickRatio       IndicatorName = "quick_ratio"
	IndicatorDebtRatio        IndicatorName = "debt_ratio"
	IndicatorDebtToEquity     IndicatorName = "debt_to_equity"
	IndicatorInterestCoverage IndicatorName = "interest_coverage"
)

// Efficiency indicators (11-15).
const (
	IndicatorAssetTurnover        IndicatorName = "asset_turnover"
	IndicatorInventoryTurnover    IndicatorName = "inventory_turnover"
	IndicatorReceivablesTurnover  IndicatorName = "receivables_turnover"
	IndicatorCurrentAssetTurnover IndicatorName = "current_asset_turnover"
	IndicatorFixedAssetTurnover   IndicatorName = "fixed_asset_turnover"
)

// Growth indicators (16-20).
const (
	IndicatorRevenueGrowth  IndicatorName = "revenue_growth"
	IndicatorProfitGrowth   IndicatorName = "profit_growth"
	IndicatorAssetGrowth    IndicatorName = "asset_growth"
	IndicatorEquityGrowth   IndicatorName = "equity_growth"
	IndicatorCashFlowGrowth IndicatorName = "cash_flow_growth"
)

// Valuation indicators (21-25).
const (
	IndicatorPERatio       IndicatorName = "pe_ratio"
	IndicatorPBRatio       IndicatorName = "pb_ratio"
	IndicatorPSRatio       IndicatorName = "ps_ratio"
	IndicatorPEGRatio      IndicatorName = "peg_ratio"
	IndicatorDividendYield IndicatorName = "dividend_yield"
)

// IndicatorVocabulary lists all 25 indicator names in fixed order.
var IndicatorVocabulary = []IndicatorName{
	IndicatorNetMargin, IndicatorROE, IndicatorROA, IndicatorGrossMargin, IndicatorOperatingMargin,
	IndicatorCurrentRatio, IndicatorQuickRatio, IndicatorDebtRatio, IndicatorDebtToEquity, IndicatorInterestCoverage,
	IndicatorAssetTurnover, IndicatorInventoryTurnover, IndicatorReceivablesTurnover, IndicatorCurrentAssetTurnover, IndicatorFixedAssetTurnover,
	IndicatorRevenueGrowth, IndicatorProfitGrowth, IndicatorAssetGrowth, IndicatorEquityGrowth, IndicatorCashFlowGrowth,
	IndicatorPERatio, IndicatorPBRatio, IndicatorPSRatio, IndicatorPEGRatio, IndicatorDividendYield,
}

// FinancialIndicators maps indicator names to values. Missing indicators are
// absent from the map, never silently zeroed. Immutable once fetched.
type FinancialIndicators struct {
	Symbol string                    `json:"symbol"`
	Market Market                    `json:"market"`
	Values map[IndicatorName]float64 `json:"values"`
}

// Get returns the value for name and whether it is present.
func (f *FinancialIndicators) Get(name IndicatorName) (float64, bool) {
	v, ok := f.Values[name]
	return v, ok
}

// Count reports how many of the vocabulary indicators are present.
func (f *FinancialIndicators) Count() int {
	return len(f.Values)
}
