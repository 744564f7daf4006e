package config

// DefaultPositiveTerms is the built-in positive polarity dictionary. The
// mixed Chinese/English vocabulary matches the markets the engine covers.
func DefaultPositiveTerms() []string {
	return []string{
		// Chinese
		"上涨", "涨停", "利好", "突破", "增长", "盈利", "收益", "回升", "强势", "看好",
		"买入", "推荐", "优秀", "领先", "创新", "发展", "机会", "潜力", "稳定", "改善",
		"提升", "超预期", "积极", "乐观", "向好", "受益", "龙头", "热点", "爆发", "翻倍",
		// English
		"buy", "strong", "growth", "profit", "gain", "rise", "bull", "positive",
		"upgrade", "outperform", "beat", "exceed", "surge", "rally", "boom",
	}
}

// DefaultNegativeTerms is the built-in negative polarity dictionary.
func DefaultNegativeTerms() []string {
	return []string{
		// Chinese
		"下跌", "跌停", "利空", "破位", "下滑", "亏损", "风险", "回调", "弱势", "看空",
		"卖出", "减持", "较差", "落后", "滞后", "困难", "危机", "担忧", "悲观", "恶化",
		"下降", "低于预期", "消极", "压力", "套牢", "被套", "暴跌", "崩盘", "踩雷", "退市",
		// English
		"sell", "weak", "decline", "loss", "bear", "negative", "downgrade",
		"underperform", "miss", "fall", "drop", "crash", "plunge", "slump",
	}
}

// DefaultFundamentalCurves maps each of the 25 vocabulary indicators onto a
// linear scoring ramp. Worst anchors score 0, Best anchors score 100; when
// Worst > Best the indicator is lower-is-better.
func DefaultFundamentalCurves() []Curve {
	return []Curve{
		// Profitability (percentages)
		{Indicator: "net_margin", Worst: 0, Best: 25},
		{Indicator: "roe", Worst: 0, Best: 20},
		{Indicator: "roa", Worst: 0, Best: 12},
		{Indicator: "gross_margin", Worst: 5, Best: 50},
		{Indicator: "operating_margin", Worst: 0, Best: 25},
		// Solvency
		{Indicator: "current_ratio", Worst: 0.5, Best: 2.5},
		{Indicator: "quick_ratio", Worst: 0.3, Best: 1.5},
		{Indicator: "debt_ratio", Worst: 85, Best: 25},
		{Indicator: "debt_to_equity", Worst: 3, Best: 0.3},
		{Indicator: "interest_coverage", Worst: 1, Best: 10},
		// Efficiency
		{Indicator: "asset_turnover", Worst: 0.1, Best: 1.5},
		{Indicator: "inventory_turnover", Worst: 1, Best: 12},
		{Indicator: "receivables_turnover", Worst: 2, Best: 15},
		{Indicator: "current_asset_turnover", Worst: 0.3, Best: 3},
		{Indicator: "fixed_asset_turnover", Worst: 0.5, Best: 6},
		// Growth (percentages, year over year)
		{Indicator: "revenue_growth", Worst: -20, Best: 40},
		{Indicator: "profit_growth", Worst: -30, Best: 50},
		{Indicator: "asset_growth", Worst: -10, Best: 30},
		{Indicator: "equity_growth", Worst: -10, Best: 30},
		{Indicator: "cash_flow_growth", Worst: -30, Best: 50},
		// Valuation
		{Indicator: "pe_ratio", Worst: 60, Best: 8},
		{Indicator: "pb_ratio", Worst: 10, Best: 1},
		{Indicator: "ps_ratio", Worst: 15, Best: 1},
		{Indicator: "peg_ratio", Worst: 3, Best: 0.5},
		{Indicator: "dividend_yield", Worst: 0, Best: 5},
	}
}
