package models

import "github.com/shopspring/decimal"

func init() {
	// 价格在 JSON 中输出为数字而不是字符串
	decimal.MarshalJSONWithoutQuotes = true
}

// QuoteResult 单只股票的行情与 52 周均线分析结果
type QuoteResult struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"company_name"`
	Price       decimal.Decimal `json:"current_price"` // 当前价，保留两位小数
	Average     *MovingAverage  `json:"moving_average,omitempty"`
}

// MovingAverage is only set when at least 52 weekly closes were available,
// so the three values are present or absent together.
type MovingAverage struct {
	Value       decimal.Decimal `json:"ma_52_week"`
	Above       bool            `json:"above_ma"`
	PercentDiff decimal.Decimal `json:"change_percent"`
}

// HasAverage reports whether the 52-week average could be computed.
func (q *QuoteResult) HasAverage() bool {
	return q != nil && q.Average != nil
}

func (q *QuoteResult) MovingAverage52w() *decimal.Decimal {
	if !q.HasAverage() {
		return nil
	}
	v := q.Average.Value
	return &v
}

func (q *QuoteResult) IsAboveAverage() *bool {
	if !q.HasAverage() {
		return nil
	}
	v := q.Average.Above
	return &v
}

func (q *QuoteResult) PercentDifference() *decimal.Decimal {
	if !q.HasAverage() {
		return nil
	}
	v := q.Average.PercentDiff
	return &v
}
