package models

// UnavailableReason 无法给出均线结论的原因
type UnavailableReason string

const (
	ReasonNoData              UnavailableReason = "no_data"
	ReasonInsufficientHistory UnavailableReason = "insufficient_history"
)

// UnavailableSymbol is a watchlist symbol that could not be classified.
type UnavailableSymbol struct {
	Symbol string            `json:"symbol"`
	Reason UnavailableReason `json:"reason"`
}

// CheckReport 自选股与 52 周均线的对比结果，各分组保持自选列表顺序
type CheckReport struct {
	Above       []*QuoteResult      `json:"above"`
	Below       []*QuoteResult      `json:"below"`
	Unavailable []UnavailableSymbol `json:"unavailable"`
}

// Total is the number of symbols the report covers.
func (r *CheckReport) Total() int {
	return len(r.Above) + len(r.Below) + len(r.Unavailable)
}
