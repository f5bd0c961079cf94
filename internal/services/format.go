package services

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/luckfunc/stockwatchBot/internal/models"
)

const timestampLayout = "2006-01-02 15:04 UTC"

// FormatQuote renders a single /price reply.
func FormatQuote(q *models.QuoteResult, now time.Time) string {
	var b strings.Builder
	if q.HasAverage() {
		trend, status := "📈", "Above 52-Week MA"
		if !q.Average.Above {
			trend, status = "📉", "Below 52-Week MA"
		}
		fmt.Fprintf(&b, "%s %s - %s\n\n", trend, q.Symbol, q.CompanyName)
		fmt.Fprintf(&b, "💰 Current Price: $%s\n", q.Price.StringFixed(2))
		fmt.Fprintf(&b, "📊 52-Week MA: $%s\n", q.Average.Value.StringFixed(2))
		fmt.Fprintf(&b, "📈 Status: %s\n", status)
		fmt.Fprintf(&b, "📊 Difference: %s%%\n", signed(q.Average.PercentDiff.StringFixed(2)))
	} else {
		fmt.Fprintf(&b, "📊 %s - %s\n\n", q.Symbol, q.CompanyName)
		fmt.Fprintf(&b, "💰 Current Price: $%s\n", q.Price.StringFixed(2))
		b.WriteString("📊 52-Week MA: Data unavailable\n")
		b.WriteString("⚠️ Note: Insufficient historical data for MA calculation\n")
	}
	fmt.Fprintf(&b, "\nLast updated: %s", now.UTC().Format(timestampLayout))
	return b.String()
}

// FormatCheckReport renders the /check reply as grouped lines.
func FormatCheckReport(r *models.CheckReport, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 52-Week MA Analysis (%d stocks)\n\n", r.Total())
	if len(r.Above) > 0 {
		b.WriteString("✅ Above 52-Week MA:\n")
		b.WriteString(checkLines(r.Above))
		b.WriteString("\n\n")
	}
	if len(r.Below) > 0 {
		b.WriteString("❌ Below 52-Week MA:\n")
		b.WriteString(checkLines(r.Below))
		b.WriteString("\n\n")
	}
	if len(r.Unavailable) > 0 {
		b.WriteString("⚠️ Data Unavailable:\n")
		for _, u := range r.Unavailable {
			if u.Reason == models.ReasonInsufficientHistory {
				fmt.Fprintf(&b, "• %s (insufficient data)\n", u.Symbol)
			} else {
				fmt.Fprintf(&b, "• %s\n", u.Symbol)
			}
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Analysis completed at %s", now.UTC().Format(timestampLayout))
	return b.String()
}

// FormatCheckTable renders classified quotes as an aligned table, used by
// the CLI.
func FormatCheckTable(r *models.CheckReport) string {
	var buf bytes.Buffer
	writer := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "SYMBOL\tPRICE\tMA52W\tDIFF\tSTATUS")
	for _, group := range [][]*models.QuoteResult{r.Above, r.Below} {
		for _, q := range group {
			status := "above"
			if !q.Average.Above {
				status = "below"
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s%%\t%s\n",
				q.Symbol,
				q.Price.StringFixed(2),
				q.Average.Value.StringFixed(2),
				signed(q.Average.PercentDiff.StringFixed(2)),
				status)
		}
	}
	for _, u := range r.Unavailable {
		fmt.Fprintf(writer, "%s\t-\t-\t-\t%s\n", u.Symbol, u.Reason)
	}
	_ = writer.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

func checkLines(quotes []*models.QuoteResult) string {
	lines := make([]string, 0, len(quotes))
	for _, q := range quotes {
		trend := "📈"
		if !q.Average.Above {
			trend = "📉"
		}
		lines = append(lines, fmt.Sprintf("%s %s: $%s (%s%%)",
			trend, q.Symbol, q.Price.StringFixed(2), signed(q.Average.PercentDiff.StringFixed(2))))
	}
	return strings.Join(lines, "\n")
}

// signed prefixes non-negative numbers with "+", like the %+.2f verb.
func signed(s string) string {
	if strings.HasPrefix(s, "-") {
		return s
	}
	return "+" + s
}
