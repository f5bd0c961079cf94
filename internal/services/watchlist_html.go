package services

import (
	"context"
	"encoding/base64"
	"html/template"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/luckfunc/stockwatchBot/internal/models"
)

const watchlistImageWidth = 1280

var watchlistTemplate = template.Must(template.New("watchlist").Parse(watchlistHTMLTemplate))

type watchlistRowView struct {
	Symbol  string
	Price   string
	Average string
	Pct     string
	Status  string
	Class   string
}

type watchlistView struct {
	Title       string
	Timestamp   string
	Rows        []watchlistRowView
	Unavailable []string
}

// ChromeRenderer screenshots the HTML check report with headless Chrome.
type ChromeRenderer struct {
	Timeout time.Duration
}

func NewChromeRenderer() *ChromeRenderer {
	return &ChromeRenderer{Timeout: 20 * time.Second}
}

// RenderCheckReport returns a PNG of the report.
func (r *ChromeRenderer) RenderCheckReport(ctx context.Context, report *models.CheckReport, now time.Time) ([]byte, error) {
	view := buildWatchlistView(report, now)
	html, err := renderWatchlistHTML(view)
	if err != nil {
		return nil, err
	}
	height := estimateWatchlistHeight(len(view.Rows), len(view.Unavailable))
	return renderHTMLToPNG(ctx, html, watchlistImageWidth, height, r.Timeout)
}

func buildWatchlistView(report *models.CheckReport, now time.Time) watchlistView {
	view := watchlistView{
		Title:     "52-Week MA Analysis",
		Timestamp: now.UTC().Format(timestampLayout),
	}
	for _, q := range report.Above {
		view.Rows = append(view.Rows, rowView(q))
	}
	for _, q := range report.Below {
		view.Rows = append(view.Rows, rowView(q))
	}
	for _, u := range report.Unavailable {
		label := u.Symbol
		if u.Reason == models.ReasonInsufficientHistory {
			label += " (insufficient data)"
		}
		view.Unavailable = append(view.Unavailable, label)
	}
	return view
}

func rowView(q *models.QuoteResult) watchlistRowView {
	row := watchlistRowView{
		Symbol:  q.Symbol,
		Price:   q.Price.StringFixed(2),
		Average: q.Average.Value.StringFixed(2),
		Pct:     signed(q.Average.PercentDiff.StringFixed(2)) + "%",
		Status:  "Above",
		Class:   "up",
	}
	if !q.Average.Above {
		row.Status = "Below"
		row.Class = "down"
	}
	return row
}

func renderWatchlistHTML(view watchlistView) (string, error) {
	var builder strings.Builder
	if err := watchlistTemplate.Execute(&builder, view); err != nil {
		return "", err
	}
	return builder.String(), nil
}

func estimateWatchlistHeight(rows int, unavailable int) int64 {
	const (
		basePadding    = 80
		titleHeight    = 42
		headerHeight   = 44
		rowHeight      = 48
		footerHeight   = 28
		noteHeight     = 26
		sectionSpacing = 18
	)
	height := basePadding + titleHeight + headerHeight + footerHeight + sectionSpacing*2
	if rows < 1 {
		rows = 1
	}
	height += rows * rowHeight
	if unavailable > 0 {
		height += sectionSpacing + (unavailable+1)*noteHeight
	}
	return int64(height)
}

func renderHTMLToPNG(parent context.Context, html string, width int, height int64, timeout time.Duration) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))
	var buf []byte
	err := chromedp.Run(ctx,
		chromedp.EmulateViewport(int64(width), height),
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(200*time.Millisecond),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

const watchlistHTMLTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <style>
    :root {
      --bg: #ffffff;
      --text: #1f1f1f;
      --muted: #6f6f6f;
      --line: #f0f0f0;
      --header: #f7f7f7;
      --up: #1ca05c;
      --down: #d83a3a;
    }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      background: var(--bg);
      font-family: "Helvetica Neue", Arial, sans-serif;
      color: var(--text);
    }
    .container { width: 1200px; padding: 32px 40px 36px 40px; }
    .title { font-size: 30px; font-weight: 600; margin-bottom: 18px; }
    .table { width: 100%; border-collapse: collapse; font-size: 18px; }
    .table thead th {
      background: var(--header);
      color: var(--muted);
      font-weight: 500;
      padding: 12px;
      text-align: left;
      border-bottom: 1px solid var(--line);
    }
    .table tbody td { padding: 14px 12px; border-bottom: 1px solid var(--line); }
    .table tbody tr:nth-child(even) td { background: #fbfbfb; }
    .num { font-variant-numeric: tabular-nums; }
    .up { color: var(--up); }
    .down { color: var(--down); }
    .unavailable { margin-top: 18px; font-size: 16px; color: var(--muted); }
    .unavailable div { margin-top: 4px; }
    .footer { margin-top: 12px; font-size: 14px; color: var(--muted); }
  </style>
</head>
<body>
  <div class="container">
    <div class="title">{{.Title}}</div>
    <table class="table">
      <thead>
        <tr>
          <th style="width: 180px;">Symbol</th>
          <th class="num">Price</th>
          <th class="num">52-Week MA</th>
          <th class="num">Difference</th>
          <th>Status</th>
        </tr>
      </thead>
      <tbody>
        {{if .Rows}}
          {{range .Rows}}
            <tr>
              <td>{{.Symbol}}</td>
              <td class="num">${{.Price}}</td>
              <td class="num">${{.Average}}</td>
              <td class="num {{.Class}}">{{.Pct}}</td>
              <td class="{{.Class}}">{{.Status}}</td>
            </tr>
          {{end}}
        {{else}}
          <tr>
            <td colspan="5" style="color: var(--muted);">No moving-average data available</td>
          </tr>
        {{end}}
      </tbody>
    </table>
    {{if .Unavailable}}
    <div class="unavailable">
      <strong>Data Unavailable</strong>
      {{range .Unavailable}}<div>• {{.}}</div>{{end}}
    </div>
    {{end}}
    <div class="footer">Analysis completed at {{.Timestamp}}</div>
  </div>
</body>
</html>`
