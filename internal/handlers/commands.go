package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/luckfunc/stockwatchBot/internal/models"
	"github.com/luckfunc/stockwatchBot/internal/services"
	"github.com/luckfunc/stockwatchBot/internal/watchlist"
	"go.uber.org/zap"
)

// Watchlists is the storage the commands need.
type Watchlists interface {
	Get(userID string) []string
	Add(userID, symbol string) (bool, error)
	Remove(userID, symbol string) (bool, error)
}

// Analyzer looks up quotes.
type Analyzer interface {
	GetStockPrice(ctx context.Context, symbol string) (*models.QuoteResult, bool)
	CheckWatchlist(ctx context.Context, symbols []string) *models.CheckReport
}

// ReportRenderer turns a check report into a PNG.
type ReportRenderer interface {
	RenderCheckReport(ctx context.Context, report *models.CheckReport, now time.Time) ([]byte, error)
}

// Message is an incoming chat message, independent of the chat platform.
type Message struct {
	UserID string
	Name   string
	Text   string
	Group  bool
}

// Reply is what the bot sends back. Image, when set, is sent instead of
// Text; Text is still filled as a fallback.
type Reply struct {
	Text  string
	Image []byte
}

// Dispatcher parses commands and runs them against the watchlist store and
// the quote analyzer.
type Dispatcher struct {
	store    Watchlists
	analyzer Analyzer
	renderer ReportRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewDispatcher wires the command handlers. renderer may be nil, in which
// case /check replies with text only.
func NewDispatcher(store Watchlists, analyzer Analyzer, renderer ReportRenderer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		analyzer: analyzer,
		renderer: renderer,
		logger:   logger.Named("handlers"),
		now:      time.Now,
	}
}

// Handle runs the command in msg. It returns false when the message is not
// addressed to the bot and should be ignored.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) (Reply, bool) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return Reply{}, false
	}

	command, args := parseCommand(text)
	if command == "" {
		// Groups only react to explicit commands.
		if msg.Group {
			return Reply{}, false
		}
		if !looksLikeSymbol(text) {
			return Reply{Text: unknownText}, true
		}
		command, args = "price", []string{text}
	}

	log := d.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("user_id", msg.UserID),
		zap.String("command", command),
	)
	log.Info("handling command", zap.Strings("args", args))

	switch command {
	case "start":
		return Reply{Text: fmt.Sprintf(welcomeText, displayName(msg.Name))}, true
	case "help":
		return Reply{Text: helpText}, true
	case "add":
		return d.add(ctx, log, msg.UserID, args), true
	case "remove":
		return d.remove(log, msg.UserID, args), true
	case "list":
		return d.list(msg.UserID), true
	case "price":
		return d.price(ctx, args), true
	case "check":
		return d.check(ctx, log, msg.UserID), true
	default:
		if msg.Group {
			return Reply{}, false
		}
		return Reply{Text: unknownText}, true
	}
}

func (d *Dispatcher) add(ctx context.Context, log *zap.Logger, userID string, args []string) Reply {
	if len(args) == 0 {
		return Reply{Text: "❌ Please specify a stock symbol.\n\nUsage: /add AAPL"}
	}

	var added, existed, invalid, failed []string
	for _, arg := range args {
		symbol := watchlist.NormalizeSymbol(arg)

		// 先查一次行情，确认代码有效
		quote, ok := d.analyzer.GetStockPrice(ctx, symbol)
		if !ok {
			invalid = append(invalid, symbol)
			continue
		}
		ok, err := d.store.Add(userID, symbol)
		switch {
		case err != nil:
			log.Error("error adding to watchlist", zap.String("symbol", symbol), zap.Error(err))
			failed = append(failed, symbol)
		case ok:
			added = append(added, fmt.Sprintf("%s (%s)", symbol, quote.CompanyName))
		default:
			existed = append(existed, symbol)
		}
	}

	var sections []string
	sections = appendSection(sections, "✅ Added to watchlist:", added)
	sections = appendSection(sections, "📊 Already in watchlist:", existed)
	sections = appendSection(sections, "❌ Invalid symbols:", invalid)
	sections = appendSection(sections, "⚠️ Could not save:", failed)
	if len(sections) == 0 {
		sections = append(sections, "❌ No valid stocks were processed.")
	}
	sections = append(sections, d.sizeLine(userID))
	return Reply{Text: strings.Join(sections, "\n\n")}
}

func (d *Dispatcher) remove(log *zap.Logger, userID string, args []string) Reply {
	if len(args) == 0 {
		return Reply{Text: "❌ Please specify a stock symbol.\n\nUsage: /remove AAPL"}
	}

	var removed, missing, failed []string
	for _, arg := range args {
		symbol := watchlist.NormalizeSymbol(arg)
		ok, err := d.store.Remove(userID, symbol)
		switch {
		case err != nil:
			log.Error("error removing from watchlist", zap.String("symbol", symbol), zap.Error(err))
			failed = append(failed, symbol)
		case ok:
			removed = append(removed, symbol)
		default:
			missing = append(missing, symbol)
		}
	}

	var sections []string
	sections = appendSection(sections, "✅ Removed from watchlist:", removed)
	sections = appendSection(sections, "❌ Not in watchlist:", missing)
	sections = appendSection(sections, "⚠️ Could not save:", failed)
	sections = append(sections, d.sizeLine(userID))
	return Reply{Text: strings.Join(sections, "\n\n")}
}

func (d *Dispatcher) list(userID string) Reply {
	symbols := d.store.Get(userID)
	if len(symbols) == 0 {
		return Reply{Text: emptyListText}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Your Watchlist (%d stocks):\n\n", len(symbols))
	for i, symbol := range symbols {
		fmt.Fprintf(&b, "%d. 📈 %s\n", i+1, symbol)
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n")}
}

func (d *Dispatcher) price(ctx context.Context, args []string) Reply {
	if len(args) == 0 {
		return Reply{Text: "❌ Please specify a stock symbol.\n\nUsage: /price AAPL"}
	}
	symbol := watchlist.NormalizeSymbol(args[0])
	quote, ok := d.analyzer.GetStockPrice(ctx, symbol)
	if !ok {
		return Reply{Text: fmt.Sprintf("❌ Could not find data for symbol %s.\n\nPlease check the symbol and try again.", symbol)}
	}
	return Reply{Text: services.FormatQuote(quote, d.now())}
}

func (d *Dispatcher) check(ctx context.Context, log *zap.Logger, userID string) Reply {
	symbols := d.store.Get(userID)
	if len(symbols) == 0 {
		return Reply{Text: "📝 Your watchlist is empty.\n\nUse /add <symbol> to add stocks first!"}
	}

	now := d.now()
	report := d.analyzer.CheckWatchlist(ctx, symbols)
	reply := Reply{Text: services.FormatCheckReport(report, now)}
	if d.renderer == nil {
		return reply
	}
	image, err := d.renderer.RenderCheckReport(ctx, report, now)
	if err != nil {
		log.Warn("render check report failed, falling back to text", zap.Error(err))
		return reply
	}
	reply.Image = image
	return reply
}

func (d *Dispatcher) sizeLine(userID string) string {
	return fmt.Sprintf("📋 Total watchlist size: %d stocks", len(d.store.Get(userID)))
}

func appendSection(sections []string, title string, items []string) []string {
	if len(items) == 0 {
		return sections
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, title)
	for _, item := range items {
		lines = append(lines, "• "+item)
	}
	return append(sections, strings.Join(lines, "\n"))
}

// parseCommand splits "/add@bot aapl tsla" into ("add", [aapl tsla]).
// Commas are accepted as separators. Text without a leading slash yields
// an empty command.
func parseCommand(text string) (string, []string) {
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}
	text = strings.NewReplacer("，", " ", ",", " ").Replace(text)
	fields := strings.Fields(text)
	command := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if i := strings.Index(command, "@"); i >= 0 {
		command = command[:i]
	}
	return command, fields[1:]
}

// looksLikeSymbol accepts 1 to 5 letters.
func looksLikeSymbol(text string) bool {
	n := 0
	for _, r := range text {
		if !unicode.IsLetter(r) || r > unicode.MaxASCII {
			return false
		}
		n++
	}
	return n >= 1 && n <= 5
}

func displayName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}
