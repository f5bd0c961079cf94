package cli

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/luckfunc/stockwatchBot/internal/api"
	"github.com/luckfunc/stockwatchBot/internal/bot"
	"github.com/luckfunc/stockwatchBot/internal/handlers"
	"github.com/luckfunc/stockwatchBot/internal/services"
	"github.com/luckfunc/stockwatchBot/internal/watchlist"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the stockwatch command tree. Components are created in
// PersistentPreRunE so --help works without credentials.
func NewRootCmd() *cobra.Command {
	var (
		configPath string
		app        *App
	)

	root := &cobra.Command{
		Use:           "stockwatch",
		Short:         "Track stocks against their 52-week moving average",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			app, err = NewApp(configPath)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Close()
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	getApp := func() *App { return app }
	root.AddCommand(
		newBotCmd(getApp),
		newServeCmd(getApp),
		newPriceCmd(getApp),
		newAddCmd(getApp),
		newRemoveCmd(getApp),
		newListCmd(getApp),
		newCheckCmd(getApp),
	)
	return root
}

func newDispatcher(app *App) *handlers.Dispatcher {
	var renderer handlers.ReportRenderer
	if app.Config.RenderImages {
		renderer = services.NewChromeRenderer()
	}
	return handlers.NewDispatcher(app.Store, app.Analyzer, renderer, app.Logger)
}

func newBotCmd(getApp func() *App) *cobra.Command {
	var hotReload string
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the WeChat bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp()
			handler := handlers.NewWeChatHandler(newDispatcher(app), app.Logger)
			return bot.Run(cmd.Context(), handler, bot.Options{HotReloadFile: hotReload}, app.Logger)
		},
	}
	cmd.Flags().StringVar(&hotReload, "hot-reload", "storage.json", "login session file, empty to scan the QR code every start")
	return cmd
}

func newServeCmd(getApp func() *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the watchlist HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp()
			if addr == "" {
				addr = app.Config.APIAddr
			}
			h := api.NewWatchlistHandler(app.Store, app.Analyzer, app.Logger)
			err := api.Serve(cmd.Context(), addr, api.NewRouter(h, app.Logger), app.Logger)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to api_addr from config)")
	return cmd
}

func newPriceCmd(getApp func() *App) *cobra.Command {
	return &cobra.Command{
		Use:     "price <symbol>",
		Short:   "Show the price and 52-week MA for a symbol",
		Example: "  stockwatch price AAPL",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp()
			symbol := watchlist.NormalizeSymbol(args[0])
			quote, ok := app.Analyzer.GetStockPrice(cmd.Context(), symbol)
			if !ok {
				return fmt.Errorf("could not find data for symbol %s", symbol)
			}
			fmt.Fprintln(cmd.OutOrStdout(), services.FormatQuote(quote, time.Now()))
			return nil
		},
	}
}

func newAddCmd(getApp func() *App) *cobra.Command {
	return &cobra.Command{
		Use:     "add <user> <symbol>...",
		Short:   "Add symbols to a user's watchlist",
		Example: "  stockwatch add 42 AAPL GOOGL MSFT",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, getApp(), args[0], "/add "+strings.Join(args[1:], " "))
		},
	}
}

func newRemoveCmd(getApp func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user> <symbol>...",
		Short: "Remove symbols from a user's watchlist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, getApp(), args[0], "/remove "+strings.Join(args[1:], " "))
		},
	}
}

func newListCmd(getApp func() *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list [user]",
		Short: "Show a user's watchlist",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp()
			out := cmd.OutOrStdout()
			if all {
				for _, user := range app.Store.Users() {
					fmt.Fprintf(out, "%s\t%s\n", user, strings.Join(app.Store.Get(user), " "))
				}
				return nil
			}
			if len(args) == 0 {
				return errors.New("user is required unless --all is set")
			}
			return runCommand(cmd, app, args[0], "/list")
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every user's watchlist")
	return cmd
}

func newCheckCmd(getApp func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check <user>",
		Short: "Check a user's watchlist against the 52-week MA",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp()
			symbols := app.Store.Get(args[0])
			if len(symbols) == 0 {
				return fmt.Errorf("watchlist for %s is empty", args[0])
			}
			report := app.Analyzer.CheckWatchlist(cmd.Context(), symbols)
			fmt.Fprintln(cmd.OutOrStdout(), services.FormatCheckTable(report))
			return nil
		},
	}
}

func runCommand(cmd *cobra.Command, app *App, user, text string) error {
	reply, _ := newDispatcher(app).Handle(cmd.Context(), handlers.Message{UserID: user, Text: text})
	fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
	return nil
}
