package bot

import (
	"context"
	"fmt"

	"github.com/eatmoreapple/openwechat"
	"github.com/luckfunc/stockwatchBot/internal/handlers"
	"go.uber.org/zap"
)

// Options controls how the WeChat bot logs in.
type Options struct {
	// HotReloadFile keeps the login session between restarts. Empty means
	// scanning the QR code on every start.
	HotReloadFile string
}

// Run logs in and serves messages until ctx is done or the bot exits.
func Run(ctx context.Context, handler *handlers.WeChatHandler, opts Options, logger *zap.Logger) error {
	log := logger.Named("bot")
	bot := openwechat.DefaultBot(openwechat.Desktop)

	// Register QR code callback
	bot.UUIDCallback = openwechat.PrintlnQrcodeUrl

	if opts.HotReloadFile != "" {
		reloadStorage := openwechat.NewFileHotReloadStorage(opts.HotReloadFile)
		defer reloadStorage.Close()
		if err := bot.HotLogin(reloadStorage, openwechat.NewRetryLoginOption()); err != nil {
			return fmt.Errorf("hot login failed: %w", err)
		}
	} else if err := bot.Login(); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	self, err := bot.GetCurrentUser()
	if err != nil {
		return fmt.Errorf("get current user: %w", err)
	}
	log.Info("logged in", zap.String("nickname", self.NickName))

	bot.MessageHandler = handler.HandleMessage

	go exitWhenDone(ctx, bot.Context(), bot.Exit)

	// Block until exit
	if err := bot.Block(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("bot stopped: %w", err)
	}
	return nil
}

// exitWhenDone calls exit once ctx is done. It returns without calling exit
// if the bot stops on its own first, e.g. after a remote logout.
func exitWhenDone(ctx, botCtx context.Context, exit func()) {
	select {
	case <-ctx.Done():
		exit()
	case <-botCtx.Done():
	}
}
