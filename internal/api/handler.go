package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/luckfunc/stockwatchBot/internal/handlers"
	"github.com/luckfunc/stockwatchBot/internal/models"
	"github.com/luckfunc/stockwatchBot/internal/watchlist"
	"go.uber.org/zap"
)

type WatchlistHandler struct {
	store    handlers.Watchlists
	analyzer handlers.Analyzer
	logger   *zap.Logger
}

func NewWatchlistHandler(store handlers.Watchlists, analyzer handlers.Analyzer, logger *zap.Logger) *WatchlistHandler {
	return &WatchlistHandler{store: store, analyzer: analyzer, logger: logger.Named("api")}
}

type addSymbolRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

type mutationResponse struct {
	Symbol  string   `json:"symbol"`
	Changed bool     `json:"changed"`
	Symbols []string `json:"symbols"`
}

func (h *WatchlistHandler) RegisterRoutes(r *gin.RouterGroup) {
	v1 := r.Group("/v1")
	{
		v1.GET("/quotes/:symbol", h.GetQuote)
		v1.GET("/watchlists/:user", h.GetWatchlist)
		v1.POST("/watchlists/:user/symbols", h.AddSymbol)
		v1.DELETE("/watchlists/:user/symbols/:symbol", h.RemoveSymbol)
		v1.GET("/watchlists/:user/check", h.CheckWatchlist)
	}
}

func (h *WatchlistHandler) GetQuote(c *gin.Context) {
	symbol := watchlist.NormalizeSymbol(c.Param("symbol"))
	quote, ok := h.analyzer.GetStockPrice(c.Request.Context(), symbol)
	if !ok {
		// 代码无效和数据暂时不可用无法区分
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "symbol invalid or temporarily unavailable", "symbol": symbol})
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *WatchlistHandler) GetWatchlist(c *gin.Context) {
	user := c.Param("user")
	c.JSON(http.StatusOK, models.WatchlistEntry{UserID: user, Symbols: h.store.Get(user)})
}

// AddSymbol validates the symbol with a quote lookup before storing it.
func (h *WatchlistHandler) AddSymbol(c *gin.Context) {
	user := c.Param("user")
	var req addSymbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	symbol := watchlist.NormalizeSymbol(req.Symbol)
	if _, ok := h.analyzer.GetStockPrice(c.Request.Context(), symbol); !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid symbol", "symbol": symbol})
		return
	}
	added, err := h.store.Add(user, symbol)
	if err != nil {
		h.logger.Error("error adding to watchlist", zap.String("user_id", user), zap.String("symbol", symbol), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save watchlist"})
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, mutationResponse{Symbol: symbol, Changed: added, Symbols: h.store.Get(user)})
}

func (h *WatchlistHandler) RemoveSymbol(c *gin.Context) {
	user := c.Param("user")
	symbol := watchlist.NormalizeSymbol(c.Param("symbol"))
	removed, err := h.store.Remove(user, symbol)
	if err != nil {
		h.logger.Error("error removing from watchlist", zap.String("user_id", user), zap.String("symbol", symbol), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save watchlist"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, mutationResponse{Symbol: symbol, Symbols: h.store.Get(user)})
		return
	}
	c.JSON(http.StatusOK, mutationResponse{Symbol: symbol, Changed: true, Symbols: h.store.Get(user)})
}

func (h *WatchlistHandler) CheckWatchlist(c *gin.Context) {
	user := c.Param("user")
	c.JSON(http.StatusOK, h.analyzer.CheckWatchlist(c.Request.Context(), h.store.Get(user)))
}

// NewRouter builds the gin engine with request logging through zap.
func NewRouter(h *WatchlistHandler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger.Named("http")))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h.RegisterRoutes(&r.RouterGroup)
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
		)
	}
}

// Serve runs the HTTP API until ctx is done.
func Serve(ctx context.Context, addr string, router http.Handler, logger *zap.Logger) error {
	srv := &http.Server{Addr: addr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	}
}
