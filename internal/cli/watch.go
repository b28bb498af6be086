package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Dev72112/xlamaexchange/internal/config"
	"github.com/Dev72112/xlamaexchange/internal/engine"
	"github.com/Dev72112/xlamaexchange/internal/httpx"
	"github.com/Dev72112/xlamaexchange/internal/model"
	"github.com/Dev72112/xlamaexchange/internal/notify"
	"github.com/Dev72112/xlamaexchange/internal/orders"
	"github.com/Dev72112/xlamaexchange/internal/pricefeed"
	"github.com/Dev72112/xlamaexchange/internal/watch"
)

var watchFlags struct {
	interval    string
	autoExecute bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the limit order watcher",
	Long: `Watch evaluates every active limit order on a fixed cadence against the
price feed, fires expirations, stop-losses, take-profits and primary
conditions in that order, and notifies on each transition. It runs until
interrupted.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFlags.interval, "interval", "", "evaluation cadence (e.g. 10s)")
	watchCmd.Flags().BoolVar(&watchFlags.autoExecute, "auto-execute", false, "hand primary triggers to the swap executor")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchFlags.interval != "" {
		flags.WatchInterval = watchFlags.interval
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer store.Close()

	notifier, err := buildNotifier(settings)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed, err := buildFeed(ctx, settings, store)
	if err != nil {
		return err
	}

	opts := []watch.Option{watch.WithInterval(settings.WatchInterval)}
	if watchFlags.autoExecute {
		hook, cleanup, err := buildAutoExecute(settings)
		if err != nil {
			return err
		}
		defer cleanup()
		opts = append(opts, watch.WithAutoExecute(hook))
	}

	if settings.MetricsAddr != "" {
		go serveMetrics(ctx, settings.MetricsAddr)
	}

	slog.Info("watcher starting",
		"interval", settings.WatchInterval,
		"feed", settings.PriceFeedMode,
		"backend", settings.OrdersBackend,
		"auto_execute", watchFlags.autoExecute)

	watcher := watch.New(store, feed, notifier, slog.Default(), opts...)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("watcher stopped")
	return nil
}

func buildNotifier(settings config.Settings) (notify.Notifier, error) {
	log := notify.NewLogNotifier(slog.Default())
	if settings.TelegramToken == "" {
		return log, nil
	}
	tg, err := notify.NewTelegramNotifier(settings.TelegramToken, settings.TelegramChatID, slog.Default())
	if err != nil {
		return nil, err
	}
	return notify.Multi{log, tg}, nil
}

// buildFeed returns the configured price source. The streaming feed is
// subscribed to every currently active pair and keeps itself connected in
// the background.
func buildFeed(ctx context.Context, settings config.Settings, store orders.Store) (pricefeed.Feed, error) {
	if settings.PriceFeedMode != "stream" {
		return pricefeed.NewHTTPFeed(httpx.New(settings.Timeout, settings.Retries)), nil
	}

	stream := pricefeed.NewStreamFeed(slog.Default())
	active, err := store.ListByStatus(ctx, orders.StatusActive)
	if err != nil {
		return nil, err
	}
	for _, order := range active {
		pair := pricefeed.Pair{ChainID: order.ChainID, FromToken: order.FromToken, ToToken: order.ToToken}
		if err := stream.Subscribe(pair); err != nil {
			slog.Warn("stream subscribe failed", "pair", pair.String(), "error", err)
		}
	}
	go func() {
		if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("price stream stopped", "error", err)
		}
	}()
	return stream, nil
}

func buildAutoExecute(settings config.Settings) (watch.ExecuteFunc, func(), error) {
	env, err := buildExecutionEnv(settings)
	if err != nil {
		return nil, nil, err
	}
	exec := engine.NewSwapExecutor(env.swapDeps())
	hook := func(ctx context.Context, order orders.LimitOrder) {
		req := model.SwapRequest{
			RequestID:   uuid.NewString(),
			ChainID:     order.ChainID,
			FromToken:   order.FromToken,
			ToToken:     order.ToToken,
			Amount:      order.Amount,
			SlippagePct: settings.SlippagePct,
		}
		final, err := exec.Execute(ctx, req, model.ApprovalExact, "", nil)
		if err != nil {
			slog.Error("auto-execute rejected", "order_id", order.ID, "error", err)
			return
		}
		slog.Info("auto-execute finished", "order_id", order.ID,
			"step", final.Step, "tx_hash", final.TxHash, "category", final.ErrorCategory)
	}
	return hook, env.Close, nil
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	slog.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server failed", "error", err)
	}
}
