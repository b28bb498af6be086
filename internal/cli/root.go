// Package cli wires the engine into the xlx command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/Dev72112/xlamaexchange/internal/config"
	"github.com/Dev72112/xlamaexchange/internal/orders"
	"github.com/Dev72112/xlamaexchange/internal/version"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

var flags config.GlobalFlags

var debug bool

var rootCmd = &cobra.Command{
	Use:           "xlx",
	Short:         "Multi-chain token exchange engine",
	Long:          "xlx executes swaps and bridges across EVM chains and watches standing limit orders against live prices.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		initLogging()
	},
}

func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return xerr.ExitCode(err)
	}
	return 0
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/xlx/config.yaml)")
	pf.StringVar(&flags.RPCURL, "rpc-url", "", "override the chain RPC endpoint")
	pf.StringVar(&flags.Timeout, "timeout", "", "provider request timeout (e.g. 15s)")
	pf.IntVar(&flags.Retries, "retries", -1, "provider request retries")
	pf.StringVar(&flags.OrdersBackend, "orders-backend", "", "order store backend: sqlite, memory or redis")
	pf.StringVar(&flags.RedisURL, "redis-url", "", "redis URL for the redis order store")
	pf.BoolVar(&flags.JSON, "json", false, "machine-readable output")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(swapCmd)
	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func initLogging() {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
}

func loadSettings() (config.Settings, error) {
	return config.Load(flags)
}

// openStore builds the configured order store. The caller owns Close.
func openStore(settings config.Settings) (orders.Store, error) {
	switch settings.OrdersBackend {
	case "memory":
		return orders.NewMemoryStore(), nil
	case "redis":
		if settings.RedisURL == "" {
			return nil, xerr.New(xerr.CodeUsage, "redis backend requires a redis URL")
		}
		return orders.OpenRedis(settings.RedisURL, settings.RedisPassword)
	default:
		return orders.OpenSQLite(settings.OrdersPath, settings.OrdersLockPath)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", version.CLIName, version.Long())
	},
}
