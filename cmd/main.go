package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"proxychains-pool/pkg/chains"
	"proxychains-pool/pkg/checker"
	"proxychains-pool/pkg/models"
	"proxychains-pool/pkg/probe"
	"proxychains-pool/pkg/proxylist"
	"proxychains-pool/pkg/rotator"
)

var (
	debugFlag bool
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "proxychains-pool",
	Short: "Validate a proxy pool and keep a proxychains configuration fed with working proxies",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set up logging based on the debug flag
		var logLevel slog.Level
		if debugFlag {
			logLevel = slog.LevelDebug
		} else {
			logLevel = slog.LevelInfo
		}

		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
		slog.SetDefault(logger)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the proxy list and export or print the working proxies",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := signalContext()
		pool, _ := validatePool(ctx)
		exportPool(pool)
	},
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Validate the proxy list, then rotate single proxies into the proxychains config until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := signalContext()
		pool, _ := validatePool(ctx)

		if viper.GetString("check.output") != "" {
			exportPool(pool)
		}

		if viper.GetBool("rotate.noupdate") {
			if viper.GetString("check.output") == "" {
				exportPool(pool)
			}
			logger.Info("Config update disabled, validation done")
			return
		}

		if len(pool) == 0 {
			logger.Error("Cannot update proxychains config: no valid proxies found")
			os.Exit(1)
		}

		editor := chains.NewEditor(viper.GetString("chains.conf"), logger)
		driver := rotator.NewDriver(editor, pool, mustProxyType(),
			viper.GetDuration("rotate.interval"), mustPolicy(), logger)
		if err := driver.Run(ctx); err != nil {
			logger.Error("Rotation failed", "error", err)
			os.Exit(1)
		}
	},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the whole validated pool into the proxychains config under a chain strategy",
	Long: `Install the whole validated pool into the proxychains config under a chain strategy.
With --input, an already-validated list is read as-is and no probing happens.
Without it, the proxy list is validated first.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := signalContext()

		var pool []models.Endpoint
		if input := viper.GetString("install.input"); input != "" {
			endpoints, skipped, err := proxylist.ReadFile(input)
			if err != nil {
				logger.Error("Error reading validated proxy list", "file", input, "error", err)
				os.Exit(1)
			}
			if skipped > 0 {
				logger.Warn("Skipped malformed lines in proxy list", "file", input, "skipped", skipped)
			}
			pool = endpoints
		} else {
			pool, _ = validatePool(ctx)
		}

		if len(pool) == 0 {
			logger.Error("No valid proxies to install")
			os.Exit(1)
		}

		strategy := mustStrategy()
		editor := chains.NewEditor(viper.GetString("chains.conf"), logger)
		if err := editor.InstallPool(pool, mustProxyType(), strategy); err != nil {
			logger.Error("Error updating proxychains config", "error", err)
			os.Exit(1)
		}
		logger.Info("Proxychains config updated", "proxies", len(pool), "strategy", strategy)
	},
}

// validatePool reads the proxy list and probes every endpoint. Fatal on a
// missing or unreadable list; an empty result is returned to the caller.
func validatePool(ctx context.Context) ([]models.Endpoint, []models.Verdict) {
	listPath := viper.GetString("check.file")
	endpoints, skipped, err := proxylist.ReadFile(listPath)
	if err != nil {
		logger.Error("Error reading proxy list", "file", listPath, "error", err)
		os.Exit(1)
	}
	if skipped > 0 {
		logger.Warn("Skipped malformed lines in proxy list", "file", listPath, "skipped", skipped)
	}
	logger.Info("Read proxy list", "file", listPath, "endpoints", len(endpoints))

	prober := probe.NewProber(viper.GetString("check.url"), viper.GetDuration("check.timeout"))
	c := checker.New(prober, viper.GetInt("check.workers"), logger)
	pool, verdicts := c.Check(ctx, endpoints, mustProxyType())
	logger.Info("Validation finished", "valid", len(pool), "checked", len(verdicts))
	return pool, verdicts
}

// exportPool writes the pool to the configured output file, or prints it
// to stdout when no output file is set.
func exportPool(pool []models.Endpoint) {
	out := viper.GetString("check.output")
	if out == "" {
		for _, ep := range pool {
			fmt.Println(ep.Addr())
		}
		return
	}
	if len(pool) == 0 {
		logger.Info("No valid proxies to export")
		return
	}
	if err := proxylist.WriteFile(out, pool); err != nil {
		logger.Error("Error exporting valid proxies", "file", out, "error", err)
		os.Exit(1)
	}
	logger.Info("Exported valid proxies", "file", out, "count", len(pool))
}

func mustProxyType() models.ProxyType {
	proxyType, err := models.ParseProxyType(viper.GetString("proxy.type"))
	if err != nil {
		logger.Error("Invalid proxy type", "error", err)
		os.Exit(1)
	}
	return proxyType
}

func mustStrategy() chains.Strategy {
	strategy, err := chains.ParseStrategy(viper.GetString("install.strategy"))
	if err != nil {
		logger.Error("Invalid chain strategy", "error", err)
		os.Exit(1)
	}
	return strategy
}

func mustPolicy() rotator.Policy {
	policy, err := rotator.ParsePolicy(viper.GetString("rotate.policy"))
	if err != nil {
		logger.Error("Invalid rotation policy", "error", err)
		os.Exit(1)
	}
	return policy
}

func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringP("file", "f", "proxy-list.txt", "Proxy list file, one ip:port per line")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Write working proxies to this file")
	rootCmd.PersistentFlags().StringP("url", "u", "http://icanhazip.com", "Reachability target used to test each proxy")
	rootCmd.PersistentFlags().DurationP("timeout", "t", 5*time.Second, "Per-probe timeout")
	rootCmd.PersistentFlags().IntP("workers", "w", checker.DefaultWorkers, "Number of concurrent probe workers")
	rootCmd.PersistentFlags().StringP("conf", "c", "/etc/proxychains4.conf", "Proxychains config file path")
	rootCmd.PersistentFlags().String("proxy-type", "http", "Proxy type: http, https, socks4 or socks5")

	viper.BindPFlag("check.file", rootCmd.PersistentFlags().Lookup("file"))
	viper.BindPFlag("check.output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("check.url", rootCmd.PersistentFlags().Lookup("url"))
	viper.BindPFlag("check.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("check.workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("chains.conf", rootCmd.PersistentFlags().Lookup("conf"))
	viper.BindPFlag("proxy.type", rootCmd.PersistentFlags().Lookup("proxy-type"))

	rotateCmd.Flags().DurationP("sleep", "s", 60*time.Second, "Interval between proxy rotations")
	rotateCmd.Flags().String("policy", string(rotator.PolicyRandom), "Rotation selection policy: random or round-robin")
	rotateCmd.Flags().Bool("no-update", false, "Only validate and export, do not touch the proxychains config")
	viper.BindPFlag("rotate.interval", rotateCmd.Flags().Lookup("sleep"))
	viper.BindPFlag("rotate.policy", rotateCmd.Flags().Lookup("policy"))
	viper.BindPFlag("rotate.noupdate", rotateCmd.Flags().Lookup("no-update"))

	installCmd.Flags().StringP("input", "i", "", "Already-validated proxy list; skips probing")
	installCmd.Flags().String("strategy", string(chains.RandomChain), "Chain strategy: random_chain, round_robin_chain, strict_chain or dynamic_chain")
	viper.BindPFlag("install.input", installCmd.Flags().Lookup("input"))
	viper.BindPFlag("install.strategy", installCmd.Flags().Lookup("strategy"))

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(rotateCmd)
	rootCmd.AddCommand(installCmd)
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.proxychains-pool")
	viper.AddConfigPath("/etc/proxychains-pool/")

	// Flags carry defaults for everything, so a missing config file is fine.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Printf("Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
