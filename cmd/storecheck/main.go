// Command storecheck walks a storefront through scripted UI flows and leaves
// a screenshot per checkpoint, or error.png where a flow broke.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isoautomate/storecheck"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFile     string
	verbose     bool
	metricsFile string

	cfg    storecheck.Config
	logger *zap.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "storecheck:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg = storecheck.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:           "storecheck",
		Short:         "Browser walkthroughs of the storefront UI with screenshot evidence",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := storecheck.LoadConfig(envFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, &loaded)
			cfg = loaded

			logger, err = storecheck.NewLogger(verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", "", "env file to load instead of ./.env")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log every step")
	flags.StringVar(&metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	flags.String("base-url", cfg.BaseURL, "base url of the storefront under test")
	flags.String("out", cfg.OutputDir, "directory screenshots are written to")
	flags.String("driver", cfg.Driver, "browser engine: playwright, rod, chromedp or fleet")
	flags.String("flows-file", "", "YAML file with extra or overriding flows")
	flags.String("credentials", cfg.CredentialSet, "credential set: generated or env")
	flags.Duration("timeout", cfg.StepTimeout, "default timeout of assertions and interactions")
	flags.Duration("nav-timeout", cfg.NavigationTimeout, "default timeout of navigations")
	flags.Bool("headless", cfg.Headless, "run the browser without a window")
	flags.String("redis-url", "", "fleet driver: redis url (overrides REDIS_HOST/REDIS_PORT)")
	flags.String("browser-type", cfg.BrowserType, "fleet driver: browser type to lease")

	rootCmd.AddCommand(newRunCmd(), newListCmd(), newInstallCmd())
	return rootCmd
}

// applyFlags overrides env configuration with the flags set on the command line.
func applyFlags(cmd *cobra.Command, c *storecheck.Config) {
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		c.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("out") {
		c.OutputDir, _ = flags.GetString("out")
	}
	if flags.Changed("driver") {
		c.Driver, _ = flags.GetString("driver")
	}
	if flags.Changed("flows-file") {
		c.FlowsFile, _ = flags.GetString("flows-file")
	}
	if flags.Changed("credentials") {
		c.CredentialSet, _ = flags.GetString("credentials")
	}
	if flags.Changed("timeout") {
		c.StepTimeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("nav-timeout") {
		c.NavigationTimeout, _ = flags.GetDuration("nav-timeout")
	}
	if flags.Changed("headless") {
		c.Headless, _ = flags.GetBool("headless")
	}
	if flags.Changed("redis-url") {
		c.RedisURL, _ = flags.GetString("redis-url")
	}
	if flags.Changed("browser-type") {
		c.BrowserType, _ = flags.GetString("browser-type")
	}
}

func loadCatalog() (storecheck.Catalog, error) {
	if cfg.FlowsFile == "" {
		return storecheck.NewCatalog(), nil
	}
	extra, err := storecheck.LoadFlowFile(cfg.FlowsFile)
	if err != nil {
		return nil, err
	}
	return storecheck.NewCatalog(extra...), nil
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [flow...]",
		Short: "Run flows (all of them when none are named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			catalog, err := loadCatalog()
			if err != nil {
				return err
			}
			flows, err := catalog.Lookup(args...)
			if err != nil {
				return err
			}
			creds, err := storecheck.ResolveCredentials(cfg.CredentialSet)
			if err != nil {
				return err
			}

			driver, err := storecheck.NewDriver(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := driver.Close(); err != nil {
					logger.Warn("driver close failed", zap.Error(err))
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner := storecheck.NewRunner(cfg, driver,
				storecheck.WithLogger(logger),
				storecheck.WithCredentials(creds))
			results, err := runner.RunAll(ctx, flows)
			printSummary(cmd, results)
			if metricsFile != "" {
				if werr := storecheck.WriteMetrics(metricsFile); werr != nil {
					logger.Warn("metrics not written", zap.String("path", metricsFile), zap.Error(werr))
				}
			}
			return err
		},
	}
}

func printSummary(cmd *cobra.Command, results []*storecheck.Result) {
	out := cmd.OutOrStdout()
	for _, r := range results {
		status := "PASS"
		if !r.OK() {
			status = "FAIL"
		}
		fmt.Fprintf(out, "%s  %-22s %d checkpoint(s) in %s\n", status, r.Flow, len(r.Checkpoints), r.Duration.Round(time.Millisecond))
		if r.FailureArtifact != "" {
			fmt.Fprintf(out, "      error screenshot: %s\n", r.FailureArtifact)
		}
		var stepErr *storecheck.StepError
		if errors.As(r.Err, &stepErr) {
			fmt.Fprintf(out, "      %s\n", stepErr)
		} else if r.Err != nil {
			fmt.Fprintf(out, "      %v\n", r.Err)
		}
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available flows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog()
			if err != nil {
				return err
			}
			flows, _ := catalog.Lookup()
			out := cmd.OutOrStdout()
			for _, f := range flows {
				fmt.Fprintf(out, "%-22s %d checkpoint(s)  %s\n", f.Name, len(f.Checkpoints()), f.Description)
			}
			return nil
		},
	}
}

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Download the Playwright driver and Chromium",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Info("installing playwright chromium")
			return storecheck.InstallPlaywright()
		},
	}
}
