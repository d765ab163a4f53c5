package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/litescript/ls-sensitivity/internal/calc"
	"github.com/litescript/ls-sensitivity/internal/config"
	"github.com/litescript/ls-sensitivity/internal/form"
	"github.com/litescript/ls-sensitivity/internal/logging"
	"github.com/litescript/ls-sensitivity/internal/preset"
	"github.com/litescript/ls-sensitivity/internal/ui"
	"github.com/litescript/ls-sensitivity/internal/validate"
)

var rootCmd = &cobra.Command{
	Use:   "ls-sensitivity",
	Short: "Radio telescope sensitivity calculator",
	Long: "ls-sensitivity edits observation parameters, validates them against the " +
		"backend's descriptors and asks the backend for a sensitivity or integration time.",
	RunE:         runRoot,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default .ls-sensitivity.yaml)")
	pf.String("url", "", "calculator backend URL")
	pf.String("layout", "", "form layout (public, internal)")
	pf.Bool("legacy", false, "use the single-endpoint legacy API")
	pf.Bool("strict-units", false, "reject values with units the descriptor does not list")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("preset", "", "preset file applied at startup (.yaml, .yml or .toml)")
	pf.Bool("watch", false, "reapply the preset whenever the file changes")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address")

	_ = viper.BindPFlag("base_url", pf.Lookup("url"))
	_ = viper.BindPFlag("layout", pf.Lookup("layout"))
	_ = viper.BindPFlag("legacy", pf.Lookup("legacy"))
	_ = viper.BindPFlag("strict_units", pf.Lookup("strict-units"))
	_ = viper.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("preset", pf.Lookup("preset"))
	_ = viper.BindPFlag("metrics_addr", pf.Lookup("metrics-addr"))
	_ = viper.BindPFlag("watch", pf.Lookup("watch"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".ls-sensitivity")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("LSSC")
	viper.AutomaticEnv()

	// No config file is fine; defaults apply.
	_ = viper.ReadInConfig()
}

// runRoot starts the TUI, or prints a one-shot calculation when stdout is
// not a terminal.
func runRoot(_ *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return runCalc(calcCmd, args)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs only go to a file when configured.
	logger, closeLog, err := logging.OpenFile(cfg.LogFile, logging.ParseLevel(cfg.LogLevel))
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector, err := startMetrics(ctx, cfg.MetricsAddr, logger)
	if err != nil {
		return err
	}

	layout, err := form.LayoutByName(cfg.Layout)
	if err != nil {
		return err
	}

	var initial *form.Preset
	if cfg.Preset != "" {
		p, err := preset.Load(cfg.Preset)
		if err != nil {
			return err
		}
		initial = &p
	}

	backend := newBackend(cfg, logger, collector)
	model := ui.New(ctx, backend, ui.Options{
		Layout:    layout,
		Validator: newValidator(cfg, logger),
		Logger:    logger,
		Preset:    initial,
		BaseURL:   cfg.BaseURL,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if viper.GetBool("watch") && cfg.Preset != "" {
		w, err := preset.NewWatcher(cfg.Preset)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()
		go func() {
			for change := range w.Changes {
				logger.Info("preset %s changed", change.Path)
				p.Send(ui.PresetMsg{Preset: change.Preset, Err: change.Err})
			}
		}()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// newBackend builds the calculator client for cfg.
func newBackend(cfg config.Config, logger *logging.Logger, collector *calc.Collector) ui.Backend {
	client := calc.NewClient(
		calc.WithBaseURL(cfg.BaseURL),
		calc.WithAPIVersion(cfg.APIVersion),
		calc.WithTimeout(cfg.Timeout),
		calc.WithCollector(collector),
		calc.WithLogger(logger.Named("calc")),
	)
	if cfg.Legacy {
		return calc.Legacy{Client: client}
	}
	return client
}

func newValidator(cfg config.Config, logger *logging.Logger) *validate.Validator {
	return validate.New(
		validate.WithStrictUnits(cfg.StrictUnits),
		validate.WithLogger(logger.Named("validate")),
	)
}

// startMetrics serves /metrics on addr until ctx is done. It returns a nil
// collector when addr is empty.
func startMetrics(ctx context.Context, addr string, logger *logging.Logger) (*calc.Collector, error) {
	if addr == "" {
		return nil, nil
	}
	collector, err := calc.NewCollector(nil)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return collector, nil
}
