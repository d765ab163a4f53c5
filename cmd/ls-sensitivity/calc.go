package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/litescript/ls-sensitivity/internal/config"
	"github.com/litescript/ls-sensitivity/internal/form"
	"github.com/litescript/ls-sensitivity/internal/logging"
	"github.com/litescript/ls-sensitivity/internal/preset"
	"github.com/litescript/ls-sensitivity/internal/report"
	"github.com/litescript/ls-sensitivity/internal/ui"
	"github.com/litescript/ls-sensitivity/internal/validate"
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Run one calculation and print the result",
	Long: "calc fills the form from the preset and flags, validates it and submits it once. " +
		"With --watch it recalculates each time the preset file changes.",
	Args: cobra.NoArgs,
	RunE: runCalc,
}

func init() {
	calcCmd.Flags().String("mode", "", "calculation mode (integration-time, sensitivity)")
	calcCmd.Flags().String("observing", "", "observing mode (continuum, line, pulsars)")
	calcCmd.Flags().StringArray("set", nil, "set a field, as name=value")
	calcCmd.Flags().StringArray("unit", nil, "select a field's unit, as name=unit")
	calcCmd.Flags().StringArray("manual", nil, "enable manual entry for a field")
	calcCmd.Flags().Bool("json", false, "print a JSON export instead of the summary")
	calcCmd.Flags().String("save", "", "write the final form to a preset file")
	rootCmd.AddCommand(calcCmd)
}

// calcOptions are the form edits requested on the command line.
type calcOptions struct {
	calculation string
	observing   string
	values      []string
	units       []string
	manual      []string
	json        bool
	save        string
}

func readCalcOptions(cmd *cobra.Command) calcOptions {
	var o calcOptions
	o.calculation, _ = cmd.Flags().GetString("mode")
	o.observing, _ = cmd.Flags().GetString("observing")
	o.values, _ = cmd.Flags().GetStringArray("set")
	o.units, _ = cmd.Flags().GetStringArray("unit")
	o.manual, _ = cmd.Flags().GetStringArray("manual")
	o.json, _ = cmd.Flags().GetBool("json")
	o.save, _ = cmd.Flags().GetString("save")
	return o
}

// apply runs the requested edits against c.
func (o calcOptions) apply(c *form.Controller) error {
	for _, s := range []string{o.calculation, o.observing} {
		if s == "" {
			continue
		}
		m, err := form.ParseMode(s)
		if err != nil {
			return err
		}
		c.SelectMode(m)
	}
	for _, name := range o.manual {
		if err := c.ToggleManual(name); err != nil {
			return err
		}
	}
	for _, kv := range o.values {
		name, value, err := splitAssignment(kv)
		if err != nil {
			return err
		}
		if err := c.SetValue(name, value); err != nil {
			return err
		}
	}
	for _, kv := range o.units {
		name, unit, err := splitAssignment(kv)
		if err != nil {
			return err
		}
		if err := c.SetUnit(name, unit); err != nil {
			return err
		}
	}
	return nil
}

func splitAssignment(kv string) (string, string, error) {
	name, value, ok := strings.Cut(kv, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("expected name=value, got %q", kv)
	}
	return name, value, nil
}

func runCalc(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector, err := startMetrics(ctx, cfg.MetricsAddr, logger)
	if err != nil {
		return err
	}
	backend := newBackend(cfg, logger, collector)
	v := newValidator(cfg, logger)

	c, err := newHeadlessForm(ctx, cfg, backend, v, logger)
	if err != nil {
		return err
	}

	opts := readCalcOptions(cmd)
	var p *form.Preset
	if cfg.Preset != "" {
		loaded, err := preset.Load(cfg.Preset)
		if err != nil {
			return err
		}
		p = &loaded
	}

	if err := calculateOnce(ctx, os.Stdout, c, backend, v, p, opts, logger); err != nil {
		if !viper.GetBool("watch") {
			return err
		}
		logger.Error("%v", err)
	}

	if !viper.GetBool("watch") || cfg.Preset == "" {
		return nil
	}

	w, err := preset.NewWatcher(cfg.Preset)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()
	logger.Info("watching %s", w.Path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-w.Changes:
			if !ok {
				return nil
			}
			if change.Err != nil {
				logger.Error("reloading preset: %v", change.Err)
				continue
			}
			fmt.Fprintln(os.Stdout)
			if err := calculateOnce(ctx, os.Stdout, c, backend, v, &change.Preset, opts, logger); err != nil {
				logger.Error("%v", err)
			}
		}
	}
}

func newHeadlessForm(ctx context.Context, cfg config.Config, backend ui.Backend, v *validate.Validator, logger *logging.Logger) (*form.Controller, error) {
	layout, err := form.LayoutByName(cfg.Layout)
	if err != nil {
		return nil, err
	}
	set, err := backend.Descriptors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load descriptors: %w", err)
	}
	return form.NewController(layout, set, v, form.WithLogger(logger.Named("form")))
}

// calculateOnce restores p (or resets), applies opts, submits and writes the
// outcome to w. The outcome is written even when the form is invalid or the
// backend fails.
func calculateOnce(ctx context.Context, w io.Writer, c *form.Controller, calculator form.Calculator, v *validate.Validator, p *form.Preset, opts calcOptions, logger *logging.Logger) error {
	if p != nil {
		if err := c.Restore(*p); err != nil {
			return fmt.Errorf("apply preset: %w", err)
		}
	} else {
		c.Reset()
	}
	if err := opts.apply(c); err != nil {
		return err
	}

	_, submitErr := c.Submit(ctx, calculator)
	if submitErr != nil && !errors.Is(submitErr, form.ErrInvalidForm) {
		logger.Debug("submit: %v", submitErr)
	}

	now := time.Now()
	if opts.json {
		if err := report.NewExport(c, now).WriteJSON(w); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
	} else {
		report.WriteSummary(w, c, v.Site(), now)
	}

	if opts.save != "" {
		if err := preset.Save(opts.save, c.Export()); err != nil {
			return err
		}
	}
	return submitErr
}
