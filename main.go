package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"domsync/internal/automation"
	"domsync/internal/browser"
	"domsync/internal/config"
	"domsync/internal/controller"
	"domsync/internal/extract"
	"domsync/internal/health"
	"domsync/internal/logging"
	"domsync/internal/overlay"
	"domsync/internal/telegram"
	"domsync/internal/translate"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	envFile string
	debug   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "domsync",
		Short: "Case overlay that stays in sync with the open lead",
		Long: `domsync attaches to the case-management app in Chrome, keeps an overlay
with the open lead's data in sync as the operator moves between cases, and
pre-fills the decision form from it.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOverlay(cmd.Context(), flags)
		},
	}
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "load configuration from this .env file")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "debug logging; Telegram notices are logged only")

	cmd.AddCommand(newExtractCmd())
	return cmd
}

func runOverlay(ctx context.Context, flags *rootFlags) error {
	cfg, err := config.LoadConfig(flags.envFile)
	if err != nil {
		return err
	}
	if flags.debug {
		cfg.DebugMode = true
	}

	zl, err := logging.New(cfg.LogFile, cfg.DebugMode)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	log := logging.Named(zl, "main")
	log.Infow("🚀 Starting domsync", "remote", cfg.DevToolsURL != "", "debug", cfg.DebugMode)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("📋 Initializing browser context...")
	holder, err := browser.NewContextHolder(browser.Options{
		DevToolsURL: cfg.DevToolsURL,
		AppURL:      cfg.AppURL,
		ProfileDir:  cfg.ProfileDir,
		Timeout:     cfg.BrowserTimeout,
	}, logging.Named(zl, "browser"))
	if err != nil {
		return err
	}
	defer holder.Cancel()
	tab := browser.NewTab(holder, cfg.BrowserTimeout, logging.Named(zl, "browser"))
	log.Info("✓ Browser context created")

	monitor := health.NewMonitor(nil)
	if cfg.StatusPort != "" {
		if _, err := health.StartServer(ctx, monitor, cfg.StatusPort, logging.Named(zl, "health")); err != nil {
			log.Warnw("⚠️  Status server disabled", "error", err)
		}
	}

	opts := controller.Options{
		Page:   tab,
		Driver: automation.NewDriver(tab, automation.NewBridge(tab), nil, logging.Named(zl, "automation")),
		Health: monitor,
		Logger: logging.Named(zl, "controller"),
	}

	notifier, err := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.DebugMode, logging.Named(zl, "telegram"))
	if err != nil {
		log.Warnw("⚠️  Telegram notices disabled", "error", err)
	} else if notifier != nil {
		opts.Notifier = notifier
	}

	translator, err := translate.NewTranslator(ctx, cfg.TranslateAPIKey, logging.Named(zl, "translate"))
	if err != nil {
		log.Warnw("⚠️  In-place translation disabled", "error", err)
	} else if translator != nil {
		opts.Translator = translator
		defer func() { _ = translator.Close() }()
	}

	view := overlay.NewProgramView()
	opts.View = view
	ctrl := controller.New(opts)
	defer func() { _ = ctrl.Close() }()

	err = overlay.Run(ctx, view, ctrl, func() error { return ctrl.Start(ctx) })
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	log.Info("👋 domsync stopped")
	return nil
}

// extractReport is what `domsync extract` prints.
type extractReport struct {
	Record                extract.Record `json:"record"`
	Lead                  string         `json:"lead"`
	TID                   string         `json:"tid"`
	Language              string         `json:"language"`
	NeedsAssignment       bool           `json:"needsAssignment"`
	ChangeStatusAvailable bool           `json:"changeStatusAvailable"`
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file.html>",
		Short: "Print the data extracted from a saved case page",
		Long: `Runs the overlay's extraction against a saved page snapshot and prints
the record as JSON, with the detected lead, TID and button checks. Useful
when the host changes its markup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := browser.LoadStaticPage(args[0])
			if err != nil {
				return err
			}
			doc, err := page.Document(cmd.Context())
			if err != nil {
				return err
			}

			rec := extract.Extract(doc)
			report := extractReport{
				Record:                rec,
				Lead:                  rec.LeadNumber,
				TID:                   extract.AssignedTo(doc),
				Language:              rec.Language(),
				NeedsAssignment:       extract.NeedsAssignment(doc),
				ChangeStatusAvailable: extract.ChangeStatusAvailable(doc),
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
