package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tcgrabber/pkg/auth"
	"tcgrabber/pkg/config"
	"tcgrabber/pkg/grabber"
	"tcgrabber/pkg/logger"
	"tcgrabber/pkg/telegram"
	"tcgrabber/pkg/ui"
)

var dryRun bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single photo sync",
	Long: `Sign in, crawl the post feed, and download every photo that is not
already on disk. Photos are named {date}_{post id}.{ext} and carry the
post description, author, capture time, and school GPS as metadata.

Credentials come from (in order):
  - TC_EMAIL and TC_PASSWORD environment variables
  - The configuration file
  - Stored credentials (use 'tcgrabber auth login' to store)`,
	Example: `  # Run a sync with the default configuration
  tcgrabber run

  # Report what would be downloaded without writing anything
  tcgrabber run --dry-run`,
	Run: func(cmd *cobra.Command, args []string) {
		runOnce()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "crawl and report without downloading")
}

func runOnce() {
	cfg, log := setup()

	runner, err := grabber.New(cfg, log)
	if err != nil {
		ui.PrintError("Failed to initialize", err.Error())
		os.Exit(1)
	}

	if dryRun {
		result, err := runner.DryRun()
		if err != nil {
			log.WithError(err).Error("Dry run failed")
			ui.PrintError("Dry run failed", err.Error())
			os.Exit(1)
		}
		ui.PrintInfo("Posts in feed", fmt.Sprintf("%d", result.TotalPosts))
		ui.PrintSuccess("Dry run complete, nothing was downloaded")
		return
	}

	result, err := runner.RunOnce()
	if err != nil {
		log.WithError(err).Error("Sync failed")
		ui.PrintError("Sync failed", err.Error())
		notifyFailure(cfg, log, err)
		os.Exit(1)
	}

	notifyResult(cfg, log, result)

	ui.PrintInfo("Posts scanned", fmt.Sprintf("%d", result.TotalPosts))
	ui.PrintInfo("New photos", fmt.Sprintf("%d", result.DownloadedCount))
	ui.PrintSuccess("Sync complete")
}

// setup loads config, fills in stored credentials, and builds the logger
func setup() (*config.Config, logger.Logger) {
	cfg, err := loadConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	log := mustLogger(cfg)

	// Fall back to stored credentials when none are configured
	if cfg.Classroom.Email == "" || cfg.Classroom.Password == "" {
		if manager, err := auth.NewManager(); err == nil {
			if account, err := manager.RetrieveDefault(); err == nil {
				cfg.Classroom.Email = account.Email
				cfg.Classroom.Password = account.Password
				log.WithField("account", account.Email).Info("Using stored credentials")
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("Invalid configuration")
		ui.PrintError("Invalid configuration", err.Error())
		os.Exit(1)
	}

	return cfg, log
}

// newNotifier builds the Telegram notifier when one is configured
func newNotifier(cfg *config.Config, log logger.Logger) grabber.Notifier {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		return grabber.NopNotifier{}
	}
	settings, err := telegram.NewSettings(cfg.Output.CacheDir, log)
	if err != nil {
		log.WithError(err).Warn("Failed to load telegram settings, notifications disabled")
		return grabber.NopNotifier{}
	}
	return telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, settings, log)
}

func notifyResult(cfg *config.Config, log logger.Logger, result *grabber.RunResult) {
	if err := newNotifier(cfg, log).Notify(result); err != nil {
		log.WithError(err).Warn("Failed to send notification")
	}
}

func notifyFailure(cfg *config.Config, log logger.Logger, runErr error) {
	if err := newNotifier(cfg, log).NotifyError(runErr.Error()); err != nil {
		log.WithError(err).Warn("Failed to send failure notification")
	}
}
