package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tcgrabber/pkg/config"
	"tcgrabber/pkg/grabber"
	"tcgrabber/pkg/logger"
	"tcgrabber/pkg/scheduler"
	"tcgrabber/pkg/storage"
	"tcgrabber/pkg/telegram"
	"tcgrabber/pkg/ui"
)

var (
	scheduleFlag   string
	cronFlag       string
	runImmediately bool
	withBot        bool
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run syncs on a schedule until stopped",
	Long: `Run photo syncs on a recurring schedule. The process keeps running
until it receives SIGINT or SIGTERM; a failed run is logged and the
schedule continues.

Schedules are either a cadence ("hourly", "daily", "weekly",
"every N hours", "every N minutes", "every day at HH:MM") or a
standard 5-field cron expression, evaluated in the configured
timezone. An invalid cron expression falls back to the cadence.`,
	Example: `  # Sync every day at 02:00 (the default)
  tcgrabber daemon

  # Sync every 4 hours, starting now
  tcgrabber daemon --schedule "every 4 hours" --run-immediately

  # Weekdays at 15:30, with the Telegram command bot
  tcgrabber daemon --cron-expression "30 15 * * 1-5" --bot`,
	Run: func(cmd *cobra.Command, args []string) {
		runDaemon()
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().StringVar(&scheduleFlag, "schedule", "", `schedule cadence (default "daily")`)
	daemonCmd.Flags().StringVar(&cronFlag, "cron-expression", "", "5-field cron expression, overrides --schedule")
	daemonCmd.Flags().BoolVar(&runImmediately, "run-immediately", false, "run a sync at startup before the first scheduled fire")
	daemonCmd.Flags().BoolVar(&withBot, "bot", false, "answer Telegram commands while running")
}

func runDaemon() {
	cfg, log := setup()

	if scheduleFlag != "" {
		cfg.Schedule.Spec = scheduleFlag
	}
	if cronFlag != "" {
		cfg.Schedule.CronExpression = cronFlag
	}
	if runImmediately {
		cfg.Schedule.RunImmediately = true
	}

	runner, err := grabber.New(cfg, log)
	if err != nil {
		ui.PrintError("Failed to initialize", err.Error())
		os.Exit(1)
	}

	notifier := newNotifier(cfg, log)

	task := func() error {
		result, err := runner.RunOnce()
		if err != nil {
			if nerr := notifier.NotifyError(err.Error()); nerr != nil {
				log.WithError(nerr).Warn("Failed to send failure notification")
			}
			return err
		}
		if nerr := notifier.Notify(result); nerr != nil {
			log.WithError(nerr).Warn("Failed to send notification")
		}
		return nil
	}

	loc := cfg.Location()
	schedule := scheduler.Resolve(cfg.Schedule.Spec, cfg.Schedule.CronExpression, loc, log)
	sched := scheduler.New(schedule, loc, task, cfg.Schedule.RunImmediately, log)
	sched.Start()
	defer sched.Stop()

	if withBot {
		if bot := newBot(cfg, log); bot != nil {
			bot.Start()
			defer bot.Stop()
		}
	}

	ui.PrintInfo("Schedule", describeSchedule(cfg.Schedule.Spec, cfg.Schedule.CronExpression))
	ui.PrintSuccess("Daemon running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.WithField("signal", sig.String()).Info("Shutting down")
	ui.PrintInfo("Received signal", sig.String())
}

// newBot wires up the Telegram command bot, or nil when not configured
func newBot(cfg *config.Config, log logger.Logger) *telegram.Bot {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		ui.PrintWarning("Telegram is not configured, bot disabled")
		return nil
	}
	settings, err := telegram.NewSettings(cfg.Output.CacheDir, log)
	if err != nil {
		log.WithError(err).Warn("Failed to load telegram settings, bot disabled")
		return nil
	}
	store, err := storage.NewManager(cfg.Output.Dir)
	if err != nil {
		log.WithError(err).Warn("Failed to open photo directory, bot disabled")
		return nil
	}
	notifier := telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, settings, log)
	return telegram.NewBot(notifier, settings, store, log)
}

func describeSchedule(spec, cronExpr string) string {
	if cronExpr != "" {
		return fmt.Sprintf("cron %q", cronExpr)
	}
	return spec
}
