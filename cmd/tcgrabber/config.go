package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tcgrabber/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage tcgrabber configuration.

Configuration is loaded from (lowest to highest priority):
  - Default values
  - Auto-discovered configuration file
  - Environment variables
  - Command line flags

A file passed with --config is authoritative: it is read on top of the
defaults and environment variables are ignored.`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.tcgrabber.yaml' in the current directory
unless a different path is given with the --config flag.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging all sources.

The password is masked.`,
	Run: runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from all sources and report every problem
found, not just the first one.`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# tcgrabber configuration file
#
# Every option can also be set through environment variables, which
# take precedence over auto-discovered config files (a file passed
# with --config wins over the environment):
#   TC_EMAIL, TC_PASSWORD, SCHOOL, CHILD, SCHOOL_LAT, SCHOOL_LNG,
#   SCHOOL_KEYWORDS, OUTPUT_DIR, CACHE_DIR, CACHE_TIMEOUT,
#   CRON_EXPRESSION, RUN_IMMEDIATELY, TIMEZONE,
#   TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID

# Transparent Classroom account
classroom:
  # Parent account email (required)
  email: ""

  # Parent account password (required)
  # Prefer TC_PASSWORD or 'tcgrabber auth login' over storing it here
  password: ""

  # Numeric school id from the portal URL (required)
  school_id: 0

  # Numeric child id from the portal URL (required)
  child_id: 0

# Metadata embedded into downloaded photos
school:
  school_lat: 0.0
  school_lng: 0.0
  school_keywords: ""

# Where photos and the page cache live
output:
  output_dir: "./photos"
  cache_dir: "./cache"

  # Page cache lifetime in seconds
  cache_timeout: 14400

# Daemon schedule
schedule:
  # "hourly", "daily", "weekly", "every N hours",
  # "every N minutes" or "every day at HH:MM"
  spec: "daily"

  # 5-field cron expression, overrides spec when set
  cron_expression: ""

  # Run a sync at startup before the first scheduled fire
  run_immediately: false

  # IANA timezone name for schedule evaluation; empty means the
  # system's local time
  timezone: ""

# Telegram notifications (optional)
telegram:
  bot_token: ""
  chat_id: ""

# Logging
logging:
  # debug, info, warn, error
  level: "info"

  # Log file path, empty for console only
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".tcgrabber.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the file and fill in your account, school id, and child id")
	fmt.Println("2. Run 'tcgrabber config validate' to check it")
	fmt.Println("3. Run 'tcgrabber run' to start syncing")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Mask the password for display
	displayCfg := *cfg
	if displayCfg.Classroom.Password != "" {
		displayCfg.Classroom.Password = "********"
	}
	if displayCfg.Telegram.BotToken != "" {
		displayCfg.Telegram.BotToken = "********"
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	if configFile != "" {
		fmt.Println("1. Command line flags")
		fmt.Printf("2. Configuration file: %s (environment ignored)\n", configFile)
		fmt.Println("3. Default values")
	} else {
		fmt.Println("1. Command line flags")
		fmt.Println("2. Environment variables")
		fmt.Println("3. Configuration file: (auto-discovered)")
		fmt.Println("4. Default values")
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		ui.PrintError("Configuration has errors", "")
		fmt.Println(err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Account: %s\n", cfg.Classroom.Email)
	fmt.Printf("  School/child: %d/%d\n", cfg.Classroom.SchoolID, cfg.Classroom.ChildID)
	fmt.Printf("  Output directory: %s\n", cfg.Output.Dir)
	fmt.Printf("  Cache: %s (timeout %s)\n", cfg.Output.CacheDir, cfg.CacheTimeoutDuration())
	fmt.Printf("  Schedule: %s\n", describeSchedule(cfg.Schedule.Spec, cfg.Schedule.CronExpression))
	fmt.Printf("  Timezone: %s\n", cfg.Schedule.Timezone)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
