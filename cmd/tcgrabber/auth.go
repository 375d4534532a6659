package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tcgrabber/pkg/auth"
	"tcgrabber/pkg/classroom"
	"tcgrabber/pkg/config"
	"tcgrabber/pkg/ui"
)

var skipVerify bool

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Transparent Classroom credentials",
	Long: `Manage stored Transparent Classroom credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (TC_EMAIL and TC_PASSWORD)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Store credentials securely",
	Long: `Store your Transparent Classroom parent account credentials in the
system keychain or an encrypted file.

You will be prompted for:
  - Account email (if not provided)
  - Account password (hidden as you type)

The credentials are verified against the portal before storing.`,
	Example: `  # Interactive login
  tcgrabber auth login

  # Login with a known email
  tcgrabber auth login parent@example.com`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [email]",
	Short: "Remove stored credentials",
	Long: `Remove stored credentials. If no email is provided and a single
account is stored, that account is removed after confirmation.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// authShowCmd represents the auth show command
var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored accounts",
	Long:  `List stored accounts with the password masked.`,
	Run:   runAuthShow,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(authShowCmd)

	loginCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "store without verifying against the portal")
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var email string
	if len(args) > 0 {
		email = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	if email == "" {
		fmt.Print("Account email: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read email", err.Error())
			os.Exit(1)
		}
		email = strings.TrimSpace(input)
	}

	if email == "" {
		ui.PrintError("Email is required", "")
		os.Exit(1)
	}

	// Check if account already exists
	if existing, _ := manager.Retrieve(email); existing != nil {
		fmt.Printf("Account '%s' already exists. Update credentials? (y/N): ", email)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("Password (hidden): ")
	password, err := readPassword()
	if err != nil {
		ui.PrintError("Failed to read password", err.Error())
		os.Exit(1)
	}
	if password == "" {
		ui.PrintError("Password is required", "")
		os.Exit(1)
	}

	if !skipVerify {
		fmt.Println("Verifying credentials...")
		if err := verifyCredentials(email, password); err != nil {
			ui.PrintError("Sign in failed", err.Error())
			fmt.Println("\nUse --no-verify to store the credentials anyway.")
			os.Exit(1)
		}
		ui.PrintSuccess("Credentials verified")
	}

	account := &auth.Account{
		Email:        email,
		Password:     password,
		LastModified: time.Now(),
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Account saved: " + email)
	fmt.Println("\nStart syncing with:")
	fmt.Println("  tcgrabber run")
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if len(args) > 0 {
		email := args[0]
		if err := manager.Delete(email); err != nil {
			ui.PrintError("Failed to remove account", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Account removed: " + email)
		return
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		ui.PrintError("No stored accounts found", "")
		return
	}

	if len(accounts) == 1 {
		account := accounts[0]
		reader := bufio.NewReader(os.Stdin)
		fmt.Printf("Remove account '%s'? (y/N): ", account.Email)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
		if err := manager.Delete(account.Email); err != nil {
			ui.PrintError("Failed to remove account", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Account removed: " + account.Email)
		return
	}

	fmt.Println("Stored accounts:")
	for _, account := range accounts {
		fmt.Printf("  %s\n", account.Email)
	}
	fmt.Println("\nRemove one with:")
	fmt.Println("  tcgrabber auth logout <email>")
}

func runAuthShow(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'tcgrabber auth login' to add one")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Email: %s\n", i+1, sanitized.Email)
		fmt.Printf("   Password: %s\n", sanitized.Password)
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

// verifyCredentials attempts a portal sign in with the given credentials
func verifyCredentials(email, password string) error {
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	log := mustLogger(cfg)
	client := classroom.NewClient(cfg.Classroom.SchoolID, cfg.Classroom.ChildID, config.RequestTimeout, log)
	return client.Login(email, password)
}

// readPassword reads a password from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
