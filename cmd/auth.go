package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/scrumlink/scrumlink/credentials"
)

// Auth command flags.
var (
	authIntelligenceKey string
	authTelegramToken   string
	authNonInteractive  bool
)

// AuthCmd represents the auth command group.
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored secrets",
	Long: `Manage the secrets scrumlink needs: the intelligence service API
key and the Telegram bot token.

Secrets are stored encrypted at rest in ~/.scrumlink/credentials.yaml.
The encryption key lives in the system keyring; on headless hosts set
SCRUMLINK_ENCRYPTION_KEY instead.

Environment variables take precedence over stored secrets:
  SCRUMLINK_INTELLIGENCE_KEY   intelligence service API key
  SCRUMLINK_TELEGRAM_TOKEN     Telegram bot token`,
}

// authSetCmd stores secrets.
var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the intelligence API key and Telegram bot token",
	Long: `Store secrets in the encrypted credential file.

Examples:
  # Interactive (prompts with hidden input)
  scrumlink auth set

  # Non-interactive
  scrumlink auth set --intelligence-key sk-or-... --telegram-token 123456:ABC...

Pressing Enter at a prompt keeps the currently stored value.`,
	RunE: runAuthSet,
}

// authStatusCmd shows what is configured.
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which secrets are configured",
	RunE:  runAuthStatus,
}

// authClearCmd deletes stored secrets.
var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored secrets",
	Long: `Delete the encrypted credential file.

Environment variables (SCRUMLINK_INTELLIGENCE_KEY, SCRUMLINK_TELEGRAM_TOKEN)
are not affected.`,
	RunE: runAuthClear,
}

func init() {
	authSetCmd.Flags().StringVar(&authIntelligenceKey, "intelligence-key", "", "intelligence service API key")
	authSetCmd.Flags().StringVar(&authTelegramToken, "telegram-token", "", "Telegram bot token")
	authSetCmd.Flags().BoolVar(&authNonInteractive, "non-interactive", false, "fail instead of prompting for input")

	AuthCmd.AddCommand(authSetCmd)
	AuthCmd.AddCommand(authStatusCmd)
	AuthCmd.AddCommand(authClearCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	creds, err := store.Load()
	if err != nil {
		creds = &credentials.Credentials{}
	}

	intelligenceKey := authIntelligenceKey
	telegramToken := authTelegramToken

	if intelligenceKey == "" && telegramToken == "" {
		if authNonInteractive {
			return fmt.Errorf("no secrets provided and --non-interactive flag set")
		}

		intelligenceKey, err = promptSecret("Intelligence API key", creds.IntelligenceKey != "")
		if err != nil {
			return fmt.Errorf("reading intelligence key: %w", err)
		}
		telegramToken, err = promptSecret("Telegram bot token", creds.TelegramToken != "")
		if err != nil {
			return fmt.Errorf("reading telegram token: %w", err)
		}
	}

	if intelligenceKey != "" {
		creds.IntelligenceKey = intelligenceKey
	}
	if telegramToken != "" {
		creds.TelegramToken = telegramToken
	}
	if creds.IntelligenceKey == "" && creds.TelegramToken == "" {
		return fmt.Errorf("nothing to store")
	}

	if err := store.Save(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Println("Secrets stored.")
	if creds.IntelligenceKey != "" {
		fmt.Printf("  Intelligence key: %s\n", credentials.MaskSecret(creds.IntelligenceKey))
	}
	if creds.TelegramToken != "" {
		fmt.Printf("  Telegram token:   %s\n", credentials.MaskSecret(creds.TelegramToken))
	}

	credPath, _ := credentials.CredentialsPath()
	fmt.Printf("\nStored in: %s\n", credPath)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	if key, err := store.ActiveIntelligenceKey(); err == nil {
		fmt.Printf("Intelligence key: %s%s\n", credentials.MaskSecret(key), sourceSuffix("SCRUMLINK_INTELLIGENCE_KEY"))
	} else {
		fmt.Println("Intelligence key: not configured")
	}

	if token, err := store.ActiveTelegramToken(); err == nil {
		fmt.Printf("Telegram token:   %s%s\n", credentials.MaskSecret(token), sourceSuffix("SCRUMLINK_TELEGRAM_TOKEN"))
	} else {
		fmt.Println("Telegram token:   not configured")
	}

	return nil
}

func runAuthClear(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	if !store.Exists() {
		fmt.Println("No stored secrets.")
		return nil
	}

	if err := store.Delete(); err != nil {
		return fmt.Errorf("deleting credentials: %w", err)
	}
	fmt.Println("Stored secrets deleted.")
	return nil
}

// promptSecret reads a secret without echo, falling back to plain stdin
// when no terminal is attached. An empty answer keeps the stored value.
func promptSecret(label string, hasExisting bool) (string, error) {
	if hasExisting {
		fmt.Printf("%s (Enter to keep current): ", label)
	} else {
		fmt.Printf("%s: ", label)
	}

	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		reader := bufio.NewReader(os.Stdin)
		line, readErr := reader.ReadString('\n')
		if readErr != nil {
			return "", readErr
		}
		return strings.TrimSpace(line), nil
	}
	return strings.TrimSpace(string(raw)), nil
}

func sourceSuffix(envVar string) string {
	if os.Getenv(envVar) != "" {
		return fmt.Sprintf(" (from %s)", envVar)
	}
	return ""
}
