package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tiger-trader/internal/config"
	"tiger-trader/internal/security"
)

// addAuthCommands wires the encrypted credential store commands.
func addAuthCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAuthCmd(app))
}

func newAuthCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage encrypted credentials",
		Long: `Store Tiger OpenAPI and OpenAI credentials in an encrypted file
under the config directory. Credentials are protected with a master
password using PBKDF2 key derivation and AES-256-GCM.`,
	}

	cmd.AddCommand(newAuthInitCmd(app))
	cmd.AddCommand(newAuthShowCmd(app))
	cmd.AddCommand(newAuthClearCmd(app))

	return cmd
}

func openCredentialManager(cmd *cobra.Command) (*security.CredentialManager, error) {
	cm := security.NewCredentialManager(config.DefaultConfigDir(), 0)

	password, err := promptLine(cmd, "Master password: ")
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("master password cannot be empty")
	}
	if err := cm.Initialize(password); err != nil {
		return nil, err
	}
	return cm, nil
}

func promptLine(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newAuthInitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Store or update credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			cm, err := openCredentialManager(cmd)
			if err != nil {
				return err
			}
			defer cm.ClearSession()

			creds, err := cm.GetCredentials()
			if err != nil {
				return err
			}

			fields := []struct {
				label   string
				current string
				target  *string
			}{
				{"Tiger ID", creds.Tiger.TigerID, &creds.Tiger.TigerID},
				{"Account", creds.Tiger.Account, &creds.Tiger.Account},
				{"Private key path", creds.Tiger.PrivateKeyPath, &creds.Tiger.PrivateKeyPath},
				{"OpenAI API key", creds.OpenAI.APIKey, &creds.OpenAI.APIKey},
			}

			output.Println("Enter credentials (leave blank to keep current value).")
			for _, f := range fields {
				label := f.label
				if f.current != "" {
					label = fmt.Sprintf("%s [%s]", f.label, security.MaskSensitive(f.current))
				}
				value, err := promptLine(cmd, label+": ")
				if err != nil {
					return err
				}
				if value != "" {
					*f.target = value
				}
			}

			if err := cm.UpdateCredentials(creds); err != nil {
				return err
			}

			output.Success("Credentials saved.")
			return nil
		},
	}
}

func newAuthShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show stored credentials (masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			cm, err := openCredentialManager(cmd)
			if err != nil {
				return err
			}
			defer cm.ClearSession()

			creds, err := cm.GetCredentials()
			if err != nil {
				return err
			}

			masked := map[string]string{
				"tiger_id":         security.MaskSensitive(creds.Tiger.TigerID),
				"account":          security.MaskSensitive(creds.Tiger.Account),
				"private_key_path": creds.Tiger.PrivateKeyPath,
				"openai_api_key":   security.MaskSensitive(creds.OpenAI.APIKey),
			}
			if output.IsJSON() {
				return output.JSON(masked)
			}

			output.Printf("Tiger ID:         %s\n", masked["tiger_id"])
			output.Printf("Account:          %s\n", masked["account"])
			output.Printf("Private Key Path: %s\n", masked["private_key_path"])
			output.Printf("OpenAI API Key:   %s\n", masked["openai_api_key"])
			return nil
		},
	}
}

func newAuthClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the encrypted credential store",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			path := filepath.Join(config.DefaultConfigDir(), "credentials.enc")
			if _, err := os.Stat(path); os.IsNotExist(err) {
				output.Info("No stored credentials found.")
				return nil
			}

			confirm, err := promptLine(cmd, "Delete stored credentials? (yes/no): ")
			if err != nil {
				return err
			}
			if confirm != "yes" {
				output.Info("Aborted.")
				return nil
			}

			if err := os.Remove(path); err != nil {
				return fmt.Errorf("removing credentials: %w", err)
			}
			output.Success("Credentials deleted.")
			return nil
		},
	}
}
