package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"shield-go/internal/app"
	"shield-go/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a ShieldApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "RegisterAsset", "Scan").
func newApp(cmd *cobra.Command, operation string, args []string) (*app.ShieldApp, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, err
	}

	console := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		console = slog.LevelDebug
	}

	a, err := app.NewShieldApp(cfg, app.Options{
		Operation: operation,
		Args:      strings.Join(args, " "),
		Console:   console,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// withApp runs fn against a freshly created app and records its outcome.
func withApp(cmd *cobra.Command, operation string, args []string, fn func(a *app.ShieldApp) error) error {
	a, err := newApp(cmd, operation, args)
	if err != nil {
		return err
	}
	defer a.Close()

	err = fn(a)
	a.Finish(err)
	return err
}

func readConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

var rootCmd = &cobra.Command{
	Use:          "shield",
	Short:        "Perceptual fingerprinting and re-upload monitoring for your images",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()

		cfg := config.NewConfig(hostID, defaults["base_dir"])
		cfg.TargetsFile = defaults["targets_file"]

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Run `shield keys init` to enable encrypted thumbnails.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Host ID:      %s\n", cfg.HostID)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Targets File: %s\n", cfg.TargetsFile)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:        %s (%s)\n", v.Name, v.Type)
		}
		fmt.Printf("Database:     %s\n", cfg.Database.Type)
		fmt.Printf("Alerts:       %s (capacity %d)\n", cfg.Alerts.Type, cfg.Alerts.Capacity)
		fmt.Printf("Encryption:   %s\n", cfg.Encryption.Type)
		fmt.Printf("Crawler:      %s\n", cfg.Crawler.Type)
		fmt.Printf("Thresholds:   aHash=%d dHash=%d pHash=%d\n",
			cfg.Matching.AHashThreshold, cfg.Matching.DHashThreshold, cfg.Matching.PHashThreshold)
		fmt.Printf("Listen:       %s\n", cfg.Server.Listen)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage thumbnail encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the key pair that seals asset thumbnails",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		passphrase, err := readNewPassphrase()
		if err != nil {
			return err
		}
		if err := app.SetupKeys(cfg, passphrase); err != nil {
			return fmt.Errorf("setting up keys: %w", err)
		}

		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s (passphrase protected)\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Echo debug logs to stderr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	keysCmd.AddCommand(keysInitCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
}
