// Command outreach-inbox is a terminal console for the outreach backend:
// the shared inbox, email threads, compose and the contacts table.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/nhle/outreach-inbox/internal/api"
	"github.com/nhle/outreach-inbox/internal/app"
	"github.com/nhle/outreach-inbox/internal/credential"
	"github.com/nhle/outreach-inbox/internal/logging"
	"github.com/nhle/outreach-inbox/internal/model"
	"github.com/nhle/outreach-inbox/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "outreach-inbox",
	Short: "Terminal console for the outreach inbox and contacts",
	Long: `outreach-inbox browses the shared outreach inbox, replies to threads,
composes new messages and pages through campaign contacts.

Examples:
  outreach-inbox                       # start the console
  outreach-inbox --config ./dev.yaml   # use another config file
  outreach-inbox token set             # store the API token in the keyring`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the YAML config file")
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	logFile, err := tea.LogToFile(cfg.Log.File, "")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	logging.Setup(logFile, cfg.Log.Level)

	token, err := credential.APIToken()
	if err != nil {
		slog.Warn("reading api token failed", "error", err)
	}

	client := api.NewClient(cfg.API.BaseURL,
		api.WithToken(token),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
	)

	// The local email table is a projection of the last fetch.
	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	// Keep browser helpers from writing over the alt screen.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard

	slog.Info("starting", "base_url", cfg.API.BaseURL, "authenticated", token != "")

	p := tea.NewProgram(app.New(client, db, cfg, browser.OpenURL, credential.TokenStore{}), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
