package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	config "cfdiag-api/configs"
	"cfdiag-api/internal/bootstrap"
	"cfdiag-api/internal/logging"
	"cfdiag-api/pkg/models"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	envFile       string
	store         string
	sqlitePath    string
	knowledgeBase string
	logLevel      string
}

// app is built by the root pre-run hook and closed by the post-run hook.
var app *bootstrap.App

var rootCmd = &cobra.Command{
	Use:   "cfctl",
	Short: "Certainty-factor diagnosis from the command line",
	Long:  "cfctl runs the backward-chaining certainty-factor engine against the\nconfigured knowledge base and result store.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:       true,
	PersistentPreRunE:  openApp,
	PersistentPostRunE: closeApp,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.envFile, "env-file", ".env", "Optional dotenv file")
	f.StringVar(&rootFlags.store, "store", "", "Result store driver (memory, sqlite, postgres, qdrant)")
	f.StringVar(&rootFlags.sqlitePath, "sqlite-path", "", "SQLite database file")
	f.StringVar(&rootFlags.knowledgeBase, "knowledge-base", "", "Knowledge base YAML (embedded default when empty)")
	f.StringVar(&rootFlags.logLevel, "log-level", "warn", "Log level")

	rootCmd.AddCommand(hypothesesCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.Version = version
}

func openApp(cmd *cobra.Command, _ []string) error {
	// A failed RunE skips the post-run hook.
	if err := closeApp(cmd, nil); err != nil {
		return err
	}
	if rootFlags.envFile != "" {
		if _, err := os.Stat(rootFlags.envFile); err == nil {
			if err := godotenv.Load(rootFlags.envFile); err != nil {
				return fmt.Errorf("load %s: %w", rootFlags.envFile, err)
			}
		}
	}

	cfg := config.LoadConfig()
	if rootFlags.store != "" {
		cfg.StoreDriver = strings.ToLower(rootFlags.store)
	}
	if rootFlags.sqlitePath != "" {
		cfg.SQLitePath = rootFlags.sqlitePath
	}
	if rootFlags.knowledgeBase != "" {
		cfg.KnowledgeBasePath = rootFlags.knowledgeBase
	}

	logger, err := logging.New("development", rootFlags.logLevel)
	if err != nil {
		return err
	}
	built, err := bootstrap.Build(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	app = built
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	err := app.Close()
	app = nil
	return err
}

// resolveHypothesis accepts either a numeric id or a hypothesis code.
func resolveHypothesis(ref string) (models.Hypothesis, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		return app.KB.Hypothesis(id)
	}
	return app.KB.HypothesisByCode(strings.ToUpper(ref))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
