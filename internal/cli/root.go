package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenthands/lorekeeper/internal/config"
)

const defaultConfigPath = "config/config.toml"

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	cfg        *config.Config
	configPath string
	rulesOnly  bool
)

var rootCmd = &cobra.Command{
	Use:   "lorekeeper",
	Short: "Contradiction detection for persona facts",
	Long: "Stores facts about a persona, flags new facts that contradict existing ones " +
		"with lexical rules and a bounded LLM judge, and groups conflicting facts under a single primary.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if err := c.ApplyEnv(); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if _, err := config.NewLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", envOr("CONFIG_PATH", defaultConfigPath), "path to the TOML config file")
	rootCmd.PersistentFlags().BoolVar(&rulesOnly, "rules-only", false, "skip the LLM judge and use lexical rules only")

	rootCmd.AddCommand(serveCmd, scanCmd, ingestCmd, checkCmd, exportCmd, migrateCmd, versionCmd)
}

// loadConfig reads path. A missing file at the default location falls back
// to the built-in defaults; an explicitly named file must exist.
func loadConfig(path string) (*config.Config, error) {
	c, err := config.Load(path)
	if err == nil {
		return c, nil
	}
	if path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func Execute() error {
	return rootCmd.Execute()
}
