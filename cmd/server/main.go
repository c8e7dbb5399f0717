// Command server runs the project board API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/project-board-api/internal/config"
	"github.com/yukikurage/project-board-api/internal/database"
	"github.com/yukikurage/project-board-api/internal/logging"
)

var (
	// configFile is set by the --config flag.
	configFile string

	v = viper.New()

	// Set up by PersistentPreRunE for every subcommand.
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Project board API",
	Long: `Serves kanban boards, calendar tasks, notes and links for projects,
and runs the maintenance jobs that go with them.`,
	SilenceUsage:      true,
	PersistentPreRunE: bootstrap,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./.env)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(remindCmd)
}

// bootstrap loads configuration and opens the logger and database.
func bootstrap(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(v, configFile)
	if err != nil {
		return err
	}

	logger, err = logging.New(logging.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
		JSON:  cfg.IsRelease(),
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	db, err = database.Connect(cfg, logger)
	if err != nil {
		return err
	}
	return nil
}

func shutdown() error {
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if logger != nil {
		_ = logger.Sync()
	}
	return nil
}
