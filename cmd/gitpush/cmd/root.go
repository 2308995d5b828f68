package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Gitpush/internal/config"
	"github.com/Ning0612/Gitpush/internal/logger"
	"github.com/Ning0612/Gitpush/internal/service"
)

var (
	configPath string
	refFlag    string
	logLevel   string

	loadedConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gitpush",
	Short: "Push a local tree to a GitHub repository file by file",
	Long: `gitpush compares a local directory with a branch of a GitHub repository
by blob hash and pushes selected changes through the contents API.
No local git repository is needed.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Shutdown()
	},
}

// Execute runs the CLI and exits non-zero on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./config.yaml or ~/.config/gitpush/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&refFlag, "ref", "", "branch to compare against (default: remote.branch)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the console log level (debug, info, warn, error)")
}

// setup loads configuration and starts the logger before any command runs
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logCfg, err := cfg.LoggerConfig()
	if err != nil {
		return err
	}
	if err := logger.Init(logCfg); err != nil {
		return err
	}
	loadedConfig = cfg
	return nil
}

// newService builds a sync service from the loaded configuration
func newService(ctx context.Context, opts ...service.Option) (*service.SyncService, error) {
	return service.NewSyncService(ctx, loadedConfig, opts...)
}

// repoPaths converts command-line paths to the forward-slash form used
// against the repository. On Unix this leaves them untouched.
func repoPaths(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = filepath.ToSlash(arg)
	}
	return out
}
