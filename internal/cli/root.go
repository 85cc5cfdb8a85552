// Package cli implements the pdfrag command tree.
package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pdfrag/internal/config"
	"pdfrag/internal/domain"
	"pdfrag/internal/ingest"
	"pdfrag/internal/logger"
	"pdfrag/internal/retrieval"
)

// Service is what every command operates on.
type Service interface {
	Collection() string
	CreateCollection(ctx context.Context) domain.ProvisionResult
	Ingest(ctx context.Context, path string) (ingest.Report, error)
	Ask(ctx context.Context, question string, limit int) (retrieval.Answer, error)
}

// Factory builds a Service from a validated config. The returned func
// releases whatever the service holds open.
type Factory func(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (Service, func(), error)

var (
	cfgFile string
	envFile string
	factory Factory
)

var rootCmd = &cobra.Command{
	Use:   "pdfrag",
	Short: "Ask questions about your PDF documents",
	Long: `pdfrag imports PDF documents page by page into a vector store and
answers questions about them with an OpenAI chat model, citing the pages
it used.

Run without a subcommand to open the interactive menu.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config (default ./config.yaml, then ~/.config/pdfrag/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with secrets")
}

// SetFactory sets how commands build their Service.
func SetFactory(f Factory) {
	factory = f
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		rootCmd.PrintErrln("Error:", err)
		return 1
	}
	return 0
}

// logTarget says where a command's logs go.
type logTarget int

const (
	logToStderr logTarget = iota
	// logToFile keeps stderr clean while the alt screen is active.
	logToFile
)

func openService(cmd *cobra.Command, target logTarget) (Service, func(), error) {
	if factory == nil {
		return nil, nil, errors.New("service factory not configured")
	}
	cfg, used, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg.Logging, target)
	if err != nil {
		return nil, nil, err
	}
	if used != "" {
		log.Debug("loaded config", zap.String("path", used))
	}
	svc, closeFn, err := factory(cmd.Context(), cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	cleanup := func() {
		if closeFn != nil {
			closeFn()
		}
		_ = log.Sync()
	}
	return svc, cleanup, nil
}

func newLogger(cfg config.LoggingConfig, target logTarget) (*zap.Logger, error) {
	if target == logToStderr {
		return logger.NewLogger(cfg.Env, cfg.Level)
	}
	path := cfg.File
	if path == "" {
		path = filepath.Join(os.TempDir(), "pdfrag.log")
	}
	return logger.NewFileLogger(cfg.Env, cfg.Level, path)
}
