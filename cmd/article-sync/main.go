package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"article-sync/internal/app"
	"article-sync/internal/config"
	"article-sync/internal/fetcher"
	"article-sync/internal/observability"
	"article-sync/internal/sheet"
)

// Exit codes
const (
	exitOK     = 0
	exitFatal  = 1
	exitConfig = 2
	exitFetch  = 3
	exitParse  = 4
)

// version задаётся при сборке через -ldflags "-X main.version=..."
var version = "dev"

type options struct {
	configPath string
	envFile    string
	outputPath string
	indexPath  string
	logLevel   string
	dryRun     bool
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "article-sync",
		Short: "Publish articles from a Google Sheets CSV export to articles.json",
		Long: `article-sync fetches the published CSV export of a spreadsheet, keeps the rows
whose status is "published" and atomically rewrites the JSON artifact served by the site.

When no article is published the existing artifact is left untouched.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts, stdout)
		},
	}

	rootCmd.Flags().StringVar(&opts.configPath, "config", "", "Path to configuration file (default "+config.DefaultConfigPath+")")
	rootCmd.Flags().StringVar(&opts.envFile, "env-file", "", "Path to a .env file loaded before reading the environment (default .env, optional)")
	rootCmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Path of the JSON artifact (overrides publish.output_path)")
	rootCmd.Flags().StringVar(&opts.indexPath, "index", "", "Path of the HTML index page (overrides publish.index_path)")
	rootCmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Build the artifact without writing it")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &config.ConfigError{Err: err}
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "article-sync %s\n", version)
		},
	})

	return rootCmd
}

func runSync(ctx context.Context, opts *options, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	console := observability.NewConsole(stdout)

	cfg, err := config.LoadConfig(config.LoadOptions{
		ConfigPath: opts.configPath,
		EnvFile:    opts.envFile,
		OutputPath: opts.outputPath,
		IndexPath:  opts.indexPath,
		LogLevel:   opts.logLevel,
		DryRun:     opts.dryRun,
	})
	if err != nil {
		console.Fail("Configuration error: %v", err)
		return err
	}

	logger, err := observability.NewLogger(observability.LoggerOptions{
		Level:      cfg.Observability.LogLevel,
		Path:       cfg.Observability.LogPath,
		MaxSizeMB:  cfg.Observability.LogMaxSizeMB,
		MaxBackups: cfg.Observability.LogMaxBackups,
		MaxAgeDays: cfg.Observability.LogMaxAgeDays,
	})
	if err != nil {
		return &config.ConfigError{Err: fmt.Errorf("failed to create logger: %w", err)}
	}
	defer func() { _ = logger.Close() }()

	ctx, cancel := app.GracefulShutdown(ctx, logger)
	defer cancel()

	// Журнал аудита необязателен: без БД синхронизация всё равно выполняется
	repo, err := app.OpenRepository(ctx, cfg, logger)
	if err != nil {
		logger.Warn("Run audit disabled", "driver", cfg.Storage.Driver, "error", err.Error())
		console.Warn("Run audit disabled: %v", err)
		repo = nil
	}
	if repo != nil {
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Warn("Failed to close repository", "error", err.Error())
			}
		}()
	}

	summary, err := app.NewOrchestrator(cfg, logger, console, observability.NewMetrics(), repo).Run(ctx)
	if err != nil {
		return err
	}

	logger.Debug("Run summary", "summary", summary.String())
	return nil
}

// exitCode maps pipeline failures to process exit statuses.
func exitCode(err error) int {
	var (
		configErr *config.ConfigError
		fetchErr  *fetcher.FetchError
		parseErr  *sheet.ParseError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &configErr):
		return exitConfig
	case errors.As(err, &fetchErr):
		return exitFetch
	case errors.As(err, &parseErr):
		return exitParse
	default:
		return exitFatal
	}
}
