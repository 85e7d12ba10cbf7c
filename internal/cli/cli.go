// Package cli implements the reeldeck command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/RevCBH/reeldeck/internal/client"
	"github.com/RevCBH/reeldeck/internal/config"
	"github.com/RevCBH/reeldeck/internal/logging"
	"github.com/RevCBH/reeldeck/internal/observability"
)

// VersionInfo is set at build time
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// App represents the CLI application with all wired dependencies
type App struct {
	rootCmd *cobra.Command

	// Flags
	configPath string
	apiURL     string
	format     string
	jsonOut    bool
	verbose    bool

	// Initialized by setup
	cfg      *config.Config
	log      *logging.Logger
	shutdown observability.Shutdown

	// logWriter overrides where logs go; the dashboard points it away
	// from the terminal
	logWriter io.Writer

	versionInfo VersionInfo
}

// New creates a new CLI application
func New() *App {
	app := &App{}
	app.setupRootCmd()
	return app
}

// Execute runs the CLI application
func (a *App) Execute() error {
	return a.ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI application with ctx
func (a *App) ExecuteContext(ctx context.Context) error {
	err := a.rootCmd.ExecuteContext(ctx)
	a.close()
	return err
}

// SetVersion sets the version string for the version command
func (a *App) SetVersion(version, commit, date string) {
	a.versionInfo = VersionInfo{Version: version, Commit: commit, Date: date}
}

// setupRootCmd configures the root Cobra command
func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "reeldeck",
		Short: "Video generation job dashboard",
		Long: `reeldeck submits video generation jobs and follows them live.

It talks to the job service over REST and receives progress over the
service's push channel, falling back to polling when push is unavailable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := a.rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default ./.reeldeck.yaml, then ~/.reeldeck/config.yaml)")
	flags.StringVar(&a.apiURL, "api-url", "", "Job service URL (overrides config)")
	flags.StringVar(&a.format, "format", "auto", "Output format: auto, table or json")
	flags.BoolVar(&a.jsonOut, "json", false, "Shorthand for --format json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")

	a.rootCmd.AddCommand(
		NewGenerateCmd(a),
		NewJobsCmd(a),
		NewStatusCmd(a),
		NewCancelCmd(a),
		NewResultCmd(a),
		NewStoryboardCmd(a),
		NewPrefetchCmd(a),
		NewHealthCmd(a),
		NewWatchCmd(a),
		NewDashboardCmd(a),
		NewServeCmd(a),
		NewVersionCmd(a),
	)
}

// setup loads configuration and builds the logger and tracer. It runs
// once, on first use by a command.
func (a *App) setup(ctx context.Context) error {
	if a.cfg != nil {
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfig(wd, a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.apiURL != "" {
		cfg.API.URL = a.apiURL
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}

	w := a.logWriter
	if w == nil {
		w = os.Stderr
	}
	log, err := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, w)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	shutdown, err := observability.InitTracing(ctx, cfg.Tracing,
		observability.Options{Version: a.versionInfo.Version}, log)
	if err != nil {
		log.Warn("tracing disabled", "error", err)
	}

	a.cfg = cfg
	a.log = log
	a.shutdown = shutdown
	return nil
}

func (a *App) close() {
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil && a.log != nil {
			a.log.Warn("trace flush failed", "error", err)
		}
	}
	if a.log != nil {
		a.log.Sync()
	}
}

// newClient builds a REST client from the loaded config.
func (a *App) newClient() *client.Client {
	return client.New(a.cfg.API.URL,
		client.WithTimeout(a.cfg.APITimeout()),
		client.WithLogger(a.log),
	)
}
