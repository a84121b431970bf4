package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	app "github.com/okian/orgchart/internal/app"
	"github.com/okian/orgchart/internal/config"
	"github.com/okian/orgchart/pkg/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// cli carries state shared by every subcommand once the root has loaded
// configuration.
type cli struct {
	cfg      *config.Config
	log      logger.Logger
	logLevel string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "orgchart",
		Short: "Resolve and evaluate organizational charts",
		Long: "orgchart turns conflicting manager assertions into a validated org chart\n" +
			"and scores predicted charts against a ground truth.",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(newEvaluateCmd(c))
	root.AddCommand(newBatchCmd(c))
	root.AddCommand(newResolveCmd(c))
	root.AddCommand(newServeCmd(c))
	return root
}

// setup loads configuration (defaults -> optional file -> env) and
// initializes logging on stderr so reports on stdout stay clean.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(
		logger.WithWriter(cmd.ErrOrStderr()),
		logger.WithJSON(cfg.LogFormat == "json"),
	); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	level := cfg.LogLevel
	if c.logLevel != "" {
		level = c.logLevel
	}
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(level); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info", logger.String("log_level", level), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c.cfg = cfg
	c.log = logger.Named("orgchart")
	return nil
}

// newService builds and starts the service from the loaded configuration.
func (c *cli) newService(ctx context.Context) (*app.Service, error) {
	opts := append(app.Options(c.cfg), app.WithLogger(c.log))
	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start service: %w", err)
	}
	return svc, nil
}

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
