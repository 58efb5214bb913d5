package main

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"evolvekit/internal/telemetry"
	"evolvekit/pkg/evolvekit"
)

type globalOptions struct {
	store     string
	dbPath    string
	logLevel  string
	logFormat string
	logOutput string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "evolvekitctl",
		Short:         "Run and inspect evolutionary searches",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.store, "store", "memory", "store backend (memory, sqlite)")
	flags.StringVar(&opts.dbPath, "db-path", "evolvekit.db", "sqlite database path")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "console", "log format (console, json)")
	flags.StringVar(&opts.logOutput, "log-output", "stderr", "log destination (stderr, stdout or a file path)")

	root.AddCommand(
		newRunCommand(opts),
		newRunsCommand(opts),
		newGenerationsCommand(opts),
		newResultCommand(opts),
		newExportCommand(opts),
	)
	return root
}

// session bundles what every command needs: a logger and an initialized
// client. close releases both.
type session struct {
	client *evolvekit.Client
	logger zerolog.Logger
	closer io.Closer
}

func (o *globalOptions) open(cmd *cobra.Command, observer evolvekit.Observer) (*session, error) {
	cfg := telemetry.LoggingConfig{Level: o.logLevel, Format: o.logFormat, Output: o.logOutput}
	if err := validate.Struct(cfg); err != nil {
		return nil, validationError(err)
	}
	logger, closer, err := telemetry.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	logger = telemetry.Component(logger, "evolvekitctl")

	client, err := evolvekit.New(evolvekit.Options{
		StoreKind: o.store,
		DBPath:    o.dbPath,
		Logger:    &logger,
		Observer:  observer,
	})
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	if err := client.Init(cmd.Context()); err != nil {
		_ = client.Close()
		_ = closer.Close()
		return nil, err
	}
	return &session{client: client, logger: logger, closer: closer}, nil
}

func (s *session) close() {
	if err := s.client.Close(); err != nil {
		s.logger.Error().Err(err).Msg("close client")
	}
	_ = s.closer.Close()
}
