package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/omriShneor/engage_ai/internal/analysis"
	"github.com/omriShneor/engage_ai/internal/clients"
	"github.com/omriShneor/engage_ai/internal/config"
	"github.com/omriShneor/engage_ai/internal/database"
	"github.com/omriShneor/engage_ai/internal/events"
	"github.com/omriShneor/engage_ai/internal/ledger"
	"github.com/omriShneor/engage_ai/internal/metrics"
	"github.com/omriShneor/engage_ai/internal/timeutil"
	"github.com/omriShneor/engage_ai/internal/vectorstore"
)

var (
	tenantID string
	dbPath   string
)

// app holds the wired engine for the lifetime of one command
type app struct {
	cfg          *config.Config
	logger       *logrus.Logger
	db           *database.DB
	registry     *clients.Registry
	store        *vectorstore.Store
	ledger       *ledger.Ledger
	publisher    events.Publisher
	orchestrator *analysis.Orchestrator
}

func main() {
	if _, err := run(context.Background(), os.Args[1:]); err != nil {
		fatal("running command", err)
	}
}

// run executes one command. The engine is closed before returning, whether
// or not the command succeeded.
func run(ctx context.Context, args []string) (*app, error) {
	var a *app
	defer func() {
		if a != nil {
			a.close()
		}
	}()

	rootCmd := newRootCmd(&a)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return a, err
}

func newRootCmd(a **app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "engage",
		Short:         "AI analysis engine for customer engagement",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			*a, err = newApp(cmd.Context())
			return err
		},
	}

	rootCmd.PersistentFlags().StringVarP(&tenantID, "tenant", "t", "", "Tenant id")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides ENGAGE_DB_PATH)")

	rootCmd.AddCommand(
		analyzeCmd(a),
		autoReplyCmd(a),
		triageCmd(a),
		summarizeCmd(a),
		rewriteCmd(a),
		grammarCmd(a),
		coachCmd(a),
		leadScoreCmd(),
		healthCmd(a),
		insightsCmd(a),
		recentCmd(a),
		searchCmd(a),
	)
	return rootCmd
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.LoadFromEnv()
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	logger := initLogger(cfg)

	if cfg.MetricsAddr != "" {
		go metrics.Serve(cfg.MetricsAddr, logger)
	}

	db, err := database.New(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	overrides, err := config.LoadTenantOverrides(cfg.TenantsFile)
	if err != nil {
		db.Close()
		return nil, err
	}
	registry := clients.NewRegistryFromConfig(cfg, overrides, logger)

	store := vectorstore.NewStore(nil)
	if _, err := vectorstore.NewIndexer(db, store, logger).IndexAll(ctx); err != nil {
		logger.WithError(err).Warn("Knowledge index unavailable")
	}

	loc, _ := timeutil.ResolveLocation(cfg.Timezone)
	l := ledger.New(db, logger, loc)
	publisher := initPublisher(cfg, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		registry:  registry,
		store:     store,
		ledger:    l,
		publisher: publisher,
		orchestrator: analysis.NewOrchestrator(analysis.Config{
			Gateways:  registry,
			Knowledge: store,
			Recorder:  l,
			Publisher: publisher,
			Logger:    logger,
		}),
	}, nil
}

func initLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func initPublisher(cfg *config.Config, logger *logrus.Logger) events.Publisher {
	if cfg.AMQPURL == "" {
		logger.Debug("AMQP not configured, publishing to in-process hub")
		return events.NewHub()
	}
	return events.NewAMQPPublisher(logger, events.AMQPConfig{
		URL:       cfg.AMQPURL,
		QueueName: cfg.AMQPQueue,
	})
}

func (a *app) close() {
	if p, ok := a.publisher.(*events.AMQPPublisher); ok {
		p.Disconnect()
	}
	a.registry.Close()
	a.db.Close()
}

// readContent joins args, or reads stdin when args are empty or "-"
func readContent(args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("content is required")
	}
	return content, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fatal(context string, err error) {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", context, err)
	os.Exit(1)
}
