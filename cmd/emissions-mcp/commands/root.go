package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emissions-mcp/internal/config"
	"emissions-mcp/internal/logging"
	"emissions-mcp/internal/mcp"
	"emissions-mcp/internal/observability"
	"emissions-mcp/internal/planning"
	"emissions-mcp/internal/store"
	"emissions-mcp/internal/store/filestore"
	"emissions-mcp/internal/store/sqlstore"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig

	rowStore      store.Store
	service       *planning.Service
	metricsServer *observability.Server
	logCloser     io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "emissions-mcp",
	Short: "Emissions time-series MCP server for offshore well plans",
	Long: `An MCP Server that prorates step-level CO2 emission totals of offshore well plans
onto daily and hourly buckets, for baseline and target scenarios, and reports the
daily contribution of each emission reduction initiative.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logCloser, err = logging.Init(logging.Options{Verbose: verbose})
		if err != nil {
			return err
		}

		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		rowStore, err = openStore(cfg)
		if err != nil {
			return err
		}

		var opts []planning.Option
		if cfg.MetricsAddr != "" {
			metrics := observability.NewMetrics()
			metricsServer, err = observability.Serve(cfg.MetricsAddr, metrics)
			if err != nil {
				return err
			}
			opts = append(opts, planning.WithMetrics(metrics))
		}
		service = planning.NewService(rowStore, opts...)

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("store", cfg.StoreDriver).
			Msg("emissions-mcp starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := mcp.NewServer(service, mcp.Options{
			EnableCharts: cfg.EnableMermaidCharts,
			DefaultUnit:  string(cfg.DefaultUnit),
		})
		return server.Run(ctx)
	},
}

func openStore(cfg *config.AppConfig) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverFile:
		return filestore.New(cfg.PlansDir)
	default:
		return sqlstore.Open(cfg.SQLitePath)
	}
}

func shutdown() {
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to stop metrics server")
		}
		metricsServer = nil
	}
	if rowStore != nil {
		if err := rowStore.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
		rowStore = nil
	}
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

func Execute() error {
	err := rootCmd.Execute()
	shutdown()
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
