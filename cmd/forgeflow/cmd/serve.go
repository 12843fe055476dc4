package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/api"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/registry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the REST API and keeps the workflow engine resident. On startup,
projects interrupted by a previous crash are rolled back to their last
checkpoint. With agents.watch enabled, agent definition files are
reloaded when they change on disk.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "bind address (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Roll interrupted projects back to their recovery points before
	// accepting traffic.
	recovered, err := rt.engine.RecoverInterrupted(ctx)
	if err != nil {
		return fmt.Errorf("recovering interrupted projects: %w", err)
	}
	for _, ec := range recovered {
		rt.log.Info("recovered interrupted project",
			"project_id", ec.ProjectID, "status", ec.Status)
	}

	if rt.cfg.Agents.Watch {
		watcher, werr := registry.NewWatcher(rt.registry, rt.cfg.Agents.DefinitionsDir, rt.log)
		if werr != nil {
			rt.log.Warn("definition watcher unavailable", "error", werr)
		} else if werr := watcher.Start(); werr != nil {
			rt.log.Warn("definition watcher failed to start", "error", werr)
		} else {
			defer watcher.Close()
		}
	}

	server := api.NewServer(rt.engine, rt.approvals, rt.registry, rt.store,
		api.WithLogger(rt.log),
		api.WithCORSOrigins(rt.cfg.Server.CORSOrigins),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		serveErr := server.ListenAndServe(gctx, rt.cfg.Server.Addr())
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}
		return serveErr
	})

	if err := g.Wait(); err != nil {
		return err
	}
	rt.log.Info("server stopped")
	return nil
}
