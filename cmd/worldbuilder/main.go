// Command worldbuilder serves the scene-authoring HTTP/MCP contract
// surface against an in-memory scene graph, standing in for the
// rendering host's real scene graph and asset primitives (out of
// scope per spec.md §1). Wiring follows the teacher's
// cmd/thv-registry-api/app/serve.go: cobra flags bound through viper,
// a chi router built once, graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentworld/control-plane/pkg/assets"
	"github.com/agentworld/control-plane/pkg/authguard"
	"github.com/agentworld/control-plane/pkg/config"
	"github.com/agentworld/control-plane/pkg/controller"
	"github.com/agentworld/control-plane/pkg/logging"
	"github.com/agentworld/control-plane/pkg/metrics"
	"github.com/agentworld/control-plane/pkg/queue"
	"github.com/agentworld/control-plane/pkg/ratelimit"
	"github.com/agentworld/control-plane/pkg/secheaders"
	"github.com/agentworld/control-plane/pkg/services/shared"
	"github.com/agentworld/control-plane/pkg/services/worldbuilder"
	"github.com/agentworld/control-plane/pkg/tracker"
)

const gracefulTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "worldbuilder",
	Short: "Serve the worldbuilder scene-authoring control plane",
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("address", ":8080", "address to listen on")
	rootCmd.Flags().String("config", "", "optional YAML config file")
	_ = viper.BindPFlag("address", rootCmd.Flags().Lookup("address"))
	_ = viper.BindPFlag("config", rootCmd.Flags().Lookup("config"))
}

func run(_ *cobra.Command, _ []string) error {
	log := logging.WithService("worldbuilder")

	addr := viper.GetString("address")
	cfg, err := config.Load("worldbuilder", viper.GetString("config"), &config.HostSettings{HTTPAddr: &addr})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var assetGuard *assets.Guard
	if len(cfg.Assets.SearchDirs) > 0 {
		assetGuard, err = assets.New(cfg.Assets)
		if err != nil {
			return fmt.Errorf("building asset guard: %w", err)
		}
	}

	q := queue.New(cfg.QueueCapacityPerChannel)
	tr := tracker.New(10_000, 10*time.Minute)
	exec := queue.NewTickExecutor(q, tr, cfg.MaxOpsPerCycle, nil)

	scene := worldbuilder.NewScene()
	reg, err := worldbuilder.NewRegistry(worldbuilder.Deps{
		Shared: shared.Deps{Queue: q, Tracker: tr, DefaultTimeout: 5 * time.Second},
		Scene:  scene,
		Assets: assetGuard,
	})
	if err != nil {
		return fmt.Errorf("building registry: %w", err)
	}

	router := controller.NewRouter(controller.Config{
		Service:     "worldbuilder",
		Registry:    reg,
		Metrics:     metrics.New("worldbuilder"),
		Auth:        authguard.New(cfg.AuthGuard, nil),
		RateLimiter: ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, nil),
		HSTS:        cfg.HSTS,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// The render tick: in production this fires once per frame from the
	// rendering host's own loop; standalone, a fixed-rate ticker plays
	// that role so queued operations still drain.
	tickStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(16 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-tickStop:
				return
			case <-ticker.C:
				exec.Tick()
			}
		}
	}()

	go func() {
		log.Info("worldbuilder listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down worldbuilder")
	close(tickStop)

	ctx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "worldbuilder: %v\n", err)
		os.Exit(1)
	}
}
