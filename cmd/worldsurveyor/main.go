// Command worldsurveyor serves the waypoint/group/marker HTTP/MCP
// contract surface against a SQLite-backed waypoint store.
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

	"github.com/agentworld/control-plane/pkg/authguard"
	"github.com/agentworld/control-plane/pkg/config"
	"github.com/agentworld/control-plane/pkg/controller"
	"github.com/agentworld/control-plane/pkg/logging"
	"github.com/agentworld/control-plane/pkg/metrics"
	"github.com/agentworld/control-plane/pkg/ratelimit"
	"github.com/agentworld/control-plane/pkg/services/worldsurveyor"
	"github.com/agentworld/control-plane/pkg/waypoints"
)

const gracefulTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "worldsurveyor",
	Short: "Serve the worldsurveyor waypoint/group/marker control plane",
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("address", ":8082", "address to listen on")
	rootCmd.Flags().String("config", "", "optional YAML config file")
	rootCmd.Flags().String("waypoint-store", "", "path to the waypoint SQLite store")
	_ = viper.BindPFlag("address", rootCmd.Flags().Lookup("address"))
	_ = viper.BindPFlag("config", rootCmd.Flags().Lookup("config"))
	_ = viper.BindPFlag("waypoint-store", rootCmd.Flags().Lookup("waypoint-store"))
}

func run(_ *cobra.Command, _ []string) error {
	log := logging.WithService("worldsurveyor")

	addr := viper.GetString("address")
	host := &config.HostSettings{HTTPAddr: &addr}
	if path := viper.GetString("waypoint-store"); path != "" {
		host.WaypointStorePath = &path
	}
	cfg, err := config.Load("worldsurveyor", viper.GetString("config"), host)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := waypoints.Open(cfg.WaypointStorePath)
	if err != nil {
		return fmt.Errorf("opening waypoint store %q: %w", cfg.WaypointStorePath, err)
	}
	defer store.Close()

	reg, err := worldsurveyor.NewRegistry(worldsurveyor.Deps{
		Store:   store,
		Markers: worldsurveyor.NewMarkerState(),
	})
	if err != nil {
		return fmt.Errorf("building registry: %w", err)
	}

	router := controller.NewRouter(controller.Config{
		Service:     "worldsurveyor",
		Registry:    reg,
		Metrics:     metrics.New("worldsurveyor"),
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

	go func() {
		log.Info("worldsurveyor listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down worldsurveyor")

	ctx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "worldsurveyor: %v\n", err)
		os.Exit(1)
	}
}
