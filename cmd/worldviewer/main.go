// Command worldviewer serves the camera/cinematic HTTP/MCP contract
// surface. Every operation here runs inline (no render-tick queue):
// a camera move is either an instantaneous teleport or an open-ended,
// asynchronously-polled movement, neither of which fits a one-shot
// tick result.
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
	"github.com/agentworld/control-plane/pkg/services/worldviewer"
)

const gracefulTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "worldviewer",
	Short: "Serve the worldviewer camera/cinematic control plane",
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("address", ":8081", "address to listen on")
	rootCmd.Flags().String("config", "", "optional YAML config file")
	_ = viper.BindPFlag("address", rootCmd.Flags().Lookup("address"))
	_ = viper.BindPFlag("config", rootCmd.Flags().Lookup("config"))
}

func run(_ *cobra.Command, _ []string) error {
	log := logging.WithService("worldviewer")

	addr := viper.GetString("address")
	cfg, err := config.Load("worldviewer", viper.GetString("config"), &config.HostSettings{HTTPAddr: &addr})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	movement := worldviewer.NewMovementState()
	reg, err := worldviewer.NewRegistry(worldviewer.Deps{
		Camera:     worldviewer.NewCamera(),
		Movement:   movement,
		Transition: worldviewer.NewMovementTransition(movement),
		Assets:     worldviewer.NewAssetRegistry(),
	})
	if err != nil {
		return fmt.Errorf("building registry: %w", err)
	}

	router := controller.NewRouter(controller.Config{
		Service:     "worldviewer",
		Registry:    reg,
		Metrics:     metrics.New("worldviewer"),
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
		log.Info("worldviewer listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down worldviewer")

	ctx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "worldviewer: %v\n", err)
		os.Exit(1)
	}
}
