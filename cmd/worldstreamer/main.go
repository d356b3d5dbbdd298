// Command worldstreamer serves the streaming-session HTTP/MCP contract
// surface for one protocol variant (srt or rtmp, selected by flag/env —
// the original shipped these as two sibling extensions; running both
// side by side is two instances of this binary). The MCP proxy binary
// forwards worldstreamer calls to the one base URL in
// AGENT_WORLDSTREAMER_BASE_URL.
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
	"github.com/agentworld/control-plane/pkg/services/shared"
	"github.com/agentworld/control-plane/pkg/services/worldstreamer"
	"github.com/agentworld/control-plane/pkg/streaming"
)

const gracefulTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "worldstreamer",
	Short: "Serve one protocol variant of the worldstreamer control plane",
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("address", ":8084", "address to listen on")
	rootCmd.Flags().String("config", "", "optional YAML config file")
	rootCmd.Flags().String("protocol", "rtmp", "streaming protocol this instance serves: srt or rtmp")
	rootCmd.Flags().Int("sink-port", 1935, "default sink port used to build stream URLs")
	_ = viper.BindPFlag("address", rootCmd.Flags().Lookup("address"))
	_ = viper.BindPFlag("config", rootCmd.Flags().Lookup("config"))
	_ = viper.BindPFlag("protocol", rootCmd.Flags().Lookup("protocol"))
	_ = viper.BindPFlag("sink-port", rootCmd.Flags().Lookup("sink-port"))
}

func run(_ *cobra.Command, _ []string) error {
	protocol := streaming.Protocol(viper.GetString("protocol"))
	log := logging.WithService("worldstreamer-" + string(protocol))

	addr := viper.GetString("address")
	cfg, err := config.Load("worldstreamer", viper.GetString("config"), &config.HostSettings{HTTPAddr: &addr})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	reg, err := worldstreamer.NewRegistry(worldstreamer.Deps{
		Shared:   shared.Deps{DefaultTimeout: 5 * time.Second},
		Session:  streaming.NewSession(),
		Protocol: protocol,
		Defaults: worldstreamer.StreamDefaults{
			Width: 1920, Height: 1080, FPS: 30, BitrateKbps: 6000,
			Encoder:  streaming.EncoderX264,
			SinkPort: viper.GetInt("sink-port"),
		},
		Environment: worldstreamer.GstEnvironmentChecker{},
	})
	if err != nil {
		return fmt.Errorf("building registry: %w", err)
	}

	router := controller.NewRouter(controller.Config{
		Service:     "worldstreamer",
		Registry:    reg,
		Metrics:     metrics.New("worldstreamer"),
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
		log.Info("worldstreamer listening", "addr", cfg.HTTPAddr, "protocol", protocol)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down worldstreamer")

	ctx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "worldstreamer: %v\n", err)
		os.Exit(1)
	}
}
