// Command mcpproxy is the standalone MCP front door for all five
// control-plane services (spec §4.12): it exposes every service's
// contract surface as MCP tools over streamable HTTP and forwards each
// call to the corresponding backend's HTTP route. Grounded on the
// teacher's cmd/thv/app/mcp_serve.go (server.NewMCPServer,
// server.NewStreamableHTTPServer, the same goroutine/signal/shutdown
// shape).
//
// This binary never executes a service's own handler: it only needs
// each service's Contract metadata (operation, route, method, tool
// name) to build tool descriptions and forward requests, so it builds
// each service's Registry against placeholder in-process collaborators
// that are never exercised.
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

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentworld/control-plane/pkg/config"
	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/logging"
	"github.com/agentworld/control-plane/pkg/mcpproxy"
	"github.com/agentworld/control-plane/pkg/services/shared"
	"github.com/agentworld/control-plane/pkg/services/worldbuilder"
	"github.com/agentworld/control-plane/pkg/services/worldrecorder"
	"github.com/agentworld/control-plane/pkg/services/worldstreamer"
	"github.com/agentworld/control-plane/pkg/services/worldsurveyor"
	"github.com/agentworld/control-plane/pkg/services/worldviewer"
	"github.com/agentworld/control-plane/pkg/streaming"
	"github.com/agentworld/control-plane/pkg/waypoints"
)

var rootCmd = &cobra.Command{
	Use:   "mcpproxy",
	Short: "Expose every backend service's contract surface as MCP tools",
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("address", ":8090", "address to listen on")
	rootCmd.Flags().String("config", "", "optional YAML config file")
	_ = viper.BindPFlag("address", rootCmd.Flags().Lookup("address"))
	_ = viper.BindPFlag("config", rootCmd.Flags().Lookup("config"))
}

// serviceRegistries returns the (never-invoked) Contract metadata for
// every backend service. The collaborators each NewRegistry closes
// over only matter to handler bodies, which this process never calls,
// so they're built with the cheapest in-memory stand-ins available.
func serviceRegistries() (map[string]*contracts.Registry, error) {
	regs := map[string]*contracts.Registry{}

	wb, err := worldbuilder.NewRegistry(worldbuilder.Deps{Shared: shared.Deps{}, Scene: worldbuilder.NewScene()})
	if err != nil {
		return nil, fmt.Errorf("worldbuilder: %w", err)
	}
	regs["worldbuilder"] = wb

	movement := worldviewer.NewMovementState()
	wv, err := worldviewer.NewRegistry(worldviewer.Deps{
		Camera: worldviewer.NewCamera(), Movement: movement,
		Transition: worldviewer.NewMovementTransition(movement), Assets: worldviewer.NewAssetRegistry(),
	})
	if err != nil {
		return nil, fmt.Errorf("worldviewer: %w", err)
	}
	regs["worldviewer"] = wv

	store, err := waypoints.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("worldsurveyor: opening in-memory store: %w", err)
	}
	ws, err := worldsurveyor.NewRegistry(worldsurveyor.Deps{Store: store, Markers: worldsurveyor.NewMarkerState()})
	if err != nil {
		return nil, fmt.Errorf("worldsurveyor: %w", err)
	}
	regs["worldsurveyor"] = ws

	wr, err := worldrecorder.NewRegistry(worldrecorder.Deps{Shared: shared.Deps{}, Recorder: worldrecorder.NewRecorder()})
	if err != nil {
		return nil, fmt.Errorf("worldrecorder: %w", err)
	}
	regs["worldrecorder"] = wr

	wstr, err := worldstreamer.NewRegistry(worldstreamer.Deps{
		Shared: shared.Deps{}, Session: streaming.NewSession(), Protocol: streaming.ProtocolRTMP,
		Defaults: worldstreamer.StreamDefaults{Width: 1920, Height: 1080, FPS: 30, BitrateKbps: 6000, Encoder: streaming.EncoderX264, SinkPort: 1935},
	})
	if err != nil {
		return nil, fmt.Errorf("worldstreamer: %w", err)
	}
	regs["worldstreamer"] = wstr

	return regs, nil
}

func run(_ *cobra.Command, _ []string) error {
	log := logging.WithService("mcpproxy")

	addr := viper.GetString("address")
	cfg, err := config.Load("mcpproxy", viper.GetString("config"), &config.HostSettings{HTTPAddr: &addr})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	regs, err := serviceRegistries()
	if err != nil {
		return fmt.Errorf("building service registries: %w", err)
	}

	mcpServer := server.NewMCPServer("agentworld-control-plane-mcp", "1.0.0",
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	// One proxy per backend service, worldstreamer included: the rtmp
	// registry built above supplies the worldstreamer tool/route
	// metadata. Each proxy gets the single base URL that
	// AGENT_<SERVICE>_BASE_URL names (one candidate), so the
	// multi-candidate probe in pkg/mcpproxy does not run here and a
	// second (srt) worldstreamer instance is not discovered.
	for name, reg := range regs {
		proxyCfg := mcpproxy.Config{ServiceName: name, DefaultTimeout: 10 * time.Second}
		if mp, ok := cfg.Proxies[name]; ok {
			proxyCfg.BaseURL = mp.BaseURL
			proxyCfg.CandidateBaseURLs = mp.CandidateBaseURLs
			if mp.DefaultTimeout > 0 {
				proxyCfg.DefaultTimeout = mp.DefaultTimeout
			}
		}
		mcpproxy.New(proxyCfg).RegisterAll(mcpServer, reg)
	}

	streamableServer := server.NewStreamableHTTPServer(mcpServer, server.WithEndpointPath("/mcp"))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           streamableServer,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("mcpproxy listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down mcpproxy")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mcpproxy: %v\n", err)
		os.Exit(1)
	}
}
