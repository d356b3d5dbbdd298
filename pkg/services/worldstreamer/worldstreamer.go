// Package worldstreamer wires the streaming contract surface
// (originally published as two sibling extensions, omni.agent.
// worldstreamer.rtmp and omni.agent.worldstreamer.srt, each with an
// identical operation list differing only in which protocol their
// gst-launch-1.0 pipeline muxes into) onto the single pkg/streaming
// pipeline builder. The protocol a given deployment serves is fixed at
// construction time; running both variants side by side, as the
// original two-extension split did, means running two instances of the
// binary, one per protocol. This package does not branch on protocol
// per request, and the MCP proxy binary forwards worldstreamer calls to
// a single base URL.
package worldstreamer

import (
	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/services/shared"
	"github.com/agentworld/control-plane/pkg/streaming"
)

// Deps wires the core collaborators this service's contracts close
// over: the streaming session this deployment owns, the protocol and
// encode defaults it was started with, and the environment probe used
// by validate_environment.
type Deps struct {
	Shared      shared.Deps
	Session     *streaming.Session
	Protocol    streaming.Protocol
	Defaults    StreamDefaults
	Environment EnvironmentChecker
}

// StreamDefaults are the encode parameters applied when a
// start_streaming request doesn't override them, matching the
// original's config-file-sourced pipeline defaults.
type StreamDefaults struct {
	Width       int
	Height      int
	FPS         int
	BitrateKbps int
	Encoder     streaming.Encoder
	SinkPort    int
}

// NewRegistry builds the Contract Registry for the worldstreamer
// service: every route in transport/contract.py save get_health
// (served at the transport level by pkg/controller.NewRouter).
func NewRegistry(d Deps) (*contracts.Registry, error) {
	return contracts.NewRegistry([]contracts.Contract{
		{Operation: "start_streaming", HTTPRoute: "/streaming/start", HTTPMethod: "POST", MCPTool: "worldstreamer_start_streaming", Handler: startStreaming(d)},
		{Operation: "stop_streaming", HTTPRoute: "/streaming/stop", HTTPMethod: "POST", MCPTool: "worldstreamer_stop_streaming", Handler: stopStreaming(d)},
		{Operation: "get_status", HTTPRoute: "/streaming/status", HTTPMethod: "GET", MCPTool: "worldstreamer_get_status", Handler: getStatus(d)},
		{Operation: "get_streaming_urls", HTTPRoute: "/streaming/urls", HTTPMethod: "GET", MCPTool: "worldstreamer_get_streaming_urls", Handler: getStreamingURLs(d)},
		{Operation: "validate_environment", HTTPRoute: "/streaming/environment/validate", HTTPMethod: "GET", MCPTool: "worldstreamer_validate_environment", Handler: validateEnvironment(d)},
	})
}

func ok(fields map[string]any) map[string]any {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["success"] = true
	return fields
}

func fail(err error) map[string]any {
	if ae, isAE := err.(*apierrors.Error); isAE {
		return ae.Envelope().ToMap()
	}
	return apierrors.Failure(apierrors.CodeValidationError, err.Error(), nil).ToMap()
}

func missingParam(name string) error {
	return apierrors.NewError(apierrors.CodeMissingParameter, name+" is required", nil)
}
