package worldstreamer

import (
	"context"
	"fmt"

	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/services/shared"
	"github.com/agentworld/control-plane/pkg/streaming"
)

func sinkURL(d Deps, serverIP string) string {
	return fmt.Sprintf("%s://%s:%d", d.Protocol, serverIP, d.Defaults.SinkPort)
}

func specFromPayload(d Deps, payload map[string]any, serverIP string) streaming.Spec {
	spec := streaming.Spec{
		Width:       d.Defaults.Width,
		Height:      d.Defaults.Height,
		FPS:         d.Defaults.FPS,
		BitrateKbps: d.Defaults.BitrateKbps,
		Encoder:     d.Defaults.Encoder,
		Protocol:    d.Protocol,
		SinkURL:     sinkURL(d, serverIP),
	}
	if w, ok := shared.Int(payload, "width"); ok {
		spec.Width = w
	}
	if h, ok := shared.Int(payload, "height"); ok {
		spec.Height = h
	}
	if fps, ok := shared.Int(payload, "fps"); ok {
		spec.FPS = fps
	}
	if br, ok := shared.Int(payload, "bitrate_kbps"); ok {
		spec.BitrateKbps = br
	}
	if enc, ok := shared.Str(payload, "encoder"); ok {
		spec.Encoder = streaming.Encoder(enc)
	}
	return spec
}

func startStreaming(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		serverIP, has := shared.Str(payload, "server_ip")
		if !has {
			return fail(missingParam("server_ip"))
		}
		spec := specFromPayload(d, payload, serverIP)
		if err := streaming.Validate(spec); err != nil {
			return fail(err)
		}
		if err := d.Session.Start(context.Background(), spec); err != nil {
			return fail(err)
		}
		return ok(map[string]any{
			"sink_url": spec.SinkURL,
			"protocol": string(d.Protocol),
		})
	}
}

func stopStreaming(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		if err := d.Session.Stop(); err != nil {
			return fail(err)
		}
		return ok(nil)
	}
}

func getStatus(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		status := d.Session.Status()
		result := map[string]any{
			"running":  status.Running,
			"protocol": string(d.Protocol),
		}
		if status.Running {
			result["sink_url"] = status.Spec.SinkURL
			result["started_at"] = status.StartedAt
		}
		return ok(result)
	}
}

func getStreamingURLs(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		serverIP, has := shared.Str(payload, "server_ip")
		if !has {
			return fail(missingParam("server_ip"))
		}
		return ok(map[string]any{
			"stream_url": sinkURL(d, serverIP),
			"protocol":   string(d.Protocol),
		})
	}
}

func validateEnvironment(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		checker := d.Environment
		if checker == nil {
			checker = GstEnvironmentChecker{}
		}
		valid, details := checker.Check()
		details["valid"] = valid
		details["success"] = valid
		return details
	}
}
