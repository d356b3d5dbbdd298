package worldstreamer

import "os/exec"

// EnvironmentChecker reports whether the host has what a streaming
// pipeline needs to run, standing in for the original's
// validate_environment probe (spec.md §1: the external encoder binary
// itself is out of scope, but whether it is reachable on PATH is a
// legitimate, narrow thing for this service to report).
type EnvironmentChecker interface {
	Check() (valid bool, details map[string]any)
}

// GstEnvironmentChecker looks for gst-launch-1.0 on PATH, the binary
// pkg/streaming.Session launches every pipeline through.
type GstEnvironmentChecker struct{}

func (GstEnvironmentChecker) Check() (bool, map[string]any) {
	path, err := exec.LookPath("gst-launch-1.0")
	if err != nil {
		return false, map[string]any{"gst_launch_found": false, "error": err.Error()}
	}
	return true, map[string]any{"gst_launch_found": true, "gst_launch_path": path}
}
