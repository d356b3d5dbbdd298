package worldrecorder

import (
	"github.com/google/uuid"

	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/queue"
	"github.com/agentworld/control-plane/pkg/services/shared"
)

func getStatus(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		job, found := d.Recorder.Status()
		if !found {
			return ok(map[string]any{"state": string(JobIdle)})
		}
		return ok(jobToMap(job))
	}
}

func startVideo(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		outputPath, hasPath := shared.Str(payload, "output_path")
		if !hasPath {
			return fail(missingParam("output_path"))
		}
		fps, hasFPS := shared.Int(payload, "fps")
		if !hasFPS {
			fps = 30
		}
		duration, _ := shared.Float(payload, "duration")

		return d.Shared.SubmitAndWait(queue.ChannelOther, "start_video", payload, func() (map[string]any, error) {
			job, err := d.Recorder.StartVideo(uuid.NewString(), outputPath, fps, duration)
			if err != nil {
				return nil, err
			}
			return jobToMap(job), nil
		})
	}
}

func cancelVideo(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		return d.Shared.SubmitAndWait(queue.ChannelOther, "cancel_video", payload, func() (map[string]any, error) {
			job, cancelled := d.Recorder.CancelVideo()
			if !cancelled {
				return nil, apierrors.NewError(apierrors.CodeValidationError, "no recording is in progress", nil)
			}
			return jobToMap(job), nil
		})
	}
}

func captureFrame(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		path, hasPath := shared.Str(payload, "path")
		if !hasPath {
			return fail(missingParam("path"))
		}
		return d.Shared.SubmitAndWait(queue.ChannelOther, "capture_frame", payload, func() (map[string]any, error) {
			count := d.Recorder.CaptureFrame(path)
			return map[string]any{"frame_count": count}, nil
		})
	}
}

func cleanupFrames(d Deps) contracts.Handler {
	return func(payload map[string]any) map[string]any {
		return d.Shared.SubmitAndWait(queue.ChannelOther, "cleanup_frames", payload, func() (map[string]any, error) {
			removed := d.Recorder.CleanupFrames()
			return map[string]any{"removed": removed}, nil
		})
	}
}
