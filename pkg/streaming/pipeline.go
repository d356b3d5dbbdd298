// Package streaming implements the StreamingPipeline builder (spec
// §4.13): it validates a caller's requested encode/mux/sink
// configuration and renders it as an argv list for a gst-launch-1.0
// child process, never a shell string.
package streaming

import (
	"fmt"
	"regexp"

	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/validation"
)

// Encoder identifies which hardware/software H.264 encoder element to
// use in the pipeline.
type Encoder string

const (
	EncoderX264  Encoder = "x264"
	EncoderNVENC Encoder = "nvenc"
	EncoderVAAPI Encoder = "vaapi"
)

// Protocol identifies the sink mux/transport pair.
type Protocol string

const (
	ProtocolSRT  Protocol = "srt"
	ProtocolRTMP Protocol = "rtmp"
)

// Spec is the validated StreamingPipelineSpec (spec §3: "Validated then
// rendered as an argv list for a child process").
type Spec struct {
	Width       int
	Height      int
	FPS         int
	BitrateKbps int
	SinkURL     string
	Encoder     Encoder
	Protocol    Protocol
}

var (
	numericRe  = regexp.MustCompile(`^\d+$`)
	fractionRe = regexp.MustCompile(`^\d+/\d+$`)
)

var sinkSchemesByProtocol = map[Protocol][]string{
	ProtocolSRT:  {"srt"},
	ProtocolRTMP: {"rtmp"},
}

// Validate checks a requested Spec in this order: width, height, fps and
// bitrate range checks; protocol allow-list membership (which selects the
// allowed sink URL schemes); the sink URL scheme allow-list; encoder
// allow-list membership; then a numeric/fraction regex re-check of the
// width, height, bitrate and fps values embedded in the argv.
func Validate(s Spec) error {
	v := validation.New()
	one := 1
	max7680 := 7680
	if _, err := v.Int("width", s.Width, &one, &max7680); err != nil {
		return apierrors.NewError(apierrors.CodeInvalidParameter, err.Error(), err)
	}
	max4320 := 4320
	if _, err := v.Int("height", s.Height, &one, &max4320); err != nil {
		return apierrors.NewError(apierrors.CodeInvalidParameter, err.Error(), err)
	}
	max120 := 120
	if _, err := v.Int("fps", s.FPS, &one, &max120); err != nil {
		return apierrors.NewError(apierrors.CodeInvalidParameter, err.Error(), err)
	}
	min100 := 100
	max100000 := 100000
	if _, err := v.Int("bitrate_kbps", s.BitrateKbps, &min100, &max100000); err != nil {
		return apierrors.NewError(apierrors.CodeInvalidParameter, err.Error(), err)
	}

	schemes, ok := sinkSchemesByProtocol[s.Protocol]
	if !ok {
		return apierrors.NewError(apierrors.CodeInvalidParameter, fmt.Sprintf("protocol must be one of srt, rtmp, got %q", s.Protocol), nil)
	}
	if _, err := v.URL("sink_url", s.SinkURL, validation.URLOptions{AllowedSchemes: schemes, AllowLocalhost: true, AllowPrivateIPs: true}); err != nil {
		return apierrors.NewError(apierrors.CodeInvalidParameter, err.Error(), err)
	}
	if !isAllowedEncoder(s.Encoder) {
		return apierrors.NewError(apierrors.CodeInvalidParameter, fmt.Sprintf("encoder must be one of x264, nvenc, vaapi, got %q", s.Encoder), nil)
	}

	// Re-check numeric properties against the same regex classes the
	// rendered argv tokens must match (spec: "further re-checked against
	// a per-property regex").
	for field, value := range map[string]string{
		"width":        fmt.Sprint(s.Width),
		"height":       fmt.Sprint(s.Height),
		"bitrate_kbps": fmt.Sprint(s.BitrateKbps),
	} {
		if !numericRe.MatchString(value) {
			return apierrors.NewError(apierrors.CodeCommandInjection, fmt.Sprintf("%s failed numeric re-check", field), nil)
		}
	}
	if !fractionRe.MatchString(fmt.Sprintf("%d/1", s.FPS)) {
		return apierrors.NewError(apierrors.CodeCommandInjection, "fps failed fraction re-check", nil)
	}
	return nil
}

func isAllowedEncoder(e Encoder) bool {
	switch e {
	case EncoderX264, EncoderNVENC, EncoderVAAPI:
		return true
	default:
		return false
	}
}
