package streaming

import (
	"fmt"
	"regexp"

	"github.com/agentworld/control-plane/pkg/apierrors"
)

// allowedTokens is the closed set of executables and gst-launch-1.0
// elements the builder is permitted to emit (spec §4.13: "references
// only executables and elements from a closed allow-list"; §6
// documents the fixed (protocol, encoder) chains this set covers).
var allowedTokens = map[string]bool{
	"gst-launch-1.0": true,

	"fdsrc":          true,
	"rawvideoparse":  true,
	"videoconvert":   true,
	"x264enc":        true,
	"nvh264enc":      true,
	"vaapih264enc":   true,
	"h264parse":      true,
	"mpegtsmux":      true,
	"flvmux":         true,
	"srtsink":        true,
	"rtmpsink":       true,
}

// propertyValueRe matches the union of value shapes a property argv
// token may carry: numeric, boolean, a "N/1" fraction, or a URL-safe
// sink location (spec §4.13: "numeric, boolean, fraction, or URL-safe").
var propertyValueRe = regexp.MustCompile(`^[A-Za-z0-9\-_./:?=&]+$`)

var propertyKeyRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Build renders a validated Spec as an argv list for exec.Command, with
// argv[0] the executable and the rest one token per property/element
// (spec §3: "no shell"). It re-validates every emitted token against
// allowedTokens/propertyValueRe and aborts with CodeCommandInjection if
// any token falls outside the allow-list — the last line of defense
// even though Validate already rejected out-of-range inputs upstream.
func Build(s Spec) ([]string, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}

	argv := []string{
		"gst-launch-1.0",
		"fdsrc", "do-timestamp=true", "!",
		"rawvideoparse",
		fmt.Sprintf("width=%d", s.Width),
		fmt.Sprintf("height=%d", s.Height),
		"format=rgb",
		fmt.Sprintf("framerate=%d/1", s.FPS),
		"!",
		"videoconvert", "!",
	}
	argv = append(argv, encoderChain(s)...)
	argv = append(argv, "!", "h264parse", "config-interval=1", "!")
	argv = append(argv, muxAndSinkChain(s)...)

	return sanitize(argv)
}

// encoderChain returns the encoder element plus its fixed property set
// for the given Encoder (spec §6's "hardware variants swap x264enc
// for...").
func encoderChain(s Spec) []string {
	switch s.Encoder {
	case EncoderNVENC:
		return []string{"nvh264enc", fmt.Sprintf("bitrate=%d", s.BitrateKbps), "preset=low-latency-hq"}
	case EncoderVAAPI:
		return []string{"vaapih264enc", fmt.Sprintf("bitrate=%d", s.BitrateKbps), "quality-level=7"}
	default:
		return []string{
			"x264enc",
			fmt.Sprintf("bitrate=%d", s.BitrateKbps),
			"speed-preset=ultrafast",
			"tune=zerolatency",
			"key-int-max=24",
			"bframes=0",
		}
	}
}

// muxAndSinkChain returns the mux + sink element pair for the given
// Protocol (spec §6: "RTMP swaps the sink chain for flvmux ... rtmpsink").
func muxAndSinkChain(s Spec) []string {
	switch s.Protocol {
	case ProtocolRTMP:
		return []string{"flvmux", "streamable=true", "!", "rtmpsink", "location=" + s.SinkURL, "sync=false", "async=false"}
	default:
		return []string{"mpegtsmux", "alignment=7", "!", "srtsink", "uri=" + s.SinkURL, "sync=false", "async=false"}
	}
}

// sanitize re-checks every emitted token against the closed element
// allow-list or the property-value shape before handing the argv to the
// caller. Bare "!" link syntax and key=value properties are both
// permitted; anything else aborts the whole pipeline.
func sanitize(argv []string) ([]string, error) {
	for _, tok := range argv {
		if tok == "!" || allowedTokens[tok] {
			continue
		}
		if isPropertyToken(tok) {
			continue
		}
		return nil, apierrors.NewError(apierrors.CodeCommandInjection, fmt.Sprintf("disallowed token in rendered pipeline: %q", tok), nil)
	}
	return argv, nil
}

func isPropertyToken(tok string) bool {
	eq := -1
	for i, c := range tok {
		if c == '=' {
			eq = i
			break
		}
	}
	if eq <= 0 {
		return false
	}
	key, value := tok[:eq], tok[eq+1:]
	if !propertyKeyRe.MatchString(key) {
		return false
	}
	return propertyValueRe.MatchString(value)
}
