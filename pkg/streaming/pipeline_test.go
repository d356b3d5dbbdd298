package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentworld/control-plane/pkg/apierrors"
)

func validSpec() Spec {
	return Spec{
		Width:       1920,
		Height:      1080,
		FPS:         30,
		BitrateKbps: 6000,
		SinkURL:     "srt://encoder.example.com:9000",
		Encoder:     EncoderX264,
		Protocol:    ProtocolSRT,
	}
}

func TestValidateAcceptsInRangeSpec(t *testing.T) {
	assert.NoError(t, Validate(validSpec()))
}

func TestValidateRejectsOutOfRangeWidth(t *testing.T) {
	s := validSpec()
	s.Width = 7681
	err := Validate(s)
	require.Error(t, err)
	var ae *apierrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.CodeInvalidParameter, ae.Type)
}

func TestValidateRejectsOutOfRangeBitrate(t *testing.T) {
	s := validSpec()
	s.BitrateKbps = 99
	assert.Error(t, Validate(s))
}

func TestValidateRejectsUnknownEncoder(t *testing.T) {
	s := validSpec()
	s.Encoder = "vp9"
	assert.Error(t, Validate(s))
}

func TestValidateRejectsSinkSchemeMismatchedWithProtocol(t *testing.T) {
	s := validSpec()
	s.Protocol = ProtocolRTMP
	s.SinkURL = "srt://encoder.example.com:9000" // wrong scheme for rtmp
	assert.Error(t, Validate(s))
}

func TestBuildRendersDocumentedSRTx264Chain(t *testing.T) {
	argv, err := Build(validSpec())
	require.NoError(t, err)
	assert.Equal(t, "gst-launch-1.0", argv[0])
	assert.Contains(t, argv, "x264enc")
	assert.Contains(t, argv, "bitrate=6000")
	assert.Contains(t, argv, "mpegtsmux")
	assert.Contains(t, argv, "srtsink")
	assert.Contains(t, argv, "uri=srt://encoder.example.com:9000")
	assert.NotContains(t, argv, "rtmpsink")
}

func TestBuildRendersRTMPChainForHardwareEncoder(t *testing.T) {
	s := validSpec()
	s.Protocol = ProtocolRTMP
	s.Encoder = EncoderNVENC
	s.SinkURL = "rtmp://ingest.example.com/live/key"
	argv, err := Build(s)
	require.NoError(t, err)
	assert.Contains(t, argv, "nvh264enc")
	assert.Contains(t, argv, "preset=low-latency-hq")
	assert.Contains(t, argv, "flvmux")
	assert.Contains(t, argv, "rtmpsink")
	assert.Contains(t, argv, "location=rtmp://ingest.example.com/live/key")
}

func TestBuildRendersVAAPIChain(t *testing.T) {
	s := validSpec()
	s.Encoder = EncoderVAAPI
	argv, err := Build(s)
	require.NoError(t, err)
	assert.Contains(t, argv, "vaapih264enc")
	assert.Contains(t, argv, "quality-level=7")
}

func TestSanitizeRejectsTokenOutsideAllowList(t *testing.T) {
	_, err := sanitize([]string{"gst-launch-1.0", "; rm -rf /"})
	require.Error(t, err)
	var ae *apierrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.CodeCommandInjection, ae.Type)
}

func TestIsPropertyTokenRejectsShellMetacharacters(t *testing.T) {
	assert.False(t, isPropertyToken("location=rtmp://x; rm -rf /"))
	assert.True(t, isPropertyToken("location=rtmp://ingest.example.com/live/key"))
	assert.True(t, isPropertyToken("bitrate=6000"))
	assert.False(t, isPropertyToken("not-a-property"))
}
