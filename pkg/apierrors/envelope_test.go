package apierrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCodeForOperation(t *testing.T) {
	assert.Equal(t, Code("ADD_ELEMENT_FAILED"), DefaultCodeForOperation("add_element"))
	assert.Equal(t, Code("START_VIDEO_FAILED"), DefaultCodeForOperation("start_video"))
}

func TestEnvelopeToMap(t *testing.T) {
	s := Success(map[string]any{"id": "abc"})
	m := s.ToMap()
	assert.Equal(t, true, m["success"])
	assert.Equal(t, "abc", m["id"])

	f := Failure(CodeValidationError, "bad field", map[string]any{"parameter": "position"})
	fm := f.ToMap()
	assert.Equal(t, false, fm["success"])
	assert.Equal(t, "VALIDATION_ERROR", fm["error_code"])
	assert.Equal(t, "bad field", fm["error"])
}

func TestErrorUnwrapAndCode(t *testing.T) {
	cause := NewError(CodeNotFound, "missing", nil)
	wrapped := NewError(CodeServiceUnavailable, "wrap", cause)
	require.Equal(t, cause, wrapped.Unwrap())
	assert.Equal(t, 503, StatusForErr(wrapped))
	assert.Equal(t, 404, StatusForErr(cause))
}
