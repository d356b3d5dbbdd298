package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAndGet(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	prev := Get()
	defer Set(prev)

	Set(l)
	Info("hello")

	assert.Contains(t, buf.String(), "hello")
}

func TestWithService(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	prev := Get()
	defer Set(prev)
	Set(l)

	WithService("worldbuilder").Info("started")
	assert.Contains(t, buf.String(), "worldbuilder")
}
