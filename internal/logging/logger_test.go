package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecretRedaction(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "secret is redacted",
			input:    "my-secret-password",
			expected: "[REDACTED]",
		},
		{
			name:     "empty secret is still redacted",
			input:    "",
			expected: "[REDACTED]",
		},
		{
			name:     "hash is redacted",
			input:    "$2a$10$abcdefghijklmnopqrstuv",
			expected: "[REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Secret(tt.input).String())
			assert.Equal(t, tt.expected, Secret(tt.input).GoString())
		})
	}
}

func TestLoggerNoColorFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(false, true).WithOutput(&buf)

	logger.Info("backup created: %s", "/tmp/users.properties.bak-20240101120000")
	logger.Warn("falling back")
	logger.Error("failed")

	out := buf.String()
	assert.Contains(t, out, "✓ backup created: /tmp/users.properties.bak-20240101120000\n")
	assert.Contains(t, out, "⚠ falling back\n")
	assert.Contains(t, out, "✗ failed\n")
	assert.NotContains(t, out, "\033[")
}

func TestLoggerColor(t *testing.T) {
	var buf bytes.Buffer
	New(false, false).WithOutput(&buf).Info("hello")
	assert.Contains(t, buf.String(), "\033[32m✓\033[0m hello")
}

func TestLoggerDebugGate(t *testing.T) {
	var quiet, loud bytes.Buffer

	New(false, true).WithOutput(&quiet).Debug("hidden %d", 1)
	New(true, true).WithOutput(&loud).Debug("shown %d", 2)

	assert.Empty(t, quiet.String())
	assert.Equal(t, "[DEBUG] shown 2\n", loud.String())
}

func TestLoggerDetailGate(t *testing.T) {
	var buf bytes.Buffer
	logger := New(false, true).WithOutput(&buf)

	logger.Detail("not yet")
	assert.Empty(t, buf.String())

	logger.SetVerbose(true)
	logger.Detail("now")
	assert.Equal(t, "• now\n", buf.String())
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.Info("x")
		logger.Debug("x")
		logger.Detail("x")
	})
	assert.False(t, logger.DebugEnabled())
}

func TestRedact(t *testing.T) {
	out := Redact("karaf-users user add -u bob -p hunter22", []string{"hunter22"})
	assert.Equal(t, "karaf-users user add -u bob -p [REDACTED]", out)
}
