package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, false, false, true)
	t.Cleanup(func() { logger.SetLogLevel(logger.WarnLevel) })

	logger.Info().Msg("hidden at default level")
	logger.Warn().Str("sample", "3").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden at default level")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "sample=3")

	buf.Reset()
	logger.InitWithWriter(&buf, true, false, true)
	logger.Default().Debug().Msg("debug enabled")
	assert.Contains(t, buf.String(), "debug enabled")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, false, false, true)

	logger.ErrorWithCode(errors.New().New(errors.ErrKernelFault)).Msg("run failed")
	assert.Contains(t, buf.String(), "error_code=kernel_fault")
	assert.Contains(t, buf.String(), "run failed")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		level logger.LogLevel
		ok    bool
	}{
		{"debug", logger.DebugLevel, true},
		{"info", logger.InfoLevel, true},
		{"warning", logger.WarnLevel, true},
		{"warn", logger.WarnLevel, true},
		{"error", logger.ErrorLevel, true},
		{"loud", logger.WarnLevel, false},
	}

	for _, tt := range tests {
		level, ok := logger.ParseLevel(tt.name)
		assert.Equal(t, tt.level, level, tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
	}
}
