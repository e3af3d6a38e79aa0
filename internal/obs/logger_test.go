package obs_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hpctrace/caliper/internal/obs"
)

func TestNewLoggerSelectsHandlerByConfig(t *testing.T) {
	t.Parallel()

	jsonLogger := obs.NewLogger(obs.LogConfig{JSON: true, Level: slog.LevelInfo})
	assert.NotNil(t, jsonLogger)

	textLogger := obs.NewLogger(obs.LogConfig{JSON: false, Level: slog.LevelDebug})
	assert.NotNil(t, textLogger)
}
