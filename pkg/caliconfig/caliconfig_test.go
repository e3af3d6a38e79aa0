package caliconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpctrace/caliper/pkg/caliconfig"
)

func TestParseServiceSpecDecodesConfigFields(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"name": "timestamp",
		"description": "records wall-clock deltas",
		"config": [
			{"name": "unit", "type": "string", "description": "time unit", "value": "ms"}
		]
	}`)

	spec, err := caliconfig.ParseServiceSpec(raw)
	require.NoError(t, err)

	assert.Equal(t, "timestamp", spec.Name)
	require.Len(t, spec.Config, 1)
	assert.Equal(t, "unit", spec.Config[0].Name)
	assert.Equal(t, "ms", spec.Config[0].Value)
}

func TestResolvePrecedenceEnvBeatsProgrammaticBeatsDefault(t *testing.T) {
	r, err := caliconfig.NewResolver("timer", "")
	require.NoError(t, err)

	r.SetDefault("period_ms", "100")

	assert.Equal(t, "100", r.Resolve("period_ms", ""), "falls back to the default with nothing else set")
	assert.Equal(t, "50", r.Resolve("period_ms", "50"), "programmatic beats the default")

	t.Setenv("CALIPER_TIMER_PERIOD_MS", "25")

	assert.Equal(t, "25", r.Resolve("period_ms", "50"), "environment variable beats both programmatic and default")
}

func TestNewResolverWithoutConfigFileIsNotAnError(t *testing.T) {
	t.Parallel()

	_, err := caliconfig.NewResolver("timer", "")
	require.NoError(t, err)
}

func TestNewResolverWithNonexistentConfigFileReturnsError(t *testing.T) {
	t.Parallel()

	_, err := caliconfig.NewResolver("timer", "/nonexistent/path/to/config.yaml")
	assert.Error(t, err)
}

