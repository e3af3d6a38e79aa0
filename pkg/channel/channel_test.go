package channel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpctrace/caliper/pkg/channel"
)

func TestNewChannelStartsEnabledWithResolvedConfig(t *testing.T) {
	t.Parallel()

	ch := channel.New(1, "timer", map[string]string{"period_ms": "10"})

	assert.True(t, ch.Enabled())
	assert.Equal(t, uint32(1), ch.ID())
	assert.Equal(t, "timer", ch.Name())

	v, ok := ch.Config("period_ms")
	require.True(t, ok)
	assert.Equal(t, "10", v)

	_, ok = ch.Config("missing")
	assert.False(t, ok)
}

func TestSetEnabledToggles(t *testing.T) {
	t.Parallel()

	ch := channel.New(1, "timer", nil)
	ch.SetEnabled(false)
	assert.False(t, ch.Enabled())
}

func TestFinishRunsLifecycleHooksInOrder(t *testing.T) {
	t.Parallel()

	ch := channel.New(1, "timer", nil)

	var order []string

	ch.Events().PreFinish.Add(func(uint32) { order = append(order, "pre") })
	ch.Events().Finish.Add(func(uint32) { order = append(order, "finish") })
	ch.Events().PostFinish.Add(func(uint32) { order = append(order, "post") })

	ch.Finish()

	assert.Equal(t, []string{"pre", "finish", "post"}, order)
}

func TestServiceRegistryAttachesNamedFactory(t *testing.T) {
	t.Parallel()

	reg := channel.NewServiceRegistry()

	attached := false
	reg.Register("timestamp", func(ch *channel.Channel, config map[string]string) {
		attached = true
		ch.Events().PostInit.Add(func(uint32) {})
	})

	ch := channel.New(1, "main", nil)
	ok := reg.Attach(ch, "timestamp", nil)

	assert.True(t, ok)
	assert.True(t, attached)

	ok = reg.Attach(ch, "nonexistent", nil)
	assert.False(t, ok)
}

func TestServiceRegistryNamesAreSorted(t *testing.T) {
	t.Parallel()

	reg := channel.NewServiceRegistry()
	reg.Register("zeta", func(*channel.Channel, map[string]string) {})
	reg.Register("alpha", func(*channel.Channel, map[string]string) {})

	assert.Equal(t, []string{"alpha", "zeta"}, reg.Names())
}
