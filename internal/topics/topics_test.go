package topics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fisaks/computer-assistant/internal/entity"
)

func TestKitchenLightTopics(t *testing.T) {
	id := entity.Name("Kitchen Light").ID()

	assert.Equal(t, "home/entities/cmd/switch/kitchen_light", Command("home", entity.KindSwitch, id))
	assert.Equal(t, "home/entities/stat/switch/kitchen_light", State("home", entity.KindSwitch, id))
	assert.Equal(t, "homeassistant/switch/home/kitchen_light/config", Discovery("homeassistant", entity.KindSwitch, "home", id))
	assert.Equal(t, "home/entities/cmd", CommandRoot("home"))
	assert.Equal(t, "home/entities/cmd/#", CommandFilter("home"))
	assert.Equal(t, "home/status", Availability("home", "status"))
}

func TestDerivationIsPure(t *testing.T) {
	for _, kind := range entity.Kinds {
		assert.Equal(t, Command("base", kind, "x"), Command("base", kind, "x"))
		assert.Equal(t, State("base", kind, "x"), State("base", kind, "x"))
		assert.Equal(t, Discovery("ha", kind, "base", "x"), Discovery("ha", kind, "base", "x"))
	}
}

func TestNoCollisions(t *testing.T) {
	ids := []string{"a", "b", "kitchen_light", "living_room"}
	seen := map[string]string{}
	for _, kind := range entity.Kinds {
		for _, id := range ids {
			key := kind.String() + ":" + id
			for _, topic := range []string{
				Command("home", kind, id),
				State("home", kind, id),
				Discovery("homeassistant", kind, "home", id),
			} {
				prev, dup := seen[topic]
				require.False(t, dup, "topic %s derived for %s and %s", topic, prev, key)
				seen[topic] = key
			}
		}
	}
}

func TestSplitCommand(t *testing.T) {
	prefix := CommandRoot("home")

	segs, ok := SplitCommand("home/entities/cmd/switch/kitchen_light", prefix)
	require.True(t, ok)
	assert.Equal(t, []string{"switch", "kitchen_light"}, segs)

	segs, ok = SplitCommand("home/entities/cmd/switch/kitchen_light/", prefix)
	require.True(t, ok)
	assert.Equal(t, []string{"switch", "kitchen_light"}, segs)

	segs, ok = SplitCommand("home/entities/cmd/switch/kitchen_light/extra", prefix)
	require.True(t, ok)
	assert.Len(t, segs, 3)

	segs, ok = SplitCommand("home/entities/cmd", prefix)
	require.True(t, ok)
	assert.Equal(t, []string{""}, segs)

	_, ok = SplitCommand("other/entities/cmd/switch/x", prefix)
	assert.False(t, ok)

	_, ok = SplitCommand("home/entities/cmdx/switch/x", prefix)
	assert.False(t, ok)
}
