package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fisaks/computer-assistant/internal/entity"
	"github.com/fisaks/computer-assistant/internal/registry"
	"github.com/fisaks/computer-assistant/internal/topics"
)

type call struct {
	kind    entity.Kind
	id      string
	payload string
}

type recordingCommander struct {
	calls []call
	err   error
}

func (c *recordingCommander) Command(_ context.Context, e entity.Entity, payload string) error {
	c.calls = append(c.calls, call{e.Kind(), e.ID(), payload})
	return c.err
}

func newRouter(cmd Commander, extra ...entity.Entity) *Router {
	ents := append([]entity.Entity{
		entity.Switch{Base: entity.Base{Name: "Kitchen Light"}},
		entity.Button{Base: entity.Base{Name: "Suspend"}},
		entity.Number{Base: entity.Base{Name: "Volume"}},
		entity.Sensor{Base: entity.Base{Name: "Kitchen Light"}},
	}, extra...)
	return NewRouter(registry.New(ents), topics.CommandRoot("home"), cmd)
}

func TestRouteToSwitch(t *testing.T) {
	cmd := &recordingCommander{}
	r := newRouter(cmd)

	n, err := r.Route(context.Background(), "home/entities/cmd/switch/kitchen_light", []byte("ON"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []call{{entity.KindSwitch, "kitchen_light", "ON"}}, cmd.calls)
}

func TestRouteIgnoresNonMatching(t *testing.T) {
	cmd := &recordingCommander{}
	r := newRouter(cmd)
	ctx := context.Background()

	for _, topic := range []string{
		"home/entities/cmd/switch/kitchen_light/extra",
		"home/entities/cmd/switch",
		"home/entities/cmd",
		"home/entities/stat/switch/kitchen_light",
		"other/entities/cmd/switch/kitchen_light",
		"home/entities/cmd/switch/unknown",
		"home/entities/cmd/sensor/kitchen_light",
		"home/entities/cmd/light/kitchen_light",
	} {
		n, err := r.Route(ctx, topic, []byte("ON"))
		require.NoError(t, err, topic)
		assert.Zero(t, n, topic)
	}
	assert.Empty(t, cmd.calls)
}

func TestRouteInvokesAllDuplicates(t *testing.T) {
	cmd := &recordingCommander{}
	r := newRouter(cmd, entity.Button{Base: entity.Base{Name: "suspend"}})

	n, err := r.Route(context.Background(), "home/entities/cmd/button/suspend", []byte("PRESS"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRoutePropagatesCommandError(t *testing.T) {
	boom := errors.New("boom")
	cmd := &recordingCommander{err: boom}
	r := newRouter(cmd)

	n, err := r.Route(context.Background(), "home/entities/cmd/number/volume", []byte("12"))
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "number/volume")
}

func TestRouteRejectsInvalidUTF8(t *testing.T) {
	cmd := &recordingCommander{}
	r := newRouter(cmd)

	_, err := r.Route(context.Background(), "home/entities/cmd/switch/kitchen_light", []byte{0xff, 0xfe})
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Empty(t, cmd.calls)
}
