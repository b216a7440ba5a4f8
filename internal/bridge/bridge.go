// Package bridge ties the registry to the bus: availability, discovery
// registration, the state publish loop and the command listen loop.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fisaks/computer-assistant/internal/config"
	"github.com/fisaks/computer-assistant/internal/discovery"
	"github.com/fisaks/computer-assistant/internal/dispatch"
	"github.com/fisaks/computer-assistant/internal/entity"
	"github.com/fisaks/computer-assistant/internal/logging"
	"github.com/fisaks/computer-assistant/internal/messaging"
	"github.com/fisaks/computer-assistant/internal/metrics"
	"github.com/fisaks/computer-assistant/internal/registry"
	"github.com/fisaks/computer-assistant/internal/state"
	"github.com/fisaks/computer-assistant/internal/topics"
)

const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Bus is the part of the MQTT client the bridge needs.
type Bus interface {
	Publish(ctx context.Context, topic string, qos messaging.QoS, retain bool, payload []byte) error
	PublishJSON(ctx context.Context, topic string, qos messaging.QoS, retain bool, v interface{}) error
	SubscribeStream(ctx context.Context, topic string, qos messaging.QoS) (messaging.Stream, error)
}

// StateProducer produces the current state payload of a publishable entity.
type StateProducer interface {
	State(ctx context.Context, e entity.Entity) (string, error)
}

// Actions is satisfied by *action.Invoker.
type Actions interface {
	StateProducer
	dispatch.Commander
}

type Bridge struct {
	global   config.GlobalConfig
	registry *registry.Registry
	bus      Bus
	states   StateProducer
	router   *dispatch.Router
	last     state.Store
	metrics  *metrics.Metrics

	interval time.Duration
	delay    time.Duration
}

func New(g config.GlobalConfig, reg *registry.Registry, bus Bus, actions Actions, m *metrics.Metrics) *Bridge {
	return &Bridge{
		global:   g,
		registry: reg,
		bus:      bus,
		states:   actions,
		router:   dispatch.NewRouter(reg, topics.CommandRoot(g.BaseTopic), actions),
		last:     state.NewStore(),
		metrics:  m,
		interval: g.StatusInterval(),
		delay:    g.CommandDelay(),
	}
}

// WillMessage is the last will to register on connect.
func WillMessage(g config.GlobalConfig) *messaging.WillMessage {
	return &messaging.WillMessage{
		Topic:   AvailabilityTopic(g),
		Payload: []byte(PayloadOffline),
		Qos:     messaging.AtLeastOnce,
		Retain:  true,
	}
}

func AvailabilityTopic(g config.GlobalConfig) string {
	return topics.Availability(g.BaseTopic, g.AvailabilityTopic)
}

// Announce marks the bridge online.
func (b *Bridge) Announce(ctx context.Context) error {
	topic := AvailabilityTopic(b.global)
	if err := b.bus.Publish(ctx, topic, messaging.AtLeastOnce, true, []byte(PayloadOnline)); err != nil {
		return fmt.Errorf("publish availability: %w", err)
	}
	logging.Info("announced online", "topic", topic)
	return nil
}

// Register publishes the retained discovery descriptor of every entity.
func (b *Bridge) Register(ctx context.Context) error {
	entities := b.registry.All()
	for _, e := range entities {
		topic := discovery.Topic(e, b.global)
		if err := b.bus.PublishJSON(ctx, topic, messaging.AtLeastOnce, true, discovery.Build(e, b.global)); err != nil {
			return fmt.Errorf("publish discovery for %s/%s: %w", e.Kind(), e.ID(), err)
		}
		logging.Debug("published discovery", "entity", e.ID(), "topic", topic)
	}
	logging.Info("registered entities", "count", len(entities))
	return nil
}

// Start announces availability and registers every entity.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.Announce(ctx); err != nil {
		return err
	}
	return b.Register(ctx)
}

// Run runs the publish and listen loops until the listen loop ends or ctx
// is cancelled. The publish loop is stopped as soon as listening ends.
func (b *Bridge) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	pubCtx, stopPublishing := context.WithCancel(gctx)
	defer stopPublishing()

	g.Go(func() error {
		defer stopPublishing()
		return b.Listen(gctx)
	})
	g.Go(func() error {
		b.RunPublishLoop(pubCtx)
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
