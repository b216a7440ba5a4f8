package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/fisaks/computer-assistant/internal/logging"
	"github.com/fisaks/computer-assistant/internal/messaging"
	"github.com/fisaks/computer-assistant/internal/topics"
)

// PublishStates publishes the state of every publishable entity in
// registration order. The first failure ends the pass.
func (b *Bridge) PublishStates(ctx context.Context) (err error) {
	defer func() { b.metrics.PublishPass(err) }()

	for _, e := range b.registry.Publishable() {
		kind, id := e.Kind(), e.ID()
		payload, err := b.states.State(ctx, e)
		if err != nil {
			return fmt.Errorf("state of %s/%s: %w", kind, id, err)
		}

		topic := topics.State(b.global.BaseTopic, kind, id)
		if err := b.bus.Publish(ctx, topic, messaging.AtLeastOnce, false, []byte(payload)); err != nil {
			return fmt.Errorf("publish state of %s/%s: %w", kind, id, err)
		}

		if prev, at, seen := b.last.GetLast(topic); !seen {
			logging.Info("state changed", "kind", kind, "entity", id, "state", payload)
		} else if prev != payload {
			logging.Info("state changed", "kind", kind, "entity", id, "state", payload,
				"previous", prev, "previousAge", time.Since(at).Round(time.Second))
		} else {
			logging.Debug("state published", "kind", kind, "entity", id, "state", payload)
		}
		b.last.Update(topic, payload)
		b.metrics.StatePublished(kind.String())
	}
	return nil
}

// RunPublishLoop publishes all states right away and then on every tick
// until ctx is cancelled. A failed pass is logged and retried on the next tick.
func (b *Bridge) RunPublishLoop(ctx context.Context) {
	logging.Info("publish loop started", "interval", b.interval, "entities", len(b.registry.Publishable()))

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		if err := b.PublishStates(ctx); err != nil && ctx.Err() == nil {
			logging.Error("state publish failed", "error", err)
		}

		select {
		case <-ctx.Done():
			logging.Info("publish loop stopped")
			return
		case <-ticker.C:
		}
	}
}
