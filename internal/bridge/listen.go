package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/fisaks/computer-assistant/internal/logging"
	"github.com/fisaks/computer-assistant/internal/messaging"
	"github.com/fisaks/computer-assistant/internal/metrics"
	"github.com/fisaks/computer-assistant/internal/topics"
)

const releaseTimeout = 2 * time.Second

// Listen subscribes to the command topics and handles messages one at a
// time until the stream ends or ctx is cancelled. Only a failed
// subscription is returned as an error.
func (b *Bridge) Listen(ctx context.Context) error {
	filter := topics.CommandFilter(b.global.BaseTopic)
	stream, err := b.bus.SubscribeStream(ctx, filter, messaging.AtLeastOnce)
	if err != nil {
		return err
	}
	defer release(stream)
	logging.Info("listening for commands", "topic", filter)

	for {
		msg, err := stream.Recv(ctx)
		switch {
		case errors.Is(err, messaging.ErrStreamClosed):
			logging.Warn("command stream closed")
			return nil
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return err
		}

		b.handle(ctx, msg)

		if !sleep(ctx, b.delay) {
			return nil
		}
	}
}

func (b *Bridge) handle(ctx context.Context, msg messaging.Message) {
	n, err := b.router.Route(ctx, msg.Topic, msg.Payload)
	switch {
	case err != nil:
		b.metrics.Command(metrics.ResultError)
		logging.Error("command failed", "topic", msg.Topic, "error", err)
	case n == 0:
		b.metrics.Command(metrics.ResultIgnored)
	default:
		b.metrics.Command(metrics.ResultOK)
	}
}

// release drops the subscription. After a lost connection the
// unsubscribe fails and is only logged.
func release(stream messaging.Stream) {
	stream.Close()
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := stream.Unsubscribe(ctx); err != nil {
		logging.Debug("command unsubscribe failed", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
