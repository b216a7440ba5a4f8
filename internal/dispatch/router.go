// Package dispatch routes inbound command messages to entities.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/fisaks/computer-assistant/internal/entity"
	"github.com/fisaks/computer-assistant/internal/logging"
	"github.com/fisaks/computer-assistant/internal/registry"
	"github.com/fisaks/computer-assistant/internal/topics"
)

var ErrInvalidPayload = errors.New("command payload is not valid UTF-8")

// Commander runs the command action of an entity.
type Commander interface {
	Command(ctx context.Context, e entity.Entity, payload string) error
}

type Router struct {
	registry  *registry.Registry
	prefix    string
	commander Commander
}

// NewRouter routes topics under prefix ({base}/entities/cmd).
func NewRouter(reg *registry.Registry, prefix string, commander Commander) *Router {
	return &Router{registry: reg, prefix: prefix, commander: commander}
}

// Route invokes every entity addressed by topic and returns how many were
// invoked. Topics outside the prefix or without exactly a kind and an id
// below it are ignored. The first failing invocation aborts the message.
func (r *Router) Route(ctx context.Context, topic string, payload []byte) (int, error) {
	segs, ok := topics.SplitCommand(topic, r.prefix)
	if !ok {
		logging.Debug("ignoring message outside command prefix", "topic", topic)
		return 0, nil
	}
	if len(segs) != 2 {
		logging.Debug("ignoring command topic without kind/id", "topic", topic, "segments", len(segs))
		return 0, nil
	}
	if !utf8.Valid(payload) {
		return 0, fmt.Errorf("%w: topic %s", ErrInvalidPayload, topic)
	}
	kind, id, state := segs[0], segs[1], string(payload)

	invoked := 0
	for _, e := range r.registry.FindUpdateable(kind, id) {
		logging.Debug("dispatching command", "kind", kind, "entity", id, "payload", state)
		if err := r.commander.Command(ctx, e, state); err != nil {
			return invoked, fmt.Errorf("%s/%s: %w", kind, id, err)
		}
		invoked++
	}
	return invoked, nil
}
