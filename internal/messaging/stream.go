package messaging

import (
	"context"
	"sync"
	"sync/atomic"
)

type msgStream struct {
	ch      chan Message
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
	onClose func(*msgStream)
	sub     Subscription
}

func newStream(buffer int, onClose func(*msgStream)) *msgStream {
	if buffer < 0 {
		buffer = 0
	}
	return &msgStream{
		ch:      make(chan Message, buffer),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// push queues m without blocking. It returns false when the stream is
// closed or its buffer is full; the message is dropped in both cases.
func (s *msgStream) push(m Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.ch <- m:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

func (s *msgStream) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Dropped is the number of messages discarded because the buffer was full.
func (s *msgStream) Dropped() uint64 { return s.dropped.Load() }

func (s *msgStream) Recv(ctx context.Context) (Message, error) {
	select {
	case m := <-s.ch:
		return m, nil
	case <-s.done:
		return Message{}, ErrStreamClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (s *msgStream) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

// Unsubscribe removes the broker subscription feeding the stream.
func (s *msgStream) Unsubscribe(ctx context.Context) error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Unsubscribe(ctx)
}
