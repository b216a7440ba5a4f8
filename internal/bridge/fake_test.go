package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/fisaks/computer-assistant/internal/entity"
	"github.com/fisaks/computer-assistant/internal/messaging"
)

type published struct {
	topic   string
	qos     messaging.QoS
	retain  bool
	payload string
}

type fakeBus struct {
	mu           sync.Mutex
	published    []published
	failTopic    string
	failTimes    int // failures left on failTopic, 0 means always
	failed       int
	subscribeErr error
	subscribed   []string
	stream       *fakeStream
}

func newFakeBus() *fakeBus {
	return &fakeBus{stream: &fakeStream{ch: make(chan messaging.Message, 16)}}
}

func (b *fakeBus) Publish(_ context.Context, topic string, qos messaging.QoS, retain bool, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if topic == b.failTopic && (b.failTimes == 0 || b.failed < b.failTimes) {
		b.failed++
		return errors.Join(messaging.ErrBus, errors.New("broken pipe"))
	}
	b.published = append(b.published, published{topic, qos, retain, string(payload)})
	return nil
}

func (b *fakeBus) PublishJSON(ctx context.Context, topic string, qos messaging.QoS, retain bool, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Publish(ctx, topic, qos, retain, data)
}

func (b *fakeBus) Failed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed
}

func (b *fakeBus) SubscribeStream(_ context.Context, topic string, _ messaging.QoS) (messaging.Stream, error) {
	if b.subscribeErr != nil {
		return nil, b.subscribeErr
	}
	b.mu.Lock()
	b.subscribed = append(b.subscribed, topic)
	b.mu.Unlock()
	return b.stream, nil
}

func (b *fakeBus) Published() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]published, len(b.published))
	copy(out, b.published)
	return out
}

type fakeStream struct {
	ch           chan messaging.Message
	once         sync.Once
	mu           sync.Mutex
	unsubscribed bool
}

func (s *fakeStream) send(topic, payload string) {
	s.ch <- messaging.Message{Topic: topic, Payload: []byte(payload)}
}

// end closes the stream once queued messages are drained.
func (s *fakeStream) end() { s.once.Do(func() { close(s.ch) }) }

func (s *fakeStream) Recv(ctx context.Context) (messaging.Message, error) {
	select {
	case m, ok := <-s.ch:
		if !ok {
			return messaging.Message{}, messaging.ErrStreamClosed
		}
		return m, nil
	case <-ctx.Done():
		return messaging.Message{}, ctx.Err()
	}
}

func (s *fakeStream) Close() {}

func (s *fakeStream) Unsubscribe(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed = true
	return nil
}

func (s *fakeStream) Unsubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribed
}

type command struct {
	id      string
	payload string
}

type commandAt struct {
	command
	at time.Time
}

type fakeActions struct {
	mu       sync.Mutex
	states   map[string]string
	stateErr map[string]error
	commands []commandAt
	cmdErr   map[string]error
}

func (a *fakeActions) State(_ context.Context, e entity.Entity) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.stateErr[e.ID()]; err != nil {
		return "", err
	}
	return a.states[e.ID()], nil
}

func (a *fakeActions) Command(_ context.Context, e entity.Entity, payload string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commands = append(a.commands, commandAt{command{e.ID(), payload}, time.Now()})
	return a.cmdErr[e.ID()]
}

func (a *fakeActions) Commands() []command {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]command, len(a.commands))
	for i, c := range a.commands {
		out[i] = c.command
	}
	return out
}

func (a *fakeActions) CommandTimes() []time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]time.Time, len(a.commands))
	for i, c := range a.commands {
		out[i] = c.at
	}
	return out
}
