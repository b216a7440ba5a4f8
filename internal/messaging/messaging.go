package messaging

import (
	"context"
	"errors"
)

type QoS byte

const (
	AtMostOnce  QoS = 0
	AtLeastOnce QoS = 1
	ExactlyOnce QoS = 2
	AsyncNoWait QoS = 3 // not a real QoS, will switch to 0 on publish but not wait on returned token
)

var (
	// ErrBus wraps every connect, publish and subscribe failure.
	ErrBus          = errors.New("mqtt bus error")
	ErrNotConnected = errors.New("client not connected")
	ErrTimeout      = errors.New("operation timed out")
	// ErrStreamClosed is returned by Stream.Recv once the stream has ended.
	ErrStreamClosed = errors.New("message stream closed")
)

type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// Subscription is returned when you Subscribe you can Unsubscribe later.
type Subscription interface {
	Unsubscribe(ctx context.Context) error
}

// Stream delivers messages of one subscription in arrival order. It ends
// when the connection is lost or the broker is closed. Messages arriving
// while the buffer is full are dropped.
type Stream interface {
	Subscription
	Recv(ctx context.Context) (Message, error)
	Close()
}

type Broker interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Publish(ctx context.Context, topic string, qos QoS, retain bool, payload []byte) error
	PublishJSON(ctx context.Context, topic string, qos QoS, retain bool, v interface{}) error
	Subscribe(ctx context.Context, topic string, qos QoS, handler func(ctx context.Context, topic string, payload []byte)) (Subscription, error)
	SubscribeStream(ctx context.Context, topic string, qos QoS) (Stream, error)
	IsConnected() bool
}
