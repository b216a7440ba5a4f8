package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/fisaks/computer-assistant/internal/logging"
)

const (
	defaultConnectTimeout   = 10 * time.Second
	defaultPublishTimeout   = 5 * time.Second
	defaultSubscribeTimeout = 5 * time.Second
	defaultStreamBuffer     = 25
	disconnectQuiesceMs     = 250
)

type WillMessage struct {
	Topic   string
	Payload []byte
	Qos     QoS
	Retain  bool
}

type BrokerConfig struct {
	BrokerURL        string
	ClientID         string
	Username         string
	Password         string
	KeepAlive        time.Duration
	CleanSession     bool
	Will             *WillMessage
	ConnectTimeout   time.Duration
	PublishTimeout   time.Duration
	SubscribeTimeout time.Duration
	StreamBufferSize int
}

// MsgBroker is a paho client without auto-reconnect: once the connection
// is lost every open Stream ends.
type MsgBroker struct {
	config  BrokerConfig
	client  mqtt.Client
	mu      sync.RWMutex
	streams map[*msgStream]struct{}
}

func NewMsgBroker(cfg BrokerConfig) *MsgBroker {
	return &MsgBroker{
		config:  cfg,
		streams: make(map[*msgStream]struct{}),
	}
}

func busErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBus, op, err)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (b *MsgBroker) Connect(ctx context.Context) error {
	if b.client == nil {
		b.client = mqtt.NewClient(b.optionsFromConfig())
	}
	if b.client.IsConnected() {
		return nil
	}

	t := b.client.Connect()
	timeout := orDefault(b.config.ConnectTimeout, defaultConnectTimeout)

	select {
	case <-t.Done():
		if err := t.Error(); err != nil {
			return busErr("connect "+b.config.BrokerURL, err)
		}
		logging.Info("mqtt connected", "broker", b.config.BrokerURL, "clientId", b.config.ClientID)
		return nil
	case <-time.After(timeout):
		b.client.Disconnect(disconnectQuiesceMs)
		return busErr("connect "+b.config.BrokerURL, fmt.Errorf("%w after %v", ErrTimeout, timeout))
	case <-ctx.Done():
		b.client.Disconnect(disconnectQuiesceMs)
		return ctx.Err()
	}
}

func (b *MsgBroker) optionsFromConfig() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().AddBroker(b.config.BrokerURL)
	opts.SetClientID(b.config.ClientID)
	if b.config.Username != "" {
		opts.SetUsername(b.config.Username)
		opts.SetPassword(b.config.Password)
	}
	if b.config.KeepAlive > 0 {
		opts.SetKeepAlive(b.config.KeepAlive)
	}
	opts.SetCleanSession(b.config.CleanSession)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	if w := b.config.Will; w != nil {
		qos, _ := qosToByte(w.Qos)
		opts.SetBinaryWill(w.Topic, w.Payload, qos, w.Retain)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logging.Warn("mqtt connection lost", "clientId", b.config.ClientID, "error", err)
		b.closeStreams()
	})
	return opts
}

func (b *MsgBroker) IsConnected() bool {
	if b.client == nil {
		return false
	}
	return b.client.IsConnected()
}

// Close publishes the will payload as a graceful goodbye, then disconnects.
func (b *MsgBroker) Close(ctx context.Context) error {
	defer b.closeStreams()
	if b.client == nil {
		return nil
	}
	if w := b.config.Will; w != nil && b.client.IsConnected() {
		if err := b.Publish(ctx, w.Topic, w.Qos, w.Retain, w.Payload); err != nil {
			logging.Warn("mqtt goodbye publish failed", "topic", w.Topic, "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		b.client.Disconnect(disconnectQuiesceMs)
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MsgBroker) Publish(ctx context.Context, topic string, qos QoS, retain bool, payload []byte) error {
	if b.client == nil {
		return busErr("publish "+topic, ErrNotConnected)
	}
	qosByte, wait := qosToByte(qos)
	token := b.client.Publish(topic, qosByte, retain, payload)
	if !wait {
		return nil
	}
	timeout := orDefault(b.config.PublishTimeout, defaultPublishTimeout)

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return busErr("publish "+topic, err)
		}
		return nil
	case <-time.After(timeout):
		return busErr("publish "+topic, fmt.Errorf("%w after %v", ErrTimeout, timeout))
	case <-ctx.Done():
		return ctx.Err()
	}
}

func qosToByte(qos QoS) (byte, bool) {
	if qos > 2 {
		return 0, false
	}
	return byte(qos), true
}

func (b *MsgBroker) PublishJSON(ctx context.Context, topic string, qos QoS, retain bool, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Publish(ctx, topic, qos, retain, data)
}

// Subscribe registers handler and waits for SUBACK with timeout
func (b *MsgBroker) Subscribe(ctx context.Context, topic string, qos QoS, handler func(context.Context, string, []byte)) (Subscription, error) {
	// wrapper that converts paho message to our handler and logs panics without crashing
	onMessageHandler := func(_ mqtt.Client, msg mqtt.Message) {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logging.Error("mqtt handler panic", "clientId", b.config.ClientID, "topic", msg.Topic(), "err", r)
				}
			}()
			handler(ctx, msg.Topic(), msg.Payload())
		}()
	}
	return b.subscribe(ctx, topic, qos, onMessageHandler)
}

// SubscribeStream subscribes to topic and returns a pull-based stream of
// its messages.
func (b *MsgBroker) SubscribeStream(ctx context.Context, topic string, qos QoS) (Stream, error) {
	buffer := b.config.StreamBufferSize
	if buffer == 0 {
		buffer = defaultStreamBuffer
	}
	s := newStream(buffer, b.forgetStream)
	// paho delivers in order on its network goroutine, so this must not block.
	onMessage := func(_ mqtt.Client, msg mqtt.Message) {
		if !s.push(Message{Topic: msg.Topic(), Payload: msg.Payload(), Retained: msg.Retained()}) && !s.closed() {
			logging.Warn("mqtt stream full, message dropped", "topic", msg.Topic(), "dropped", s.Dropped())
		}
	}
	sub, err := b.subscribe(ctx, topic, qos, onMessage)
	if err != nil {
		return nil, err
	}
	s.sub = sub
	b.mu.Lock()
	b.streams[s] = struct{}{}
	b.mu.Unlock()
	if !b.IsConnected() {
		s.Close()
	}
	return s, nil
}

func (b *MsgBroker) subscribe(ctx context.Context, topic string, qos QoS, handler mqtt.MessageHandler) (Subscription, error) {
	if b.client == nil {
		return nil, busErr("subscribe "+topic, ErrNotConnected)
	}
	qosByte, _ := qosToByte(qos)
	token := b.client.Subscribe(topic, qosByte, handler)
	timeout := orDefault(b.config.SubscribeTimeout, defaultSubscribeTimeout)

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return nil, busErr("subscribe "+topic, err)
		}
		logging.Debug("mqtt subscribed", "topic", topic, "qos", qos)
		return &msgSubscription{broker: b, topic: topic}, nil

	case <-time.After(timeout):
		return nil, busErr("subscribe "+topic, fmt.Errorf("%w after %v", ErrTimeout, timeout))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *MsgBroker) forgetStream(s *msgStream) {
	b.mu.Lock()
	delete(b.streams, s)
	b.mu.Unlock()
}

func (b *MsgBroker) closeStreams() {
	b.mu.RLock()
	open := make([]*msgStream, 0, len(b.streams))
	for s := range b.streams {
		open = append(open, s)
	}
	b.mu.RUnlock()

	for _, s := range open {
		s.Close()
	}
}

// subscription wrapper
type msgSubscription struct {
	broker *MsgBroker
	topic  string
}

func (s *msgSubscription) Unsubscribe(ctx context.Context) error {
	token := s.broker.client.Unsubscribe(s.topic)
	timeout := orDefault(s.broker.config.SubscribeTimeout, defaultSubscribeTimeout)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return busErr("unsubscribe "+s.topic, err)
		}
		logging.Debug("mqtt unsubscribed", "topic", s.topic)
		return nil
	case <-time.After(timeout):
		return busErr("unsubscribe "+s.topic, ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
