package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamDeliversInOrder(t *testing.T) {
	s := newStream(4, nil)
	require.True(t, s.push(Message{Topic: "a"}))
	require.True(t, s.push(Message{Topic: "b"}))

	ctx := context.Background()
	m, err := s.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", m.Topic)
	m, err = s.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", m.Topic)
}

func TestStreamCloseEndsRecvAndPush(t *testing.T) {
	var closed []*msgStream
	s := newStream(0, func(ms *msgStream) { closed = append(closed, ms) })

	s.Close()
	s.Close()

	_, err := s.Recv(context.Background())
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.False(t, s.push(Message{Topic: "late"}))
	assert.Len(t, closed, 1)
}

func TestStreamPushDropsWhenFull(t *testing.T) {
	s := newStream(1, nil)
	require.True(t, s.push(Message{Topic: "a"}))
	assert.False(t, s.push(Message{Topic: "b"}))
	assert.Equal(t, uint64(1), s.Dropped())

	m, err := s.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", m.Topic)
	assert.True(t, s.push(Message{Topic: "c"}))
}

func TestStreamPushAfterCloseIsNotCountedAsDrop(t *testing.T) {
	s := newStream(1, nil)
	s.Close()
	assert.False(t, s.push(Message{Topic: "x"}))
	assert.Zero(t, s.Dropped())
	assert.True(t, s.closed())
}

func TestStreamRecvHonoursContext(t *testing.T) {
	s := newStream(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Recv(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
