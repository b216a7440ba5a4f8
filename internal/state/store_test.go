package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	s := NewStore()
	topic := "home/entities/stat/switch/lamp"

	_, _, ok := s.GetLast(topic)
	assert.False(t, ok)

	before := time.Now()
	s.Update(topic, "ON")
	payload, sentAt, ok := s.GetLast(topic)
	assert.True(t, ok)
	assert.Equal(t, "ON", payload)
	assert.False(t, sentAt.Before(before))

	s.Update(topic, "OFF")
	payload, later, _ := s.GetLast(topic)
	assert.Equal(t, "OFF", payload)
	assert.False(t, later.Before(sentAt))

	_, _, ok = s.GetLast("home/entities/stat/switch/other")
	assert.False(t, ok)
}
