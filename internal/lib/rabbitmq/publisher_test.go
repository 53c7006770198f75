package rabbitmq

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (c *recordingChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange = exchange
	c.key = key
	c.msg = msg
	return c.err
}

func TestPublishMessage(t *testing.T) {
	type testMsg struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	ch := &recordingChannel{}
	err := PublishMessage(ch, "notifications", "email", testMsg{ID: 1, Name: "DEV-2026-0001"})
	require.NoError(t, err)

	assert.Equal(t, "notifications", ch.exchange)
	assert.Equal(t, "email", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), ch.msg.DeliveryMode)
	assert.False(t, ch.msg.Timestamp.IsZero())

	var got testMsg
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, testMsg{ID: 1, Name: "DEV-2026-0001"}, got)
}

func TestPublishMessage_Errors(t *testing.T) {
	t.Run("marshal error", func(t *testing.T) {
		ch := &recordingChannel{}
		err := PublishMessage(ch, "", "q", struct {
			Ch chan int `json:"ch"`
		}{Ch: make(chan int)})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
		assert.Empty(t, ch.msg.Body)
	})

	t.Run("publish error", func(t *testing.T) {
		ch := &recordingChannel{err: errors.New("channel closed")}
		err := PublishMessage(ch, "notifications", "email", map[string]any{"ok": true})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "channel closed")
	})
}
