package message_broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	b := NewChannelMessageBroker()
	defer b.Close()
	ctx := context.Background()

	ch, err := b.Subscribe(ctx, "session.state", "")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "session.state", "", []byte(`{"a":1}`)))

	msg := <-ch
	assert.Equal(t, "session.state", msg.Topic)
	assert.Equal(t, "", msg.RoutingKey)
	assert.JSONEq(t, `{"a":1}`, string(msg.Payload))
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, 1, b.TopicCount())
}

func TestPublishBeforeSubscribeIsBuffered(t *testing.T) {
	b := NewChannelMessageBroker()
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, "t", "k", []byte("early")))
	ch, err := b.Subscribe(ctx, "t", "k")
	require.NoError(t, err)
	assert.Equal(t, "early", string((<-ch).Payload))
}

func TestPublishFullTopic(t *testing.T) {
	b := NewChannelMessageBroker()
	defer b.Close()
	ctx := context.Background()

	for i := 0; i < topicBuffer; i++ {
		require.NoError(t, b.Publish(ctx, "t", "", []byte("x")))
	}
	assert.Error(t, b.Publish(ctx, "t", "", []byte("x")))
}

func TestClose(t *testing.T) {
	b := NewChannelMessageBroker()
	ctx := context.Background()

	ch, err := b.Subscribe(ctx, "t", "")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, 0, b.TopicCount())

	_, ok := <-ch
	assert.False(t, ok)

	assert.Error(t, b.Publish(ctx, "t", "", nil))
	_, err = b.Subscribe(ctx, "t", "")
	assert.Error(t, err)
}
