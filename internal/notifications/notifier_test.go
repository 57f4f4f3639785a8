package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, "test payload"))
	assert.NoError(t, n.PublishPlanChat(context.Background(), 1, "test payload"))

	var unset *Notifier
	assert.NoError(t, unset.PublishUser(context.Background(), 1, "x"))
}

func TestChannels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		got      string
		expected string
	}{
		{UserChannel(1), "notifications:user:1"},
		{UserChannel(100), "notifications:user:100"},
		{PlanChannel(5), "plan:chat:5"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.got)
	}
}

func TestNotifier_PublishReachesSubscriber(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, UserChannel(7), PlanChannel(3))
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewNotifier(rdb)
	require.NoError(t, n.PublishUser(ctx, 7, `{"type":"friend_request"}`))
	require.NoError(t, n.PublishPlanChat(ctx, 3, `{"type":"plan_message"}`))

	got := map[string]string{}
	ch := sub.Channel()
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case msg := <-ch:
			got[msg.Channel] = msg.Payload
		case <-timeout:
			t.Fatalf("timed out, received %v", got)
		}
	}
	assert.Equal(t, `{"type":"friend_request"}`, got[UserChannel(7)])
	assert.Equal(t, `{"type":"plan_message"}`, got[PlanChannel(3)])
}
