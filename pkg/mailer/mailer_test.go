package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	fail error
}

func (f *fakeSender) Send(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) delivered() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestEnqueuePushesJSON(t *testing.T) {
	client := newTestClient(t)
	queue := NewRedisQueue(client)
	ctx := context.Background()

	msg := Message{
		From:    "Topic Management",
		To:      "student@example.com",
		Subject: "New report",
		HTML:    "<p>hello</p>",
	}
	require.NoError(t, queue.Enqueue(ctx, msg))

	raw, err := client.RPop(ctx, "mail:queue").Result()
	require.NoError(t, err)

	var got Message
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, msg, got)
}

func TestWorkerDeliversQueuedMessage(t *testing.T) {
	client := newTestClient(t)
	queue := NewRedisQueue(client)
	sender := &fakeSender{}
	worker := NewWorker(client, sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Start(ctx)

	msg := Message{From: "Topic Management", To: "a@example.com", Subject: "s", HTML: "<p>b</p>"}
	require.NoError(t, queue.Enqueue(ctx, msg))

	require.Eventually(t, func() bool {
		return len(sender.delivered()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, msg, sender.delivered()[0])
}

func TestDeliverStopsWhenContextCanceled(t *testing.T) {
	client := newTestClient(t)
	sender := &fakeSender{fail: errors.New("smtp down")}
	worker := NewWorker(client, sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		worker.deliver(ctx, Message{To: "a@example.com"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("deliver did not stop after context cancellation")
	}
}
