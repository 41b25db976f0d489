package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Graceful shutdown cancels the signal context while HTTP handlers are
// still draining; a Publish in that window must land in the inbox, not
// panic on a closed channel.
func TestPublishSafeAfterContextCancel(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "orders.test", 8)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	cancel()
	p.WaitClosed()

	assert.NotPanics(t, func() {
		p.Publish([]byte("order-1"), []byte(`{"event_type":"order.created"}`))
	})
}

func TestCloseStopsIntakeAndFlushes(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "orders.test", 8)
	p.Start(context.Background())

	p.Publish([]byte("order-1"), []byte(`{}`))
	p.Publish([]byte("order-2"), []byte(`{}`))
	p.Close()

	done := make(chan struct{})
	go func() {
		p.WaitClosed()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		require.Fail(t, "producer did not finish flushing after Close")
	}
}
