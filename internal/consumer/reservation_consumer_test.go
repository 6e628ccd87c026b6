package consumer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ElVatoEste/biblioteca-reservas/internal/cache"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type fakeAck struct {
	mu      sync.Mutex
	acked   int
	nacked  int
	requeue bool
}

func (f *fakeAck) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked++
	return nil
}

func (f *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked++
	f.requeue = requeue
	return nil
}

func (f *fakeAck) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func delivery(ack amqp.Acknowledger, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, RoutingKey: "reservation.created", Body: []byte(body)}
}

func TestHandleMessage_InvalidatesPages(t *testing.T) {
	ctx := context.Background()
	pages := cache.NewLocal(time.Minute)
	pages.Set(ctx, 0, "page-1", []byte(`{}`))
	ack := &fakeAck{}

	NewReservationConsumer(pages).handleMessage(ctx, delivery(ack, `{"action":"created","reservation_id":1741622400000}`))

	_, _, ok := pages.Get(ctx, "page-1")
	assert.False(t, ok)
	assert.Equal(t, 1, ack.acked)
	assert.Zero(t, ack.nacked)
}

func TestHandleMessage_MalformedIsDropped(t *testing.T) {
	ctx := context.Background()
	pages := cache.NewLocal(time.Minute)
	pages.Set(ctx, 0, "page-1", []byte(`{}`))

	for _, body := range []string{`not json`, `{}`} {
		ack := &fakeAck{}
		NewReservationConsumer(pages).handleMessage(ctx, delivery(ack, body))

		assert.Equal(t, 1, ack.nacked, body)
		assert.False(t, ack.requeue, body)
		assert.Zero(t, ack.acked, body)
	}

	_, _, ok := pages.Get(ctx, "page-1")
	assert.True(t, ok)
}

func TestStart_DrainsChannel(t *testing.T) {
	pages := cache.NewLocal(time.Minute)
	ack := &fakeAck{}
	msgs := make(chan amqp.Delivery, 2)
	msgs <- delivery(ack, `{"action":"deleted","reservation_id":1}`)
	msgs <- delivery(ack, `{"action":"updated","reservation_id":2}`)
	close(msgs)

	NewReservationConsumer(pages).Start(context.Background(), msgs)

	assert.Eventually(t, func() bool {
		ack.mu.Lock()
		defer ack.mu.Unlock()
		return ack.acked == 2
	}, time.Second, 10*time.Millisecond)
}
