package consumer

import (
	"context"
	"encoding/json"
	"log"

	"github.com/ElVatoEste/biblioteca-reservas/internal/cache"
	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ReservationConsumer drops cached pages whenever any instance reports a
// reservation change, so range queries here see the new state.
type ReservationConsumer struct {
	pages cache.PageCache
}

func NewReservationConsumer(pages cache.PageCache) *ReservationConsumer {
	return &ReservationConsumer{pages: pages}
}

// Start handles deliveries until msgs is closed.
func (rc *ReservationConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			rc.handleMessage(ctx, msg)
		}
		log.Println("[ReservationConsumer] channel closed, stopping consumer")
	}()
}

func (rc *ReservationConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var event models.ReservationEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.Action == "" {
		log.Printf("[ReservationConsumer] dropping malformed message on %s: %v", msg.RoutingKey, err)
		msg.Nack(false, false)
		return
	}

	rc.pages.Invalidate(ctx)
	log.Printf("[ReservationConsumer] %s for reservation %d, page cache invalidated", event.Action, event.ReservationID)
	msg.Ack(false)
}
