package consumer

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/lobbydraft/internal/delivery/kafka"
	"github.com/vogiaan1904/lobbydraft/internal/service"
)

func (c *Consumer) HandleLobbyClosed(ctx context.Context, message *sarama.ConsumerMessage) error {
	var e kafka.LobbyClosedEvent
	if err := json.Unmarshal(message.Value, &e); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.HandleLobbyClosed: %v", err)
		return err
	}

	ctx = c.l.With(ctx, "lobby_id", e.LobbyID)
	c.l.Infof(ctx, "HandleLobbyClosed consumed: reason=%s", e.Reason)

	if err := c.lobbySvc.HandleLobbyClosed(ctx, service.LobbyClosedInput{
		LobbyID:   e.LobbyID,
		Reason:    e.Reason,
		Timestamp: e.Timestamp,
	}); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.HandleLobbyClosed: %v", err)
		return err
	}

	return nil
}
