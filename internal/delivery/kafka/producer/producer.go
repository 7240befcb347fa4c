package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	kafka "github.com/vogiaan1904/lobbydraft/internal/delivery/kafka"
	"github.com/vogiaan1904/lobbydraft/pkg/logger"
)

type Producer interface {
	PublishPlayerJoined(ctx context.Context, event kafka.PlayerJoinedEvent) error
	PublishPlayerLeft(ctx context.Context, event kafka.PlayerLeftEvent) error
	PublishDraftStarted(ctx context.Context, event kafka.DraftStartedEvent) error
	PublishPickMade(ctx context.Context, event kafka.PickMadeEvent) error
	PublishPickExpired(ctx context.Context, event kafka.PickExpiredEvent) error
	PublishDraftCompleted(ctx context.Context, event kafka.DraftCompletedEvent) error
	PublishDraftDiverged(ctx context.Context, event kafka.DraftDivergedEvent) error
	Close() error
}

type implProducer struct {
	l    logger.Logger
	prod sarama.SyncProducer
	now  func() time.Time
}

func NewProducer(prod sarama.SyncProducer, l logger.Logger) Producer {
	return &implProducer{
		l:    l,
		prod: prod,
		now:  time.Now,
	}
}

func (p *implProducer) PublishPlayerJoined(ctx context.Context, event kafka.PlayerJoinedEvent) error {
	event.Timestamp = p.now()
	return p.send(ctx, "PublishPlayerJoined", kafka.TopicPlayerJoined, event.LobbyID, event)
}

func (p *implProducer) PublishPlayerLeft(ctx context.Context, event kafka.PlayerLeftEvent) error {
	event.Timestamp = p.now()
	return p.send(ctx, "PublishPlayerLeft", kafka.TopicPlayerLeft, event.LobbyID, event)
}

func (p *implProducer) PublishDraftStarted(ctx context.Context, event kafka.DraftStartedEvent) error {
	event.Timestamp = p.now()
	return p.send(ctx, "PublishDraftStarted", kafka.TopicDraftStarted, event.LobbyID, event)
}

func (p *implProducer) PublishPickMade(ctx context.Context, event kafka.PickMadeEvent) error {
	event.Timestamp = p.now()
	return p.send(ctx, "PublishPickMade", kafka.TopicPickMade, event.LobbyID, event)
}

func (p *implProducer) PublishPickExpired(ctx context.Context, event kafka.PickExpiredEvent) error {
	event.Timestamp = p.now()
	return p.send(ctx, "PublishPickExpired", kafka.TopicPickExpired, event.LobbyID, event)
}

func (p *implProducer) PublishDraftCompleted(ctx context.Context, event kafka.DraftCompletedEvent) error {
	event.Timestamp = p.now()
	return p.send(ctx, "PublishDraftCompleted", kafka.TopicDraftCompleted, event.LobbyID, event)
}

func (p *implProducer) PublishDraftDiverged(ctx context.Context, event kafka.DraftDivergedEvent) error {
	event.Timestamp = p.now()
	return p.send(ctx, "PublishDraftDiverged", kafka.TopicDraftDiverged, event.LobbyID, event)
}

func (p *implProducer) send(ctx context.Context, method, topic, key string, event any) error {
	val, err := json.Marshal(event)
	if err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.%s: %v", method, err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key), // one partition per lobby keeps its events ordered
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(p.now().Format(time.RFC3339)),
			},
		},
	}

	if _, _, err := p.prod.SendMessage(msg); err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.%s: %v", method, err)
		return err
	}
	return nil
}

func (p *implProducer) Close() error {
	if err := p.prod.Close(); err != nil {
		return err
	}

	return nil
}
