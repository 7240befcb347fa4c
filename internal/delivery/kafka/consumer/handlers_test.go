package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/lobbydraft/internal/delivery/kafka"
	"github.com/vogiaan1904/lobbydraft/internal/service"
	"github.com/vogiaan1904/lobbydraft/pkg/logger"
)

type fakeLobbyService struct {
	service.LobbyService
	closed []service.LobbyClosedInput
	err    error
}

func (f *fakeLobbyService) HandleLobbyClosed(_ context.Context, in service.LobbyClosedInput) error {
	f.closed = append(f.closed, in)
	return f.err
}

func TestProcessMessage_LobbyClosed(t *testing.T) {
	svc := &fakeLobbyService{}
	c := NewConsumer(nil, svc, logger.InitializeTestZapLogger())

	err := c.processMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: kafka.TopicLobbyClosed,
		Value: []byte(`{"lobby_id":"42","reason":"expired","timestamp":"2026-01-02T03:04:05Z"}`),
	})
	require.NoError(t, err)
	require.Len(t, svc.closed, 1)
	assert.Equal(t, "42", svc.closed[0].LobbyID)
	assert.Equal(t, "expired", svc.closed[0].Reason)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), svc.closed[0].Timestamp)
}

func TestProcessMessage_MalformedPayload(t *testing.T) {
	svc := &fakeLobbyService{}
	c := NewConsumer(nil, svc, logger.InitializeTestZapLogger())

	err := c.processMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: kafka.TopicLobbyClosed,
		Value: []byte(`{not json`),
	})
	assert.Error(t, err)
	assert.Empty(t, svc.closed)
}

func TestProcessMessage_UnknownTopicIsSkipped(t *testing.T) {
	svc := &fakeLobbyService{}
	c := NewConsumer(nil, svc, logger.InitializeTestZapLogger())

	err := c.processMessage(context.Background(), &sarama.ConsumerMessage{Topic: "lobby.other"})
	assert.NoError(t, err)
	assert.Empty(t, svc.closed)
}
