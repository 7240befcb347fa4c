package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kafka "github.com/vogiaan1904/lobbydraft/internal/delivery/kafka"
	"github.com/vogiaan1904/lobbydraft/pkg/logger"
)

func TestPublishPickMade_KeyedByLobby(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mp := mocks.NewSyncProducer(t, cfg)

	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != kafka.TopicPickMade {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "lobby-1" {
			return errors.New("unexpected key " + string(key))
		}
		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var evt kafka.PickMadeEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			return err
		}
		if evt.TargetID != "p7" || !evt.Expired || evt.Timestamp.IsZero() {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := NewProducer(mp, logger.InitializeTestZapLogger())
	err := p.PublishPickMade(context.Background(), kafka.PickMadeEvent{
		LobbyID:  "lobby-1",
		PickerID: "cap-a",
		TargetID: "p7",
		Role:     "medic",
		Team:     "team_a",
		Expired:  true,
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPublish_SendFailure(t *testing.T) {
	mp := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducer(mp, logger.InitializeTestZapLogger())
	err := p.PublishPlayerLeft(context.Background(), kafka.PlayerLeftEvent{LobbyID: "lobby-1", PlayerID: "p1", Reason: "left"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}
