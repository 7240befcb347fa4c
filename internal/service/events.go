package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vogiaan1904/lobbydraft/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	repo "github.com/vogiaan1904/lobbydraft/internal/repository/redis"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

// notifier fans confirmed changes out to Kafka and the lobby's pub/sub
// channel. Delivery failures are logged and never fail the request.
type notifier struct {
	prod    producer.Producer // nil when Kafka is disabled
	updates repo.UpdateRepository
	l       pkgLog.Logger
}

func (n notifier) update(ctx context.Context, lobbyID string, t models.UpdateType, playerID string) {
	if n.updates == nil {
		return
	}
	if err := n.updates.Publish(ctx, models.LobbyUpdateEvent{
		EventID:    uuid.New().String(),
		LobbyID:    lobbyID,
		UpdateType: t,
		PlayerID:   playerID,
		Timestamp:  time.Now(),
	}); err != nil {
		n.l.Warnf(ctx, "service.notifier.update: %s %s: %v", lobbyID, t, err)
	}
}

func (n notifier) publish(ctx context.Context, name string, fn func(producer.Producer) error) {
	if n.prod == nil {
		return
	}
	if err := fn(n.prod); err != nil {
		n.l.Errorf(ctx, "service.notifier.publish: %s: %v", name, err)
	}
}
