package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/pkg/logger"
)

// UpdateRepository fans lobby updates out over Redis Pub/Sub.
type UpdateRepository interface {
	Publish(ctx context.Context, evt models.LobbyUpdateEvent) error
	// Subscribe streams updates for one lobby until ctx is done.
	Subscribe(ctx context.Context, lobbyID string) (<-chan models.LobbyUpdateEvent, error)
}

type redisUpdateRepository struct {
	cli *redis.Client
	l   logger.Logger
}

func NewRedisUpdateRepository(cli *redis.Client, l logger.Logger) UpdateRepository {
	return &redisUpdateRepository{
		cli: cli,
		l:   l,
	}
}

func (r *redisUpdateRepository) Publish(ctx context.Context, evt models.LobbyUpdateEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	if err := r.cli.Publish(ctx, UpdatesChannel(evt.LobbyID), data).Err(); err != nil {
		r.l.Errorf(ctx, "redisUpdateRepository.Publish: %v", err)
		return err
	}

	return nil
}

func (r *redisUpdateRepository) Subscribe(ctx context.Context, lobbyID string) (<-chan models.LobbyUpdateEvent, error) {
	sub := r.cli.Subscribe(ctx, UpdatesChannel(lobbyID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		r.l.Errorf(ctx, "redisUpdateRepository.Subscribe: %v", err)
		return nil, err
	}

	out := make(chan models.LobbyUpdateEvent, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt models.LobbyUpdateEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					r.l.Warnf(ctx, "redisUpdateRepository.Subscribe: bad payload on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func UpdatesChannel(lobbyID string) string {
	return fmt.Sprintf("lobbydraft:lobby:%s:updates", lobbyID)
}
