package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/pkg/logger"
)

// ExpiryEntry is a pending pick deadline from the expiry index.
type ExpiryEntry struct {
	LobbyID  string
	Deadline time.Time
}

// DraftRepository holds local per-lobby bookkeeping: the draft record, the
// lobby's access-config reference, registered announcements and the pick
// expiry index.
type DraftRepository interface {
	Get(ctx context.Context, lobbyID string) (*models.Draft, error)
	// Save stores d if the stored version still equals d.Version, then bumps
	// d.Version. A zero version creates the record.
	Save(ctx context.Context, d *models.Draft) error
	// Delete discards every piece of bookkeeping for the lobby.
	Delete(ctx context.Context, lobbyID string) error

	SetAccessConfig(ctx context.Context, lobbyID, name string) error
	GetAccessConfig(ctx context.Context, lobbyID string) (string, error)

	AddAnnouncement(ctx context.Context, lobbyID string, a models.Announcement) error
	GetAnnouncements(ctx context.Context, lobbyID string) ([]models.Announcement, error)

	DueExpiries(ctx context.Context, now time.Time, limit int64) ([]ExpiryEntry, error)
	// ClearExpiry drops an index entry whose draft record is gone.
	ClearExpiry(ctx context.Context, lobbyID string) error
}

type redisDraftRepository struct {
	cli *redis.Client
	ttl time.Duration
	l   logger.Logger
}

func NewRedisDraftRepository(cli *redis.Client, ttl time.Duration, l logger.Logger) DraftRepository {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &redisDraftRepository{
		cli: cli,
		ttl: ttl,
		l:   l,
	}
}

// KEYS: draft hash, expiry index. ARGV: expected version, data, ttl seconds,
// lobby id, expiry score ("" clears the index entry).
var saveDraftScript = redis.NewScript(`
	local current = redis.call('HGET', KEYS[1], 'version')
	local expected = tonumber(ARGV[1])

	if current then
		if tonumber(current) ~= expected then
			return 0
		end
	elseif expected ~= 0 then
		return -1
	end

	redis.call('HSET', KEYS[1], 'version', expected + 1, 'data', ARGV[2])
	redis.call('EXPIRE', KEYS[1], tonumber(ARGV[3]))

	if ARGV[5] == '' then
		redis.call('ZREM', KEYS[2], ARGV[4])
	else
		redis.call('ZADD', KEYS[2], tonumber(ARGV[5]), ARGV[4])
	end

	return 1
`)

func (r *redisDraftRepository) Get(ctx context.Context, lobbyID string) (*models.Draft, error) {
	vals, err := r.cli.HMGet(ctx, r.draftKey(lobbyID), "version", "data").Result()
	if err != nil {
		r.l.Errorf(ctx, "redisDraftRepository.Get: %v", err)
		return nil, err
	}

	data, ok := vals[1].(string)
	if !ok {
		return nil, errs.ErrDraftNotFound
	}

	var d models.Draft
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		r.l.Errorf(ctx, "redisDraftRepository.Get: %v", err)
		return nil, err
	}

	if v, ok := vals[0].(string); ok {
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.l.Errorf(ctx, "redisDraftRepository.Get: %v", err)
			return nil, err
		}
		d.Version = version
	}

	return &d, nil
}

func (r *redisDraftRepository) Save(ctx context.Context, d *models.Draft) error {
	next := *d
	next.Version = d.Version + 1
	next.UpdatedAt = time.Now()

	data, err := json.Marshal(next)
	if err != nil {
		r.l.Errorf(ctx, "redisDraftRepository.Save: %v", err)
		return err
	}

	score := ""
	if d.Phase == models.PhaseDrafting && d.PickExpires != nil && !d.TurnExpired {
		score = strconv.FormatInt(d.PickExpires.UnixMilli(), 10)
	}

	res, err := saveDraftScript.Run(ctx, r.cli,
		[]string{r.draftKey(d.LobbyID), r.expiryKey()},
		d.Version, data, int64(r.ttl/time.Second), d.LobbyID, score,
	).Int64()
	if err != nil {
		r.l.Errorf(ctx, "redisDraftRepository.Save: %v", err)
		return err
	}

	switch res {
	case 0:
		return errs.ErrDraftVersionConflict
	case -1:
		return errs.ErrDraftNotFound
	}

	d.Version = next.Version
	d.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *redisDraftRepository) Delete(ctx context.Context, lobbyID string) error {
	pipe := r.cli.TxPipeline()
	pipe.Del(ctx, r.draftKey(lobbyID), r.accessConfigKey(lobbyID), r.announcementsKey(lobbyID))
	pipe.ZRem(ctx, r.expiryKey(), lobbyID)

	if _, err := pipe.Exec(ctx); err != nil {
		r.l.Errorf(ctx, "redisDraftRepository.Delete: %v", err)
		return err
	}

	return nil
}

func (r *redisDraftRepository) SetAccessConfig(ctx context.Context, lobbyID, name string) error {
	var err error
	if name == "" {
		err = r.cli.Del(ctx, r.accessConfigKey(lobbyID)).Err()
	} else {
		err = r.cli.Set(ctx, r.accessConfigKey(lobbyID), name, r.ttl).Err()
	}
	if err != nil {
		r.l.Errorf(ctx, "redisDraftRepository.SetAccessConfig: %v", err)
		return err
	}

	return nil
}

func (r *redisDraftRepository) GetAccessConfig(ctx context.Context, lobbyID string) (string, error) {
	name, err := r.cli.Get(ctx, r.accessConfigKey(lobbyID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		r.l.Errorf(ctx, "redisDraftRepository.GetAccessConfig: %v", err)
		return "", err
	}

	return name, nil
}

func (r *redisDraftRepository) AddAnnouncement(ctx context.Context, lobbyID string, a models.Announcement) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}

	key := r.announcementsKey(lobbyID)
	pipe := r.cli.Pipeline()
	pipe.SAdd(ctx, key, data)
	pipe.Expire(ctx, key, r.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		r.l.Errorf(ctx, "redisDraftRepository.AddAnnouncement: %v", err)
		return err
	}

	return nil
}

func (r *redisDraftRepository) GetAnnouncements(ctx context.Context, lobbyID string) ([]models.Announcement, error) {
	members, err := r.cli.SMembers(ctx, r.announcementsKey(lobbyID)).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisDraftRepository.GetAnnouncements: %v", err)
		return nil, err
	}

	out := make([]models.Announcement, 0, len(members))
	for _, m := range members {
		var a models.Announcement
		if err := json.Unmarshal([]byte(m), &a); err != nil {
			r.l.Warnf(ctx, "redisDraftRepository.GetAnnouncements: skipping bad entry: %v", err)
			continue
		}
		out = append(out, a)
	}

	return out, nil
}

func (r *redisDraftRepository) DueExpiries(ctx context.Context, now time.Time, limit int64) ([]ExpiryEntry, error) {
	zs, err := r.cli.ZRangeByScoreWithScores(ctx, r.expiryKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisDraftRepository.DueExpiries: %v", err)
		return nil, err
	}

	out := make([]ExpiryEntry, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, ExpiryEntry{
			LobbyID:  id,
			Deadline: time.UnixMilli(int64(z.Score)),
		})
	}

	return out, nil
}

func (r *redisDraftRepository) ClearExpiry(ctx context.Context, lobbyID string) error {
	if err := r.cli.ZRem(ctx, r.expiryKey(), lobbyID).Err(); err != nil {
		r.l.Errorf(ctx, "redisDraftRepository.ClearExpiry: %v", err)
		return err
	}
	return nil
}

func (r *redisDraftRepository) draftKey(lobbyID string) string {
	return fmt.Sprintf("lobbydraft:draft:%s", lobbyID)
}

func (r *redisDraftRepository) accessConfigKey(lobbyID string) string {
	return fmt.Sprintf("lobbydraft:lobby:%s:access_config", lobbyID)
}

func (r *redisDraftRepository) announcementsKey(lobbyID string) string {
	return fmt.Sprintf("lobbydraft:lobby:%s:announcements", lobbyID)
}

func (r *redisDraftRepository) expiryKey() string {
	return "lobbydraft:draft:expiries"
}
