package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vogiaan1904/lobbydraft/config"
	"github.com/vogiaan1904/lobbydraft/internal/delivery/kafka"
	"github.com/vogiaan1904/lobbydraft/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/lobbydraft/internal/draft"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/lobbyapi"
	"github.com/vogiaan1904/lobbydraft/internal/metrics"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	repo "github.com/vogiaan1904/lobbydraft/internal/repository/redis"
	"github.com/vogiaan1904/lobbydraft/internal/strategy"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

const rollbackTimeout = 10 * time.Second

// DraftService drives the captain draft of one lobby at a time. Every method
// must run inside that lobby's serializer.
type DraftService interface {
	// GetDraft returns nil without error when the lobby has no draft record.
	GetDraft(ctx context.Context, lobbyID string) (*models.Draft, error)
	// StartIfReady starts the draft the first time the lobby is ready and
	// returns the possibly updated snapshot.
	StartIfReady(ctx context.Context, lobby *models.Lobby) (*models.Lobby, *models.Draft, error)
	// Pick validates turn and target, then runs gate before any remote change.
	Pick(ctx context.Context, lobby *models.Lobby, picker, target string, role models.Role, gate func(context.Context) error) (*PickOutput, error)
	// Expire marks the current turn as timed out if its deadline has passed.
	Expire(ctx context.Context, lobbyID string) error
	ReplaceCaptain(ctx context.Context, lobbyID, oldID, newID string) error
}

type draftService struct {
	api    lobbyapi.Client
	drafts repo.DraftRepository
	notify notifier
	m      metrics.Recorder
	l      pkgLog.Logger

	timeout time.Duration
	order   models.PickOrder
	now     func() time.Time
}

func NewDraftService(
	api lobbyapi.Client,
	drafts repo.DraftRepository,
	prod producer.Producer,
	updates repo.UpdateRepository,
	m metrics.Recorder,
	cfg config.DraftConfig,
	l pkgLog.Logger,
) DraftService {
	return &draftService{
		api:     api,
		drafts:  drafts,
		notify:  notifier{prod: prod, updates: updates, l: l},
		m:       m,
		l:       l,
		timeout: cfg.PickTimeout,
		order:   models.PickOrder(cfg.PickOrder),
		now:     time.Now,
	}
}

func (s *draftService) GetDraft(ctx context.Context, lobbyID string) (*models.Draft, error) {
	d, err := s.drafts.Get(ctx, lobbyID)
	if errors.Is(err, errs.ErrDraftNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Remote("draft-store", "get", err)
	}
	return d, nil
}

func (s *draftService) StartIfReady(ctx context.Context, lobby *models.Lobby) (*models.Lobby, *models.Draft, error) {
	d, err := s.GetDraft(ctx, lobby.ID)
	if err != nil {
		return lobby, nil, err
	}

	strat, err := strategy.For(lobby.Distribution)
	if err != nil {
		return lobby, d, err
	}
	if !strat.ShouldStartDraft(*lobby, d) {
		return lobby, d, nil
	}

	base := models.NewDraft(lobby.ID)
	if d != nil {
		base = d
	}

	now := s.now()
	next, err := draft.Start(*base, *lobby, now, s.timeout, s.order)
	if errors.Is(err, errs.ErrCaptainsMissing) {
		s.l.Warnf(ctx, "service.draftService.StartIfReady: lobby %s is ready but %v", lobby.ID, err)
		return lobby, d, nil
	}
	if err != nil {
		return lobby, d, err
	}

	if err := s.save(ctx, &next); err != nil {
		if errors.Is(err, errs.ErrDraftVersionConflict) {
			// Another process started it first.
			d, gErr := s.GetDraft(ctx, lobby.ID)
			return lobby, d, gErr
		}
		return lobby, d, err
	}

	s.m.DraftEvent("started")
	s.l.Infof(ctx, "draft started for lobby %s: captains %v, %d picks", lobby.ID, next.Captains, len(next.Picks))
	s.notify.publish(ctx, kafka.TopicDraftStarted, func(p producer.Producer) error {
		return p.PublishDraftStarted(ctx, kafka.DraftStartedEvent{
			LobbyID:     lobby.ID,
			Captains:    next.Captains,
			Picks:       next.Picks,
			PickExpires: next.PickExpires,
		})
	})
	s.notify.update(ctx, lobby.ID, models.UpdateTypeDraftStarted, "")

	if next.Phase != models.PhaseAssigning {
		return lobby, &next, nil
	}

	// No turns to play: captains take the remaining classes straight away.
	adds, err := draft.TerminalAssignment(*lobby, next)
	if err != nil {
		return lobby, &next, err
	}
	snap, err := s.apply(ctx, &next, lobby, adds)
	if err != nil {
		return lobby, &next, err
	}
	done, err := s.complete(ctx, next)
	if err != nil {
		return snap, &next, err
	}
	return snap, &done, nil
}

func (s *draftService) Pick(ctx context.Context, lobby *models.Lobby, picker, target string, role models.Role, gate func(context.Context) error) (*PickOutput, error) {
	d, err := s.GetDraft(ctx, lobby.ID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errs.ErrNotDrafting
	}
	if d.Diverged {
		return nil, fmt.Errorf("%w: lobby %s needs manual repair", errs.ErrStateDiverged, lobby.ID)
	}

	plan, err := draft.ValidatePick(*lobby, *d, picker, target, role)
	if err != nil {
		return nil, err
	}
	if gate != nil {
		if err := gate(ctx); err != nil {
			return nil, err
		}
	}

	now := s.now()
	next := draft.Advance(*d, now, s.timeout)
	batch := plan.Adds
	if next.Phase == models.PhaseAssigning {
		term, err := draft.TerminalAssignment(lobby.WithRoles(plan.Adds), next)
		if err != nil {
			return nil, err
		}
		batch = append(batch, term...)
	}

	snap, err := s.apply(ctx, d, lobby, batch)
	if err != nil {
		return nil, err
	}

	expired := d.TurnExpired
	if next.Phase == models.PhaseAssigning {
		if next, err = draft.Complete(next, now); err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, &next); err != nil {
		s.l.Errorf(ctx, "service.draftService.Pick: lobby %s tags applied but draft not saved: %v", lobby.ID, err)
		s.diverged(ctx, d, err)
		return nil, fmt.Errorf("%w: %v", errs.ErrStateDiverged, err)
	}

	s.m.DraftEvent("pick")
	s.notify.publish(ctx, kafka.TopicPickMade, func(p producer.Producer) error {
		return p.PublishPickMade(ctx, kafka.PickMadeEvent{
			LobbyID:  lobby.ID,
			Position: d.Position,
			PickerID: picker,
			TargetID: target,
			Team:     string(plan.Team),
			Role:     role.String(),
			Expired:  expired,
		})
	})
	s.notify.update(ctx, lobby.ID, models.UpdateTypePickMade, target)

	completed := next.Phase == models.PhaseComplete
	if completed {
		s.completed(ctx, next)
	}

	return &PickOutput{
		LobbyOutput: LobbyOutput{Lobby: snap, Draft: &next},
		Expired:     expired,
		Completed:   completed,
	}, nil
}

func (s *draftService) Expire(ctx context.Context, lobbyID string) error {
	d, err := s.GetDraft(ctx, lobbyID)
	if err != nil {
		return err
	}
	if d == nil {
		// The record outlived its TTL; only the index entry is left.
		if err := s.drafts.ClearExpiry(ctx, lobbyID); err != nil {
			return errs.Remote("draft-store", "clear-expiry", err)
		}
		return nil
	}

	next, ok := draft.Expire(*d, s.now())
	if !ok {
		s.l.Debugf(ctx, "service.draftService.Expire: nothing due for lobby %s", lobbyID)
		return nil
	}
	if err := s.save(ctx, &next); err != nil {
		return err
	}

	picker := next.CurrentPicker()
	s.m.DraftEvent("pick_expired")
	s.l.Infof(ctx, "pick %d of lobby %s expired for %s", next.Position, lobbyID, picker)
	s.notify.publish(ctx, kafka.TopicPickExpired, func(p producer.Producer) error {
		return p.PublishPickExpired(ctx, kafka.PickExpiredEvent{
			LobbyID:  lobbyID,
			Position: next.Position,
			PickerID: picker,
		})
	})
	s.notify.update(ctx, lobbyID, models.UpdateTypePickExpired, picker)
	return nil
}

func (s *draftService) ReplaceCaptain(ctx context.Context, lobbyID, oldID, newID string) error {
	d, err := s.GetDraft(ctx, lobbyID)
	if err != nil || d == nil {
		return err
	}
	if !d.ReplaceCaptain(oldID, newID) {
		return nil
	}
	return s.save(ctx, d)
}

// apply adds every tag in batch remotely. On failure the tags already added
// are removed again in reverse order; if that also fails the draft is
// flagged as diverged.
func (s *draftService) apply(ctx context.Context, d *models.Draft, lobby *models.Lobby, batch []models.RoleChange) (*models.Lobby, error) {
	snap := lobby
	applied := make([]models.RoleChange, 0, len(batch))

	for _, c := range batch {
		next, err := s.api.AddRole(ctx, lobby.ID, c.PlayerID, c.Role)
		if err != nil {
			if rbErr := s.rollback(ctx, lobby.ID, applied); rbErr != nil {
				s.l.Errorf(ctx, "service.draftService.apply: lobby %s: %v; rollback failed: %v", lobby.ID, err, rbErr)
				s.diverged(ctx, d, rbErr)
				return nil, fmt.Errorf("%w: %v; rollback: %v", errs.ErrStateDiverged, err, rbErr)
			}
			return nil, err
		}
		applied = append(applied, c)
		snap = next
	}

	snap.AccessConfig = lobby.AccessConfig
	return snap, nil
}

func (s *draftService) rollback(ctx context.Context, lobbyID string, applied []models.RoleChange) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	var failed []error
	for i := len(applied) - 1; i >= 0; i-- {
		c := applied[i]
		if _, err := s.api.RemoveRole(ctx, lobbyID, c.PlayerID, c.Role); err != nil {
			failed = append(failed, fmt.Errorf("remove %s from %s: %w", c.Role, c.PlayerID, err))
		}
	}
	return errors.Join(failed...)
}

func (s *draftService) diverged(ctx context.Context, d *models.Draft, cause error) {
	s.m.DraftEvent("diverged")

	flagged := d.Clone()
	flagged.Diverged = true
	if err := s.drafts.Save(ctx, &flagged); err != nil {
		s.l.Errorf(ctx, "service.draftService.diverged: could not flag lobby %s: %v", d.LobbyID, err)
	}

	s.notify.publish(ctx, kafka.TopicDraftDiverged, func(p producer.Producer) error {
		return p.PublishDraftDiverged(ctx, kafka.DraftDivergedEvent{
			LobbyID:  d.LobbyID,
			Position: d.Position,
			Cause:    cause.Error(),
		})
	})
}

func (s *draftService) complete(ctx context.Context, d models.Draft) (models.Draft, error) {
	done, err := draft.Complete(d, s.now())
	if err != nil {
		return d, err
	}
	if err := s.save(ctx, &done); err != nil {
		return d, err
	}
	s.completed(ctx, done)
	return done, nil
}

func (s *draftService) completed(ctx context.Context, d models.Draft) {
	s.m.DraftEvent("completed")
	s.l.Infof(ctx, "draft completed for lobby %s", d.LobbyID)
	s.notify.publish(ctx, kafka.TopicDraftCompleted, func(p producer.Producer) error {
		return p.PublishDraftCompleted(ctx, kafka.DraftCompletedEvent{
			LobbyID:  d.LobbyID,
			Captains: d.Captains,
		})
	})
	s.notify.update(ctx, d.LobbyID, models.UpdateTypeDraftCompleted, "")
}

func (s *draftService) save(ctx context.Context, d *models.Draft) error {
	err := s.drafts.Save(ctx, d)
	if err == nil || errors.Is(err, errs.ErrDraftVersionConflict) || errors.Is(err, errs.ErrDraftNotFound) {
		return err
	}
	return errs.Remote("draft-store", "save", err)
}
