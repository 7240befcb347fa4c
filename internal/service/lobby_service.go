package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vogiaan1904/lobbydraft/internal/access"
	"github.com/vogiaan1904/lobbydraft/internal/delivery/kafka"
	"github.com/vogiaan1904/lobbydraft/internal/delivery/kafka/producer"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/lobbyapi"
	"github.com/vogiaan1904/lobbydraft/internal/metrics"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/queue"
	repo "github.com/vogiaan1904/lobbydraft/internal/repository/redis"
	"github.com/vogiaan1904/lobbydraft/internal/requirement"
	"github.com/vogiaan1904/lobbydraft/internal/strategy"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

// LobbyService is the lobby coordinator. Mutations of one lobby are run one
// at a time through the lobby's serializer; reads go straight to the remote
// service.
type LobbyService interface {
	CreateLobby(ctx context.Context, caller models.Caller, in CreateLobbyInput) (*LobbyOutput, error)
	JoinLobby(ctx context.Context, caller models.Caller, in JoinLobbyInput) (*LobbyOutput, error)
	LeaveLobby(ctx context.Context, caller models.Caller, lobbyID string) (*LobbyOutput, error)
	KickPlayer(ctx context.Context, caller models.Caller, lobbyID, playerID string) (*LobbyOutput, error)
	AddRole(ctx context.Context, caller models.Caller, in RoleInput) (*LobbyOutput, error)
	RemoveRole(ctx context.Context, caller models.Caller, in RoleInput) (*LobbyOutput, error)
	Pick(ctx context.Context, caller models.Caller, in PickInput) (*PickOutput, error)
	Substitute(ctx context.Context, caller models.Caller, in SubstituteInput) (*LobbyOutput, error)
	CloseLobby(ctx context.Context, caller models.Caller, lobbyID string) error

	GetActive(ctx context.Context) ([]*LobbyOutput, error)
	GetByID(ctx context.Context, lobbyID string) (*LobbyOutput, error)
	GetByMatchID(ctx context.Context, matchID string) (*LobbyOutput, error)
	AvailableRoles(ctx context.Context, in AvailableRolesInput) ([]models.Role, error)
	// CanAssumeRole is a dry run of the access gate.
	CanAssumeRole(ctx context.Context, lobbyID, playerID, role string) (access.Decision, error)
	RegisterAnnouncement(ctx context.Context, lobbyID string, a models.Announcement) error

	// HandleLobbyClosed discards local bookkeeping once the remote service
	// is done with a lobby.
	HandleLobbyClosed(ctx context.Context, in LobbyClosedInput) error
}

type lobbyService struct {
	api      lobbyapi.Client
	drafts   repo.DraftRepository
	resolver access.Resolver
	draftSvc DraftService
	mgr      queue.Manager
	notify   notifier
	m        metrics.Recorder
	l        pkgLog.Logger
}

func NewLobbyService(
	api lobbyapi.Client,
	drafts repo.DraftRepository,
	resolver access.Resolver,
	draftSvc DraftService,
	mgr queue.Manager,
	prod producer.Producer,
	updates repo.UpdateRepository,
	m metrics.Recorder,
	l pkgLog.Logger,
) LobbyService {
	return &lobbyService{
		api:      api,
		drafts:   drafts,
		resolver: resolver,
		draftSvc: draftSvc,
		mgr:      mgr,
		notify:   notifier{prod: prod, updates: updates, l: l},
		m:        m,
		l:        l,
	}
}

func (s *lobbyService) CreateLobby(ctx context.Context, caller models.Caller, in CreateLobbyInput) (*LobbyOutput, error) {
	ctx = s.l.With(ctx, "action", "create", "player_id", caller.PlayerID)

	req, err := buildCreateRequest(caller, in)
	if err != nil {
		return nil, s.done(ctx, "CreateLobby", err)
	}

	lobby, err := s.api.Create(ctx, req)
	if err != nil {
		return nil, s.done(ctx, "CreateLobby", err)
	}

	if in.AccessConfig != "" {
		if err := s.drafts.SetAccessConfig(ctx, lobby.ID, in.AccessConfig); err != nil {
			return nil, s.done(ctx, "CreateLobby", errs.Remote("draft-store", "set-access-config", err))
		}
		lobby.AccessConfig = in.AccessConfig
	}

	s.l.Infof(ctx, "lobby %s created (%s, %d players)", lobby.ID, lobby.Distribution, lobby.MaxPlayers)
	out, err := s.output(ctx, lobby, nil)
	return out, s.done(ctx, "CreateLobby", err)
}

func (s *lobbyService) JoinLobby(ctx context.Context, caller models.Caller, in JoinLobbyInput) (*LobbyOutput, error) {
	ctx = s.l.With(ctx, "lobby_id", in.LobbyID, "action", "join", "player_id", caller.PlayerID)

	declared, err := models.ParseRoles(in.Roles)
	if err != nil {
		return nil, s.done(ctx, "JoinLobby", err)
	}

	var out *LobbyOutput
	err = s.mgr.Do(ctx, in.LobbyID, func(ctx context.Context) error {
		lobby, err := s.load(ctx, in.LobbyID)
		if err != nil {
			return err
		}

		for _, r := range declared {
			if r.IsClass() {
				if err := s.gate(ctx, *lobby, caller.PlayerID, r); err != nil {
					return err
				}
			}
		}

		strat, err := strategy.For(lobby.Distribution)
		if err != nil {
			return err
		}
		plan, err := strat.ValidateJoin(*lobby, caller.PlayerID, declared)
		if err != nil {
			return err
		}

		snap, err := s.api.Join(ctx, lobby.ID, models.QueueEntry{
			PlayerID:   caller.PlayerID,
			Name:       caller.Name,
			ExternalID: in.ExternalID,
			Roles:      plan.Roles,
		})
		if err != nil {
			return err
		}
		snap.AccessConfig = lobby.AccessConfig

		s.notify.publish(ctx, kafka.TopicPlayerJoined, func(p producer.Producer) error {
			return p.PublishPlayerJoined(ctx, kafka.PlayerJoinedEvent{
				LobbyID:  lobby.ID,
				PlayerID: caller.PlayerID,
				Roles:    models.RoleStrings(plan.Roles),
			})
		})
		s.notify.update(ctx, lobby.ID, models.UpdateTypePlayerJoined, caller.PlayerID)

		out, err = s.afterChange(ctx, snap)
		return err
	})
	return out, s.done(ctx, "JoinLobby", err)
}

func (s *lobbyService) LeaveLobby(ctx context.Context, caller models.Caller, lobbyID string) (*LobbyOutput, error) {
	ctx = s.l.With(ctx, "lobby_id", lobbyID, "action", "leave", "player_id", caller.PlayerID)
	out, err := s.remove(ctx, caller, lobbyID, caller.PlayerID, "left")
	return out, s.done(ctx, "LeaveLobby", err)
}

func (s *lobbyService) KickPlayer(ctx context.Context, caller models.Caller, lobbyID, playerID string) (*LobbyOutput, error) {
	ctx = s.l.With(ctx, "lobby_id", lobbyID, "action", "kick", "player_id", caller.PlayerID, "target_id", playerID)
	out, err := s.remove(ctx, caller, lobbyID, playerID, "kicked")
	return out, s.done(ctx, "KickPlayer", err)
}

func (s *lobbyService) remove(ctx context.Context, caller models.Caller, lobbyID, playerID, reason string) (*LobbyOutput, error) {
	var out *LobbyOutput
	err := s.mgr.Do(ctx, lobbyID, func(ctx context.Context) error {
		lobby, err := s.load(ctx, lobbyID)
		if err != nil {
			return err
		}
		if playerID != caller.PlayerID {
			if err := authorize(*lobby, caller); err != nil {
				return err
			}
		}

		d, err := s.draftOf(ctx, lobby)
		if err != nil {
			return err
		}
		strat, err := strategy.For(lobby.Distribution)
		if err != nil {
			return err
		}
		if err := strat.ValidateLeave(*lobby, d, playerID); err != nil {
			return err
		}

		snap, err := s.api.Leave(ctx, lobbyID, playerID)
		if err != nil {
			return err
		}
		snap.AccessConfig = lobby.AccessConfig

		s.notify.publish(ctx, kafka.TopicPlayerLeft, func(p producer.Producer) error {
			return p.PublishPlayerLeft(ctx, kafka.PlayerLeftEvent{
				LobbyID:  lobbyID,
				PlayerID: playerID,
				Reason:   reason,
				ActorID:  caller.PlayerID,
			})
		})
		s.notify.update(ctx, lobbyID, models.UpdateTypePlayerLeft, playerID)

		out, err = s.output(ctx, snap, d)
		return err
	})
	return out, err
}

func (s *lobbyService) AddRole(ctx context.Context, caller models.Caller, in RoleInput) (*LobbyOutput, error) {
	target := targetOf(caller, in.PlayerID)
	ctx = s.l.With(ctx, "lobby_id", in.LobbyID, "action", "add_role", "player_id", caller.PlayerID, "target_id", target)

	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, s.done(ctx, "AddRole", err)
	}

	var out *LobbyOutput
	err = s.mgr.Do(ctx, in.LobbyID, func(ctx context.Context) error {
		lobby, err := s.load(ctx, in.LobbyID)
		if err != nil {
			return err
		}
		if err := checkRoleChange(*lobby, caller, target, role); err != nil {
			return err
		}

		entry, _ := lobby.Entry(target)
		if entry.HasRole(role) {
			return s.outputInto(ctx, lobby, &out)
		}

		if err := checkTags(*entry, role); err != nil {
			return err
		}
		if role.IsClass() {
			if err := s.gate(ctx, *lobby, target, role); err != nil {
				return err
			}
			if !requirement.CanFill(lobby.Queue, lobby.Requirements, role) {
				return fmt.Errorf("%w: %s is full", errs.ErrRoleUnavailable, role)
			}
		}

		snap, err := s.api.AddRole(ctx, lobby.ID, target, role)
		if err != nil {
			return err
		}
		snap.AccessConfig = lobby.AccessConfig
		s.notify.update(ctx, lobby.ID, models.UpdateTypeRoleAdded, target)

		out, err = s.afterChange(ctx, snap)
		return err
	})
	return out, s.done(ctx, "AddRole", err)
}

func (s *lobbyService) RemoveRole(ctx context.Context, caller models.Caller, in RoleInput) (*LobbyOutput, error) {
	target := targetOf(caller, in.PlayerID)
	ctx = s.l.With(ctx, "lobby_id", in.LobbyID, "action", "remove_role", "player_id", caller.PlayerID, "target_id", target)

	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, s.done(ctx, "RemoveRole", err)
	}

	var out *LobbyOutput
	err = s.mgr.Do(ctx, in.LobbyID, func(ctx context.Context) error {
		lobby, err := s.load(ctx, in.LobbyID)
		if err != nil {
			return err
		}
		if err := checkRoleChange(*lobby, caller, target, role); err != nil {
			return err
		}

		d, err := s.draftOf(ctx, lobby)
		if err != nil {
			return err
		}
		if d.Started() && d.Phase != models.PhaseComplete {
			if e, _ := lobby.Entry(target); d.IsCaptain(target) || e.IsPicked() {
				return fmt.Errorf("%w: roles are fixed while drafting", errs.ErrPlayerLocked)
			}
		}

		entry, _ := lobby.Entry(target)
		if !entry.HasRole(role) {
			return s.outputInto(ctx, lobby, &out)
		}

		snap, err := s.api.RemoveRole(ctx, lobby.ID, target, role)
		if err != nil {
			return err
		}
		snap.AccessConfig = lobby.AccessConfig
		s.notify.update(ctx, lobby.ID, models.UpdateTypeRoleRemoved, target)

		out, err = s.output(ctx, snap, d)
		return err
	})
	return out, s.done(ctx, "RemoveRole", err)
}

func (s *lobbyService) Pick(ctx context.Context, caller models.Caller, in PickInput) (*PickOutput, error) {
	ctx = s.l.With(ctx, "lobby_id", in.LobbyID, "action", "pick", "player_id", caller.PlayerID, "target_id", in.TargetID)

	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, s.done(ctx, "Pick", err)
	}

	var out *PickOutput
	err = s.mgr.Do(ctx, in.LobbyID, func(ctx context.Context) error {
		lobby, err := s.load(ctx, in.LobbyID)
		if err != nil {
			return err
		}
		if lobby.Distribution != models.DistributionCaptainDraft {
			return fmt.Errorf("%w: lobby is %s", errs.ErrNotDrafting, lobby.Distribution)
		}
		gate := func(ctx context.Context) error {
			return s.gate(ctx, *lobby, in.TargetID, role)
		}
		out, err = s.draftSvc.Pick(ctx, lobby, caller.PlayerID, in.TargetID, role, gate)
		if err != nil {
			return err
		}

		strat, err := strategy.For(lobby.Distribution)
		if err != nil {
			return err
		}
		out.View = strat.Render(*out.Lobby, out.Draft)
		return nil
	})
	return out, s.done(ctx, "Pick", err)
}

func (s *lobbyService) Substitute(ctx context.Context, caller models.Caller, in SubstituteInput) (*LobbyOutput, error) {
	ctx = s.l.With(ctx, "lobby_id", in.LobbyID, "action", "substitute", "player_id", caller.PlayerID,
		"target_id", in.PlayerID, "replacement_id", in.Replacement.PlayerID)

	if in.Replacement.PlayerID == "" || in.Replacement.PlayerID == in.PlayerID {
		return nil, s.done(ctx, "Substitute", errs.NewValidationError("replacement", "a different replacement player is required"))
	}

	var out *LobbyOutput
	err := s.mgr.Do(ctx, in.LobbyID, func(ctx context.Context) error {
		lobby, err := s.load(ctx, in.LobbyID)
		if err != nil {
			return err
		}
		if in.PlayerID != caller.PlayerID {
			if err := authorize(*lobby, caller); err != nil {
				return err
			}
		}
		if !lobby.Status.Active() {
			return fmt.Errorf("%w: lobby is %s", errs.ErrLobbyClosed, lobby.Status)
		}

		entry, ok := lobby.Entry(in.PlayerID)
		if !ok {
			return errs.ErrNotQueued
		}
		if lobby.IsQueued(in.Replacement.PlayerID) {
			return errs.ErrAlreadyQueued
		}

		// The replacement inherits every class the player held.
		for _, r := range entry.Roles {
			if r.IsClass() {
				if err := s.gate(ctx, *lobby, in.Replacement.PlayerID, r.Plain()); err != nil {
					return err
				}
			}
		}

		snap, err := s.api.Substitute(ctx, lobby.ID, in.PlayerID, models.QueueEntry{
			PlayerID:   in.Replacement.PlayerID,
			Name:       in.Replacement.Name,
			ExternalID: in.Replacement.ExternalID,
		})
		if err != nil {
			return err
		}
		snap.AccessConfig = lobby.AccessConfig

		if err := s.draftSvc.ReplaceCaptain(ctx, lobby.ID, in.PlayerID, in.Replacement.PlayerID); err != nil {
			s.l.Errorf(ctx, "service.lobbyService.Substitute: captain %s replaced remotely but not in draft: %v", in.PlayerID, err)
			return fmt.Errorf("%w: %v", errs.ErrStateDiverged, err)
		}

		s.notify.publish(ctx, kafka.TopicPlayerLeft, func(p producer.Producer) error {
			return p.PublishPlayerLeft(ctx, kafka.PlayerLeftEvent{
				LobbyID:  lobby.ID,
				PlayerID: in.PlayerID,
				Reason:   "substituted",
				ActorID:  caller.PlayerID,
			})
		})
		s.notify.update(ctx, lobby.ID, models.UpdateTypeSubstituted, in.Replacement.PlayerID)

		out, err = s.afterChange(ctx, snap)
		return err
	})
	return out, s.done(ctx, "Substitute", err)
}

func (s *lobbyService) CloseLobby(ctx context.Context, caller models.Caller, lobbyID string) error {
	ctx = s.l.With(ctx, "lobby_id", lobbyID, "action", "close", "player_id", caller.PlayerID)

	err := s.mgr.Do(ctx, lobbyID, func(ctx context.Context) error {
		lobby, err := s.load(ctx, lobbyID)
		if err != nil {
			return err
		}
		if err := authorize(*lobby, caller); err != nil {
			return err
		}
		if err := s.api.Close(ctx, lobbyID); err != nil {
			return err
		}
		return s.discard(ctx, lobbyID)
	})
	return s.done(ctx, "CloseLobby", err)
}

func (s *lobbyService) HandleLobbyClosed(ctx context.Context, in LobbyClosedInput) error {
	ctx = s.l.With(ctx, "lobby_id", in.LobbyID, "action", "lobby_closed")
	s.l.Infof(ctx, "lobby %s closed remotely (%s)", in.LobbyID, in.Reason)

	err := s.mgr.Do(ctx, in.LobbyID, func(ctx context.Context) error {
		return s.discard(ctx, in.LobbyID)
	})
	return s.done(ctx, "HandleLobbyClosed", err)
}

// discard drops local bookkeeping and retires the lobby's serializer once
// the current job returns.
func (s *lobbyService) discard(ctx context.Context, lobbyID string) error {
	if err := s.drafts.Delete(ctx, lobbyID); err != nil {
		return errs.Remote("draft-store", "delete", err)
	}
	s.notify.update(ctx, lobbyID, models.UpdateTypeLobbyClosed, "")
	s.mgr.Close(lobbyID)
	return nil
}

func (s *lobbyService) GetActive(ctx context.Context) ([]*LobbyOutput, error) {
	lobbies, err := s.api.GetActive(ctx)
	if err != nil {
		return nil, s.done(ctx, "GetActive", err)
	}

	outs := make([]*LobbyOutput, 0, len(lobbies))
	for _, lobby := range lobbies {
		if err := s.joinLocal(ctx, lobby); err != nil {
			return nil, s.done(ctx, "GetActive", err)
		}
		out, err := s.view(ctx, lobby)
		if err != nil {
			return nil, s.done(ctx, "GetActive", err)
		}
		outs = append(outs, out)
	}
	return outs, nil
}

func (s *lobbyService) GetByID(ctx context.Context, lobbyID string) (*LobbyOutput, error) {
	lobby, err := s.load(ctx, lobbyID)
	if err != nil {
		return nil, s.done(ctx, "GetByID", err)
	}
	out, err := s.view(ctx, lobby)
	return out, s.done(ctx, "GetByID", err)
}

func (s *lobbyService) GetByMatchID(ctx context.Context, matchID string) (*LobbyOutput, error) {
	lobby, err := s.api.GetByMatchID(ctx, matchID)
	if err != nil {
		return nil, s.done(ctx, "GetByMatchID", err)
	}
	if err := s.joinLocal(ctx, lobby); err != nil {
		return nil, s.done(ctx, "GetByMatchID", err)
	}
	out, err := s.view(ctx, lobby)
	return out, s.done(ctx, "GetByMatchID", err)
}

func (s *lobbyService) AvailableRoles(ctx context.Context, in AvailableRolesInput) ([]models.Role, error) {
	lobby, err := s.load(ctx, in.LobbyID)
	if err != nil {
		return nil, s.done(ctx, "AvailableRoles", err)
	}

	team := models.NoTeam
	if in.Team != "" {
		r, err := models.ParseRole(in.Team)
		if err != nil || !r.Base.IsTeam() {
			return nil, s.done(ctx, "AvailableRoles", errs.NewValidationError("team", fmt.Sprintf("%q is not a team", in.Team)))
		}
		team = models.Team(r.Base)
	}

	candidate := make([]models.Role, 0, len(lobby.Requirements))
	if e, ok := lobby.Entry(in.PlayerID); ok {
		candidate = e.Roles
	} else {
		for _, req := range lobby.Requirements {
			candidate = append(candidate, req.Role)
		}
	}

	return requirement.AvailableRoles(candidate, lobby.Queue, lobby.Requirements, team), nil
}

func (s *lobbyService) CanAssumeRole(ctx context.Context, lobbyID, playerID, role string) (access.Decision, error) {
	r, err := models.ParseRole(role)
	if err != nil {
		return access.Decision{}, s.done(ctx, "CanAssumeRole", err)
	}
	lobby, err := s.load(ctx, lobbyID)
	if err != nil {
		return access.Decision{}, s.done(ctx, "CanAssumeRole", err)
	}

	dec, err := s.resolver.CanAssumeRole(ctx, *lobby, playerID, r)
	if err != nil {
		return access.Decision{}, s.done(ctx, "CanAssumeRole", err)
	}
	s.m.AccessDecision(string(dec.Reason), dec.Allowed)
	return dec, nil
}

func (s *lobbyService) RegisterAnnouncement(ctx context.Context, lobbyID string, a models.Announcement) error {
	if a.ChannelID == "" || a.MessageID == "" {
		return s.done(ctx, "RegisterAnnouncement", errs.NewValidationError("announcement", "channel and message ids are required"))
	}
	if err := s.drafts.AddAnnouncement(ctx, lobbyID, a); err != nil {
		return s.done(ctx, "RegisterAnnouncement", errs.Remote("draft-store", "add-announcement", err))
	}
	return nil
}

// gate runs the access resolver and turns a denial into an error.
func (s *lobbyService) gate(ctx context.Context, lobby models.Lobby, playerID string, role models.Role) error {
	dec, err := s.resolver.CanAssumeRole(ctx, lobby, playerID, role)
	if err != nil {
		return err
	}
	s.m.AccessDecision(string(dec.Reason), dec.Allowed)
	return dec.Err(playerID, role)
}

func checkRoleChange(lobby models.Lobby, caller models.Caller, target string, role models.Role) error {
	if !lobby.Status.Active() {
		return fmt.Errorf("%w: lobby is %s", errs.ErrLobbyClosed, lobby.Status)
	}
	if !lobby.IsQueued(target) {
		return errs.ErrNotQueued
	}

	// Draft and team tags are managed by the lobby owner; players may only
	// change their own class tags.
	selfService := target == caller.PlayerID && role.IsClass() && !role.IsColored()
	if !selfService {
		return authorize(lobby, caller)
	}
	return nil
}

// checkTags keeps an entry on at most one team. Colored class tags are
// written by draft plans only.
func checkTags(entry models.QueueEntry, role models.Role) error {
	if role.IsColored() {
		return errs.NewValidationError("role", fmt.Sprintf("%s is assigned by the draft", role))
	}
	if role.Base.IsTeam() {
		if held := entry.Team(); held != models.NoTeam && held != models.Team(role.Base) {
			return fmt.Errorf("%w: %s already holds %s", errs.ErrRoleUnavailable, entry.PlayerID, held.Tag())
		}
	}
	return nil
}

// afterChange starts the draft of a captain-draft lobby when the change
// made it ready, then renders the result.
func (s *lobbyService) afterChange(ctx context.Context, lobby *models.Lobby) (*LobbyOutput, error) {
	if lobby.Distribution != models.DistributionCaptainDraft {
		return s.output(ctx, lobby, nil)
	}
	snap, d, err := s.draftSvc.StartIfReady(ctx, lobby)
	if err != nil {
		return nil, err
	}
	return s.output(ctx, snap, d)
}

func (s *lobbyService) view(ctx context.Context, lobby *models.Lobby) (*LobbyOutput, error) {
	d, err := s.draftOf(ctx, lobby)
	if err != nil {
		return nil, err
	}
	return s.output(ctx, lobby, d)
}

func (s *lobbyService) outputInto(ctx context.Context, lobby *models.Lobby, out **LobbyOutput) error {
	var err error
	*out, err = s.view(ctx, lobby)
	return err
}

func (s *lobbyService) output(_ context.Context, lobby *models.Lobby, d *models.Draft) (*LobbyOutput, error) {
	strat, err := strategy.For(lobby.Distribution)
	if err != nil {
		return nil, err
	}
	return &LobbyOutput{Lobby: lobby, Draft: d, View: strat.Render(*lobby, d)}, nil
}

func (s *lobbyService) draftOf(ctx context.Context, lobby *models.Lobby) (*models.Draft, error) {
	if lobby.Distribution != models.DistributionCaptainDraft {
		return nil, nil
	}
	return s.draftSvc.GetDraft(ctx, lobby.ID)
}

// load fetches the remote snapshot and joins the local access config.
func (s *lobbyService) load(ctx context.Context, lobbyID string) (*models.Lobby, error) {
	lobby, err := s.api.GetByID(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if err := s.joinLocal(ctx, lobby); err != nil {
		return nil, err
	}
	return lobby, nil
}

func (s *lobbyService) joinLocal(ctx context.Context, lobby *models.Lobby) error {
	name, err := s.drafts.GetAccessConfig(ctx, lobby.ID)
	if err != nil {
		return errs.Remote("draft-store", "get-access-config", err)
	}
	lobby.AccessConfig = name
	return nil
}

// done records the outcome of an operation and logs failures. Remote and
// divergence failures are errors; rejections are warnings.
func (s *lobbyService) done(ctx context.Context, action string, err error) error {
	s.m.Action(action, err)
	if err == nil {
		return nil
	}
	if errs.IsRemote(err) || errors.Is(err, errs.ErrStateDiverged) || errors.Is(err, queue.ErrManagerClosed) {
		s.l.Errorf(ctx, "service.lobbyService.%s: %v", action, err)
	} else {
		s.l.Warnf(ctx, "service.lobbyService.%s: %v", action, err)
	}
	return err
}

func authorize(lobby models.Lobby, caller models.Caller) error {
	if caller.Admin || (caller.PlayerID != "" && caller.PlayerID == lobby.CreatedBy) {
		return nil
	}
	return errs.ErrNotLobbyOwner
}

func targetOf(caller models.Caller, playerID string) string {
	if playerID == "" {
		return caller.PlayerID
	}
	return playerID
}

func buildCreateRequest(caller models.Caller, in CreateLobbyInput) (lobbyapi.CreateRequest, error) {
	dist := models.Distribution(in.Distribution)
	if !dist.Valid() {
		return lobbyapi.CreateRequest{}, errs.NewValidationError("distribution", fmt.Sprintf("unknown distribution %q", in.Distribution))
	}
	if in.MaxPlayers < 2 {
		return lobbyapi.CreateRequest{}, errs.NewValidationError("max_players", "at least two players are required")
	}
	if len(in.Requirements) == 0 {
		return lobbyapi.CreateRequest{}, errs.NewValidationError("requirements", "at least one requirement is required")
	}

	reqs := make([]models.Requirement, 0, len(in.Requirements))
	seen := make(map[models.Role]struct{}, len(in.Requirements))
	for _, ri := range in.Requirements {
		r, err := models.ParseRole(ri.Role)
		if err != nil {
			return lobbyapi.CreateRequest{}, err
		}
		if ri.Count < 1 {
			return lobbyapi.CreateRequest{}, errs.NewValidationError("requirements", fmt.Sprintf("%s needs a positive count", r))
		}
		if _, dup := seen[r]; dup {
			return lobbyapi.CreateRequest{}, errs.NewValidationError("requirements", fmt.Sprintf("%s listed twice", r))
		}
		seen[r] = struct{}{}
		reqs = append(reqs, models.Requirement{Role: r, Count: ri.Count, Overfill: ri.Overfill})
	}

	return lobbyapi.CreateRequest{
		Distribution: dist,
		Requirements: reqs,
		MaxPlayers:   in.MaxPlayers,
		Region:       in.Region,
		Format:       in.Format,
		CreatedBy:    caller.PlayerID,
	}, nil
}
