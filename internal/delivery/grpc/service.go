package grpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/vogiaan1904/lobbydraft/internal/access"
	"github.com/vogiaan1904/lobbydraft/internal/delivery"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/service"
	"github.com/vogiaan1904/lobbydraft/pkg/logger"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type lobbyRequest struct {
	LobbyID string `json:"lobby_id" validate:"required"`
}

type playerRequest struct {
	LobbyID  string `json:"lobby_id" validate:"required"`
	PlayerID string `json:"player_id" validate:"required"`
}

type getLobbyRequest struct {
	LobbyID string `json:"lobby_id" validate:"required_without=MatchID"`
	MatchID string `json:"match_id" validate:"required_without=LobbyID"`
}

type canAssumeRoleRequest struct {
	LobbyID  string `json:"lobby_id" validate:"required"`
	PlayerID string `json:"player_id" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

type announcementRequest struct {
	LobbyID   string `json:"lobby_id" validate:"required"`
	ChannelID string `json:"channel_id" validate:"required"`
	MessageID string `json:"message_id" validate:"required"`
}

type listLobbiesResponse struct {
	Lobbies []*service.LobbyOutput `json:"lobbies"`
}

type availableRolesResponse struct {
	Roles []models.Role `json:"roles"`
}

type emptyResponse struct{}

type grpcService struct {
	svc service.LobbyService
	l   logger.Logger
	v   *validator.Validate
}

func NewGrpcService(svc service.LobbyService, l logger.Logger) LobbyServiceServer {
	return &grpcService{
		svc: svc,
		l:   l,
		v:   validator.New(),
	}
}

// handle decodes req into In, runs fn and encodes its result.
func handle[In, Out any](
	ctx context.Context,
	s *grpcService,
	method string,
	req *structpb.Struct,
	fn func(ctx context.Context, in In) (Out, error),
) (*structpb.Struct, error) {
	var in In
	if err := s.decode(req, &in); err != nil {
		return nil, s.fail(ctx, method, err)
	}

	out, err := fn(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, method, err)
	}

	res, err := encode(out)
	if err != nil {
		s.l.Errorf(ctx, "delivery.grpc.%s: encode: %v", method, err)
		return nil, mapGRPCError(err)
	}
	return res, nil
}

func (s *grpcService) decode(req *structpb.Struct, v any) error {
	b, err := protojson.Marshal(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return s.v.Struct(v)
}

func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *grpcService) fail(ctx context.Context, method string, err error) error {
	s.l.Warnf(ctx, "delivery.grpc.%s: %v", method, err)
	return mapGRPCError(err)
}

func caller(ctx context.Context) (models.Caller, error) {
	c, ok := delivery.CallerFrom(ctx)
	if !ok {
		return models.Caller{}, service.ErrTokenEmpty
	}
	return c, nil
}

func (s *grpcService) CreateLobby(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "CreateLobby", req, func(ctx context.Context, in service.CreateLobbyInput) (*service.LobbyOutput, error) {
		c, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		return s.svc.CreateLobby(ctx, c, in)
	})
}

func (s *grpcService) JoinLobby(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "JoinLobby", req, func(ctx context.Context, in service.JoinLobbyInput) (*service.LobbyOutput, error) {
		c, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		return s.svc.JoinLobby(ctx, c, in)
	})
}

func (s *grpcService) LeaveLobby(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "LeaveLobby", req, func(ctx context.Context, in lobbyRequest) (*service.LobbyOutput, error) {
		c, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		return s.svc.LeaveLobby(ctx, c, in.LobbyID)
	})
}

func (s *grpcService) KickPlayer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "KickPlayer", req, func(ctx context.Context, in playerRequest) (*service.LobbyOutput, error) {
		c, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		return s.svc.KickPlayer(ctx, c, in.LobbyID, in.PlayerID)
	})
}

func (s *grpcService) AddRole(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "AddRole", req, func(ctx context.Context, in service.RoleInput) (*service.LobbyOutput, error) {
		c, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		return s.svc.AddRole(ctx, c, in)
	})
}

func (s *grpcService) RemoveRole(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "RemoveRole", req, func(ctx context.Context, in service.RoleInput) (*service.LobbyOutput, error) {
		c, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		return s.svc.RemoveRole(ctx, c, in)
	})
}

func (s *grpcService) Pick(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "Pick", req, func(ctx context.Context, in service.PickInput) (*service.PickOutput, error) {
		c, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		return s.svc.Pick(ctx, c, in)
	})
}

func (s *grpcService) Substitute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "Substitute", req, func(ctx context.Context, in service.SubstituteInput) (*service.LobbyOutput, error) {
		c, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		return s.svc.Substitute(ctx, c, in)
	})
}

func (s *grpcService) CloseLobby(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "CloseLobby", req, func(ctx context.Context, in lobbyRequest) (emptyResponse, error) {
		c, err := caller(ctx)
		if err != nil {
			return emptyResponse{}, err
		}
		return emptyResponse{}, s.svc.CloseLobby(ctx, c, in.LobbyID)
	})
}

func (s *grpcService) GetLobby(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "GetLobby", req, func(ctx context.Context, in getLobbyRequest) (*service.LobbyOutput, error) {
		if in.LobbyID != "" {
			return s.svc.GetByID(ctx, in.LobbyID)
		}
		return s.svc.GetByMatchID(ctx, in.MatchID)
	})
}

func (s *grpcService) ListLobbies(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "ListLobbies", req, func(ctx context.Context, _ emptyResponse) (listLobbiesResponse, error) {
		lobbies, err := s.svc.GetActive(ctx)
		return listLobbiesResponse{Lobbies: lobbies}, err
	})
}

func (s *grpcService) AvailableRoles(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "AvailableRoles", req, func(ctx context.Context, in service.AvailableRolesInput) (availableRolesResponse, error) {
		if in.PlayerID == "" {
			if c, ok := delivery.CallerFrom(ctx); ok {
				in.PlayerID = c.PlayerID
			}
		}
		roles, err := s.svc.AvailableRoles(ctx, in)
		return availableRolesResponse{Roles: roles}, err
	})
}

func (s *grpcService) CanAssumeRole(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "CanAssumeRole", req, func(ctx context.Context, in canAssumeRoleRequest) (access.Decision, error) {
		return s.svc.CanAssumeRole(ctx, in.LobbyID, in.PlayerID, in.Role)
	})
}

func (s *grpcService) RegisterAnnouncement(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return handle(ctx, s, "RegisterAnnouncement", req, func(ctx context.Context, in announcementRequest) (emptyResponse, error) {
		if _, err := caller(ctx); err != nil {
			return emptyResponse{}, err
		}
		return emptyResponse{}, s.svc.RegisterAnnouncement(ctx, in.LobbyID, models.Announcement{
			ChannelID: in.ChannelID,
			MessageID: in.MessageID,
		})
	})
}
