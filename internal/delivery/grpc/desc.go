package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "lobbydraft.v1.LobbyService"

// LobbyServiceServer is the lobby API. Requests and responses are JSON
// objects carried as google.protobuf.Struct.
type LobbyServiceServer interface {
	CreateLobby(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinLobby(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LeaveLobby(context.Context, *structpb.Struct) (*structpb.Struct, error)
	KickPlayer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddRole(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveRole(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Pick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Substitute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseLobby(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLobby(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListLobbies(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AvailableRoles(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CanAssumeRole(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterAnnouncement(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(LobbyServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(LobbyServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

var LobbyServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LobbyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("CreateLobby", LobbyServiceServer.CreateLobby),
		method("JoinLobby", LobbyServiceServer.JoinLobby),
		method("LeaveLobby", LobbyServiceServer.LeaveLobby),
		method("KickPlayer", LobbyServiceServer.KickPlayer),
		method("AddRole", LobbyServiceServer.AddRole),
		method("RemoveRole", LobbyServiceServer.RemoveRole),
		method("Pick", LobbyServiceServer.Pick),
		method("Substitute", LobbyServiceServer.Substitute),
		method("CloseLobby", LobbyServiceServer.CloseLobby),
		method("GetLobby", LobbyServiceServer.GetLobby),
		method("ListLobbies", LobbyServiceServer.ListLobbies),
		method("AvailableRoles", LobbyServiceServer.AvailableRoles),
		method("CanAssumeRole", LobbyServiceServer.CanAssumeRole),
		method("RegisterAnnouncement", LobbyServiceServer.RegisterAnnouncement),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lobbydraft/v1/lobby.proto",
}

func RegisterLobbyServiceServer(s grpc.ServiceRegistrar, srv LobbyServiceServer) {
	s.RegisterService(&LobbyServiceDesc, srv)
}

// LobbyServiceClient calls the lobby API by method name.
type LobbyServiceClient interface {
	Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type lobbyServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLobbyServiceClient(cc grpc.ClientConnInterface) LobbyServiceClient {
	return &lobbyServiceClient{cc: cc}
}

func (c *lobbyServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
