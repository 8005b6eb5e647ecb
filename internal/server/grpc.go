package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/unotable/uno-server-go/internal/config"
	"github.com/unotable/uno-server-go/internal/room"
	"github.com/unotable/uno-server-go/internal/user"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// LobbyServiceName is the fully qualified gRPC service name.
const LobbyServiceName = "uno.v1.Lobby"

// LobbyServer is the read-only lobby service. Requests and responses are
// generic protobuf structs so no generated code is needed.
type LobbyServer interface {
	ListRooms(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetRoom(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// LobbyServiceDesc describes the lobby service for grpc.Server.RegisterService.
var LobbyServiceDesc = grpc.ServiceDesc{
	ServiceName: LobbyServiceName,
	HandlerType: (*LobbyServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListRooms", Handler: listRoomsHandler},
		{MethodName: "GetRoom", Handler: getRoomHandler},
		{MethodName: "GetStats", Handler: getStatsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "uno/v1/lobby.proto",
}

func listRoomsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LobbyServer).ListRooms(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + LobbyServiceName + "/ListRooms"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(LobbyServer).ListRooms(ctx, req.(*emptypb.Empty))
	})
}

func getRoomHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LobbyServer).GetRoom(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + LobbyServiceName + "/GetRoom"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(LobbyServer).GetRoom(ctx, req.(*structpb.Struct))
	})
}

func getStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LobbyServer).GetStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + LobbyServiceName + "/GetStats"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(LobbyServer).GetStats(ctx, req.(*structpb.Struct))
	})
}

// LobbyClient calls the lobby service.
type LobbyClient struct {
	cc grpc.ClientConnInterface
}

// NewLobbyClient wraps a connection.
func NewLobbyClient(cc grpc.ClientConnInterface) *LobbyClient {
	return &LobbyClient{cc: cc}
}

// ListRooms returns {"rooms": [...]}.
func (c *LobbyClient) ListRooms(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+LobbyServiceName+"/ListRooms", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRoom describes one room.
func (c *LobbyClient) GetRoom(ctx context.Context, roomID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"room_id": roomID})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+LobbyServiceName+"/GetRoom", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStats returns a player's statistics.
func (c *LobbyClient) GetStats(ctx context.Context, username string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"username": username})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+LobbyServiceName+"/GetStats", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// lobbyServer implements LobbyServer on top of the room and user managers.
type lobbyServer struct {
	rooms  *room.Manager
	users  user.Manager
	logger *zap.Logger
}

// NewLobbyServer creates the lobby service implementation.
func NewLobbyServer(rooms *room.Manager, users user.Manager, logger *zap.Logger) LobbyServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &lobbyServer{
		rooms:  rooms,
		users:  users,
		logger: logger.Named("lobby"),
	}
}

func (s *lobbyServer) ListRooms(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	infos, err := s.rooms.List(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list rooms: %v", err)
	}
	return toStruct(map[string]any{"rooms": infos})
}

func (s *lobbyServer) GetRoom(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	roomID := stringField(req, "room_id")
	if roomID == "" {
		return nil, status.Error(codes.InvalidArgument, "room_id is required")
	}

	r, err := s.rooms.Get(roomID)
	if err != nil {
		return nil, status.Error(codes.NotFound, "room not found")
	}
	info, err := r.Info(ctx)
	if err != nil {
		if errors.Is(err, room.ErrRoomClosed) {
			return nil, status.Error(codes.NotFound, "room not found")
		}
		return nil, status.Errorf(codes.Internal, "room info: %v", err)
	}
	last, err := r.LastResult(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "room result: %v", err)
	}
	return toStruct(map[string]any{"room": info, "last_result": last})
}

func (s *lobbyServer) GetStats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username := stringField(req, "username")
	if username == "" {
		return nil, status.Error(codes.InvalidArgument, "username is required")
	}
	stats, err := s.users.GetStats(ctx, username)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get stats: %v", err)
	}
	return toStruct(stats)
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(s.GetFields()[key].GetStringValue())
}

// toStruct converts v to a Struct through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// NewGRPCServer creates a gRPC server with the lobby and health services
// registered. The health server is returned so it can be flipped to
// NOT_SERVING on shutdown.
func NewGRPCServer(cfg config.GRPCConfig, lobby LobbyServer, logger *zap.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("grpc")

	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(ChainUnaryInterceptors(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	}
	if cfg.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConcurrentStreams)))
	}

	srv := grpc.NewServer(opts...)
	srv.RegisterService(&LobbyServiceDesc, lobby)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(LobbyServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv, hs
}

// ChainUnaryInterceptors runs interceptors in order, the first one outermost.
func ChainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		next := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			interceptor, inner := interceptors[i], next
			next = func(ctx context.Context, req any) (any, error) {
				return interceptor(ctx, req, info, inner)
			}
		}
		return next(ctx, req)
	}
}

// RecoveryInterceptor turns a panicking handler into codes.Internal.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("panic in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", p),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Error(codes.Internal, fmt.Sprintf("internal error in %s", info.FullMethod))
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs every call with its duration and status code.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if err != nil && status.Code(err) == codes.Internal {
			logger.Error("gRPC call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("gRPC call", fields...)
		}
		return resp, err
	}
}
