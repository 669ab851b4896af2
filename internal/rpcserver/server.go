// Package rpcserver wires the query engine, gather handler, and the
// out-of-scope message/stream pass-through RPCs into one OverlayService
// gRPC server, following the teacher's one-server-per-service,
// Serve(addr)-returns-*grpc.Server shape (see
// internal/api/grpc/servers/peer_storage.go).
package rpcserver

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/basecamp-overlay/overlay/internal/genproto"
	"github.com/basecamp-overlay/overlay/internal/model"
	"github.com/basecamp-overlay/overlay/internal/query"
)

// Server implements genproto.OverlayServiceServer, routing QueryData to
// the portal query engine (when this node is the portal) and GatherData
// to the gather handler on every node.
type Server struct {
	genproto.UnimplementedOverlayServiceServer

	selfID   string
	isPortal bool
	engine   *query.Engine // nil on non-portal nodes
	gather   *query.GatherHandler
	logger   *zap.Logger

	messaging *messagingHandlers
}

// New builds a Server for node selfID. engine is nil on every node except
// the configured portal (spec §4.5's first sentence).
func New(selfID string, isPortal bool, engine *query.Engine, gather *query.GatherHandler, logger *zap.Logger) *Server {
	return &Server{
		selfID:    selfID,
		isPortal:  isPortal,
		engine:    engine,
		gather:    gather,
		logger:    logger,
		messaging: newMessagingHandlers(logger),
	}
}

// Serve starts the gRPC listener on addr and returns the running server.
func (s *Server) Serve(addr string) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{Time: 300 * time.Second}),
	)
	genproto.RegisterOverlayServiceServer(srv, s)
	go func() {
		if err := srv.Serve(lis); err != nil {
			s.logger.Error("overlay gRPC server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("overlay gRPC listening", zap.String("addr", addr), zap.String("node_id", s.selfID))
	return srv, nil
}

// QueryData implements the portal-only query RPC (spec §4.5, §6).
func (s *Server) QueryData(ctx context.Context, q *model.Query) (*model.QueryResponse, error) {
	if !s.isPortal {
		return &model.QueryResponse{QueryID: q.QueryID, Success: false, Error: "not portal"}, nil
	}
	start := time.Now()
	resp := s.engine.Query(ctx, *q)
	s.logger.Info("QueryData",
		zap.String("query_id", q.QueryID),
		zap.String("kind", string(q.Kind)),
		zap.Bool("success", resp.Success),
		zap.Bool("from_cache", resp.FromCache),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

// GatherData implements the internal peer-to-peer RPC, accepted by every
// node regardless of portal designation (spec §4.6, §6).
func (s *Server) GatherData(ctx context.Context, req *model.PeerRequest) (*model.PeerResponse, error) {
	start := time.Now()
	resp := s.gather.Handle(ctx, req)
	s.logger.Info("GatherData",
		zap.String("request_id", req.QueryID),
		zap.String("requester", req.RequesterID),
		zap.String("route_path", resp.RoutePath),
		zap.Int("hop_count", req.HopCount),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}
