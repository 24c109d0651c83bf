package grpcserver

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"palmer/internal/hackathon"
	"palmer/pkg/models"
)

type Server struct {
	Repo *hackathon.Repo
	Log  *zap.Logger
}

var _ HackathonServiceServer = (*Server)(nil)

func NewServer(repo *hackathon.Repo, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Repo: repo, Log: log}
}

func (s *Server) ListHackathons(ctx context.Context, req *ListHackathonsRequest) (*ListHackathonsResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}

	items, err := s.Repo.List(ctx)
	if err != nil {
		s.Log.Error("grpc: list hackathons", zap.Error(err))
		return nil, status.Error(codes.Internal, "list failed")
	}

	want := strings.ToLower(strings.TrimSpace(req.Status))
	if want != "" {
		filtered := items[:0]
		for _, h := range items {
			if statusOf(h) == want {
				filtered = append(filtered, h)
			}
		}
		items = filtered
	}

	return &ListHackathonsResponse{Count: len(items), Hackathons: items}, nil
}

func (s *Server) GetHackathon(ctx context.Context, req *GetHackathonRequest) (*GetHackathonResponse, error) {
	if req == nil || req.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}

	h, err := s.Repo.GetByID(ctx, req.ID)
	if err != nil {
		s.Log.Error("grpc: get hackathon", zap.Int64("id", req.ID), zap.Error(err))
		return nil, status.Error(codes.Internal, "get failed")
	}
	if h == nil {
		return nil, status.Error(codes.NotFound, "hackathon not found")
	}
	return &GetHackathonResponse{Hackathon: h}, nil
}

func (s *Server) Stats(ctx context.Context, _ *StatsRequest) (*StatsResponse, error) {
	st, err := s.Repo.CountByStatus(ctx)
	if err != nil {
		s.Log.Error("grpc: stats", zap.Error(err))
		return nil, status.Error(codes.Internal, "stats failed")
	}
	return &st, nil
}

func statusOf(h models.Hackathon) string {
	if h.Status == nil || *h.Status == "" {
		return "unknown"
	}
	return *h.Status
}

// UnaryLogger logs one line per call with its status code.
func UnaryLogger(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Info("grpc: call",
			zap.String("method", info.FullMethod),
			zap.Stringer("code", status.Code(err)),
			zap.Duration("latency", time.Since(start)))
		return resp, err
	}
}
