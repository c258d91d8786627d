package router

import (
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/zeitnachricht/internal/api/grpc/handler"
	"github.com/dtroode/zeitnachricht/internal/api/grpc/middleware"
	"github.com/dtroode/zeitnachricht/internal/logger"
)

// Router represents the gRPC router of the local status server.
// It manages service registration and middleware configuration.
type Router struct {
	health *handler.Health
	logger *logger.Logger
}

// New creates new gRPC Router instance.
func New(health *handler.Health, logger *logger.Logger) *Router {
	return &Router{
		health: health,
		logger: logger,
	}
}

// Register builds the gRPC server with request logging and panic recovery
// and registers the health service.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	recoverOpt := recovery.WithRecoveryHandlerContext(logging.Recover)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			recovery.UnaryServerInterceptor(recoverOpt),
		),
		grpc.ChainStreamInterceptor(
			logging.HandleStream,
			recovery.StreamServerInterceptor(recoverOpt),
		),
	)
	healthpb.RegisterHealthServer(s, r.health.Server())

	return s
}
