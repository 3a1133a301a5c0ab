package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/oggyb/muzz-matchmaker/internal/config"
)

const shutdownGrace = 10 * time.Second

// NewGRPCServer builds a gRPC server with the principal, logging and recovery
// interceptors, and registers all provided services.
func NewGRPCServer(log *slog.Logger, registrars ...Registrar) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.ChainUnaryInterceptor(UnaryRecovery(log), UnaryLogging(log), UnaryPrincipal()),
		grpc.ChainStreamInterceptor(StreamPrincipal()),
	)

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}
	return grpcServer
}

// StartGRPCServer serves until ctx is done, then stops gracefully.
func StartGRPCServer(ctx context.Context, cfg *config.Config, log *slog.Logger, registrars ...Registrar) error {
	addr := fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	grpcServer := NewGRPCServer(log, registrars...)

	go func() {
		<-ctx.Done()
		log.Info("stopping gRPC server")

		// presence streams stay open until their clients leave
		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownGrace):
			log.Warn("graceful stop timed out, closing open streams")
			grpcServer.Stop()
		}
	}()

	log.Info("starting gRPC server", "addr", addr)
	return grpcServer.Serve(lis)
}
