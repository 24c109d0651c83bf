package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"palmer/internal/grpcserver"
	"palmer/internal/hackathon"
	"palmer/pkg/database"
	"palmer/pkg/logging"
	"palmer/pkg/utils"
)

func main() {
	addr := flag.String("addr", "", "listen address (overrides PALMER_GRPC_ADDR)")
	flag.Parse()

	cfg, err := utils.LoadConfig()
	if err != nil {
		logging.Must("info", "console").Fatal("load config", zap.Error(err))
	}
	if *addr != "" {
		cfg.GRPCAddr = *addr
	}
	log := logging.Must(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("grpc server failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg utils.Config, log *zap.Logger) error {
	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.UnaryLogger(log)))
	grpcserver.RegisterHackathonServiceServer(grpcServer, grpcserver.NewServer(hackathon.NewRepo(db), log))

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		grpcServer.GracefulStop()
	}()

	log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
	return grpcServer.Serve(listener)
}
