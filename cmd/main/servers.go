package main

import (
	"fmt"
	"net"

	"dashboard-observer/src/config"
	"dashboard-observer/src/dashboard"
	pb "dashboard-observer/src/grpc_control"
	"dashboard-observer/src/logger"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// startGRPC serves the control service in the background.
func startGRPC(conf *config.Config, svc *dashboard.Service, configPath string, appLogger *logger.Logger) (*grpc.Server, error) {
	port := conf.GrpcPort
	if port == 0 {
		port = 50051
	}
	addr := fmt.Sprintf("%s:%d", conf.GrpcHost, port)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for gRPC: %w", err)
	}

	grpcServer := grpc.NewServer()
	controlService := pb.NewControlService(conf, svc, configPath, logger.NewLogger(conf, "ControlService"))
	pb.RegisterControlServer(grpcServer, controlService)

	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", addr)
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Error("gRPC server stopped: %v", err)
		}
	}()
	return grpcServer, nil
}
