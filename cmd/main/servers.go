package main

import (
	"fmt"
	"net"

	"dex-datafeed/src/datafeed"
	pb "dex-datafeed/src/grpc_control"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"
	"dex-datafeed/src/server"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// startServers starts the HTTP/websocket server and the gRPC control server.
func startServers(srv *server.FastAPIServer, feed *datafeed.Datafeed, config *models.MConfig, appLogger *logger.Logger) *grpc.Server {

	// 1. FastAPIServer
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	grpcServer := grpc.NewServer()
	pb.RegisterControlServer(grpcServer, pb.NewControlService(feed, logger.NewLogger(config, "ControlService")))

	go func() {
		port := config.GrpcPort
		if port == 0 {
			port = 50051 // Default fallback
		}
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", config.GrpcHost, port))
		if err != nil {
			appLogger.Critical("failed to listen for gRPC: %v", err)
			return
		}

		appLogger.Info("Starting gRPC Control Server on %s:%d", config.GrpcHost, port)
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Error("gRPC server stopped: %v", err)
		}
	}()

	return grpcServer
}
