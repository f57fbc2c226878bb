package main

import (
	"trade-sync/src/grpc_control"
	"trade-sync/src/interfaces"
	"trade-sync/src/logger"
	"trade-sync/src/models"
	"trade-sync/src/server"
	"trade-sync/src/session"
)

// -----------------------------------------------------------------------------

// startServers starts the dashboard and health servers and registers them as
// event sinks. The returned servers must be stopped on shutdown.
func startServers(client *session.Client, config *models.MConfig, appLogger *logger.Logger) []interfaces.IDataExchanger {
	var servers []interfaces.IDataExchanger

	// 1. Dashboard Server
	if config.Dashboard.Enabled {
		servers = append(servers, server.NewFastAPIServer(config, client, appLogger.Named("dashboard")))
	}

	// 2. gRPC Health Server
	servers = append(servers, grpc_control.NewHealthService(config, appLogger.Named("health")))

	for _, srv := range servers {
		client.AddSink(srv)
		go func(srv interfaces.IDataExchanger) {
			if err := srv.Start(); err != nil {
				appLogger.Error("Server failed: %v", err)
			}
		}(srv)
	}
	return servers
}
