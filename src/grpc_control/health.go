package grpc_control

import (
	"context"
	"fmt"
	"net"

	"trade-sync/src/logger"
	"trade-sync/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// StreamService is the health service name that mirrors the price stream.
const StreamService = "stream"

// -----------------------------------------------------------------------------
// HealthService serves grpc.health.v1.Health. The overall status is SERVING
// while the process runs; "stream" follows the connection state.
// -----------------------------------------------------------------------------

type HealthService struct {
	Config *models.MConfig
	Logger *logger.Logger
	health *health.Server
	server *grpc.Server
}

// -----------------------------------------------------------------------------

func NewHealthService(cfg *models.MConfig, log *logger.Logger) *HealthService {
	hs := &HealthService{
		Config: cfg,
		Logger: log,
		health: health.NewServer(),
		server: grpc.NewServer(),
	}

	healthpb.RegisterHealthServer(hs.server, hs.health)
	// Enable server reflection for local dev tooling.
	reflection.Register(hs.server)

	hs.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.health.SetServingStatus(StreamService, healthpb.HealthCheckResponse_NOT_SERVING)
	return hs
}

// -----------------------------------------------------------------------------

// Start listens on grpc_port and serves until Stop.
func (hs *HealthService) Start() error {
	port := hs.Config.GrpcPort
	if port == 0 {
		port = 50061
	}
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", hs.Config.Host, port))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	hs.Logger.Info("Starting gRPC health service on %s", lis.Addr())
	return hs.Serve(lis)
}

// Serve runs the server on an existing listener.
func (hs *HealthService) Serve(lis net.Listener) error {
	if err := hs.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (hs *HealthService) Stop() error {
	hs.health.Shutdown()
	hs.server.GracefulStop()
	return nil
}

// -----------------------------------------------------------------------------

// Status returns the current status of service ("" for the whole client).
func (hs *HealthService) Status(service string) healthpb.HealthCheckResponse_ServingStatus {
	resp, err := hs.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_SERVICE_UNKNOWN
	}
	return resp.Status
}

// -----------------------------------------------------------------------------
// IEventSink Implementation
// -----------------------------------------------------------------------------

func (hs *HealthService) OnConnectionStateChanged(state models.MConnectionState) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if state == models.StateConnected {
		status = healthpb.HealthCheckResponse_SERVING
	}
	hs.health.SetServingStatus(StreamService, status)
}

func (hs *HealthService) OnPriceChanged(models.MPriceChange) {}
func (hs *HealthService) OnConfirmationOpened(models.MConfirmation) {}
func (hs *HealthService) OnConfirmationUpdated(models.MConfirmation) {}
func (hs *HealthService) OnCommandResult(models.MCommandOutcome) {}
func (hs *HealthService) OnAccountUpdated(models.MAccountSnapshot) {}
func (hs *HealthService) OnTradingModeChanged(models.MTradingModeState) {}
func (hs *HealthService) OnError(string, error) {}
