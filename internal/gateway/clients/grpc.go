package clients

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthClient talks to a gRPC health service.
type HealthClient struct {
	Health healthpb.HealthClient
	conn   *grpc.ClientConn
}

func NewHealthClient(addr string) (*HealthClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("health service connection failed: %v", err)
	}

	return &HealthClient{
		Health: healthpb.NewHealthClient(conn),
		conn:   conn,
	}, nil
}

// Status reports the serving status of service, "" meaning the whole server.
func (c *HealthClient) Status(ctx context.Context, service string) (string, error) {
	resp, err := c.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return "UNKNOWN", err
	}
	return resp.GetStatus().String(), nil
}

func (c *HealthClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
