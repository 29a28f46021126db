//go:build integration

// Package testinfra starts throwaway Postgres and Redis containers for the
// integration tests.
package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresUser     = "clover"
	PostgresPassword = "clover"
	PostgresDB       = "clover"
)

// Service is a started container and the address tests connect to.
type Service struct {
	container testcontainers.Container
	Host      string
	Port      string
}

// Terminate stops and removes the container.
func (s *Service) Terminate(ctx context.Context) error {
	if s == nil || s.container == nil {
		return nil
	}
	return s.container.Terminate(ctx)
}

// PostgresDSN returns the lib/pq connection string for a Postgres service.
func (s *Service) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		s.Host, s.Port, PostgresUser, PostgresPassword, PostgresDB)
}

// StartPostgres starts postgres:15-alpine and waits until it accepts
// connections.
func StartPostgres(ctx context.Context) (*Service, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     PostgresUser,
			"POSTGRES_PASSWORD": PostgresPassword,
			"POSTGRES_DB":       PostgresDB,
		},
		// the server restarts once after init, so wait for the second line
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := start(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to start PostgreSQL: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	return newService(ctx, container, port.Port())
}

// StartRedis starts redis:7-alpine.
func StartRedis(ctx context.Context) (*Service, error) {
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}

	container, err := start(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to start Redis: %w", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	return newService(ctx, container, port.Port())
}

func start(ctx context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, error) {
	return testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
}

func newService(ctx context.Context, container testcontainers.Container, port string) (*Service, error) {
	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	return &Service{container: container, Host: host, Port: port}, nil
}
