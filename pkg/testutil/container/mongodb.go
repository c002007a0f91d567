// Package container starts throwaway databases for integration tests.
package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultMongoImage = "mongo:7"

// MongoDBContainer is a running MongoDB server with a connected client.
type MongoDBContainer struct {
	Container        *mongodb.MongoDBContainer
	Client           *mongo.Client
	ConnectionString string
}

// StartMongoDBContainer starts MongoDB and pings it before returning.
func StartMongoDBContainer(ctx context.Context) (*MongoDBContainer, error) {
	mongoContainer, err := mongodb.Run(ctx, defaultMongoImage)
	if err != nil {
		return nil, fmt.Errorf("failed to start mongodb container: %w", err)
	}

	connectionString, err := mongoContainer.ConnectionString(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(mongoContainer)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	client, err := mongo.Connect(mongooptions.Client().ApplyURI(connectionString))
	if err != nil {
		_ = testcontainers.TerminateContainer(mongoContainer)
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		_ = testcontainers.TerminateContainer(mongoContainer)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBContainer{
		Container:        mongoContainer,
		Client:           client,
		ConnectionString: connectionString,
	}, nil
}

func (m *MongoDBContainer) Database(name string) *mongo.Database {
	return m.Client.Database(name)
}

func (m *MongoDBContainer) Terminate(ctx context.Context) error {
	var errs []error
	if m.Client != nil {
		if err := m.Client.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to disconnect from mongodb: %w", err))
		}
	}
	if m.Container != nil {
		if err := testcontainers.TerminateContainer(m.Container); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate mongodb container: %w", err))
		}
	}
	return errors.Join(errs...)
}
