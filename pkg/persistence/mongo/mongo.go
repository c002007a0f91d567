package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
	"go.uber.org/zap"
)

// Mongo gives stores access to collections of the configured database.
type Mongo interface {
	Collection(name string) *mongo.Collection
	// QueryTimeout bounds a single store operation.
	QueryTimeout() time.Duration
}

type client struct {
	client   *mongo.Client
	database *mongo.Database
	conf     Config
	log      *zap.Logger
}

func newMongo(log *zap.Logger, conf Config, appName string) (*client, error) {
	if err := validateConfig(conf); err != nil {
		return nil, err
	}

	opts := options.Client().
		ApplyURI(buildURI(conf)).
		SetAppName(appName).
		SetMaxPoolSize(conf.MaxPoolSize).
		SetMinPoolSize(conf.MinPoolSize).
		SetMaxConnIdleTime(conf.MaxConnIdleTime).
		SetServerSelectionTimeout(conf.ServerSelectTimeout).
		SetMonitor(otelmongo.NewMonitor())

	// Connect does no I/O; reachability is checked by the ping in connect.
	c, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	return &client{
		client:   c,
		database: c.Database(conf.Database),
		conf:     conf,
		log:      log,
	}, nil
}

func (m *client) connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.conf.ConnectTimeout)
	defer cancel()

	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping mongo: %w", err)
	}

	m.log.Info("connected to mongo",
		zap.String("database", m.conf.Database),
		zap.Uint64("max-pool-size", m.conf.MaxPoolSize),
		zap.Duration("query-timeout", m.conf.QueryTimeout),
	)
	return nil
}

func (m *client) disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.conf.ConnectTimeout)
	defer cancel()

	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongo: %w", err)
	}
	m.log.Info("disconnected from mongo")
	return nil
}

func (m *client) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

func (m *client) QueryTimeout() time.Duration {
	return m.conf.QueryTimeout
}

func buildURI(conf Config) string {
	if conf.ConnectionString != "" {
		return conf.ConnectionString
	}

	u := url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Path:   "/" + conf.Database,
	}
	if conf.Username != "" {
		u.User = url.UserPassword(conf.Username, conf.Password)
	}

	var params []string
	if conf.ReplicaSet != "" {
		params = append(params, "replicaSet="+url.QueryEscape(conf.ReplicaSet))
	}
	if conf.DirectConnection {
		params = append(params, "directConnection=true")
	}
	u.RawQuery = strings.Join(params, "&")

	return u.String()
}
