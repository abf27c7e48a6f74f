package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig is the cart store connection. Zero durations and pool sizes fall back to
// the driver defaults.
type MongoConfig struct {
	URI                    string        `koanf:"uri"`
	Database               string        `koanf:"database"`
	AppName                string        `koanf:"app_name"`
	MaxPoolSize            uint64        `koanf:"max_pool_size"`
	MinPoolSize            uint64        `koanf:"min_pool_size"`
	MaxConnIdleTime        time.Duration `koanf:"max_conn_idle_time"`
	ConnectTimeout         time.Duration `koanf:"connect_timeout"`
	ServerSelectionTimeout time.Duration `koanf:"server_selection_timeout"`
}

// DefaultMongoConfig sizes the pool for one desk instance: carts see short single-document
// writes, so a small warm pool covers the steady state.
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		URI:                    "mongodb://localhost:27017",
		Database:               "order_desk",
		AppName:                "order-desk",
		MaxPoolSize:            20,
		MinPoolSize:            2,
		MaxConnIdleTime:        5 * time.Minute,
		ConnectTimeout:         10 * time.Second,
		ServerSelectionTimeout: 5 * time.Second,
	}
}

func (c MongoConfig) Validate() error {
	switch {
	case c.URI == "":
		return errors.New("mongo.uri required")
	case c.Database == "":
		return errors.New("mongo.database required")
	case c.MaxPoolSize > 0 && c.MinPoolSize > c.MaxPoolSize:
		return fmt.Errorf("mongo.min_pool_size %d exceeds max_pool_size %d", c.MinPoolSize, c.MaxPoolSize)
	}
	return nil
}

func (c MongoConfig) clientOptions() *options.ClientOptions {
	opts := options.Client().ApplyURI(c.URI)
	if c.AppName != "" {
		opts.SetAppName(c.AppName)
	}
	if c.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(c.MaxPoolSize)
	}
	if c.MinPoolSize > 0 {
		opts.SetMinPoolSize(c.MinPoolSize)
	}
	if c.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(c.MaxConnIdleTime)
	}
	if c.ConnectTimeout > 0 {
		opts.SetConnectTimeout(c.ConnectTimeout)
	}
	if c.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(c.ServerSelectionTimeout)
	}
	return opts
}

// ConnectMongoDB opens the client, pings the primary and returns the cart database.
// The caller owns the client and disconnects it through the returned database.
func ConnectMongoDB(ctx context.Context, cfg MongoConfig) (*mongo.Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := mongo.Connect(ctx, cfg.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client.Database(cfg.Database), nil
}
