package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AlertsCollection is the price alert collection name.
const AlertsCollection = "price_alerts"

// Client wraps the MongoDB connection for the alert store.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	logger   zerolog.Logger
}

// Connect establishes a MongoDB connection, verifies it with a ping and
// ensures the alert indexes exist.
func Connect(ctx context.Context, uri, dbName string, logger zerolog.Logger) (*Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb uri is not configured")
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	mongoClient, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := mongoClient.Ping(ctx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	c := &Client{
		client:   mongoClient,
		database: mongoClient.Database(dbName),
		logger:   logger.With().Str("component", "mongodb").Logger(),
	}
	c.createIndexes(ctx)

	c.logger.Info().Str("database", dbName).Msg("mongodb connected")
	return c, nil
}

// Ping verifies the connection is still alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Database exposes the underlying database handle.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// createIndexes creates the indexes the alert queries depend on.
func (c *Client) createIndexes(ctx context.Context) {
	alerts := c.database.Collection(AlertsCollection)

	_, err := alerts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "is_triggered", Value: 1}}},
		{Keys: bson.D{{Key: "symbol", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to create alert indexes")
		return
	}
	c.logger.Debug().Msg("alert indexes created")
}
