package client

import (
	"context"
	"time"

	"geobus/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const disconnectTimeout = 10 * time.Second

// Client holds the process-wide connections shared by repositories and middleware.
type Client struct {
	Mongo *mongo.Client
	Redis *redis.Client
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", "error", err)
	}

	log.Info("Successfully connected to MongoDB")
	c.Mongo = client
}

// SetRedis connects the optional Redis backend. A failed ping is logged and
// leaves Redis unset so callers fall back to in-memory stores.
func (c *Client) SetRedis(log *logger.Logger, redisURL string, connTimeout time.Duration) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Error("Invalid Redis URL, continuing without Redis", "error", err)
		return
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to ping Redis, continuing without Redis", "error", err)
		_ = rdb.Close()
		return
	}

	log.Info("Successfully connected to Redis", "addr", opts.Addr)
	c.Redis = rdb
}

// Ping checks the primary store. Used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	if c.Mongo == nil {
		return mongo.ErrClientDisconnected
	}
	return c.Mongo.Ping(ctx, nil)
}

func (c *Client) GracefulShutdown(log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()

	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Failed to disconnect from MongoDB", "error", err)
		} else {
			log.Info("Disconnected from MongoDB")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}
}
