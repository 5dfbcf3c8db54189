// Package handoff delivers finished conflict graphs to the vehicle-assignment
// consumer. The consumer owns colouring and routing; this side only sends data.
package handoff

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/shipcolor/internal/conflict"
	"github.com/UnknownOlympus/shipcolor/internal/models"
	goccy_json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

// Publisher hands a graph over to the downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, graph *conflict.Graph) error
}

// Payload is the message a consumer receives. Vertex i of Matrix is Orders[i].
type Payload struct {
	GraphID   uuid.UUID        `json:"graph_id"`
	BuiltAt   time.Time        `json:"built_at"`
	Orders    []*models.Order  `json:"orders"`
	Matrix    [][]bool         `json:"matrix"`
	Conflicts []conflict.Pair  `json:"conflicts"`
	EdgeCount int              `json:"edge_count"`
	Warnings  []models.Warning `json:"warnings"`
}

// NewPayload copies the parts of a graph the consumer needs.
func NewPayload(graph *conflict.Graph) Payload {
	return Payload{
		GraphID:   graph.ID,
		BuiltAt:   graph.BuiltAt,
		Orders:    graph.Orders,
		Matrix:    graph.Matrix,
		Conflicts: graph.Conflicts,
		EdgeCount: graph.EdgeCount,
		Warnings:  graph.Warnings,
	}
}

var _ Publisher = (*RedisPublisher)(nil)

// RedisPublisher publishes graphs on a Redis Pub/Sub channel.
type RedisPublisher struct {
	log     *slog.Logger
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher connects to the Redis server given by url (redis://...).
func NewRedisPublisher(log *slog.Logger, url, channel string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return NewRedisPublisherWithClient(log, redis.NewClient(opt), channel), nil
}

// NewRedisPublisherWithClient creates a publisher around an existing client.
func NewRedisPublisherWithClient(log *slog.Logger, rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{log: log, rdb: rdb, channel: channel}
}

// Publish sends the graph as JSON. It fails when the message cannot be encoded
// or Redis does not answer within two seconds.
func (rp *RedisPublisher) Publish(ctx context.Context, graph *conflict.Graph) error {
	data, err := goccy_json.Marshal(NewPayload(graph))
	if err != nil {
		return fmt.Errorf("failed to encode graph %s: %w", graph.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	receivers, err := rp.rdb.Publish(ctx, rp.channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish graph %s: %w", graph.ID, err)
	}
	if receivers == 0 {
		rp.log.WarnContext(ctx, "Graph published but nobody is subscribed", "channel", rp.channel, "graph", graph.ID)
	}

	rp.log.InfoContext(ctx, "Graph handed off", "channel", rp.channel, "graph", graph.ID, "receivers", receivers)

	return nil
}

// Close releases the Redis connection pool.
func (rp *RedisPublisher) Close() error {
	return rp.rdb.Close()
}
