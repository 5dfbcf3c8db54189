package handoff_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/UnknownOlympus/shipcolor/internal/conflict"
	"github.com/UnknownOlympus/shipcolor/internal/handoff"
	"github.com/UnknownOlympus/shipcolor/internal/models"
	"github.com/alicebob/miniredis/v2"
	goccy_json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph() *conflict.Graph {
	addr := "12 Nguyễn Huệ"
	a := models.NewOrder("A", &addr, &models.DeliveryTime{Raw: "9:00"})
	a.SetCoordinates(models.Coordinates{Latitude: 10.77, Longitude: 106.70}, models.SourceGeocoded)
	b := models.NewOrder("B", nil, &models.DeliveryTime{Raw: "9:05"})
	b.SetCoordinates(models.Coordinates{Latitude: 10.762622, Longitude: 106.660172}, models.SourceFallback)

	return &conflict.Graph{
		ID:        uuid.New(),
		BuiltAt:   time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC),
		Orders:    []*models.Order{a, b},
		Matrix:    [][]bool{{false, true}, {true, false}},
		Conflicts: []conflict.Pair{{A: 0, B: 1, NameA: "A", NameB: "B"}},
		EdgeCount: 1,
		Warnings:  []models.Warning{{Kind: models.WarningMissingAddress, Index: 1, Order: "B"}},
	}
}

func TestRedisPublisher_Publish(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	server := miniredis.RunT(t)

	publisher, err := handoff.NewRedisPublisher(logger, "redis://"+server.Addr(), "shipcolor:graphs")
	require.NoError(t, err)
	t.Cleanup(func() { _ = publisher.Close() })

	t.Run("subscriber receives the payload", func(t *testing.T) {
		rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })

		sub := rdb.Subscribe(t.Context(), "shipcolor:graphs")
		t.Cleanup(func() { _ = sub.Close() })
		_, err := sub.Receive(t.Context())
		require.NoError(t, err)

		graph := sampleGraph()
		require.NoError(t, publisher.Publish(t.Context(), graph))

		select {
		case msg := <-sub.Channel():
			var got struct {
				GraphID   string `json:"graph_id"`
				EdgeCount int    `json:"edge_count"`
				Matrix    [][]bool
				Orders    []struct {
					Name        string              `json:"name"`
					Coordinates *models.Coordinates `json:"coordinates"`
					Source      string              `json:"coordinate_source"`
				} `json:"orders"`
				Warnings []models.Warning `json:"warnings"`
			}
			require.NoError(t, goccy_json.Unmarshal([]byte(msg.Payload), &got))

			assert.Equal(t, graph.ID.String(), got.GraphID)
			assert.Equal(t, 1, got.EdgeCount)
			assert.Equal(t, graph.Matrix, got.Matrix)
			require.Len(t, got.Orders, 2)
			assert.Equal(t, "A", got.Orders[0].Name)
			assert.Equal(t, models.Coordinates{Latitude: 10.77, Longitude: 106.70}, *got.Orders[0].Coordinates)
			assert.Equal(t, "fallback", got.Orders[1].Source)
			assert.Equal(t, graph.Warnings, got.Warnings)
		case <-time.After(2 * time.Second):
			t.Fatal("no message received")
		}
	})

	t.Run("no subscribers is not an error", func(t *testing.T) {
		require.NoError(t, publisher.Publish(t.Context(), sampleGraph()))
	})
}

func TestRedisPublisher_Errors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	t.Run("invalid url", func(t *testing.T) {
		_, err := handoff.NewRedisPublisher(logger, "not a url", "graphs")
		require.Error(t, err)
	})

	t.Run("server down", func(t *testing.T) {
		server := miniredis.RunT(t)
		publisher, err := handoff.NewRedisPublisher(logger, "redis://"+server.Addr(), "graphs")
		require.NoError(t, err)
		t.Cleanup(func() { _ = publisher.Close() })
		server.Close()

		err = publisher.Publish(t.Context(), sampleGraph())
		require.ErrorContains(t, err, "failed to publish graph")
	})
}

func TestNewPayload(t *testing.T) {
	graph := sampleGraph()
	payload := handoff.NewPayload(graph)

	assert.Equal(t, graph.ID, payload.GraphID)
	assert.Equal(t, graph.Conflicts, payload.Conflicts)
	assert.Equal(t, graph.EdgeCount, payload.EdgeCount)
	assert.Same(t, graph.Orders[0], payload.Orders[0])
}
