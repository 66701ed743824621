package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"duckwire/internal/core"
	"duckwire/internal/logger"
)

// ClusterChannel is the Redis channel carrying cluster update events.
const ClusterChannel = "cluster-updates"

// Event is the wire format pushed to websocket clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// PublishClusterUpdate announces a fresh cluster set on the Redis channel.
// Publishing is best-effort; a broker failure is logged and the pipeline
// result stands.
func PublishClusterUpdate(ctx context.Context, rdb *redis.Client, set core.ClusterSet) {
	if rdb == nil {
		return
	}
	data, err := json.Marshal(Event{Type: "clusters:update", Payload: set})
	if err != nil {
		logger.Warn("failed to marshal cluster update", "error", err.Error())
		return
	}
	if err := rdb.Publish(ctx, ClusterChannel, data).Err(); err != nil {
		logger.Warn("failed to publish cluster update", "error", err.Error())
	}
}

// Bridge subscribes to the cluster channel and rebroadcasts every message
// through the hub until the context is cancelled.
func Bridge(ctx context.Context, rdb *redis.Client, hub *Hub) {
	sub := rdb.Subscribe(ctx, ClusterChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			hub.Broadcast([]byte(msg.Payload))
		}
	}
}
