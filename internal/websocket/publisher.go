package websocket

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publish pushes a session event through Redis so every ws-server instance
// can relay it to its connected watchers.
func Publish(sessionID string, payload interface{}) error {
	if sessionID == "" {
		return fmt.Errorf("websocket publish: sessionID required")
	}
	if redisClient == nil {
		return fmt.Errorf("websocket publish: redis client not initialised")
	}

	eventJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("websocket publish: marshal payload: %w", err)
	}

	if err := redisClient.Publish(context.Background(), channelPrefix+sessionID, string(eventJSON)).Err(); err != nil {
		return fmt.Errorf("websocket publish: redis publish: %w", err)
	}
	return nil
}
