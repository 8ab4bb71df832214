package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateServerID 网关实例 ID：优先 SERVER_ID，否则 sds011-gw-{hostname}-{uuid 前 8 位}
func GenerateServerID() string {
	if serverID := os.Getenv("SERVER_ID"); serverID != "" {
		return serverID
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("sds011-gw-%s-%s", hostname, uuid.New().String()[:8])
}
