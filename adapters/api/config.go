package api

import (
	"strings"
	"time"
)

// RemoteConfig holds connection settings for a RemoteReader
type RemoteConfig struct {
	BaseURL string            // e.g. http://localhost:8080
	Headers map[string]string // sent on every request
	Token   string            // bearer token, optional
	Timeout time.Duration     // per request
}

// DefaultRemoteConfig returns settings for an unauthenticated server
func DefaultRemoteConfig(baseURL string) RemoteConfig {
	return RemoteConfig{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

func (c RemoteConfig) url(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}
