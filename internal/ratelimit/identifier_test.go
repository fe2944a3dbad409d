package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "direct connection",
			remoteAddr: "192.168.1.1:12345",
			expected:   "192.168.1.1",
		},
		{
			name:       "with X-Forwarded-For",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"},
			expected:   "203.0.113.1",
		},
		{
			name:       "with X-Real-IP",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Real-IP": "203.0.113.2"},
			expected:   "203.0.113.2",
		},
		{
			name:       "invalid X-Forwarded-For falls through",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip", "X-Real-IP": "203.0.113.3"},
			expected:   "203.0.113.3",
		},
		{
			name:       "ipv6 remote address",
			remoteAddr: "[2001:db8::1]:443",
			expected:   "2001:db8::1",
		},
		{
			name:       "remote address without port",
			remoteAddr: "192.0.2.10",
			expected:   "192.0.2.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, ClientIP(req))
		})
	}
}

func TestIdentifierFromConfig(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1"
	req.Header.Set("X-User-ID", "  user-7 ")

	assert.Equal(t, "192.0.2.1", IdentifierFromConfig(nil)(req))
	assert.Equal(t, "192.0.2.1", IdentifierFromConfig(&config.IdentifierConfig{Source: constants.IdentifierIP})(req))
	assert.Equal(t, "user-7", IdentifierFromConfig(&config.IdentifierConfig{Source: constants.IdentifierHeader, Header: "X-User-ID"})(req))
}
