package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/findworkai/aigate/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
httpServer:
  forwards:
    - name: ai
      port: 3000
      defaultGroup: backends
upstreams:
  - name: mcp
    url: https://ai.example.com/api/mcp-enhanced
upstreamGroups:
  - name: backends
    upstreams:
      - name: mcp
`

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager()
	require.NoError(t, err)
	return m.WithEnvFile("")
}

func TestManager_LoadFromBytesDefaults(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.LoadFromBytes([]byte(minimalConfig)))

	cfg := m.GetConfig()
	require.NotNil(t, cfg)

	forward := cfg.HTTPServer.Forwards[0]
	assert.Equal(t, constants.DefaultAddress, forward.Address)
	require.NotNil(t, forward.RateLimit)
	assert.Equal(t, constants.DefaultRateLimitInterval, forward.RateLimit.Interval)
	assert.Equal(t, constants.DefaultRateLimitLimit, forward.RateLimit.Limit)
	require.NotNil(t, forward.RateLimit.MaxUniqueTokens)
	assert.Equal(t, constants.DefaultMaxUniqueTokens, *forward.RateLimit.MaxUniqueTokens)
	assert.Equal(t, constants.IdentifierIP, forward.RateLimit.Identifier.Source)
	assert.False(t, forward.RateLimit.FailOpen)

	assert.Equal(t, constants.DefaultAdminPort, cfg.HTTPServer.Admin.Port)
	assert.Equal(t, constants.StoreMemory, cfg.RateLimitStore.Type)
	require.NotNil(t, cfg.RateLimitStore.Cleanup)
	assert.Equal(t, constants.CleanupProbabilistic, cfg.RateLimitStore.Cleanup.Mode)
	require.NotNil(t, cfg.RateLimitStore.Cleanup.Probability)
	assert.InDelta(t, constants.DefaultCleanupProbability, *cfg.RateLimitStore.Cleanup.Probability, 1e-9)
	assert.Equal(t, constants.DefaultCleanupInterval, cfg.RateLimitStore.Cleanup.Interval)

	assert.Equal(t, constants.AuthTypeNone, cfg.Upstreams[0].Auth.Type)
	assert.Equal(t, constants.DefaultBalanceStrategy, cfg.UpstreamGroups[0].Balance.Strategy)
	assert.Equal(t, constants.UserAgent, cfg.UpstreamGroups[0].HTTPClient.Agent)
	assert.Equal(t, constants.DefaultWeight, cfg.UpstreamGroups[0].Upstreams[0].Weight)
}

func TestManager_LoadFromBytesExpandsEnv(t *testing.T) {
	t.Setenv("AIGATE_TEST_TOKEN", "sk-secret")
	t.Setenv("AIGATE_TEST_REDIS", "redis.internal:6380")

	data := minimalConfig + `
rateLimitStore:
  type: redis
  redis:
    addr: ${AIGATE_TEST_REDIS}
`
	data = replaceUpstreams(data, `
  - name: mcp
    url: https://ai.example.com/api/mcp-enhanced
    auth:
      type: bearer
      token: ${AIGATE_TEST_TOKEN}
`)

	m := newTestManager(t)
	require.NoError(t, m.LoadFromBytes([]byte(data)))

	cfg := m.GetConfig()
	assert.Equal(t, "sk-secret", cfg.Upstreams[0].Auth.Token)
	require.NotNil(t, cfg.RateLimitStore.Redis)
	assert.Equal(t, "redis.internal:6380", cfg.RateLimitStore.Redis.Addr)
	assert.Equal(t, constants.DefaultRedisKeyPrefix, cfg.RateLimitStore.Redis.KeyPrefix)
	assert.Equal(t, constants.DefaultRedisDialTimeout, cfg.RateLimitStore.Redis.DialTimeout)
}

func TestManager_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		errMsg string
	}{
		{
			name: "unknown group reference",
			data: `
httpServer:
  forwards:
    - name: ai
      port: 3000
      defaultGroup: missing
upstreams:
  - name: mcp
    url: https://ai.example.com
upstreamGroups:
  - name: backends
    upstreams:
      - name: mcp
`,
			errMsg: "unknown upstream group",
		},
		{
			name: "unknown upstream reference",
			data: `
httpServer:
  forwards:
    - name: ai
      port: 3000
      defaultGroup: backends
upstreams:
  - name: mcp
    url: https://ai.example.com
upstreamGroups:
  - name: backends
    upstreams:
      - name: other
`,
			errMsg: "unknown upstream",
		},
		{
			name: "non http url",
			data: `
httpServer:
  forwards:
    - name: ai
      port: 3000
      defaultGroup: backends
upstreams:
  - name: mcp
    url: ftp://ai.example.com
upstreamGroups:
  - name: backends
    upstreams:
      - name: mcp
`,
			errMsg: "http_url",
		},
		{
			name: "header identifier without header name",
			data: `
httpServer:
  forwards:
    - name: ai
      port: 3000
      defaultGroup: backends
      ratelimit:
        identifier:
          source: header
upstreams:
  - name: mcp
    url: https://ai.example.com
upstreamGroups:
  - name: backends
    upstreams:
      - name: mcp
`,
			errMsg: "identifier_conditional",
		},
		{
			name: "bearer without token",
			data: `
httpServer:
  forwards:
    - name: ai
      port: 3000
      defaultGroup: backends
upstreams:
  - name: mcp
    url: https://ai.example.com
    auth:
      type: bearer
upstreamGroups:
  - name: backends
    upstreams:
      - name: mcp
`,
			errMsg: "auth_conditional",
		},
		{
			name: "unknown cleanup mode",
			data: minimalConfig + `
rateLimitStore:
  cleanup:
    mode: never
`,
			errMsg: "oneof",
		},
		{
			name: "redis store without redis section",
			data: minimalConfig + `
rateLimitStore:
  type: redis
`,
			errMsg: "requires a redis section",
		},
		{
			name: "unknown header op",
			data: `
httpServer:
  forwards:
    - name: ai
      port: 3000
      defaultGroup: backends
upstreams:
  - name: mcp
    url: https://ai.example.com
    headers:
      - op: upsert
        key: X-Gateway
upstreamGroups:
  - name: backends
    upstreams:
      - name: mcp
`,
			errMsg: "oneof",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			err := m.LoadFromBytes([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Nil(t, m.GetConfig())
		})
	}
}

func TestManager_ExplicitZeroKept(t *testing.T) {
	m := newTestManager(t)
	data := strings.Replace(minimalConfig, "      defaultGroup: backends\n", `      defaultGroup: backends
      ratelimit:
        maxUniqueTokens: 0
`, 1) + `
rateLimitStore:
  cleanup:
    probability: 0
`
	require.NoError(t, m.LoadFromBytes([]byte(data)))
	cfg := m.GetConfig()

	require.NotNil(t, cfg.HTTPServer.Forwards[0].RateLimit.MaxUniqueTokens)
	assert.Equal(t, 0, *cfg.HTTPServer.Forwards[0].RateLimit.MaxUniqueTokens, "0 keeps the identifier count unbounded")
	require.NotNil(t, cfg.RateLimitStore.Cleanup.Probability)
	assert.Zero(t, *cfg.RateLimitStore.Cleanup.Probability, "0 turns probabilistic cleanup off")
	assert.Equal(t, constants.DefaultRateLimitLimit, cfg.HTTPServer.Forwards[0].RateLimit.Limit)
}

func TestManager_UpstreamHeaders(t *testing.T) {
	m := newTestManager(t)
	data := strings.Replace(minimalConfig, "    url: https://ai.example.com/api/mcp-enhanced\n", `    url: https://ai.example.com/api/mcp-enhanced
    headers:
      - op: remove
        key: X-User-ID
      - op: insert
        key: X-Gateway
        value: aigate
`, 1)
	require.NoError(t, m.LoadFromBytes([]byte(data)))

	headers := m.GetConfig().Upstreams[0].Headers
	require.Len(t, headers, 2)
	assert.Equal(t, HeaderOpConfig{Op: constants.HeaderOpRemove, Key: "X-User-ID"}, headers[0])
	assert.Equal(t, HeaderOpConfig{Op: constants.HeaderOpInsert, Key: "X-Gateway", Value: "aigate"}, headers[1])
}

func TestManager_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalConfig), 0o600))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("AIGATE_UNUSED=1\n"), 0o600))

	m := newTestManager(t).WithEnvFile(envPath)
	require.NoError(t, m.LoadFromFile(path))
	assert.Equal(t, path, m.GetConfigPath())
	assert.Equal(t, "1", os.Getenv("AIGATE_UNUSED"))
	os.Unsetenv("AIGATE_UNUSED")

	err := newTestManager(t).LoadFromFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestManager_MissingEnvFileIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalConfig), 0o600))

	m := newTestManager(t).WithEnvFile(filepath.Join(dir, "nope.env"))
	require.NoError(t, m.LoadFromFile(path))
}

// replaceUpstreams 替换最小配置中的 upstreams 段
func replaceUpstreams(data, upstreams string) string {
	const original = `
  - name: mcp
    url: https://ai.example.com/api/mcp-enhanced
`
	return strings.Replace(data, original, upstreams, 1)
}
