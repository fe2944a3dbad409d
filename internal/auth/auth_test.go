package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "http://upstream.local/v1/chat", nil)
	req.Header.Set(constants.HeaderAuthorization, "Bearer client-token")
	return req
}

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		cfg          *config.AuthConfig
		expectedType string
		expectedErr  error
	}{
		{name: "nil config", cfg: nil, expectedType: constants.AuthTypeNone},
		{name: "empty type", cfg: &config.AuthConfig{}, expectedType: constants.AuthTypeNone},
		{name: "bearer", cfg: &config.AuthConfig{Type: "bearer", Token: "sk-1"}, expectedType: constants.AuthTypeBearer},
		{name: "bearer without token", cfg: &config.AuthConfig{Type: "bearer", Token: "  "}, expectedErr: ErrEmptyToken},
		{name: "basic", cfg: &config.AuthConfig{Type: "basic", Username: "u", Password: "p"}, expectedType: constants.AuthTypeBasic},
		{name: "basic without password", cfg: &config.AuthConfig{Type: "basic", Username: "u"}, expectedErr: ErrEmptyPassword},
		{name: "basic without username", cfg: &config.AuthConfig{Type: "basic", Password: "p"}, expectedErr: ErrEmptyUsername},
		{name: "unknown", cfg: &config.AuthConfig{Type: "digest"}, expectedErr: ErrInvalidAuthType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authenticator, err := New(tt.cfg)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, authenticator)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedType, authenticator.Type())
		})
	}
}

func TestBearerAuthenticator_Apply(t *testing.T) {
	authenticator, err := NewBearerAuthenticator(" sk-upstream ")
	require.NoError(t, err)

	req := newRequest(t)
	require.NoError(t, authenticator.Apply(req))
	assert.Equal(t, "Bearer sk-upstream", req.Header.Get(constants.HeaderAuthorization))

	assert.ErrorIs(t, authenticator.Apply(nil), ErrNilRequest)
}

func TestBasicAuthenticator_Apply(t *testing.T) {
	authenticator, err := NewBasicAuthenticator("admin", "s3cret ")
	require.NoError(t, err)

	req := newRequest(t)
	require.NoError(t, authenticator.Apply(req))

	username, password, ok := req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "admin", username)
	assert.Equal(t, "s3cret ", password)
}

func TestNoneAuthenticator_Apply(t *testing.T) {
	req := newRequest(t)
	require.NoError(t, NewNoneAuthenticator().Apply(req))
	assert.Empty(t, req.Header.Get(constants.HeaderAuthorization))
}

func TestCreateFromConfig(t *testing.T) {
	_, err := CreateFromConfig(nil)
	assert.Error(t, err)

	_, err = CreateFromConfig(&config.UpstreamConfig{Name: "mcp", Auth: &config.AuthConfig{Type: "bearer"}})
	assert.ErrorIs(t, err, ErrEmptyToken)
	assert.Contains(t, err.Error(), "mcp")

	authenticator, err := CreateFromConfig(&config.UpstreamConfig{Name: "mcp"})
	require.NoError(t, err)
	assert.Equal(t, constants.AuthTypeNone, authenticator.Type())
}
