package headers

import (
	"net/http"
	"testing"

	"github.com/findworkai/aigate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriter_Apply(t *testing.T) {
	r, err := New([]config.HeaderOpConfig{
		{Op: "insert", Key: "x-model-tier", Value: "standard"},
		{Op: "insert", Key: "X-Trace", Value: "gateway"},
		{Op: "replace", Key: "X-Org", Value: "findwork"},
		{Op: "REMOVE", Key: " X-User-ID "},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, r.Len())

	h := http.Header{}
	h.Set("X-Trace", "client")
	h.Set("X-Org", "someone-else")
	h.Add("X-User-Id", "user-1")
	h.Add("X-User-Id", "user-2")

	r.Apply(h)

	assert.Equal(t, "standard", h.Get("X-Model-Tier"))
	assert.Equal(t, "client", h.Get("X-Trace"), "insert keeps existing value")
	assert.Equal(t, []string{"findwork"}, h.Values("X-Org"))
	assert.Empty(t, h.Values("X-User-Id"))
}

func TestRewriter_OrderMatters(t *testing.T) {
	r, err := New([]config.HeaderOpConfig{
		{Op: "remove", Key: "Accept"},
		{Op: "insert", Key: "Accept", Value: "application/json"},
	})
	require.NoError(t, err)

	h := http.Header{"Accept": {"text/html"}}
	r.Apply(h)
	assert.Equal(t, "application/json", h.Get("Accept"))
}

func TestRewriter_Errors(t *testing.T) {
	_, err := New([]config.HeaderOpConfig{{Op: "insert", Key: "  "}})
	assert.ErrorIs(t, err, ErrEmptyHeaderKey)

	_, err = New([]config.HeaderOpConfig{{Op: "upsert", Key: "X-A"}})
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestRewriter_Nil(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Equal(t, 0, r.Len())

	h := http.Header{"X-A": {"1"}}
	assert.NotPanics(t, func() { r.Apply(h) })
	assert.Equal(t, "1", h.Get("X-A"))
}
