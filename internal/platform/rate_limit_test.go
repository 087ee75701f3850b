package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, newLimiter(config.PlatformConfig{}))
	assert.Nil(t, newLimiter(config.PlatformConfig{RateLimit: 10}))

	l := newLimiter(config.PlatformConfig{RateLimit: 300, RateLimitWindow: 15 * time.Minute})
	require.NotNil(t, l)
	assert.Equal(t, 300, l.Burst())
	assert.Equal(t, rate.Every(3*time.Second), l.Limit())
}

func TestRegistrySharesLimiter(t *testing.T) {
	cfg := facebookConfig("https://graph.example.com")
	cfg.RateLimit = 5
	cfg.RateLimitWindow = time.Minute
	reg := NewRegistry(config.Platforms{"facebook": cfg}, testDeps())

	a, err := reg.Adapter(Facebook, Credential{AccountID: "1", AccessToken: "t"})
	require.NoError(t, err)
	b, err := reg.Adapter(Facebook, Credential{AccountID: "2", AccessToken: "u"})
	require.NoError(t, err)

	la := a.(*facebookAdapter).client.limiter
	require.NotNil(t, la)
	assert.Same(t, la, b.(*facebookAdapter).client.limiter)
}

func TestClientLimiterExhausted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := newAPIClient(srv.Client(), srv.URL, nil)
	require.NoError(t, err)
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	_, f := c.do(context.Background(), http.MethodGet, c.endpoint(nil, "a"), nil, "")
	require.Nil(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, f = c.do(ctx, http.MethodGet, c.endpoint(nil, "a"), nil, "")
	require.NotNil(t, f)
	assert.Equal(t, KindRateLimited, f.Kind)
	assert.Equal(t, int32(1), hits.Load())
}
