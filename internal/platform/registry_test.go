package platform

import (
	"context"
	"testing"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	platforms := config.Platforms{
		"facebook":  facebookConfig("https://graph.example.com"),
		"twitter":   twitterConfig("https://api.example.com"),
		"linkedin":  {Enabled: false, BaseURL: "https://api.linkedin.com"},
		"instagram": {Enabled: true, BaseURL: "https://graph.example.com"},
	}
	reg := NewRegistry(platforms, testDeps())

	assert.True(t, reg.Supports(Facebook))
	assert.True(t, reg.Supports(Twitter))
	assert.False(t, reg.Supports(LinkedIn), "disabled platforms are not registered")

	a, err := reg.Adapter(Twitter, Credential{AccessToken: "t"})
	require.NoError(t, err)
	assert.Equal(t, Twitter, a.Platform())

	_, err = reg.Adapter(LinkedIn, Credential{AccessToken: "t"})
	assert.ErrorIs(t, err, ErrUnsupported)

	ig, err := reg.Adapter(Instagram, Credential{AccessToken: "t"})
	require.NoError(t, err)
	res, err := ig.CreatePost(context.Background(), "hi", nil)
	require.NoError(t, err)
	require.NotNil(t, res.Failure)
	assert.Equal(t, KindUnsupported, res.Failure.Kind)
}

func TestRegistry_BadConfigIsLocalFault(t *testing.T) {
	reg := NewRegistry(config.Platforms{}, testDeps())
	reg.Register(Facebook, config.PlatformConfig{Enabled: true, BaseURL: "not a url", APIVersion: "v18.0"}, NewFacebook)

	_, err := reg.Adapter(Facebook, Credential{AccessToken: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "facebook")
}

func TestBuiltinCoversEveryPlatform(t *testing.T) {
	for _, p := range All {
		assert.NotPanics(t, func() { builtin(p) }, p)
	}
}
