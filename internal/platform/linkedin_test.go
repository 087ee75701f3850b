package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLinkedIn struct {
	mu       sync.Mutex
	server   *httptest.Server
	assets   int
	uploaded []string
	post     map[string]any
}

func newFakeLinkedIn(t *testing.T) *fakeLinkedIn {
	f := &fakeLinkedIn{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/assets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "registerUpload", r.URL.Query().Get("action"))
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))

		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "urn:li:person:abc", body["registerUploadRequest"]["owner"])

		f.mu.Lock()
		f.assets++
		n := f.assets
		f.mu.Unlock()

		json.NewEncoder(w).Encode(map[string]any{"value": map[string]any{
			"asset": "urn:li:digitalmediaAsset:A" + string(rune('0'+n)),
			"uploadMechanism": map[string]any{
				"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest": map[string]any{
					"uploadUrl": f.server.URL + "/upload/A" + string(rune('0'+n)),
				},
			},
		}})
	})
	mux.HandleFunc("/upload/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "Bearer member-token", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.uploaded = append(f.uploaded, string(data))
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/v2/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.post))
		w.Header().Set("X-RestLi-Id", "urn:li:share:99")
		w.WriteHeader(http.StatusCreated)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeLinkedIn) adapter(t *testing.T) Adapter {
	a, err := NewLinkedIn(linkedinConfig(f.server.URL), Credential{AccountID: "abc", AccessToken: "member-token"}, testDeps())
	require.NoError(t, err)
	return a
}

func shareContent(post map[string]any) map[string]any {
	return post["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
}

func TestLinkedIn_CreatePost(t *testing.T) {
	ctx := context.Background()

	t.Run("text only", func(t *testing.T) {
		f := newFakeLinkedIn(t)
		res, err := f.adapter(t).CreatePost(ctx, "hello network", nil)
		require.NoError(t, err)
		assert.Equal(t, "urn:li:share:99", res.PlatformPostID)

		assert.Equal(t, "urn:li:person:abc", f.post["author"])
		assert.Equal(t, "PUBLISHED", f.post["lifecycleState"])
		sc := shareContent(f.post)
		assert.Equal(t, "NONE", sc["shareMediaCategory"])
		assert.Equal(t, map[string]any{"text": "hello network"}, sc["shareCommentary"])
		assert.Equal(t, map[string]any{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"}, f.post["visibility"])
	})

	t.Run("two of three images fail", func(t *testing.T) {
		f := newFakeLinkedIn(t)
		res, err := f.adapter(t).CreatePost(ctx, "gallery", images(3, 0, 2))
		require.NoError(t, err)
		require.True(t, res.OK())
		assert.Len(t, res.SkippedMedia, 2)
		assert.Equal(t, []string{"bytes-of-https://cdn.example.com/ok-1.png"}, f.uploaded)

		sc := shareContent(f.post)
		assert.Equal(t, "IMAGE", sc["shareMediaCategory"])
		media := sc["media"].([]any)
		require.Len(t, media, 1)
		assert.Equal(t, "urn:li:digitalmediaAsset:A1", media[0].(map[string]any)["media"])
	})

	t.Run("all images fail", func(t *testing.T) {
		f := newFakeLinkedIn(t)
		res, err := f.adapter(t).CreatePost(ctx, "gallery", images(3, 0, 1, 2))
		require.NoError(t, err)
		require.NotNil(t, res.Failure)
		assert.Equal(t, KindMediaUploadFailed, res.Failure.Kind)
		assert.Zero(t, f.assets, "failed fetches never register assets")
		assert.Nil(t, f.post)
	})
}

func TestLinkedIn_DeletePost(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		status  int
		deleted bool
		kind    ErrorKind
	}{
		{"no content confirms", http.StatusNoContent, true, ""},
		{"ok without confirmation", http.StatusOK, false, KindRejected},
		{"already gone", http.StatusNotFound, false, KindNotFound},
		{"token revoked", http.StatusUnauthorized, false, KindAuthExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/v2/ugcPosts/urn:li:share:99", r.URL.Path)
				assert.Equal(t, "/v2/ugcPosts/urn%3Ali%3Ashare%3A99", r.URL.EscapedPath())
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			a, err := NewLinkedIn(linkedinConfig(server.URL), Credential{AccountID: "abc", AccessToken: "member-token"}, testDeps())
			require.NoError(t, err)

			res, err := a.DeletePost(ctx, "urn:li:share:99")
			require.NoError(t, err)
			assert.Equal(t, tt.deleted, res.Deleted)
			if tt.kind != "" {
				require.NotNil(t, res.Failure)
				assert.Equal(t, tt.kind, res.Failure.Kind)
			}
		})
	}
}

func TestLinkedIn_GetAnalytics(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() == "/v2/socialActions/urn%3Ali%3Ashare%3A99" {
			w.Write([]byte(`{"likesSummary":{"totalLikes":5},"commentsSummary":{"aggregatedTotalComments":1}}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	a, err := NewLinkedIn(linkedinConfig(server.URL), Credential{AccountID: "urn:li:organization:7", AccessToken: "member-token"}, testDeps())
	require.NoError(t, err)

	res, err := a.GetAnalytics(ctx, "urn:li:share:99")
	require.NoError(t, err)
	require.NotNil(t, res.Metrics)
	assert.Equal(t, int64(5), res.Metrics.Likes)
	assert.Equal(t, int64(1), res.Metrics.Comments)

	res, err = a.GetAnalytics(ctx, "urn:li:share:100")
	require.NoError(t, err)
	assert.Nil(t, res.Metrics)
}
