package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/polaris/backend/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.EmbeddingConfig{URL: srv.URL + "/", EmbedPath: "/custom/embed"}, srv.Client())
}

func TestEmbedFallsBackAcrossPaths(t *testing.T) {
	var tried []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		tried = append(tried, r.URL.Path)
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{"hello"}, body["inputs"])
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	})

	vectors, err := client.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.1, 0.2}}, vectors)
	assert.Equal(t, []string{"/custom/embed", "/v1/embeddings", "/embeddings"}, tried)
}

func TestEmbedAcceptsOpenAIShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,2]},{"embedding":[3]}]}`))
	})

	vectors, err := client.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3}}, vectors)
}

func TestEmbedAllPathsFail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSearchResultShapes(t *testing.T) {
	for name, body := range map[string]string{
		"results": `{"results":[{"id":2,"score":0.7}]}`,
		"matches": `{"matches":[{"id":2,"score":0.7}]}`,
		"items":   `{"items":[{"id":2,"score":0.7}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			matches, err := client.Search(context.Background(), []float64{0.1}, 3)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, 0.7, matches[0].Score)
		})
	}
}

func TestUpsertAndHealth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/upsert":
			w.WriteHeader(http.StatusOK)
		case "/health":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	})

	require.NoError(t, client.Upsert(context.Background(), "p1", []float64{0.1}, nil))
	assert.True(t, client.Health(context.Background()).OK)
}

func TestProbeReportsEveryPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/search" {
			_, _ = w.Write([]byte(`{"results":[],"took":1}`))
			return
		}
		http.NotFound(w, r)
	})

	results := client.Probe(context.Background())
	require.Len(t, results, 5+3+4)

	var search ProbeResult
	for _, r := range results {
		if r.Kind == "search" && r.Path == "/v1/search" {
			search = r
		}
	}
	assert.Equal(t, http.StatusOK, search.Status)
	assert.Equal(t, []string{"results", "took"}, search.Keys)
}
