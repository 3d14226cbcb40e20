package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-context-svc/internal/config"
)

// newEmbedServer 返回按文本长度造向量的假端点，并记录每次请求
func newEmbedServer(t *testing.T) (*httptest.Server, *[]embedRequest, *[]string) {
	t.Helper()
	var requests []embedRequest
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)
		paths = append(paths, r.URL.Path)

		resp := embedResponse{Embeddings: make([][]float32, 0, len(req.Texts))}
		for _, text := range req.Texts {
			resp.Embeddings = append(resp.Embeddings, []float32{float32(utf8.RuneCountInString(text))})
		}
		require.NoError(t, json.NewEncoder(w).Encode(&resp))
	}))
	t.Cleanup(server.Close)
	return server, &requests, &paths
}

func TestEmbedBatchesAndKeepsOrder(t *testing.T) {
	server, requests, _ := newEmbedServer(t)
	client := NewClient(&config.EmbeddingConfig{Endpoint: server.URL, BatchSize: 2})

	got, err := client.Embed(context.Background(), []string{"一", "两个", "三个字"})

	require.NoError(t, err)
	require.Len(t, *requests, 2)
	assert.Equal(t, []string{"一", "两个"}, (*requests)[0].Texts)
	assert.Equal(t, []string{"三个字"}, (*requests)[1].Texts)
	require.Len(t, got, 3)
	assert.Equal(t, float32(1), got[0][0])
	assert.Equal(t, float32(2), got[1][0])
	assert.Equal(t, float32(3), got[2][0])
}

func TestEmbedSendsConfiguredModel(t *testing.T) {
	server, requests, _ := newEmbedServer(t)

	t.Run("显式配置", func(t *testing.T) {
		client := NewClient(&config.EmbeddingConfig{Endpoint: server.URL, Model: "custom/embed-v1"})
		_, err := client.Embed(context.Background(), []string{"文本"})
		require.NoError(t, err)
		assert.Equal(t, "custom/embed-v1", (*requests)[len(*requests)-1].Model)
	})

	t.Run("缺省模型", func(t *testing.T) {
		client := NewClient(&config.EmbeddingConfig{Endpoint: server.URL})
		_, err := client.Embed(context.Background(), []string{"文本"})
		require.NoError(t, err)
		assert.Equal(t, "BAAI/bge-m3", (*requests)[len(*requests)-1].Model)
	})
}

func TestEmbedDefaultsToEmbedPath(t *testing.T) {
	server, _, paths := newEmbedServer(t)
	client := NewClient(&config.EmbeddingConfig{Endpoint: server.URL})

	_, err := client.Embed(context.Background(), []string{"文本"})

	require.NoError(t, err)
	require.Len(t, *paths, 1)
	assert.Equal(t, "/embed", (*paths)[0])
}

func TestEmbedEmptyInput(t *testing.T) {
	client := NewClient(&config.EmbeddingConfig{Endpoint: "http://unused.invalid"})

	got, err := client.Embed(context.Background(), nil)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEmbedEmptyEndpoint(t *testing.T) {
	client := NewClient(&config.EmbeddingConfig{})

	_, err := client.Embed(context.Background(), []string{"文本"})

	assert.ErrorContains(t, err, "embedding endpoint is empty")
}

func TestEmbedCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(&embedResponse{Embeddings: [][]float32{{1}}})
	}))
	t.Cleanup(server.Close)
	client := NewClient(&config.EmbeddingConfig{Endpoint: server.URL})

	_, err := client.Embed(context.Background(), []string{"甲", "乙"})

	assert.ErrorContains(t, err, "embedding count mismatch")
}

func TestEmbedServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	client := NewClient(&config.EmbeddingConfig{Endpoint: server.URL})

	_, err := client.Embed(context.Background(), []string{"文本"})

	assert.ErrorContains(t, err, "status=500")
}
