package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chatarchive/application/commands"
	"chatarchive/application/queries"
	"chatarchive/application/services"
	domainservices "chatarchive/domain/services"
	"chatarchive/infrastructure/config"
	"chatarchive/infrastructure/messaging/eventbridge"
	"chatarchive/infrastructure/observability"
	"chatarchive/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:  "test",
		StoreBackend: config.StoreMemory,
		AWSRegion:    "us-west-2",
		LogLevel:     "error",
	}
}

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCache(time.Hour)
	defer cache.Close()

	require.NoError(t, cache.Set(ctx, "live", 1, 60))
	require.NoError(t, cache.Set(ctx, "expired", 2, -1))

	v, ok := cache.Get(ctx, "live")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = cache.Get(ctx, "expired")
	assert.False(t, ok)

	cache.sweep(time.Now().Add(time.Second))
	assert.Equal(t, 1, cache.Len())

	require.NoError(t, cache.Clear(ctx))
	assert.Zero(t, cache.Len())
	cache.Close()
}

func TestProvideBackend_Memory(t *testing.T) {
	backend, cleanup, err := ProvideBackend(context.Background(), testConfig(), nil, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, config.StoreMemory, backend.Name)
	assert.IsType(t, &memory.EntryRepository{}, backend.Entries)
	assert.Nil(t, backend.Ready)
}

func TestProvideBackend_Unknown(t *testing.T) {
	cfg := testConfig()
	cfg.StoreBackend = "cassandra"
	_, _, err := ProvideBackend(context.Background(), cfg, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestOptionalCollaborators(t *testing.T) {
	cfg := testConfig()
	logger := zap.NewNop()

	t.Run("no AI endpoint", func(t *testing.T) {
		api := ProvideOpenAIAPI(cfg)
		assert.Nil(t, api)
		assert.Nil(t, ProvideEmbedder(api, cfg, logger))
		assert.Nil(t, ProvideSummarizer(api, cfg, logger))
	})

	t.Run("AI endpoint configured", func(t *testing.T) {
		withAI := *cfg
		withAI.OpenAIAPIKey = "sk-test"
		withAI.EmbeddingDimension = 256
		api := ProvideOpenAIAPI(&withAI)
		require.NotNil(t, api)
		embedder := ProvideEmbedder(api, &withAI, logger)
		require.NotNil(t, embedder)
		assert.Equal(t, 256, embedder.Dimension())
	})

	t.Run("publisher falls back to the log", func(t *testing.T) {
		assert.IsType(t, &eventbridge.LogPublisher{}, ProvideEventPublisher(nil, cfg, logger))
	})

	t.Run("tracing disabled", func(t *testing.T) {
		tracer, cleanup, err := ProvideTracer(context.Background(), cfg, logger)
		require.NoError(t, err)
		cleanup()
		assert.Nil(t, tracer)
	})

	t.Run("metrics stay local off Lambda", func(t *testing.T) {
		collector := observability.NewCollector("test")
		withMetrics := *cfg
		withMetrics.EnableMetrics = true
		assert.Same(t, collector, ProvideDetectionMetrics(collector, nil, &withMetrics, logger))

		withMetrics.IsLambda = true
		assert.IsType(t, observability.MultiMetrics{}, ProvideDetectionMetrics(collector, nil, &withMetrics, logger))
	})
}

func TestInitializeContainer_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.EnableMetrics = true

	container, cleanup, err := InitializeContainer(ctx, cfg)
	require.NoError(t, err)
	defer cleanup()

	for id, title := range map[string]string{"a": "Golang channels", "b": "Channels in golang"} {
		_, err := container.CommandBus.Dispatch(ctx, commands.ImportEntryCommand{
			ID: id, Title: title, Summary: "goroutines select statements", Tags: []string{"go"}, SourceLabel: "Claude",
		})
		require.NoError(t, err)
	}

	graph, err := container.QueryBus.Ask(ctx, queries.GetGraphDataQuery{})
	require.NoError(t, err)
	assert.Empty(t, graph.(*domainservices.GraphData).Edges)
	assert.Equal(t, 1, container.Cache.Len(), "graph data is cached")

	result, err := container.CommandBus.Dispatch(ctx, commands.DetectRelationshipsCommand{EntryID: "a"})
	require.NoError(t, err)
	assert.Len(t, result.(*services.DetectionResult).Linked, 1)
	assert.Zero(t, container.Cache.Len(), "commands invalidate the cache")

	graph, err = container.QueryBus.Ask(ctx, queries.GetGraphDataQuery{})
	require.NoError(t, err)
	assert.Len(t, graph.(*domainservices.GraphData).Edges, 1)

	rec := httptest.NewRecorder()
	container.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chatarchive_detections_total")
}

func TestProvideTuning_HotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  similarityThreshold: 0.3\n"), 0o600))

	cfg := testConfig()
	cfg.TuningFile = path
	tuning, cleanup, err := ProvideTuning(cfg, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	scorer := ProvideScorer(tuning)
	assert.Equal(t, 0.3, scorer.Threshold())

	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  similarityThreshold: 0.6\n"), 0o600))

	assert.Eventually(t, func() bool { return scorer.Threshold() == 0.6 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0.6, tuning.Current().Scoring.SimilarityThreshold)
}
