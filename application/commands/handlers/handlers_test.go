package handlers

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"chatarchive/application/commands"
	"chatarchive/application/ports"
	"chatarchive/application/services"
	"chatarchive/domain/config"
	"chatarchive/domain/core/entities"
	"chatarchive/domain/core/valueobjects"
	"chatarchive/domain/events"
	domainservices "chatarchive/domain/services"
	"chatarchive/infrastructure/persistence/memory"
	pkgerrors "chatarchive/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, text string) (ports.Summary, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(ports.Summary), args.Error(1)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	v, _ := args.Get(0).([]float32)
	return v, args.Error(1)
}

func (m *MockEmbedder) Dimension() int {
	return m.Called().Int(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	return m.Called(ctx, evts).Error(0)
}

func seed(t *testing.T, repo *memory.EntryRepository, id, title string) {
	t.Helper()
	e, err := entities.NewEntry(id, "Claude", entities.EntryContent{Title: title}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), e))
}

func TestImportEntryHandler(t *testing.T) {
	t.Run("fills missing metadata from the summarizer and embeds", func(t *testing.T) {
		// Arrange
		repo := memory.NewEntryRepository()
		summarizer := new(MockSummarizer)
		embedder := new(MockEmbedder)
		publisher := new(MockEventPublisher)

		summarizer.On("Summarize", mock.Anything, "user: how do goroutines work?").
			Return(ports.Summary{Title: "Goroutines explained", Tags: []string{"Go", "concurrency"}}, nil)
		embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1, 0.2, 0.3}, nil)
		embedder.On("Dimension").Return(3)
		publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.DomainEvent) bool {
			return e.GetEventType() == events.TypeEntryImported
		})).Return(nil)

		h := NewImportEntryHandler(repo, summarizer, embedder, nil, publisher, zap.NewNop())

		// Act
		result, err := h.Handle(context.Background(), commands.ImportEntryCommand{
			SourceLabel: "Claude",
			BodyText:    "user: how do goroutines work?",
		})

		// Assert
		require.NoError(t, err)
		assert.True(t, result.Summarized)
		assert.True(t, result.Embedded)
		assert.NotEmpty(t, result.EntryID)

		stored, err := repo.GetByID(context.Background(), result.EntryID)
		require.NoError(t, err)
		assert.Equal(t, "Goroutines explained", stored.Title())
		assert.Equal(t, []string{"concurrency", "go"}, stored.Tags())
		assert.True(t, stored.HasEmbedding())

		summarizer.AssertExpectations(t)
		embedder.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("degrades when collaborators fail", func(t *testing.T) {
		repo := memory.NewEntryRepository()
		summarizer := new(MockSummarizer)
		embedder := new(MockEmbedder)

		summarizer.On("Summarize", mock.Anything, mock.Anything).Return(ports.Summary{}, errors.New("rate limited"))
		embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

		h := NewImportEntryHandler(repo, summarizer, embedder, nil, nil, zap.NewNop())
		result, err := h.Handle(context.Background(), commands.ImportEntryCommand{
			ID:       "fixed-id",
			BodyText: "\n  First line of the chat\nsecond line",
		})

		require.NoError(t, err)
		assert.Equal(t, "fixed-id", result.EntryID)
		assert.False(t, result.Summarized)
		assert.False(t, result.Embedded)

		stored, err := repo.GetByID(context.Background(), "fixed-id")
		require.NoError(t, err)
		assert.Equal(t, "First line of the chat", stored.Title())
		assert.False(t, stored.HasEmbedding())
	})

	t.Run("discards malformed embeddings", func(t *testing.T) {
		repo := memory.NewEntryRepository()
		embedder := new(MockEmbedder)
		embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{float32(math.NaN()), 1}, nil)
		embedder.On("Dimension").Return(0)

		h := NewImportEntryHandler(repo, nil, embedder, nil, nil, zap.NewNop())
		result, err := h.Handle(context.Background(), commands.ImportEntryCommand{Title: "Kept title"})

		require.NoError(t, err)
		assert.False(t, result.Embedded)
	})

	t.Run("runs detection inline when asked", func(t *testing.T) {
		repo := memory.NewEntryRepository()
		store := memory.NewRelationshipStore()
		cfg := config.DefaultDomainConfig()
		detector := services.NewRelationshipDetector(repo, store,
			domainservices.NewSimilarityScorer(cfg.Scoring, nil), memory.NewDetectionLock(), cfg.Detection, zap.NewNop())

		existing, err := entities.NewEntry("old", "Claude", entities.EntryContent{
			Title: "Golang channels", Summary: "goroutines select statements", Tags: []string{"go"},
		}, time.Now())
		require.NoError(t, err)
		require.NoError(t, repo.Save(context.Background(), existing))

		h := NewImportEntryHandler(repo, nil, nil, detector, nil, zap.NewNop())
		result, err := h.Handle(context.Background(), commands.ImportEntryCommand{
			Title:       "Channels in golang",
			Summary:     "select statements and goroutines",
			Tags:        []string{"go"},
			SourceLabel: "Claude",
			DetectNow:   true,
		})

		require.NoError(t, err)
		require.NotNil(t, result.Detection)
		assert.Len(t, result.Detection.Linked, 1)
	})
}

func TestLinkEntriesHandler(t *testing.T) {
	repo := memory.NewEntryRepository()
	store := memory.NewRelationshipStore()
	seed(t, repo, "a", "first")
	seed(t, repo, "b", "second")

	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	h := NewLinkEntriesHandler(repo, store, publisher, zap.NewNop())

	t.Run("links existing entries even when publishing fails", func(t *testing.T) {
		rel, err := h.Handle(context.Background(), commands.LinkEntriesCommand{SourceID: "a", TargetID: "b"})
		require.NoError(t, err)
		assert.Equal(t, valueobjects.KindManual, rel.Kind)

		rows, err := store.QueryRelated(context.Background(), "b", 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, valueobjects.MaxScore, rows[0].Score)
	})

	t.Run("missing entry is not found", func(t *testing.T) {
		_, err := h.Handle(context.Background(), commands.LinkEntriesCommand{SourceID: "a", TargetID: "ghost"})
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestUnlinkAndDeleteHandlers(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewEntryRepository()
	store := memory.NewRelationshipStore()
	for _, id := range []string{"a", "b", "c"} {
		seed(t, repo, id, "entry "+id)
	}
	link := NewLinkEntriesHandler(repo, store, nil, zap.NewNop())
	_, err := link.Handle(ctx, commands.LinkEntriesCommand{SourceID: "a", TargetID: "b"})
	require.NoError(t, err)
	_, err = link.Handle(ctx, commands.LinkEntriesCommand{SourceID: "a", TargetID: "c"})
	require.NoError(t, err)

	unlink := NewUnlinkEntriesHandler(store, nil, zap.NewNop())
	_, err = unlink.Handle(ctx, commands.UnlinkEntriesCommand{SourceID: "b", TargetID: "a"})
	require.NoError(t, err)

	rows, err := store.QueryRelated(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c", rows[0].TargetID)

	del := NewDeleteEntryHandler(repo, store, nil, zap.NewNop())
	_, err = del.Handle(ctx, commands.DeleteEntryCommand{EntryID: "a"})
	require.NoError(t, err)

	rows, err = store.QueryRelated(ctx, "c", 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
	_, err = repo.GetByID(ctx, "a")
	assert.True(t, pkgerrors.IsNotFound(err))
}
