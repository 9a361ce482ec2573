package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"testing"
	"time"

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

type fixture struct {
	entries  *memory.EntryRepository
	store    *memory.RelationshipStore
	scorer   *domainservices.SimilarityScorer
	detector *RelationshipDetector
}

func newFixture(t *testing.T, opts ...DetectorOption) *fixture {
	t.Helper()
	cfg := config.DefaultDomainConfig()
	f := &fixture{
		entries: memory.NewEntryRepository(),
		store:   memory.NewRelationshipStore(),
		scorer:  domainservices.NewSimilarityScorer(cfg.Scoring, nil),
	}
	f.detector = NewRelationshipDetector(f.entries, f.store, f.scorer, memory.NewDetectionLock(), cfg.Detection, zap.NewNop(), opts...)
	return f
}

func (f *fixture) add(t *testing.T, id, source, title, summary string, tags ...string) *entities.Entry {
	t.Helper()
	e, err := entities.NewEntry(id, source, entities.EntryContent{Title: title, Summary: summary, Tags: tags}, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.entries.Save(context.Background(), e))
	return e
}

// edgeSet lists every stored directed row as "source>target@score/kind".
func (f *fixture) edgeSet(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()
	all, err := f.entries.GetAll(ctx)
	require.NoError(t, err)

	var out []string
	for _, e := range all {
		rows, err := f.store.QueryRelated(ctx, e.ID(), 0)
		require.NoError(t, err)
		for _, r := range rows {
			out = append(out, r.SourceID+">"+r.TargetID+"@"+formatScore(r.Score)+"/"+r.Kind.String())
		}
	}
	sort.Strings(out)
	return out
}

func formatScore(s valueobjects.Score) string {
	return strconv.FormatFloat(s.Float64(), 'f', 4, 64)
}

func TestDetectAndLink_ThresholdPersistence(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ctx := context.Background()
	a := f.add(t, "a", "ChatGPT", "React dashboards", "building dashboards", "react", "frontend")
	f.add(t, "b", "Claude", "Dashboards in React", "building dashboards with react", "react", "backend")
	f.add(t, "c", "Gemini", "Sourdough", "feeding schedule for bread starter", "baking")

	// Act
	result, err := f.detector.DetectAndLink(ctx, a.ID())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, result.Compared)
	require.Len(t, result.Linked, 1)
	assert.Equal(t, "b", result.Linked[0].TargetID)

	all, err := f.entries.GetAll(ctx)
	require.NoError(t, err)
	for _, x := range all {
		for _, y := range all {
			if x.ID() == y.ID() {
				continue
			}
			rows, err := f.store.QueryRelated(ctx, x.ID(), 0)
			require.NoError(t, err)
			linked := false
			for _, r := range rows {
				if r.TargetID == y.ID() {
					linked = true
				}
			}
			if x.ID() == "a" || y.ID() == "a" {
				assert.Equal(t, f.scorer.Qualifies(f.scorer.Score(x, y)), linked, "%s-%s", x.ID(), y.ID())
			}
		}
	}
}

func TestDetectAndLink_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "a", "Claude", "Golang channels", "goroutines select statements", "go", "concurrency")
	f.add(t, "b", "Claude", "Channels in golang", "select statements and goroutines", "go")
	f.add(t, "c", "ChatGPT", "Concurrency patterns", "goroutines worker pools", "concurrency")

	_, err := f.detector.DetectAndLink(ctx, "a")
	require.NoError(t, err)
	once := f.edgeSet(t)

	_, err = f.detector.DetectAndLink(ctx, "a")
	require.NoError(t, err)
	twice := f.edgeSet(t)

	assert.NotEmpty(t, once)
	assert.Equal(t, once, twice)
}

func TestDetectAndLink_KeepsManualLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "a", "Claude", "Golang channels", "goroutines select statements", "go")
	f.add(t, "b", "Claude", "Channels in golang", "select statements and goroutines", "go")

	manual, err := entities.NewManualPair("a", "b", time.Now())
	require.NoError(t, err)
	_, err = f.store.Upsert(ctx, manual)
	require.NoError(t, err)

	result, err := f.detector.DetectAndLink(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, result.KeptManual)
	assert.Empty(t, result.Linked)

	rows, err := f.store.QueryRelated(ctx, "b", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, valueobjects.KindManual, rows[0].Kind)
	assert.Equal(t, valueobjects.MaxScore, rows[0].Score)
}

func TestDetectAndLink_RemovesStaleDetectedLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.add(t, "a", "Claude", "Golang channels", "goroutines select statements", "go")
	f.add(t, "b", "Claude", "Channels in golang", "select statements and goroutines", "go")
	f.add(t, "m", "Gemini", "Bread", "sourdough", "baking")

	_, err := f.detector.DetectAndLink(ctx, "a")
	require.NoError(t, err)
	manual, err := entities.NewManualPair("a", "m", time.Now())
	require.NoError(t, err)
	_, err = f.store.Upsert(ctx, manual)
	require.NoError(t, err)

	require.NoError(t, a.UpdateContent(entities.EntryContent{Title: "Watercolor painting", Summary: "pigments and brushes", Tags: []string{"art"}}))
	require.NoError(t, f.entries.Save(ctx, a))

	result, err := f.detector.DetectAndLink(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)

	rows, err := f.store.QueryRelated(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the manual link survives")
	assert.Equal(t, "m", rows[0].TargetID)
}

// linkingStore records a manual link for the pair just before the stale
// cleanup reaches the store, as a concurrent link request would.
type linkingStore struct {
	*memory.RelationshipStore
	t *testing.T
}

func (s *linkingStore) RemoveDetected(ctx context.Context, a, b string) (bool, error) {
	manual, err := entities.NewManualPair(a, b, time.Now())
	require.NoError(s.t, err)
	_, err = s.RelationshipStore.Upsert(ctx, manual)
	require.NoError(s.t, err)
	return s.RelationshipStore.RemoveDetected(ctx, a, b)
}

func TestDetectAndLink_StaleCleanupKeepsConcurrentManualLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.add(t, "a", "Claude", "Golang channels", "goroutines select statements", "go")
	f.add(t, "b", "Claude", "Channels in golang", "select statements and goroutines", "go")

	_, err := f.detector.DetectAndLink(ctx, "a")
	require.NoError(t, err)
	require.Len(t, f.edgeSet(t), 2)

	f.detector.store = &linkingStore{RelationshipStore: f.store, t: t}
	require.NoError(t, a.UpdateContent(entities.EntryContent{Title: "Watercolor painting", Summary: "pigments and brushes", Tags: []string{"art"}}))
	require.NoError(t, f.entries.Save(ctx, a))

	result, err := f.detector.DetectAndLink(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Removed)

	rows, err := f.store.QueryRelated(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].TargetID)
	assert.Equal(t, valueobjects.KindManual, rows[0].Kind)
	assert.Equal(t, []string{"a>b@1.0000/manual", "b>a@1.0000/manual"}, f.edgeSet(t))
}

func TestDetectAndLink_MissingEntryIsNoOp(t *testing.T) {
	f := newFixture(t)

	result, err := f.detector.DetectAndLink(context.Background(), "ghost")

	require.NoError(t, err)
	assert.True(t, result.NotFound)
	assert.Empty(t, result.Linked)
}

func TestDetectAndLink_SerializesPerEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "a", "Claude", "Golang", "channels")

	lock := memory.NewDetectionLock()
	f.detector.locker = lock
	release, err := lock.Acquire(ctx, "a", time.Minute)
	require.NoError(t, err)
	defer release()

	_, err = f.detector.DetectAndLink(ctx, "a")
	assert.True(t, pkgerrors.IsConflict(err))
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Upsert(ctx context.Context, pair entities.RelationshipPair) (bool, error) {
	args := m.Called(ctx, pair)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) QueryRelated(ctx context.Context, entryID string, limit int) ([]entities.Relationship, error) {
	args := m.Called(ctx, entryID, limit)
	rows, _ := args.Get(0).([]entities.Relationship)
	return rows, args.Error(1)
}

func (m *mockStore) Remove(ctx context.Context, a, b string) error {
	return m.Called(ctx, a, b).Error(0)
}

func (m *mockStore) RemoveDetected(ctx context.Context, a, b string) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) QueryAllForVisualization(ctx context.Context, minScore float64) ([]entities.Relationship, error) {
	args := m.Called(ctx, minScore)
	rows, _ := args.Get(0).([]entities.Relationship)
	return rows, args.Error(1)
}

func (m *mockStore) DeleteByEntry(ctx context.Context, entryID string) error {
	return m.Called(ctx, entryID).Error(0)
}

func TestDetectAndLink_BackendUnavailable(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", "Claude", "Golang channels", "goroutines select statements", "go")
	f.add(t, "b", "Claude", "Channels in golang", "select statements and goroutines", "go")

	store := new(mockStore)
	store.On("QueryRelated", mock.Anything, "a", 0).Return([]entities.Relationship{}, nil)
	store.On("Upsert", mock.Anything, mock.Anything).Return(false, errors.New("connection refused"))
	f.detector.store = store

	_, err := f.detector.DetectAndLink(context.Background(), "a")

	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnavailable(err))
	assert.True(t, pkgerrors.IsRetryable(err))
	store.AssertExpectations(t)
}

func TestDetectAndLink_SkipsPairWithDeletedEntry(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", "Claude", "Golang channels", "goroutines select statements", "go")
	f.add(t, "b", "Claude", "Channels in golang", "select statements and goroutines", "go")

	store := new(mockStore)
	store.On("QueryRelated", mock.Anything, "a", 0).Return([]entities.Relationship{}, nil)
	store.On("Upsert", mock.Anything, mock.Anything).Return(false, pkgerrors.NewNotFoundError("entry"))
	f.detector.store = store

	result, err := f.detector.DetectAndLink(context.Background(), "a")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Compared)
	assert.Empty(t, result.Linked)
	assert.Zero(t, result.KeptManual)
	store.AssertExpectations(t)
}

func TestDetectAndLink_Timeout(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", "Claude", "Golang channels", "goroutines select statements", "go")
	f.add(t, "b", "Claude", "Channels in golang", "select statements and goroutines", "go")

	cfg := config.DefaultDomainConfig().Detection
	cfg.Timeout = 20 * time.Millisecond
	f.detector.UpdateConfig(cfg)

	store := new(mockStore)
	store.On("QueryRelated", mock.Anything, "a", 0).Return([]entities.Relationship{}, nil)
	store.On("Upsert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(false, context.DeadlineExceeded)
	f.detector.store = store

	_, err := f.detector.DetectAndLink(context.Background(), "a")

	require.Error(t, err)
	assert.True(t, pkgerrors.IsTimeout(err))
}

type recordingPublisher struct {
	events []events.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	p.events = append(p.events, evts...)
	return nil
}

func TestDetectAndLink_PublishesEvent(t *testing.T) {
	publisher := &recordingPublisher{}
	f := newFixture(t, WithPublisher(publisher))
	f.add(t, "a", "Claude", "Golang channels", "goroutines select statements", "go")
	f.add(t, "b", "Claude", "Channels in golang", "select statements and goroutines", "go")

	_, err := f.detector.DetectAndLink(context.Background(), "a")
	require.NoError(t, err)

	require.Len(t, publisher.events, 1)
	detected, ok := publisher.events[0].(events.RelationshipsDetected)
	require.True(t, ok)
	assert.Equal(t, "a", detected.EntryID)
	assert.Equal(t, 1, detected.Linked)
}

func TestDetectAll(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", "Claude", "Golang channels", "goroutines select statements", "go")
	f.add(t, "b", "Claude", "Channels in golang", "select statements and goroutines", "go")
	f.add(t, "c", "Gemini", "Bread", "sourdough", "baking")

	results, err := f.detector.DetectAll(context.Background())

	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Len(t, f.edgeSet(t), 2)
}
