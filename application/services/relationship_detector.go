package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"chatarchive/application/ports"
	"chatarchive/domain/config"
	"chatarchive/domain/core/entities"
	"chatarchive/domain/core/valueobjects"
	"chatarchive/domain/events"
	domainservices "chatarchive/domain/services"
	pkgerrors "chatarchive/pkg/errors"

	"go.uber.org/zap"
)

// DetectionResult summarizes one detection pass.
type DetectionResult struct {
	EntryID    string                  `json:"entryId"`
	NotFound   bool                    `json:"notFound"`
	Compared   int                     `json:"compared"`
	Linked     []entities.Relationship `json:"linked"`
	KeptManual int                     `json:"keptManual"`
	Removed    int                     `json:"removed"`
	Duration   time.Duration           `json:"durationNs"`
}

// RelationshipDetector scores one entry against the rest of the archive and
// persists a symmetric pair for every other entry above the threshold.
type RelationshipDetector struct {
	entries   ports.EntryRepository
	store     ports.RelationshipStore
	scorer    *domainservices.SimilarityScorer
	locker    ports.DetectionLocker
	publisher ports.EventPublisher
	metrics   ports.DetectionMetrics
	tracer    ports.Tracer
	logger    *zap.Logger
	cfg       atomic.Pointer[config.DetectionConfig]
	now       func() time.Time
}

// DetectorOption customizes a RelationshipDetector.
type DetectorOption func(*RelationshipDetector)

// WithPublisher publishes a relationships.detected event after each pass.
func WithPublisher(p ports.EventPublisher) DetectorOption {
	return func(d *RelationshipDetector) { d.publisher = p }
}

// WithMetrics records each pass.
func WithMetrics(m ports.DetectionMetrics) DetectorOption {
	return func(d *RelationshipDetector) { d.metrics = m }
}

// WithTracer wraps each pass in a span.
func WithTracer(t ports.Tracer) DetectorOption {
	return func(d *RelationshipDetector) { d.tracer = t }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) DetectorOption {
	return func(d *RelationshipDetector) { d.now = now }
}

// NewRelationshipDetector creates a new detector
func NewRelationshipDetector(
	entries ports.EntryRepository,
	store ports.RelationshipStore,
	scorer *domainservices.SimilarityScorer,
	locker ports.DetectionLocker,
	cfg config.DetectionConfig,
	logger *zap.Logger,
	opts ...DetectorOption,
) *RelationshipDetector {
	d := &RelationshipDetector{
		entries: entries,
		store:   store,
		scorer:  scorer,
		locker:  locker,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	d.cfg.Store(&cfg)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// UpdateConfig swaps timeout and lock settings for subsequent passes.
func (d *RelationshipDetector) UpdateConfig(cfg config.DetectionConfig) {
	d.cfg.Store(&cfg)
}

// DetectAndLink runs one detection pass for entryID.
//
// A missing entry yields an empty result and no error. A pass already running
// for the same entry yields a CONFLICT error. Backend failures yield
// UNAVAILABLE, and exceeding the configured timeout yields TIMEOUT; in every
// failure case each pair was either fully written or not attempted.
func (d *RelationshipDetector) DetectAndLink(ctx context.Context, entryID string) (*DetectionResult, error) {
	cfg := *d.cfg.Load()

	release, err := d.locker.Acquire(ctx, entryID, cfg.LockDuration)
	if err != nil {
		if pkgerrors.IsConflict(err) {
			d.logger.Info("Detection already in flight", zap.String("entryID", entryID))
			return nil, err
		}
		return nil, pkgerrors.Unavailable("detection lock", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	var result *DetectionResult
	run := func(ctx context.Context) error {
		var runErr error
		result, runErr = d.detect(ctx, entryID, cfg)
		return runErr
	}
	if d.tracer != nil {
		err = d.tracer.TraceFunction(ctx, "RelationshipDetector.DetectAndLink", run)
	} else {
		err = run(ctx)
	}
	took := time.Since(start)

	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = pkgerrors.NewTimeoutError("relationship detection").WithCause(err)
	}

	if d.metrics != nil {
		compared, linked, removed := 0, 0, 0
		if result != nil {
			compared, linked, removed = result.Compared, len(result.Linked), result.Removed
		}
		d.metrics.RecordDetection(ctx, compared, linked, removed, took, err)
	}

	if err != nil {
		d.logger.Warn("Relationship detection failed",
			zap.String("entryID", entryID),
			zap.Duration("duration", took),
			zap.Error(err),
		)
		return nil, err
	}

	result.Duration = took
	d.logger.Info("Relationship detection completed",
		zap.String("entryID", entryID),
		zap.Int("compared", result.Compared),
		zap.Int("linked", len(result.Linked)),
		zap.Int("keptManual", result.KeptManual),
		zap.Int("removed", result.Removed),
		zap.Duration("duration", took),
	)

	if !result.NotFound {
		d.publish(ctx, events.NewRelationshipsDetected(entryID, result.Compared, len(result.Linked), result.Removed, took, d.now()))
	}
	return result, nil
}

func (d *RelationshipDetector) detect(ctx context.Context, entryID string, cfg config.DetectionConfig) (*DetectionResult, error) {
	result := &DetectionResult{EntryID: entryID, Linked: []entities.Relationship{}}

	target, err := d.entries.GetByID(ctx, entryID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			d.logger.Debug("Detection target vanished", zap.String("entryID", entryID))
			result.NotFound = true
			return result, nil
		}
		return nil, pkgerrors.Unavailable("entry repository", err)
	}

	others, err := d.entries.GetAllExcept(ctx, entryID)
	if err != nil {
		return nil, pkgerrors.Unavailable("entry repository", err)
	}

	current, err := d.store.QueryRelated(ctx, entryID, 0)
	if err != nil {
		return nil, pkgerrors.Unavailable("relationship store", err)
	}
	existing := make(map[string]entities.Relationship, len(current))
	for _, row := range current {
		existing[row.TargetID] = row
	}

	profile := d.scorer.Prepare(target)
	for _, other := range others {
		if err := ctx.Err(); err != nil {
			return nil, pkgerrors.Unavailable("relationship detection", err)
		}
		result.Compared++

		score := d.scorer.ScoreProfiles(profile, d.scorer.Prepare(other))
		if !d.scorer.Qualifies(score) {
			prev, had := existing[other.ID()]
			if cfg.RemoveStale && had && prev.Kind == valueobjects.KindAIDetected {
				removed, err := d.store.RemoveDetected(ctx, entryID, other.ID())
				if err != nil {
					return nil, pkgerrors.Unavailable("relationship store", err)
				}
				if removed {
					result.Removed++
				}
			}
			continue
		}

		pair, err := entities.NewDetectedPair(entryID, other.ID(), score, d.now())
		if err != nil {
			return nil, err
		}
		written, err := d.store.Upsert(ctx, pair)
		if pkgerrors.IsNotFound(err) {
			d.logger.Debug("Skipping pair with a deleted entry",
				zap.String("entryID", entryID),
				zap.String("otherID", other.ID()),
			)
			continue
		}
		if err != nil {
			return nil, pkgerrors.Unavailable("relationship store", err)
		}
		if !written {
			result.KeptManual++
			continue
		}
		result.Linked = append(result.Linked, pair.Forward())
	}

	return result, nil
}

// DetectAll runs detection for every entry in turn. Entries that vanish
// mid-run are skipped; the first hard failure stops the run.
func (d *RelationshipDetector) DetectAll(ctx context.Context) ([]*DetectionResult, error) {
	all, err := d.entries.GetAll(ctx)
	if err != nil {
		return nil, pkgerrors.Unavailable("entry repository", err)
	}
	results := make([]*DetectionResult, 0, len(all))
	for _, e := range all {
		res, err := d.DetectAndLink(ctx, e.ID())
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (d *RelationshipDetector) publish(ctx context.Context, event events.DomainEvent) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, event); err != nil {
		d.logger.Warn("Failed to publish detection event",
			zap.String("entryID", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}
