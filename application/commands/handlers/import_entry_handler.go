package handlers

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"chatarchive/application/commands"
	"chatarchive/application/ports"
	"chatarchive/application/services"
	"chatarchive/domain/core/entities"
	"chatarchive/domain/core/valueobjects"
	"chatarchive/domain/events"
	domainservices "chatarchive/domain/services"
	pkgerrors "chatarchive/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxEmbedRunes bounds the text handed to the embedder.
	MaxEmbedRunes = 8000

	fallbackTitleRunes = 80
)

// ImportEntryHandler stores new entries, enriching them with AI metadata
// when the collaborators are configured.
type ImportEntryHandler struct {
	entries    ports.EntryRepository
	summarizer ports.Summarizer
	embedder   ports.Embedder
	detector   *services.RelationshipDetector
	publisher  ports.EventPublisher
	logger     *zap.Logger
}

// NewImportEntryHandler creates a new import handler. summarizer, embedder,
// detector and publisher may be nil.
func NewImportEntryHandler(
	entries ports.EntryRepository,
	summarizer ports.Summarizer,
	embedder ports.Embedder,
	detector *services.RelationshipDetector,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ImportEntryHandler {
	return &ImportEntryHandler{
		entries:    entries,
		summarizer: summarizer,
		embedder:   embedder,
		detector:   detector,
		publisher:  publisher,
		logger:     logger,
	}
}

// Handle executes the import command. Summarizer and embedder failures
// degrade to the caller's metadata and lexical scoring.
func (h *ImportEntryHandler) Handle(ctx context.Context, cmd commands.ImportEntryCommand) (*commands.ImportEntryResult, error) {
	id := valueobjects.NormalizeEntryID(cmd.ID)
	if id == "" {
		id = valueobjects.NewEntryID()
	}
	createdAt := cmd.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	content := entities.EntryContent{
		Title:    strings.TrimSpace(cmd.Title),
		Summary:  cmd.Summary,
		Tags:     cmd.Tags,
		BodyText: cmd.BodyText,
	}
	result := &commands.ImportEntryResult{EntryID: id}

	var (
		summary ports.Summary
		vector  []float32
	)
	g, gctx := errgroup.WithContext(ctx)
	if h.summarizer != nil && cmd.BodyText != "" && (content.Title == "" || len(content.Tags) == 0) {
		g.Go(func() error {
			s, err := h.summarizer.Summarize(gctx, cmd.BodyText)
			if err != nil {
				h.logger.Warn("Summarizer unavailable, keeping caller metadata", zap.String("entryID", id), zap.Error(err))
				return nil
			}
			summary = s
			return nil
		})
	}
	if h.embedder != nil {
		g.Go(func() error {
			v, err := h.embedder.Embed(gctx, embeddingInput(content))
			if err != nil {
				h.logger.Warn("Embedder unavailable, entry will use lexical scoring", zap.String("entryID", id), zap.Error(err))
				return nil
			}
			if err := domainservices.ValidateVector(v, h.embedder.Dimension()); err != nil {
				h.logger.Warn("Discarding embedding", zap.String("entryID", id), zap.Error(err))
				return nil
			}
			vector = v
			return nil
		})
	}
	_ = g.Wait()

	if content.Title == "" && summary.Title != "" {
		content.Title = summary.Title
		result.Summarized = true
	}
	if len(content.Tags) == 0 && len(summary.Tags) > 0 {
		content.Tags = summary.Tags
		result.Summarized = true
	}
	if content.Title == "" {
		content.Title = fallbackTitle(cmd.BodyText)
	}

	entry, err := entities.NewEntry(id, cmd.SourceLabel, content, createdAt)
	if err != nil {
		return nil, err
	}
	if vector != nil {
		entry.SetEmbedding(vector)
		result.Embedded = true
	}

	if err := h.entries.Save(ctx, entry); err != nil {
		return nil, pkgerrors.Unavailable("entry repository", err)
	}

	h.logger.Info("Entry imported",
		zap.String("entryID", id),
		zap.String("source", cmd.SourceLabel),
		zap.Bool("summarized", result.Summarized),
		zap.Bool("embedded", result.Embedded),
	)
	publishBestEffort(ctx, h.publisher, h.logger, events.NewEntryImported(id, cmd.SourceLabel, result.Embedded, time.Now().UTC()))

	if cmd.DetectNow && h.detector != nil {
		detection, err := h.detector.DetectAndLink(ctx, id)
		if err != nil {
			h.logger.Warn("Inline detection failed; entry was stored", zap.String("entryID", id), zap.Error(err))
		} else {
			result.Detection = detection
		}
	}

	return result, nil
}

func embeddingInput(c entities.EntryContent) string {
	text := strings.TrimSpace(c.Title + "\n" + c.Summary + "\n" + c.BodyText)
	if utf8.RuneCountInString(text) <= MaxEmbedRunes {
		return text
	}
	return string([]rune(text)[:MaxEmbedRunes])
}

// fallbackTitle uses the first non-blank line of the transcript.
func fallbackTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > fallbackTitleRunes {
			return string([]rune(line)[:fallbackTitleRunes]) + "…"
		}
		return line
	}
	return "Untitled conversation"
}
