package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"community_ops_bot/internal/domain/ai"
	"community_ops_bot/internal/domain/broadcast"

	"github.com/sirupsen/logrus"
)

// Validation errors surfaced straight to the caller; no state is mutated.
var ErrPastSendTime = fmt.Errorf("scheduled send time must be in the future")
var ErrSeriesCount = fmt.Errorf("series count must be between 2 and 10")

// PartialSeriesError reports an AI series that produced fewer posts than
// requested. The produced prefix is already scheduled when it is returned.
type PartialSeriesError struct {
	Requested int
	Scheduled int
}

func (e *PartialSeriesError) Error() string {
	return fmt.Sprintf("series generated %d of %d posts", e.Scheduled, e.Requested)
}

const (
	seriesMinCount = 2
	seriesMaxCount = 10

	// seriesDelimiter is the exact block separator the prompt instructs
	// the model to emit between posts.
	seriesDelimiter = "|||---|||"
)

const seriesPromptTemplate = "**TAREA:** Eres un creador de contenido experto. Genera una serie de %d publicaciones cortas y atractivas sobre el tema \"%s\".\n" +
	"**REGLAS CRÍTICAS DE FORMATO:**\n" +
	"1. Cada publicación debe ser un texto completo y coherente por sí mismo.\n" +
	"2. Separa CADA publicación con el delimitador exacto y único: `" + seriesDelimiter + "`\n" +
	"3. No añadas números de lista (como 1., 2.) ni ningún otro texto introductorio o de cierre. Solo las publicaciones y el delimitador."

// SeriesResult reports what an AI series request actually scheduled.
type SeriesResult struct {
	Requested    int
	ScheduledIDs []int64
}

// BroadcastService owns the scheduling command surface: single broadcasts,
// AI-generated broadcasts and daily series, plus the pending-task views.
type BroadcastService struct {
	repo      broadcast.Repository
	generator ai.Generator
	log       *logrus.Logger
	now       func() time.Time
}

func NewBroadcastService(repo broadcast.Repository, generator ai.Generator, log *logrus.Logger) *BroadcastService {
	return &BroadcastService{
		repo:      repo,
		generator: generator,
		log:       log,
		now:       time.Now,
	}
}

// Schedule validates and persists a single broadcast, returning its ID.
func (s *BroadcastService) Schedule(ctx context.Context, originID, destID, authorID int64, content string, sendAt time.Time) (int64, error) {
	if !sendAt.After(s.now()) {
		return 0, ErrPastSendTime
	}
	b := &broadcast.ScheduledBroadcast{
		OriginID: originID,
		DestID:   destID,
		AuthorID: authorID,
		Content:  content,
		SendAt:   sendAt,
		Status:   broadcast.StatusPending,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return 0, fmt.Errorf("failed to create scheduled broadcast: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"broadcast_id": b.ID,
		"dest_id":      destID,
		"send_at":      sendAt.Format(time.RFC3339),
	}).Info("Broadcast scheduled")
	return b.ID, nil
}

// ScheduleGenerated generates one content block from the prompt and
// schedules it like a regular broadcast.
func (s *BroadcastService) ScheduleGenerated(ctx context.Context, originID, destID, authorID int64, prompt string, sendAt time.Time) (int64, error) {
	if !sendAt.After(s.now()) {
		return 0, ErrPastSendTime
	}
	content, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return 0, fmt.Errorf("failed to generate broadcast content: %w", err)
	}
	return s.Schedule(ctx, originID, destID, authorID, strings.TrimSpace(content), sendAt)
}

// ScheduleSeries generates count posts about a topic and schedules them
// one day apart starting at start. Each post is an independent Create:
// there is no atomicity across the batch, so a mid-series failure leaves
// the already-created prefix scheduled. If the model returns fewer blocks
// than requested, the produced prefix is still scheduled and the mismatch
// is reported as a *PartialSeriesError.
func (s *BroadcastService) ScheduleSeries(ctx context.Context, originID, destID, authorID int64, count int, start time.Time, topic string) (*SeriesResult, error) {
	if count < seriesMinCount || count > seriesMaxCount {
		return nil, ErrSeriesCount
	}
	if !start.After(s.now()) {
		return nil, ErrPastSendTime
	}

	raw, err := s.generator.Generate(ctx, fmt.Sprintf(seriesPromptTemplate, count, topic))
	if err != nil {
		return nil, fmt.Errorf("failed to generate series content: %w", err)
	}
	blocks := splitSeriesBlocks(raw)
	if len(blocks) > count {
		blocks = blocks[:count]
	}

	result := &SeriesResult{Requested: count}
	for i, block := range blocks {
		b := &broadcast.ScheduledBroadcast{
			OriginID: originID,
			DestID:   destID,
			AuthorID: authorID,
			Content:  block,
			SendAt:   start.AddDate(0, 0, i),
			Status:   broadcast.StatusPending,
		}
		if err := s.repo.Create(ctx, b); err != nil {
			s.log.WithError(err).WithField("post_index", i+1).Error("Series creation stopped mid-batch")
			return result, fmt.Errorf("failed to schedule series post %d of %d: %w", i+1, count, err)
		}
		result.ScheduledIDs = append(result.ScheduledIDs, b.ID)
	}

	if len(result.ScheduledIDs) < count {
		s.log.WithFields(logrus.Fields{
			"requested": count,
			"scheduled": len(result.ScheduledIDs),
		}).Warn("AI returned fewer series posts than requested")
		return result, &PartialSeriesError{Requested: count, Scheduled: len(result.ScheduledIDs)}
	}
	s.log.WithField("scheduled", count).Info("Series scheduled")
	return result, nil
}

// ListPending returns the pending broadcasts created from the given chat.
func (s *BroadcastService) ListPending(ctx context.Context, originID int64) ([]*broadcast.ScheduledBroadcast, error) {
	pending, err := s.repo.ListPending(ctx, originID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending broadcasts: %w", err)
	}
	return pending, nil
}

// DeletePending removes a still-pending broadcast by ID.
func (s *BroadcastService) DeletePending(ctx context.Context, id, originID int64) error {
	if err := s.repo.DeletePending(ctx, id, originID); err != nil {
		return err
	}
	s.log.WithField("broadcast_id", id).Info("Pending broadcast deleted")
	return nil
}

func splitSeriesBlocks(raw string) []string {
	var blocks []string
	for _, block := range strings.Split(raw, seriesDelimiter) {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			blocks = append(blocks, trimmed)
		}
	}
	return blocks
}
