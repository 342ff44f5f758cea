package scheduler

import (
	"context"
	"fmt"
	"time"

	"community_ops_bot/internal/domain/broadcast"
	"community_ops_bot/internal/domain/chat"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// tickTimeout bounds one poll tick's datastore and gateway work.
const tickTimeout = 1 * time.Minute

// DeliveryScheduler is the recurring delivery loop: at a fixed interval it
// polls for due broadcasts and attempts delivery through the chat gateway,
// absorbing every per-task error into a terminal Failed status. Failure is
// terminal; the loop never retries a failed broadcast.
type DeliveryScheduler struct {
	cronEngine *cron.Cron
	repo       broadcast.Repository
	gateway    chat.Gateway
	log        *logrus.Logger
	interval   time.Duration
	now        func() time.Time
}

func NewDeliveryScheduler(repo broadcast.Repository, gateway chat.Gateway, log *logrus.Logger, interval time.Duration) *DeliveryScheduler {
	return &DeliveryScheduler{
		cronEngine: cron.New(),
		repo:       repo,
		gateway:    gateway,
		log:        log,
		interval:   interval,
		now:        time.Now,
	}
}

// Start begins polling. The loop runs on the cron engine's goroutine and
// does not block the caller.
func (s *DeliveryScheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cronEngine.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
		defer cancel()
		s.ProcessDueBroadcasts(ctx, s.now())
	})
	if err != nil {
		return fmt.Errorf("failed to register delivery job: %w", err)
	}
	s.cronEngine.Start()
	s.log.WithField("interval", s.interval.String()).Info("Delivery scheduler started")
	return nil
}

// Stop cancels the loop between ticks and waits for a running tick to
// finish. In-flight deliveries are not rolled back; an interrupted tick is
// re-attempted after restart (at-least-once delivery).
func (s *DeliveryScheduler) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.log.Info("Delivery scheduler stopped")
}

// ProcessDueBroadcasts runs one poll tick against the given snapshot of
// now: after it returns, every due pending broadcast reached Sent or
// Failed. Per-task errors are logged and absorbed, never propagated, so
// one bad task cannot stall the loop.
func (s *DeliveryScheduler) ProcessDueBroadcasts(ctx context.Context, now time.Time) {
	due, err := s.repo.ListDue(ctx, now)
	if err != nil {
		s.log.WithError(err).Error("Failed to list due broadcasts")
		return
	}
	for _, b := range due {
		s.deliver(ctx, b)
	}
}

func (s *DeliveryScheduler) deliver(ctx context.Context, b *broadcast.ScheduledBroadcast) {
	logCtx := s.log.WithFields(logrus.Fields{
		"broadcast_id": b.ID,
		"dest_id":      b.DestID,
	})

	if err := s.gateway.ResolveChannel(b.DestID); err != nil {
		logCtx.WithError(err).Error("Destination channel unreachable, marking broadcast failed")
		s.markFailed(ctx, b.ID, logCtx)
		return
	}
	if err := s.gateway.Send(b.DestID, b.Content); err != nil {
		logCtx.WithError(err).Error("Delivery failed, marking broadcast failed")
		s.markFailed(ctx, b.ID, logCtx)
		return
	}
	if err := s.repo.MarkStatus(ctx, b.ID, broadcast.StatusSent); err != nil {
		logCtx.WithError(err).Error("Failed to mark broadcast as sent")
		return
	}
	logCtx.Info("Broadcast delivered")
}

func (s *DeliveryScheduler) markFailed(ctx context.Context, id int64, logCtx *logrus.Entry) {
	if err := s.repo.MarkStatus(ctx, id, broadcast.StatusFailed); err != nil {
		logCtx.WithError(err).Error("Failed to mark broadcast as failed")
	}
}
