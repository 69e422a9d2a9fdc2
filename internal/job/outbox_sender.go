package job

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/A-Yamak/transportation-mvp-sub000/internal/config"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/infrastructure/mq"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/model"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/repository"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/logger"
)

// OutboxSender drains pending ERP notifications to Kafka. Delivery is
// at-least-once: a message is marked SENT only after the broker acks,
// and retried until the configured cap, after which it is parked FAILED
// for manual replay.
type OutboxSender struct {
	db         *gorm.DB
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
	log        *logrus.Entry
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewOutboxSender(db *gorm.DB, cfg *config.Config) *OutboxSender {
	return &OutboxSender{
		db:         db,
		outboxRepo: repository.NewOutboxRepository(db),
		cfg:        cfg,
		log:        logger.WithComponent("outbox_sender"),
		stopCh:     make(chan struct{}),
		interval:   100 * time.Millisecond,
		batchSize:  100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info("outbox sender started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("outbox sender stopping on context cancel")
			return
		case <-s.stopCh:
			s.log.Info("outbox sender stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.WithError(err).Error("failed to fetch pending messages")
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := mq.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)

	if err == nil {
		if updateErr := s.outboxRepo.UpdateStatus(ctx, msg.ID, model.OutboxStatusSent); updateErr != nil {
			s.log.WithError(updateErr).WithField("message_id", msg.ID).Error("failed to mark message sent")
		} else {
			s.log.WithFields(logrus.Fields{
				"message_id": msg.ID,
				"topic":      msg.Topic,
				"key":        msg.MessageKey,
			}).Info("ERP notification delivered")
		}
		return
	}

	s.log.WithError(err).WithField("message_id", msg.ID).Warn("ERP notification delivery failed")

	if msg.RetryCount+1 >= s.cfg.Business.OutboxMaxRetry {
		if markErr := s.outboxRepo.MarkAsFailed(ctx, msg.ID); markErr != nil {
			s.log.WithError(markErr).WithField("message_id", msg.ID).Error("failed to park message as failed")
		} else {
			s.log.WithField("message_id", msg.ID).Error("ERP notification exceeded retry cap, parked as failed")
		}
		return
	}

	if incErr := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); incErr != nil {
		s.log.WithError(incErr).WithField("message_id", msg.ID).Error("failed to increment retry count")
	}
}
