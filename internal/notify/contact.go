package notify

import (
	"context"

	"go.uber.org/zap"

	"sentisense/internal/apperr"
)

// Sender is the part of the Dispatcher the contact flow needs.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Enqueue(msg Message) bool
}

type ContactService struct {
	quota    *Quota
	composer *Composer
	sender   Sender
	logger   *zap.Logger
}

func NewContactService(quota *Quota, composer *Composer, sender Sender, logger *zap.Logger) *ContactService {
	return &ContactService{quota: quota, composer: composer, sender: sender, logger: logger}
}

// Submit forwards a contact form submission to the support inbox and
// queues an auto-reply to the sender.
func (s *ContactService) Submit(ctx context.Context, email, subject, body string) error {
	current, err := s.quota.Allow(ctx, email)
	if err != nil {
		return err
	}

	if err := s.sender.Send(ctx, s.composer.ContactForward(email, subject, body)); err != nil {
		return apperr.Upstream("Failed to send email", err)
	}
	if err := s.quota.Record(ctx, current); err != nil {
		// The message is already out, so this is logged but not returned.
		s.logger.Error("failed to record email quota", zap.String("email", email), zap.Error(err))
	}

	reply, err := s.composer.ContactAutoReply(email)
	if err != nil {
		s.logger.Error("failed to render auto-reply", zap.Error(err))
		return nil
	}
	s.sender.Enqueue(reply)
	return nil
}
