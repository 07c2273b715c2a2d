package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/mailer"
	"github.com/shookla/walkthroughs/internal/models"
)

// EmailTestResult is the outcome of TestEmailConfiguration.
type EmailTestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// startNotifier sends the ready email without holding up the pipeline.
func (s *Service) startNotifier(id string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.notify(id)
	}()
}

func (s *Service) notify(id string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("notifier panic", zap.String("session_id", id), zap.Any("panic", r))
			s.setEmailOutcome(id, fmt.Errorf("notifier panic: %v", r))
		}
	}()
	sess, ok := s.store.Get(id)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.NotifyTimeout)
	defer cancel()

	msg, err := mailer.WalkthroughReady(sess.Email, mailer.ReadyData{
		Prompt:   sess.UserPrompt,
		VideoURL: sess.VideoURL,
		Script:   sess.ScriptContent,
	})
	if err == nil {
		err = s.deliver(ctx, msg)
	}
	if err != nil {
		s.logger.Warn("email notification failed", zap.String("session_id", id), zap.Error(err))
	} else {
		s.logger.Info("email notification sent", zap.String("session_id", id))
	}

	s.logEmail(ctx, sess, models.EmailTypeWalkthroughReady, msg.Subject, err)
	s.setEmailOutcome(id, err)
}

// deliver verifies the transport then sends msg.
func (s *Service) deliver(ctx context.Context, msg mailer.Message) error {
	if s.mail == nil {
		return mailer.ErrNotConfigured
	}
	if err := s.mail.Verify(ctx); err != nil {
		return err
	}
	return s.mail.Send(ctx, msg)
}

// setEmailOutcome records the notification result. It never changes status and only applies to
// completed sessions.
func (s *Service) setEmailOutcome(id string, sendErr error) {
	sess, ok := s.mutate(id, func(x *models.RecordingSession) bool {
		if x.Status != models.SessionStatusCompleted {
			return false
		}
		sent := sendErr == nil
		x.EmailSent = &sent
		x.EmailError = ""
		if sendErr != nil {
			x.EmailError = sendErr.Error()
		}
		return true
	})
	if !ok || sendErr != nil || sess.WalkthroughID == 0 {
		return
	}
	if f, ok := s.persist.(emailFlagger); ok {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), requestUpdateTimeout)
		defer cancel()
		if err := f.SetEmailSent(ctx, sess.WalkthroughID, true); err != nil {
			s.logger.Debug("flag walkthrough email sent", zap.String("session_id", id), zap.Error(err))
		}
	}
}

func (s *Service) logEmail(ctx context.Context, sess models.RecordingSession, emailType, subject string, sendErr error) {
	if s.logs == nil {
		return
	}
	el := &models.EmailLog{
		SessionID:      sess.ID,
		EmailType:      emailType,
		RecipientEmail: sess.Email,
		Subject:        subject,
		Status:         models.EmailLogStatusSent,
	}
	if sess.RequestID > 0 {
		reqID := sess.RequestID
		el.RequestID = &reqID
	}
	if sendErr != nil {
		el.Status = models.EmailLogStatusFailed
		el.ErrorMessage = sendErr.Error()
	} else {
		now := s.cfg.Now()
		el.SentAt = &now
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requestUpdateTimeout)
	defer cancel()
	if err := s.logs.Create(ctx, el); err != nil {
		s.logger.Debug("write email log", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

// TestEmailConfiguration verifies the transport and sends a test message to email.
func (s *Service) TestEmailConfiguration(ctx context.Context, email string) EmailTestResult {
	if s.mail == nil {
		return EmailTestResult{
			Success: false,
			Message: "Email transporter not configured. Please check SMTP_USERNAME and SMTP_PASSWORD environment variables.",
		}
	}
	var settings mailer.Config
	if st, ok := s.mail.(interface{ Settings() mailer.Config }); ok {
		settings = st.Settings()
	}
	msg, err := mailer.ConfigTest(email, settings)
	if err == nil {
		err = s.deliver(ctx, msg)
	}
	s.logEmail(ctx, models.RecordingSession{Email: email}, models.EmailTypeConfigTest, msg.Subject, err)
	if err != nil {
		s.logger.Warn("email test failed", zap.Error(err))
		return EmailTestResult{Success: false, Message: "Email test failed: " + err.Error()}
	}
	return EmailTestResult{Success: true, Message: "Test email sent successfully to " + email}
}
