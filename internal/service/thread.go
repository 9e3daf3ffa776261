package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
)

var (
	ErrNoMessages      = errors.New("thread has no messages")
	ErrSandboxReadOnly = errors.New("sandbox is read-only")
)

// ListMessages returns a thread's messages, newest first.
func (s *Service) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	messages, err := s.provider.ListMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of thread %s: %w", threadID, err)
	}
	return messages, nil
}

// LatestMessage returns the text of the newest message of a thread, which
// after a prompt_user outcome is the assistant's reply. A newest message
// whose first part is not text yields empty content.
func (s *Service) LatestMessage(ctx context.Context, threadID string) (string, *domain.Message, error) {
	messages, err := s.ListMessages(ctx, threadID)
	if err != nil {
		return "", nil, err
	}
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("%w: %s", ErrNoMessages, threadID)
	}
	latest := messages[0]
	text, ok := latest.TextValue()
	if !ok {
		logrus.WithFields(logrus.Fields{"thread_id": threadID, "message_id": latest.ID}).Warn("latest message has no text content")
	}
	return text, &latest, nil
}

// DeleteThread deletes a thread at the provider.
func (s *Service) DeleteThread(ctx context.Context, threadID string) (bool, error) {
	deleted, err := s.provider.DeleteThread(ctx, threadID)
	if err != nil {
		return false, fmt.Errorf("failed to delete thread %s: %w", threadID, err)
	}
	if !deleted {
		logrus.WithField("thread_id", threadID).Warn("provider did not delete thread")
	}
	return deleted, nil
}

// RetrieveAssistant fetches an assistant's configuration.
func (s *Service) RetrieveAssistant(ctx context.Context, assistantID string) (*domain.Assistant, error) {
	assistant, err := s.provider.RetrieveAssistant(ctx, assistantID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve assistant %s: %w", assistantID, err)
	}
	return assistant, nil
}

// ClearSandbox removes every file the assistant has written. It is refused
// when the sandbox is read-only.
func (s *Service) ClearSandbox(ctx context.Context) (int, error) {
	if s.dispatcher.ReadOnly() {
		return 0, ErrSandboxReadOnly
	}
	removed, err := s.dispatcher.Editor().Clear(ctx)
	if err != nil {
		return removed, err
	}
	logrus.WithField("removed", removed).Info("sandbox cleared")
	return removed, nil
}
