package service

import (
	"context"
	"fmt"
	"time"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
)

// awaitRun re-fetches a run until it leaves queued/in_progress. A run that
// is already settled is returned without a provider call.
func (s *Service) awaitRun(ctx context.Context, threadID string, run *domain.Run) (*domain.Run, error) {
	if !run.Status.IsTransient() {
		return run, nil
	}

	current := run
	for attempt := 1; attempt <= s.pollMaxAttempts; attempt++ {
		next, err := s.provider.RetrieveRun(ctx, threadID, current.RunID)
		if err != nil {
			return current, fmt.Errorf("failed to retrieve run %s: %w", current.RunID, err)
		}
		if next.ThreadID == "" {
			next.ThreadID = threadID
		}
		current = next
		if !current.Status.IsTransient() {
			return current, nil
		}
		if attempt == s.pollMaxAttempts {
			break
		}

		timer := time.NewTimer(s.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return current, ctx.Err()
		case <-timer.C:
		}
	}

	budget := time.Duration(s.pollMaxAttempts) * s.pollInterval
	return current, fmt.Errorf("%w: run %s stuck with %s status after %d attempts (%s)",
		ErrPollTimeout, current.RunID, current.Status, s.pollMaxAttempts, budget)
}
