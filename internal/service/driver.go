package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/tools"
)

// Outcome is the settled result of a run chain.
type Outcome string

// OutcomePromptUser means the run completed and the assistant is waiting for
// the next external input.
const OutcomePromptUser Outcome = "prompt_user"

var (
	ErrRunCancelled    = errors.New("assistant run cancelled")
	ErrRunExpired      = errors.New("assistant run expired")
	ErrUnknownStatus   = errors.New("unknown assistant run status")
	ErrUnhandledAction = errors.New("unhandled required action")
	ErrPollTimeout     = errors.New("assistant run poll timeout")
	ErrSafetyLimit     = errors.New("run iteration safety limit hit")
)

// DriveRunByID fetches a run and drives it.
func (s *Service) DriveRunByID(ctx context.Context, threadID, runID string, handler tools.HandlerFunc) (Outcome, *domain.Run, error) {
	run, err := s.provider.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to retrieve run %s: %w", runID, err)
	}
	if run.ThreadID == "" {
		run.ThreadID = threadID
	}
	return s.DriveRun(ctx, run, handler)
}

// DriveRun takes a run through polling, tool dispatch and output submission
// until it completes or fails. Each submission starts a continuation; more
// than maxIterations continuations fail the chain with ErrSafetyLimit.
// A nil handler falls back to the service default.
func (s *Service) DriveRun(ctx context.Context, run *domain.Run, handler tools.HandlerFunc) (Outcome, *domain.Run, error) {
	if run == nil {
		return "", nil, errors.New("run is required")
	}
	if handler == nil {
		handler = s.handler
	}
	threadID := run.ThreadID
	log := logrus.WithFields(logrus.Fields{"run_id": run.RunID, "thread_id": threadID})

	current := run
	for iteration := 0; ; iteration++ {
		if iteration > s.maxIterations {
			return s.fail(ctx, current, "safety_limit",
				fmt.Errorf("%w: %d continuations for run %s", ErrSafetyLimit, s.maxIterations, current.RunID))
		}
		if current.Status == domain.RunStatusExpired {
			return s.fail(ctx, current, "run_expired", fmt.Errorf("%w: run %s", ErrRunExpired, current.RunID))
		}

		settled, err := s.awaitRun(ctx, threadID, current)
		if settled != nil {
			current = settled
		}
		if err != nil {
			return s.fail(ctx, current, failureCode(err), err)
		}

		s.recordUsage(ctx, current)
		s.recordEvent(ctx, current, domain.EventTypeRunPolled, domain.RunPolledPayload{
			Status:    current.Status,
			Iteration: iteration,
		})
		log.WithFields(logrus.Fields{"status": current.Status, "iteration": iteration}).Debug("run settled")

		switch current.Status {
		case domain.RunStatusCompleted:
			s.recordEvent(ctx, current, domain.EventTypeRunCompleted, domain.RunPolledPayload{
				Status:    current.Status,
				Iteration: iteration,
			})
			return OutcomePromptUser, current, nil

		case domain.RunStatusRequiresAction:
			next, err := s.serveToolCalls(ctx, current, handler)
			if err != nil {
				return s.fail(ctx, current, failureCode(err), err)
			}
			current = next

		case domain.RunStatusCancelled:
			return s.fail(ctx, current, "run_cancelled", fmt.Errorf("%w: run %s", ErrRunCancelled, current.RunID))

		case domain.RunStatusExpired:
			return s.fail(ctx, current, "run_expired", fmt.Errorf("%w: run %s", ErrRunExpired, current.RunID))

		default:
			return s.fail(ctx, current, "unknown_status",
				fmt.Errorf("%w: %q for run %s", ErrUnknownStatus, current.Status, current.RunID))
		}
	}
}

// serveToolCalls dispatches the pending batch and submits its outputs. It
// returns the run as reported after the submission.
func (s *Service) serveToolCalls(ctx context.Context, run *domain.Run, handler tools.HandlerFunc) (*domain.Run, error) {
	action := run.RequiredAction
	if action == nil || action.Type != domain.ActionTypeSubmitToolOutputs || action.SubmitToolOutputs == nil {
		actionType := "none"
		if action != nil {
			actionType = string(action.Type)
		}
		return nil, fmt.Errorf("%w: %s for run %s", ErrUnhandledAction, actionType, run.RunID)
	}

	items, err := s.dispatcher.Dispatch(ctx, run.RunID, action.SubmitToolOutputs.ToolCalls, handler)
	if err != nil {
		return nil, err
	}
	s.recordToolCalls(ctx, run, items)

	results := tools.Results(items)
	next, err := s.provider.SubmitToolOutputs(ctx, run.ThreadID, run.RunID, results)
	if err != nil {
		return nil, fmt.Errorf("failed to submit tool outputs for run %s: %w", run.RunID, err)
	}
	if next.ThreadID == "" {
		next.ThreadID = run.ThreadID
	}
	s.recordEvent(ctx, next, domain.EventTypeToolsSubmitted, map[string]int{"count": len(results)})
	return next, nil
}

func (s *Service) fail(ctx context.Context, run *domain.Run, code string, err error) (Outcome, *domain.Run, error) {
	logrus.WithFields(logrus.Fields{"run_id": run.RunID, "code": code}).WithError(err).Warn("run chain failed")
	s.recordEvent(ctx, run, domain.EventTypeRunFailed, domain.RunFailedPayload{Code: code, Message: err.Error()})
	return "", run, err
}

func failureCode(err error) string {
	switch {
	case errors.Is(err, ErrPollTimeout):
		return "poll_timeout"
	case errors.Is(err, ErrUnhandledAction):
		return "unhandled_action"
	case errors.Is(err, tools.ErrHandlerFailed), errors.Is(err, tools.ErrNoHandler), errors.Is(err, tools.ErrMalformedArguments):
		return "tool_dispatch_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "provider_error"
}
