package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/tools"
)

// recordEvent stores an event and pushes it to subscribers. Failures are
// logged; they never abort the chain.
func (s *Service) recordEvent(ctx context.Context, run *domain.Run, eventType domain.EventType, payload interface{}) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal event payload")
		return
	}

	event := &domain.Event{
		EventID:  "evt_" + uuid.New().String()[:8],
		RunID:    run.RunID,
		ThreadID: run.ThreadID,
		Ts:       time.Now().UnixMilli(),
		Type:     eventType,
		Payload:  payloadBytes,
	}

	if s.store != nil {
		if err := s.store.CreateEvent(ctx, event); err != nil {
			logrus.WithError(err).WithField("type", eventType).Error("failed to record event")
		}
	}
	if s.publisher != nil && run.ThreadID != "" {
		if err := s.publisher.Publish(run.ThreadID, event); err != nil {
			logrus.WithError(err).WithField("type", eventType).Warn("failed to publish event")
		}
	}
}

func (s *Service) recordToolCalls(ctx context.Context, run *domain.Run, items []tools.Dispatched) {
	for _, item := range items {
		s.recordEvent(ctx, run, domain.EventTypeToolDispatched, domain.ToolDispatchedPayload{
			ToolCallID: item.Invocation.ID,
			ToolName:   item.Invocation.Function.Name,
			IsError:    item.IsError,
			Decision:   item.Decision,
		})
		if s.store == nil {
			continue
		}
		args, err := json.Marshal(item.Args)
		if err != nil {
			args = nil
		}
		tc := &domain.ToolCall{
			RecordID:   "tc_" + uuid.New().String()[:8],
			ToolCallID: item.Invocation.ID,
			RunID:      run.RunID,
			ThreadID:   run.ThreadID,
			ToolName:   item.Invocation.Function.Name,
			Args:       args,
			Output:     item.Result.Output,
			IsError:    item.IsError,
			Decision:   item.Decision,
			CreatedAt:  time.Now(),
		}
		if err := s.store.CreateToolCall(ctx, tc); err != nil {
			logrus.WithError(err).WithField("tool_call_id", tc.ToolCallID).Error("failed to record tool call")
		}
	}
}

func (s *Service) recordUsage(ctx context.Context, run *domain.Run) {
	record := domain.UsageRecordFor(run)
	if record == nil || s.store == nil {
		return
	}
	if err := s.store.CreateUsage(ctx, record); err != nil {
		logrus.WithError(err).WithField("run_id", run.RunID).Error("failed to record usage")
	}
}
