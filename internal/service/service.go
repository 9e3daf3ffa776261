// Package service drives assistant runs to a settled outcome: it polls the
// provider, dispatches requested tool calls and submits their outputs.
package service

import (
	"time"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/adapter/provider"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/config"
	store "github.com/TimeTravelerFromNow/openai-helpers/internal/repository"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/tools"
)

const (
	defaultPollInterval    = 300 * time.Millisecond
	defaultPollMaxAttempts = 100
	defaultMaxIterations   = 20
)

// Publisher pushes events to live subscribers of a thread.
type Publisher interface {
	Publish(threadID string, v any) error
}

type Service struct {
	store      store.Store
	provider   provider.Provider
	dispatcher *tools.Dispatcher
	handler    tools.HandlerFunc
	publisher  Publisher

	pollInterval    time.Duration
	pollMaxAttempts int
	maxIterations   int
}

// New creates a Service. handler answers non-editor calls when DriveRun is
// given none; publisher may be nil.
func New(store store.Store, prov provider.Provider, dispatcher *tools.Dispatcher, handler tools.HandlerFunc, cfg *config.Config, publisher Publisher) *Service {
	s := &Service{
		store:           store,
		provider:        prov,
		dispatcher:      dispatcher,
		handler:         handler,
		publisher:       publisher,
		pollInterval:    defaultPollInterval,
		pollMaxAttempts: defaultPollMaxAttempts,
		maxIterations:   defaultMaxIterations,
	}
	if cfg != nil {
		if cfg.PollInterval > 0 {
			s.pollInterval = cfg.PollInterval
		}
		if cfg.PollMaxAttempts > 0 {
			s.pollMaxAttempts = cfg.PollMaxAttempts
		}
		if cfg.MaxIterations > 0 {
			s.maxIterations = cfg.MaxIterations
		}
	}
	return s
}
