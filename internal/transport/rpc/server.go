package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/editor"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/service"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/tools"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Server exposes the run driver to internal clients over JSON-RPC.
type Server struct {
	mu        sync.Mutex
	listener  net.Listener
	rpcServer *rpc.Server
	done      chan struct{}
}

// NewServer creates a new RPC server bound to the driver service.
func NewServer(svc *service.Service, handler tools.HandlerFunc) (*Server, error) {
	rpcServer := rpc.NewServer()
	h := &Handler{service: svc, handler: handler}
	if err := rpcServer.RegisterName("RunDriver", h); err != nil {
		return nil, fmt.Errorf("register rpc handler: %w", err)
	}

	return &Server{
		rpcServer: rpcServer,
		done:      make(chan struct{}),
	}, nil
}

// Start begins accepting RPC connections on the given address.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until it is closed. Failed accepts are
// retried with a backoff capped at maxAcceptDelay.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.done)
				return nil
			}
			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			logrus.WithError(err).Warnf("rpc accept error, retrying in %s", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Shutdown stops accepting new RPC connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	if err := ln.Close(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler implements the RunDriver RPC methods.
type Handler struct {
	service *service.Service
	handler tools.HandlerFunc
}

// DriveArgs identifies the run to drive.
type DriveArgs struct {
	ThreadID string `json:"thread_id"`
	RunID    string `json:"run_id"`
}

// EditorReply is the result of a direct editor call.
type EditorReply struct {
	Content  string                `json:"content"`
	IsError  bool                  `json:"is_error"`
	Decision domain.PolicyDecision `json:"decision"`
}

// ToolCallsArgs selects the run whose tool calls are listed.
type ToolCallsArgs struct {
	RunID string `json:"run_id"`
}

// ToolCallsReply lists the recorded tool calls of a run.
type ToolCallsReply struct {
	ToolCalls []domain.ToolCall `json:"tool_calls"`
}

// Drive drives a run until it needs user input or fails.
func (h *Handler) Drive(req *DriveArgs, resp *domain.DriveRunResponse) error {
	if req == nil {
		return errors.New("drive request is required")
	}
	if req.ThreadID == "" || req.RunID == "" {
		return errors.New("thread_id and run_id are required")
	}

	outcome, run, err := h.service.DriveRunByID(context.Background(), req.ThreadID, req.RunID, h.handler)
	if err != nil {
		return err
	}
	if resp != nil {
		resp.Outcome = string(outcome)
		resp.Run = run
	}
	return nil
}

// ExecuteEditor runs a single editor request.
func (h *Handler) ExecuteEditor(req *map[string]any, resp *EditorReply) error {
	if req == nil || *req == nil {
		return errors.New("editor request is required")
	}

	result, decision, err := h.service.ExecuteEditor(context.Background(), *req)
	if err != nil {
		return err
	}
	if resp != nil {
		*resp = fromResponse(result, decision)
	}
	return nil
}

// ListToolCalls lists the invocations dispatched for a run.
func (h *Handler) ListToolCalls(req *ToolCallsArgs, resp *ToolCallsReply) error {
	if req == nil || req.RunID == "" {
		return errors.New("run_id is required")
	}

	calls, err := h.service.ListToolCalls(context.Background(), req.RunID)
	if err != nil {
		return err
	}
	if resp != nil {
		resp.ToolCalls = calls
	}
	return nil
}

func fromResponse(r editor.Response, decision domain.PolicyDecision) EditorReply {
	return EditorReply{Content: r.Content, IsError: r.IsError, Decision: decision}
}
