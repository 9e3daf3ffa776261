package rpc

import (
	"context"
	"fmt"
	"net"
	"net/rpc/jsonrpc"
	"net/url"
	"strings"
	"time"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
)

// Client calls the RunDriver RPC service. Each call uses its own connection.
type Client struct {
	addr        string
	dialTimeout time.Duration
	callTimeout time.Duration
}

// NewClient accepts either host:port or a URL carrying the host.
func NewClient(baseURL string) *Client {
	return &Client{
		addr:        resolveRPCAddr(baseURL),
		dialTimeout: 5 * time.Second,
		callTimeout: 5 * time.Minute,
	}
}

// Drive asks the server to drive a run and waits for the outcome.
func (c *Client) Drive(ctx context.Context, threadID, runID string) (*domain.DriveRunResponse, error) {
	var resp domain.DriveRunResponse
	if err := c.call(ctx, "RunDriver.Drive", &DriveArgs{ThreadID: threadID, RunID: runID}, &resp); err != nil {
		return nil, fmt.Errorf("failed to drive run: %w", err)
	}
	return &resp, nil
}

// ExecuteEditor runs one editor request on the server.
func (c *Client) ExecuteEditor(ctx context.Context, args map[string]any) (*EditorReply, error) {
	var resp EditorReply
	if err := c.call(ctx, "RunDriver.ExecuteEditor", &args, &resp); err != nil {
		return nil, fmt.Errorf("failed to execute editor: %w", err)
	}
	return &resp, nil
}

// ListToolCalls lists the tool calls recorded for a run.
func (c *Client) ListToolCalls(ctx context.Context, runID string) ([]domain.ToolCall, error) {
	var resp ToolCallsReply
	if err := c.call(ctx, "RunDriver.ListToolCalls", &ToolCallsArgs{RunID: runID}, &resp); err != nil {
		return nil, fmt.Errorf("failed to list tool calls: %w", err)
	}
	return resp.ToolCalls, nil
}

func (c *Client) call(ctx context.Context, method string, args, reply interface{}) error {
	if c.addr == "" {
		return fmt.Errorf("rpc address is empty")
	}
	conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if c.callTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.callTimeout))
	}

	client := jsonrpc.NewClient(conn)
	call := client.Go(method, args, reply, nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-call.Done:
		return call.Error
	}
}

func resolveRPCAddr(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err == nil && parsed.Host != "" {
			return parsed.Host
		}
	}
	return raw
}
