package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
)

func TestClientRetrieveRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/v1/threads/thread_1/runs/run_1" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("unexpected auth header: %q", got)
		}
		if got := r.Header.Get("OpenAI-Beta"); got != "assistants=v2" {
			t.Fatalf("unexpected beta header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "run_1",
			"object": "thread.run",
			"thread_id": "thread_1",
			"assistant_id": "asst_1",
			"status": "requires_action",
			"model": "gpt-4o",
			"required_action": {
				"type": "submit_tool_outputs",
				"submit_tool_outputs": {
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "str_replace_editor", "arguments": "{\"command\":\"view\",\"path\":\"/\"}"}
					}]
				}
			},
			"usage": null
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "sk-test", time.Second)
	run, err := client.RetrieveRun(context.Background(), "thread_1", "run_1")
	if err != nil {
		t.Fatalf("RetrieveRun failed: %v", err)
	}
	if run.RunID != "run_1" || run.Status != domain.RunStatusRequiresAction || run.Model != "gpt-4o" {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.RequiredAction == nil || run.RequiredAction.Type != domain.ActionTypeSubmitToolOutputs {
		t.Fatalf("unexpected required action: %+v", run.RequiredAction)
	}
	calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
	if len(calls) != 1 || calls[0].Function.Name != "str_replace_editor" {
		t.Fatalf("unexpected tool calls: %+v", calls)
	}
	if run.Usage != nil {
		t.Fatalf("expected nil usage, got %+v", run.Usage)
	}
}

func TestClientSubmitToolOutputs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/threads/thread_1/runs/run_1/submit_tool_outputs" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var body struct {
			ToolOutputs []domain.ToolResult `json:"tool_outputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if len(body.ToolOutputs) != 2 || body.ToolOutputs[0].ToolCallID != "call_1" || body.ToolOutputs[1].Output != "two" {
			t.Fatalf("unexpected tool outputs: %+v", body.ToolOutputs)
		}
		_, _ = w.Write([]byte(`{"id":"run_1","thread_id":"thread_1","status":"queued"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	run, err := client.SubmitToolOutputs(context.Background(), "thread_1", "run_1", []domain.ToolResult{
		{ToolCallID: "call_1", Output: "one"},
		{ToolCallID: "call_2", Output: "two"},
	})
	if err != nil {
		t.Fatalf("SubmitToolOutputs failed: %v", err)
	}
	if run.Status != domain.RunStatusQueued {
		t.Fatalf("unexpected status: %s", run.Status)
	}
}

func TestClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/threads/t/runs/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"No run found","type":"invalid_request_error"}}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("upstream exploded"))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)

	_, err := client.RetrieveRun(context.Background(), "t", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = client.RetrieveRun(context.Background(), "t", "other")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected generic API error, got %v", err)
	}
}

func TestClientListMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/threads/thread_1/messages" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("order"); got != "desc" {
			t.Fatalf("expected order=desc, got %q", got)
		}
		_, _ = w.Write([]byte(`{
			"object": "list",
			"data": [
				{"id": "msg_2", "thread_id": "thread_1", "role": "assistant", "created_at": 2,
				 "content": [{"type": "text", "text": {"value": "Done editing.", "annotations": []}}]},
				{"id": "msg_1", "thread_id": "thread_1", "role": "user", "created_at": 1,
				 "content": [{"type": "image_file", "image_file": {"file_id": "file_1"}}]}
			]
		}`))
	}))
	defer server.Close()

	messages, err := NewClient(server.URL, "", time.Second).ListMessages(context.Background(), "thread_1")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 2 || messages[0].ID != "msg_2" {
		t.Fatalf("unexpected messages: %+v", messages)
	}
	if text, ok := messages[0].TextValue(); !ok || text != "Done editing." {
		t.Fatalf("unexpected text: %q %v", text, ok)
	}
	if _, ok := messages[1].TextValue(); ok {
		t.Fatalf("image content should not yield text")
	}
}

func TestClientDeleteThreadAndRetrieveAssistant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/threads/thread_1":
			_, _ = w.Write([]byte(`{"id":"thread_1","object":"thread.deleted","deleted":true}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/assistants/asst_1":
			_, _ = w.Write([]byte(`{"id":"asst_1","object":"assistant","name":"Theme editor","model":"gpt-4o"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"not found","type":"invalid_request_error"}}`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	ctx := context.Background()

	deleted, err := client.DeleteThread(ctx, "thread_1")
	if err != nil || !deleted {
		t.Fatalf("DeleteThread = %v, %v", deleted, err)
	}

	assistant, err := client.RetrieveAssistant(ctx, "asst_1")
	if err != nil {
		t.Fatalf("RetrieveAssistant failed: %v", err)
	}
	if assistant.Name != "Theme editor" || assistant.Model != "gpt-4o" {
		t.Fatalf("unexpected assistant: %+v", assistant)
	}

	if _, err := client.RetrieveAssistant(ctx, "asst_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
