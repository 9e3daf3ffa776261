package domain

// Message is one entry of a thread's message history.
type Message struct {
	ID          string           `json:"id"`
	ThreadID    string           `json:"thread_id"`
	Role        string           `json:"role"`
	AssistantID string           `json:"assistant_id,omitempty"`
	RunID       string           `json:"run_id,omitempty"`
	CreatedAt   int64            `json:"created_at"`
	Content     []MessageContent `json:"content"`
}

// MessageContent is one content part of a message. Only text parts carry Text.
type MessageContent struct {
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

// MessageText holds the value of a text content part.
type MessageText struct {
	Value string `json:"value"`
}

// TextValue returns the message's first content part when it is text.
// Any other first part yields "" and false.
func (m Message) TextValue() (string, bool) {
	if len(m.Content) == 0 {
		return "", false
	}
	first := m.Content[0]
	if first.Type != "text" || first.Text == nil {
		return "", false
	}
	return first.Text.Value, true
}

// Assistant is the configuration of an assistant as the provider reports it.
type Assistant struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Model        string `json:"model"`
	Instructions string `json:"instructions,omitempty"`
	CreatedAt    int64  `json:"created_at,omitempty"`
}

// ThreadDeleted is the provider's answer to a thread deletion.
type ThreadDeleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// ListMessagesResponse is returned by the thread messages endpoint.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

// LatestMessageResponse carries the newest message of a thread.
type LatestMessageResponse struct {
	ThreadID string   `json:"thread_id"`
	Content  string   `json:"content"`
	Message  *Message `json:"message,omitempty"`
}

// ClearSandboxResponse reports how many top-level entries were removed.
type ClearSandboxResponse struct {
	Removed int `json:"removed"`
}
