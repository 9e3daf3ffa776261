package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			thread_id TEXT NOT NULL DEFAULT '',
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, ts)`,
		`CREATE TABLE IF NOT EXISTS tool_calls (
			record_id TEXT PRIMARY KEY,
			tool_call_id TEXT NOT NULL,
			run_id TEXT NOT NULL,
			thread_id TEXT NOT NULL DEFAULT '',
			tool_name TEXT NOT NULL,
			args TEXT,
			output TEXT NOT NULL,
			is_error INTEGER NOT NULL DEFAULT 0,
			decision TEXT NOT NULL DEFAULT 'allow',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_calls_run ON tool_calls(run_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS usage (
			run_id TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			assistant_id TEXT,
			model TEXT,
			completed_at INTEGER,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_thread ON usage(thread_id, recorded_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateEvent creates a new event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, run_id, thread_id, ts, type, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		event.EventID, event.RunID, event.ThreadID, event.Ts, event.Type, nullStringBytes(event.Payload))
	return err
}

// GetEvents retrieves the events of a run in timestamp order.
func (s *SQLiteStore) GetEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, run_id, thread_id, ts, type, payload FROM events WHERE run_id = ?`
	args := []interface{}{runID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.RunID, &event.ThreadID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid && payload.String != "" {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CreateToolCall records one dispatched invocation.
func (s *SQLiteStore) CreateToolCall(ctx context.Context, toolCall *domain.ToolCall) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (record_id, tool_call_id, run_id, thread_id, tool_name, args, output, is_error, decision, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		toolCall.RecordID, toolCall.ToolCallID, toolCall.RunID, toolCall.ThreadID, toolCall.ToolName,
		nullStringBytes(toolCall.Args), toolCall.Output, toolCall.IsError, string(toolCall.Decision), toolCall.CreatedAt)
	return err
}

// ListToolCalls returns the invocations dispatched for a run, oldest first.
func (s *SQLiteStore) ListToolCalls(ctx context.Context, runID string) ([]domain.ToolCall, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, tool_call_id, run_id, thread_id, tool_name, args, output, is_error, decision, created_at
		 FROM tool_calls WHERE run_id = ? ORDER BY created_at ASC, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []domain.ToolCall
	for rows.Next() {
		var tc domain.ToolCall
		var args sql.NullString
		var decision string
		if err := rows.Scan(&tc.RecordID, &tc.ToolCallID, &tc.RunID, &tc.ThreadID, &tc.ToolName,
			&args, &tc.Output, &tc.IsError, &decision, &tc.CreatedAt); err != nil {
			return nil, err
		}
		if args.Valid && args.String != "" {
			tc.Args = json.RawMessage(args.String)
		}
		tc.Decision = domain.PolicyDecision(decision)
		calls = append(calls, tc)
	}
	return calls, rows.Err()
}

// CreateUsage stores a usage record.
func (s *SQLiteStore) CreateUsage(ctx context.Context, record *domain.UsageRecord) error {
	var completedAt sql.NullInt64
	if record.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: *record.CompletedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage (run_id, thread_id, assistant_id, model, completed_at, prompt_tokens, completion_tokens, total_tokens, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID, record.ThreadID, nullString(record.AssistantID), nullString(record.Model), completedAt,
		record.PromptTokens, record.CompletionTokens, record.TotalTokens, record.RecordedAt)
	return err
}

// ListUsage returns the usage records of a thread, oldest first.
func (s *SQLiteStore) ListUsage(ctx context.Context, threadID string) ([]domain.UsageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, thread_id, assistant_id, model, completed_at, prompt_tokens, completion_tokens, total_tokens, recorded_at
		 FROM usage WHERE thread_id = ? ORDER BY recorded_at ASC, rowid ASC`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.UsageRecord
	for rows.Next() {
		var r domain.UsageRecord
		var assistantID, model sql.NullString
		var completedAt sql.NullInt64
		if err := rows.Scan(&r.RunID, &r.ThreadID, &assistantID, &model, &completedAt,
			&r.PromptTokens, &r.CompletionTokens, &r.TotalTokens, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.AssistantID = assistantID.String
		r.Model = model.String
		if completedAt.Valid {
			v := completedAt.Int64
			r.CompletedAt = &v
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
