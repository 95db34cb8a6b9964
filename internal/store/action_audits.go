package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

type ActionAudit struct {
	ID        string
	ChatID    string
	Action    string
	Plugin    string
	Outcome   string
	Category  string
	Detail    string
	CreatedAt time.Time
}

type CreateActionAuditInput struct {
	ChatID   string
	Action   string
	Plugin   string
	Outcome  string
	Category string
	Detail   string
}

type ListActionAuditsInput struct {
	ChatID string
	Limit  int
}

func (s *Store) CreateActionAudit(ctx context.Context, input CreateActionAuditInput) (ActionAudit, error) {
	now := time.Now().UTC()
	record := ActionAudit{
		ID:        "act_" + uuid.NewString(),
		ChatID:    strings.TrimSpace(input.ChatID),
		Action:    strings.ToLower(strings.TrimSpace(input.Action)),
		Plugin:    strings.TrimSpace(input.Plugin),
		Outcome:   strings.ToLower(strings.TrimSpace(input.Outcome)),
		Category:  strings.TrimSpace(input.Category),
		Detail:    strings.TrimSpace(input.Detail),
		CreatedAt: now,
	}
	if record.Action == "" {
		record.Action = "unknown"
	}
	if record.Outcome != OutcomeOK && record.Outcome != OutcomeFailed {
		return ActionAudit{}, fmt.Errorf("invalid action audit outcome %q", input.Outcome)
	}

	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO action_audits (
			id, chat_id, action, plugin, outcome, category, detail, created_at_unix_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.ChatID,
		record.Action,
		nullIfEmpty(record.Plugin),
		record.Outcome,
		nullIfEmpty(record.Category),
		nullIfEmpty(record.Detail),
		record.CreatedAt.UnixMilli(),
	); err != nil {
		return ActionAudit{}, fmt.Errorf("insert action audit: %w", err)
	}
	return record, nil
}

// ListActionAudits returns the most recent audits first.
func (s *Store) ListActionAudits(ctx context.Context, input ListActionAuditsInput) ([]ActionAudit, error) {
	limit := input.Limit
	if limit < 1 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	whereParts := []string{"1=1"}
	args := make([]any, 0, 2)
	if chatID := strings.TrimSpace(input.ChatID); chatID != "" {
		whereParts = append(whereParts, "chat_id = ?")
		args = append(args, chatID)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, chat_id, action, COALESCE(plugin, ''), outcome, COALESCE(category, ''), COALESCE(detail, ''), created_at_unix_ms
		 FROM action_audits
		 WHERE `+strings.Join(whereParts, " AND ")+`
		 ORDER BY created_at_unix_ms DESC, rowid DESC
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query action audits: %w", err)
	}
	defer rows.Close()

	audits := make([]ActionAudit, 0, limit)
	for rows.Next() {
		var audit ActionAudit
		var createdAtMillis int64
		if err := rows.Scan(
			&audit.ID,
			&audit.ChatID,
			&audit.Action,
			&audit.Plugin,
			&audit.Outcome,
			&audit.Category,
			&audit.Detail,
			&createdAtMillis,
		); err != nil {
			return nil, err
		}
		if createdAtMillis > 0 {
			audit.CreatedAt = time.UnixMilli(createdAtMillis).UTC()
		}
		audits = append(audits, audit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action audits: %w", err)
	}
	return audits, nil
}
