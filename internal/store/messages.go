package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MarkMessageProcessed records messageID and reports whether this is the
// first time it was seen. Platform redeliveries of the same event return
// false.
func (s *Store) MarkMessageProcessed(ctx context.Context, messageID, chatID string, receivedAt time.Time) (bool, error) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return false, fmt.Errorf("message id is required")
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	result, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO processed_messages (message_id, chat_id, received_at_unix) VALUES (?, ?, ?)`,
		messageID,
		strings.TrimSpace(chatID),
		receivedAt.UTC().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("insert processed message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("processed message rows: %w", err)
	}
	return affected == 1, nil
}

// PruneProcessedMessages deletes records received before the cutoff.
func (s *Store) PruneProcessedMessages(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM processed_messages WHERE received_at_unix < ?`,
		before.UTC().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("prune processed messages: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruned rows: %w", err)
	}
	return deleted, nil
}

// ForgetProcessedMessage removes the record for messageID so a later
// redelivery is handled again.
func (s *Store) ForgetProcessedMessage(ctx context.Context, messageID string) error {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return fmt.Errorf("message id is required")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM processed_messages WHERE message_id = ?`, messageID); err != nil {
		return fmt.Errorf("delete processed message: %w", err)
	}
	return nil
}
