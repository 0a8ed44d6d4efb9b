package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Job statuses. Transitions run pending → processing → completed → delivered,
// with failed as the terminal error branch out of processing.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusDelivered  = "delivered"
)

var AllStatuses = []string{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusDelivered,
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusDelivered:
		return true
	default:
		return false
	}
}

type Job struct {
	ID        int64
	ChannelID string
	MessageID string
	AuthorID  string
	Prompt    string
	Status    string
	Response  string
	CreatedAt string
}

// Enqueue inserts a new pending job and returns its assigned id.
func (s *Store) Enqueue(ctx context.Context, channelID, messageID, authorID, prompt string) (int64, error) {
	const q = `INSERT INTO messages(channel_id, message_id, author_id, prompt, status) VALUES(?,?,?,?,'pending')`
	res, err := s.Writer.ExecContext(ctx, q, channelID, messageID, authorID, prompt)
	if err != nil {
		return 0, fmt.Errorf("enqueue job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue job id: %w", err)
	}
	return id, nil
}

// ClaimOldestPending atomically moves the single oldest pending job to
// 'processing' and returns it. The second return is false when no pending
// job exists.
func (s *Store) ClaimOldestPending(ctx context.Context) (Job, bool, error) {
	const q = `
UPDATE messages SET status = 'processing'
WHERE id = (
	SELECT id FROM messages
	WHERE status = 'pending'
	ORDER BY created_at ASC, id ASC
	LIMIT 1
)
RETURNING id, channel_id, message_id, author_id, prompt, status, COALESCE(response,''), created_at`
	var j Job
	err := s.Writer.QueryRowContext(ctx, q).Scan(
		&j.ID, &j.ChannelID, &j.MessageID, &j.AuthorID,
		&j.Prompt, &j.Status, &j.Response, &j.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Job{}, false, nil
		}
		return Job{}, false, fmt.Errorf("claim job: %w", err)
	}
	return j, true, nil
}

// MarkCompleted records the resolved worker output on a job.
func (s *Store) MarkCompleted(ctx context.Context, id int64, response string) error {
	_, err := s.Writer.ExecContext(ctx,
		`UPDATE messages SET status = 'completed', response = ? WHERE id = ?`, response, id)
	if err != nil {
		return fmt.Errorf("mark job %d completed: %w", id, err)
	}
	return nil
}

// MarkFailed records a terminal failure with the error text as the response.
func (s *Store) MarkFailed(ctx context.Context, id int64, errText string) error {
	_, err := s.Writer.ExecContext(ctx,
		`UPDATE messages SET status = 'failed', response = ? WHERE id = ?`, errText, id)
	if err != nil {
		return fmt.Errorf("mark job %d failed: %w", id, err)
	}
	return nil
}

// MarkDelivered transitions a completed job to delivered. The response is
// left untouched. A job in any other status is not modified.
func (s *Store) MarkDelivered(ctx context.Context, id int64) error {
	res, err := s.Writer.ExecContext(ctx,
		`UPDATE messages SET status = 'delivered' WHERE id = ? AND status = 'completed'`, id)
	if err != nil {
		return fmt.Errorf("mark job %d delivered: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("job %d not in completed status", id)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id int64) (Job, error) {
	const q = `
SELECT id, channel_id, message_id, author_id, prompt, status, COALESCE(response,''), created_at
FROM messages WHERE id = ?`
	var j Job
	err := s.Reader.QueryRowContext(ctx, q, id).Scan(
		&j.ID, &j.ChannelID, &j.MessageID, &j.AuthorID,
		&j.Prompt, &j.Status, &j.Response, &j.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Job{}, fmt.Errorf("job %d not found", id)
		}
		return Job{}, fmt.Errorf("get job %d: %w", id, err)
	}
	return j, nil
}

// ListJobs returns jobs newest first. status filters when non-empty and not
// "all"; limit caps the result when positive.
func (s *Store) ListJobs(ctx context.Context, status string, limit int) ([]Job, error) {
	q := `
SELECT id, channel_id, message_id, author_id, prompt, status, COALESCE(response,''), created_at
FROM messages WHERE 1=1`
	var args []any
	if status != "" && status != "all" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY id DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.Reader.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(
			&j.ID, &j.ChannelID, &j.MessageID, &j.AuthorID,
			&j.Prompt, &j.Status, &j.Response, &j.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// CountByStatus returns the number of jobs in each status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.Reader.QueryContext(ctx, `SELECT status, COUNT(*) FROM messages GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int, len(AllStatuses))
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}
