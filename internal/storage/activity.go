package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kashvijewels/jewel-shop/internal/domain/models"
)

// ActivityStorage records the internal admin feed. Writes are best-effort:
// callers log failures and move on.
type ActivityStorage interface {
	CreateEntry(ctx context.Context, orderID, actorID int64, action string) error
	ListRecent(ctx context.Context, limit int) ([]*models.ActivityEntry, error)
}

type activityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) ActivityStorage {
	return &activityRepository{db: db}
}

func (r *activityRepository) CreateEntry(ctx context.Context, orderID, actorID int64, action string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO activity_log (order_id, actor_id, action, created_at) VALUES ($1, $2, $3, NOW())",
		orderID, actorID, action)
	if err != nil {
		return fmt.Errorf("failed to create activity entry: %w", err)
	}
	return nil
}

func (r *activityRepository) ListRecent(ctx context.Context, limit int) ([]*models.ActivityEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, order_id, actor_id, action, created_at FROM activity_log ORDER BY created_at DESC LIMIT $1",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}
	defer rows.Close()

	var entries []*models.ActivityEntry
	for rows.Next() {
		entry := &models.ActivityEntry{}
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.ActorID, &entry.Action, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
