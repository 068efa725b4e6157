package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStore defines the interface for task storage operations.
type TaskStore interface {
	// CreateBatch inserts tasks in one transaction, filling IDs and creation times.
	CreateBatch(ctx context.Context, tasks []TaskRecord) error
	// ListByUser returns a user's tasks, newest first.
	ListByUser(ctx context.Context, userID string) ([]TaskRecord, error)
}

// TaskRepo provides methods for task operations.
// It implements the TaskStore interface.
type TaskRepo struct {
	db *sql.DB
}

// NewTaskRepo creates a new TaskRepo.
func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// CreateBatch inserts all tasks or none.
func (r *TaskRepo) CreateBatch(ctx context.Context, tasks []TaskRecord) error {
	if len(tasks) == 0 {
		return nil
	}
	now := time.Now().UTC()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO tasks (id, user_id, note_id, title, description, due_date, priority, category, completed, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare task insert: %w", err)
		}
		defer stmt.Close()

		for i := range tasks {
			task := &tasks[i]
			if task.ID == "" {
				task.ID = uuid.New().String()
			}
			if task.CreatedAt.IsZero() {
				task.CreatedAt = now
			}
			if task.Priority == "" {
				task.Priority = "medium"
			}
			if _, err := stmt.ExecContext(ctx,
				task.ID, task.UserID, nullString(task.NoteID), task.Title, nullString(task.Description),
				formatTimePtr(task.DueDate), task.Priority, nullString(task.Category), task.Completed,
				formatTime(task.CreatedAt),
			); err != nil {
				return fmt.Errorf("failed to insert task: %w", err)
			}
		}
		return nil
	})
}

// ListByUser returns the tasks of a user.
func (r *TaskRepo) ListByUser(ctx context.Context, userID string) ([]TaskRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, note_id, title, description, due_date, priority, category, completed, created_at
		 FROM tasks WHERE user_id = ? ORDER BY created_at DESC, title`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []TaskRecord
	for rows.Next() {
		var (
			task                          TaskRecord
			noteID, description, category sql.NullString
			dueDate                       sql.NullString
			createdAt                     string
		)
		if err := rows.Scan(&task.ID, &task.UserID, &noteID, &task.Title, &description,
			&dueDate, &task.Priority, &category, &task.Completed, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		task.NoteID = noteID.String
		task.Description = description.String
		task.Category = category.String
		if task.DueDate, err = parseTimePtr(dueDate); err != nil {
			return nil, err
		}
		if task.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}
