package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"forestfocus/internal/model"
	"forestfocus/internal/queue"
)

// QueueRepository is the sqlite-backed durable queue. Ordering by id is
// ordering by creation because ids are ULIDs.
type QueueRepository struct {
	db *sql.DB
}

var _ queue.Store = (*QueueRepository)(nil)

func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

func (r *QueueRepository) Insert(ctx context.Context, m model.PendingMutation) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO pending_mutations (
			id, kind, idempotency_key, payload, status, last_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.Kind,
		m.IdempotencyKey,
		string(m.Payload),
		m.Status,
		m.LastError,
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert pending mutation: %w", err)
	}
	return nil
}

const mutationSelect = `SELECT id, kind, idempotency_key, payload, status, last_error,
	created_at, updated_at FROM pending_mutations`

func (r *QueueRepository) Get(ctx context.Context, id string) (*model.PendingMutation, error) {
	row := r.db.QueryRowContext(ctx, mutationSelect+` WHERE id = ?`, id)
	return scanMutation(row)
}

func (r *QueueRepository) FindByIdempotencyKey(ctx context.Context, key string) (*model.PendingMutation, error) {
	row := r.db.QueryRowContext(
		ctx,
		mutationSelect+` WHERE idempotency_key = ? AND status IN (?, ?) ORDER BY id ASC LIMIT 1`,
		key,
		model.MutationPending,
		model.MutationProcessing,
	)
	return scanMutation(row)
}

func (r *QueueRepository) ListPending(ctx context.Context) ([]model.PendingMutation, error) {
	return r.listWhere(ctx, ` WHERE status = ? ORDER BY id ASC`, model.MutationPending)
}

func (r *QueueRepository) ListAll(ctx context.Context) ([]model.PendingMutation, error) {
	return r.listWhere(ctx, ` ORDER BY id ASC`)
}

func (r *QueueRepository) UpdateStatus(ctx context.Context, id, status, lastError string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE pending_mutations SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		status,
		lastError,
		formatTime(updatedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("update mutation status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update mutation status: %w", err)
	}
	if affected == 0 {
		return queue.ErrNotFound
	}
	return nil
}

func (r *QueueRepository) listWhere(ctx context.Context, clause string, args ...interface{}) ([]model.PendingMutation, error) {
	rows, err := r.db.QueryContext(ctx, mutationSelect+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending mutations: %w", err)
	}
	defer rows.Close()

	mutations := make([]model.PendingMutation, 0)
	for rows.Next() {
		m, scanErr := scanMutation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		mutations = append(mutations, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending mutations: %w", err)
	}
	return mutations, nil
}

func scanMutation(s scanner) (*model.PendingMutation, error) {
	var m model.PendingMutation
	var payload string
	var createdAt, updatedAt string
	err := s.Scan(
		&m.ID,
		&m.Kind,
		&m.IdempotencyKey,
		&payload,
		&m.Status,
		&m.LastError,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, queue.ErrNotFound
		}
		return nil, fmt.Errorf("scan pending mutation: %w", err)
	}

	m.Payload = json.RawMessage(payload)
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse mutation created_at: %w", err)
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse mutation updated_at: %w", err)
	}
	return &m, nil
}
