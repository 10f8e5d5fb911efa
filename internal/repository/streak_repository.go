package repository

import (
	"context"
	"database/sql"
	"fmt"

	"forestfocus/internal/model"
)

type StreakRepository struct {
	db *sql.DB
}

func NewStreakRepository(db *sql.DB) *StreakRepository {
	return &StreakRepository{db: db}
}

// CreateInitial seeds a zero streak for a new user.
func (r *StreakRepository) CreateInitial(ctx context.Context, userID string, now string) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO streak_states (user_id, streak_days, last_completed_at, updated_at)
		 VALUES (?, 0, NULL, ?)`,
		userID,
		now,
	)
	if err != nil {
		return fmt.Errorf("create initial streak: %w", err)
	}
	return nil
}

func (r *StreakRepository) Get(ctx context.Context, userID string) (*model.StreakState, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT user_id, streak_days, last_completed_at, updated_at FROM streak_states WHERE user_id = ?`,
		userID,
	)
	return scanStreakState(row)
}

func (r *StreakRepository) GetTx(ctx context.Context, tx *sql.Tx, userID string) (*model.StreakState, error) {
	row := tx.QueryRowContext(
		ctx,
		`SELECT user_id, streak_days, last_completed_at, updated_at FROM streak_states WHERE user_id = ?`,
		userID,
	)
	return scanStreakState(row)
}

func (r *StreakRepository) UpsertTx(ctx context.Context, tx *sql.Tx, state *model.StreakState) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO streak_states (user_id, streak_days, last_completed_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			streak_days = excluded.streak_days,
			last_completed_at = excluded.last_completed_at,
			updated_at = excluded.updated_at`,
		state.UserID,
		state.StreakDays,
		formatTimePtr(state.LastCompletedAt),
		formatTime(state.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert streak: %w", err)
	}
	return nil
}

func scanStreakState(s scanner) (*model.StreakState, error) {
	var state model.StreakState
	var lastCompleted sql.NullString
	var updatedAt string
	if err := s.Scan(&state.UserID, &state.StreakDays, &lastCompleted, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan streak: %w", err)
	}

	if lastCompleted.Valid {
		parsed, err := parseTime(lastCompleted.String)
		if err != nil {
			return nil, fmt.Errorf("parse streak last_completed_at: %w", err)
		}
		state.LastCompletedAt = &parsed
	}

	parsed, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse streak updated_at: %w", err)
	}
	state.UpdatedAt = parsed
	return &state, nil
}
