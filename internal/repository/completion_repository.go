package repository

import (
	"context"
	"database/sql"
	"fmt"

	"forestfocus/internal/model"
)

// CompletionRepository is the reward ledger. The fingerprint column is
// unique: the second insert of a fingerprint fails, which backs the
// exactly-once-effective guarantee.
type CompletionRepository struct {
	db *sql.DB
}

func NewCompletionRepository(db *sql.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

func (r *CompletionRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

const completionSelect = `SELECT id, user_id, session_id, fingerprint, started_at,
	focus_minutes, points_earned, streak_days, created_at FROM focus_completions`

func (r *CompletionRepository) GetByFingerprint(ctx context.Context, fp string) (*model.CompletionRecord, error) {
	row := r.db.QueryRowContext(ctx, completionSelect+` WHERE fingerprint = ?`, fp)
	return scanCompletion(row)
}

func (r *CompletionRepository) GetByFingerprintTx(ctx context.Context, tx *sql.Tx, fp string) (*model.CompletionRecord, error) {
	row := tx.QueryRowContext(ctx, completionSelect+` WHERE fingerprint = ?`, fp)
	return scanCompletion(row)
}

func (r *CompletionRepository) InsertTx(ctx context.Context, tx *sql.Tx, rec *model.CompletionRecord) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO focus_completions (
			id, user_id, session_id, fingerprint, started_at,
			focus_minutes, points_earned, streak_days, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.UserID,
		rec.SessionID,
		rec.Fingerprint,
		formatTime(rec.StartedAt),
		rec.FocusMinutes,
		rec.PointsEarned,
		rec.StreakDays,
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

func (r *CompletionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.CompletionRecord, error) {
	rows, err := r.db.QueryContext(
		ctx,
		completionSelect+` WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	records := make([]model.CompletionRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanCompletion(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completions: %w", err)
	}
	return records, nil
}

func scanCompletion(s scanner) (*model.CompletionRecord, error) {
	var rec model.CompletionRecord
	var startedAt, createdAt string
	err := s.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.SessionID,
		&rec.Fingerprint,
		&startedAt,
		&rec.FocusMinutes,
		&rec.PointsEarned,
		&rec.StreakDays,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan completion: %w", err)
	}

	if rec.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse completion started_at: %w", err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse completion created_at: %w", err)
	}
	return &rec, nil
}
