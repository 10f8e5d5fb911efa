package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"forestfocus/internal/model"
)

type TreeRepository struct {
	db *sql.DB
}

func NewTreeRepository(db *sql.DB) *TreeRepository {
	return &TreeRepository{db: db}
}

func (r *TreeRepository) Insert(ctx context.Context, tree *model.TreeInstance) error {
	growthIDs, err := marshalGrowthIDs(tree.LastGrowthSessionIDs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO trees (
			id, user_id, species_id, stage, growth_session_ids,
			total_growth_sessions, planted_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tree.ID,
		tree.UserID,
		tree.SpeciesID,
		tree.Stage,
		growthIDs,
		tree.TotalGrowthSessions,
		formatTime(tree.PlantedAt),
		formatTime(tree.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert tree: %w", err)
	}
	return nil
}

func (r *TreeRepository) ListByUser(ctx context.Context, userID string) ([]*model.TreeInstance, error) {
	rows, err := r.db.QueryContext(ctx, treeSelect+` WHERE user_id = ? ORDER BY planted_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list trees: %w", err)
	}
	defer rows.Close()
	return collectTrees(rows)
}

func (r *TreeRepository) ListByUserTx(ctx context.Context, tx *sql.Tx, userID string) ([]*model.TreeInstance, error) {
	rows, err := tx.QueryContext(ctx, treeSelect+` WHERE user_id = ? ORDER BY planted_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list trees: %w", err)
	}
	defer rows.Close()
	return collectTrees(rows)
}

func (r *TreeRepository) UpdateTx(ctx context.Context, tx *sql.Tx, tree *model.TreeInstance) error {
	growthIDs, err := marshalGrowthIDs(tree.LastGrowthSessionIDs)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(
		ctx,
		`UPDATE trees
		 SET stage = ?,
			 growth_session_ids = ?,
			 total_growth_sessions = ?,
			 updated_at = ?
		 WHERE id = ?`,
		tree.Stage,
		growthIDs,
		tree.TotalGrowthSessions,
		formatTime(tree.UpdatedAt),
		tree.ID,
	)
	if err != nil {
		return fmt.Errorf("update tree: %w", err)
	}
	return nil
}

const treeSelect = `SELECT id, user_id, species_id, stage, growth_session_ids,
	total_growth_sessions, planted_at, updated_at FROM trees`

func collectTrees(rows *sql.Rows) ([]*model.TreeInstance, error) {
	trees := make([]*model.TreeInstance, 0)
	for rows.Next() {
		tree, err := scanTree(rows)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trees: %w", err)
	}
	return trees, nil
}

func scanTree(s scanner) (*model.TreeInstance, error) {
	var tree model.TreeInstance
	var growthIDs string
	var plantedAt, updatedAt string
	err := s.Scan(
		&tree.ID,
		&tree.UserID,
		&tree.SpeciesID,
		&tree.Stage,
		&growthIDs,
		&tree.TotalGrowthSessions,
		&plantedAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan tree: %w", err)
	}

	if err := json.Unmarshal([]byte(growthIDs), &tree.LastGrowthSessionIDs); err != nil {
		return nil, fmt.Errorf("parse tree growth_session_ids: %w", err)
	}
	if tree.PlantedAt, err = parseTime(plantedAt); err != nil {
		return nil, fmt.Errorf("parse tree planted_at: %w", err)
	}
	if tree.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse tree updated_at: %w", err)
	}
	return &tree, nil
}

func marshalGrowthIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal growth_session_ids: %w", err)
	}
	return string(raw), nil
}
