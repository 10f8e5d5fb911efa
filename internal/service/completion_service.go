package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "forestfocus/internal/errors"
	"forestfocus/internal/fingerprint"
	"forestfocus/internal/forest"
	"forestfocus/internal/model"
	"forestfocus/internal/repository"
	"forestfocus/internal/reward"
)

// maxFocusMinutes bounds one submission; anything longer than a day is a
// malformed payload.
const maxFocusMinutes = 24 * 60

// CompletionService is the server side of the completion pipeline: it
// validates the payload and fingerprint, then applies streak, points and
// tree growth in one transaction keyed by the fingerprint.
type CompletionService struct {
	completionRepo *repository.CompletionRepository
	streakRepo     *repository.StreakRepository
	treeRepo       *repository.TreeRepository
	species        map[string]model.TreeSpecies
}

func NewCompletionService(
	completionRepo *repository.CompletionRepository,
	streakRepo *repository.StreakRepository,
	treeRepo *repository.TreeRepository,
	species map[string]model.TreeSpecies,
) *CompletionService {
	return &CompletionService{
		completionRepo: completionRepo,
		streakRepo:     streakRepo,
		treeRepo:       treeRepo,
		species:        species,
	}
}

func (s *CompletionService) Submit(ctx context.Context, userID string, input model.CompletionSubmission) (*model.CompletionResult, *apperrors.APIError) {
	if apiErr := validateSubmission(input); apiErr != nil {
		return nil, apiErr
	}

	// Tamper check: the fingerprint must be reproducible from the session
	// identity and start time the client claims.
	expected := fingerprint.ForSession(input.SessionID, input.StartedAt)
	if expected != input.Fingerprint {
		return nil, apperrors.UnprocessableEntity("fingerprint_mismatch", "completion payload failed the integrity check")
	}

	now := time.Now().UTC()
	tx, err := s.completionRepo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	// Idempotency: a fingerprint that already landed returns its original
	// outcome without new effects.
	if existing, err := s.completionRepo.GetByFingerprintTx(ctx, tx, input.Fingerprint); err == nil {
		return &model.CompletionResult{
			Success:      true,
			Duplicate:    true,
			PointsEarned: existing.PointsEarned,
			NewStreak:    existing.StreakDays,
			TreesGrown:   []model.GrownTree{},
		}, nil
	} else if err != repository.ErrNotFound {
		return nil, apperrors.Internal("failed to check completion ledger")
	}

	streak := model.StreakState{UserID: userID}
	if stored, err := s.streakRepo.GetTx(ctx, tx, userID); err == nil {
		streak = *stored
	} else if err != repository.ErrNotFound {
		return nil, apperrors.Internal("failed to load streak state")
	}

	newStreak, _ := reward.ComputeStreak(streak, now)
	outcome := reward.ComputePoints(input.FocusMinutes, newStreak.StreakDays)

	record := model.CompletionRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		SessionID:    input.SessionID,
		Fingerprint:  input.Fingerprint,
		StartedAt:    input.StartedAt.UTC(),
		FocusMinutes: input.FocusMinutes,
		PointsEarned: outcome.FinalPoints,
		StreakDays:   newStreak.StreakDays,
		CreatedAt:    now,
	}
	if err := s.completionRepo.InsertTx(ctx, tx, &record); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			// Lost a race with a concurrent duplicate; that delivery won.
			// Release the tx first: the pool runs on a single connection.
			_ = tx.Rollback()
			return s.storedOutcome(ctx, input.Fingerprint)
		}
		return nil, apperrors.Internal("failed to record completion")
	}

	if err := s.streakRepo.UpsertTx(ctx, tx, &newStreak); err != nil {
		return nil, apperrors.Internal("failed to update streak")
	}

	trees, err := s.treeRepo.ListByUserTx(ctx, tx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to load trees")
	}
	grown := forest.GrowAll(trees, s.species, input.Fingerprint, input.FocusMinutes, now)
	for _, tree := range trees {
		if err := s.treeRepo.UpdateTx(ctx, tx, tree); err != nil {
			return nil, apperrors.Internal("failed to grow tree")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("failed to commit completion")
	}

	return &model.CompletionResult{
		Success:      true,
		PointsEarned: outcome.FinalPoints,
		NewStreak:    newStreak.StreakDays,
		TreesGrown:   grown,
	}, nil
}

func (s *CompletionService) GetStreak(ctx context.Context, userID string) (*model.StreakState, *apperrors.APIError) {
	streak, err := s.streakRepo.Get(ctx, userID)
	if err == repository.ErrNotFound {
		return &model.StreakState{UserID: userID}, nil
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load streak state")
	}
	return streak, nil
}

func (s *CompletionService) GetHistory(ctx context.Context, userID string, limit int) ([]model.CompletionRecord, *apperrors.APIError) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, err := s.completionRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to load history")
	}
	return records, nil
}

func (s *CompletionService) storedOutcome(ctx context.Context, fp string) (*model.CompletionResult, *apperrors.APIError) {
	existing, err := s.completionRepo.GetByFingerprint(ctx, fp)
	if err != nil {
		return nil, apperrors.Internal("failed to read completion ledger")
	}
	return &model.CompletionResult{
		Success:      true,
		Duplicate:    true,
		PointsEarned: existing.PointsEarned,
		NewStreak:    existing.StreakDays,
		TreesGrown:   []model.GrownTree{},
	}, nil
}

func validateSubmission(input model.CompletionSubmission) *apperrors.APIError {
	if input.SessionID == "" {
		return apperrors.BadRequest("missing_session_id", "sessionId is required")
	}
	if input.Fingerprint == "" {
		return apperrors.BadRequest("missing_fingerprint", "fingerprint is required")
	}
	if input.StartedAt.IsZero() {
		return apperrors.BadRequest("missing_started_at", "startedAt is required")
	}
	if input.FocusMinutes <= 0 || input.FocusMinutes > maxFocusMinutes {
		return apperrors.BadRequest("invalid_focus_minutes", "focusMinutes must be between 1 and 1440")
	}
	return nil
}
