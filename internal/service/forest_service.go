package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	apperrors "forestfocus/internal/errors"
	"forestfocus/internal/model"
	"forestfocus/internal/repository"
)

type ForestService struct {
	treeRepo *repository.TreeRepository
	species  map[string]model.TreeSpecies
}

func NewForestService(treeRepo *repository.TreeRepository, species map[string]model.TreeSpecies) *ForestService {
	return &ForestService{treeRepo: treeRepo, species: species}
}

func (s *ForestService) Plant(ctx context.Context, userID, speciesID string) (*model.TreeInstance, *apperrors.APIError) {
	if _, ok := s.species[speciesID]; !ok {
		return nil, apperrors.BadRequest("unknown_species", "speciesId is not in the catalog")
	}

	now := time.Now().UTC()
	tree := model.TreeInstance{
		ID:                   uuid.NewString(),
		UserID:               userID,
		SpeciesID:            speciesID,
		Stage:                0,
		LastGrowthSessionIDs: []string{},
		PlantedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.treeRepo.Insert(ctx, &tree); err != nil {
		return nil, apperrors.Internal("failed to plant tree")
	}
	return &tree, nil
}

func (s *ForestService) List(ctx context.Context, userID string) ([]*model.TreeInstance, *apperrors.APIError) {
	trees, err := s.treeRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to load trees")
	}
	return trees, nil
}

// Species exposes the catalog for UI pickers.
func (s *ForestService) Species() []model.TreeSpecies {
	out := make([]model.TreeSpecies, 0, len(s.species))
	for _, sp := range s.species {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
