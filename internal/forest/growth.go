// Package forest applies validated focus completions to a user's planted
// trees. Growth is idempotent per tree and session fingerprint.
package forest

import (
	"time"

	"forestfocus/internal/model"
)

// longSessionMinutes is the focus length that earns a double growth step.
const longSessionMinutes = 50

// Grow advances tree by one stage (two for sessions of 50+ minutes),
// clamped to species.MaxStage-1. A fingerprint already present in the
// tree's dedup set makes the call a no-op.
func Grow(tree *model.TreeInstance, species model.TreeSpecies, fp string, focusMinutes int, now time.Time) bool {
	if tree.HasGrowthFor(fp) {
		return false
	}

	stages := 1
	if focusMinutes >= longSessionMinutes {
		stages = 2
	}

	maxStage := species.MaxStage - 1
	if maxStage < 0 {
		maxStage = 0
	}

	newStage := tree.Stage + stages
	if newStage > maxStage {
		newStage = maxStage
	}
	if newStage < tree.Stage {
		newStage = tree.Stage
	}

	tree.Stage = newStage
	tree.LastGrowthSessionIDs = append(tree.LastGrowthSessionIDs, fp)
	tree.TotalGrowthSessions++
	tree.UpdatedAt = now.UTC()
	return true
}

// GrowAll runs one completion across every tree independently, each gated
// by its own dedup set, and returns the trees that actually grew.
func GrowAll(trees []*model.TreeInstance, speciesByID map[string]model.TreeSpecies, fp string, focusMinutes int, now time.Time) []model.GrownTree {
	grown := make([]model.GrownTree, 0, len(trees))
	for _, tree := range trees {
		species, ok := speciesByID[tree.SpeciesID]
		if !ok {
			continue
		}
		before := tree.Stage
		if Grow(tree, species, fp, focusMinutes, now) {
			grown = append(grown, model.GrownTree{
				TreeID:   tree.ID,
				NewStage: tree.Stage,
				Stages:   tree.Stage - before,
			})
		}
	}
	return grown
}
