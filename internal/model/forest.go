package model

import "time"

// TreeSpecies is a catalog entry. MaxStage is the stage count, so a grown
// tree tops out at stage MaxStage-1.
type TreeSpecies struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	MaxStage int    `json:"maxStage" yaml:"max_stage"`
}

type TreeInstance struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"userId"`
	SpeciesID            string    `json:"speciesId"`
	Stage                int       `json:"stage"`
	LastGrowthSessionIDs []string  `json:"lastGrowthSessionIds"`
	TotalGrowthSessions  int       `json:"totalGrowthSessions"`
	PlantedAt            time.Time `json:"plantedAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// HasGrowthFor reports whether the session behind fp already grew this tree.
func (t *TreeInstance) HasGrowthFor(fp string) bool {
	for _, id := range t.LastGrowthSessionIDs {
		if id == fp {
			return true
		}
	}
	return false
}

// GrownTree is the per-tree slice of a completion response.
type GrownTree struct {
	TreeID   string `json:"treeId"`
	NewStage int    `json:"newStage"`
	Stages   int    `json:"stagesGained"`
}
