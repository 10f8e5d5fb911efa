package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"forestfocus/internal/integrity"
	"forestfocus/internal/model"
)

type Config struct {
	Port          string
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	MigrationsDir string
	CatalogPath   string
	Integrity     integrity.Config
}

func Load() Config {
	guard := integrity.DefaultConfig()
	guard.RequireForeground = getEnvBool("REQUIRE_FOREGROUND", guard.RequireForeground)
	guard.DetectClockJumps = getEnvBool("DETECT_CLOCK_JUMPS", guard.DetectClockJumps)
	guard.MaxClockJumpSeconds = getEnvInt("MAX_CLOCK_JUMP_SECONDS", guard.MaxClockJumpSeconds)
	guard.MaxBackgroundTimeSeconds = getEnvInt("MAX_BACKGROUND_TIME_SECONDS", guard.MaxBackgroundTimeSeconds)
	guard.SampleIntervalSeconds = getEnvInt("SAMPLE_INTERVAL_SECONDS", guard.SampleIntervalSeconds)

	return Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "./data/forestfocus.db"),
		JWTSecret:     getEnv("JWT_SECRET", "change-this-secret"),
		TokenTTL:      time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		CatalogPath:   getEnv("CATALOG_PATH", ""),
		Integrity:     guard,
	}
}

// Catalog holds the focus presets and tree species available to users.
type Catalog struct {
	Presets []model.FocusPreset `yaml:"presets"`
	Species []model.TreeSpecies `yaml:"species"`
}

// DefaultCatalog is the compiled-in fallback when no catalog file is
// configured.
func DefaultCatalog() Catalog {
	return Catalog{
		Presets: []model.FocusPreset{
			model.DefaultPreset(),
			{Name: "Deep Work", FocusMinutes: 50, ShortBreakMinutes: 10, LongBreakMinutes: 30, LongBreakEvery: 3},
			{Name: "Quick Sprint", FocusMinutes: 15, ShortBreakMinutes: 3, LongBreakMinutes: 10, LongBreakEvery: 4},
		},
		Species: []model.TreeSpecies{
			{ID: "oak", Name: "Oak", MaxStage: 6},
			{ID: "pine", Name: "Pine", MaxStage: 5},
			{ID: "cherry", Name: "Cherry Blossom", MaxStage: 7},
		},
	}
}

// LoadCatalog reads a YAML catalog file, falling back to the defaults when
// no path is set. Missing sections fall back per-section.
func LoadCatalog(path string) (Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}

	var loaded Catalog
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	if len(loaded.Presets) > 0 {
		catalog.Presets = loaded.Presets
	}
	if len(loaded.Species) > 0 {
		catalog.Species = loaded.Species
	}
	return catalog, nil
}

// SpeciesByID indexes the catalog for the growth pipeline.
func (c Catalog) SpeciesByID() map[string]model.TreeSpecies {
	out := make(map[string]model.TreeSpecies, len(c.Species))
	for _, s := range c.Species {
		out[s.ID] = s
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
