package bot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type ProfileCache struct {
	botsDir string
	cache   map[string]*Profile
	mu      sync.RWMutex
}

func NewProfileCache(botsDir string) *ProfileCache {
	return &ProfileCache{
		botsDir: botsDir,
		cache:   make(map[string]*Profile),
	}
}

func (pc *ProfileCache) Run() error {
	if _, err := os.Stat(pc.botsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(pc.botsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		botID := strings.TrimSuffix(filepath.Base(file), ".yml")

		profile, err := pc.LoadProfile(botID)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Bot profile loaded", "bot", botID, "enabled", profile.Settings.Enabled,
			"keywords", len(profile.Keywords), "blacklist", len(profile.Blacklist))
	}

	return nil
}

func (pc *ProfileCache) LoadProfile(botID string) (*Profile, error) {
	profileFile := pc.getProfileFilePath(botID)
	profile, err := pc.parseProfile(profileFile)
	if err != nil {
		return nil, err
	}

	profile.ID = botID

	if err := pc.validateProfile(profile); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", profileFile, err)
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.cache[profile.ID] = profile

	return profile, nil
}

func (pc *ProfileCache) GetProfile(botID string) (*Profile, error) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	profile, ok := pc.cache[botID]
	if !ok {
		return nil, fmt.Errorf("bot profile with id '%s' not found", botID)
	}
	return profile, nil
}

func (pc *ProfileCache) GetProfiles() map[string]*Profile {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	profilesCopy := make(map[string]*Profile, len(pc.cache))
	for k, v := range pc.cache {
		profilesCopy[k] = v
	}
	return profilesCopy
}

func (pc *ProfileCache) GetEnabledProfiles() map[string]*Profile {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	enabled := make(map[string]*Profile)
	for k, v := range pc.cache {
		if v.Settings.Enabled {
			enabled[k] = v
		}
	}
	return enabled
}

func (pc *ProfileCache) GetProfileCount() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return len(pc.cache)
}

func (pc *ProfileCache) parseProfile(profileFile string) (*Profile, error) {
	data, err := os.ReadFile(profileFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if profile.Settings.SimilarityThreshold == 0 {
		profile.Settings.SimilarityThreshold = 0.9
	}
	if profile.Settings.RecencyWindow == 0 {
		profile.Settings.RecencyWindow = 24
	}
	if profile.Settings.RecentWindowSize == 0 {
		profile.Settings.RecentWindowSize = 10
	}
	if profile.Settings.RefreshInterval == 0 {
		profile.Settings.RefreshInterval = 3600
	}
	if profile.Settings.Timeout == 0 {
		profile.Settings.Timeout = 30
	}

	return &profile, nil
}

func (pc *ProfileCache) validateProfile(profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("profile is nil")
	}

	requiredFields := map[string]string{
		"bot name":   profile.Name,
		"source URL": profile.SourceURL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if len(profile.Keywords) == 0 {
		return fmt.Errorf("at least one keyword is required")
	}

	if t := profile.Settings.SimilarityThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("similarity threshold must be in (0, 1], got %v", t)
	}

	nonNegativeFields := map[string]int{
		"recency window":     profile.Settings.RecencyWindow,
		"recent window size": profile.Settings.RecentWindowSize,
		"refresh interval":   profile.Settings.RefreshInterval,
		"timeout":            profile.Settings.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}

func (pc *ProfileCache) getProfileFilePath(botID string) string {
	return filepath.Join(pc.botsDir, botID+".yml")
}

// RecencyWindowDuration returns the recency window as time.Duration.
func (s *ProfileSettings) RecencyWindowDuration() time.Duration {
	if s.RecencyWindow <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.RecencyWindow) * time.Hour
}

// TimeoutDuration returns the per-call timeout as time.Duration.
func (s *ProfileSettings) TimeoutDuration() time.Duration {
	if s.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}

// RefreshIntervalDuration returns the refresh interval as time.Duration.
func (s *ProfileSettings) RefreshIntervalDuration() time.Duration {
	if s.RefreshInterval <= 0 {
		return 3600 * time.Second
	}
	return time.Duration(s.RefreshInterval) * time.Second
}
