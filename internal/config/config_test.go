package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upkeep/internal/domain"
	"upkeep/internal/engine/health"
	"upkeep/internal/engine/status"
)

func TestDefaultMatchesEngineDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, status.DefaultThresholds(), cfg.Status)
	assert.Equal(t, status.DefaultPalette(), cfg.Palette)
	assert.Equal(t, health.DefaultCoefficients(), cfg.Penalty)
	assert.False(t, cfg.Scheduling.DropFirstOccurrence)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.SweepInterval)
	assert.Equal(t, time.Hour, cfg.Jobs.EmergencyInterval)
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
scheduling:
  drop_first_occurrence: true
penalty:
  levels:
    D: 8
jobs:
  sweep_interval: 6h
`))
	require.NoError(t, err)
	assert.True(t, cfg.Scheduling.DropFirstOccurrence)
	assert.Equal(t, 8.0, cfg.Penalty.Levels[domain.LevelD])
	assert.Equal(t, 1.0, cfg.Penalty.Levels[domain.LevelA])
	assert.Equal(t, 6*time.Hour, cfg.Jobs.SweepInterval)
	assert.Equal(t, 3, cfg.Status.CompleteWithinDays)
}

func TestFromYAMLRejectsInvalid(t *testing.T) {
	_, err := FromYAML([]byte("status: [1, 2]"))
	assert.Error(t, err)

	_, err = FromYAML([]byte("status:\n  complete_within_days: 0\n"))
	assert.Error(t, err)

	_, err = FromYAML([]byte("penalty:\n  statuses:\n    complete: 1\n"))
	assert.Error(t, err)

	_, err = FromYAML([]byte("log:\n  level: loud\n"))
	assert.Error(t, err)

	_, err = FromYAML([]byte("jobs:\n  enabled: true\n  sweep_interval: 0s\n"))
	assert.Error(t, err)
}

func TestLoadOptionalAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(Path(dir), []byte(GenerateDefault()), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
