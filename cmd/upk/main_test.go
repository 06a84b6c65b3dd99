package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upkeep/internal/domain"
)

func TestParseTiers(t *testing.T) {
	tiers, err := parseTiers([]string{"A=40:1", "b=160:2", "D=480:3"})
	require.NoError(t, err)
	assert.Equal(t, map[domain.Level]domain.Tier{
		domain.LevelA: {Hours: 40, DurationDays: 1},
		domain.LevelB: {Hours: 160, DurationDays: 2},
		domain.LevelD: {Hours: 480, DurationDays: 3},
	}, tiers)

	for _, bad := range []string{"A40:1", "A=40", "A=x:1", "A=40:y"} {
		_, err := parseTiers([]string{bad})
		assert.Error(t, err, bad)
	}
	_, err = parseTiers([]string{"A=1:1", "a=2:2"})
	assert.ErrorContains(t, err, "given twice")
}
