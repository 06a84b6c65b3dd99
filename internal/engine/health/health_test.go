package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upkeep/internal/domain"
)

var now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestIdealIndexDecay(t *testing.T) {
	eq := domain.Equipment{DateOfManufacturing: "2021-01-01", UsefulLifeSpanMonths: 180}
	ideal, err := IdealIndex(eq, now)
	require.NoError(t, err)
	assert.Equal(t, 80.0, ideal)
}

func TestTrueIndexClamp(t *testing.T) {
	eq := domain.Equipment{DateOfManufacturing: "2021-01-01", UsefulLifeSpanMonths: 180}
	got, err := Assess(eq, 95, now)
	require.NoError(t, err)
	assert.Equal(t, 80.0, got)

	got, err = Assess(eq, 60, now)
	require.NoError(t, err)
	assert.Equal(t, 60.0, got)
}

func TestIdealIndexBounds(t *testing.T) {
	old := domain.Equipment{DateOfManufacturing: "1990-01-01", UsefulLifeSpanMonths: 60}
	ideal, err := IdealIndex(old, now)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ideal)

	fresh := domain.Equipment{DateOfManufacturing: "2024-06-01", UsefulLifeSpanMonths: 60}
	ideal, err = IdealIndex(fresh, now)
	require.NoError(t, err)
	assert.Equal(t, 100.0, ideal)

	_, err = IdealIndex(domain.Equipment{DateOfManufacturing: "2020-01-01"}, now)
	assert.ErrorIs(t, err, ErrInvalidLifespan)
	_, err = IdealIndex(domain.Equipment{DateOfManufacturing: "yesterday", UsefulLifeSpanMonths: 12}, now)
	assert.Error(t, err)
}

func TestPenalty(t *testing.T) {
	c := DefaultCoefficients()
	require.NoError(t, c.Validate())
	cases := []struct {
		level  domain.Level
		status domain.Status
		want   float64
	}{
		{domain.LevelA, domain.StatusComplete, 0},
		{domain.LevelA, domain.StatusOverdue, 0.5},
		{domain.LevelB, domain.StatusIncomplete, 2},
		{domain.LevelC, domain.StatusOverdue, 1.5},
		{domain.LevelD, domain.StatusIncomplete, 4},
		{domain.LevelE, domain.StatusIncomplete, 0},
		{domain.LevelD, domain.StatusUpcoming, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Penalty(tc.level, tc.status), "%s/%s", tc.level, tc.status)
	}
}

func TestDeduct(t *testing.T) {
	current := 80.0
	got, err := Deduct(&current, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 78.5, got)

	low := 0.3
	got, err = Deduct(&low, 4)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	_, err = Deduct(nil, 1)
	assert.ErrorIs(t, err, ErrMissingHealthIndex)
}

func TestCoefficientsValidate(t *testing.T) {
	c := DefaultCoefficients()
	c.Statuses[domain.StatusComplete] = 0.1
	assert.Error(t, c.Validate())

	c = DefaultCoefficients()
	delete(c.Levels, domain.LevelB)
	assert.Error(t, c.Validate())
}
