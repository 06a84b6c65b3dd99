// Package health models the equipment health index: an age-based ceiling
// that decays linearly over the useful life span, clamped by the assessment
// given in the maintenance plan, and reduced by penalties for late or missed
// services.
package health

import (
	"errors"
	"fmt"
	"math"
	"time"

	"upkeep/internal/domain"
)

var (
	ErrInvalidLifespan    = errors.New("useful life span must be > 0 months")
	ErrMissingHealthIndex = errors.New("health index missing")
)

const (
	MaxIndex = 100.0
	MinIndex = 0.0
)

// Coefficients weigh a penalty by tier and resolved status.
type Coefficients struct {
	Levels   map[domain.Level]float64  `yaml:"levels" json:"levels"`
	Statuses map[domain.Status]float64 `yaml:"statuses" json:"statuses"`
}

func DefaultCoefficients() Coefficients {
	return Coefficients{
		Levels: map[domain.Level]float64{
			domain.LevelA: 1,
			domain.LevelB: 2,
			domain.LevelC: 3,
			domain.LevelD: 4,
		},
		Statuses: map[domain.Status]float64{
			domain.StatusComplete:   0,
			domain.StatusOverdue:    0.5,
			domain.StatusIncomplete: 1,
		},
	}
}

func (c Coefficients) Validate() error {
	for _, l := range domain.PriorityOrder {
		v, ok := c.Levels[l]
		if !ok || v < 0 {
			return fmt.Errorf("penalty.levels.%s must be set and >= 0", l)
		}
	}
	for _, s := range []domain.Status{domain.StatusComplete, domain.StatusOverdue, domain.StatusIncomplete} {
		v, ok := c.Statuses[s]
		if !ok || v < 0 {
			return fmt.Errorf("penalty.statuses.%s must be set and >= 0", s)
		}
	}
	if c.Statuses[domain.StatusComplete] != 0 {
		return fmt.Errorf("penalty.statuses.complete must be 0")
	}
	return nil
}

// Penalty returns the score deducted when an event of level resolves to s.
// Levels and statuses without a coefficient never penalize.
func (c Coefficients) Penalty(level domain.Level, s domain.Status) float64 {
	if s != domain.StatusOverdue && s != domain.StatusIncomplete {
		return 0
	}
	return c.Levels[level] * c.Statuses[s]
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// IdealIndex is the theoretical index of eq on day now, from age alone.
func IdealIndex(eq domain.Equipment, now time.Time) (float64, error) {
	if eq.UsefulLifeSpanMonths <= 0 {
		return 0, ErrInvalidLifespan
	}
	made, err := domain.ParseDate(eq.DateOfManufacturing)
	if err != nil {
		return 0, fmt.Errorf("date of manufacturing: %w", err)
	}
	months := domain.MonthsBetween(made, now)
	ideal := MaxIndex - float64(months)*MaxIndex/float64(eq.UsefulLifeSpanMonths)
	return clamp(Round2(ideal)), nil
}

// TrueIndex caps the administrator's assessment at the age-based ceiling.
func TrueIndex(given int, ideal float64) float64 {
	return clamp(math.Min(float64(given), ideal))
}

// Assess computes the true index for eq under a plan's given assessment.
func Assess(eq domain.Equipment, givenHealthIndex int, now time.Time) (float64, error) {
	ideal, err := IdealIndex(eq, now)
	if err != nil {
		return 0, err
	}
	return TrueIndex(givenHealthIndex, ideal), nil
}

// Deduct lowers current by penalty, never below zero.
func Deduct(current *float64, penalty float64) (float64, error) {
	if current == nil {
		return 0, ErrMissingHealthIndex
	}
	return clamp(Round2(*current - penalty)), nil
}

func clamp(v float64) float64 {
	return math.Max(MinIndex, math.Min(MaxIndex, v))
}
