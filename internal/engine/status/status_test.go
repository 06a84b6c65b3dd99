package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upkeep/internal/domain"
)

func date(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAtGeneration(t *testing.T) {
	c := New(DefaultThresholds())
	today := date("2024-01-10")
	cases := []struct {
		scheduled string
		want      domain.Status
	}{
		{"2024-01-05", domain.StatusOverdue},
		{"2023-12-20", domain.StatusIncomplete},
		{"2024-01-15", domain.StatusUpcoming},
		{"2024-01-10", domain.StatusUpcoming},
		{"2023-12-31", domain.StatusOverdue},
		{"2023-12-30", domain.StatusIncomplete},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.AtGeneration(today, date(tc.scheduled)), tc.scheduled)
	}
}

func TestAtCompletion(t *testing.T) {
	c := New(DefaultThresholds())
	scheduled := date("2024-01-05")
	cases := []struct {
		performed string
		want      domain.Status
	}{
		{"2024-01-07", domain.StatusComplete},
		{"2024-01-13", domain.StatusOverdue},
		{"2024-01-20", domain.StatusIncomplete},
		{"2024-01-01", domain.StatusComplete},
		{"2024-01-08", domain.StatusOverdue},
		{"2024-01-15", domain.StatusIncomplete},
	}
	for _, tc := range cases {
		performed := date(tc.performed)
		assert.Equal(t, tc.want, c.AtCompletion(performed, scheduled), tc.performed)
	}
}

func TestResolve(t *testing.T) {
	c := New(DefaultThresholds())
	ev := domain.Event{Level: domain.LevelB, Status: domain.StatusOverdue, ScheduledAt: "2024-01-05"}

	got, err := c.Resolve(ev, date("2024-01-06"), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, got)

	forced := domain.StatusIncomplete
	got, err = c.Resolve(ev, date("2024-01-06"), &forced)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIncomplete, got)

	bogus := domain.StatusComplete
	_, err = c.Resolve(ev, date("2024-01-06"), &bogus)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	ev.Status = domain.StatusComplete
	_, err = c.Resolve(ev, date("2024-01-06"), nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	ev.Status = domain.StatusIncomplete
	got, err = c.Resolve(ev, date("2024-01-06"), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, got)

	emergency := domain.Event{Level: domain.LevelE, Status: domain.StatusEmergency, ScheduledAt: "2023-01-01"}
	got, err = c.Resolve(emergency, date("2024-01-06"), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, got)
}

func TestSweepable(t *testing.T) {
	c := New(DefaultThresholds())
	today := date("2024-01-20")
	performed := "2024-01-03"
	cases := []struct {
		name string
		ev   domain.Event
		want bool
	}{
		{"overdue eleven days", domain.Event{Status: domain.StatusOverdue, Start: "2024-01-09"}, true},
		{"overdue ten days", domain.Event{Status: domain.StatusOverdue, Start: "2024-01-10"}, false},
		{"overdue but performed", domain.Event{Status: domain.StatusOverdue, Start: "2024-01-01", PerformedAt: &performed}, false},
		{"upcoming in the past", domain.Event{Status: domain.StatusUpcoming, Start: "2024-01-01"}, false},
		{"already incomplete", domain.Event{Status: domain.StatusIncomplete, Start: "2024-01-01"}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Sweepable(today, tc.ev), tc.name)
		assert.Equal(t, tc.want, SweepableBefore(tc.ev, "2024-01-10"), tc.name)
	}
	assert.Equal(t, "2024-01-10", domain.FormatDate(c.SweepCutoff(today)))
}

func TestThresholdsValidate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())
	assert.Error(t, Thresholds{CompleteWithinDays: 0, OverdueWithinDays: 10}.Validate())
	assert.Error(t, Thresholds{CompleteWithinDays: 5, OverdueWithinDays: 3}.Validate())
}

func TestPaletteColor(t *testing.T) {
	p := DefaultPalette()
	require.NoError(t, p.Validate())
	performed := "2024-01-09"
	cases := []struct {
		ev   domain.Event
		want string
	}{
		{domain.Event{Level: domain.LevelA, Status: domain.StatusUpcoming}, p.Upcoming[domain.LevelA]},
		{domain.Event{Level: domain.LevelD, Status: domain.StatusOverdue}, p.Upcoming[domain.LevelD]},
		{domain.Event{Level: domain.LevelD, Status: domain.StatusOverdue, PerformedAt: &performed}, p.Complete[domain.LevelD]},
		{domain.Event{Level: domain.LevelB, Status: domain.StatusComplete, PerformedAt: &performed}, p.Complete[domain.LevelB]},
		{domain.Event{Level: domain.LevelC, Status: domain.StatusIncomplete}, p.Incomplete},
		{domain.Event{Level: domain.LevelE, Status: domain.StatusEmergency}, p.Emergency},
		{domain.Event{Level: domain.LevelE, Status: domain.StatusComplete, PerformedAt: &performed}, p.Emergency},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, p.Color(tc.ev), "%s/%s", tc.ev.Level, tc.ev.Status)
	}

	painted := p.Paint([]domain.Event{{Level: domain.LevelA, Status: domain.StatusUpcoming}})
	assert.Equal(t, p.Upcoming[domain.LevelA], painted[0].Color)

	broken := DefaultPalette()
	delete(broken.Complete, domain.LevelC)
	assert.Error(t, broken.Validate())
}
