package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upkeep/internal/domain"
	"upkeep/internal/engine/status"
	"upkeep/internal/ports"
)

func seed(t *testing.T, s *Store) {
	t.Helper()
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		if err := tx.InsertEquipment(ctx, domain.Equipment{ID: "eq-1", Name: "Pump"}); err != nil {
			return err
		}
		return tx.InsertEvents(ctx, []domain.Event{
			{ID: "ev-1", EquipmentID: "eq-1", Level: domain.LevelA, Status: domain.StatusOverdue, Start: "2024-01-01", End: "2024-01-01"},
			{ID: "ev-2", EquipmentID: "eq-1", Level: domain.LevelE, Status: domain.StatusEmergency, Start: "2024-01-02", End: "2024-01-02"},
		})
	}))
}

func TestRollbackDiscardsWrites(t *testing.T) {
	s := New()
	seed(t, s)
	boom := errors.New("boom")
	err := s.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		require.NoError(t, tx.InsertPlan(ctx, domain.Plan{ID: "p-1", EquipmentID: "eq-1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	err = s.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		_, err := tx.GetPlan(ctx, "p-1")
		return err
	})
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestHealthIndexCompareAndSet(t *testing.T) {
	s := New()
	seed(t, s)
	err := s.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		if err := tx.UpdateEquipmentHealthIndex(ctx, "eq-1", 80, nil); err != nil {
			return err
		}
		stale := 90.0
		return tx.UpdateEquipmentHealthIndex(ctx, "eq-1", 70, &stale)
	})
	assert.ErrorIs(t, err, ports.ErrConflict)
}

func TestMarkIncompleteRechecks(t *testing.T) {
	s := New()
	seed(t, s)
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		performed := "2024-01-03"
		_, err := tx.UpdateEvent(ctx, "ev-1", ports.EventPatch{PerformedAt: &performed})
		if err != nil {
			return err
		}
		ok, err := tx.MarkIncomplete(ctx, "ev-1", "2024-02-01")
		assert.False(t, ok)
		return err
	}))
}

func TestSweepCandidatesFollowClassifier(t *testing.T) {
	s := New()
	seed(t, s)
	performed := "2024-01-02"
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		return tx.InsertEvents(ctx, []domain.Event{
			{ID: "ev-edge", EquipmentID: "eq-1", Level: domain.LevelB, Status: domain.StatusOverdue, Start: "2024-01-10", End: "2024-01-10"},
			{ID: "ev-done", EquipmentID: "eq-1", Level: domain.LevelB, Status: domain.StatusOverdue, Start: "2024-01-01", End: "2024-01-01", PerformedAt: &performed},
			{ID: "ev-upcoming", EquipmentID: "eq-1", Level: domain.LevelB, Status: domain.StatusUpcoming, Start: "2024-01-01", End: "2024-01-01"},
		})
	}))
	c := status.New(status.DefaultThresholds())
	today, err := domain.ParseDate("2024-01-20")
	require.NoError(t, err)
	cutoff := domain.FormatDate(c.SweepCutoff(today))

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		all, err := tx.ListEvents(ctx, domain.EventFilter{})
		require.NoError(t, err)
		var want []string
		for _, ev := range all {
			if c.Sweepable(today, ev) {
				want = append(want, ev.ID)
			}
		}
		candidates, err := tx.ListSweepCandidates(ctx, cutoff)
		require.NoError(t, err)
		var got []string
		for _, ev := range candidates {
			got = append(got, ev.ID)
		}
		assert.Equal(t, []string{"ev-1"}, got)
		assert.ElementsMatch(t, want, got)
		return nil
	}))
}

func TestUpdateEventExpectStatus(t *testing.T) {
	s := New()
	seed(t, s)
	err := s.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		want := domain.StatusUpcoming
		next := domain.StatusComplete
		_, err := tx.UpdateEvent(ctx, "ev-1", ports.EventPatch{Status: &next, ExpectStatus: &want})
		return err
	})
	assert.ErrorIs(t, err, ports.ErrConflict)
}

func TestMoveEmergencyEndsIdempotent(t *testing.T) {
	s := New()
	seed(t, s)
	var first, second []domain.Event
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		var err error
		first, err = tx.MoveEmergencyEnds(ctx, "2024-01-05")
		return err
	}))
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		var err error
		second, err = tx.MoveEmergencyEnds(ctx, "2024-01-05")
		return err
	}))
	require.Len(t, first, 1)
	assert.Equal(t, "2024-01-05", first[0].End)
	assert.Empty(t, second)
}

func TestFailOn(t *testing.T) {
	s := New()
	boom := errors.New("disk full")
	s.FailOn("InsertEquipment", boom)
	err := s.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		return tx.InsertEquipment(ctx, domain.Equipment{ID: "eq-9"})
	})
	assert.ErrorIs(t, err, boom)
	s.FailOn("InsertEquipment", nil)
	assert.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		return tx.InsertEquipment(ctx, domain.Equipment{ID: "eq-9"})
	}))
}
