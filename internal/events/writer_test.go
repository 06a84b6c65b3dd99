package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upkeep/internal/domain"
)

type recorder struct {
	rows []domain.Activity
	err  error
}

func (r *recorder) AppendActivity(_ context.Context, a domain.Activity) error {
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, a)
	return nil
}

func TestAppendBuildsActivity(t *testing.T) {
	w := Writer{Now: func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600)) }}
	rec := &recorder{}
	err := w.Append(context.Background(), rec, Entry{
		Action:      "add",
		Title:       "Maintenance added",
		Description: "plan p1",
		EquipmentID: "eq-1",
		EntityKind:  "plan",
		EntityID:    "p1",
		Payload:     EventPayload{"events": 3},
	})
	require.NoError(t, err)
	require.Len(t, rec.rows, 1)
	a := rec.rows[0]
	assert.Equal(t, "2024-01-02T02:04:05Z", a.TS)
	assert.Equal(t, `{"events":3}`, a.Payload)
	assert.Equal(t, "eq-1", a.EquipmentID)
}

func TestAppendDefaultsPayloadAndPropagatesErrors(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, Writer{}.Append(context.Background(), rec, Entry{Action: "update"}))
	assert.Equal(t, "{}", rec.rows[0].Payload)

	rec.err = errors.New("disk full")
	assert.EqualError(t, Writer{}.Append(context.Background(), rec, Entry{Action: "update"}), "disk full")
}
