package session

import (
	"testing"
	"time"

	"github.com/minwoopark/alarmsense/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() Session {
	return Session{
		AlarmDate:  "2026-01-31",
		AlarmEqpID: "EQP12",
		AlarmKPI:   "THP",
		Candidates: []models.RootCause{
			{Cause: "RCP23/RCP24 repeated DOWN events", Probability: 55, Evidence: "~55 min total downtime"},
			{Cause: "Upstream WIP starvation", Probability: 25, Evidence: "lot arrivals dropped after 10:00"},
		},
	}
}

func TestPutGet_Roundtrip(t *testing.T) {
	s := NewStore(30 * time.Minute)

	id := s.Put(testSession())
	require.NotEmpty(t, id)

	got, found := s.Get(id)
	require.True(t, found)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "EQP12", got.AlarmEqpID)
	assert.Len(t, got.Candidates, 2)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestPut_MintsUniqueIDs(t *testing.T) {
	s := NewStore(30 * time.Minute)

	a := s.Put(testSession())
	b := s.Put(testSession())
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, s.Len())
}

func TestGet_UnknownID(t *testing.T) {
	s := NewStore(30 * time.Minute)

	_, found := s.Get("no-such-session")
	assert.False(t, found)
}

func TestGet_ExpiredSessionIsNotFound(t *testing.T) {
	s := NewStore(30 * time.Minute)
	clock := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	id := s.Put(testSession())

	clock = clock.Add(29 * time.Minute)
	_, found := s.Get(id)
	assert.True(t, found)

	clock = clock.Add(2 * time.Minute)
	_, found = s.Get(id)
	assert.False(t, found)
	assert.Equal(t, 0, s.Len())
}

func TestDelete(t *testing.T) {
	s := NewStore(30 * time.Minute)
	id := s.Put(testSession())

	s.Delete(id)

	_, found := s.Get(id)
	assert.False(t, found)
}
