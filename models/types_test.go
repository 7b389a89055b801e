package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"voting-ledger/models"
)

func TestCampaignActiveWindow(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c := &models.Campaign{
		ID:         1,
		Name:       "Board Election",
		Candidates: []string{"Alice", "Bob"},
		StartTime:  start,
		EndTime:    start.Add(24 * time.Hour),
	}

	assert.False(t, c.IsActive(start.Add(-time.Nanosecond)))
	assert.True(t, c.IsActive(start))
	assert.True(t, c.IsActive(start.Add(23*time.Hour)))
	assert.False(t, c.IsActive(start.Add(24*time.Hour)))

	view := c.View(start.Add(time.Hour))
	assert.True(t, view.IsActive)
	view.Candidates[0] = "Mallory"
	assert.Equal(t, "Alice", c.Candidates[0])
}

func TestHasCandidate(t *testing.T) {
	c := &models.Campaign{Candidates: []string{"Alice", "Bob"}}
	assert.True(t, c.HasCandidate("Bob"))
	assert.False(t, c.HasCandidate("bob"))
	assert.False(t, c.HasCandidate(""))
}

func TestVoterStatusStrings(t *testing.T) {
	assert.Equal(t, "not_registered", models.Unregistered.String())
	assert.Equal(t, "can_vote", models.CanVote.String())
	assert.Equal(t, "voted", models.AlreadyVoted.String())
}

func TestVoterViewHidesCredential(t *testing.T) {
	v := &models.Voter{VoterID: "v1", Name: "Ann", Email: "ann@example.com", CredentialHash: "secret", HasVoted: true}
	assert.Equal(t, models.VoterView{VoterID: "v1", Name: "Ann", Email: "ann@example.com", HasVoted: true}, v.View())
}
