package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"voting-ledger/models"
	"voting-ledger/service"
)

func TestTallyIgnoresForeignTransactions(t *testing.T) {
	campaign := &models.Campaign{ID: 3, Name: "Board", Candidates: []string{"Alice", "Bob"}}

	blocks := []*models.Block{
		models.NewGenesisBlock(1),
		models.NewBlock(1, 2, []models.Transaction{
			models.NewRewardTransaction("node0"),
			{CampaignID: 3, Candidate: "Alice", VoterID: "v1"},
			{CampaignID: 4, Candidate: "Bob", VoterID: "v2"},
			{CampaignID: 3, Candidate: "Mallory", VoterID: "v3"},
			{CampaignID: 3, Candidate: "Bob", VoterID: "v4"},
			{CampaignID: 3, Candidate: "Bob", VoterID: "v5"},
		}, 7, "x"),
	}

	results := service.NewVoteCountingService().Tally(campaign, blocks)
	assert.Equal(t, uint64(3), results.CampaignID)
	assert.Equal(t, map[string]int{"Alice": 1, "Bob": 2}, results.Counts)
	assert.Equal(t, 3, results.TotalVotes)
	assert.Equal(t, []string{"Bob"}, results.Winners)
	assert.Equal(t, 2, results.ChainLength)
}

func TestTallyWithoutVotesHasNoWinners(t *testing.T) {
	campaign := &models.Campaign{ID: 1, Candidates: []string{"A", "B"}}

	results := service.NewVoteCountingService().Tally(campaign, []*models.Block{models.NewGenesisBlock(1)})
	assert.Equal(t, map[string]int{"A": 0, "B": 0}, results.Counts)
	assert.NotNil(t, results.Winners)
	assert.Empty(t, results.Winners)
}

func TestTallyResultsAreCopies(t *testing.T) {
	campaign := &models.Campaign{ID: 1, Candidates: []string{"A"}}
	blocks := []*models.Block{
		models.NewGenesisBlock(1),
		models.NewBlock(1, 2, []models.Transaction{{CampaignID: 1, Candidate: "A", VoterID: "v1"}}, 1, "x"),
	}
	vcs := service.NewVoteCountingService()

	first := vcs.Tally(campaign, blocks)
	first.Counts["A"] = 100
	first.Winners[0] = "changed"

	second := vcs.Tally(campaign, blocks)
	assert.Equal(t, 1, second.Counts["A"])
	assert.Equal(t, []string{"A"}, second.Winners)
}
