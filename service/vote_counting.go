package service

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"voting-ledger/models"
)

const (
	tallyCacheExpiration = 10 * time.Minute
	tallyCacheCleanup    = 30 * time.Minute
)

// VoteCountingService tallies campaigns by replaying the chain. The chain
// only grows, so a result keyed by campaign and chain length never goes
// stale.
type VoteCountingService struct {
	results *cache.Cache
}

func NewVoteCountingService() *VoteCountingService {
	return &VoteCountingService{
		results: cache.New(tallyCacheExpiration, tallyCacheCleanup),
	}
}

// Tally counts the votes for campaign in blocks. Reward transactions,
// other campaigns and candidates not on the ballot are ignored. Winners
// are every candidate at the top count, in ballot order; there are none
// when no votes were cast.
func (vcs *VoteCountingService) Tally(campaign *models.Campaign, blocks []*models.Block) *models.TallyResults {
	key := fmt.Sprintf("%d:%d", campaign.ID, len(blocks))
	if cached, found := vcs.results.Get(key); found {
		return copyResults(cached.(*models.TallyResults))
	}

	counts := make(map[string]int, len(campaign.Candidates))
	for _, candidate := range campaign.Candidates {
		counts[candidate] = 0
	}

	total := 0
	for _, block := range blocks {
		for _, tx := range block.Transactions {
			if tx.IsReward() || tx.CampaignID != campaign.ID {
				continue
			}
			if _, onBallot := counts[tx.Candidate]; !onBallot {
				continue
			}
			counts[tx.Candidate]++
			total++
		}
	}

	results := &models.TallyResults{
		CampaignID:  campaign.ID,
		Counts:      counts,
		TotalVotes:  total,
		Winners:     winners(campaign.Candidates, counts),
		ChainLength: len(blocks),
	}
	vcs.results.Set(key, results, cache.DefaultExpiration)

	return copyResults(results)
}

func winners(candidates []string, counts map[string]int) []string {
	top := 0
	for _, candidate := range candidates {
		if counts[candidate] > top {
			top = counts[candidate]
		}
	}

	result := make([]string, 0)
	if top == 0 {
		return result
	}
	for _, candidate := range candidates {
		if counts[candidate] == top {
			result = append(result, candidate)
		}
	}
	return result
}

func copyResults(r *models.TallyResults) *models.TallyResults {
	counts := make(map[string]int, len(r.Counts))
	for k, v := range r.Counts {
		counts[k] = v
	}
	w := make([]string, len(r.Winners))
	copy(w, r.Winners)

	return &models.TallyResults{
		CampaignID:  r.CampaignID,
		Counts:      counts,
		TotalVotes:  r.TotalVotes,
		Winners:     w,
		ChainLength: r.ChainLength,
	}
}
