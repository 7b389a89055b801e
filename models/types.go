package models

import "time"

// Campaign is an election with a fixed candidate list and voting window.
// Campaigns are immutable once created.
type Campaign struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	Candidates []string  `json:"candidates"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

// CampaignView is the outward form with the active flag computed at read time
type CampaignView struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	Candidates []string  `json:"candidates"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	IsActive   bool      `json:"is_active"`
}

// IsActive reports whether now lies in [StartTime, EndTime)
func (c *Campaign) IsActive(now time.Time) bool {
	return !now.Before(c.StartTime) && now.Before(c.EndTime)
}

func (c *Campaign) HasCandidate(name string) bool {
	for _, candidate := range c.Candidates {
		if candidate == name {
			return true
		}
	}
	return false
}

func (c *Campaign) View(now time.Time) CampaignView {
	candidates := make([]string, len(c.Candidates))
	copy(candidates, c.Candidates)
	return CampaignView{
		ID:         c.ID,
		Name:       c.Name,
		Candidates: candidates,
		StartTime:  c.StartTime.UTC(),
		EndTime:    c.EndTime.UTC(),
		IsActive:   c.IsActive(now),
	}
}

// TallyResults are the counts for one campaign at one chain length
type TallyResults struct {
	CampaignID  uint64         `json:"campaign_id"`
	Counts      map[string]int `json:"counts"`
	TotalVotes  int            `json:"total_votes"`
	Winners     []string       `json:"winners"`
	ChainLength int            `json:"chain_length"`
}
