package models

import "time"

// Voter is a registration for exactly one campaign
type Voter struct {
	VoterID        string    `json:"voter_id"`
	VoterIDHash    string    `json:"voter_id_hash"`
	CampaignID     uint64    `json:"campaign_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	CredentialHash string    `json:"credential_hash"`
	HasVoted       bool      `json:"has_voted"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// VoterView is what administrators may see: never the credential
type VoterView struct {
	VoterID  string `json:"voter_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	HasVoted bool   `json:"has_voted"`
}

func (v *Voter) View() VoterView {
	return VoterView{
		VoterID:  v.VoterID,
		Name:     v.Name,
		Email:    v.Email,
		HasVoted: v.HasVoted,
	}
}

func (v *Voter) Copy() *Voter {
	c := *v
	return &c
}

// VoterStatus is a voter's standing in a campaign
type VoterStatus int

const (
	Unregistered VoterStatus = iota
	CanVote
	AlreadyVoted
)

func (s VoterStatus) String() string {
	switch s {
	case CanVote:
		return "can_vote"
	case AlreadyVoted:
		return "voted"
	default:
		return "not_registered"
	}
}

// CampaignVoters is the administrator's summary of one campaign
type CampaignVoters struct {
	CampaignID      uint64      `json:"campaign_id"`
	CampaignName    string      `json:"campaign_name"`
	RegisteredCount int         `json:"registered_count"`
	VotedCount      int         `json:"voted_count"`
	Voters          []VoterView `json:"voters"`
}
