package models

// RewardVoterID marks the mining reward transaction; tallies skip it
const RewardVoterID = "0"

// Transaction records one vote. Fields are in lexicographic key order
// for the canonical block serialization.
type Transaction struct {
	CampaignID uint64 `json:"campaign_id"`
	Candidate  string `json:"candidate"`
	VoterID    string `json:"voter_id"`
}

// NewRewardTransaction credits the node that sealed a block.
// Campaign 0 is never assigned, so the reward cannot count as a vote.
func NewRewardTransaction(nodeIdentifier string) Transaction {
	return Transaction{
		CampaignID: 0,
		Candidate:  nodeIdentifier,
		VoterID:    RewardVoterID,
	}
}

func (t Transaction) IsReward() bool {
	return t.VoterID == RewardVoterID
}

// PendingTransaction is a transaction waiting in the pool. The sequence
// restores insertion order after a restart and never enters a block.
type PendingTransaction struct {
	Sequence    uint64      `json:"sequence"`
	Transaction Transaction `json:"transaction"`
}

// Transactions strips the pool sequence numbers
func Transactions(pending []PendingTransaction) []Transaction {
	txs := make([]Transaction, len(pending))
	for i, p := range pending {
		txs[i] = p.Transaction
	}
	return txs
}
