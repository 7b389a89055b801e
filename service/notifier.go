package service

import (
	"github.com/bitmark-inc/logger"

	"voting-ledger/models"
)

// RetrievalMessage is returned for every voter ID retrieval request, so
// callers cannot tell whether an email is registered
const RetrievalMessage = "If a voter is registered with this email, instructions to retrieve the Voter ID have been sent."

// Notifier delivers a forgotten voter ID to its owner
type Notifier interface {
	SendVoterID(campaign *models.Campaign, voter models.VoterView) error
}

// LogNotifier only records that a retrieval was triggered
type LogNotifier struct {
	log *logger.L
}

func NewLogNotifier(log *logger.L) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendVoterID(campaign *models.Campaign, voter models.VoterView) error {
	n.log.Infof("voter id retrieval triggered for %s in campaign %d", voter.Email, campaign.ID)
	return nil
}
