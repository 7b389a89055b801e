package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitmark-inc/logger"

	"voting-ledger/blockchain/chain"
	"voting-ledger/blockchain/miner"
	"voting-ledger/blockchain/pool"
	"voting-ledger/clock"
	"voting-ledger/encryption"
	"voting-ledger/fault"
	"voting-ledger/models"
	"voting-ledger/registry"
	"voting-ledger/storage"
)

// Types
type VotingService struct {
	store            storage.Store
	clock            clock.Clock
	chain            *chain.Chain
	pool             *pool.Pool
	miner            *miner.Miner
	campaigns        *registry.Campaigns
	voters           *registry.Voters
	countingService  *VoteCountingService
	metricsCollector *MetricsCollector
	notifier         Notifier
	log              *logger.L
}

// Config tunes a VotingService. Zero values select the defaults.
type Config struct {
	Difficulty           int
	CredentialIterations int
	NodeIdentifier       string
	Clock                clock.Clock
	Notifier             Notifier
}

// ChainValidation is the verdict of a full chain check
type ChainValidation struct {
	Valid        bool `json:"valid"`
	Length       int  `json:"length"`
	FirstInvalid *int `json:"first_invalid,omitempty"`
}

// Status summarises the node
type Status struct {
	NodeIdentifier string          `json:"node_id"`
	ChainLength    int             `json:"chain_length"`
	Pending        int             `json:"pending"`
	Difficulty     int             `json:"difficulty"`
	Metrics        MetricsResponse `json:"metrics"`
}

// Constructor
func NewVotingService(store storage.Store, config Config) (*VotingService, error) {
	log := logger.New("ledger")

	if config.Difficulty == 0 {
		config.Difficulty = models.DefaultDifficulty
	}
	if config.Difficulty < 1 || config.Difficulty > models.MaxDifficulty {
		return nil, fault.ErrInvalidDifficulty
	}
	if config.NodeIdentifier == "" {
		config.NodeIdentifier = clock.NodeIdentifier()
	}
	if config.Clock == nil {
		config.Clock = clock.System{}
	}
	if config.Notifier == nil {
		config.Notifier = NewLogNotifier(log)
	}

	campaigns, err := store.LoadCampaigns()
	if err != nil {
		return nil, fmt.Errorf("load campaigns: %w", err)
	}
	voters, err := store.LoadVoters()
	if err != nil {
		return nil, fmt.Errorf("load voters: %w", err)
	}
	blocks, err := store.LoadChain()
	if err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}
	pending, err := store.LoadPending()
	if err != nil {
		return nil, fmt.Errorf("load pending transactions: %w", err)
	}

	vs := &VotingService{
		store:            store,
		clock:            config.Clock,
		chain:            chain.New(store, config.Difficulty, logger.New("chain")),
		campaigns:        registry.NewCampaigns(store, config.Clock, campaigns, logger.New("registry")),
		voters:           registry.NewVoters(store, encryption.NewCryptoService(config.CredentialIterations), config.Clock, voters, logger.New("registry")),
		countingService:  NewVoteCountingService(),
		metricsCollector: NewMetricsCollector(),
		notifier:         config.Notifier,
		log:              log,
	}

	if len(blocks) == 0 {
		if _, err := vs.chain.CreateGenesis(clock.Timestamp(config.Clock.Now())); err != nil {
			return nil, err
		}
	} else if err := vs.chain.Load(blocks); err != nil {
		return nil, err
	}

	restored, err := vs.reconcile(pending)
	if err != nil {
		return nil, err
	}
	vs.pool = pool.New(restored)
	vs.miner = miner.New(vs.chain, vs.pool, config.Clock, config.NodeIdentifier, logger.New("miner"))

	log.Infof("ledger ready: node %s, %d blocks, %d pending, difficulty %d",
		config.NodeIdentifier, vs.chain.Length(), len(restored), config.Difficulty)

	return vs, nil
}

// reconcile repairs what an interrupted write can leave behind. Pending
// transactions already sealed are dropped, and every voter with a recorded
// transaction is marked as voted.
func (vs *VotingService) reconcile(pending []models.PendingTransaction) ([]models.PendingTransaction, error) {
	type voteKey struct {
		campaignID uint64
		voterID    string
	}
	recorded := make(map[voteKey]struct{})
	for _, block := range vs.chain.FullChain() {
		for _, tx := range block.Transactions {
			if !tx.IsReward() {
				recorded[voteKey{tx.CampaignID, tx.VoterID}] = struct{}{}
			}
		}
	}

	restored := make([]models.PendingTransaction, 0, len(pending))
	for _, p := range pending {
		key := voteKey{p.Transaction.CampaignID, p.Transaction.VoterID}
		if _, sealed := recorded[key]; sealed {
			vs.log.Warnf("dropping pending vote of %s in campaign %d: already sealed", key.voterID, key.campaignID)
			continue
		}
		recorded[key] = struct{}{}
		restored = append(restored, p)
	}

	for key := range recorded {
		voter, changed := vs.voters.MarkVoted(key.campaignID, key.voterID)
		if !changed {
			continue
		}
		if err := vs.store.SaveVoter(voter); err != nil {
			return nil, fmt.Errorf("reconcile voter: %w", err)
		}
		vs.log.Warnf("marked voter %s in campaign %d as voted", voter.VoterIDHash, key.campaignID)
	}

	return restored, nil
}

// Campaigns

func (vs *VotingService) CreateCampaign(name string, candidates []string, durationHours float64) (*models.CampaignView, error) {
	campaign, err := vs.campaigns.Create(name, candidates, durationHours)
	if err != nil {
		return nil, err
	}
	view := campaign.View(vs.clock.Now())
	return &view, nil
}

func (vs *VotingService) ListCampaigns() []models.CampaignView {
	return vs.campaigns.List()
}

func (vs *VotingService) GetCampaign(campaignID uint64) (*models.CampaignView, error) {
	campaign, err := vs.campaigns.Get(campaignID)
	if err != nil {
		return nil, err
	}
	view := campaign.View(vs.clock.Now())
	return &view, nil
}

// Voters

func (vs *VotingService) RegisterVoter(campaignID uint64, voterID string, name string, email string, password string) (*models.VoterView, error) {
	start := time.Now()

	campaign, err := vs.campaigns.Get(campaignID)
	if err != nil {
		return nil, err
	}

	voter, err := vs.voters.Register(campaign, voterID, name, email, password)
	if err != nil {
		return nil, err
	}

	vs.metricsCollector.RecordRegistration(time.Since(start))
	view := voter.View()
	return &view, nil
}

func (vs *VotingService) VoterStatus(campaignID uint64, voterID string) (models.VoterStatus, error) {
	if _, err := vs.campaigns.Get(campaignID); err != nil {
		return models.Unregistered, err
	}
	return vs.voters.Status(campaignID, voterID), nil
}

// RegisteredUsers lists every campaign with its voters
func (vs *VotingService) RegisteredUsers() []models.CampaignVoters {
	campaigns := vs.campaigns.All()
	result := make([]models.CampaignVoters, 0, len(campaigns))
	for _, campaign := range campaigns {
		voters := vs.voters.ListForCampaign(campaign.ID)
		voted := 0
		for _, v := range voters {
			if v.HasVoted {
				voted++
			}
		}
		result = append(result, models.CampaignVoters{
			CampaignID:      campaign.ID,
			CampaignName:    campaign.Name,
			RegisteredCount: len(voters),
			VotedCount:      voted,
			Voters:          voters,
		})
	}
	return result
}

// RetrieveVoterID triggers delivery of a forgotten voter ID. The reply is
// the same whether or not the email is registered.
func (vs *VotingService) RetrieveVoterID(campaignID uint64, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", fault.ErrMissingEmail
	}

	campaign, err := vs.campaigns.Get(campaignID)
	if err != nil {
		vs.log.Infof("voter id retrieval for unknown campaign %d", campaignID)
		return RetrievalMessage, nil
	}

	voter, found := vs.voters.FindByEmail(campaignID, email)
	if !found {
		vs.log.Infof("voter id retrieval triggered for unregistered email in campaign %d", campaignID)
		return RetrievalMessage, nil
	}

	if err := vs.notifier.SendVoterID(campaign, voter); err != nil {
		vs.log.Errorf("voter id retrieval for campaign %d: %s", campaignID, err)
	}
	return RetrievalMessage, nil
}

// Votes

// CastVote records a vote in the pending pool and returns the index of the
// block it is expected to be sealed into
func (vs *VotingService) CastVote(campaignID uint64, voterID string, candidate string, password string) (uint64, error) {
	start := time.Now()

	voterID = strings.TrimSpace(voterID)
	switch {
	case voterID == "":
		return 0, fault.ErrMissingVoterID
	case password == "":
		return 0, fault.ErrMissingPassword
	}

	campaign, err := vs.campaigns.Get(campaignID)
	if err != nil {
		return 0, err
	}
	if !vs.campaigns.IsActive(campaign) {
		return 0, fault.ErrCampaignClosed
	}
	if !campaign.HasCandidate(candidate) {
		return 0, fault.ErrInvalidCandidate
	}

	var (
		position      int
		expectedBlock uint64
	)
	err = vs.voters.AuthorizeAndMarkVoted(campaignID, voterID, password, func(voter *models.Voter) error {
		pending := models.PendingTransaction{
			Sequence: vs.pool.NextSequence(),
			Transaction: models.Transaction{
				CampaignID: campaignID,
				Candidate:  candidate,
				VoterID:    voterID,
			},
		}
		if err := vs.store.SaveVote(voter, pending); err != nil {
			return fmt.Errorf("save vote: %w", err)
		}
		// read before the vote is pooled, so no block holding it can be
		// the tip yet
		expectedBlock = vs.nextIndex()
		position = vs.pool.Submit(pending)
		return nil
	})
	if err != nil {
		vs.metricsCollector.RecordRejectedVote()
		vs.log.Warnf("vote rejected in campaign %d: %s", campaignID, err)
		return 0, err
	}

	vs.metricsCollector.RecordVote(time.Since(start))
	vs.log.Debugf("vote accepted in campaign %d at pool position %d", campaignID, position)

	return expectedBlock, nil
}

func (vs *VotingService) nextIndex() uint64 {
	tip := vs.chain.LastBlock()
	if tip == nil {
		return 0
	}
	return tip.Index + 1
}

// Chain

// Mine seals the pending pool into the next block
func (vs *VotingService) Mine(ctx context.Context) (*models.Block, error) {
	block, stats, err := vs.miner.Mine(ctx)
	if err != nil {
		return nil, err
	}
	vs.metricsCollector.RecordBlock(stats.Duration, stats.Attempts, stats.Retries)
	return block, nil
}

func (vs *VotingService) FullChain() []*models.Block {
	return vs.chain.FullChain()
}

func (vs *VotingService) ValidateChain() ChainValidation {
	result := ChainValidation{
		Valid:  true,
		Length: vs.chain.Length(),
	}
	if index, ok := vs.chain.FirstInvalid(); !ok {
		result.Valid = false
		result.FirstInvalid = &index
	}
	return result
}

func (vs *VotingService) PendingCount() int {
	return vs.pool.Len()
}

// Tally counts a campaign's sealed votes
func (vs *VotingService) Tally(campaignID uint64) (*models.TallyResults, error) {
	campaign, err := vs.campaigns.Get(campaignID)
	if err != nil {
		return nil, err
	}
	return vs.countingService.Tally(campaign, vs.chain.FullChain()), nil
}

func (vs *VotingService) Status() Status {
	return Status{
		NodeIdentifier: vs.miner.NodeIdentifier(),
		ChainLength:    vs.chain.Length(),
		Pending:        vs.pool.Len(),
		Difficulty:     vs.chain.Difficulty(),
		Metrics:        vs.metricsCollector.GetMetrics(),
	}
}

func (vs *VotingService) Close() error {
	return vs.store.Close()
}
