package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bitmark-inc/logger"

	"voting-ledger/clock"
	"voting-ledger/encryption"
	"voting-ledger/fault"
	"voting-ledger/models"
)

// VoterStore persists new registrations
type VoterStore interface {
	SaveVoter(voter *models.Voter) error
}

// CommitFunc makes a vote durable. It runs under the campaign lock with
// the voter already marked as voted; an error leaves the voter unmarked.
type CommitFunc func(voter *models.Voter) error

// Voters holds registrations. Each campaign has its own lock so voting in
// one campaign never waits on another.
type Voters struct {
	mu      sync.RWMutex
	buckets map[uint64]*campaignVoters
	store   VoterStore
	crypto  *encryption.CryptoService
	clock   clock.Clock
	log     *logger.L
}

type campaignVoters struct {
	sync.Mutex
	byHash map[string]*models.Voter
	order  []*models.Voter
}

func NewVoters(store VoterStore, crypto *encryption.CryptoService, clk clock.Clock, restored []*models.Voter, log *logger.L) *Voters {
	r := &Voters{
		buckets: make(map[uint64]*campaignVoters),
		store:   store,
		crypto:  crypto,
		clock:   clk,
		log:     log,
	}
	ordered := make([]*models.Voter, len(restored))
	copy(ordered, restored)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].RegisteredAt.Before(ordered[j].RegisteredAt) })

	for _, v := range ordered {
		b := r.bucket(v.CampaignID)
		voter := v.Copy()
		b.byHash[voter.VoterIDHash] = voter
		b.order = append(b.order, voter)
	}
	return r
}

func (r *Voters) lookup(campaignID uint64) (*campaignVoters, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.buckets[campaignID]
	return b, ok
}

func (r *Voters) bucket(campaignID uint64) *campaignVoters {
	r.mu.RLock()
	b, ok := r.buckets[campaignID]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.buckets[campaignID]; ok {
		return b
	}
	b = &campaignVoters{byHash: make(map[string]*models.Voter)}
	r.buckets[campaignID] = b
	return b
}

// Register adds a voter to an active campaign
func (r *Voters) Register(campaign *models.Campaign, voterID string, name string, email string, password string) (*models.Voter, error) {
	voterID = normalizeVoterID(voterID)
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	switch {
	case voterID == "":
		return nil, fault.ErrMissingVoterID
	case voterID == models.RewardVoterID:
		return nil, fault.ValidationError("voter_id is reserved")
	case name == "":
		return nil, fault.ErrMissingName
	case email == "":
		return nil, fault.ErrMissingEmail
	case password == "":
		return nil, fault.ErrMissingPassword
	}

	if !campaign.IsActive(r.clock.Now()) {
		return nil, fault.ErrCampaignClosed
	}

	// hashing is slow: do it before taking the campaign lock
	credential, err := r.crypto.HashCredential(password)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	voter := &models.Voter{
		VoterID:        voterID,
		VoterIDHash:    r.crypto.VoterIDHash(voterID),
		CampaignID:     campaign.ID,
		Name:           name,
		Email:          email,
		CredentialHash: credential,
		RegisteredAt:   r.clock.Now(),
	}

	b := r.bucket(campaign.ID)
	b.Lock()
	defer b.Unlock()

	if _, exists := b.byHash[voter.VoterIDHash]; exists {
		return nil, fault.ErrDuplicateVoter
	}

	if err := r.store.SaveVoter(voter); err != nil {
		return nil, fmt.Errorf("save voter: %w", err)
	}

	b.byHash[voter.VoterIDHash] = voter
	b.order = append(b.order, voter)
	r.log.Infof("registered voter %s for campaign %d", voter.VoterIDHash, campaign.ID)

	return voter.Copy(), nil
}

// Status reports whether the voter may still vote
func (r *Voters) Status(campaignID uint64, voterID string) models.VoterStatus {
	b, ok := r.lookup(campaignID)
	if !ok {
		return models.Unregistered
	}
	b.Lock()
	defer b.Unlock()

	voter, ok := b.byHash[r.crypto.VoterIDHash(normalizeVoterID(voterID))]
	switch {
	case !ok:
		return models.Unregistered
	case voter.HasVoted:
		return models.AlreadyVoted
	default:
		return models.CanVote
	}
}

// AuthorizeAndMarkVoted checks the credential and, in one step under the
// campaign lock, confirms the voter has not voted, runs commit and marks
// the voter. At most one concurrent caller per voter can succeed.
func (r *Voters) AuthorizeAndMarkVoted(campaignID uint64, voterID string, password string, commit CommitFunc) error {
	voterIDHash := r.crypto.VoterIDHash(normalizeVoterID(voterID))
	b, ok := r.lookup(campaignID)
	if !ok {
		return fault.ErrVoterNotFound
	}

	b.Lock()
	voter, ok := b.byHash[voterIDHash]
	var credential string
	if ok {
		credential = voter.CredentialHash
	}
	b.Unlock()

	if !ok {
		return fault.ErrVoterNotFound
	}

	// the credential never changes, so it can be checked outside the lock
	valid, err := r.crypto.VerifyCredential(credential, password)
	if err != nil {
		return err
	}
	if !valid {
		r.log.Warnf("rejected credential for voter %s in campaign %d", voterIDHash, campaignID)
		return fault.ErrInvalidCredentials
	}

	b.Lock()
	defer b.Unlock()

	if voter.HasVoted {
		return fault.ErrAlreadyVoted
	}

	marked := voter.Copy()
	marked.HasVoted = true
	if err := commit(marked); err != nil {
		return err
	}

	voter.HasVoted = true
	return nil
}

// MarkVoted flags a voter whose transaction is already recorded. It is used
// when reconciling state at startup and reports whether anything changed.
func (r *Voters) MarkVoted(campaignID uint64, voterID string) (*models.Voter, bool) {
	b, ok := r.lookup(campaignID)
	if !ok {
		return nil, false
	}
	b.Lock()
	defer b.Unlock()

	voter, ok := b.byHash[r.crypto.VoterIDHash(voterID)]
	if !ok || voter.HasVoted {
		return nil, false
	}
	voter.HasVoted = true
	return voter.Copy(), true
}

// ListForCampaign returns the campaign's voters in registration order,
// without credentials
func (r *Voters) ListForCampaign(campaignID uint64) []models.VoterView {
	b, ok := r.lookup(campaignID)
	if !ok {
		return []models.VoterView{}
	}
	b.Lock()
	defer b.Unlock()

	views := make([]models.VoterView, len(b.order))
	for i, v := range b.order {
		views[i] = v.View()
	}
	return views
}

// FindByEmail looks up a registration by email, ignoring case
func (r *Voters) FindByEmail(campaignID uint64, email string) (models.VoterView, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.VoterView{}, false
	}

	b, ok := r.lookup(campaignID)
	if !ok {
		return models.VoterView{}, false
	}
	b.Lock()
	defer b.Unlock()

	for _, v := range b.order {
		if strings.EqualFold(v.Email, email) {
			return v.View(), true
		}
	}
	return models.VoterView{}, false
}

// voter IDs are compared without surrounding whitespace everywhere
func normalizeVoterID(voterID string) string {
	return strings.TrimSpace(voterID)
}
