// Package registry keeps the campaigns and the voters registered for them
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"voting-ledger/clock"
	"voting-ledger/fault"
	"voting-ledger/models"
)

// ten years
const maxDurationHours = 87600

// CampaignStore persists new campaigns
type CampaignStore interface {
	SaveCampaign(campaign *models.Campaign) error
}

// Campaigns assigns sequential ids and holds every campaign ever created
type Campaigns struct {
	mu        sync.RWMutex
	campaigns []*models.Campaign
	nextID    uint64
	store     CampaignStore
	clock     clock.Clock
	log       *logger.L
}

func NewCampaigns(store CampaignStore, clk clock.Clock, restored []*models.Campaign, log *logger.L) *Campaigns {
	campaigns := make([]*models.Campaign, len(restored))
	copy(campaigns, restored)
	sort.Slice(campaigns, func(i, j int) bool { return campaigns[i].ID < campaigns[j].ID })

	nextID := uint64(1)
	if n := len(campaigns); n > 0 {
		nextID = campaigns[n-1].ID + 1
	}

	return &Campaigns{
		campaigns: campaigns,
		nextID:    nextID,
		store:     store,
		clock:     clk,
		log:       log,
	}
}

// Create validates and persists a new campaign starting now
func (r *Campaigns) Create(name string, candidates []string, durationHours float64) (*models.Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fault.ErrMissingCampaignName
	}
	if len(candidates) == 0 {
		return nil, fault.ErrMissingCandidates
	}

	seen := make(map[string]bool, len(candidates))
	cleaned := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, fault.ValidationError("candidate names must not be empty")
		}
		if seen[c] {
			return nil, fault.ErrDuplicateCandidate
		}
		seen[c] = true
		cleaned = append(cleaned, c)
	}

	if !(durationHours > 0) || durationHours > maxDurationHours {
		return nil, fault.ErrInvalidDuration
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.clock.Now()
	campaign := &models.Campaign{
		ID:         r.nextID,
		Name:       name,
		Candidates: cleaned,
		StartTime:  start,
		EndTime:    start.Add(time.Duration(durationHours * float64(time.Hour))),
	}

	if err := r.store.SaveCampaign(campaign); err != nil {
		return nil, fmt.Errorf("save campaign: %w", err)
	}

	r.campaigns = append(r.campaigns, campaign)
	r.nextID++
	r.log.Infof("created campaign %d %q with %d candidates until %s", campaign.ID, campaign.Name, len(cleaned), campaign.EndTime.Format(time.RFC3339))

	return copyCampaign(campaign), nil
}

// List returns every campaign with its active flag computed now
func (r *Campaigns) List() []models.CampaignView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.clock.Now()
	views := make([]models.CampaignView, len(r.campaigns))
	for i, c := range r.campaigns {
		views[i] = c.View(now)
	}
	return views
}

// All returns copies of every campaign
func (r *Campaigns) All() []*models.Campaign {
	r.mu.RLock()
	defer r.mu.RUnlock()

	campaigns := make([]*models.Campaign, len(r.campaigns))
	for i, c := range r.campaigns {
		campaigns[i] = copyCampaign(c)
	}
	return campaigns
}

func (r *Campaigns) Get(id uint64) (*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := sort.Search(len(r.campaigns), func(i int) bool { return r.campaigns[i].ID >= id })
	if i == len(r.campaigns) || r.campaigns[i].ID != id {
		return nil, fault.ErrCampaignNotFound
	}
	return copyCampaign(r.campaigns[i]), nil
}

// IsActive reports whether the campaign accepts registrations and votes now
func (r *Campaigns) IsActive(campaign *models.Campaign) bool {
	return campaign.IsActive(r.clock.Now())
}

func copyCampaign(c *models.Campaign) *models.Campaign {
	copied := *c
	copied.Candidates = make([]string, len(c.Candidates))
	copy(copied.Candidates, c.Candidates)
	return &copied
}
