package api

import (
	"fmt"
	"net/http"
	"strconv"

	"voting-ledger/fault"
	"voting-ledger/models"
)

type CreateCampaignRequest struct {
	Name          string   `json:"name"`
	Candidates    []string `json:"candidates"`
	DurationHours *float64 `json:"duration_hours"`
}

type CreateCampaignResponse struct {
	Message  string              `json:"message"`
	Campaign models.CampaignView `json:"campaign"`
}

type RegisterVoterRequest struct {
	VoterID    string  `json:"voter_id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	CampaignID *uint64 `json:"campaign_id"`
	Password   string  `json:"password"`
}

type CastVoteRequest struct {
	VoterID    string  `json:"voter_id"`
	Candidate  string  `json:"candidate"`
	CampaignID *uint64 `json:"campaign_id"`
	Password   string  `json:"password"`
}

type RetrieveVoterIDRequest struct {
	Email      string  `json:"email"`
	CampaignID *uint64 `json:"campaign_id"`
}

type VerifyAdminRequest struct {
	APIKey *string `json:"apiKey"`
}

type VerifyAdminResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ChainResponse struct {
	Chain  []*models.Block `json:"chain"`
	Length int             `json:"length"`
}

type MineResponse struct {
	Message      string               `json:"message"`
	Index        uint64               `json:"index"`
	Timestamp    float64              `json:"timestamp"`
	Transactions []models.Transaction `json:"transactions"`
	Proof        uint64               `json:"proof"`
	PreviousHash string               `json:"previous_hash"`
}

type CampaignsResponse struct {
	Campaigns []models.CampaignView `json:"campaigns"`
}

type VoterStatusResponse struct {
	Status string `json:"status"`
}

func campaignIDParam(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(r.PathValue("campaign_id"), 10, 64)
	if err != nil {
		return 0, fault.ValidationError("campaign_id must be a positive integer")
	}
	return id, nil
}

// chain

func (s *Server) handleFullChain(w http.ResponseWriter, r *http.Request) {
	blocks := s.votingService.FullChain()
	writeJSON(w, http.StatusOK, ChainResponse{
		Chain:  blocks,
		Length: len(blocks),
	})
}

func (s *Server) handleValidateChain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.votingService.ValidateChain())
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	block, err := s.votingService.Mine(r.Context())
	if err != nil {
		s.log.Errorf("mine: %s", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MineResponse{
		Message:      "New Block Forged",
		Index:        block.Index,
		Timestamp:    block.Timestamp,
		Transactions: block.Transactions,
		Proof:        block.Proof,
		PreviousHash: block.PreviousHash,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.votingService.Status())
}

// campaigns

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CampaignsResponse{Campaigns: s.votingService.ListCampaigns()})
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeBadRequest(w, "Missing values or candidates is not a list")
		return
	}
	if req.DurationHours == nil {
		writeBadRequest(w, "duration_hours is required")
		return
	}

	campaign, err := s.votingService.CreateCampaign(req.Name, req.Candidates, *req.DurationHours)
	if err != nil {
		writeError(w, err)
		return
	}

	s.log.Infof("admin created campaign %d %q", campaign.ID, campaign.Name)
	writeJSON(w, http.StatusCreated, CreateCampaignResponse{
		Message:  fmt.Sprintf("Campaign '%s' created with ID %d", campaign.Name, campaign.ID),
		Campaign: *campaign,
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	campaignID, err := campaignIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := s.votingService.Tally(campaignID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// voters

func (s *Server) handleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	var req RegisterVoterRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeBadRequest(w, "Invalid JSON")
		return
	}
	if req.CampaignID == nil {
		writeBadRequest(w, "campaign_id is required")
		return
	}

	voter, err := s.votingService.RegisterVoter(*req.CampaignID, req.VoterID, req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{
		Message: fmt.Sprintf("Voter '%s' registered successfully", voter.Name),
	})
}

func (s *Server) handleVoterStatus(w http.ResponseWriter, r *http.Request) {
	campaignID, err := campaignIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	status, err := s.votingService.VoterStatus(campaignID, r.PathValue("voter_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VoterStatusResponse{Status: status.String()})
}

func (s *Server) handleRetrieveVoterID(w http.ResponseWriter, r *http.Request) {
	var req RetrieveVoterIDRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeBadRequest(w, "Invalid JSON")
		return
	}
	if req.CampaignID == nil {
		writeBadRequest(w, "campaign_id is required")
		return
	}

	message, err := s.votingService.RetrieveVoterID(*req.CampaignID, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req CastVoteRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeBadRequest(w, "Invalid JSON")
		return
	}
	if req.CampaignID == nil {
		writeBadRequest(w, "campaign_id is required")
		return
	}

	index, err := s.votingService.CastVote(*req.CampaignID, req.VoterID, req.Candidate, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{
		Message: fmt.Sprintf("Vote successfully cast. It will be added to Block %d", index),
	})
}

// admin

func (s *Server) handleVerifyAdmin(w http.ResponseWriter, r *http.Request) {
	var req VerifyAdminRequest
	if err := parseJSONBody(r, &req); err != nil || req.APIKey == nil {
		writeBadRequest(w, "Missing API key")
		return
	}

	if !s.adminKey.Matches(*req.APIKey) {
		s.log.Warn("admin key verification failed")
		writeJSON(w, http.StatusUnauthorized, VerifyAdminResponse{
			Success: false,
			Message: "Invalid Admin API Key.",
		})
		return
	}

	s.log.Info("admin key verified")
	writeJSON(w, http.StatusOK, VerifyAdminResponse{
		Success: true,
		Message: "Admin key verified.",
	})
}

func (s *Server) handleRegisteredUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.votingService.RegisteredUsers())
}
