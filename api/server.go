// Package api is the HTTP boundary of the ledger. Requests are decoded,
// handed to the voting service, and failures are mapped to a status by
// error class.
package api

import (
	"net/http"

	"github.com/bitmark-inc/logger"
	"golang.org/x/time/rate"

	"voting-ledger/service"
)

// Options configures the server's access control
type Options struct {
	AdminKey  *AdminKey
	VoteRate  float64
	VoteBurst int
	MineRate  float64
	MineBurst int
}

type Server struct {
	votingService *service.VotingService
	adminKey      *AdminKey
	voteLimiter   *rate.Limiter
	mineLimiter   *rate.Limiter
	log           *logger.L
}

func NewServer(votingService *service.VotingService, options Options) *Server {
	adminKey := options.AdminKey
	if adminKey == nil {
		adminKey = NewAdminKey("")
	}
	return &Server{
		votingService: votingService,
		adminKey:      adminKey,
		voteLimiter:   newLimiter(options.VoteRate, options.VoteBurst),
		mineLimiter:   newLimiter(options.MineRate, options.MineBurst),
		log:           logger.New("api"),
	}
}

// a non-positive rate disables limiting
func newLimiter(r float64, burst int) *rate.Limiter {
	if r <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(r), burst)
}

// Handler returns the routed API wrapped in logging and CORS
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// chain
	mux.HandleFunc("GET /chain", s.handleFullChain)
	mux.HandleFunc("GET /chain/validate", s.handleValidateChain)
	mux.HandleFunc("GET /mine", rateLimited(s.mineLimiter, s.handleMine))
	mux.HandleFunc("GET /status", s.handleStatus)

	// campaigns
	mux.HandleFunc("GET /campaigns", s.handleListCampaigns)
	mux.HandleFunc("POST /campaigns/new", requireAdmin(s.adminKey, s.handleCreateCampaign))
	mux.HandleFunc("GET /results/{campaign_id}", s.handleResults)

	// voters
	mux.HandleFunc("POST /voters/register", s.handleRegisterVoter)
	mux.HandleFunc("GET /voters/status/{campaign_id}/{voter_id}", s.handleVoterStatus)
	mux.HandleFunc("POST /voters/retrieve_id", s.handleRetrieveVoterID)
	mux.HandleFunc("POST /vote", rateLimited(s.voteLimiter, s.handleCastVote))

	// admin
	mux.HandleFunc("POST /admin/verify", s.handleVerifyAdmin)
	mux.HandleFunc("GET /admin/registered_users", requireAdmin(s.adminKey, s.handleRegisteredUsers))

	return withCORS(withLogging(s.log, mux))
}
