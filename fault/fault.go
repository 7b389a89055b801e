// Package fault - error classes shared by the ledger
//
// Each class is a distinct string type so callers can branch on the
// class of an error without matching message text.
package fault

import "errors"

// error base
type GenericError string

// classes of errors, one per response category at the API boundary
type ValidationError GenericError
type NotFoundError GenericError
type UnauthorizedError GenericError
type ConflictError GenericError
type ClosedError GenericError
type IntegrityError GenericError
type RateLimitError GenericError
type ProcessError GenericError

// common errors - keep in alphabetic order
var (
	ErrAlreadyInitialised      = ProcessError("already initialised")
	ErrAlreadyVoted            = ConflictError("voter has already voted in this campaign")
	ErrBadBlockIndex           = IntegrityError("block index does not follow the chain tip")
	ErrBadPreviousHash         = IntegrityError("block previous hash does not match the chain tip")
	ErrBadProof                = IntegrityError("block proof does not satisfy the difficulty")
	ErrCampaignClosed          = ClosedError("campaign is not active")
	ErrCampaignNotFound        = NotFoundError("campaign not found")
	ErrDuplicateCandidate      = ValidationError("candidate names must be distinct")
	ErrDuplicateVoter          = ConflictError("voter ID already registered for this campaign")
	ErrEmptyChain              = IntegrityError("chain has no genesis block")
	ErrInvalidAdminKey         = UnauthorizedError("Unauthorized: Admin API Key required")
	ErrInvalidCandidate        = ValidationError("invalid candidate for this campaign")
	ErrInvalidCredentials      = UnauthorizedError("invalid voter ID or password")
	ErrInvalidCredentialFormat = ValidationError("stored credential has an unknown format")
	ErrInvalidDatabaseType     = ValidationError("database type must be one of json, leveldb, sqlite or postgres")
	ErrInvalidDifficulty       = ValidationError("difficulty must be between 1 and 56")
	ErrInvalidDuration         = ValidationError("duration_hours must be positive")
	ErrInvalidGenesis          = IntegrityError("genesis block is malformed")
	ErrInvalidLoggerChannel    = ProcessError("invalid logger channel")
	ErrMissingAdminKey         = ValidationError("admin API key is required")
	ErrMissingCampaignName     = ValidationError("campaign name is required")
	ErrMissingCandidates       = ValidationError("at least one candidate is required")
	ErrMissingDatabaseURL      = ValidationError("database URL is required for postgres")
	ErrMissingEmail            = ValidationError("email is required")
	ErrMissingName             = ValidationError("name is required")
	ErrMissingPassword         = ValidationError("password is required")
	ErrMissingVoterID          = ValidationError("voter_id is required")
	ErrNotFoundConfigFile      = NotFoundError("config file is not found")
	ErrRateLimited             = RateLimitError("too many requests")
	ErrVoterNotFound           = NotFoundError("voter not registered for this campaign")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ValidationError) Error() string   { return string(e) }
func (e NotFoundError) Error() string     { return string(e) }
func (e UnauthorizedError) Error() string { return string(e) }
func (e ConflictError) Error() string     { return string(e) }
func (e ClosedError) Error() string       { return string(e) }
func (e IntegrityError) Error() string    { return string(e) }
func (e RateLimitError) Error() string    { return string(e) }
func (e ProcessError) Error() string      { return string(e) }

// determine the class of an error, looking through any wrapping
func IsErrValidation(e error) bool   { var t ValidationError; return errors.As(e, &t) }
func IsErrNotFound(e error) bool     { var t NotFoundError; return errors.As(e, &t) }
func IsErrUnauthorized(e error) bool { var t UnauthorizedError; return errors.As(e, &t) }
func IsErrConflict(e error) bool     { var t ConflictError; return errors.As(e, &t) }
func IsErrClosed(e error) bool       { var t ClosedError; return errors.As(e, &t) }
func IsErrIntegrity(e error) bool    { var t IntegrityError; return errors.As(e, &t) }
func IsErrRateLimit(e error) bool    { var t RateLimitError; return errors.As(e, &t) }
func IsErrProcess(e error) bool      { var t ProcessError; return errors.As(e, &t) }
