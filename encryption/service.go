package encryption

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/pbkdf2"

	"voting-ledger/fault"
)

const (
	// DefaultIterations is the PBKDF2 work factor for new credentials
	DefaultIterations = 260000

	methodPrefix = "pbkdf2:sha256:"
	saltLength   = 16
	keyLength    = 32
)

// CryptoService hashes voter credentials and voter identifiers
type CryptoService struct {
	iterations int
}

func NewCryptoService(iterations int) *CryptoService {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &CryptoService{iterations: iterations}
}

// HashCredential derives a salted hash in the form
// pbkdf2:sha256:<iterations>$<salt>$<hex key>
func (cs *CryptoService) HashCredential(password string) (string, error) {
	salt, err := cs.GenerateSalt()
	if err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), cs.iterations, keyLength, sha256.New)
	return fmt.Sprintf("%s%d$%s$%s", methodPrefix, cs.iterations, salt, hex.EncodeToString(key)), nil
}

// VerifyCredential checks password against a stored hash in constant time.
// The iteration count comes from the stored hash, so credentials survive a
// change of work factor.
func (cs *CryptoService) VerifyCredential(stored string, password string) (bool, error) {
	if !strings.HasPrefix(stored, methodPrefix) {
		return false, fault.ErrInvalidCredentialFormat
	}
	parts := strings.Split(strings.TrimPrefix(stored, methodPrefix), "$")
	if len(parts) != 3 {
		return false, fault.ErrInvalidCredentialFormat
	}
	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations <= 0 {
		return false, fault.ErrInvalidCredentialFormat
	}
	expected, err := hex.DecodeString(parts[2])
	if err != nil {
		return false, fault.ErrInvalidCredentialFormat
	}

	key := pbkdf2.Key([]byte(password), []byte(parts[1]), iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

// VoterIDHash is the storage lookup key for a voter ID
func (cs *CryptoService) VoterIDHash(voterID string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(voterID)))
}

// GenerateSalt returns a random hex salt
func (cs *CryptoService) GenerateSalt() (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return hex.EncodeToString(salt), nil
}
