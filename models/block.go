package models

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"voting-ledger/fault"
)

const (
	// GenesisProof is the proof carried by block 0
	GenesisProof uint64 = 100

	// DefaultDifficulty is the number of leading hex zeros a proof must produce
	DefaultDifficulty = 4

	// MaxDifficulty is the length of a hex SHA-224 digest
	MaxDifficulty = sha256.Size224 * 2
)

// GenesisPreviousHash is the previous hash of block 0
var GenesisPreviousHash = strings.Repeat("0", MaxDifficulty)

// Block is one sealed batch of transactions.
//
// Fields are declared in lexicographic key order: the canonical
// serialization used for hashing relies on encoding/json emitting
// struct fields in declaration order.
type Block struct {
	Index        uint64        `json:"index"`
	PreviousHash string        `json:"previous_hash"`
	Proof        uint64        `json:"proof"`
	Timestamp    float64       `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
}

func NewBlock(index uint64, timestamp float64, transactions []Transaction, proof uint64, previousHash string) *Block {
	if transactions == nil {
		transactions = []Transaction{}
	}
	return &Block{
		Index:        index,
		PreviousHash: previousHash,
		Proof:        proof,
		Timestamp:    timestamp,
		Transactions: transactions,
	}
}

// NewGenesisBlock creates block 0
func NewGenesisBlock(timestamp float64) *Block {
	return NewBlock(0, timestamp, nil, GenesisProof, GenesisPreviousHash)
}

// Canonical returns the serialization that Hash digests: compact JSON,
// keys sorted, no HTML escaping, no trailing newline
func (b *Block) Canonical() []byte {
	c := b
	if c.Transactions == nil {
		c = b.Copy()
	}

	buffer := new(bytes.Buffer)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)

	// only strings, integers, finite floats and slices: cannot fail
	_ = encoder.Encode(c)

	return bytes.TrimRight(buffer.Bytes(), "\n")
}

// Hash is the lowercase hex SHA-224 digest of the canonical form
func (b *Block) Hash() string {
	digest := sha256.Sum224(b.Canonical())
	return hex.EncodeToString(digest[:])
}

// Copy returns a deep copy of the block
func (b *Block) Copy() *Block {
	transactions := make([]Transaction, len(b.Transactions))
	copy(transactions, b.Transactions)
	return &Block{
		Index:        b.Index,
		PreviousHash: b.PreviousHash,
		Proof:        b.Proof,
		Timestamp:    b.Timestamp,
		Transactions: transactions,
	}
}

// ValidProof reports whether the SHA-224 digest of
// decimal(lastProof) || decimal(proof) || lastHash starts with
// difficulty hex zeros
func ValidProof(lastProof uint64, proof uint64, lastHash string, difficulty int) bool {
	guess := make([]byte, 0, 40+len(lastHash))
	guess = strconv.AppendUint(guess, lastProof, 10)
	guess = strconv.AppendUint(guess, proof, 10)
	guess = append(guess, lastHash...)

	digest := sha256.Sum224(guess)
	return leadingZeroNibbles(digest[:], difficulty)
}

func leadingZeroNibbles(digest []byte, n int) bool {
	if n > 2*len(digest) {
		return false
	}
	for i := 0; i < n/2; i++ {
		if digest[i] != 0 {
			return false
		}
	}
	if n%2 == 1 && digest[n/2]>>4 != 0 {
		return false
	}
	return true
}

// ValidateGenesis checks the fixed shape of block 0
func ValidateGenesis(b *Block) error {
	if b.Index != 0 || b.PreviousHash != GenesisPreviousHash {
		return fault.ErrInvalidGenesis
	}
	return nil
}

// ValidateLink checks that current correctly extends previous
func ValidateLink(previous *Block, current *Block, difficulty int) error {
	if current.Index != previous.Index+1 {
		return fault.ErrBadBlockIndex
	}
	if current.PreviousHash != previous.Hash() {
		return fault.ErrBadPreviousHash
	}
	if !ValidProof(previous.Proof, current.Proof, current.PreviousHash, difficulty) {
		return fault.ErrBadProof
	}
	return nil
}

// ValidateChain verifies every adjacent pair and returns the index of the
// first block that breaks the chain along with the reason
func ValidateChain(blocks []*Block, difficulty int) (int, error) {
	if len(blocks) == 0 {
		return 0, fault.ErrEmptyChain
	}

	if err := ValidateGenesis(blocks[0]); err != nil {
		return 0, err
	}

	for i := 1; i < len(blocks); i++ {
		if err := ValidateLink(blocks[i-1], blocks[i], difficulty); err != nil {
			return i, fmt.Errorf("block %d: %w", i, err)
		}
	}

	return -1, nil
}
