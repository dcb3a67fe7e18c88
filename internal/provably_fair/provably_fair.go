package provably_fair

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"go-crash/internal/lib/random"
)

const (
	seedLength = 64

	// verifyEpsilon tolerates float representation of the claimed crash
	// point, not algorithmic drift; the derivation itself is integer-exact.
	verifyEpsilon = 1e-4
)

// Commitment is the output of the commit phase: the hash is published before
// betting opens, the seed only after the round crashes.
type Commitment struct {
	Seed       string
	Hash       string
	CrashPoint float64
}

// Generator derives crash points via commit-reveal. MaxCrashSteps bounds the
// crash point to [1.00, 1.00 + maxCrashSteps/10] and is the house-edge knob.
type Generator struct {
	maxCrashSteps int64
}

func NewGenerator(maxCrashSteps int64) *Generator {
	return &Generator{maxCrashSteps: maxCrashSteps}
}

// Commit draws fresh entropy for the round and fixes its crash point.
// The round id is part of the hashed material so identical seeds across
// rounds cannot collide.
func (g *Generator) Commit(roundID int64) Commitment {
	seed := random.NewRandomString(seedLength)

	hash, crashPoint := g.derive(seed, roundID)

	return Commitment{
		Seed:       seed,
		Hash:       hash,
		CrashPoint: crashPoint,
	}
}

// Verify recomputes the commitment from the revealed seed and checks both the
// hash and the claimed crash point. A mismatch means the outcome was tampered
// with after bets were placed.
func (g *Generator) Verify(seed string, roundID int64, hash string, crashPoint float64) bool {
	computedHash, computedCrashPoint := g.derive(seed, roundID)

	if computedHash != hash {
		return false
	}

	diff := computedCrashPoint - crashPoint
	if diff < 0 {
		diff = -diff
	}

	return diff < verifyEpsilon
}

func (g *Generator) derive(seed string, roundID int64) (string, float64) {
	combined := seed + "-" + strconv.FormatInt(roundID, 10)
	sum := sha256.Sum256([]byte(combined))

	hashInt := binary.BigEndian.Uint32(sum[:4])
	steps := int64(hashInt) % g.maxCrashSteps

	return hex.EncodeToString(sum[:]), 1 + float64(steps)/10
}
