package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	GenesisPreviousHash = "0"
	GenesisContentHash  = "0"
	GenesisOwnerID      = "system"
)

// Timestamp is wall-clock time in seconds with sub-second precision, the
// unit the persisted chain and the signing clients use.
type Timestamp float64

func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp(float64(t.Unix()) + float64(t.Nanosecond())/1e9)
}

// String returns the shortest decimal form that round-trips the value, with
// a trailing ".0" for whole seconds. It is the form hashed into a block's
// canonical encoding and matches what the legacy signing clients print.
func (t Timestamp) String() string {
	s := strconv.FormatFloat(float64(t), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (t Timestamp) Time() time.Time {
	sec, frac := math.Modf(float64(t))
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// Block is a sealed ledger entry. Values are never mutated once built.
type Block struct {
	Index        int64
	PreviousHash string
	ContentHash  string
	OwnerID      string
	Timestamp    Timestamp
	Hash         string
}

func (b Block) IsGenesis() bool {
	return b.Index == 0
}

// CanonicalEncoding selects how block fields are joined before hashing and
// signing.
type CanonicalEncoding string

const (
	// EncodingLengthPrefixed writes every field as a netstring, so no two
	// field tuples share an encoding.
	EncodingLengthPrefixed CanonicalEncoding = "length-prefixed"
	// EncodingLegacy concatenates fields with no separators. Kept for chains
	// and signing clients produced by the first version of the service.
	EncodingLegacy CanonicalEncoding = "legacy"
)

func (e CanonicalEncoding) Valid() bool {
	return e == EncodingLengthPrefixed || e == EncodingLegacy
}

// SignatureBinding selects what an attestation signs.
type SignatureBinding string

const (
	// BindingIndex signs the canonical block string and references the
	// block by position.
	BindingIndex SignatureBinding = "index"
	// BindingIdentity signs the block identity hash and pins the
	// attestation to it.
	BindingIdentity SignatureBinding = "identity"
)

func (b SignatureBinding) Valid() bool {
	return b == BindingIndex || b == BindingIdentity
}
