package usecase

import (
	"context"
	"io"

	"filechain/internal/domain"
)

// ChainStore persists the whole ordered block sequence. Load returns an
// empty slice and a nil error when nothing has been stored yet, and an error
// wrapping domain.ErrCorruptState when stored data cannot be decoded.
type ChainStore interface {
	Load(ctx context.Context) ([]domain.Block, error)
	Save(ctx context.Context, blocks []domain.Block) error
}

// AttestationRepository keeps attestations in the order they were recorded.
type AttestationRepository interface {
	Append(ctx context.Context, att domain.Attestation) error
	List(ctx context.Context) ([]domain.Attestation, error)
}

type Hasher interface {
	Digest(r io.Reader) (string, error)
	DigestFile(path string) (string, error)
	BlockHash(b domain.Block) string
}

type SignatureVerifier interface {
	Verify(b domain.Block, signatureB64, publicKeyPEM string) (bool, error)
}

type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error)
}

// BlockSource is the read side of the ledger used by signing flows.
type BlockSource interface {
	BlockAt(index int64) (domain.Block, error)
	IsValid() bool
}

// Metrics receives ledger and signing outcomes. Implementations must be safe
// for concurrent use.
type Metrics interface {
	BlockAppended(chainLength int)
	AppendFailed()
	SignatureRecorded()
	SignatureRejected(reason string)
	StatusChecked(valid bool)
}

type nopMetrics struct{}

func (nopMetrics) BlockAppended(int)        {}
func (nopMetrics) AppendFailed()            {}
func (nopMetrics) SignatureRecorded()       {}
func (nopMetrics) SignatureRejected(string) {}
func (nopMetrics) StatusChecked(bool)       {}
