package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"filechain/internal/domain"
)

type SignatureStoreConfig struct {
	Repo    AttestationRepository
	Binding domain.SignatureBinding
	Clock   func() time.Time
	Logger  *slog.Logger
	Metrics Metrics
}

// SignatureStore records attestations and answers whether a block carries a
// valid one.
type SignatureStore struct {
	mu      sync.Mutex
	repo    AttestationRepository
	binding domain.SignatureBinding
	clock   func() time.Time
	newID   func() string
	logger  *slog.Logger
	metrics Metrics
}

func NewSignatureStore(cfg SignatureStoreConfig) (*SignatureStore, error) {
	if cfg.Repo == nil {
		return nil, errors.New("attestation repository required")
	}
	s := &SignatureStore{
		repo:    cfg.Repo,
		binding: cfg.Binding,
		clock:   cfg.Clock,
		newID:   uuid.NewString,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if !s.binding.Valid() {
		s.binding = domain.BindingIndex
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	return s, nil
}

func (s *SignatureStore) Binding() domain.SignatureBinding {
	return s.binding
}

// Record appends an attestation. Earlier attestations are kept; the same
// signer may sign the same block more than once.
func (s *SignatureStore) Record(ctx context.Context, blockIndex int64, signerID, signature, publicKey, blockHash string) (domain.Attestation, error) {
	if blockIndex < 0 {
		return domain.Attestation{}, fmt.Errorf("%w: block_index must not be negative", domain.ErrValidation)
	}
	if strings.TrimSpace(signerID) == "" || strings.TrimSpace(signature) == "" || strings.TrimSpace(publicKey) == "" {
		return domain.Attestation{}, fmt.Errorf("%w: signer_id, signature and public_key are required", domain.ErrValidation)
	}
	att := domain.Attestation{
		ID:         s.newID(),
		BlockIndex: blockIndex,
		SignerID:   signerID,
		Signature:  signature,
		PublicKey:  publicKey,
		SignedAt:   domain.TimestampFromTime(s.clock()),
		BlockHash:  blockHash,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Append(ctx, att); err != nil {
		s.logger.Error("persist attestation failed", "block_index", blockIndex, "error", err)
		return domain.Attestation{}, fmt.Errorf("record attestation for block %d: %w", blockIndex, err)
	}
	s.metrics.SignatureRecorded()
	s.logger.Info("attestation recorded", "id", att.ID, "block_index", blockIndex, "signer_id", signerID)
	return att, nil
}

// Lookup returns the first attestation recorded for blockIndex, or
// domain.ErrNotSigned.
func (s *SignatureStore) Lookup(ctx context.Context, blockIndex int64) (domain.Attestation, error) {
	atts, err := s.repo.List(ctx)
	if err != nil {
		return domain.Attestation{}, fmt.Errorf("list attestations: %w", err)
	}
	for _, att := range atts {
		if att.BlockIndex == blockIndex {
			return att, nil
		}
	}
	return domain.Attestation{}, domain.ErrNotSigned
}

// CheckStatus re-verifies the first attestation of a block against the
// block's current contents.
func (s *SignatureStore) CheckStatus(ctx context.Context, blockIndex int64, blocks BlockSource, verifier SignatureVerifier) (domain.SignatureStatus, error) {
	block, err := blocks.BlockAt(blockIndex)
	if err != nil {
		return domain.SignatureStatus{}, err
	}
	att, err := s.Lookup(ctx, blockIndex)
	if errors.Is(err, domain.ErrNotSigned) {
		s.metrics.StatusChecked(false)
		return domain.SignatureStatus{}, nil
	}
	if err != nil {
		return domain.SignatureStatus{}, err
	}

	signer := att.SignerID
	status := domain.SignatureStatus{Signed: true, SignerID: &signer}
	if s.binding == domain.BindingIdentity && att.BlockHash != "" && att.BlockHash != block.Hash {
		s.logger.Warn("attestation pinned to a different block", "block_index", blockIndex, "attestation_id", att.ID)
		s.metrics.StatusChecked(false)
		return status, nil
	}
	ok, err := verifier.Verify(block, att.Signature, att.PublicKey)
	if err != nil {
		if !errors.Is(err, domain.ErrCrypto) {
			return domain.SignatureStatus{}, err
		}
		s.logger.Warn("stored attestation unreadable", "block_index", blockIndex, "attestation_id", att.ID, "error", err)
		ok = false
	}
	status.Valid = ok
	s.metrics.StatusChecked(ok)
	return status, nil
}
