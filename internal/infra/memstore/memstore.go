package memstore

import (
	"context"
	"sync"

	"filechain/internal/domain"
)

// Chain is a process-local ChainStore. Nothing survives a restart.
type Chain struct {
	mu     sync.RWMutex
	blocks []domain.Block
}

func NewChain() *Chain {
	return &Chain{}
}

func (c *Chain) Load(ctx context.Context) ([]domain.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneBlocks(c.blocks), nil
}

func (c *Chain) Save(ctx context.Context, blocks []domain.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.blocks = cloneBlocks(blocks)
	c.mu.Unlock()
	return nil
}

// Attestations is a process-local AttestationRepository.
type Attestations struct {
	mu    sync.RWMutex
	items []domain.Attestation
}

func NewAttestations() *Attestations {
	return &Attestations{}
}

func (a *Attestations) Append(ctx context.Context, att domain.Attestation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	a.items = append(a.items, att)
	a.mu.Unlock()
	return nil
}

func (a *Attestations) List(ctx context.Context) ([]domain.Attestation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.Attestation, len(a.items))
	copy(out, a.items)
	return out, nil
}

func cloneBlocks(in []domain.Block) []domain.Block {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Block, len(in))
	copy(out, in)
	return out
}
