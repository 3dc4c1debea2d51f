package usecase

import "filechain/internal/domain"

// Seal builds a block and computes its identity hash.
func Seal(h Hasher, index int64, previousHash, contentHash, ownerID string, ts domain.Timestamp) domain.Block {
	b := domain.Block{
		Index:        index,
		PreviousHash: previousHash,
		ContentHash:  contentHash,
		OwnerID:      ownerID,
		Timestamp:    ts,
	}
	b.Hash = h.BlockHash(b)
	return b
}

// Reconstruct rebuilds a persisted block, trusting the stored identity hash.
// Integrity is checked by Ledger.Verify, not here.
func Reconstruct(index int64, previousHash, contentHash, ownerID string, ts domain.Timestamp, identityHash string) domain.Block {
	return domain.Block{
		Index:        index,
		PreviousHash: previousHash,
		ContentHash:  contentHash,
		OwnerID:      ownerID,
		Timestamp:    ts,
		Hash:         identityHash,
	}
}

func genesisBlock(h Hasher, ts domain.Timestamp) domain.Block {
	return Seal(h, 0, domain.GenesisPreviousHash, domain.GenesisContentHash, domain.GenesisOwnerID, ts)
}
