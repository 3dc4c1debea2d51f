package db

import (
	"context"

	"filechain/internal/domain"

	"gorm.io/gorm"
)

// ChainRepository stores the ledger in chain_blocks. Save replaces the
// table contents inside one transaction.
type ChainRepository struct {
	db *gorm.DB
}

func NewChainRepository(db *gorm.DB) *ChainRepository {
	return &ChainRepository{db: db}
}

func (r *ChainRepository) Load(ctx context.Context) ([]domain.Block, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []BlockModel
	if err := r.db.WithContext(ctx).Order("block_index asc").Find(&models).Error; err != nil {
		return nil, ioError("load chain", err)
	}
	blocks := make([]domain.Block, 0, len(models))
	for _, m := range models {
		blocks = append(blocks, domain.Block{
			Index:        m.Index,
			PreviousHash: m.PreviousHash,
			ContentHash:  m.FileHash,
			OwnerID:      m.UserID,
			Timestamp:    domain.Timestamp(m.Timestamp),
			Hash:         m.Hash,
		})
	}
	return blocks, nil
}

func (r *ChainRepository) Save(ctx context.Context, blocks []domain.Block) error {
	if r.db == nil {
		return errDBUnavailable
	}
	models := make([]BlockModel, 0, len(blocks))
	for _, b := range blocks {
		models = append(models, BlockModel{
			Index:        b.Index,
			PreviousHash: b.PreviousHash,
			FileHash:     b.ContentHash,
			UserID:       b.OwnerID,
			Timestamp:    float64(b.Timestamp),
			Hash:         b.Hash,
		})
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&BlockModel{}).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.CreateInBatches(models, 500).Error
	})
	return ioError("save chain", err)
}
