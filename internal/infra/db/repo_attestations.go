package db

import (
	"context"

	"filechain/internal/domain"

	"gorm.io/gorm"
)

type AttestationRepository struct {
	db *gorm.DB
}

func NewAttestationRepository(db *gorm.DB) *AttestationRepository {
	return &AttestationRepository{db: db}
}

func (r *AttestationRepository) Append(ctx context.Context, att domain.Attestation) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := AttestationModel{
		ID:         att.ID,
		BlockIndex: att.BlockIndex,
		SignerID:   att.SignerID,
		Signature:  att.Signature,
		PublicKey:  att.PublicKey,
		SignedAt:   float64(att.SignedAt),
		BlockHash:  att.BlockHash,
	}
	return ioError("append attestation", r.db.WithContext(ctx).Create(&model).Error)
}

func (r *AttestationRepository) List(ctx context.Context) ([]domain.Attestation, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AttestationModel
	if err := r.db.WithContext(ctx).Order("seq asc").Find(&models).Error; err != nil {
		return nil, ioError("list attestations", err)
	}
	out := make([]domain.Attestation, 0, len(models))
	for _, m := range models {
		out = append(out, domain.Attestation{
			ID:         m.ID,
			BlockIndex: m.BlockIndex,
			SignerID:   m.SignerID,
			Signature:  m.Signature,
			PublicKey:  m.PublicKey,
			SignedAt:   domain.Timestamp(m.SignedAt),
			BlockHash:  m.BlockHash,
		})
	}
	return out, nil
}
