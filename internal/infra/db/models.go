package db

type BlockModel struct {
	Index        int64   `gorm:"column:block_index;primaryKey;autoIncrement:false"`
	PreviousHash string  `gorm:"not null"`
	FileHash     string  `gorm:"not null"`
	UserID       string  `gorm:"not null"`
	Timestamp    float64 `gorm:"type:double precision;not null"`
	Hash         string  `gorm:"not null"`
}

func (BlockModel) TableName() string { return "chain_blocks" }

// AttestationModel rows are ordered by Seq, the recording order.
type AttestationModel struct {
	Seq        int64   `gorm:"primaryKey;autoIncrement"`
	ID         string  `gorm:"column:attestation_id;not null"`
	BlockIndex int64   `gorm:"index;not null"`
	SignerID   string  `gorm:"not null"`
	Signature  string  `gorm:"not null"`
	PublicKey  string  `gorm:"not null"`
	SignedAt   float64 `gorm:"type:double precision;not null"`
	BlockHash  string  `gorm:"not null"`
}

func (AttestationModel) TableName() string { return "block_attestations" }
