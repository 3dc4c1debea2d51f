package domain

// Attestation records an external party's signature over a block.
type Attestation struct {
	ID         string
	BlockIndex int64
	SignerID   string
	Signature  string
	PublicKey  string
	SignedAt   Timestamp
	// BlockHash is the identity hash of the block when the signature was
	// accepted. Empty for attestations written before it was tracked.
	BlockHash string
}

type SignatureStatus struct {
	Signed   bool    `json:"signed"`
	Valid    bool    `json:"valid"`
	SignerID *string `json:"signer_id"`
}
