package domain

type PolicyInput struct {
	BlockIndex int64  `json:"block_index"`
	SignerID   string `json:"signer_id"`
	BlockOwner string `json:"block_owner"`
	ChainValid bool   `json:"chain_valid"`
	IsGenesis  bool   `json:"is_genesis"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string       `json:"bundle_id,omitempty"`
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}
