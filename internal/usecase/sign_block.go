package usecase

import (
	"context"
	"fmt"
	"strings"

	"filechain/internal/domain"
)

type SignBlockRequest struct {
	BlockIndex *int64
	SignerID   string
	Signature  string
	PublicKey  string
}

type SignBlockResponse struct {
	Attestation domain.Attestation
	Policy      *domain.PolicyEvaluation
}

// SignBlock accepts an external signature over a ledger block.
type SignBlock struct {
	Ledger     BlockSource
	Verifier   SignatureVerifier
	Signatures *SignatureStore
	Policy     PolicyEngine
	Metrics    Metrics
}

func (uc *SignBlock) Execute(ctx context.Context, req SignBlockRequest) (*SignBlockResponse, error) {
	metrics := uc.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if req.BlockIndex == nil {
		return nil, fmt.Errorf("%w: block_index is required", domain.ErrValidation)
	}
	if strings.TrimSpace(req.SignerID) == "" || strings.TrimSpace(req.Signature) == "" || strings.TrimSpace(req.PublicKey) == "" {
		return nil, fmt.Errorf("%w: signer_id, signature and public_key are required", domain.ErrValidation)
	}
	index := *req.BlockIndex

	block, err := uc.Ledger.BlockAt(index)
	if err != nil {
		return nil, err
	}

	var evaluation *domain.PolicyEvaluation
	if uc.Policy != nil {
		eval, err := uc.Policy.Evaluate(ctx, domain.PolicyInput{
			BlockIndex: index,
			SignerID:   req.SignerID,
			BlockOwner: block.OwnerID,
			ChainValid: uc.Ledger.IsValid(),
			IsGenesis:  block.IsGenesis(),
		})
		if err != nil {
			return nil, fmt.Errorf("evaluate signing policy: %w", err)
		}
		if !eval.Result.Allow {
			metrics.SignatureRejected("policy")
			return nil, policyDenied(eval.Result)
		}
		evaluation = &eval
	}

	ok, err := uc.Verifier.Verify(block, req.Signature, req.PublicKey)
	if err != nil {
		metrics.SignatureRejected("malformed")
		return nil, err
	}
	if !ok {
		metrics.SignatureRejected("invalid")
		return nil, fmt.Errorf("%w: block %d", domain.ErrSignatureInvalid, index)
	}

	att, err := uc.Signatures.Record(ctx, index, req.SignerID, req.Signature, req.PublicKey, block.Hash)
	if err != nil {
		return nil, err
	}
	return &SignBlockResponse{Attestation: att, Policy: evaluation}, nil
}

func policyDenied(result domain.PolicyResult) error {
	if len(result.Deny) == 0 {
		return domain.ErrPolicyDenied
	}
	codes := make([]string, 0, len(result.Deny))
	for _, d := range result.Deny {
		codes = append(codes, d.Code)
	}
	return fmt.Errorf("%w: %s", domain.ErrPolicyDenied, strings.Join(codes, ","))
}
