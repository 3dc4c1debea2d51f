package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"filechain/internal/domain"
	"filechain/internal/infra/crypto"
	"filechain/internal/usecase"
)

// blockFile accepts a bare block, {"block": ...}, or the response of
// GET /block/:index, which nests the block under data.block.
type blockFile struct {
	Index        *int64     `json:"index"`
	PreviousHash string     `json:"previous_hash"`
	FileHash     string     `json:"file_hash"`
	UserID       string     `json:"user_id"`
	Timestamp    float64    `json:"timestamp"`
	Hash         string     `json:"hash"`
	Block        *blockFile `json:"block"`
	Data         *blockFile `json:"data"`
}

// unwrap returns the innermost object that carries an index.
func (bf *blockFile) unwrap() *blockFile {
	for cur := bf; cur != nil; {
		if cur.Index != nil {
			return cur
		}
		if cur.Block != nil {
			cur = cur.Block
			continue
		}
		cur = cur.Data
	}
	return nil
}

type signBlockBody struct {
	BlockIndex int64  `json:"block_index"`
	SignerID   string `json:"signer_id"`
	Signature  string `json:"signature"`
	PublicKey  string `json:"public_key"`
}

func readBlock(path string) (domain.Block, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Block{}, err
	}
	var bf blockFile
	if err := json.Unmarshal(raw, &bf); err != nil {
		return domain.Block{}, fmt.Errorf("decode block: %w", err)
	}
	b := bf.unwrap()
	if b == nil {
		return domain.Block{}, fmt.Errorf("block file %s has no index", path)
	}
	return usecase.Reconstruct(*b.Index, b.PreviousHash, b.FileHash, b.UserID, domain.Timestamp(b.Timestamp), b.Hash), nil
}

func signatureService(encoding, binding string) (*crypto.SignatureService, error) {
	enc := domain.CanonicalEncoding(strings.TrimSpace(encoding))
	if !enc.Valid() {
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
	bind := domain.SignatureBinding(strings.TrimSpace(binding))
	if !bind.Valid() {
		return nil, fmt.Errorf("unsupported binding %q", binding)
	}
	return crypto.NewSignatureService(enc, bind), nil
}

func runSign(args []string) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var blockPath string
	var keyPath string
	var signerID string
	var encoding string
	var binding string
	var outPath string

	fs.StringVar(&blockPath, "block", "", "block JSON path")
	fs.StringVar(&keyPath, "key", "", "PEM private key path")
	fs.StringVar(&signerID, "signer-id", "", "signer id")
	fs.StringVar(&encoding, "encoding", string(domain.EncodingLengthPrefixed), "canonical encoding")
	fs.StringVar(&binding, "binding", string(domain.BindingIndex), "signature binding")
	fs.StringVar(&outPath, "out", "", "output request path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if blockPath == "" || keyPath == "" || strings.TrimSpace(signerID) == "" {
		fmt.Fprintln(os.Stderr, "sign requires --block, --key and --signer-id")
		return 1
	}
	service, err := signatureService(encoding, binding)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	block, err := readBlock(blockPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read block: %v\n", err)
		return 1
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read private key: %v\n", err)
		return 1
	}
	signer, err := crypto.ParsePrivateKeyPEM(string(keyPEM))
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse private key: %v\n", err)
		return 1
	}
	publicPEM, err := crypto.MarshalPublicKeyPEM(signer.Public())
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal public key: %v\n", err)
		return 1
	}
	signature, err := service.Sign(block, signer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign block: %v\n", err)
		return 1
	}

	payload, err := json.MarshalIndent(signBlockBody{
		BlockIndex: block.Index,
		SignerID:   signerID,
		Signature:  signature,
		PublicKey:  publicPEM,
	}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal request: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, append(payload, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var blockPath string
	var signature string
	var pubkeyPath string
	var encoding string
	var binding string

	fs.StringVar(&blockPath, "block", "", "block JSON path")
	fs.StringVar(&signature, "signature", "", "base64 signature")
	fs.StringVar(&pubkeyPath, "pubkey", "", "PEM public key path")
	fs.StringVar(&encoding, "encoding", string(domain.EncodingLengthPrefixed), "canonical encoding")
	fs.StringVar(&binding, "binding", string(domain.BindingIndex), "signature binding")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if blockPath == "" || signature == "" || pubkeyPath == "" {
		fmt.Fprintln(os.Stderr, "verify requires --block, --signature and --pubkey")
		return 1
	}
	service, err := signatureService(encoding, binding)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	block, err := readBlock(blockPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read block: %v\n", err)
		return 1
	}
	pubPEM, err := os.ReadFile(pubkeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read public key: %v\n", err)
		return 1
	}

	ok, err := service.Verify(block, signature, string(pubPEM))
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(os.Stdout, "invalid")
		return 2
	}
	fmt.Fprintln(os.Stdout, "valid")
	return 0
}
