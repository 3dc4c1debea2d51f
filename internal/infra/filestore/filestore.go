package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"filechain/internal/domain"
)

// ChainFile keeps the ledger as an indented JSON array. Writes go to a
// sibling temp file that is renamed over the target, so readers see either
// the previous or the new document.
type ChainFile struct {
	mu   sync.RWMutex
	path string
}

func NewChainFile(path string) (*ChainFile, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	return &ChainFile{path: path}, nil
}

func (f *ChainFile) Path() string {
	return f.path
}

type blockRecord struct {
	Index        int64   `json:"index"`
	PreviousHash string  `json:"previous_hash"`
	FileHash     string  `json:"file_hash"`
	UserID       string  `json:"user_id"`
	Timestamp    float64 `json:"timestamp"`
	Hash         string  `json:"hash"`
}

func (f *ChainFile) Load(ctx context.Context) ([]domain.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	var records []blockRecord
	found, err := readJSON(f.path, &records)
	if err != nil || !found {
		return nil, err
	}
	blocks := make([]domain.Block, 0, len(records))
	for i, r := range records {
		if r.Hash == "" || r.PreviousHash == "" {
			return nil, fmt.Errorf("%w: %s: record %d is missing hash fields", domain.ErrCorruptState, f.path, i)
		}
		blocks = append(blocks, domain.Block{
			Index:        r.Index,
			PreviousHash: r.PreviousHash,
			ContentHash:  r.FileHash,
			OwnerID:      r.UserID,
			Timestamp:    domain.Timestamp(r.Timestamp),
			Hash:         r.Hash,
		})
	}
	return blocks, nil
}

func (f *ChainFile) Save(ctx context.Context, blocks []domain.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	records := make([]blockRecord, 0, len(blocks))
	for _, b := range blocks {
		records = append(records, blockRecord{
			Index:        b.Index,
			PreviousHash: b.PreviousHash,
			FileHash:     b.ContentHash,
			UserID:       b.OwnerID,
			Timestamp:    float64(b.Timestamp),
			Hash:         b.Hash,
		})
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeJSONAtomic(f.path, records)
}

// SignatureFile keeps attestations as a JSON array in recording order.
type SignatureFile struct {
	mu   sync.RWMutex
	path string
}

func NewSignatureFile(path string) (*SignatureFile, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	return &SignatureFile{path: path}, nil
}

func (f *SignatureFile) Path() string {
	return f.path
}

type attestationRecord struct {
	ID         string  `json:"id,omitempty"`
	BlockIndex int64   `json:"block_index"`
	SignerID   string  `json:"signer_id"`
	Signature  string  `json:"signature"`
	PublicKey  string  `json:"public_key"`
	SignedAt   float64 `json:"signed_at"`
	BlockHash  string  `json:"block_hash,omitempty"`
}

func (f *SignatureFile) List(ctx context.Context) ([]domain.Attestation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	records, err := f.read()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Attestation, 0, len(records))
	for _, r := range records {
		out = append(out, domain.Attestation{
			ID:         r.ID,
			BlockIndex: r.BlockIndex,
			SignerID:   r.SignerID,
			Signature:  r.Signature,
			PublicKey:  r.PublicKey,
			SignedAt:   domain.Timestamp(r.SignedAt),
			BlockHash:  r.BlockHash,
		})
	}
	return out, nil
}

// Append rewrites the whole document with att added at the end.
func (f *SignatureFile) Append(ctx context.Context, att domain.Attestation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	records, err := f.read()
	if err != nil {
		return err
	}
	records = append(records, attestationRecord{
		ID:         att.ID,
		BlockIndex: att.BlockIndex,
		SignerID:   att.SignerID,
		Signature:  att.Signature,
		PublicKey:  att.PublicKey,
		SignedAt:   float64(att.SignedAt),
		BlockHash:  att.BlockHash,
	})
	return writeJSONAtomic(f.path, records)
}

func (f *SignatureFile) read() ([]attestationRecord, error) {
	var records []attestationRecord
	if _, err := readJSON(f.path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// readJSON decodes path into v. A missing or blank file reports found=false.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: read %s: %w", domain.ErrIO, path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: decode %s: %w", domain.ErrCorruptState, path, err)
	}
	return true, nil
}

// writeJSONAtomic replaces path with the encoded value. The data is synced
// to a temp file in the same directory before the rename, so a crash leaves
// either the old document or the new one.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %w", domain.ErrIO, path, err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: write %s: %w", domain.ErrIO, tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: sync %s: %w", domain.ErrIO, tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: close %s: %w", domain.ErrIO, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: replace %s: %w", domain.ErrIO, path, err)
	}
	return nil
}

func ensureDir(path string) error {
	if path == "" {
		return fmt.Errorf("%w: file path is required", domain.ErrValidation)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create directory for %s: %w", domain.ErrIO, path, err)
	}
	return nil
}
