package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filechain/internal/domain"
)

func sampleBlocks() []domain.Block {
	return []domain.Block{
		{Index: 0, PreviousHash: "0", ContentHash: "0", OwnerID: "system", Timestamp: 1712345678.1234567, Hash: strings.Repeat("a", 64)},
		{Index: 1, PreviousHash: strings.Repeat("a", 64), ContentHash: strings.Repeat("c", 64), OwnerID: "alice", Timestamp: 1712345679.25, Hash: strings.Repeat("b", 64)},
	}
}

func TestChainFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "blockchain.json")
	f, err := NewChainFile(path)
	if err != nil {
		t.Fatalf("new chain file: %v", err)
	}
	ctx := context.Background()

	blocks, err := f.Load(ctx)
	if err != nil || len(blocks) != 0 {
		t.Fatalf("expected empty load for missing file, got %v %v", blocks, err)
	}
	want := sampleBlocks()
	if err := f.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := f.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d blocks, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("block %d differs: %+v vs %+v", i, got[i], want[i])
		}
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestChainFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blockchain.json")
	f, err := NewChainFile(path)
	if err != nil {
		t.Fatalf("new chain file: %v", err)
	}
	if err := f.Save(context.Background(), sampleBlocks()); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"index", "previous_hash", "file_hash", "user_id", "timestamp", "hash"} {
		if _, ok := raw[1][key]; !ok {
			t.Fatalf("missing key %q in persisted block", key)
		}
	}
	if raw[1]["user_id"] != "alice" {
		t.Fatalf("unexpected user_id %v", raw[1]["user_id"])
	}
	if !strings.Contains(string(data), "\n  {") {
		t.Fatal("expected indented document")
	}
}

func TestChainFileLoadsLegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blockchain.json")
	doc := `[
  {
    "index": 0,
    "previous_hash": "0",
    "file_hash": "0",
    "user_id": "system",
    "timestamp": 1712345678.1234567,
    "hash": "c9e04ae1eb1ca752f743a456df8e1a169355fed55718d5ee16610220b15d1e8f"
  }
]`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := NewChainFile(path)
	if err != nil {
		t.Fatalf("new chain file: %v", err)
	}
	blocks, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Timestamp.String() != "1712345678.1234567" {
		t.Fatalf("unexpected blocks %+v", blocks)
	}
}

func TestChainFileCorruptAndEmpty(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		corrupt bool
	}{
		{name: "empty", content: ""},
		{name: "blank", content: "  \n"},
		{name: "empty array", content: "[]"},
		{name: "truncated", content: `[{"index": 0, "previous_ha`, corrupt: true},
		{name: "wrong shape", content: `{"index": 0}`, corrupt: true},
		{name: "missing hash", content: `[{"index": 0, "previous_hash": "0"}]`, corrupt: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			f, err := NewChainFile(path)
			if err != nil {
				t.Fatalf("new chain file: %v", err)
			}
			blocks, err := f.Load(context.Background())
			if tt.corrupt {
				if !errors.Is(err, domain.ErrCorruptState) {
					t.Fatalf("expected ErrCorruptState, got %v", err)
				}
				return
			}
			if err != nil || len(blocks) != 0 {
				t.Fatalf("expected empty chain, got %v %v", blocks, err)
			}
		})
	}
}

func TestChainFileUnreadableIsIOError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blockchain.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := NewChainFile(path)
	if err != nil {
		t.Fatalf("new chain file: %v", err)
	}
	if _, err := f.Load(context.Background()); !errors.Is(err, domain.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if err := f.Save(context.Background(), sampleBlocks()); !errors.Is(err, domain.ErrIO) {
		t.Fatalf("expected ErrIO on save, got %v", err)
	}
}

func TestChainFileSaveReplacesWholeDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blockchain.json")
	// leftover from a writer that died mid-save
	if err := os.WriteFile(path+".tmp", nil, 0o600); err != nil {
		t.Fatalf("write stale temp: %v", err)
	}
	f, err := NewChainFile(path)
	if err != nil {
		t.Fatalf("new chain file: %v", err)
	}
	ctx := context.Background()
	blocks := sampleBlocks()
	for i := 1; i <= len(blocks); i++ {
		if err := f.Save(ctx, blocks[:i]); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		got, err := f.Load(ctx)
		if err != nil || len(got) != i {
			t.Fatalf("expected %d blocks after save, got %d %v", i, len(got), err)
		}
	}
	if err := os.Remove(path + ".tmp"); err != nil {
		t.Fatalf("stale temp must be left untouched: %v", err)
	}
	assertNoTempFiles(t, dir)

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("expected non-empty chain file, got %v %v", info, err)
	}
}

func TestChainFileFailedSaveCleansUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blockchain.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := NewChainFile(path)
	if err != nil {
		t.Fatalf("new chain file: %v", err)
	}
	if err := f.Save(context.Background(), sampleBlocks()); !errors.Is(err, domain.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	assertNoTempFiles(t, dir)
}

func TestSignatureFileAppendPreservesHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signatures.json")
	f, err := NewSignatureFile(path)
	if err != nil {
		t.Fatalf("new signature file: %v", err)
	}
	ctx := context.Background()

	atts, err := f.List(ctx)
	if err != nil || len(atts) != 0 {
		t.Fatalf("expected empty list, got %v %v", atts, err)
	}
	for i, signer := range []string{"alice", "bob", "alice"} {
		att := domain.Attestation{
			ID:         signer + "-id",
			BlockIndex: int64(i % 2),
			SignerID:   signer,
			Signature:  "c2ln",
			PublicKey:  "pem",
			SignedAt:   1712345700.5,
			BlockHash:  strings.Repeat("b", 64),
		}
		if err := f.Append(ctx, att); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	atts, err = f.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(atts) != 3 {
		t.Fatalf("expected 3 attestations, got %d", len(atts))
	}
	if atts[0].SignerID != "alice" || atts[1].SignerID != "bob" || atts[2].BlockIndex != 0 {
		t.Fatalf("unexpected order %+v", atts)
	}
	if atts[1].SignedAt != 1712345700.5 {
		t.Fatalf("unexpected signed_at %v", atts[1].SignedAt)
	}
}

func TestSignatureFileLoadsLegacyEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signatures.json")
	doc := `[{"block_index": 1, "signer_id": "notary", "signature": "c2ln", "public_key": "pem", "signed_at": 1712345700.25}]`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := NewSignatureFile(path)
	if err != nil {
		t.Fatalf("new signature file: %v", err)
	}
	if err := f.Append(context.Background(), domain.Attestation{BlockIndex: 2, SignerID: "x", Signature: "s", PublicKey: "k"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), `"id"`) || strings.Contains(string(data), `"block_hash"`) {
		t.Fatalf("empty optional fields must be omitted: %s", data)
	}
	atts, err := f.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(atts) != 2 || atts[0].SignerID != "notary" || atts[0].ID != "" {
		t.Fatalf("unexpected attestations %+v", atts)
	}
}

func TestSignatureFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signatures.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := NewSignatureFile(path)
	if err != nil {
		t.Fatalf("new signature file: %v", err)
	}
	if _, err := f.List(context.Background()); !errors.Is(err, domain.ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState, got %v", err)
	}
	if err := f.Append(context.Background(), domain.Attestation{}); !errors.Is(err, domain.ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState on append, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "not json" {
		t.Fatal("corrupt file must not be overwritten")
	}
}
