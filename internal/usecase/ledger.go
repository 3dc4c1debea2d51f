package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"filechain/internal/domain"
)

type LedgerConfig struct {
	Store   ChainStore
	Hasher  Hasher
	Clock   func() time.Time
	Logger  *slog.Logger
	Metrics Metrics
}

// Ledger is the append-only block sequence. Appends and reloads are
// serialized; reads run concurrently with each other.
type Ledger struct {
	mu      sync.RWMutex
	blocks  []domain.Block
	store   ChainStore
	hasher  Hasher
	clock   func() time.Time
	logger  *slog.Logger
	metrics Metrics
}

// Open loads the persisted chain. When nothing is stored, or the stored
// chain cannot be decoded, a genesis block is created and persisted. Any
// other load failure is returned.
func Open(ctx context.Context, cfg LedgerConfig) (*Ledger, error) {
	if cfg.Store == nil {
		return nil, errors.New("chain store required")
	}
	if cfg.Hasher == nil {
		return nil, errors.New("hasher required")
	}
	l := &Ledger{
		store:   cfg.Store,
		hasher:  cfg.Hasher,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if l.clock == nil {
		l.clock = time.Now
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.metrics == nil {
		l.metrics = nopMetrics{}
	}

	blocks, err := l.store.Load(ctx)
	switch {
	case err == nil && len(blocks) > 0:
		l.blocks = blocks
		l.logger.Info("chain loaded", "blocks", len(blocks))
		return l, nil
	case err == nil:
		l.logger.Info("no persisted chain, creating genesis block")
	case errors.Is(err, domain.ErrCorruptState):
		l.logger.Warn("persisted chain unreadable, reinitializing to genesis", "error", err)
	default:
		return nil, fmt.Errorf("load chain: %w", err)
	}

	genesis := genesisBlock(l.hasher, domain.TimestampFromTime(l.clock()))
	if err := l.store.Save(ctx, []domain.Block{genesis}); err != nil {
		return nil, fmt.Errorf("persist genesis: %w", err)
	}
	l.blocks = []domain.Block{genesis}
	return l, nil
}

// Append digests content and seals a block owned by ownerID onto the tail.
// The block is visible only after the full chain has been saved.
func (l *Ledger) Append(ctx context.Context, content io.Reader, ownerID string) (domain.Block, error) {
	if strings.TrimSpace(ownerID) == "" {
		return domain.Block{}, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	if content == nil {
		return domain.Block{}, fmt.Errorf("%w: content is required", domain.ErrValidation)
	}
	contentHash, err := l.hasher.Digest(content)
	if err != nil {
		return domain.Block{}, err
	}
	return l.appendDigest(ctx, contentHash, ownerID)
}

// AppendFile is Append over the bytes of the file at path.
func (l *Ledger) AppendFile(ctx context.Context, path, ownerID string) (domain.Block, error) {
	if strings.TrimSpace(ownerID) == "" {
		return domain.Block{}, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(path) == "" {
		return domain.Block{}, fmt.Errorf("%w: file_path is required", domain.ErrValidation)
	}
	contentHash, err := l.hasher.DigestFile(path)
	if err != nil {
		return domain.Block{}, err
	}
	return l.appendDigest(ctx, contentHash, ownerID)
}

func (l *Ledger) appendDigest(ctx context.Context, contentHash, ownerID string) (domain.Block, error) {
	if err := ctx.Err(); err != nil {
		return domain.Block{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.blocks) == 0 {
		return domain.Block{}, fmt.Errorf("%w: ledger has no genesis block", domain.ErrCorruptState)
	}
	tail := l.blocks[len(l.blocks)-1]
	ts := domain.TimestampFromTime(l.clock())
	if ts < tail.Timestamp {
		ts = tail.Timestamp
	}
	block := Seal(l.hasher, tail.Index+1, tail.Hash, contentHash, ownerID, ts)

	candidate := make([]domain.Block, len(l.blocks), len(l.blocks)+1)
	copy(candidate, l.blocks)
	candidate = append(candidate, block)
	if err := l.store.Save(ctx, candidate); err != nil {
		l.metrics.AppendFailed()
		l.logger.Error("persist chain failed", "index", block.Index, "error", err)
		return domain.Block{}, fmt.Errorf("persist block %d: %w", block.Index, err)
	}
	l.blocks = candidate
	l.metrics.BlockAppended(len(candidate))
	l.logger.Info("block appended", "index", block.Index, "user_id", ownerID, "file_hash", contentHash)
	return block, nil
}

// IsValid reports whether every block links to its predecessor and carries
// the hash of its own fields.
func (l *Ledger) IsValid() bool {
	return l.Verify() == nil
}

// Verify scans the chain from index 1 and returns the first violation,
// wrapped in domain.ErrIntegrity.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return verifyChain(l.hasher, l.blocks)
}

func verifyChain(h Hasher, blocks []domain.Block) error {
	for i := 1; i < len(blocks); i++ {
		prev, cur := blocks[i-1], blocks[i]
		if cur.PreviousHash != prev.Hash {
			return &IntegrityError{Index: cur.Index, Reason: "previous hash mismatch"}
		}
		if h.BlockHash(cur) != cur.Hash {
			return &IntegrityError{Index: cur.Index, Reason: "hash mismatch"}
		}
	}
	return nil
}

// IntegrityError locates the first broken link of a chain.
type IntegrityError struct {
	Index  int64
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s at block %d", domain.ErrIntegrity, e.Reason, e.Index)
}

func (e *IntegrityError) Unwrap() error {
	return domain.ErrIntegrity
}

func (l *Ledger) BlockAt(index int64) (domain.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= int64(len(l.blocks)) {
		return domain.Block{}, fmt.Errorf("%w: block %d", domain.ErrNotFound, index)
	}
	return l.blocks[index], nil
}

func (l *Ledger) Blocks() []domain.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

func (l *Ledger) Tail() domain.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.blocks) == 0 {
		return domain.Block{}
	}
	return l.blocks[len(l.blocks)-1]
}

// Reload replaces the in-memory chain with the stored one. Unlike Open it
// never falls back to genesis: empty or undecodable state is an
// ErrCorruptState and leaves the current chain in place.
func (l *Ledger) Reload(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	blocks, err := l.store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCorruptState) {
			l.logger.Error("persisted chain unreadable on reload", "error", err)
			return err
		}
		return fmt.Errorf("reload chain: %w", err)
	}
	if len(blocks) == 0 {
		return fmt.Errorf("%w: persisted chain is empty", domain.ErrCorruptState)
	}
	l.blocks = blocks
	return nil
}
