package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"filechain/internal/domain"
)

// ChunkSize bounds each read when digesting content.
const ChunkSize = 4096

// DigestReader returns the hex SHA-256 of everything r yields. The result
// does not depend on how r splits its reads.
func DigestReader(r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("%w: nil content reader", domain.ErrValidation)
	}
	h := sha256.New()
	buf := make([]byte, ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: read content: %w", domain.ErrIO, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: file %s", domain.ErrNotFound, path)
		}
		return "", fmt.Errorf("%w: open %s: %w", domain.ErrIO, path, err)
	}
	defer f.Close()
	return DigestReader(f)
}

func DigestString(s string) string {
	return sha256Hex([]byte(s))
}

func sha256Hex(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

// Hasher binds the digest helpers to one canonical encoding.
type Hasher struct {
	Encoding domain.CanonicalEncoding
}

func NewHasher(enc domain.CanonicalEncoding) *Hasher {
	if !enc.Valid() {
		enc = domain.EncodingLengthPrefixed
	}
	return &Hasher{Encoding: enc}
}

func (h *Hasher) Digest(r io.Reader) (string, error) {
	return DigestReader(r)
}

func (h *Hasher) DigestFile(path string) (string, error) {
	return DigestFile(path)
}

func (h *Hasher) BlockHash(b domain.Block) string {
	return BlockIdentityHash(h.Encoding, b)
}
