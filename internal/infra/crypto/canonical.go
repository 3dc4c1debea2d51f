package crypto

import (
	"bytes"
	"strconv"

	"filechain/internal/domain"
)

// CanonicalBlock joins the identity fields of a block in fixed order: index,
// previous hash, content hash, owner, timestamp.
func CanonicalBlock(enc domain.CanonicalEncoding, index int64, previousHash, contentHash, ownerID string, ts domain.Timestamp) []byte {
	fields := [...]string{
		strconv.FormatInt(index, 10),
		previousHash,
		contentHash,
		ownerID,
		ts.String(),
	}
	buf := &bytes.Buffer{}
	for _, f := range fields {
		if enc == domain.EncodingLegacy {
			buf.WriteString(f)
			continue
		}
		writeNetstring(buf, f)
	}
	return buf.Bytes()
}

func CanonicalBlockOf(enc domain.CanonicalEncoding, b domain.Block) []byte {
	return CanonicalBlock(enc, b.Index, b.PreviousHash, b.ContentHash, b.OwnerID, b.Timestamp)
}

// BlockIdentityHash is the digest stored in Block.Hash.
func BlockIdentityHash(enc domain.CanonicalEncoding, b domain.Block) string {
	return sha256Hex(CanonicalBlockOf(enc, b))
}

func writeNetstring(buf *bytes.Buffer, value string) {
	buf.WriteString(strconv.Itoa(len(value)))
	buf.WriteByte(':')
	buf.WriteString(value)
	buf.WriteByte(',')
}
