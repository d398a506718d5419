package pdfcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/strategiq/swot/internal/models"
)

// Fingerprint returns the hex SHA-256 digest of the analysis content.
//
// Fields are hashed in this order: primary entity, comparison entities,
// strengths, weaknesses, opportunities, threats, executive summary. Strings
// are length-prefixed and lists count-prefixed, so text cannot migrate across
// a field or item boundary without changing the digest. A nil list hashes the
// same as an empty one.
func Fingerprint(a models.SwotAnalysis) string {
	h := sha256.New()
	writeString(h, a.PrimaryEntity)
	writeList(h, a.ComparisonEntities)
	writeList(h, a.Strengths)
	writeList(h, a.Weaknesses)
	writeList(h, a.Opportunities)
	writeList(h, a.Threats)
	writeString(h, a.Analysis)
	return hex.EncodeToString(h.Sum(nil))
}

func writeLen(h hash.Hash, n int) {
	var buf [binary.MaxVarintLen64]byte
	h.Write(buf[:binary.PutUvarint(buf[:], uint64(n))])
}

func writeString(h hash.Hash, s string) {
	writeLen(h, len(s))
	h.Write([]byte(s))
}

func writeList(h hash.Hash, items []string) {
	writeLen(h, len(items))
	for _, item := range items {
		writeString(h, item)
	}
}
