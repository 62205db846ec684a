// Package identity derives the content identifier of an entity record.
package identity

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/buyercheck/backend/internal/domain"
)

// Hash returns the identity hash of a field mapping: xxhash64 over the
// canonical JSON form, hex encoded. Only recognized keys take part.
func Hash(fields domain.Fields) string {
	return strconv.FormatUint(xxhash.Sum64String(Canonicalize(fields)), 16)
}

// Canonicalize renders fields as JSON with sorted keys so equal mappings
// always produce the same bytes regardless of map iteration order.
func Canonicalize(fields domain.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !k.IsRecognized() {
			continue
		}
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		keyJSON, _ := json.Marshal(k)
		valueJSON, _ := json.Marshal(fields[domain.FieldKey(k)])
		b.Write(keyJSON)
		b.WriteByte(':')
		b.Write(valueJSON)
	}
	b.WriteByte('}')
	return b.String()
}

// HasChanged compares two identity hashes to detect content changes
func HasChanged(oldHash, newHash string) bool {
	return oldHash != newHash
}
