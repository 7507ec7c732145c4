package filter

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/ucc-hostels/hostelfinder/internal/domain/search/order"
)

// KeyPrefix namespaces hostel list cache keys.
const KeyPrefix = "hostels:list:"

type keyPayload struct {
	Filter Params       `json:"f"`
	Sort   order.Option `json:"s"`
}

// Key returns the cache key of (f, sort). Field-wise equal filters yield the
// same key because canonical params marshal in struct field order.
func Key(f Filter, sort order.Option) string {
	// Params contains only strings, numbers and bools: marshal cannot fail.
	data, _ := json.Marshal(keyPayload{Filter: f.Params(), Sort: sort.OrDefault()})
	sum := sha256.Sum256(data)
	return KeyPrefix + hex.EncodeToString(sum[:])
}
