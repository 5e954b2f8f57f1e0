package hash

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
)

// Any fingerprints v as the hex form of the FNV-1a 64-bit hash over its
// JSON encoding. Run reports use it to identify projections.
func Any(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serialize for hashing: %w", err)
	}

	h := fnv.New64a()
	h.Write(data) // nolint:errcheck
	return strconv.FormatUint(h.Sum64(), 16), nil
}
