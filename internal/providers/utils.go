package providers

import (
	"encoding/json"
	"strconv"
)

// intFrom coerces the scalar shapes a counter field arrives in into a
// non-negative int. Unknown types and negative values count as zero.
func intFrom(v any) int {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		n = int(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0
		}
		n = int(i)
	case string:
		i, err := strconv.Atoi(x)
		if err != nil {
			return 0
		}
		n = i
	default:
		return 0
	}
	return max(n, 0)
}

// clip bounds b to at most n bytes for error and log output.
func clip(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
