package utils

import "strings"

// ObfuscateHeader masks the token of an Authorization header for log
// output. The scheme plus the first and last two token characters stay
// visible, everything between them becomes '*'. Tokens of four bytes
// or fewer are starred out entirely.
// Example: "Basic dX********Nz" or "Bearer ab******yz"
func ObfuscateHeader(auth string) string {
	if auth == "" {
		return ""
	}

	scheme, token, found := strings.Cut(auth, " ")
	if !found {
		return "[invalid header]"
	}

	token = strings.TrimSpace(token)
	if len(token) <= 4 {
		return scheme + " " + strings.Repeat("*", len(token))
	}

	masked := strings.Repeat("*", len(token)-4)
	return scheme + " " + token[:2] + masked + token[len(token)-2:]
}
