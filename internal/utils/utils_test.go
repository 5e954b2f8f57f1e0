package utils_test

import (
	"testing"

	"github.com/gi8lino/issuetab/internal/utils"

	"github.com/stretchr/testify/assert"
)

func TestObfuscateHeader(t *testing.T) {
	t.Parallel()

	t.Run("empty input stays empty", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", utils.ObfuscateHeader(""))
	})

	t.Run("input without a scheme is flagged", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "[invalid header]", utils.ObfuscateHeader("invalidheader"))
	})

	t.Run("long tokens keep their edges", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Bearer ab********kl", utils.ObfuscateHeader("Bearer abcdefghijkl"))
		assert.Equal(t, "Basic dX********Nz", utils.ObfuscateHeader("Basic dXNlcjpwYXNz"))
	})

	t.Run("short tokens are starred out entirely", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Bearer ****", utils.ObfuscateHeader("Bearer abcd"))
		assert.Equal(t, "Bearer ***", utils.ObfuscateHeader("Bearer abc"))
		assert.Equal(t, "Bearer **", utils.ObfuscateHeader("Bearer ab"))
		assert.Equal(t, "Bearer *", utils.ObfuscateHeader("Bearer a"))
		assert.Equal(t, "Bearer ", utils.ObfuscateHeader("Bearer "))
	})
}
