package embeddings

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateInput(t *testing.T) {
	t.Run("short input passes through untouched", func(t *testing.T) {
		assert.Equal(t, "abstract", truncateInput("abstract"))
	})

	t.Run("ascii input is cut at the cap", func(t *testing.T) {
		long := strings.Repeat("a", MaxInputChars+500)

		out := truncateInput(long)
		assert.Len(t, out, MaxInputChars)
	})

	t.Run("multibyte input is cut on a rune boundary", func(t *testing.T) {
		long := strings.Repeat("研", MaxInputChars+100)

		out := truncateInput(long)
		assert.True(t, utf8.ValidString(out))
		assert.Equal(t, MaxInputChars, utf8.RuneCountInString(out))
	})

	t.Run("multibyte input under the cap is untouched", func(t *testing.T) {
		in := strings.Repeat("é", 10)
		assert.Equal(t, in, truncateInput(in))
	})
}
