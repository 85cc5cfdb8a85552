package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharWindows(t *testing.T) {
	t.Run("short text is kept whole", func(t *testing.T) {
		assert.Equal(t, []string{"one page"}, CharWindows{Max: 100, Overlap: 10}.Windows("  one page \n"))
	})

	t.Run("blank text", func(t *testing.T) {
		assert.Nil(t, CharWindows{Max: 100}.Windows(" \n "))
	})

	t.Run("zero max disables the cap", func(t *testing.T) {
		long := strings.Repeat("word ", 2000)
		assert.Len(t, CharWindows{}.Windows(long), 1)
	})

	t.Run("long text is capped with overlap", func(t *testing.T) {
		long := strings.TrimSpace(strings.Repeat("abcd ", 50)) // 249 chars
		w := CharWindows{Max: 100, Overlap: 20}
		pieces := w.Windows(long)
		require.Greater(t, len(pieces), 2)
		for _, p := range pieces {
			assert.LessOrEqual(t, utf8.RuneCountInString(p), 100)
			assert.False(t, strings.HasPrefix(p, " "))
		}
		// Each piece starts inside the tail of the previous one.
		for i := 1; i < len(pieces); i++ {
			prev := pieces[i-1]
			assert.Contains(t, prev[len(prev)-20:], pieces[i][:4])
		}
		assert.True(t, strings.HasSuffix(pieces[len(pieces)-1], "abcd"))
	})

	t.Run("no whitespace still makes progress", func(t *testing.T) {
		pieces := CharWindows{Max: 10, Overlap: 10}.Windows(strings.Repeat("x", 35))
		assert.Equal(t, []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"}, pieces)
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		pieces := CharWindows{Max: 4}.Windows("éééééééé")
		assert.Equal(t, []string{"éééé", "éééé"}, pieces)
	})
}
