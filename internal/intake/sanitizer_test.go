package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeDescription(t *testing.T) {
	t.Run("plain text passes through trimmed", func(t *testing.T) {
		out := SanitizeDescription("  The server is down.  ")
		assert.Equal(t, "The server is down.", out)
	})

	t.Run("strips markup from pasted HTML", func(t *testing.T) {
		out := SanitizeDescription("<div><p>Login page shows <b>error 500</b></p></div>")
		assert.Equal(t, "Login page shows error 500", out)
	})

	t.Run("removes script and style blocks entirely", func(t *testing.T) {
		out := SanitizeDescription(`<html><head><style>p{color:red}</style></head><body><script>alert("x")</script><p>Disk is full</p></body></html>`)
		assert.Equal(t, "Disk is full", out)
		assert.NotContains(t, out, "alert")
		assert.NotContains(t, out, "color")
	})

	t.Run("collapses runs of spaces and blank lines", func(t *testing.T) {
		out := SanitizeDescription("first    line\n\n\n  second\tline  ")
		assert.Equal(t, "first line\nsecond line", out)
	})

	t.Run("keeps comparison text containing angle brackets", func(t *testing.T) {
		out := SanitizeDescription("latency < 100ms expected but > 2s observed")
		assert.Contains(t, out, "latency")
		assert.Contains(t, out, "100ms")
		assert.Contains(t, out, "observed")
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		assert.Equal(t, "", SanitizeDescription(""))
		assert.Equal(t, "", SanitizeDescription("   \n\t "))
	})
}
