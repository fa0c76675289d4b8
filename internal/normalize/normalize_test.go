package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToTextStripsTags(t *testing.T) {
	got := HTMLToText("<p>Own the P&amp;L.</p><p>Drive <b>digital transformation</b>.</p>")
	assert.Equal(t, "Own the P&L.\nDrive\ndigital transformation\n.", got)
}

func TestHTMLToTextDropsScriptAndStyle(t *testing.T) {
	in := `<div>Visible</div><script>var hidden = 1;</script><style>.x{color:red}</style>`
	got := HTMLToText(in)
	assert.Equal(t, "Visible", got)
	assert.NotContains(t, got, "hidden")
}

func TestHTMLToTextPlainTextPassthrough(t *testing.T) {
	got := HTMLToText("Line one.\n\n  Line two.  \n")
	assert.Equal(t, "Line one.\nLine two.", got)
}

func TestHTMLToTextNBSP(t *testing.T) {
	got := HTMLToText("<p>Budget\u00a0control</p>")
	assert.Equal(t, "Budget control", got)
}

func TestHTMLToTextIdempotent(t *testing.T) {
	once := HTMLToText("<ul><li>One</li><li>Two</li></ul>")
	assert.Equal(t, once, HTMLToText(once))
}
