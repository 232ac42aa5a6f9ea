package cleaner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanToText(t *testing.T) {
	c := NewCleaner()

	got := c.CleanToText(`<p>Atividades:</p><ul><li>Atender   clientes</li><li>Emitir notas &amp; boletos</li></ul><script>alert(1)</script>`)
	assert.Equal(t, "Atividades:\nAtender clientes\nEmitir notas & boletos", got)

	assert.Equal(t, "", c.CleanToText(""))
	assert.Equal(t, "texto simples", c.CleanToText("  texto   simples "))
}

func TestCleanToText_Truncates(t *testing.T) {
	c := NewCleaner()
	got := c.CleanToText(strings.Repeat("a", DefaultMaxRunes+10))
	assert.Equal(t, DefaultMaxRunes+1, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestCleanMap(t *testing.T) {
	c := NewCleaner()
	got := c.CleanMap(map[string]any{
		"title":   "<b>Analista</b>",
		"id":      float64(10),
		"address": map[string]any{"city": "<i>Dourados</i>"},
		"tags":    []any{"<span>CLT</span>", true},
	})
	assert.Equal(t, "Analista", got["title"])
	assert.Equal(t, float64(10), got["id"])
	assert.Equal(t, "Dourados", got["address"].(map[string]any)["city"])
	assert.Equal(t, []any{"CLT", true}, got["tags"])
}
