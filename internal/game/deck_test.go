package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPile_DrawsEveryCardOnce(t *testing.T) {
	full := []Card{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	p := newPile(full)

	seen := make(map[string]bool)
	for range full {
		seen[p.draw().ID] = true
	}
	assert.Len(t, seen, len(full))
}

func TestPile_ReshufflesWhenExhausted(t *testing.T) {
	full := []Card{{ID: "a"}, {ID: "b"}}
	p := newPile(full)

	// Drawing past the pile's size must never fail.
	for i := 0; i < 10; i++ {
		c := p.draw()
		assert.Contains(t, []string{"a", "b"}, c.ID)
	}
}

func TestStaticProvider(t *testing.T) {
	provider := StaticProvider{"normal": testDeck()}

	deck, err := provider.Deck("normal")
	require.NoError(t, err)
	assert.NotEmpty(t, deck.Prompts)

	_, err = provider.Deck("missing")
	assert.Error(t, err)
}
