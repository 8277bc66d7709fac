package decks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decks.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"normal": {
			"prompts": ["first prompt", "second prompt"],
			"responses": ["a response"]
		}
	}`), 0o600))

	provider, err := Load(path)
	require.NoError(t, err)

	deck, err := provider.Deck("normal")
	require.NoError(t, err)
	require.Len(t, deck.Prompts, 2)
	require.Len(t, deck.Responses, 1)
	assert.Equal(t, "normal-p0", deck.Prompts[0].ID)
	assert.Equal(t, "first prompt", deck.Prompts[0].Text)
	assert.Equal(t, "normal-r0", deck.Responses[0].ID)

	_, err = provider.Deck("missing")
	assert.Error(t, err)
}

func TestLoad_BadInput(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "decks.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}
