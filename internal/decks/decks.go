// Package decks loads card content from disk. The content itself (and its
// curation) lives outside this repo; this is only the narrow read side.
package decks

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/adjsky/evil-cards-sub000/internal/game"
)

type fileDeck struct {
	Prompts   []string `json:"prompts"`
	Responses []string `json:"responses"`
}

// Load reads a JSON file of the shape {"deckName": {"prompts": [...],
// "responses": [...]}} and assigns stable per-deck card ids.
func Load(path string) (game.DeckProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file map[string]fileDeck
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decks: parse %s: %w", path, err)
	}

	provider := make(game.StaticProvider, len(file))
	for name, d := range file {
		deck := game.Deck{
			Prompts:   make([]game.Card, len(d.Prompts)),
			Responses: make([]game.Card, len(d.Responses)),
		}
		for i, text := range d.Prompts {
			deck.Prompts[i] = game.Card{ID: fmt.Sprintf("%s-p%d", name, i), Text: text}
		}
		for i, text := range d.Responses {
			deck.Responses[i] = game.Card{ID: fmt.Sprintf("%s-r%d", name, i), Text: text}
		}
		provider[name] = deck
	}
	return provider, nil
}
