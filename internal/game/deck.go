package game

import "math/rand/v2"

// Card is one prompt (black) or response (white) card. Content comes from an
// external DeckProvider; the game only moves cards around.
type Card struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Deck is the full card set a room plays with.
type Deck struct {
	Prompts   []Card
	Responses []Card
}

// DeckProvider resolves a configured deck name to its card content.
type DeckProvider interface {
	Deck(name string) (Deck, error)
}

// StaticProvider serves decks from a fixed in-memory map.
type StaticProvider map[string]Deck

func (p StaticProvider) Deck(name string) (Deck, error) {
	d, ok := p[name]
	if !ok {
		return Deck{}, ErrInternal
	}
	return d, nil
}

// pile is a draw pile that reshuffles from the full deck when exhausted, so
// drawing never fails as long as the deck has at least one card.
type pile struct {
	full  []Card
	cards []Card
}

func newPile(full []Card) *pile {
	p := &pile{full: full}
	p.reshuffle()
	return p
}

func (p *pile) reshuffle() {
	p.cards = make([]Card, len(p.full))
	copy(p.cards, p.full)
	rand.Shuffle(len(p.cards), func(i, j int) {
		p.cards[i], p.cards[j] = p.cards[j], p.cards[i]
	})
}

func (p *pile) draw() Card {
	if len(p.cards) == 0 {
		p.reshuffle()
	}
	c := p.cards[len(p.cards)-1]
	p.cards = p.cards[:len(p.cards)-1]
	return c
}
