package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adjsky/evil-cards-sub000/internal/game"
)

func testProvider() game.DeckProvider {
	deck := game.Deck{}
	for i := 0; i < 10; i++ {
		deck.Prompts = append(deck.Prompts, game.Card{ID: fmt.Sprintf("p%d", i)})
		deck.Responses = append(deck.Responses, game.Card{ID: fmt.Sprintf("r%d", i)})
	}
	return game.StaticProvider{"normal": deck}
}

func TestRegistry_CreateGetRemove(t *testing.T) {
	reg := New(testProvider(), zap.NewNop())

	room, err := reg.Create(1)
	require.NoError(t, err)
	require.NotEmpty(t, room.ID())

	got, ok := reg.Get(room.ID())
	require.True(t, ok)
	assert.Same(t, room, got)
	assert.Equal(t, 1, reg.Len())

	reg.Remove(room.ID())
	_, ok = reg.Get(room.ID())
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())

	// Removed rooms are closed.
	_, err = room.Join("alex", 0, 1)
	assert.Error(t, err)
}

func TestRegistry_CodesAreUnique(t *testing.T) {
	reg := New(testProvider(), zap.NewNop())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		room, err := reg.Create(1)
		require.NoError(t, err)
		assert.False(t, seen[room.ID()])
		seen[room.ID()] = true
	}
}

func TestRegistry_CloseTearsDownAllRooms(t *testing.T) {
	reg := New(testProvider(), zap.NewNop())
	for i := 0; i < 3; i++ {
		_, err := reg.Create(1)
		require.NoError(t, err)
	}

	reg.Close()
	assert.Equal(t, 0, reg.Len())
}
