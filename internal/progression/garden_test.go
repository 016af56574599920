package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zengarden/internal/domain"
)

func TestAdvanceGarden_FillsInOrder(t *testing.T) {
	tiles := NewTiles()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	completions := 0
	for i := 0; i < domain.GridSize; i++ {
		res, err := AdvanceGarden(tiles, domain.ModeCalm, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NotNil(t, res.FilledTileID)
		assert.Equal(t, i, *res.FilledTileID)

		for j, tile := range res.Tiles {
			assert.Equal(t, j <= i, tile.Completed, "call %d tile %d", i, j)
		}
		if res.CompletionDate != nil {
			completions++
			assert.Equal(t, domain.GridSize-1, i, "completion date only on the 9th call")
			assert.True(t, res.IsGridComplete)
			assert.Nil(t, res.NextTileID)
		} else {
			assert.False(t, res.IsGridComplete)
			require.NotNil(t, res.NextTileID)
			assert.Equal(t, i+1, *res.NextTileID)
		}
		tiles = res.Tiles
	}
	assert.Equal(t, 1, completions)

	// Десятый вызов - no-op
	res, err := AdvanceGarden(tiles, domain.ModeFocus, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, res.IsGridComplete)
	assert.Nil(t, res.CompletionDate)
	assert.Nil(t, res.FilledTileID)
	assert.Equal(t, tiles, res.Tiles)
}

func TestAdvanceGarden_DoesNotMutateInput(t *testing.T) {
	tiles := NewTiles()
	res, err := AdvanceGarden(tiles, domain.ModeFocus, time.Now())
	require.NoError(t, err)

	assert.False(t, tiles[0].Completed)
	assert.True(t, res.Tiles[0].Completed)
	assert.Equal(t, domain.ModeFocus, res.Tiles[0].SessionType)
	assert.NotNil(t, res.Tiles[0].CompletedAt)
}

func TestAdvanceGarden_RejectsInconsistentGrid(t *testing.T) {
	tiles := NewTiles()
	tiles[3].Completed = true

	_, err := AdvanceGarden(tiles, domain.ModeCalm, time.Now())
	var inv *domain.InvariantError
	require.ErrorAs(t, err, &inv)

	_, err = AdvanceGarden(tiles[:5], domain.ModeCalm, time.Now())
	require.ErrorAs(t, err, &inv)

	shuffled := NewTiles()
	shuffled[0].ID, shuffled[1].ID = 1, 0
	_, err = AdvanceGarden(shuffled, domain.ModeCalm, time.Now())
	require.ErrorAs(t, err, &inv)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, 0, *Preview(nil).NextTileID)

	g := &domain.Garden{}
	tiles := NewTiles()
	for i := 0; i < 8; i++ {
		tiles[i].Completed = true
	}
	g.SetTiles(tiles)

	p := Preview(g)
	assert.Equal(t, 8, p.TilesCompleted)
	assert.Equal(t, 9, p.TotalTiles)
	require.NotNil(t, p.NextTileID)
	assert.Equal(t, 8, *p.NextTileID)
	assert.False(t, p.IsGridComplete)
	assert.Nil(t, p.CompletionDate)

	done := time.Now()
	tiles[8].Completed = true
	g.SetTiles(tiles)
	g.NFT.CompletionDate = &done

	p = Preview(g)
	assert.True(t, p.IsGridComplete)
	assert.Nil(t, p.NextTileID)
	assert.Equal(t, &done, p.CompletionDate)
}
