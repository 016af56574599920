package progression

import (
	"fmt"
	"time"

	"zengarden/internal/domain"
)

func NewTiles() []domain.Tile {
	tiles := make([]domain.Tile, domain.GridSize)
	for i := range tiles {
		tiles[i] = domain.Tile{ID: i}
	}
	return tiles
}

type Advance struct {
	Tiles          []domain.Tile
	FilledTileID   *int
	NextTileID     *int
	IsGridComplete bool
	// Заполняется только в момент перехода сетки в заполненное состояние
	CompletionDate *time.Time
}

// ValidateTiles проверяет, что плитки идут по порядку и заполнены без дыр.
func ValidateTiles(tiles []domain.Tile) error {
	if len(tiles) != domain.GridSize {
		return &domain.InvariantError{Message: fmt.Sprintf("garden has %d tiles, want %d", len(tiles), domain.GridSize)}
	}
	seenIncomplete := false
	for i, t := range tiles {
		if t.ID != i {
			return &domain.InvariantError{Message: fmt.Sprintf("tile at index %d has id %d", i, t.ID)}
		}
		if !t.Completed {
			seenIncomplete = true
			continue
		}
		if seenIncomplete {
			return &domain.InvariantError{Message: fmt.Sprintf("tile %d completed before an earlier tile", i)}
		}
	}
	return nil
}

// AdvanceGarden заполняет первую свободную плитку. Исходный срез не меняется.
func AdvanceGarden(tiles []domain.Tile, mode domain.Mode, now time.Time) (Advance, error) {
	if err := ValidateTiles(tiles); err != nil {
		return Advance{}, err
	}

	next := firstIncomplete(tiles)
	if next < 0 {
		// Сетка уже заполнена: ничего не трогаем, дату не выставляем
		return Advance{Tiles: tiles, IsGridComplete: true}, nil
	}

	updated := make([]domain.Tile, len(tiles))
	copy(updated, tiles)
	at := now
	updated[next] = domain.Tile{
		ID:          next,
		Completed:   true,
		SessionType: mode,
		CompletedAt: &at,
	}

	filled := next
	res := Advance{Tiles: updated, FilledTileID: &filled}
	if n := firstIncomplete(updated); n >= 0 {
		res.NextTileID = &n
	} else {
		res.IsGridComplete = true
		res.CompletionDate = &at
	}
	return res, nil
}

type GardenPreview struct {
	TilesCompleted int        `json:"tilesCompleted"`
	TotalTiles     int        `json:"totalTiles"`
	NextTileID     *int       `json:"nextTileId,omitempty"`
	IsGridComplete bool       `json:"isGridComplete"`
	CompletionDate *time.Time `json:"completionDate,omitempty"`
}

func Preview(g *domain.Garden) GardenPreview {
	if g == nil {
		zero := 0
		return GardenPreview{TotalTiles: domain.GridSize, NextTileID: &zero}
	}
	tiles := g.TileList()
	p := GardenPreview{
		TilesCompleted: g.CompletedTiles(),
		TotalTiles:     domain.GridSize,
	}
	p.IsGridComplete = p.TilesCompleted == domain.GridSize
	if n := firstIncomplete(tiles); n >= 0 {
		p.NextTileID = &n
	}
	if p.IsGridComplete && g.NFT.CompletionDate != nil {
		p.CompletionDate = g.NFT.CompletionDate
	}
	return p
}

func firstIncomplete(tiles []domain.Tile) int {
	for i, t := range tiles {
		if !t.Completed {
			return i
		}
	}
	return -1
}
