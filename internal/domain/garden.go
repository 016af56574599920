package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const GridSize = 9

type Tile struct {
	ID          int        `json:"id"`
	Completed   bool       `json:"completed"`
	SessionType Mode       `json:"sessionType,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type MintState string

const (
	MintStateNone           MintState = "none"
	MintStateInProgress     MintState = "in_progress"
	MintStateMinted         MintState = "minted"
	MintStateReconciliation MintState = "reconciliation_required"
)

// Garden - сетка 3x3, одна на пару (пользователь, кошелек).
type Garden struct {
	ID            uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:idx_garden_owner"`
	WalletAddress string                     `gorm:"not null;size:64;uniqueIndex:idx_garden_owner"`
	Tiles         datatypes.JSONType[[]Tile] `gorm:"not null"`

	Minted    bool      `gorm:"not null;default:false"`
	MintState MintState `gorm:"not null;size:32;default:'none';index"`
	// Ключ идемпотентности текущей попытки минта
	MintKey string `gorm:"size:64"`

	NFT BadgeRecord `gorm:"embedded;embeddedPrefix:nft_"`

	Version int `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (g *Garden) TileList() []Tile {
	return g.Tiles.Data()
}

func (g *Garden) SetTiles(tiles []Tile) {
	g.Tiles = datatypes.NewJSONType(tiles)
}

func (g *Garden) CompletedTiles() int {
	n := 0
	for _, t := range g.TileList() {
		if t.Completed {
			n++
		}
	}
	return n
}

func (g *Garden) IsGridComplete() bool {
	return g.CompletedTiles() == GridSize
}

func (g *Garden) EligibleForMint() bool {
	return g.IsGridComplete() && !g.Minted
}
