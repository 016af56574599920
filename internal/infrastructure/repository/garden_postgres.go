package repository

import (
	"context"
	"errors"
	"time"

	"zengarden/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GardenRepository struct {
	db *gorm.DB
}

func NewGardenRepository(db *gorm.DB) *GardenRepository {
	return &GardenRepository{db: db}
}

func (r *GardenRepository) Create(ctx context.Context, g *domain.Garden) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *GardenRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Garden, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *GardenRepository) GetByOwner(ctx context.Context, userID uuid.UUID, wallet string) (*domain.Garden, error) {
	return r.first(r.db.WithContext(ctx).Where("user_id = ? AND wallet_address = ?", userID, wallet))
}

func (r *GardenRepository) GetByWallet(ctx context.Context, wallet string) (*domain.Garden, error) {
	return r.first(r.db.WithContext(ctx).Where("wallet_address = ?", wallet).Order("created_at asc"))
}

func (r *GardenRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Garden, error) {
	return r.first(r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at asc"))
}

func (r *GardenRepository) first(q *gorm.DB) (*domain.Garden, error) {
	var g domain.Garden
	if err := q.First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGardenNotFound
		}
		return nil, err
	}
	return &g, nil
}

// FirstOrCreate лениво создает пустой сад для пары (пользователь, кошелек).
func (r *GardenRepository) FirstOrCreate(ctx context.Context, userID uuid.UUID, wallet string, tiles []domain.Tile) (*domain.Garden, error) {
	g, err := r.GetByOwner(ctx, userID, wallet)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, domain.ErrGardenNotFound) {
		return nil, err
	}

	g = &domain.Garden{
		ID:            uuid.New(),
		UserID:        userID,
		WalletAddress: wallet,
		MintState:     domain.MintStateNone,
	}
	g.SetTiles(tiles)
	if err := r.Create(ctx, g); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.GetByOwner(ctx, userID, wallet)
		}
		return nil, err
	}
	return g, nil
}

// SaveProgress - CAS по версии: два параллельных завершения не затрут плитки друг друга.
func (r *GardenRepository) SaveProgress(ctx context.Context, g *domain.Garden) error {
	res := r.db.WithContext(ctx).Model(&domain.Garden{}).
		Where("id = ? AND version = ?", g.ID, g.Version).
		Updates(map[string]interface{}{
			"tiles":               g.Tiles,
			"nft_level":           g.NFT.Level,
			"nft_total_xp":        g.NFT.TotalXP,
			"nft_completion_date": g.NFT.CompletionDate,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	g.Version++
	return nil
}

// ClaimMint - атомарный переход minted: false -> true. Делается до любых внешних вызовов.
func (r *GardenRepository) ClaimMint(ctx context.Context, id uuid.UUID, key string) error {
	res := r.db.WithContext(ctx).Model(&domain.Garden{}).
		Where("id = ? AND minted = ?", id, false).
		Updates(map[string]interface{}{
			"minted":     true,
			"mint_state": domain.MintStateInProgress,
			"mint_key":   key,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrMintNotClaimed
	}
	return nil
}

func (r *GardenRepository) CompleteMint(ctx context.Context, id uuid.UUID, key string, nft domain.BadgeRecord) error {
	return r.updateMint(ctx, id, key, map[string]interface{}{
		"mint_state":         domain.MintStateMinted,
		"nft_level":          nft.Level,
		"nft_total_xp":       nft.TotalXP,
		"nft_token_id":       nft.TokenID,
		"nft_serial_number":  nft.SerialNumber,
		"nft_content_id":     nft.ContentID,
		"nft_transaction_id": nft.TransactionID,
		"nft_minted_at":      nft.MintedAt,
		"nft_journey_hash":   nft.JourneyHash,
	})
}

// ResetMint откатывает только локальное состояние. Снимок уровня/даты заполнения не трогаем.
func (r *GardenRepository) ResetMint(ctx context.Context, id uuid.UUID, key string) error {
	return r.updateMint(ctx, id, key, map[string]interface{}{
		"minted":             false,
		"mint_state":         domain.MintStateNone,
		"mint_key":           "",
		"nft_token_id":       "",
		"nft_serial_number":  0,
		"nft_content_id":     "",
		"nft_transaction_id": "",
		"nft_minted_at":      nil,
		"nft_journey_hash":   "",
	})
}

// MarkReconciliation фиксирует, что в леджере токен есть, а полная запись не сохранилась.
func (r *GardenRepository) MarkReconciliation(ctx context.Context, id uuid.UUID, key string, nft domain.BadgeRecord) error {
	return r.updateMint(ctx, id, key, map[string]interface{}{
		"mint_state":         domain.MintStateReconciliation,
		"nft_token_id":       nft.TokenID,
		"nft_serial_number":  nft.SerialNumber,
		"nft_content_id":     nft.ContentID,
		"nft_transaction_id": nft.TransactionID,
		"nft_minted_at":      nft.MintedAt,
	})
}

func (r *GardenRepository) updateMint(ctx context.Context, id uuid.UUID, key string, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&domain.Garden{}).
		Where("id = ? AND mint_key = ?", id, key).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrMintNotClaimed
	}
	return nil
}

func (r *GardenRepository) ListByMintState(ctx context.Context, states ...domain.MintState) ([]domain.Garden, error) {
	var gardens []domain.Garden
	err := r.db.WithContext(ctx).
		Where("mint_state IN ?", states).
		Order("updated_at asc").
		Find(&gardens).Error
	return gardens, err
}
