package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"zengarden/internal/domain"
	"zengarden/internal/infrastructure/repository"
	"zengarden/internal/progression"
)

type XPState struct {
	Total int `json:"total"`
	Level int `json:"level"`
	progression.Progress
}

type SessionStats struct {
	Total        int                 `json:"total"`
	TotalMinutes int                 `json:"totalMinutes"`
	ByMode       map[domain.Mode]int `json:"byMode"`
}

type GardenState struct {
	UserID         string              `json:"userId,omitempty"`
	WalletAddress  string              `json:"walletAddress,omitempty"`
	Grid           []domain.Tile       `json:"grid"`
	TilesCompleted int                 `json:"tilesCompleted"`
	IsGridComplete bool                `json:"isGridComplete"`
	XP             XPState             `json:"xp"`
	Sessions       SessionStats        `json:"sessions"`
	Badge          *domain.BadgeRecord `json:"badge,omitempty"`
	MintState      domain.MintState    `json:"mintState"`
	NFTEligible    bool                `json:"nftEligible"`
}

type GardenUseCase struct {
	store *repository.Store
}

func NewGardenUseCase(store *repository.Store) *GardenUseCase {
	return &GardenUseCase{store: store}
}

// State собирает состояние сада для отображения. Уровень считается той же функцией,
// что и при начислении XP.
func (uc *GardenUseCase) State(ctx context.Context, userID, wallet string) (*GardenState, error) {
	if userID == "" && wallet == "" {
		return nil, &domain.AuthenticationError{Message: "User identifier is required"}
	}

	user, err := uc.findUser(ctx, userID, wallet)
	if err != nil {
		return nil, err
	}
	garden, err := uc.findGarden(ctx, user, userID, wallet)
	if err != nil {
		return nil, err
	}

	state := &GardenState{UserID: userID, WalletAddress: wallet}
	total := 0
	if user != nil {
		state.UserID = user.ID.String()
		total = user.TotalXP
	}
	level := progression.Level(total)
	state.XP = XPState{Total: total, Level: level, Progress: progression.LevelProgress(total, level)}

	if garden == nil {
		state.Grid = progression.NewTiles()
		state.MintState = domain.MintStateNone
	} else {
		state.WalletAddress = garden.WalletAddress
		state.Grid = garden.TileList()
		state.TilesCompleted = garden.CompletedTiles()
		state.IsGridComplete = garden.IsGridComplete()
		state.MintState = garden.MintState
		state.NFTEligible = garden.EligibleForMint()
		if garden.Minted && garden.MintState == domain.MintStateMinted {
			badge := garden.NFT
			state.Badge = &badge
		}
	}

	state.Sessions, err = uc.stats(ctx, user, wallet)
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (uc *GardenUseCase) findUser(ctx context.Context, userID, wallet string) (*domain.User, error) {
	var (
		user *domain.User
		err  error
	)
	if userID != "" {
		id, parseErr := uuid.Parse(userID)
		if parseErr != nil {
			return nil, domain.NewValidationError("Invalid user ID format")
		}
		user, err = uc.store.Users.GetByID(ctx, id)
	} else {
		user, err = uc.store.Users.GetByAccountID(ctx, wallet)
	}
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (uc *GardenUseCase) findGarden(ctx context.Context, user *domain.User, userID, wallet string) (*domain.Garden, error) {
	var (
		garden *domain.Garden
		err    error
	)
	switch {
	case user != nil && userID != "" && wallet != "":
		// Оба идентификатора известны: сад создается лениво
		garden, err = uc.store.Gardens.FirstOrCreate(ctx, user.ID, wallet, progression.NewTiles())
	case user != nil && wallet != "":
		garden, err = uc.store.Gardens.GetByOwner(ctx, user.ID, wallet)
	case user != nil:
		garden, err = uc.store.Gardens.GetByUserID(ctx, user.ID)
	default:
		garden, err = uc.store.Gardens.GetByWallet(ctx, wallet)
	}
	if errors.Is(err, domain.ErrGardenNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load garden: %w", err)
	}
	return garden, nil
}

func (uc *GardenUseCase) stats(ctx context.Context, user *domain.User, wallet string) (SessionStats, error) {
	stats := SessionStats{ByMode: make(map[domain.Mode]int, len(domain.Modes))}
	for _, m := range domain.Modes {
		stats.ByMode[m] = 0
	}

	var filter repository.SessionFilter
	switch {
	case user != nil:
		filter.UserID = &user.ID
	case wallet != "":
		filter.AccountID = wallet
	default:
		return stats, nil
	}

	sessions, err := uc.store.Sessions.ListCompleted(ctx, filter)
	if err != nil {
		return stats, fmt.Errorf("list sessions: %w", err)
	}
	for _, s := range sessions {
		stats.Total++
		stats.TotalMinutes += s.Duration
		stats.ByMode[s.Mode]++
	}
	return stats, nil
}
