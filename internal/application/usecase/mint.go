package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"zengarden/internal/domain"
	"zengarden/internal/infrastructure/cache"
	"zengarden/internal/infrastructure/hedera"
	"zengarden/internal/infrastructure/repository"
	"zengarden/internal/infrastructure/security"
)

const (
	BadgeName        = "Serenity Badge - Zen Garden Master"
	BadgeDescription = "A badge of achievement for completing the mindfulness garden journey"
	BadgeImage       = "ipfs://QmZenGardenBadge"
)

type MintRequest struct {
	WalletAddress     string
	UserID            string
	Level             int
	TotalXP           int
	SessionsCompleted int
	GardenTiles       []domain.Tile
}

type MintResult struct {
	TokenID       string               `json:"tokenId"`
	SerialNumber  int64                `json:"serialNumber"`
	TransactionID string               `json:"transactionId"`
	ContentID     string               `json:"contentId"`
	MintedAt      time.Time            `json:"mintedAt"`
	Metadata      domain.BadgeMetadata `json:"metadata"`
}

type MintUseCase struct {
	store       *repository.Store
	content     ContentStore
	minter      Minter
	lock        MintLocker
	minSessions int
	logger      *zap.Logger
	now         func() time.Time
}

func NewMintUseCase(
	store *repository.Store,
	content ContentStore,
	minter Minter,
	lock MintLocker,
	minSessions int,
	logger *zap.Logger,
) *MintUseCase {
	return &MintUseCase{
		store:       store,
		content:     content,
		minter:      minter,
		lock:        lock,
		minSessions: minSessions,
		logger:      logger,
		now:         time.Now,
	}
}

func (r MintRequest) validate() (uuid.UUID, error) {
	if r.WalletAddress == "" {
		return uuid.Nil, domain.NewValidationError("Wallet address is required")
	}
	if r.UserID == "" {
		return uuid.Nil, domain.NewValidationError("User ID is required")
	}
	if len(r.GardenTiles) == 0 {
		return uuid.Nil, domain.NewValidationError("Garden tiles data is required")
	}
	if !hedera.ValidAccountID(r.WalletAddress) {
		return uuid.Nil, domain.NewValidationError("Invalid Hedera account ID format")
	}
	id, err := uuid.Parse(r.UserID)
	if err != nil {
		return uuid.Nil, domain.NewValidationError("Invalid user ID format")
	}
	return id, nil
}

// alreadyMinted переводит состояние уже захваченного сада в ответ клиенту.
func alreadyMinted(g *domain.Garden) error {
	switch g.MintState {
	case domain.MintStateInProgress:
		return &domain.ConflictError{Message: "Badge mint already in progress", Err: domain.ErrMintNotClaimed}
	default:
		nft := g.NFT
		return &domain.ConflictError{Message: "Badge already minted", AlreadyMinted: true, Existing: &nft}
	}
}

// Mint проверяет право на бейдж, захватывает гейт minted=false->true и только потом
// идет во внешние системы: хранилище, затем леджер, затем запись результата.
func (uc *MintUseCase) Mint(ctx context.Context, req MintRequest) (res *MintResult, err error) {
	userID, err := req.validate()
	if err != nil {
		return nil, err
	}

	user, err := uc.store.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, &domain.NotFoundError{Message: "User not found", Err: err}
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	garden, err := uc.store.Gardens.GetByOwner(ctx, user.ID, req.WalletAddress)
	if err != nil {
		if errors.Is(err, domain.ErrGardenNotFound) {
			return nil, &domain.NotFoundError{Message: "Garden not found", Err: err}
		}
		return nil, fmt.Errorf("load garden: %w", err)
	}

	// Предусловия по данным сервера, а не по тому, что прислал клиент
	if garden.Minted {
		return nil, alreadyMinted(garden)
	}
	if !garden.IsGridComplete() {
		return nil, &domain.IneligibleError{Message: "Garden grid is not complete"}
	}
	if user.SessionsCompleted < uc.minSessions {
		return nil, &domain.IneligibleError{Message: "Insufficient sessions completed"}
	}

	key := uuid.NewString()
	gardenID := garden.ID.String()

	if uc.lock != nil {
		if err := uc.lock.Acquire(ctx, gardenID, key); err != nil {
			if errors.Is(err, cache.ErrLockHeld) {
				return nil, &domain.ConflictError{Message: "Badge mint already in progress", Err: err}
			}
			// Лок только рекомендательный, гейт в базе все равно сработает
			uc.logger.Warn("mint lock unavailable", zap.String("garden", gardenID), zap.Error(err))
		} else {
			defer func() {
				if err := uc.lock.Release(context.WithoutCancel(ctx), gardenID, key); err != nil {
					uc.logger.Warn("release mint lock", zap.String("garden", gardenID), zap.Error(err))
				}
			}()
		}
	}

	// Атомарный гейт до любого внешнего вызова
	if err := uc.store.Gardens.ClaimMint(ctx, garden.ID, key); err != nil {
		if errors.Is(err, domain.ErrMintNotClaimed) {
			current, getErr := uc.store.Gardens.GetByID(ctx, garden.ID)
			if getErr != nil {
				return nil, fmt.Errorf("reload garden: %w", getErr)
			}
			return nil, alreadyMinted(current)
		}
		return nil, fmt.Errorf("claim mint: %w", err)
	}

	log := uc.logger.With(
		zap.String("garden", gardenID),
		zap.String("wallet", req.WalletAddress),
		zap.String("mint_key", key),
	)

	// Пока транзакция минта не ушла в сеть, любой сбой откатывает гейт
	ledgerDone := false
	defer func() {
		if r := recover(); r != nil {
			if ledgerDone {
				log.Error("panic after ledger mint", zap.Any("panic", r), zap.Bool("reconciliation_required", true))
				panic(r)
			}
			log.Error("panic during mint, resetting gate", zap.Any("panic", r))
			err = uc.compensate(ctx, garden.ID, key, log, &domain.DependencyError{
				Op: "mint", Message: "Unexpected mint failure", Err: fmt.Errorf("panic: %v", r),
			})
			res = nil
		}
	}()

	// 1. Метаданные
	record := uc.snapshot(garden, user)
	metadata := uc.buildMetadata(user, req.WalletAddress, record)

	// 2. Хранилище
	contentID, err := uc.content.Upload(ctx, "badge-"+gardenID+".json", metadata)
	if err != nil {
		log.Error("badge metadata upload failed", zap.Error(err))
		return nil, uc.compensate(ctx, garden.ID, key, log, &domain.DependencyError{
			Op: "content.upload", Message: "Failed to upload metadata to IPFS", Err: err,
		})
	}

	// 3. Леджер: одна попытка
	receipt, err := uc.minter.MintBadge(ctx, req.WalletAddress, contentID, key)
	if err != nil && receipt.SerialNumber == 0 && receipt.TransactionID == "" {
		log.Error("ledger mint failed", zap.String("content_id", contentID), zap.Error(err))
		return nil, uc.compensate(ctx, garden.ID, key, log, &domain.DependencyError{
			Op: "ledger.mint", Message: "Failed to mint NFT on Hedera network", Err: err,
		})
	}
	ledgerDone = true

	// Дальше откатывать нельзя: транзакция минта уже в сети
	persistCtx := context.WithoutCancel(ctx)
	mintedAt := receipt.Timestamp
	if mintedAt.IsZero() {
		mintedAt = uc.now().UTC()
	}
	record.TokenID = receipt.TokenID
	record.SerialNumber = receipt.SerialNumber
	record.TransactionID = receipt.TransactionID
	record.ContentID = contentID
	record.MintedAt = &mintedAt
	record.JourneyHash = metadata.JourneyHash

	if err != nil && receipt.SerialNumber == 0 {
		// Транзакция в сети, исход неизвестен: гейт и ключ memo остаются
		record.MintedAt = nil
		return nil, uc.reconcile(persistCtx, garden.ID, key, record, receipt, contentID, log,
			"NFT mint submitted but outcome is unknown", err)
	}
	if err != nil {
		// Токен выпущен, но до кошелька не дошел
		return nil, uc.reconcile(persistCtx, garden.ID, key, record, receipt, contentID, log,
			"NFT minted but transfer to wallet failed", err)
	}

	// 4. Запись результата
	if err := uc.store.Gardens.CompleteMint(persistCtx, garden.ID, key, record); err != nil {
		return nil, uc.reconcile(persistCtx, garden.ID, key, record, receipt, contentID, log,
			"NFT minted successfully but failed to update records", err)
	}

	log.Info("badge minted",
		zap.String("token", receipt.TokenID),
		zap.Int64("serial", receipt.SerialNumber),
		zap.String("tx", receipt.TransactionID),
	)
	return &MintResult{
		TokenID:       receipt.TokenID,
		SerialNumber:  receipt.SerialNumber,
		TransactionID: receipt.TransactionID,
		ContentID:     contentID,
		MintedAt:      mintedAt,
		Metadata:      metadata,
	}, nil
}

// snapshot берет уровень/XP/дату из снимка на момент заполнения сетки, если он есть.
func (uc *MintUseCase) snapshot(g *domain.Garden, u *domain.User) domain.BadgeRecord {
	rec := domain.BadgeRecord{
		Level:          g.NFT.Level,
		TotalXP:        g.NFT.TotalXP,
		CompletionDate: g.NFT.CompletionDate,
	}
	if !g.NFT.HasSnapshot() {
		now := uc.now().UTC()
		rec.Level = u.Level
		rec.TotalXP = u.TotalXP
		rec.CompletionDate = &now
	}
	return rec
}

func (uc *MintUseCase) buildMetadata(u *domain.User, wallet string, rec domain.BadgeRecord) domain.BadgeMetadata {
	completion := rec.CompletionDate.UTC().Format(time.RFC3339)
	return domain.BadgeMetadata{
		Name:        BadgeName,
		Description: BadgeDescription,
		Image:       BadgeImage,
		Attributes: []domain.BadgeAttribute{
			{TraitType: "Level", Value: rec.Level},
			{TraitType: "Total XP", Value: rec.TotalXP},
			{TraitType: "Sessions", Value: u.SessionsCompleted},
			{TraitType: "Completion Date", Value: completion},
			{TraitType: "Rarity", Value: "Legendary"},
		},
		Level:          rec.Level,
		TotalXP:        rec.TotalXP,
		Sessions:       u.SessionsCompleted,
		CompletionDate: completion,
		JourneyHash:    security.JourneyHash(u.ID.String(), wallet, rec.TotalXP, u.SessionsCompleted, rec.Level),
	}
}

// compensate откатывает локальный гейт. Внешние системы не трогает.
func (uc *MintUseCase) compensate(ctx context.Context, gardenID uuid.UUID, key string, log *zap.Logger, cause *domain.DependencyError) error {
	if err := uc.store.Gardens.ResetMint(context.WithoutCancel(ctx), gardenID, key); err != nil {
		log.Error("compensating reset failed, garden needs manual reconciliation",
			zap.Bool("reconciliation_required", true),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		cause.Err = errors.Join(cause.Err, fmt.Errorf("reset mint gate: %w", err))
		return cause
	}
	log.Warn("mint gate reset after failure", zap.String("op", cause.Op))
	return cause
}

// reconcile - токен в леджере есть, полной локальной записи нет. Никаких автоповторов.
func (uc *MintUseCase) reconcile(
	ctx context.Context,
	gardenID uuid.UUID,
	key string,
	record domain.BadgeRecord,
	receipt domain.MintReceipt,
	contentID string,
	log *zap.Logger,
	message string,
	cause error,
) error {
	fields := []zap.Field{
		zap.Bool("reconciliation_required", true),
		zap.String("token", receipt.TokenID),
		zap.Int64("serial", receipt.SerialNumber),
		zap.String("tx", receipt.TransactionID),
		zap.String("content_id", contentID),
	}
	if err := uc.store.Gardens.MarkReconciliation(ctx, gardenID, key, record); err != nil {
		log.Error("failed to mark garden for reconciliation", append(fields, zap.Error(err))...)
		cause = errors.Join(cause, err)
	}
	log.Error(message, append(fields, zap.NamedError("cause", cause))...)
	return &domain.ReconciliationError{Message: message, Receipt: receipt, ContentID: contentID, Err: cause}
}
