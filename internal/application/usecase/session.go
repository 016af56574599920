package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"zengarden/internal/domain"
	"zengarden/internal/infrastructure/hedera"
	"zengarden/internal/infrastructure/repository"
	"zengarden/internal/infrastructure/security"
	"zengarden/internal/progression"
)

// Сколько раз перечитываем аккаунт и сад при конфликте версий
const maxProgressAttempts = 5

var errProgressApplied = errors.New("session progress already applied")

type Limits struct {
	MinDuration int
	MaxDuration int
}

type SessionUseCase struct {
	store    *repository.Store
	engine   *progression.Engine
	verifier ProofVerifier
	content  ContentStore
	audit    AuditLog
	limits   Limits
	logger   *zap.Logger
	now      func() time.Time
}

func NewSessionUseCase(
	store *repository.Store,
	engine *progression.Engine,
	verifier ProofVerifier,
	content ContentStore,
	audit AuditLog,
	limits Limits,
	logger *zap.Logger,
) *SessionUseCase {
	return &SessionUseCase{
		store:    store,
		engine:   engine,
		verifier: verifier,
		content:  content,
		audit:    audit,
		limits:   limits,
		logger:   logger,
		now:      time.Now,
	}
}

type StartResult struct {
	SessionID      uuid.UUID   `json:"sessionId"`
	UserID         uuid.UUID   `json:"userId"`
	Nonce          string      `json:"nonce"`
	Mode           domain.Mode `json:"mode"`
	TargetDuration int         `json:"targetDuration"`
	StartTime      time.Time   `json:"startTime"`
}

func (uc *SessionUseCase) checkDuration(d int, field string) error {
	if d < uc.limits.MinDuration || d > uc.limits.MaxDuration {
		return domain.NewValidationError(fmt.Sprintf("%s must be between %d and %d minutes", field, uc.limits.MinDuration, uc.limits.MaxDuration))
	}
	return nil
}

// Start создает сессию с одноразовым nonce. Аккаунт и пустой сад создаются при первом обращении.
func (uc *SessionUseCase) Start(ctx context.Context, accountID, modeName string, targetDuration int) (*StartResult, error) {
	if !hedera.ValidAccountID(accountID) {
		return nil, domain.NewValidationError("Invalid Hedera account ID format")
	}
	mode, err := domain.ParseMode(modeName)
	if err != nil {
		return nil, err
	}
	if err := uc.checkDuration(targetDuration, "targetDuration"); err != nil {
		return nil, err
	}

	user, created, err := uc.store.Users.FirstOrCreate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if _, err := uc.store.Gardens.FirstOrCreate(ctx, user.ID, accountID, progression.NewTiles()); err != nil {
		return nil, fmt.Errorf("create garden: %w", err)
	}
	if created {
		uc.logger.Info("account created", zap.String("account", accountID), zap.String("user_id", user.ID.String()))
	}

	nonce, err := security.NewNonce()
	if err != nil {
		return nil, fmt.Errorf("issue nonce: %w", err)
	}

	now := uc.now().UTC()
	session := &domain.Session{
		ID:             uuid.New(),
		UserID:         user.ID,
		AccountID:      accountID,
		Mode:           mode,
		TargetDuration: targetDuration,
		StartTime:      now,
		Nonce:          nonce,
	}
	if err := uc.store.Sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := uc.store.Users.TouchLastSession(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("touch account: %w", err)
	}

	return &StartResult{
		SessionID:      session.ID,
		UserID:         user.ID,
		Nonce:          nonce,
		Mode:           mode,
		TargetDuration: targetDuration,
		StartTime:      now,
	}, nil
}

type ReflectionInput struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
}

type CompleteRequest struct {
	SessionID      string
	AccountID      string
	Mode           string
	ActualDuration int
	SignedProof    string
	Reflection     *ReflectionInput
}

type ReflectionSummary struct {
	Hash string `json:"hash"`
	CID  string `json:"cid,omitempty"`
}

type CompleteResult struct {
	SessionID        uuid.UUID                 `json:"sessionId"`
	XPEarned         int                       `json:"xpEarned"`
	TotalXP          int                       `json:"totalXP"`
	Level            int                       `json:"level"`
	PreviousLevel    int                       `json:"previousLevel"`
	LeveledUp        bool                      `json:"leveledUp"`
	GardenPreview    progression.GardenPreview `json:"gardenPreview"`
	AuditCoordinates *domain.AuditCoordinates  `json:"auditCoordinates,omitempty"`
	Reflection       *ReflectionSummary        `json:"reflection,omitempty"`
}

func (r CompleteRequest) validate() (uuid.UUID, domain.Mode, error) {
	id, err := uuid.Parse(r.SessionID)
	if err != nil {
		return uuid.Nil, "", domain.NewValidationError("Invalid session ID")
	}
	if !hedera.ValidAccountID(r.AccountID) {
		return uuid.Nil, "", domain.NewValidationError("Invalid Hedera account ID format")
	}
	mode, err := domain.ParseMode(r.Mode)
	if err != nil {
		return uuid.Nil, "", err
	}
	if r.SignedProof == "" {
		return uuid.Nil, "", domain.NewValidationError("Signed proof is required")
	}
	if r.Reflection != nil && (r.Reflection.Ciphertext == "" || r.Reflection.IV == "" || r.Reflection.Salt == "") {
		return uuid.Nil, "", domain.NewValidationError("Encrypted reflection requires ciphertext, iv and salt")
	}
	return id, mode, nil
}

// Complete проводит сессию через проверку пруфа, начисление XP, сад и необязательные
// архив рефлексии и аудит.
func (uc *SessionUseCase) Complete(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	// 1. Форма запроса
	sessionID, mode, err := req.validate()
	if err != nil {
		return nil, err
	}
	if err := uc.checkDuration(req.ActualDuration, "actualDuration"); err != nil {
		return nil, err
	}

	// 2. Проверка владельца и пруфа
	session, err := uc.store.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, &domain.NotFoundError{Message: "Session not found", Err: err}
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session.AccountID != req.AccountID {
		return nil, &domain.AuthorizationError{Message: "Session does not belong to this account"}
	}
	if session.Completed {
		return nil, &domain.ConflictError{Message: "Session already completed", Err: domain.ErrAlreadyCompleted}
	}
	if session.Mode != mode {
		return nil, domain.NewValidationError("Mode does not match the started session")
	}
	if !uc.verifier.Verify(ctx, req.SignedProof, req.AccountID, session.Nonce, session.ID.String()) {
		return nil, &domain.AuthenticationError{Message: "Invalid session proof"}
	}

	// 3. Граница долговечности: сессия закрывается ровно один раз
	xp := uc.engine.XP(req.ActualDuration, session.Mode)
	end := uc.now().UTC()
	if err := uc.store.Sessions.MarkCompleted(ctx, session.ID, req.ActualDuration, xp, end, req.SignedProof); err != nil {
		if errors.Is(err, domain.ErrAlreadyCompleted) {
			return nil, &domain.ConflictError{Message: "Session already completed", Err: err}
		}
		return nil, fmt.Errorf("complete session: %w", err)
	}
	session.Completed = true
	session.Duration = req.ActualDuration
	session.XPEarned = xp
	session.EndTime = &end

	// 4. Рефлексия: хэш всегда, загрузка по возможности
	var reflection domain.EncryptedReflection
	if req.Reflection != nil {
		reflection = uc.archiveReflection(ctx, session, *req.Reflection, end)
	}

	// 5. Аудит по возможности
	audit := uc.submitAudit(ctx, session, reflection, end)

	// 6-8. Аккаунт, сад и вложения сессии одной транзакцией
	res, err := uc.applyProgress(ctx, session, reflection, audit)
	if err != nil {
		uc.logger.Error("session completed but progress not applied",
			zap.String("session", session.ID.String()),
			zap.String("account", session.AccountID),
			zap.Bool("reconciliation_required", true),
			zap.Error(err),
		)
		return nil, err
	}

	// 9. Ответ
	res.SessionID = session.ID
	res.XPEarned = xp
	if audit.Present() {
		res.AuditCoordinates = &audit
	}
	if reflection.Present() {
		res.Reflection = &ReflectionSummary{Hash: reflection.Hash, CID: reflection.CID}
	}
	return res, nil
}

// Документ, который уходит в хранилище вместе с шифротекстом
type reflectionDocument struct {
	Ciphertext string      `json:"ciphertext"`
	IV         string      `json:"iv"`
	Salt       string      `json:"salt"`
	Timestamp  time.Time   `json:"timestamp"`
	Mode       domain.Mode `json:"mode"`
	Version    string      `json:"version"`
}

func (uc *SessionUseCase) archiveReflection(ctx context.Context, s *domain.Session, in ReflectionInput, at time.Time) domain.EncryptedReflection {
	refl := domain.EncryptedReflection{
		Ciphertext: in.Ciphertext,
		IV:         in.IV,
		Salt:       in.Salt,
		Hash:       security.ReflectionDigest(in.Ciphertext),
	}
	if uc.content == nil {
		return refl
	}

	cid, err := uc.content.Upload(ctx, "reflection-"+s.ID.String()+".json", reflectionDocument{
		Ciphertext: in.Ciphertext,
		IV:         in.IV,
		Salt:       in.Salt,
		Timestamp:  at,
		Mode:       s.Mode,
		Version:    "1.0",
	})
	if err != nil {
		uc.logger.Warn("reflection upload failed, keeping digest only",
			zap.String("session", s.ID.String()),
			zap.Error(&domain.DependencyError{Op: "content.upload", Message: "reflection upload failed", Advisory: true, Err: err}),
		)
		return refl
	}
	refl.CID = cid
	return refl
}

type auditRecord struct {
	SessionID      string      `json:"sessionId"`
	UserID         string      `json:"userId"`
	AccountID      string      `json:"hederaAccountId"`
	Mode           domain.Mode `json:"mode"`
	Duration       int         `json:"duration"`
	XPEarned       int         `json:"xpEarned"`
	Nonce          string      `json:"nonce"`
	ReflectionHash string      `json:"reflectionHash,omitempty"`
	ReflectionCID  string      `json:"reflectionCID,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

func (uc *SessionUseCase) submitAudit(ctx context.Context, s *domain.Session, refl domain.EncryptedReflection, at time.Time) domain.AuditCoordinates {
	if uc.audit == nil {
		return domain.AuditCoordinates{}
	}

	msg, err := json.Marshal(auditRecord{
		SessionID:      s.ID.String(),
		UserID:         s.UserID.String(),
		AccountID:      s.AccountID,
		Mode:           s.Mode,
		Duration:       s.Duration,
		XPEarned:       s.XPEarned,
		Nonce:          s.Nonce,
		ReflectionHash: refl.Hash,
		ReflectionCID:  refl.CID,
		Timestamp:      at,
	})
	if err != nil {
		uc.logger.Warn("encode audit record", zap.Error(err))
		return domain.AuditCoordinates{}
	}

	coords, err := uc.audit.SubmitAudit(ctx, msg)
	if err != nil {
		uc.logger.Warn("audit submission failed",
			zap.String("session", s.ID.String()),
			zap.Error(&domain.DependencyError{Op: "ledger.audit", Message: "audit submission failed", Advisory: true, Err: err}),
		)
		return domain.AuditCoordinates{}
	}
	return coords
}

// applyProgress пишет аккаунт, сад и вложения сессии в одной транзакции.
// Конфликт версий - перечитать и применить заново, не перезаписывать вслепую.
func (uc *SessionUseCase) applyProgress(ctx context.Context, s *domain.Session, refl domain.EncryptedReflection, audit domain.AuditCoordinates) (*CompleteResult, error) {
	var res *CompleteResult
	for attempt := 1; ; attempt++ {
		err := uc.store.Transaction(ctx, func(tx *repository.Store) error {
			var err error
			res, err = uc.applyOnce(ctx, tx, s, refl, audit)
			return err
		})
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= maxProgressAttempts {
			return nil, &domain.DependencyError{
				Op:      "datastore.progress",
				Message: fmt.Sprintf("Session %s completed but progress could not be saved after %d attempts", s.ID, attempt),
				Err:     err,
			}
		}
		uc.logger.Debug("progress write conflict, retrying",
			zap.String("session", s.ID.String()),
			zap.Int("attempt", attempt),
		)
	}
}

func (uc *SessionUseCase) applyOnce(ctx context.Context, tx *repository.Store, s *domain.Session, refl domain.EncryptedReflection, audit domain.AuditCoordinates) (*CompleteResult, error) {
	// Флаг progress_applied не дает начислить XP за сессию дважды
	if err := tx.Sessions.AttachResults(ctx, s.ID, refl, audit); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return nil, &domain.ConflictError{Message: "Session already completed", Err: errProgressApplied}
		}
		return nil, err
	}

	// 6. Аккаунт
	user, _, err := tx.Users.FirstOrCreate(ctx, s.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	previous := user.Level
	user.TotalXP += s.XPEarned
	user.Level = progression.Level(user.TotalXP)
	user.SessionsCompleted++
	user.TotalMinutes += s.Duration
	if s.EndTime != nil {
		user.LastSessionAt = s.EndTime
	}

	// 7. Сад
	garden, err := tx.Gardens.FirstOrCreate(ctx, user.ID, s.AccountID, progression.NewTiles())
	if err != nil {
		return nil, fmt.Errorf("load garden: %w", err)
	}
	at := uc.now().UTC()
	if s.EndTime != nil {
		at = *s.EndTime
	}
	adv, err := progression.AdvanceGarden(garden.TileList(), s.Mode, at)
	if err != nil {
		return nil, err
	}
	garden.SetTiles(adv.Tiles)
	// Снимок для минта делается один раз, в момент заполнения сетки
	if adv.CompletionDate != nil && !garden.NFT.HasSnapshot() {
		garden.NFT.Level = user.Level
		garden.NFT.TotalXP = user.TotalXP
		garden.NFT.CompletionDate = adv.CompletionDate
	}

	// 8. Запись
	if err := tx.Users.SaveProgress(ctx, user); err != nil {
		return nil, err
	}
	if err := tx.Gardens.SaveProgress(ctx, garden); err != nil {
		return nil, err
	}

	return &CompleteResult{
		TotalXP:       user.TotalXP,
		Level:         user.Level,
		PreviousLevel: previous,
		LeveledUp:     user.Level > previous,
		GardenPreview: progression.Preview(garden),
	}, nil
}

// ReapplyProgress доводит сессию, которая закрылась, но не дошла до аккаунта и сада.
// Повторный вызов для той же сессии ничего не меняет.
func (uc *SessionUseCase) ReapplyProgress(ctx context.Context, sessionID uuid.UUID) (*CompleteResult, error) {
	s, err := uc.store.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.Completed || s.ProgressApplied {
		return nil, &domain.ConflictError{Message: "Session progress already applied", Err: errProgressApplied}
	}
	res, err := uc.applyProgress(ctx, s, s.Reflection, s.Audit)
	if err != nil {
		return nil, err
	}
	res.SessionID = s.ID
	res.XPEarned = s.XPEarned
	return res, nil
}
