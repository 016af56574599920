package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zengarden/internal/domain"
	"zengarden/internal/infrastructure/repository"
	"zengarden/internal/progression"
	"zengarden/internal/testutil"
)

func newSession(userID uuid.UUID, account, nonce string) *domain.Session {
	return &domain.Session{
		ID:             uuid.New(),
		UserID:         userID,
		AccountID:      account,
		Mode:           domain.ModeCalm,
		TargetDuration: 10,
		StartTime:      time.Now(),
		Nonce:          nonce,
	}
}

func TestUsers_FirstOrCreate(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	u, created, err := store.Users.FirstOrCreate(ctx, "0.0.1001")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, u.Level)

	again, created, err := store.Users.FirstOrCreate(ctx, "0.0.1001")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)

	_, err = store.Users.GetByAccountID(ctx, "0.0.404")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUsers_SaveProgressDetectsStaleVersion(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	u, _, err := store.Users.FirstOrCreate(ctx, "0.0.1002")
	require.NoError(t, err)

	a, err := store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	b, err := store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)

	a.TotalXP = 150
	a.Level = progression.Level(a.TotalXP)
	require.NoError(t, store.Users.SaveProgress(ctx, a))

	b.TotalXP = 100
	assert.ErrorIs(t, store.Users.SaveProgress(ctx, b), domain.ErrVersionConflict)

	got, err := store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, got.TotalXP)
	assert.Equal(t, 2, got.Level)
	assert.Equal(t, 1, got.Version)
}

func TestSessions_NonceIsUnique(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()
	uid := uuid.New()

	require.NoError(t, store.Sessions.Create(ctx, newSession(uid, "0.0.1", "nonce-1")))
	err := store.Sessions.Create(ctx, newSession(uid, "0.0.1", "nonce-1"))
	assert.ErrorIs(t, err, domain.ErrDuplicateNonce)
}

func TestSessions_MarkCompletedOnlyOnce(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	s := newSession(uuid.New(), "0.0.1", "nonce-2")
	require.NoError(t, store.Sessions.Create(ctx, s))

	end := time.Now()
	require.NoError(t, store.Sessions.MarkCompleted(ctx, s.ID, 12, 120, end, "proof"))
	assert.ErrorIs(t, store.Sessions.MarkCompleted(ctx, s.ID, 30, 450, end, "proof"), domain.ErrAlreadyCompleted)

	got, err := store.Sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, 12, got.Duration)
	assert.Equal(t, 120, got.XPEarned)
	assert.False(t, got.ProgressApplied)

	_, err = store.Sessions.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessions_AttachResultsAndUnapplied(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	s := newSession(uuid.New(), "0.0.7", "nonce-3")
	require.NoError(t, store.Sessions.Create(ctx, s))
	require.NoError(t, store.Sessions.MarkCompleted(ctx, s.ID, 10, 100, time.Now().Add(-time.Hour), "p"))

	pending, err := store.Sessions.ListUnapplied(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	refl := domain.EncryptedReflection{Ciphertext: "c", IV: "i", Salt: "s", Hash: "h", CID: "bafyrefl"}
	audit := domain.AuditCoordinates{TopicID: "0.0.5005", SequenceNumber: 17, ConsensusTimestamp: &ts, TransactionID: "0.0.2@1.2"}
	require.NoError(t, store.Sessions.AttachResults(ctx, s.ID, refl, audit))
	assert.ErrorIs(t, store.Sessions.AttachResults(ctx, s.ID, refl, audit), domain.ErrVersionConflict)

	got, err := store.Sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.ProgressApplied)
	assert.Equal(t, "h", got.Reflection.Hash)
	assert.Equal(t, "bafyrefl", got.Reflection.CID)
	assert.Equal(t, int64(17), got.Audit.SequenceNumber)
	assert.Equal(t, "0.0.2@1.2", got.Audit.TransactionID)
	require.NotNil(t, got.Audit.ConsensusTimestamp)
	assert.True(t, ts.Equal(*got.Audit.ConsensusTimestamp))

	completed, err := store.Sessions.ListCompleted(ctx, repository.SessionFilter{AccountID: "0.0.7"})
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestGardens_SaveProgressRejectsLostUpdate(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()
	uid := uuid.New()

	g, err := store.Gardens.FirstOrCreate(ctx, uid, "0.0.5", progression.NewTiles())
	require.NoError(t, err)

	first, err := store.Gardens.GetByID(ctx, g.ID)
	require.NoError(t, err)
	second, err := store.Gardens.GetByID(ctx, g.ID)
	require.NoError(t, err)

	adv, err := progression.AdvanceGarden(first.TileList(), domain.ModeFocus, time.Now())
	require.NoError(t, err)
	first.SetTiles(adv.Tiles)
	require.NoError(t, store.Gardens.SaveProgress(ctx, first))

	// Вторая копия прочитала ту же сетку и хочет занять ту же плитку
	adv, err = progression.AdvanceGarden(second.TileList(), domain.ModeCalm, time.Now())
	require.NoError(t, err)
	second.SetTiles(adv.Tiles)
	assert.ErrorIs(t, store.Gardens.SaveProgress(ctx, second), domain.ErrVersionConflict)

	got, err := store.Gardens.GetByOwner(ctx, uid, "0.0.5")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletedTiles())
	assert.Equal(t, domain.ModeFocus, got.TileList()[0].SessionType)
}

func TestGardens_MintGate(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	g, err := store.Gardens.FirstOrCreate(ctx, uuid.New(), "0.0.6", progression.NewTiles())
	require.NoError(t, err)

	require.NoError(t, store.Gardens.ClaimMint(ctx, g.ID, "key-1"))
	assert.ErrorIs(t, store.Gardens.ClaimMint(ctx, g.ID, "key-2"), domain.ErrMintNotClaimed)

	// Чужой ключ не может откатить захват
	assert.ErrorIs(t, store.Gardens.ResetMint(ctx, g.ID, "key-2"), domain.ErrMintNotClaimed)
	require.NoError(t, store.Gardens.ResetMint(ctx, g.ID, "key-1"))

	got, err := store.Gardens.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, got.Minted)
	assert.Equal(t, domain.MintStateNone, got.MintState)

	require.NoError(t, store.Gardens.ClaimMint(ctx, g.ID, "key-3"))
	now := time.Now()
	require.NoError(t, store.Gardens.CompleteMint(ctx, g.ID, "key-3", domain.BadgeRecord{
		TokenID: "0.0.999", SerialNumber: 4, ContentID: "QmX", TransactionID: "tx", MintedAt: &now, Level: 4, TotalXP: 1000,
	}))

	got, err = store.Gardens.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got.Minted)
	assert.Equal(t, domain.MintStateMinted, got.MintState)
	assert.Equal(t, int64(4), got.NFT.SerialNumber)

	minted, err := store.Gardens.ListByMintState(ctx, domain.MintStateMinted)
	require.NoError(t, err)
	assert.Len(t, minted, 1)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	store, db := testutil.NewStore(t)
	ctx := context.Background()

	u, _, err := store.Users.FirstOrCreate(ctx, "0.0.77")
	require.NoError(t, err)
	g, err := store.Gardens.FirstOrCreate(ctx, u.ID, "0.0.77", progression.NewTiles())
	require.NoError(t, err)

	testutil.FailWrites(t, db, "gardens", func() bool { return true })

	err = store.Transaction(ctx, func(tx *repository.Store) error {
		u.TotalXP = 500
		if err := tx.Users.SaveProgress(ctx, u); err != nil {
			return err
		}
		return tx.Gardens.SaveProgress(ctx, g)
	})
	require.Error(t, err)

	got, err := store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalXP)
}

func TestSessions_ColumnsMatchUpdateKeys(t *testing.T) {
	_, db := testutil.NewStore(t)

	// Ключи, которые репозитории пишут через map в Updates
	for _, col := range []string{
		"reflection_ciphertext", "reflection_iv", "reflection_salt", "reflection_hash", "reflection_cid",
		"audit_topic_id", "audit_sequence_number", "audit_consensus_timestamp", "audit_transaction_id",
		"progress_applied",
	} {
		assert.True(t, db.Migrator().HasColumn(&domain.Session{}, col), col)
	}
	for _, col := range []string{
		"nft_level", "nft_total_xp", "nft_completion_date", "nft_token_id", "nft_serial_number",
		"nft_content_id", "nft_transaction_id", "nft_minted_at", "nft_journey_hash", "mint_key", "mint_state",
	} {
		assert.True(t, db.Migrator().HasColumn(&domain.Garden{}, col), col)
	}
	for _, col := range []string{"total_xp", "level", "sessions_completed", "total_minutes", "last_session_at", "version"} {
		assert.True(t, db.Migrator().HasColumn(&domain.User{}, col), col)
	}
}
