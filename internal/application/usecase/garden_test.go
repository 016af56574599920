package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zengarden/internal/domain"
)

func TestGardenState_RequiresIdentifier(t *testing.T) {
	f := newFixture(t)
	_, err := f.garden.State(context.Background(), "", "")
	var authn *domain.AuthenticationError
	assert.ErrorAs(t, err, &authn)
}

func TestGardenState_DefaultForUnknownWallet(t *testing.T) {
	f := newFixture(t)
	state, err := f.garden.State(context.Background(), "", "0.0.424242")
	require.NoError(t, err)

	assert.Len(t, state.Grid, domain.GridSize)
	assert.Zero(t, state.TilesCompleted)
	assert.Equal(t, 1, state.XP.Level)
	assert.Equal(t, 100, state.XP.Span)
	assert.False(t, state.NFTEligible)
	assert.Nil(t, state.Badge)
	assert.Len(t, state.Sessions.ByMode, len(domain.Modes))
}

func TestGardenState_LazilyCreatesGardenForKnownPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.newAccount(t)
	f.runSession(t, account, domain.ModeCalm, 10)
	u := f.user(t, account)

	// Второй кошелек того же пользователя
	state, err := f.garden.State(ctx, u.ID.String(), "0.0.999001")
	require.NoError(t, err)
	assert.Zero(t, state.TilesCompleted)

	g, err := f.store.Gardens.GetByOwner(ctx, u.ID, "0.0.999001")
	require.NoError(t, err)
	assert.Len(t, g.TileList(), domain.GridSize)

	_, err = f.garden.State(ctx, "not-a-uuid", account)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGardenState_Aggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.newAccount(t)

	f.runSession(t, account, domain.ModeMeditation, 10)
	f.runSession(t, account, domain.ModeMeditation, 20)
	f.runSession(t, account, domain.ModeFocus, 5)

	// Начатая, но не завершенная сессия не считается
	_, err := f.sessions.Start(ctx, account, "calm", 10)
	require.NoError(t, err)

	state, err := f.garden.State(ctx, "", account)
	require.NoError(t, err)
	assert.Equal(t, 3, state.Sessions.Total)
	assert.Equal(t, 35, state.Sessions.TotalMinutes)
	assert.Equal(t, 2, state.Sessions.ByMode[domain.ModeMeditation])
	assert.Equal(t, 1, state.Sessions.ByMode[domain.ModeFocus])
	assert.Equal(t, 0, state.Sessions.ByMode[domain.ModeCalm])
	assert.Equal(t, 3, state.TilesCompleted)
	assert.Equal(t, 150+300+60, state.XP.Total)
	assert.Equal(t, 3, state.XP.Level)

	byID, err := f.garden.State(ctx, state.UserID, "")
	require.NoError(t, err)
	assert.Equal(t, state.XP, byID.XP)
	assert.Equal(t, state.Grid, byID.Grid)
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	h := NewHealthUseCase(time.Second)
	h.Register("datastore", true, ok)
	h.Register("ledger", false, ok)
	assert.Equal(t, StatusHealthy, h.Check(context.Background()).Status)

	h.Register("content", false, down)
	report := h.Check(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "connection refused", report.Services["content"].Error)
	assert.Equal(t, StatusHealthy, report.Services["ledger"].Status)

	h.Register("datastore", true, down)
	assert.Equal(t, StatusUnhealthy, h.Check(context.Background()).Status)
}

func TestReconcile_ListsStaleMints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := completeGarden(t, f)
	g := f.gardenOf(t, account)

	require.NoError(t, f.store.Gardens.ClaimMint(ctx, g.ID, uuid.NewString()))

	reconcile := NewReconcileUseCase(f.store, f.sessions, f.sessions.logger)

	// Свежий захват может быть живым запросом
	pending, err := reconcile.Pending(ctx, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, pending.Gardens)

	pending, err = reconcile.Pending(ctx, -time.Hour)
	require.NoError(t, err)
	require.Len(t, pending.Gardens, 1)
	assert.Equal(t, domain.MintStateInProgress, pending.Gardens[0].MintState)
}
