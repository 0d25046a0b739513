package service

import (
	"context"
	"testing"
	"time"

	"github.com/gridstake/gridstake/pkg/game"
	"github.com/gridstake/gridstake/pkg/repositories"
	"github.com/gridstake/gridstake/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// fakeFlipper always reports the same side so tests control move order.
type fakeFlipper struct {
	heads bool
}

func (f *fakeFlipper) Flip() (bool, error) {
	return f.heads, nil
}

type fixture struct {
	repo      *repositories.MemoryRepository
	transfers chan transfer.Request
	clock     *fakeClock
	svc       *Service
}

func testParams() Params {
	params := DefaultParams()
	params.MaxTurnDuration = time.Minute
	return params
}

func newFixture(t *testing.T, params Params, flipper Flipper) *fixture {
	t.Helper()
	repo := repositories.NewMemoryRepository()
	transfers := make(chan transfer.Request, 64)
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}

	svc := NewService(NewServiceOptions{
		Repository: repo,
		Transfers:  transfers,
		Flipper:    flipper,
		Now:        clock.Now,
		Params:     params,
	})
	require.NoError(t, svc.WhitelistToken(context.Background(), "usdc", 100))

	return &fixture{
		repo:      repo,
		transfers: transfers,
		clock:     clock,
		svc:       svc,
	}
}

func (f *fixture) drainTransfers() []transfer.Request {
	var requests []transfer.Request
	for {
		select {
		case req := <-f.transfers:
			requests = append(requests, req)
		default:
			return requests
		}
	}
}

func (f *fixture) register(t *testing.T, account string, deposit uint64) {
	t.Helper()
	require.NoError(t, f.svc.RegisterAvailability(context.Background(), account, "usdc", deposit, "", ""))
}

func (f *fixture) startGame(t *testing.T, initiator, opponent string, deposit uint64) uint64 {
	t.Helper()
	f.register(t, initiator, deposit)
	f.register(t, opponent, deposit)
	id, err := f.svc.StartGame(context.Background(), initiator, opponent)
	require.NoError(t, err)
	return id
}

func TestRegisterAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("unwhitelisted token", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		err := f.svc.RegisterAvailability(ctx, "alice", "doge", 1_000_000, "", "")
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("deposit below minimum", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		err := f.svc.RegisterAvailability(ctx, "alice", "usdc", 99, "", "")
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("duplicate registration", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		f.register(t, "alice", 1_000_000)
		err := f.svc.RegisterAvailability(ctx, "alice", "usdc", 1_000_000, "", "")
		require.Error(t, err)
		assert.True(t, IsState(err))
	})

	t.Run("registered player is listed", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		f.register(t, "alice", 1_000_000)
		players, err := f.svc.ListAvailablePlayers(ctx)
		require.NoError(t, err)
		require.Len(t, players, 1)
		assert.Equal(t, "alice", players[0].Account)
		assert.Equal(t, uint64(1_000_000), players[0].Deposit)
	})
}

func TestCancelAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("not registered", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		err := f.svc.CancelAvailability(ctx, "alice")
		require.Error(t, err)
		assert.True(t, IsState(err))
	})

	t.Run("cancellation refunds the deposit", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		f.register(t, "alice", 1_000_000)
		require.NoError(t, f.svc.CancelAvailability(ctx, "alice"))

		requests := f.drainTransfers()
		require.Len(t, requests, 1)
		assert.Equal(t, "alice", requests[0].Recipient)
		assert.Equal(t, uint64(1_000_000), requests[0].Amount)
		assert.Equal(t, transfer.PurposeRefund, requests[0].Purpose)

		players, err := f.svc.ListAvailablePlayers(ctx)
		require.NoError(t, err)
		assert.Empty(t, players)
	})
}

func TestStartGame(t *testing.T) {
	ctx := context.Background()

	t.Run("cannot play yourself", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		f.register(t, "alice", 1_000_000)
		_, err := f.svc.StartGame(ctx, "alice", "alice")
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("opponent not available", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		f.register(t, "alice", 1_000_000)
		_, err := f.svc.StartGame(ctx, "alice", "bob")
		require.Error(t, err)
		assert.True(t, IsState(err))
	})

	t.Run("mismatched deposits", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		f.register(t, "alice", 1_000_000)
		f.register(t, "bob", 2_000_000)
		_, err := f.svc.StartGame(ctx, "alice", "bob")
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("opponent waiting for someone else", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		f.register(t, "alice", 1_000_000)
		require.NoError(t, f.svc.RegisterAvailability(ctx, "bob", "usdc", 1_000_000, "carol", ""))
		_, err := f.svc.StartGame(ctx, "alice", "bob")
		require.Error(t, err)
		assert.True(t, IsAuthorization(err))
	})

	t.Run("successful match", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		id := f.startGame(t, "alice", "bob", 1_000_000)

		g, err := f.svc.GetGame(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "alice", g.Players[0].Account)
		assert.Equal(t, "bob", g.Players[1].Account)
		assert.Equal(t, uint64(2_000_000), g.Wager.Balance)
		assert.Equal(t, game.StateActive, g.State)

		players, err := f.svc.ListAvailablePlayers(ctx)
		require.NoError(t, err)
		assert.Empty(t, players)

		for _, account := range []string{"alice", "bob"} {
			stats, err := f.svc.GetStats(ctx, account)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), stats.GamesPlayed)
		}
	})

	t.Run("tails gives the opponent the first move", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: false})
		id := f.startGame(t, "alice", "bob", 1_000_000)

		g, err := f.svc.GetGame(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "bob", g.Players[0].Account)
	})

	t.Run("referrer recorded first write wins", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		require.NoError(t, f.svc.RegisterAvailability(ctx, "alice", "usdc", 1_000_000, "", "carol"))
		f.register(t, "bob", 1_000_000)
		_, err := f.svc.StartGame(ctx, "alice", "bob")
		require.NoError(t, err)

		stats, err := f.svc.GetStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "carol", stats.Referrer)

		// A later registration with a different referrer does not overwrite.
		require.NoError(t, f.svc.RegisterAvailability(ctx, "alice", "usdc", 1_000_000, "", "mallory"))
		f.register(t, "bob", 1_000_000)
		_, err = f.svc.StartGame(ctx, "alice", "bob")
		require.NoError(t, err)

		stats, err = f.svc.GetStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "carol", stats.Referrer)
	})
}

func TestStartGame_FirstMoverDistribution(t *testing.T) {
	ctx := context.Background()
	counts := make(map[string]int)
	for i := 0; i < 100; i++ {
		f := newFixture(t, testParams(), NewCryptoFlipper())
		id := f.startGame(t, "alice", "bob", 1_000_000)
		g, err := f.svc.GetGame(ctx, id)
		require.NoError(t, err)
		counts[g.Players[0].Account]++
	}
	assert.Greater(t, counts["alice"], 0)
	assert.Greater(t, counts["bob"], 0)
}

func TestSubmitMove(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown game", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		_, err := f.svc.SubmitMove(ctx, "alice", 42, 0, 0)
		require.Error(t, err)
		assert.True(t, repositories.IsNotFound(err))
	})

	t.Run("wrong turn", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		id := f.startGame(t, "alice", "bob", 1_000_000)
		_, err := f.svc.SubmitMove(ctx, "bob", id, 0, 0)
		require.Error(t, err)
		assert.True(t, game.IsNotCurrentMover(err))
	})

	t.Run("win settles the wager", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		id := f.startGame(t, "alice", "bob", 1_000_000)
		f.drainTransfers()

		for col := 0; col < 4; col++ {
			_, err := f.svc.SubmitMove(ctx, "alice", id, 0, col)
			require.NoError(t, err)
			_, err = f.svc.SubmitMove(ctx, "bob", id, 1, col)
			require.NoError(t, err)
		}
		g, err := f.svc.SubmitMove(ctx, "alice", id, 0, 4)
		require.NoError(t, err)
		assert.Equal(t, game.StateFinished, g.State)

		_, err = f.svc.GetGame(ctx, id)
		require.Error(t, err)
		assert.True(t, repositories.IsNotFound(err))

		archive, err := f.svc.ListArchivedGames(ctx)
		require.NoError(t, err)
		require.Len(t, archive, 1)
		assert.Equal(t, game.OutcomeWin, archive[0].Outcome.Kind)
		assert.Equal(t, "alice", archive[0].Outcome.Winner)
		assert.Equal(t, uint64(1_800_000), archive[0].Reward.Balance)

		stats, err := f.svc.GetStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), stats.Victories)
		assert.Equal(t, uint64(1_800_000), stats.TotalReward["usdc"])

		requests := f.drainTransfers()
		require.Len(t, requests, 1)
		assert.Equal(t, "alice", requests[0].Recipient)
		assert.Equal(t, uint64(1_800_000), requests[0].Amount)
		assert.Equal(t, transfer.PurposeWinnings, requests[0].Purpose)
	})

	t.Run("late move forfeits against the mover", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		id := f.startGame(t, "alice", "bob", 1_000_000)

		_, err := f.svc.SubmitMove(ctx, "alice", id, 0, 0)
		require.NoError(t, err)

		f.clock.Advance(f.svc.Params().MaxTurnDuration + time.Second)
		g, err := f.svc.SubmitMove(ctx, "bob", id, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, game.StateFinished, g.State)

		stats, err := f.svc.GetStats(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), stats.Penalties)

		stats, err = f.svc.GetStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), stats.Victories)
	})
}

func TestResign(t *testing.T) {
	ctx := context.Background()

	// Two players stake 1,000,000 each at a 10% fee; the winner's reward
	// grows by 1,800,000 and the loser's stays unchanged.
	f := newFixture(t, testParams(), &fakeFlipper{heads: true})
	id := f.startGame(t, "alice", "bob", 1_000_000)
	require.NoError(t, f.svc.Resign(ctx, "bob", id))

	aliceStats, err := f.svc.GetStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_800_000), aliceStats.TotalReward["usdc"])
	assert.Equal(t, uint64(1), aliceStats.Victories)
	assert.Equal(t, uint64(1), aliceStats.GamesPlayed)

	bobStats, err := f.svc.GetStats(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bobStats.TotalReward)
	assert.Equal(t, uint64(0), bobStats.Penalties)
	assert.Equal(t, uint64(1), bobStats.GamesPlayed)
}

func TestTie(t *testing.T) {
	ctx := context.Background()

	// A full 2x2 board with a win length of 3 always ends in a tie.
	params := testParams()
	params.BoardSize = 2
	params.WinLength = 3
	f := newFixture(t, params, &fakeFlipper{heads: true})
	id := f.startGame(t, "alice", "bob", 1_000_000)
	f.drainTransfers()

	_, err := f.svc.SubmitMove(ctx, "alice", id, 0, 0)
	require.NoError(t, err)
	_, err = f.svc.SubmitMove(ctx, "bob", id, 0, 1)
	require.NoError(t, err)
	_, err = f.svc.SubmitMove(ctx, "alice", id, 1, 0)
	require.NoError(t, err)
	g, err := f.svc.SubmitMove(ctx, "bob", id, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, game.StateFinished, g.State)

	archive, err := f.svc.ListArchivedGames(ctx)
	require.NoError(t, err)
	require.Len(t, archive, 1)
	assert.Equal(t, game.OutcomeTie, archive[0].Outcome.Kind)

	for _, account := range []string{"alice", "bob"} {
		stats, err := f.svc.GetStats(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, uint64(900_000), stats.TotalReward["usdc"])
		assert.Equal(t, uint64(0), stats.Victories)
	}

	var refunded uint64
	for _, req := range f.drainTransfers() {
		assert.Equal(t, transfer.PurposeTieRefund, req.Purpose)
		refunded += req.Amount
	}
	assert.Equal(t, uint64(1_800_000), refunded)
}

func TestForceStop(t *testing.T) {
	ctx := context.Background()

	t.Run("too early", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		id := f.startGame(t, "alice", "bob", 1_000_000)
		err := f.svc.ForceStop(ctx, "bob", id)
		require.Error(t, err)
		assert.True(t, IsState(err))
	})

	t.Run("current mover cannot stop", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		id := f.startGame(t, "alice", "bob", 1_000_000)
		f.clock.Advance(f.svc.Params().MaxTurnDuration + time.Second)
		err := f.svc.ForceStop(ctx, "alice", id)
		require.Error(t, err)
		assert.True(t, IsAuthorization(err))
	})

	t.Run("non-participant", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		id := f.startGame(t, "alice", "bob", 1_000_000)
		f.clock.Advance(f.svc.Params().MaxTurnDuration + time.Second)
		err := f.svc.ForceStop(ctx, "carol", id)
		require.Error(t, err)
		assert.True(t, game.IsNotParticipant(err))
	})

	t.Run("stops an unresponsive mover", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		id := f.startGame(t, "alice", "bob", 1_000_000)

		f.clock.Advance(f.svc.Params().MaxTurnDuration + time.Second)
		require.NoError(t, f.svc.ForceStop(ctx, "bob", id))

		stats, err := f.svc.GetStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), stats.Penalties)

		stats, err = f.svc.GetStats(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), stats.Victories)
		assert.Equal(t, uint64(1_800_000), stats.TotalReward["usdc"])

		penalized, err := f.svc.ListPenalizedAccounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, penalized)
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("expires stale availability with refund", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		f.register(t, "alice", 1_000_000)

		params := f.svc.Params()
		f.clock.Advance(params.MaxGameDuration + params.GraceWindow + time.Second)
		f.svc.sweep(ctx, f.clock.Now())

		players, err := f.svc.ListAvailablePlayers(ctx)
		require.NoError(t, err)
		assert.Empty(t, players)

		requests := f.drainTransfers()
		require.Len(t, requests, 1)
		assert.Equal(t, transfer.PurposeRefund, requests[0].Purpose)
		assert.Equal(t, uint64(1_000_000), requests[0].Amount)
	})

	t.Run("forfeits a timed-out game against the mover", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		id := f.startGame(t, "alice", "bob", 1_000_000)

		f.clock.Advance(f.svc.Params().MaxTurnDuration + time.Second)
		f.svc.sweep(ctx, f.clock.Now())

		_, err := f.svc.GetGame(ctx, id)
		require.Error(t, err)
		assert.True(t, repositories.IsNotFound(err))

		stats, err := f.svc.GetStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), stats.Penalties)

		stats, err = f.svc.GetStats(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), stats.Victories)
	})

	t.Run("idempotent", func(t *testing.T) {
		f := newFixture(t, testParams(), &fakeFlipper{heads: true})
		f.register(t, "alice", 1_000_000)
		id := f.startGame(t, "bob", "carol", 1_000_000)

		params := f.svc.Params()
		f.clock.Advance(params.MaxGameDuration + params.GraceWindow + time.Second)

		f.svc.sweep(ctx, f.clock.Now())
		first := f.drainTransfers()
		require.NotEmpty(t, first)

		f.svc.sweep(ctx, f.clock.Now())
		assert.Empty(t, f.drainTransfers())

		_, err := f.svc.GetGame(ctx, id)
		require.Error(t, err)
		assert.True(t, repositories.IsNotFound(err))
	})
}

func TestArchiveBound(t *testing.T) {
	ctx := context.Background()

	params := testParams()
	params.BoardSize = 2
	params.WinLength = 3
	params.MaxStoredGames = 2
	f := newFixture(t, params, &fakeFlipper{heads: true})

	playTie := func(a, b string) uint64 {
		id := f.startGame(t, a, b, 1_000_000)
		_, err := f.svc.SubmitMove(ctx, a, id, 0, 0)
		require.NoError(t, err)
		_, err = f.svc.SubmitMove(ctx, b, id, 0, 1)
		require.NoError(t, err)
		_, err = f.svc.SubmitMove(ctx, a, id, 1, 0)
		require.NoError(t, err)
		_, err = f.svc.SubmitMove(ctx, b, id, 1, 1)
		require.NoError(t, err)
		return id
	}

	first := playTie("alice", "bob")
	second := playTie("carol", "dave")
	third := playTie("erin", "frank")

	archive, err := f.svc.ListArchivedGames(ctx)
	require.NoError(t, err)
	require.Len(t, archive, 2)
	assert.Equal(t, second, archive[0].GameID)
	assert.Equal(t, third, archive[1].GameID)
	assert.NotEqual(t, first, archive[0].GameID)
}

func TestHandleTransferFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testParams(), &fakeFlipper{heads: true})

	req := transfer.NewRequest("usdc", "alice", 500, transfer.PurposeWinnings)
	f.svc.HandleTransferFailure(ctx, req)

	stats, err := f.svc.GetStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), stats.Claimable["usdc"])
}

func TestGetTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testParams(), &fakeFlipper{heads: true})

	id := f.startGame(t, "alice", "bob", 1_000_000)
	require.NoError(t, f.svc.Resign(ctx, "bob", id))
	f.startGame(t, "carol", "dave", 1_000_000)

	totals, err := f.svc.GetTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, totals.Accounts)
	assert.Equal(t, 1, totals.ActiveGames)
	assert.Equal(t, 1, totals.ArchivedGames)
}
