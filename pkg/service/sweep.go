package service

import (
	"context"
	"time"

	"github.com/gridstake/gridstake/pkg/events"
	"github.com/gridstake/gridstake/pkg/game"
	"github.com/gridstake/gridstake/pkg/log"
	"github.com/gridstake/gridstake/pkg/transfer"
)

// sweep runs lazy expiry before a mutating call: stale availability
// records are refunded and removed, then every active game past its turn
// or game clock is forfeited against its current mover. Running it twice
// in a row is a no-op the second time. Failures are logged and skipped so
// one bad record cannot wedge every entry point.
//
// Callers hold the service lock.
func (s *Service) sweep(ctx context.Context, now time.Time) {
	s.sweepExcept(ctx, now, 0)
}

// sweepExcept is sweep with one session exempted. Calls targeting a
// specific game exempt it so their own timeout handling decides how that
// session ends; game ids start at 1, so 0 exempts nothing.
func (s *Service) sweepExcept(ctx context.Context, now time.Time, exempt uint64) {
	maxAge := s.params.MaxGameDuration + s.params.GraceWindow

	availability, err := s.repo.ListAvailability(ctx)
	if err != nil {
		log.Error("Sweep failed to list availability: %v", err)
	}
	for _, a := range availability {
		if now.Sub(a.CreatedAt) <= maxAge {
			continue
		}
		if err := s.repo.DeleteAvailability(ctx, a.Account); err != nil {
			log.Error("Sweep failed to evict availability for %s: %v", a.Account, err)
			continue
		}
		log.Debug("Evicted stale availability for %s", a.Account)
		s.emitTransfer(ctx, transfer.NewRequest(a.Token, a.Account, a.Deposit, transfer.PurposeRefund))
		s.publish(events.EventTypeAvailabilityRemoved, a)
	}

	games, err := s.repo.ListGames(ctx)
	if err != nil {
		log.Error("Sweep failed to list games: %v", err)
	}
	for _, g := range games {
		if g.ID == exempt || g.State != game.StateActive {
			continue
		}
		if g.SinceLastTurn(now) <= s.params.MaxTurnDuration && g.Elapsed(now) <= s.params.MaxGameDuration {
			continue
		}
		penalized := g.CurrentMover()
		winner := g.Opponent()
		outcome, err := g.Finish(winner)
		if err != nil {
			log.Error("Sweep failed to finish game %d: %v", g.ID, err)
			continue
		}
		log.Debug("Forfeiting timed-out game %d against %s", g.ID, penalized)
		if err := s.settle(ctx, g, outcome, penalized); err != nil {
			log.Error("Sweep failed to settle game %d: %v", g.ID, err)
		}
	}
}
