package service

import (
	"context"
	"fmt"

	"github.com/gridstake/gridstake/pkg/events"
	"github.com/gridstake/gridstake/pkg/game"
)

// SubmitMove places the caller's piece. On a decided board the session
// settles immediately. An undecided move is still checked against the turn
// and game clocks afterwards; a violation forfeits the game against the
// caller, since the move itself proves how late it was.
func (s *Service) SubmitMove(ctx context.Context, caller string, gameID uint64, row, col int) (*game.Session, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	now := s.now()
	s.sweepExcept(ctx, now, gameID)

	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	previousTurn := g.LastTurnAt
	outcome, err := g.ApplyMove(caller, row, col)
	if err != nil {
		return nil, err
	}

	if outcome != nil {
		if err := s.settle(ctx, g, outcome, ""); err != nil {
			return nil, err
		}
		return g, nil
	}

	g.TotalTurns++
	g.LastTurnAt = now
	g.CurrentDuration = g.Elapsed(now)

	sinceTurn := now.Sub(g.InitiatedAt)
	if !previousTurn.IsZero() {
		sinceTurn = now.Sub(previousTurn)
	}
	if sinceTurn > s.params.MaxTurnDuration || g.CurrentDuration > s.params.MaxGameDuration {
		winner, err := g.OpponentOf(caller)
		if err != nil {
			return nil, err
		}
		outcome, err := g.Finish(winner)
		if err != nil {
			return nil, err
		}
		if err := s.settle(ctx, g, outcome, caller); err != nil {
			return nil, err
		}
		return g, nil
	}

	if err := s.repo.PutGame(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to store game: %v", err)
	}

	s.publish(events.EventTypeMoveMade, g)
	return g, nil
}

// Resign forfeits the game voluntarily. The other player wins and the
// session settles normally, without a penalty mark.
func (s *Service) Resign(ctx context.Context, caller string, gameID uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	now := s.now()
	s.sweepExcept(ctx, now, gameID)

	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return err
	}

	winner, err := g.OpponentOf(caller)
	if err != nil {
		return err
	}
	outcome, err := g.Finish(winner)
	if err != nil {
		return err
	}
	return s.settle(ctx, g, outcome, "")
}

// ForceStop lets the waiting player end a game whose current mover has
// run out their clock. The unresponsive mover is penalized.
func (s *Service) ForceStop(ctx context.Context, caller string, gameID uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	now := s.now()
	s.sweepExcept(ctx, now, gameID)

	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return err
	}

	if !g.IsParticipant(caller) {
		return &game.ErrNotParticipant{Account: caller, GameID: g.ID}
	}
	if caller == g.CurrentMover() {
		return &AuthorizationError{Reason: "only the waiting player may force a stop"}
	}
	if g.SinceLastTurn(now) <= s.params.MaxTurnDuration && g.Elapsed(now) <= s.params.MaxGameDuration {
		return &StateError{Reason: fmt.Sprintf("game %d has not exceeded any time limit yet", g.ID)}
	}

	penalized := g.CurrentMover()
	outcome, err := g.Finish(caller)
	if err != nil {
		return err
	}
	return s.settle(ctx, g, outcome, penalized)
}
