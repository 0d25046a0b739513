package service

import (
	"context"
	"fmt"

	"github.com/gridstake/gridstake/pkg/events"
	"github.com/gridstake/gridstake/pkg/game"
	"github.com/gridstake/gridstake/pkg/repositories/models"
	"github.com/gridstake/gridstake/pkg/settlement"
	"github.com/gridstake/gridstake/pkg/transfer"
)

var purposeByKind = map[settlement.Kind]transfer.Purpose{
	settlement.KindWinnings:  transfer.PurposeWinnings,
	settlement.KindTieRefund: transfer.PurposeTieRefund,
	settlement.KindReferral:  transfer.PurposeReferral,
}

// settle commits a finished game: stats counters, the archive entry and
// removal from the active set all land before any transfer is requested,
// so a transfer failure can never resurrect the session. penalized names
// the account charged with a forfeiture, or is empty.
func (s *Service) settle(ctx context.Context, g *game.Session, outcome *game.Outcome, penalized string) error {
	players := [2]string{g.Players[0].Account, g.Players[1].Account}

	stats := make(map[string]*models.Stats, 2)
	for _, account := range players {
		record, err := s.getOrCreateStats(ctx, account)
		if err != nil {
			return err
		}
		stats[account] = record
	}
	referrers := [2]string{stats[players[0]].Referrer, stats[players[1]].Referrer}

	split := settlement.Compute(*outcome, players, referrers, g.Wager, s.params.ServiceFeeBps, s.params.ReferralRatioBps)

	if outcome.Kind == game.OutcomeWin {
		stats[outcome.Winner].Victories++
	}
	if penalized != "" {
		stats[penalized].Penalties++
	}

	var playerPot uint64
	for _, p := range split.Payouts {
		switch p.Kind {
		case settlement.KindWinnings, settlement.KindTieRefund:
			stats[p.Recipient].AddReward(g.Wager.Token, p.Amount)
			playerPot += p.Amount
		case settlement.KindReferral:
			record, ok := stats[p.Recipient]
			if !ok {
				referrerStats, err := s.getOrCreateStats(ctx, p.Recipient)
				if err != nil {
					return err
				}
				stats[p.Recipient] = referrerStats
				record = referrerStats
			}
			record.AddReferralReward(g.Wager.Token, p.Amount)
		}
	}

	for _, record := range stats {
		if err := s.repo.PutStats(ctx, record); err != nil {
			return fmt.Errorf("failed to store stats: %v", err)
		}
	}

	archived := &models.ArchivedGame{
		GameID:  g.ID,
		Outcome: *outcome,
		Player1: players[0],
		Player2: players[1],
		Reward:  game.Wager{Token: g.Wager.Token, Balance: playerPot},
		Board:   g.Board.Snapshot(),
	}
	if err := s.repo.AppendArchive(ctx, archived); err != nil {
		return fmt.Errorf("failed to archive game: %v", err)
	}
	count, err := s.repo.CountArchive(ctx)
	if err != nil {
		return fmt.Errorf("failed to count archive: %v", err)
	}
	if count > s.params.MaxStoredGames {
		if err := s.repo.TrimArchive(ctx, s.params.MaxStoredGames); err != nil {
			return fmt.Errorf("failed to trim archive: %v", err)
		}
	}

	if err := s.repo.DeleteGame(ctx, g.ID); err != nil {
		return fmt.Errorf("failed to delete game: %v", err)
	}

	for _, p := range split.Payouts {
		s.emitTransfer(ctx, transfer.NewRequest(g.Wager.Token, p.Recipient, p.Amount, purposeByKind[p.Kind]))
	}

	s.publish(events.EventTypeGameFinished, archived)
	return nil
}
