package service

import (
	"context"
	"fmt"

	"github.com/gridstake/gridstake/pkg/game"
	"github.com/gridstake/gridstake/pkg/repositories/models"
)

// Totals are service-wide aggregate counts.
type Totals struct {
	Accounts      int `json:"accounts"`
	ActiveGames   int `json:"active_games"`
	ArchivedGames int `json:"archived_games"`
}

// ListAvailablePlayers returns every account currently in the queue.
func (s *Service) ListAvailablePlayers(ctx context.Context) ([]*models.Availability, error) {
	return s.repo.ListAvailability(ctx)
}

// ListActiveGames returns every session still being played.
func (s *Service) ListActiveGames(ctx context.Context) ([]*game.Session, error) {
	return s.repo.ListGames(ctx)
}

// GetGame returns a single active session.
func (s *Service) GetGame(ctx context.Context, id uint64) (*game.Session, error) {
	return s.repo.GetGame(ctx, id)
}

// GetStats returns the aggregate counters for an account.
func (s *Service) GetStats(ctx context.Context, account string) (*models.Stats, error) {
	return s.repo.GetStats(ctx, account)
}

// ListArchivedGames returns recently finished games, oldest first.
func (s *Service) ListArchivedGames(ctx context.Context) ([]*models.ArchivedGame, error) {
	return s.repo.ListArchive(ctx)
}

// ListPenalizedAccounts returns every account with at least one penalty.
func (s *Service) ListPenalizedAccounts(ctx context.Context) ([]string, error) {
	stats, err := s.repo.ListStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stats: %v", err)
	}
	var accounts []string
	for _, record := range stats {
		if record.Penalties > 0 {
			accounts = append(accounts, record.Account)
		}
	}
	return accounts, nil
}

// ListTokens returns the whitelisted wager tokens.
func (s *Service) ListTokens(ctx context.Context) ([]*models.Token, error) {
	return s.repo.ListTokens(ctx)
}

// GetTotals returns service-wide aggregate counts. Accounts counts every
// account that has ever played a game.
func (s *Service) GetTotals(ctx context.Context) (*Totals, error) {
	stats, err := s.repo.ListStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stats: %v", err)
	}
	players := 0
	for _, record := range stats {
		if record.GamesPlayed > 0 {
			players++
		}
	}
	games, err := s.repo.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %v", err)
	}
	archived, err := s.repo.CountArchive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count archive: %v", err)
	}
	return &Totals{
		Accounts:      players,
		ActiveGames:   len(games),
		ArchivedGames: archived,
	}, nil
}
