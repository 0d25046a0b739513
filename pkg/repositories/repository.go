package repositories

import (
	"context"

	"github.com/gridstake/gridstake/pkg/game"
	"github.com/gridstake/gridstake/pkg/repositories/models"
)

// TokenStore is the durable whitelist of wager tokens.
type TokenStore interface {
	WhitelistToken(ctx context.Context, token string, minDeposit uint64) error
	MinDeposit(ctx context.Context, token string) (uint64, error)
	ListTokens(ctx context.Context) ([]*models.Token, error)
}

// QueueStore holds availability records keyed by account.
type QueueStore interface {
	PutAvailability(ctx context.Context, a *models.Availability) error
	GetAvailability(ctx context.Context, account string) (*models.Availability, error)
	DeleteAvailability(ctx context.Context, account string) error
	ListAvailability(ctx context.Context) ([]*models.Availability, error)
}

// GameStore holds active game sessions keyed by id. Finished games are
// deleted here and live on in the archive.
type GameStore interface {
	// NextGameID returns a fresh monotonically increasing session id,
	// starting at 1.
	NextGameID(ctx context.Context) (uint64, error)
	PutGame(ctx context.Context, g *game.Session) error
	GetGame(ctx context.Context, id uint64) (*game.Session, error)
	DeleteGame(ctx context.Context, id uint64) error
	ListGames(ctx context.Context) ([]*game.Session, error)
}

// StatsStore holds per-account aggregate counters.
type StatsStore interface {
	GetStats(ctx context.Context, account string) (*models.Stats, error)
	PutStats(ctx context.Context, s *models.Stats) error
	ListStats(ctx context.Context) ([]*models.Stats, error)
}

// ArchiveStore holds finished games in insertion order.
type ArchiveStore interface {
	AppendArchive(ctx context.Context, g *models.ArchivedGame) error
	// ListArchive returns entries oldest first.
	ListArchive(ctx context.Context) ([]*models.ArchivedGame, error)
	CountArchive(ctx context.Context) (int, error)
	// TrimArchive deletes the oldest entries until at most max remain.
	TrimArchive(ctx context.Context, max int) error
}

// Repository is the full persistence surface the service depends on.
// Each store is independently substitutable; the combined interface is
// what the bundled backends implement.
type Repository interface {
	TokenStore
	QueueStore
	GameStore
	StatsStore
	ArchiveStore
	Close(ctx context.Context) error
}
