package models

import (
	"time"

	"github.com/gridstake/gridstake/pkg/board"
	"github.com/gridstake/gridstake/pkg/game"
)

// Token is a whitelisted wager token and its minimum deposit.
type Token struct {
	Token      string `json:"token"`
	MinDeposit uint64 `json:"min_deposit"`
}

// Availability is a queue entry declaring an account ready to play.
// Destroyed by cancellation, by being matched, or by expiry; every exit
// path refunds the deposit.
type Availability struct {
	Account   string    `json:"account"`
	Token     string    `json:"token"`
	Deposit   uint64    `json:"deposit"`
	Opponent  string    `json:"opponent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats holds per-account aggregate counters. Created lazily on first
// participation and never deleted. Referrer is set once and never
// overwritten.
type Stats struct {
	Account        string            `json:"account"`
	Referrer       string            `json:"referrer,omitempty"`
	GamesPlayed    uint64            `json:"games_played"`
	Victories      uint64            `json:"victories"`
	Penalties      uint64            `json:"penalties"`
	TotalReward    map[string]uint64 `json:"total_reward"`
	ReferralReward map[string]uint64 `json:"referral_reward"`
	Claimable      map[string]uint64 `json:"claimable,omitempty"`
}

// NewStats creates an empty stats record for an account.
func NewStats(account string) *Stats {
	return &Stats{
		Account:        account,
		TotalReward:    make(map[string]uint64),
		ReferralReward: make(map[string]uint64),
	}
}

// AddReward accumulates a game reward for a token.
func (s *Stats) AddReward(token string, amount uint64) {
	if s.TotalReward == nil {
		s.TotalReward = make(map[string]uint64)
	}
	s.TotalReward[token] += amount
}

// AddReferralReward accumulates referral earnings for a token.
func (s *Stats) AddReferralReward(token string, amount uint64) {
	if s.ReferralReward == nil {
		s.ReferralReward = make(map[string]uint64)
	}
	s.ReferralReward[token] += amount
}

// AddClaimable records an amount owed after a failed transfer so the
// value is never dropped.
func (s *Stats) AddClaimable(token string, amount uint64) {
	if s.Claimable == nil {
		s.Claimable = make(map[string]uint64)
	}
	s.Claimable[token] += amount
}

// SetReferrer records the referrer if none is set yet. First write wins.
func (s *Stats) SetReferrer(referrer string) {
	if s.Referrer == "" {
		s.Referrer = referrer
	}
}

// ArchivedGame is a read-only snapshot of a finished game. Reward holds
// the post-fee amount paid out (or refunded on a tie).
type ArchivedGame struct {
	GameID  uint64        `json:"game_id"`
	Outcome game.Outcome  `json:"outcome"`
	Player1 string        `json:"player1"`
	Player2 string        `json:"player2"`
	Reward  game.Wager    `json:"reward"`
	Board   [][]board.Piece `json:"board"`
}
