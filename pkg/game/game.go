package game

import (
	"fmt"
	"math"
	"time"

	"github.com/gridstake/gridstake/pkg/board"
)

// State is the lifecycle state of a session. Finished is terminal;
// there is no transition back to Active.
type State uint8

const (
	StateActive State = iota
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Player is one of the two slots in a session.
type Player struct {
	Account string      `json:"account"`
	Piece   board.Piece `json:"piece"`
}

// Wager describes the stake a session plays for. Balance is both players'
// deposits combined.
type Wager struct {
	Token   string `json:"token"`
	Balance uint64 `json:"balance"`
}

// OutcomeKind tags a terminal result.
type OutcomeKind uint8

const (
	OutcomeWin OutcomeKind = iota + 1
	OutcomeTie
)

// Outcome is the terminal result of a session. Winner is set only when
// Kind is OutcomeWin.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Winner string      `json:"winner,omitempty"`
}

// Session is a single match between two players. All mutation goes through
// the methods below; callers observe a consistent snapshot because the
// hosting service serializes access.
type Session struct {
	ID              uint64        `json:"id"`
	Players         [2]Player     `json:"players"`
	Board           *board.Board  `json:"board"`
	CurrentPlayer   int           `json:"current_player"`
	State           State         `json:"state"`
	InitiatedAt     time.Time     `json:"initiated_at"`
	LastTurnAt      time.Time     `json:"last_turn_at"`
	TotalTurns      uint32        `json:"total_turns"`
	CurrentDuration time.Duration `json:"current_duration"`
	Wager           Wager         `json:"wager"`
}

// New creates an Active session. The first argument plays first and holds X.
// The wager balance is the two equal deposits combined; doubling is checked
// for overflow so an oversized deposit can never wrap.
func New(id uint64, first, second, token string, deposit uint64, size, winLength int, now time.Time) (*Session, error) {
	if first == second {
		return nil, fmt.Errorf("players must be distinct accounts: %s", first)
	}
	if deposit > math.MaxUint64/2 {
		return nil, fmt.Errorf("deposit %d overflows when doubled", deposit)
	}
	return &Session{
		ID: id,
		Players: [2]Player{
			{Account: first, Piece: board.PieceX},
			{Account: second, Piece: board.PieceO},
		},
		Board:         board.New(size, winLength),
		CurrentPlayer: 0,
		State:         StateActive,
		InitiatedAt:   now,
		Wager:         Wager{Token: token, Balance: deposit * 2},
	}, nil
}

// CurrentMover returns the account whose turn it is.
func (s *Session) CurrentMover() string {
	return s.Players[s.CurrentPlayer].Account
}

// Opponent returns the account that is not currently moving.
func (s *Session) Opponent() string {
	return s.Players[1-s.CurrentPlayer].Account
}

// OpponentOf returns the other player's account, or an error if the given
// account is not a participant.
func (s *Session) OpponentOf(account string) (string, error) {
	switch account {
	case s.Players[0].Account:
		return s.Players[1].Account, nil
	case s.Players[1].Account:
		return s.Players[0].Account, nil
	default:
		return "", &ErrNotParticipant{Account: account, GameID: s.ID}
	}
}

// IsParticipant reports whether the account holds one of the player slots.
func (s *Session) IsParticipant(account string) bool {
	return account == s.Players[0].Account || account == s.Players[1].Account
}

// AccountByPiece returns the account holding the given piece.
func (s *Session) AccountByPiece(p board.Piece) string {
	if s.Players[0].Piece == p {
		return s.Players[0].Account
	}
	return s.Players[1].Account
}

// ApplyMove places the active piece for the caller and runs win detection
// from the played cell. On a decided board the session transitions to
// Finished and the outcome is returned; otherwise the outcome is nil and
// the caller is responsible for turn bookkeeping and timeout checks.
func (s *Session) ApplyMove(caller string, row, col int) (*Outcome, error) {
	if s.State != StateActive {
		return nil, &ErrAlreadyFinished{GameID: s.ID}
	}
	if caller != s.CurrentMover() {
		return nil, &ErrNotCurrentMover{Account: caller, GameID: s.ID}
	}
	if err := s.Board.Place(row, col); err != nil {
		return nil, err
	}
	s.CurrentPlayer = 1 - s.CurrentPlayer
	s.Board.UpdateWinner(row, col)

	if s.Board.Winner == nil {
		return nil, nil
	}

	s.State = StateFinished
	switch *s.Board.Winner {
	case board.WinnerTie:
		return &Outcome{Kind: OutcomeTie}, nil
	case board.WinnerX:
		return &Outcome{Kind: OutcomeWin, Winner: s.AccountByPiece(board.PieceX)}, nil
	default:
		return &Outcome{Kind: OutcomeWin, Winner: s.AccountByPiece(board.PieceO)}, nil
	}
}

// Finish forces the session into the terminal state with the given winner.
// Used for resignations, forced stops and timeout forfeitures.
func (s *Session) Finish(winner string) (*Outcome, error) {
	if s.State != StateActive {
		return nil, &ErrAlreadyFinished{GameID: s.ID}
	}
	if !s.IsParticipant(winner) {
		return nil, &ErrNotParticipant{Account: winner, GameID: s.ID}
	}
	s.State = StateFinished
	return &Outcome{Kind: OutcomeWin, Winner: winner}, nil
}

// SinceLastTurn returns the time elapsed since the previous turn, or since
// initiation when no move has been made yet.
func (s *Session) SinceLastTurn(now time.Time) time.Duration {
	if s.LastTurnAt.IsZero() {
		return now.Sub(s.InitiatedAt)
	}
	return now.Sub(s.LastTurnAt)
}

// Elapsed returns the total game duration at the given instant.
func (s *Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.InitiatedAt)
}
