package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gridstake/gridstake/pkg/events"
	"github.com/gridstake/gridstake/pkg/game"
	"github.com/gridstake/gridstake/pkg/log"
	"github.com/gridstake/gridstake/pkg/queue"
	"github.com/gridstake/gridstake/pkg/repositories"
	"github.com/gridstake/gridstake/pkg/repositories/models"
	"github.com/gridstake/gridstake/pkg/transfer"
)

// Params are the deployment-wide game and settlement parameters. They are
// fixed at startup.
type Params struct {
	ServiceFeeBps    uint32        `json:"service_fee_bps"`
	ReferralRatioBps uint32        `json:"referral_ratio_bps"`
	MaxGameDuration  time.Duration `json:"max_game_duration"`
	MaxTurnDuration  time.Duration `json:"max_turn_duration"`
	GraceWindow      time.Duration `json:"grace_window"`
	MaxStoredGames   int           `json:"max_stored_games"`
	BoardSize        int           `json:"board_size"`
	WinLength        int           `json:"win_length"`
}

// DefaultParams returns the standard deployment parameters: a 10% service
// fee, 95% of which is shared with referrers, hour-long games with a
// per-turn limit of 1/25th of that, and a 50-game archive.
func DefaultParams() Params {
	maxGameDuration := time.Hour
	return Params{
		ServiceFeeBps:    1000,
		ReferralRatioBps: 9500,
		MaxGameDuration:  maxGameDuration,
		MaxTurnDuration:  maxGameDuration / 25,
		GraceWindow:      10 * time.Minute,
		MaxStoredGames:   50,
		BoardSize:        5,
		WinLength:        5,
	}
}

// Service is the single entry point for all game state mutation. Every
// mutating call runs an expiry sweep first, then commits atomically under
// one lock; payouts leave through the transfer channel after terminal
// state is committed.
type Service struct {
	lock      sync.Mutex
	repo      repositories.Repository
	transfers chan<- transfer.Request
	events    queue.Queue
	flipper   Flipper
	now       func() time.Time
	params    Params
}

type NewServiceOptions struct {
	Repository repositories.Repository
	Transfers  chan<- transfer.Request
	Events     queue.Queue
	Flipper    Flipper
	// Now overrides the clock. Defaults to time.Now.
	Now    func() time.Time
	Params Params
}

func NewService(opts NewServiceOptions) *Service {
	flipper := opts.Flipper
	if flipper == nil {
		flipper = NewCryptoFlipper()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      opts.Repository,
		transfers: opts.Transfers,
		events:    opts.Events,
		flipper:   flipper,
		now:       now,
		params:    opts.Params,
	}
}

// Params returns the deployment parameters.
func (s *Service) Params() Params {
	return s.params
}

// WhitelistToken admits a wager token with its minimum deposit.
func (s *Service) WhitelistToken(ctx context.Context, token string, minDeposit uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.repo.WhitelistToken(ctx, token, minDeposit)
}

// RegisterAvailability places an account in the matchmaking queue. The
// deposit is already held by the ledger when this is called. A referrer
// named here is recorded at match time, first write wins.
func (s *Service) RegisterAvailability(ctx context.Context, account, token string, deposit uint64, opponent, referrer string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	now := s.now()
	s.sweep(ctx, now)

	min, err := s.repo.MinDeposit(ctx, token)
	if err != nil {
		if repositories.IsNotFound(err) {
			return &ValidationError{Reason: fmt.Sprintf("token %s is not whitelisted", token)}
		}
		return fmt.Errorf("failed to check token: %v", err)
	}
	if deposit < min {
		return &ValidationError{Reason: fmt.Sprintf("deposit %d is below the minimum %d for token %s", deposit, min, token)}
	}

	if _, err := s.repo.GetAvailability(ctx, account); err == nil {
		return &StateError{Reason: fmt.Sprintf("account %s is already registered", account)}
	} else if !repositories.IsNotFound(err) {
		return fmt.Errorf("failed to check availability: %v", err)
	}

	a := &models.Availability{
		Account:   account,
		Token:     token,
		Deposit:   deposit,
		Opponent:  opponent,
		Referrer:  referrer,
		CreatedAt: now,
	}
	if err := s.repo.PutAvailability(ctx, a); err != nil {
		return fmt.Errorf("failed to store availability: %v", err)
	}

	s.publish(events.EventTypePlayerAvailable, a)
	return nil
}

// CancelAvailability removes an account from the queue and refunds its
// deposit.
func (s *Service) CancelAvailability(ctx context.Context, account string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	now := s.now()
	s.sweep(ctx, now)

	a, err := s.repo.GetAvailability(ctx, account)
	if err != nil {
		if repositories.IsNotFound(err) {
			return &StateError{Reason: fmt.Sprintf("account %s is not registered", account)}
		}
		return fmt.Errorf("failed to load availability: %v", err)
	}

	if err := s.repo.DeleteAvailability(ctx, account); err != nil {
		return fmt.Errorf("failed to delete availability: %v", err)
	}

	s.emitTransfer(ctx, transfer.NewRequest(a.Token, a.Account, a.Deposit, transfer.PurposeRefund))
	s.publish(events.EventTypeAvailabilityRemoved, a)
	return nil
}

// StartGame matches the initiator with a registered opponent and creates
// the session. The first mover is decided by a coin flip.
func (s *Service) StartGame(ctx context.Context, initiator, opponent string) (uint64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	now := s.now()
	s.sweep(ctx, now)

	if initiator == opponent {
		return 0, &ValidationError{Reason: "cannot start a game against yourself"}
	}

	opponentAvail, err := s.repo.GetAvailability(ctx, opponent)
	if err != nil {
		if repositories.IsNotFound(err) {
			return 0, &StateError{Reason: fmt.Sprintf("account %s is not available", opponent)}
		}
		return 0, fmt.Errorf("failed to load availability: %v", err)
	}
	initiatorAvail, err := s.repo.GetAvailability(ctx, initiator)
	if err != nil {
		if repositories.IsNotFound(err) {
			return 0, &StateError{Reason: fmt.Sprintf("account %s is not available", initiator)}
		}
		return 0, fmt.Errorf("failed to load availability: %v", err)
	}

	if opponentAvail.Opponent != "" && opponentAvail.Opponent != initiator {
		return 0, &AuthorizationError{Reason: fmt.Sprintf("account %s is waiting for a different opponent", opponent)}
	}
	if initiatorAvail.Token != opponentAvail.Token {
		return 0, &ValidationError{Reason: "wager tokens do not match"}
	}
	if initiatorAvail.Deposit != opponentAvail.Deposit {
		return 0, &ValidationError{Reason: "deposits do not match"}
	}
	if initiatorAvail.Deposit > math.MaxUint64/2 {
		return 0, &ArithmeticError{Reason: fmt.Sprintf("deposit %d overflows when doubled", initiatorAvail.Deposit)}
	}

	first, second := initiator, opponent
	heads, err := s.flipper.Flip()
	if err != nil {
		return 0, fmt.Errorf("failed to flip coin: %v", err)
	}
	if !heads {
		first, second = opponent, initiator
	}

	id, err := s.repo.NextGameID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate game id: %v", err)
	}
	g, err := game.New(id, first, second, initiatorAvail.Token, initiatorAvail.Deposit, s.params.BoardSize, s.params.WinLength, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create game: %v", err)
	}

	if err := s.repo.DeleteAvailability(ctx, initiator); err != nil {
		return 0, fmt.Errorf("failed to delete availability: %v", err)
	}
	if err := s.repo.DeleteAvailability(ctx, opponent); err != nil {
		return 0, fmt.Errorf("failed to delete availability: %v", err)
	}
	if err := s.repo.PutGame(ctx, g); err != nil {
		return 0, fmt.Errorf("failed to store game: %v", err)
	}

	for _, a := range []*models.Availability{initiatorAvail, opponentAvail} {
		stats, err := s.getOrCreateStats(ctx, a.Account)
		if err != nil {
			return 0, err
		}
		stats.GamesPlayed++
		if a.Referrer != "" {
			stats.SetReferrer(a.Referrer)
		}
		if err := s.repo.PutStats(ctx, stats); err != nil {
			return 0, fmt.Errorf("failed to store stats: %v", err)
		}
	}

	s.publish(events.EventTypeGameStarted, g)
	return id, nil
}

// HandleTransferFailure credits a failed payout back to the intended
// recipient as a claimable balance so the amount is never dropped. The
// transfer worker invokes this once per failed request.
func (s *Service) HandleTransferFailure(ctx context.Context, req transfer.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	log.Warn("Reconciling failed transfer %s: %d %s to %s", req.ID, req.Amount, req.Token, req.Recipient)
	stats, err := s.getOrCreateStats(ctx, req.Recipient)
	if err != nil {
		log.Error("Failed to reconcile transfer %s: %v", req.ID, err)
		return
	}
	stats.AddClaimable(req.Token, req.Amount)
	if err := s.repo.PutStats(ctx, stats); err != nil {
		log.Error("Failed to reconcile transfer %s: %v", req.ID, err)
	}
}

func (s *Service) getOrCreateStats(ctx context.Context, account string) (*models.Stats, error) {
	stats, err := s.repo.GetStats(ctx, account)
	if err == nil {
		return stats, nil
	}
	if !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load stats: %v", err)
	}
	return models.NewStats(account), nil
}

func (s *Service) emitTransfer(ctx context.Context, req transfer.Request) {
	if s.transfers == nil {
		return
	}
	select {
	case s.transfers <- req:
	default:
		log.Error("Transfer channel full, reconciling %s inline", req.ID)
		stats, err := s.getOrCreateStats(ctx, req.Recipient)
		if err != nil {
			log.Error("Failed to reconcile transfer %s: %v", req.ID, err)
			return
		}
		stats.AddClaimable(req.Token, req.Amount)
		if err := s.repo.PutStats(ctx, stats); err != nil {
			log.Error("Failed to reconcile transfer %s: %v", req.ID, err)
		}
	}
}

func (s *Service) publish(eventType events.EventType, data interface{}) {
	if s.events == nil {
		return
	}
	s.events.Enqueue(events.Event{Type: eventType, Data: data})
}
