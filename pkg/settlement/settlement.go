// Package settlement computes how a finished game's combined wager is
// divided between the winner (or both players on a tie), the players'
// referrers and the service. All arithmetic is integer basis-point math;
// every split conserves the wager exactly.
package settlement

import (
	"github.com/gridstake/gridstake/pkg/game"
)

// BasisPoints is the denominator for all fee and ratio arithmetic.
const BasisPoints = 10000

// Kind classifies a payout within a settlement.
type Kind string

const (
	KindWinnings  Kind = "winnings"
	KindTieRefund Kind = "tie_refund"
	KindReferral  Kind = "referral"
)

// Payout is a single amount owed to an account.
type Payout struct {
	Recipient string
	Amount    uint64
	Kind      Kind
}

// Split is the full division of a terminal wager balance.
// sum(Payouts) + FeeRetained always equals the input balance.
type Split struct {
	Payouts     []Payout
	FeeRetained uint64
}

// Total returns the sum of all payouts plus the retained fee.
func (s Split) Total() uint64 {
	total := s.FeeRetained
	for _, p := range s.Payouts {
		total += p.Amount
	}
	return total
}

// PlayerPot returns the portion of the balance paid back to players
// after the service fee is taken.
func PlayerPot(balance uint64, feeBps uint32) uint64 {
	return balance - Fee(balance, feeBps)
}

// Fee returns balance * feeBps / BasisPoints.
func Fee(balance uint64, feeBps uint32) uint64 {
	return mulBps(balance, feeBps)
}

// Compute divides the wager balance for the given outcome.
//
// The fee is taken off the top. On a win the remainder goes to the winner;
// on a tie each player receives half, with an odd unit retained with the
// fee so the split stays exact. The referral pool is referralBps of the fee,
// half attributed to each player's side; a side's half is paid only when
// that player has a referrer, otherwise it stays with the service.
//
// players holds both session accounts; referrers[i] is players[i]'s
// referrer or the empty string. feeBps and referralBps must not exceed
// BasisPoints.
func Compute(outcome game.Outcome, players [2]string, referrers [2]string, wager game.Wager, feeBps, referralBps uint32) Split {
	fee := Fee(wager.Balance, feeBps)
	pot := wager.Balance - fee
	retained := fee

	var payouts []Payout
	switch outcome.Kind {
	case game.OutcomeTie:
		half := pot / 2
		if half > 0 {
			payouts = append(payouts,
				Payout{Recipient: players[0], Amount: half, Kind: KindTieRefund},
				Payout{Recipient: players[1], Amount: half, Kind: KindTieRefund},
			)
		}
		retained += pot - 2*half
	default:
		if pot > 0 {
			payouts = append(payouts, Payout{Recipient: outcome.Winner, Amount: pot, Kind: KindWinnings})
		}
	}

	pool := mulBps(fee, referralBps)
	shares := [2]uint64{pool / 2, pool - pool/2}
	for i, referrer := range referrers {
		if referrer == "" || shares[i] == 0 {
			continue
		}
		payouts = append(payouts, Payout{Recipient: referrer, Amount: shares[i], Kind: KindReferral})
		retained -= shares[i]
	}

	return Split{Payouts: payouts, FeeRetained: retained}
}

// mulBps computes amount * bps / BasisPoints exactly without overflowing
// uint64, relying on bps <= BasisPoints.
func mulBps(amount uint64, bps uint32) uint64 {
	b := uint64(bps)
	return (amount/BasisPoints)*b + (amount%BasisPoints)*b/BasisPoints
}
