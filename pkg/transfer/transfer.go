package transfer

import (
	"context"

	"github.com/google/uuid"
)

// Purpose labels why an amount is being moved back to an account.
type Purpose string

const (
	PurposeRefund    Purpose = "refund"
	PurposeWinnings  Purpose = "winnings"
	PurposeTieRefund Purpose = "tie_refund"
	PurposeReferral  Purpose = "referral"
)

// Request is a single outbound transfer. The ID makes retries and
// duplicate submissions safe to detect on both sides.
type Request struct {
	ID        string  `json:"id"`
	Token     string  `json:"token"`
	Recipient string  `json:"recipient"`
	Amount    uint64  `json:"amount"`
	Purpose   Purpose `json:"purpose"`
}

// NewRequest creates a transfer request with a fresh id.
func NewRequest(token, recipient string, amount uint64, purpose Purpose) Request {
	return Request{
		ID:        uuid.New().String(),
		Token:     token,
		Recipient: recipient,
		Amount:    amount,
		Purpose:   purpose,
	}
}

// AckStatus is the ledger's verdict on a submitted transfer.
type AckStatus string

const (
	AckSuccess AckStatus = "success"
	AckFailure AckStatus = "failure"
)

// Ack is the ledger's response to a transfer request.
type Ack struct {
	RequestID string    `json:"request_id"`
	Status    AckStatus `json:"status"`
	Reason    string    `json:"reason,omitempty"`
}

// Client submits transfer requests to the hosting ledger.
type Client interface {
	Submit(ctx context.Context, req Request) (*Ack, error)
}
