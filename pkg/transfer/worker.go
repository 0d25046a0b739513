package transfer

import (
	"context"

	"github.com/gridstake/gridstake/pkg/log"
)

// Worker drains pending transfer requests and submits them to the ledger.
// Terminal game state is committed before requests are enqueued, so a
// crash here loses at most the payout submission, never the outcome.
// Failed transfers are handed to the OnFailure callback, which credits
// the amount back to the recipient as a claimable balance.
type Worker struct {
	client    Client
	requests  <-chan Request
	onFailure func(ctx context.Context, req Request)
	processed map[string]struct{}
}

type NewWorkerOptions struct {
	Client    Client
	Requests  <-chan Request
	OnFailure func(ctx context.Context, req Request)
}

func NewWorker(opts NewWorkerOptions) *Worker {
	return &Worker{
		client:    opts.Client,
		requests:  opts.Requests,
		onFailure: opts.OnFailure,
		processed: make(map[string]struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.requests:
			w.handle(ctx, req)
		}
	}
}

func (w *Worker) handle(ctx context.Context, req Request) {
	if _, ok := w.processed[req.ID]; ok {
		log.Debug("Skipping duplicate transfer request %s", req.ID)
		return
	}

	ack, err := w.client.Submit(ctx, req)
	if err != nil {
		log.Error("Failed to submit transfer %s: %v", req.ID, err)
		w.fail(ctx, req)
		return
	}
	w.processed[req.ID] = struct{}{}

	// Acks can name an earlier request; only the matching one settles now.
	if ack.RequestID != "" && ack.RequestID != req.ID {
		log.Warn("Ack for transfer %s arrived out of order (got %s)", req.ID, ack.RequestID)
	}

	if ack.Status != AckSuccess {
		log.Warn("Transfer %s rejected by ledger: %s", req.ID, ack.Reason)
		w.fail(ctx, req)
	}
}

func (w *Worker) fail(ctx context.Context, req Request) {
	if w.onFailure == nil {
		log.Error("Dropping failed transfer %s: no failure handler", req.ID)
		return
	}
	w.onFailure(ctx, req)
}
