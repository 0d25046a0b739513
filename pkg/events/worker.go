package events

import (
	"context"
	"time"

	"github.com/gridstake/gridstake/pkg/log"
	"github.com/gridstake/gridstake/pkg/queue"
)

const (
	// DefaultFlushInterval is how often pending events are drained.
	DefaultFlushInterval = 100 * time.Millisecond
)

// Worker drains the event queue and broadcasts entries to the hub.
type Worker struct {
	queue         queue.Queue
	hub           *Hub
	flushInterval time.Duration
}

type NewWorkerOptions struct {
	Queue         queue.Queue
	Hub           *Hub
	FlushInterval time.Duration
}

func NewWorker(opts NewWorkerOptions) *Worker {
	flushInterval := opts.FlushInterval
	if flushInterval == 0 {
		flushInterval = DefaultFlushInterval
	}
	return &Worker{
		queue:         opts.Queue,
		hub:           opts.Hub,
		flushInterval: flushInterval,
	}
}

func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Worker) flush() {
	for _, item := range w.queue.ReadAllMessages() {
		event, ok := item.(Event)
		if !ok {
			log.Error("Unexpected item in event queue: %T", item)
			continue
		}
		if err := w.hub.Broadcast(event); err != nil {
			log.Error("Failed to broadcast event: %v", err)
		}
	}
}
