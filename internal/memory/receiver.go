package memory

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/msg-memory/internal/logging"
	"github.com/rcliao/msg-memory/internal/model"
)

// Event is an inbound message as delivered by the message source.
type Event struct {
	Message      model.Message
	Conversation model.Conversation
}

// CodeHandler inspects an incoming message for a one-time code.
type CodeHandler interface {
	HandleMessage(ctx context.Context, msg model.Message) (*model.TwoFACode, error)
}

// ReceiverStats counts what a Receiver did with its events.
type ReceiverStats struct {
	Received int64 `json:"received"`
	Ignored  int64 `json:"ignored"`
	Stored   int64 `json:"memories_stored"`
	Failed   int64 `json:"memories_failed"`
	Codes    int64 `json:"codes_detected"`
}

// Receiver feeds live messages to memory extraction and 2FA detection.
// Each side has one worker goroutine, so each store sees a single writer.
type Receiver struct {
	manager *Manager
	codes   CodeHandler
	logger  *zap.Logger

	received, ignored, stored, failed, detected atomic.Int64
}

// NewReceiver creates a Receiver. A nil manager disables memory extraction
// and a nil codes handler disables 2FA detection.
func NewReceiver(m *Manager, codes CodeHandler, logger *zap.Logger) *Receiver {
	return &Receiver{manager: m, codes: codes, logger: logging.OrNop(logger)}
}

// Run consumes events until the channel is closed or ctx is done. Work
// already queued is finished before Run returns on a closed channel.
// Pipeline failures are logged, never returned.
func (r *Receiver) Run(ctx context.Context, events <-chan Event) error {
	g, gctx := errgroup.WithContext(ctx)
	memCh := make(chan Event, 16)
	codeCh := make(chan model.Message, 16)

	g.Go(func() error {
		defer close(memCh)
		defer close(codeCh)
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if err := r.dispatch(gctx, ev, memCh, codeCh); err != nil {
					return err
				}
			}
		}
	})

	g.Go(func() error {
		for ev := range memCh {
			r.processMemory(gctx, ev)
		}
		return nil
	})

	g.Go(func() error {
		for m := range codeCh {
			r.processCode(gctx, m)
		}
		return nil
	})

	return g.Wait()
}

func (r *Receiver) dispatch(ctx context.Context, ev Event, memCh chan<- Event, codeCh chan<- model.Message) error {
	r.received.Add(1)
	if ev.Message.Outgoing {
		r.ignored.Add(1)
		return nil
	}

	sent := false
	if r.manager != nil && r.manager.Eligible(ev.Message.Text) {
		select {
		case memCh <- ev:
			sent = true
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.codes != nil {
		select {
		case codeCh <- ev.Message:
			sent = true
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if !sent {
		r.ignored.Add(1)
	}
	return nil
}

func (r *Receiver) processMemory(ctx context.Context, ev Event) {
	outcome, _, err := r.manager.ProcessMessage(ctx, ev.Message, ev.Conversation)
	switch outcome {
	case Stored:
		r.stored.Add(1)
	case Failed:
		r.failed.Add(1)
		r.logger.Warn("memory extraction failed",
			zap.String("conversation", ev.Conversation.Key()),
			zap.Int64("message_id", ev.Message.ID),
			zap.Error(err),
		)
	}
}

func (r *Receiver) processCode(ctx context.Context, m model.Message) {
	code, err := r.codes.HandleMessage(ctx, m)
	if err != nil {
		r.logger.Warn("2fa detection failed", zap.Int64("message_id", m.ID), zap.Error(err))
		return
	}
	if code != nil {
		r.detected.Add(1)
	}
}

// Stats returns the counters so far.
func (r *Receiver) Stats() ReceiverStats {
	return ReceiverStats{
		Received: r.received.Load(),
		Ignored:  r.ignored.Load(),
		Stored:   r.stored.Load(),
		Failed:   r.failed.Load(),
		Codes:    r.detected.Load(),
	}
}
