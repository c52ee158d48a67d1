package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rcliao/msg-memory/internal/config"
	"github.com/rcliao/msg-memory/internal/logging"
	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/provider"
	"github.com/rcliao/msg-memory/internal/store"
)

// Batch sizes. Large runs use bigger batches.
const (
	smallBatchSize     = 25
	largeBatchSize     = 50
	largeRunThreshold  = 500
	defaultMaxFailures = 8
)

// BatchSize returns the batch size used for a run capped at limit.
func BatchSize(limit int) int {
	if limit > largeRunThreshold {
		return largeBatchSize
	}
	return smallBatchSize
}

// State is a phase of a reprocessing run.
type State string

const (
	StateGathering State = "gathering"
	StateBatching  State = "batching"
	StateDone      State = "done"
)

// Progress is reported as a run advances.
type Progress struct {
	State   State
	Batch   int // 1-based
	Batches int
	Item    int // 1-based within the run
	Total   int
	Outcome Outcome
}

// Result summarizes a reprocessing run. Aborted batches are reported
// through the counts, not as an error.
type Result struct {
	ConversationsProcessed int           `json:"conversations_processed"`
	MessagesProcessed      int           `json:"messages_processed"`
	MemoriesExtracted      int           `json:"memories_extracted"`
	BatchesAborted         int           `json:"batches_aborted"`
	Elapsed                time.Duration `json:"-"`
	ElapsedMs              int64         `json:"elapsed_ms"`
}

// messageProcessor is the part of Manager the reprocessor drives.
type messageProcessor interface {
	ProcessMessage(ctx context.Context, msg model.Message, conv model.Conversation) (Outcome, *model.MemoryItem, error)
	Eligible(text string) bool
}

// Reprocessor walks stored conversation history through the extraction
// pipeline in batches.
type Reprocessor struct {
	source      store.MessageSource
	processor   messageProcessor
	batchPause  time.Duration
	maxFailures int
	logger      *zap.Logger

	// OnProgress, when set, is called on every state change and item.
	OnProgress func(Progress)

	wait  func(ctx context.Context) error
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewReprocessor creates a Reprocessor. Calls are spaced by cfg.ItemDelay
// and batches separated by cfg.BatchPause.
func NewReprocessor(src store.MessageSource, m *Manager, cfg config.ReprocessConfig, logger *zap.Logger) *Reprocessor {
	return newReprocessor(src, m, cfg, logger)
}

func newReprocessor(src store.MessageSource, p messageProcessor, cfg config.ReprocessConfig, logger *zap.Logger) *Reprocessor {
	maxFailures := cfg.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	spacing := rate.NewLimiter(rate.Inf, 1)
	if cfg.ItemDelay > 0 {
		spacing = rate.NewLimiter(rate.Every(cfg.ItemDelay), 1)
	}
	return &Reprocessor{
		source:      src,
		processor:   p,
		batchPause:  cfg.BatchPause,
		maxFailures: maxFailures,
		logger:      logging.OrNop(logger),
		wait:        spacing.Wait,
		sleep:       sleepCtx,
		now:         time.Now,
	}
}

type candidate struct {
	msg  model.Message
	conv model.Conversation
}

// ReprocessAll extracts memories from the limit most recent eligible
// messages across all conversations. Cancellation stops the run between
// items; the partial result is returned with the context error. A
// provider configuration error also stops the run.
func (r *Reprocessor) ReprocessAll(ctx context.Context, limit int) (Result, error) {
	start := r.now()
	var res Result
	finish := func(err error) (Result, error) {
		res.Elapsed = r.now().Sub(start)
		res.ElapsedMs = res.Elapsed.Milliseconds()
		r.report(Progress{State: StateDone, Total: res.MessagesProcessed})
		return res, err
	}

	r.report(Progress{State: StateGathering})
	candidates, err := r.gather(ctx, limit)
	if err != nil {
		return finish(err)
	}

	size := BatchSize(limit)
	batches := chunk(candidates, size)
	r.logger.Info("reprocessing messages",
		zap.Int("messages", len(candidates)),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", size),
	)

	seen := map[string]bool{}
	item := 0
	for bi, batch := range batches {
		failures := 0
		for _, c := range batch {
			if err := r.wait(ctx); err != nil {
				return finish(err)
			}

			item++
			seen[c.conv.Key()] = true
			outcome, _, err := r.processor.ProcessMessage(ctx, c.msg, c.conv)
			res.MessagesProcessed++
			switch outcome {
			case Stored:
				res.MemoriesExtracted++
				failures = 0
			default:
				failures++
			}
			res.ConversationsProcessed = len(seen)
			r.report(Progress{State: StateBatching, Batch: bi + 1, Batches: len(batches), Item: item, Total: len(candidates), Outcome: outcome})

			if err != nil {
				if provider.IsConfigError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return finish(err)
				}
				r.logger.Debug("message failed", zap.Int64("message_id", c.msg.ID), zap.Error(err))
			}
			if err := ctx.Err(); err != nil {
				return finish(err)
			}
			if failures >= r.maxFailures {
				res.BatchesAborted++
				r.logger.Warn("too many consecutive failures, moving to next batch",
					zap.Int("batch", bi+1), zap.Int("failures", failures))
				break
			}
		}

		if bi < len(batches)-1 && r.batchPause > 0 {
			if err := r.sleep(ctx, r.batchPause); err != nil {
				return finish(err)
			}
		}
	}
	return finish(nil)
}

// gather collects eligible messages from every conversation, orders them
// oldest first and keeps the last limit.
func (r *Reprocessor) gather(ctx context.Context, limit int) ([]candidate, error) {
	convs, err := r.source.Conversations(ctx)
	if err != nil {
		return nil, err
	}
	var all []candidate
	for _, conv := range convs {
		msgs, err := r.source.Messages(ctx, conv.Key())
		if err != nil {
			r.logger.Warn("failed to load conversation", zap.String("conversation", conv.Key()), zap.Error(err))
			continue
		}
		for _, m := range msgs {
			if r.processor.Eligible(m.Text) {
				all = append(all, candidate{msg: m, conv: conv})
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].msg.Date.Before(all[j].msg.Date) })
	if limit < 0 {
		limit = 0
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *Reprocessor) report(p Progress) {
	if r.OnProgress != nil {
		r.OnProgress(p)
	}
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
