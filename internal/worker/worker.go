// Package worker drains the task queues kept in the store and dispatches
// each task to the handler registered for its target URL.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/syndicate/internal/model"
)

// Handler executes one task. A returned error fails the attempt.
type Handler interface {
	Handle(ctx context.Context, task model.Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, task model.Task) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, task model.Task) error { return f(ctx, task) }

// Queue is the lease-based task storage the worker drains.
// *store.Store implements it.
type Queue interface {
	FetchReady(ctx context.Context, queue string, limit int, lockAhead time.Duration) ([]model.Task, error)
	CompleteTask(ctx context.Context, id int64, leaseUntil time.Time) error
	FailTask(ctx context.Context, id int64, leaseUntil time.Time, backoff time.Duration) error
	DeadLetterTask(ctx context.Context, t model.Task, leaseUntil time.Time, cause error) error
}

type Options struct {
	BatchSize int
	LockAhead time.Duration
	PollEvery time.Duration

	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// Permanent reports errors that must not be retried. Such tasks are
	// dead-lettered on the first failure. Nil retries everything.
	Permanent func(error) bool

	Logger *slog.Logger

	// Seed for backoff jitter. Zero seeds from the wall clock.
	Seed int64
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.BatchSize <= 0 {
		out.BatchSize = 50
	}
	if out.LockAhead <= 0 {
		out.LockAhead = 30 * time.Second
	}
	if out.PollEvery <= 0 {
		out.PollEvery = 2 * time.Second
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 10
	}
	if out.BackoffBase <= 0 {
		out.BackoffBase = 5 * time.Second
	}
	if out.BackoffMax <= 0 {
		out.BackoffMax = 10 * time.Minute
	}
	if out.Permanent == nil {
		out.Permanent = func(error) bool { return false }
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.Seed == 0 {
		out.Seed = time.Now().UnixNano()
	}
	return out
}

// ErrNoHandler is the dead-letter cause for tasks whose URL has no handler.
var ErrNoHandler = errors.New("no handler registered")

// Worker drains registered queues.
type Worker struct {
	queue  Queue
	cfg    Options
	routes map[string]map[string]Handler // queue -> url -> handler

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a worker on q. Register handlers before calling Run or DrainOnce.
func New(q Queue, opts Options) *Worker {
	cfg := opts.withDefaults()
	return &Worker{
		queue:  q,
		cfg:    cfg,
		routes: make(map[string]map[string]Handler),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Handle routes tasks of queue targeting url to h.
func (w *Worker) Handle(queue, url string, h Handler) {
	if w.routes[queue] == nil {
		w.routes[queue] = make(map[string]Handler)
	}
	w.routes[queue][url] = h
}

// Queues returns the registered queue names in sorted order.
func (w *Worker) Queues() []string {
	out := make([]string, 0, len(w.routes))
	for q := range w.routes {
		out = append(out, q)
	}
	sort.Strings(out)
	return out
}

// DrainOnce fetches and processes a single batch of ready tasks from every
// registered queue, then returns the number of tasks processed.
func (w *Worker) DrainOnce(ctx context.Context) (int, error) {
	if w.queue == nil {
		return 0, fmt.Errorf("queue is required")
	}

	var (
		mu    sync.Mutex
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, q := range w.Queues() {
		q := q
		g.Go(func() error {
			n, err := w.drainQueue(gctx, q)
			mu.Lock()
			total += n
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()
	return total, err
}

// Run drains every registered queue until ctx is cancelled: once right
// away, then every PollEvery. Returns ctx.Err() on cancellation or the first
// store error.
func (w *Worker) Run(ctx context.Context) error {
	if w.queue == nil {
		return fmt.Errorf("queue is required")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, q := range w.Queues() {
		q := q
		g.Go(func() error {
			if _, err := w.drainQueue(gctx, q); err != nil {
				return err
			}
			ticker := time.NewTicker(w.cfg.PollEvery)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if _, err := w.drainQueue(gctx, q); err != nil {
						return err
					}
				}
			}
		})
	}
	w.cfg.Logger.Info("worker started", "queues", w.Queues())
	err := g.Wait()
	w.cfg.Logger.Info("worker stopped", "error", err)
	return err
}

func (w *Worker) drainQueue(ctx context.Context, queue string) (int, error) {
	batch, err := w.queue.FetchReady(ctx, queue, w.cfg.BatchSize, w.cfg.LockAhead)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", queue, err)
	}
	for _, task := range batch {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		h, ok := w.routes[queue][task.URL]
		if !ok {
			w.handleResult(ctx, task, fmt.Errorf("%w for %s", ErrNoHandler, task.URL))
			continue
		}
		w.handleResult(ctx, task, h.Handle(ctx, task))
	}
	return len(batch), nil
}

func (w *Worker) handleResult(ctx context.Context, task model.Task, err error) {
	log := w.cfg.Logger.With("queue", task.Queue, "task_id", task.ID)

	if err == nil {
		if cerr := w.queue.CompleteTask(ctx, task.ID, task.NextRunAt); cerr != nil {
			log.Error("complete task failed", "error", cerr)
		}
		log.Debug("task complete")
		return
	}

	// This failure counts as the next attempt (Attempts is prior failures).
	task.Attempts++
	log = log.With("attempts", task.Attempts, "error", err)

	if task.Attempts >= w.cfg.MaxAttempts || errors.Is(err, ErrNoHandler) || w.cfg.Permanent(err) {
		log.Warn("task dead-lettered")
		if derr := w.queue.DeadLetterTask(ctx, task, task.NextRunAt, err); derr != nil {
			log.Error("dead letter task failed", "dead_letter_error", derr)
		}
		return
	}

	backoff := w.addJitter(expBackoff(w.cfg.BackoffBase, task.Attempts, w.cfg.BackoffMax))
	log.Info("task failed, retrying", "backoff", backoff)
	if ferr := w.queue.FailTask(ctx, task.ID, task.NextRunAt, backoff); ferr != nil {
		log.Error("fail task failed", "fail_error", ferr)
	}
}

func expBackoff(base time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(base) * math.Pow(2, float64(attempt-1))
	if d >= float64(max) {
		return max
	}
	return time.Duration(d)
}

// addJitter adds up to 25%.
func (w *Worker) addJitter(d time.Duration) time.Duration {
	if d < 4 {
		return d
	}
	w.rngMu.Lock()
	defer w.rngMu.Unlock()
	return d + time.Duration(w.rng.Int63n(int64(d/4)))
}
