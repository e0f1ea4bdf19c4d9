package syndication

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/syndicate/internal/activity"
	"github.com/roach88/syndicate/internal/model"
)

// DefaultPollInterval is how long after a poll the next one is scheduled.
const DefaultPollInterval = 15 * time.Minute

// Backends resolves the activity backend for a source short name.
// *activity.Registry implements it.
type Backends interface {
	For(shortName string) (activity.Source, error)
}

// PollOptions configures a PollHandler.
type PollOptions struct {
	// Interval between polls of one source. Default: DefaultPollInterval.
	Interval time.Duration

	// Now is the wall clock. Default: time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// PollHandler runs poll tasks: it saves every reply found on a source's
// activities and schedules the next poll.
type PollHandler struct {
	store    Store
	pub      *Publisher
	backends Backends
	opts     PollOptions
}

// NewPollHandler creates a PollHandler. New responses go through pub, so
// each one gets its propagate task exactly once.
func NewPollHandler(s Store, pub *Publisher, backends Backends, opts PollOptions) *PollHandler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &PollHandler{store: s, pub: pub, backends: backends, opts: opts}
}

// Handle processes one poll task.
func (h *PollHandler) Handle(ctx context.Context, task model.Task) error {
	key := task.Params[model.ParamSourceKey]
	if key == "" {
		return fmt.Errorf("poll: %w: missing %s", ErrInvalidEntity, model.ParamSourceKey)
	}

	src, err := h.store.ReadSource(ctx, key)
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}

	// A newer poll of this source already ran.
	if raw, ok := task.Params[model.ParamLastPolled]; ok {
		lastPolled, err := model.ParsePollTime(raw)
		if err != nil {
			return fmt.Errorf("poll %s: %w: %v", src.DOMID(), ErrInvalidEntity, err)
		}
		if !lastPolled.Equal(src.LastPolled.Truncate(time.Second)) {
			h.opts.Logger.Warn("duplicate poll task, dropping",
				"source_key", src.Key,
				"task_last_polled", raw,
				"source_last_polled", model.FormatPollTime(src.LastPolled),
			)
			return nil
		}
	}

	backend, err := h.backends.For(src.ShortName)
	if err != nil {
		return fmt.Errorf("poll %s: %w", src.DOMID(), err)
	}

	acts, err := backend.GetActivities(ctx, "")
	if err != nil {
		return fmt.Errorf("poll %s: %w", src.DOMID(), err)
	}

	var replies int
	for _, act := range acts {
		actJSON, err := activity.EncodeJSON(act)
		if err != nil {
			return fmt.Errorf("poll %s: %w", src.DOMID(), err)
		}
		for _, reply := range act.Replies() {
			if reply.ID == "" {
				h.opts.Logger.Warn("skipping reply without id",
					"source_key", src.Key,
					"activity_id", act.ID,
				)
				continue
			}
			replyJSON, err := activity.EncodeJSON(reply)
			if err != nil {
				return fmt.Errorf("poll %s: %w", src.DOMID(), err)
			}
			_, err = h.pub.GetOrSave(ctx, model.Response{
				Key:          reply.ID,
				SourceKey:    src.Key,
				ActivityJSON: actJSON,
				ResponseJSON: replyJSON,
			})
			if err != nil {
				return fmt.Errorf("poll %s: %w", src.DOMID(), err)
			}
			replies++
		}
	}

	now := h.opts.Now().UTC()
	if err := h.store.MarkPolled(ctx, src.Key, now); err != nil {
		return fmt.Errorf("poll %s: %w", src.DOMID(), err)
	}

	next := model.NewPollTask(h.pub.PollURL(), src.Key, now)
	next.NextRunAt = now.Add(h.opts.Interval)
	if _, err := h.store.Enqueue(ctx, next); err != nil {
		return fmt.Errorf("poll %s: schedule next: %w", src.DOMID(), err)
	}

	h.opts.Logger.Info("source polled",
		"source_key", src.Key,
		"activities", len(acts),
		"replies", replies,
		"next_poll", next.NextRunAt,
	)
	return nil
}

// Deliverer publishes a saved response downstream.
type Deliverer interface {
	Deliver(ctx context.Context, resp model.Response) error
}

// LogDeliverer is a Deliverer that only records the delivery in the log.
type LogDeliverer struct {
	Logger *slog.Logger
}

// Deliver implements Deliverer.
func (d LogDeliverer) Deliver(_ context.Context, resp model.Response) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("response propagated",
		"response_key", resp.Key,
		"source_key", resp.SourceKey,
		"type", resp.Type,
	)
	return nil
}

// PropagateHandler runs propagate tasks.
type PropagateHandler struct {
	store     Store
	deliverer Deliverer
	logger    *slog.Logger
}

// NewPropagateHandler creates a PropagateHandler. A nil logger uses slog.Default().
func NewPropagateHandler(s Store, d Deliverer, logger *slog.Logger) *PropagateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PropagateHandler{store: s, deliverer: d, logger: logger}
}

// Handle delivers the response named by the task and records the outcome
// in its status. Responses already complete are skipped.
// A delivery failure marks the response as error and is returned so the
// task is retried.
func (h *PropagateHandler) Handle(ctx context.Context, task model.Task) error {
	key := task.Params[model.ParamResponseKey]
	if key == "" {
		return fmt.Errorf("propagate: %w: missing %s", ErrInvalidEntity, model.ParamResponseKey)
	}

	resp, err := h.store.ReadResponse(ctx, key)
	if err != nil {
		return fmt.Errorf("propagate: %w", err)
	}
	if resp.Status == model.StatusComplete {
		h.logger.Debug("response already propagated", "response_key", key)
		return nil
	}

	if err := h.deliverer.Deliver(ctx, resp); err != nil {
		if serr := h.store.SetResponseStatus(ctx, key, model.StatusError); serr != nil {
			h.logger.Error("failed to record propagate error",
				"response_key", key,
				"error", serr,
			)
		}
		return fmt.Errorf("propagate %q: %w", key, err)
	}

	if err := h.store.SetResponseStatus(ctx, key, model.StatusComplete); err != nil {
		return fmt.Errorf("propagate %q: %w", key, err)
	}
	return nil
}
