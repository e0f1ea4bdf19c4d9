package syndication

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/syndicate/internal/keys"
	"github.com/roach88/syndicate/internal/model"
)

// Store is the persistence the syndication core needs.
// *store.Store implements it.
type Store interface {
	WriteResponseAtomic(ctx context.Context, resp model.Response, task model.Task) (model.Response, bool, error)
	UpsertSourceAtomic(ctx context.Context, src model.Source, build func(model.Source) model.Task) (model.Source, bool, error)
	ReadResponse(ctx context.Context, key string) (model.Response, error)
	ReadSource(ctx context.Context, key string) (model.Source, error)
	MarkPolled(ctx context.Context, key string, t time.Time) error
	SetResponseStatus(ctx context.Context, key, status string) error
	Enqueue(ctx context.Context, task model.Task) (model.Task, error)
}

// CreateRequest identifies the source CreateNew creates or refreshes.
type CreateRequest struct {
	// Kind is the type name used in messages, e.g. "FakeSource".
	Kind string

	// ShortName is the backend short name, e.g. "fake".
	ShortName string

	// Name is the user-facing label.
	Name string

	// Key is optional. When empty the publisher's key generator supplies one.
	Key string
}

// Publisher is the idempotent get-or-create-with-side-effect core.
type Publisher struct {
	store        Store
	keys         keys.Generator
	propagateURL string
	pollURL      string
	logger       *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithKeyGenerator sets the strategy for new source keys.
// Default: keys.UUIDv7Generator.
func WithKeyGenerator(g keys.Generator) PublisherOption {
	return func(p *Publisher) {
		if g != nil {
			p.keys = g
		}
	}
}

// WithQueueURLs overrides the propagate and poll target URLs.
// Empty values keep the defaults.
func WithQueueURLs(propagateURL, pollURL string) PublisherOption {
	return func(p *Publisher) {
		if propagateURL != "" {
			p.propagateURL = propagateURL
		}
		if pollURL != "" {
			p.pollURL = pollURL
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPublisher creates a Publisher on top of s.
func NewPublisher(s Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:        s,
		keys:         keys.UUIDv7Generator{},
		propagateURL: model.DefaultPropagateURL,
		pollURL:      model.DefaultPollURL,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PollURL returns the target URL used for poll tasks.
func (p *Publisher) PollURL() string { return p.pollURL }

// GetOrSave returns the stored response with resp's key, saving resp first
// if no such response exists yet.
//
// Only the call that saves the response enqueues a propagate task.
// Type is derived from ResponseJSON. The returned response is always
// flagged as saved.
func (p *Publisher) GetOrSave(ctx context.Context, resp model.Response) (model.Response, error) {
	if strings.TrimSpace(resp.Key) == "" {
		return model.Response{}, fmt.Errorf("get or save response: %w: empty key", ErrInvalidEntity)
	}

	payload, err := model.ParsePayload(resp.ResponseJSON)
	if err != nil {
		// A stored response wins over whatever payload came with this call.
		if existing, rerr := p.store.ReadResponse(ctx, resp.Key); rerr == nil {
			return existing, nil
		}
		return model.Response{}, fmt.Errorf("get or save response %q: %w: %v", resp.Key, ErrInvalidEntity, err)
	}
	resp.Type = payload.ResponseType()

	task := model.NewPropagateTask(p.propagateURL, resp.Key)
	saved, inserted, err := p.store.WriteResponseAtomic(ctx, resp, task)
	if err != nil {
		return model.Response{}, fmt.Errorf("get or save response %q: %w", resp.Key, err)
	}

	if inserted {
		p.logger.Info("response saved",
			"response_key", saved.Key,
			"source_key", saved.SourceKey,
			"type", saved.Type,
			"payload", payload.Kind.String(),
		)
	} else {
		p.logger.Debug("response already saved, skipping propagate",
			"response_key", saved.Key,
		)
	}
	return saved, nil
}

// CreateNew creates the source described by req, or refreshes it if a
// source with the same key exists, and enqueues a poll task either way.
//
// Exactly one message is added to sink per call. sink may be nil.
func (p *Publisher) CreateNew(ctx context.Context, req CreateRequest, sink MessageSink) (model.Source, error) {
	if strings.TrimSpace(req.Kind) == "" {
		return model.Source{}, fmt.Errorf("create source: %w: empty kind", ErrInvalidEntity)
	}

	key := req.Key
	if key == "" {
		key = p.keys.Generate()
	}

	src := model.Source{
		Key:        key,
		Kind:       req.Kind,
		ShortName:  req.ShortName,
		Name:       req.Name,
		LastPolled: model.Epoch,
	}

	build := func(s model.Source) model.Task {
		return model.NewPollTask(p.pollURL, s.Key, s.LastPolled)
	}

	saved, created, err := p.store.UpsertSourceAtomic(ctx, src, build)
	if err != nil {
		return model.Source{}, fmt.Errorf("create source %q: %w", key, err)
	}

	var msg string
	if created {
		msg = fmt.Sprintf("Added %s: %s. Refresh to see what we've found!", saved.Kind, saved.Name)
	} else {
		msg = fmt.Sprintf("Updated %s: %s. Refresh to see what's new!", saved.Kind, saved.Name)
	}
	if sink != nil {
		sink.AddMessage(msg)
	}

	p.logger.Info("source stored",
		"source_key", saved.Key,
		"kind", saved.Kind,
		"created", created,
	)
	return saved, nil
}
