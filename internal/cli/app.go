package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/syndicate/internal/activity"
	"github.com/roach88/syndicate/internal/config"
	"github.com/roach88/syndicate/internal/credential"
	"github.com/roach88/syndicate/internal/model"
	"github.com/roach88/syndicate/internal/store"
	"github.com/roach88/syndicate/internal/syndication"
	"github.com/roach88/syndicate/internal/worker"
)

// app is the wired set of components a command works with.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	now      func() time.Time
	store    *store.Store
	pub      *syndication.Publisher
	backend  activity.Source
	backends *activity.Registry
}

// openApp loads config, opens the store and builds the publisher.
// Failures are reported through f and returned as ExitErrors.
func openApp(opts *RootOptions, f *OutputFormatter, stderr io.Writer) (*app, error) {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	cfg, err := loadConfig(opts, f)
	if err != nil {
		return nil, err
	}

	now := opts.now
	if now == nil {
		now = time.Now
	}

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database, store.WithClock(now))
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}

	pub := syndication.NewPublisher(st,
		syndication.WithKeyGenerator(opts.keys),
		syndication.WithQueueURLs(cfg.Queue.PropagateURL, cfg.Queue.PollURL),
		syndication.WithLogger(logger),
	)

	backend := opts.backend
	if backend == nil {
		backend = newBackend(opts, cfg, logger)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		now:      now,
		store:    st,
		pub:      pub,
		backend:  backend,
		backends: newRegistry(backend, cfg.Activity.ShortNames),
	}, nil
}

// loadConfig reads the config file named by --config (or the default path)
// and applies the --db override.
func loadConfig(opts *RootOptions, f *OutputFormatter) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, nil
}

// newBackend returns the HTTP client when a base URL is configured, and an
// empty in-memory backend otherwise.
func newBackend(opts *RootOptions, cfg *config.Config, logger *slog.Logger) activity.Source {
	if cfg.Activity.BaseURL == "" {
		logger.Debug("no activity base_url configured, using empty backend")
		return activity.NewFake()
	}

	token, err := lookupToken(opts, cfg.Activity.TokenKey)
	if err != nil {
		logger.Warn("activity token unavailable, sending unauthenticated requests", "error", err)
	}
	return activity.NewClient(cfg.Activity.BaseURL, token, activity.WithTimeout(cfg.Activity.Timeout))
}

// newRegistry binds backend to each of shortNames. With no short names the
// backend serves every source.
func newRegistry(backend activity.Source, shortNames []string) *activity.Registry {
	if len(shortNames) == 0 {
		return activity.NewRegistry(backend)
	}
	reg := activity.NewRegistry(nil)
	for _, name := range shortNames {
		reg.Register(name, backend)
	}
	return reg
}

func lookupToken(opts *RootOptions, key string) (string, error) {
	creds, err := openCredentials(opts)
	if err != nil {
		return "", err
	}
	return creds.Token(key)
}

func openCredentials(opts *RootOptions) (*credential.Store, error) {
	if opts.credentials != nil {
		return opts.credentials, nil
	}
	return credential.Open()
}

// newWorker wires the poll and propagate handlers into a worker.
func (a *app) newWorker() *worker.Worker {
	w := worker.New(a.store, worker.Options{
		BatchSize:   a.cfg.Worker.BatchSize,
		LockAhead:   a.cfg.Worker.LockAhead,
		PollEvery:   a.cfg.Worker.PollEvery,
		MaxAttempts: a.cfg.Worker.MaxAttempts,
		BackoffBase: a.cfg.Worker.BackoffBase,
		BackoffMax:  a.cfg.Worker.BackoffMax,
		Permanent: func(err error) bool {
			return syndication.IsNotFound(err) || syndication.IsInvalid(err) ||
				errors.Is(err, activity.ErrNoBackend)
		},
		Logger: a.logger,
	})

	poll := syndication.NewPollHandler(a.store, a.pub, a.backends, syndication.PollOptions{
		Interval: a.cfg.Poll.Interval,
		Now:      a.now,
		Logger:   a.logger,
	})
	propagate := syndication.NewPropagateHandler(a.store, syndication.LogDeliverer{Logger: a.logger}, a.logger)

	w.Handle(model.QueuePoll, a.cfg.Queue.PollURL, poll)
	w.Handle(model.QueuePropagate, a.cfg.Queue.PropagateURL, propagate)
	return w
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// failFor maps a domain error to an error code and exit code and reports it.
func failFor(f *OutputFormatter, message string, err error) error {
	switch {
	case syndication.IsInvalid(err):
		return f.Fail(ExitCommandError, ErrCodeInvalid, message, err)
	case syndication.IsNotFound(err):
		return f.Fail(ExitFailure, ErrCodeNotFound, message, err)
	case errors.Is(err, os.ErrNotExist):
		return f.Fail(ExitCommandError, ErrCodeNotFound, message, err)
	default:
		return f.Fail(ExitFailure, ErrCodeGeneric, message, err)
	}
}
