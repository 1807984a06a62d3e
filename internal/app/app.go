package app

import (
	"context"
	"fmt"
	"os"

	"focustrack/internal/auth"
	"focustrack/internal/cloud"
	"focustrack/internal/config"
	"focustrack/internal/handoff"
	"focustrack/internal/store"
	"focustrack/internal/tracker"
)

// App is the application layer between the CLI and the Coordinator.
// It constructs all dependencies from config, exposes high-level
// operations, and releases resources on Close.
type App struct {
	cfg     *config.Config
	local   tracker.RecordStore
	client  *cloud.Client
	auth    *auth.FileAuthenticator
	slot    *handoff.FileSlot
	coord   *tracker.Coordinator
	logger  tracker.Logger
	logFile *os.File
}

// New creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Focus", "Watch") and
// tags every log line. display receives frames while the coordinator
// runs; pass nil for commands that never render.
// The caller must call Close when done.
func New(cfg *config.Config, operation string, display tracker.Display) (*App, error) {
	slogger, logFile, err := newLogger(cfg.LogDir, operation)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	local, err := store.NewRecordStore(cfg.Store)
	if err != nil {
		// A missing or broken store dir should not stop tracking; fall
		// back to memory and keep the session usable.
		logger.Warn("local store unavailable; totals will not survive this process", "error", err)
		local = store.NewMemoryStore()
	}

	authn := auth.NewFileAuthenticator(cfg.CredentialsPath(), logger)
	if err := authn.Watch(); err != nil {
		logger.Warn("credential watching disabled; sign-in changes need a restart", "error", err)
	}

	slot, err := handoff.NewFileSlot(cfg.HandoffPath())
	if err != nil {
		closeStore(local)
		logFile.Close()
		return nil, fmt.Errorf("creating handoff slot: %w", err)
	}

	client := cloud.NewClient(func() (string, string, bool) {
		creds, ok := authn.Credentials()
		if !ok {
			return "", "", false
		}
		return creds.Server, creds.Token, true
	}, cfg.RequestTimeout(), logger)

	if display == nil {
		display = tracker.NopDisplay{}
	}
	coord := tracker.NewCoordinator(local, client, authn, slot, tracker.RealClock{}, logger, display, tracker.Options{})

	return &App{
		cfg:     cfg,
		local:   local,
		client:  client,
		auth:    authn,
		slot:    slot,
		coord:   coord,
		logger:  logger,
		logFile: logFile,
	}, nil
}

// Watch runs the coordinator until ctx is canceled, feeding the
// display passed to New.
func (a *App) Watch(ctx context.Context) error {
	return a.coord.Run(ctx)
}

// SetState applies one state change on an already running
// coordinator. Watch must be active; one-shot commands use Transition
// instead.
func (a *App) SetState(ctx context.Context, next tracker.State) (tracker.DayRecord, error) {
	return a.coord.SetState(ctx, next)
}

// Transition runs the coordinator just long enough to apply one state
// change and returns the record as persisted.
func (a *App) Transition(ctx context.Context, next tracker.State) (tracker.DayRecord, error) {
	var rec tracker.DayRecord
	err := a.runOnce(ctx, func(rctx context.Context) error {
		var terr error
		rec, terr = a.coord.SetState(rctx, next)
		return terr
	})
	return rec, err
}

// Status runs the coordinator just long enough to load the active day
// and returns the resulting frame.
func (a *App) Status(ctx context.Context) (tracker.DisplayUpdate, error) {
	var u tracker.DisplayUpdate
	err := a.runOnce(ctx, func(context.Context) error {
		u = a.coord.Now()
		return nil
	})
	return u, err
}

// runOnce starts the coordinator, waits for the day to load, applies
// fn, and shuts the coordinator down again.
func (a *App) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- a.coord.Run(rctx) }()

	if err := a.coord.WaitReady(rctx); err != nil {
		cancel()
		<-errc
		return err
	}

	ferr := fn(rctx)
	cancel()
	if rerr := <-errc; rerr != nil && ferr == nil {
		ferr = rerr
	}
	return ferr
}

// Login verifies the token against the server, stages today's local
// totals for migration, and stores the credentials. It returns the
// account id the token belongs to.
//
// Staging happens before the credential write so that by the time any
// running watcher sees the sign-in, the payload is already in place.
func (a *App) Login(ctx context.Context, server, token string) (string, error) {
	probe := cloud.NewClient(func() (string, string, bool) {
		return server, token, true
	}, a.cfg.RequestTimeout(), a.logger)

	userID, err := probe.Whoami(ctx)
	if err != nil {
		return "", fmt.Errorf("verifying token: %w", err)
	}

	dateKey := tracker.DateKey(tracker.RealClock{}.Now())
	rec, err := a.local.Get(ctx, dateKey)
	if err != nil {
		return "", fmt.Errorf("reading local totals: %w", err)
	}
	if rec != nil {
		payload := tracker.MigrationPayload{
			DateKey:      rec.DateKey,
			FocusedMs:    rec.FocusedMs,
			DistractedMs: rec.DistractedMs,
			State:        rec.State,
		}
		if err := a.slot.Stage(payload); err != nil {
			return "", fmt.Errorf("staging local totals: %w", err)
		}
		a.logger.Info("staged local totals for migration",
			"date", payload.DateKey, "focused_ms", payload.FocusedMs, "distracted_ms", payload.DistractedMs)
	}

	creds := auth.Credentials{UserID: userID, Server: server, Token: token}
	if err := a.auth.SignIn(creds); err != nil {
		return "", fmt.Errorf("storing credentials: %w", err)
	}
	return userID, nil
}

// Logout removes the stored credentials. Any staged migration payload
// stays put; it is validated against the active day on the next
// sign-in.
func (a *App) Logout() error {
	return a.auth.SignOut()
}

// SignedIn reports the stored account id, if any.
func (a *App) SignedIn() (string, bool) {
	creds, ok := a.auth.Credentials()
	if !ok {
		return "", false
	}
	return creds.UserID, true
}

// DefaultServer returns the configured sync server URL, if any.
func (a *App) DefaultServer() string {
	return a.cfg.Sync.Server
}

// Close releases the authenticator watcher, the local store and the
// log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.auth.Close(); err != nil {
		firstErr = fmt.Errorf("closing authenticator: %w", err)
	}
	if err := closeStore(a.local); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing local store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

func closeStore(s tracker.RecordStore) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
