package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"focustrack/internal/tracker"
)

// Credentials are the stored sign-in for this device.
type Credentials struct {
	UserID string `json:"user_id"`
	Server string `json:"server"`
	Token  string `json:"token"`
}

// FileAuthenticator implements tracker.Authenticator on a JSON
// credentials file. Sign-ins and sign-outs made by another process on
// the same machine are picked up by watching the file's directory, so
// a running watch session follows a `ft login` done in another
// terminal.
type FileAuthenticator struct {
	path   string
	logger tracker.Logger

	mu      sync.Mutex
	creds   *Credentials
	watcher *fsnotify.Watcher
	running bool

	changes chan *tracker.Identity
	done    chan struct{}
	wg      sync.WaitGroup
}

// Compile-time check that FileAuthenticator implements the Authenticator interface
var _ tracker.Authenticator = (*FileAuthenticator)(nil)

// NewFileAuthenticator creates an authenticator backed by the
// credentials file at path. The file may not exist yet.
func NewFileAuthenticator(path string, logger tracker.Logger) *FileAuthenticator {
	if logger == nil {
		logger = tracker.NewNopLogger()
	}
	return &FileAuthenticator{
		path:    path,
		logger:  logger,
		changes: make(chan *tracker.Identity, 4),
		done:    make(chan struct{}),
	}
}

// Resume loads the stored credentials, if any. A missing file means
// anonymous and is not an error.
func (a *FileAuthenticator) Resume(_ context.Context) (*tracker.Identity, error) {
	creds, err := a.readFile()
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.creds = creds
	a.mu.Unlock()
	return identityOf(creds), nil
}

func (a *FileAuthenticator) Current() *tracker.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return identityOf(a.creds)
}

func (a *FileAuthenticator) Changes() <-chan *tracker.Identity { return a.changes }

// Credentials returns the stored sign-in details, or false when
// anonymous. The sync client reads these per request so a token
// refresh needs no re-wiring.
func (a *FileAuthenticator) Credentials() (Credentials, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.creds == nil {
		return Credentials{}, false
	}
	return *a.creds, true
}

// SignIn stores creds and announces the new identity.
func (a *FileAuthenticator) SignIn(creds Credentials) error {
	if creds.UserID == "" {
		return fmt.Errorf("sign-in requires a user id")
	}
	if err := a.writeFile(creds); err != nil {
		return err
	}

	a.mu.Lock()
	a.creds = &creds
	a.mu.Unlock()

	a.emit(identityOf(&creds))
	return nil
}

// SignOut removes the stored credentials and announces anonymity.
// Signing out while already anonymous is not an error.
func (a *FileAuthenticator) SignOut() error {
	if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credentials file: %w", err)
	}

	a.mu.Lock()
	a.creds = nil
	a.mu.Unlock()

	a.emit(nil)
	return nil
}

// Watch starts following external edits to the credentials file. Call
// Close to stop.
func (a *FileAuthenticator) Watch() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("watcher already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the directory, not the file: the file may not exist yet,
	// and sign-ins land via rename.
	dir := filepath.Dir(a.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		watcher.Close()
		return fmt.Errorf("creating credentials directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch credentials directory %s: %w", dir, err)
	}

	a.watcher = watcher
	a.running = true
	a.wg.Add(1)
	go a.processEvents(watcher)
	return nil
}

// Close stops the watcher, if running. It does not touch the stored
// credentials.
func (a *FileAuthenticator) Close() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	watcher := a.watcher
	a.watcher = nil
	a.mu.Unlock()

	close(a.done)
	if err := watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	a.wg.Wait()
	return nil
}

// processEvents reloads the credentials file on every event that
// touches it and announces the identity when it actually changed.
func (a *FileAuthenticator) processEvents(watcher *fsnotify.Watcher) {
	defer a.wg.Done()

	for {
		select {
		case <-a.done:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(a.path) {
				continue
			}
			a.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			a.logger.Warn("credentials watcher error", "error", err)
		}
	}
}

// reload re-reads the file and emits only when the signed-in user
// changed. A rewrite that keeps the same user (a token refresh) updates
// the cached credentials silently.
func (a *FileAuthenticator) reload() {
	creds, err := a.readFile()
	if err != nil {
		a.logger.Warn("could not reload credentials file", "error", err)
		return
	}

	a.mu.Lock()
	prev := a.creds
	a.creds = creds
	a.mu.Unlock()

	if userOf(prev) == userOf(creds) {
		return
	}
	a.emit(identityOf(creds))
}

func (a *FileAuthenticator) emit(id *tracker.Identity) {
	select {
	case a.changes <- id:
	default:
		// Nobody is draining changes; a one-shot command only needs
		// the stored file.
		a.logger.Debug("dropping identity change notification")
	}
}

func (a *FileAuthenticator) readFile() (*Credentials, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decoding credentials file: %w", err)
	}
	if creds.UserID == "" {
		return nil, fmt.Errorf("credentials file has no user id")
	}
	return &creds, nil
}

// writeFile stores creds with owner-only permissions using atomic
// write (temp file + rename).
func (a *FileAuthenticator) writeFile(creds Credentials) error {
	dir := filepath.Dir(a.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// The token must stay owner-only.
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("failed to restrict credentials permissions: %w", err)
	}

	if err := os.Rename(tmpPath, a.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func identityOf(creds *Credentials) *tracker.Identity {
	if creds == nil {
		return nil
	}
	return &tracker.Identity{UserID: creds.UserID}
}

func userOf(creds *Credentials) string {
	if creds == nil {
		return ""
	}
	return creds.UserID
}
