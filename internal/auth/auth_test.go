package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"focustrack/internal/testutil"
	"focustrack/internal/tracker"
)

func credsPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "credentials.json")
}

func waitIdentity(t *testing.T, ch <-chan *tracker.Identity) *tracker.Identity {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for identity change")
		return nil
	}
}

func TestFileAuthenticator_ResumeMissingFile(t *testing.T) {
	a := NewFileAuthenticator(credsPath(t), nil)

	id, err := a.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if id != nil {
		t.Errorf("Resume() = %v, want nil for a missing file", id)
	}
}

func TestFileAuthenticator_SignInRoundTrip(t *testing.T) {
	path := credsPath(t)
	a := NewFileAuthenticator(path, nil)

	creds := Credentials{UserID: "u1", Server: "https://sync.example.com", Token: "tok-1"}
	if err := a.SignIn(creds); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("credentials file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("credentials file mode = %o, want 0600", perm)
	}

	// A fresh authenticator over the same file resumes the sign-in.
	b := NewFileAuthenticator(path, nil)
	id, err := b.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if id == nil || id.UserID != "u1" {
		t.Fatalf("Resume() = %v, want u1", id)
	}
	got, ok := b.Credentials()
	if !ok {
		t.Fatal("Credentials() reported anonymous after resume")
	}
	if got != creds {
		t.Errorf("Credentials() = %+v, want %+v", got, creds)
	}
}

func TestFileAuthenticator_SignInRequiresUserID(t *testing.T) {
	a := NewFileAuthenticator(credsPath(t), nil)

	if err := a.SignIn(Credentials{Token: "tok"}); err == nil {
		t.Error("SignIn() expected error for missing user id, got nil")
	}
}

func TestFileAuthenticator_SignOut(t *testing.T) {
	path := credsPath(t)
	a := NewFileAuthenticator(path, nil)

	if err := a.SignIn(Credentials{UserID: "u1", Token: "tok"}); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if err := a.SignOut(); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("credentials file still present after sign-out: %v", err)
	}
	if cur := a.Current(); cur != nil {
		t.Errorf("Current() = %v, want nil", cur)
	}

	// Signing out while anonymous is not an error
	if err := a.SignOut(); err != nil {
		t.Errorf("second SignOut() error = %v, want nil", err)
	}
}

func TestFileAuthenticator_AnnouncesChanges(t *testing.T) {
	a := NewFileAuthenticator(credsPath(t), nil)

	if err := a.SignIn(Credentials{UserID: "u1", Token: "tok"}); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if id := waitIdentity(t, a.Changes()); id == nil || id.UserID != "u1" {
		t.Errorf("change = %v, want u1", id)
	}

	if err := a.SignOut(); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if id := waitIdentity(t, a.Changes()); id != nil {
		t.Errorf("change = %v, want nil after sign-out", id)
	}
}

func TestFileAuthenticator_WatchSeesExternalSignIn(t *testing.T) {
	path := credsPath(t)

	watching := NewFileAuthenticator(path, nil)
	if err := watching.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	t.Cleanup(func() { watching.Close() })

	// Another process on the same machine signs in.
	other := NewFileAuthenticator(path, nil)
	if err := other.SignIn(Credentials{UserID: "u1", Token: "tok"}); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if id := waitIdentity(t, watching.Changes()); id == nil || id.UserID != "u1" {
		t.Errorf("change = %v, want u1 from the external sign-in", id)
	}
}

func TestFileAuthenticator_WatchSeesExternalSignOut(t *testing.T) {
	path := credsPath(t)

	seed := NewFileAuthenticator(path, nil)
	if err := seed.SignIn(Credentials{UserID: "u1", Token: "tok"}); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	watching := NewFileAuthenticator(path, nil)
	if _, err := watching.Resume(context.Background()); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if err := watching.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	t.Cleanup(func() { watching.Close() })

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if id := waitIdentity(t, watching.Changes()); id != nil {
		t.Errorf("change = %v, want nil after the file was removed", id)
	}
}

func TestFileAuthenticator_TokenRefreshIsSilent(t *testing.T) {
	path := credsPath(t)

	seed := NewFileAuthenticator(path, nil)
	if err := seed.SignIn(Credentials{UserID: "u1", Token: "tok-old"}); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	watching := NewFileAuthenticator(path, nil)
	if _, err := watching.Resume(context.Background()); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if err := watching.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	t.Cleanup(func() { watching.Close() })

	// Same user, new token: the cache updates without an identity
	// change.
	if err := seed.SignIn(Credentials{UserID: "u1", Token: "tok-new"}); err != nil {
		t.Fatalf("refresh SignIn() error = %v", err)
	}

	testutil.Eventually(t, 2*time.Second, "token refresh", func() bool {
		creds, ok := watching.Credentials()
		return ok && creds.Token == "tok-new"
	})

	select {
	case id := <-watching.Changes():
		t.Errorf("unexpected identity change %v for a token refresh", id)
	default:
	}
}

func TestFileAuthenticator_ResumeRejectsCorruptFile(t *testing.T) {
	path := credsPath(t)
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	a := NewFileAuthenticator(path, nil)
	if _, err := a.Resume(context.Background()); err == nil {
		t.Error("Resume() expected error for a corrupt file, got nil")
	}
}

func TestFileAuthenticator_WatchTwiceFails(t *testing.T) {
	a := NewFileAuthenticator(credsPath(t), nil)
	if err := a.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	if err := a.Watch(); err == nil {
		t.Error("second Watch() expected error, got nil")
	}
}
