package proxy

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LLLin000/paper-fetcher/internal/config"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	store := NewSessionStore(path)

	loaded, err := store.Load("uni-a")
	if err != nil {
		t.Fatalf("Load() on empty store: %v", err)
	}
	if loaded != nil {
		t.Fatal("Load() on empty store should miss")
	}

	saved := &Session{
		Institution: "uni-a",
		Scheme:      config.SchemeEZProxy,
		Cookies: []Cookie{
			{Name: "ezproxy", Value: "abc123", Domain: ".ezproxy.lib.example.edu", Path: "/"},
			{Name: "session", Value: "xyz", Domain: "www.example.com"},
		},
		SavedAt: time.Now().UTC(),
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save(): %v", err)
	}

	loaded, err = store.Load("uni-a")
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if loaded == nil {
		t.Fatal("Load() missed a saved session")
	}
	if loaded.Scheme != config.SchemeEZProxy || len(loaded.Cookies) != 2 {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Cookies[0].Value != "abc123" {
		t.Errorf("cookie value = %q", loaded.Cookies[0].Value)
	}

	// Sessions for different institutions coexist in one file.
	other := &Session{Institution: "uni-b", Scheme: config.SchemeWebVPN, SavedAt: time.Now()}
	if err := store.Save(other); err != nil {
		t.Fatalf("Save() second institution: %v", err)
	}
	if s, _ := store.Load("uni-a"); s == nil {
		t.Error("saving uni-b clobbered uni-a")
	}

	if err := store.Delete("uni-a"); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	if s, _ := store.Load("uni-a"); s != nil {
		t.Error("Load() after Delete() should miss")
	}
	if s, _ := store.Load("uni-b"); s == nil {
		t.Error("Delete(uni-a) removed uni-b")
	}
}

func TestSessionStoreFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	store := NewSessionStore(path)
	if err := store.Save(&Session{Institution: "uni", Scheme: config.SchemeEZProxy}); err != nil {
		t.Fatalf("Save(): %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat(): %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("session file mode = %o, want 600", perm)
	}
}

func TestSessionStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := NewSessionStore(path)

	// A corrupt file behaves like an empty store: the user just logs in again.
	loaded, err := store.Load("uni")
	if err != nil {
		t.Fatalf("Load() with corrupt file: %v", err)
	}
	if loaded != nil {
		t.Error("Load() with corrupt file should miss")
	}
	if err := store.Save(&Session{Institution: "uni", Scheme: config.SchemeEZProxy}); err != nil {
		t.Fatalf("Save() over corrupt file: %v", err)
	}
	if s, _ := store.Load("uni"); s == nil {
		t.Error("Save() over corrupt file did not take")
	}
}

func TestSessionJar(t *testing.T) {
	s := &Session{
		Institution: "uni",
		Scheme:      config.SchemeEZProxy,
		Cookies: []Cookie{
			{Name: "ezproxy", Value: "tok", Domain: ".ezproxy.lib.example.edu", Path: "/"},
		},
	}
	jar, err := s.Jar()
	if err != nil {
		t.Fatalf("Jar(): %v", err)
	}
	u, _ := url.Parse("https://ezproxy.lib.example.edu/login")
	cookies := jar.Cookies(u)
	if len(cookies) == 0 {
		t.Fatal("jar returned no cookies for the session domain")
	}
	if cookies[0].Name != "ezproxy" || cookies[0].Value != "tok" {
		t.Errorf("cookie = %+v", cookies[0])
	}
}
