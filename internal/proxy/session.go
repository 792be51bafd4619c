package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Cookie is the persisted form of a session cookie.
type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// Session is one institution's authenticated proxy session. The cookie jar
// is opaque to callers: they ask the Manager to apply the session to a URL
// rather than reading cookies.
type Session struct {
	Institution string    `json:"institution"`
	Scheme      string    `json:"scheme"`
	Cookies     []Cookie  `json:"cookies"`
	SavedAt     time.Time `json:"saved_at"`
}

// Jar materializes the persisted cookies into an http.CookieJar.
func (s *Session) Jar() (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	byDomain := make(map[string][]*http.Cookie)
	for _, c := range s.Cookies {
		domain := c.Domain
		if domain == "" {
			continue
		}
		byDomain[domain] = append(byDomain[domain], &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Domain:  c.Domain,
			Expires: c.Expires,
		})
	}
	for domain, cookies := range byDomain {
		u := &url.URL{Scheme: "https", Host: trimDot(domain), Path: "/"}
		jar.SetCookies(u, cookies)
	}
	return jar, nil
}

func trimDot(domain string) string {
	if len(domain) > 0 && domain[0] == '.' {
		return domain[1:]
	}
	return domain
}

// SessionStore persists sessions keyed by institution, read at process
// start and written after successful login.
type SessionStore struct {
	path string
}

// NewSessionStore creates a store backed by the given JSON file.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load returns the persisted session for an institution, or nil.
func (st *SessionStore) Load(institution string) (*Session, error) {
	sessions, err := st.readAll()
	if err != nil {
		return nil, err
	}
	s, ok := sessions[institution]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Save persists a session, replacing any previous one for the same
// institution. The write is atomic.
func (st *SessionStore) Save(s *Session) error {
	sessions, err := st.readAll()
	if err != nil {
		return err
	}
	sessions[s.Institution] = *s

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sessions: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(st.path), 0755); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	tmp := st.path + ".tmp"
	// Cookies are credentials; keep the file private.
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing sessions: %w", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing sessions: %w", err)
	}
	return nil
}

// Delete removes an institution's persisted session.
func (st *SessionStore) Delete(institution string) error {
	sessions, err := st.readAll()
	if err != nil {
		return err
	}
	if _, ok := sessions[institution]; !ok {
		return nil
	}
	delete(sessions, institution)
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sessions: %w", err)
	}
	return os.WriteFile(st.path, data, 0600)
}

func (st *SessionStore) readAll() (map[string]Session, error) {
	sessions := make(map[string]Session)
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return sessions, nil
		}
		return nil, fmt.Errorf("reading sessions: %w", err)
	}
	if err := json.Unmarshal(data, &sessions); err != nil {
		// A corrupt session file means re-login, not a hard failure.
		return make(map[string]Session), nil
	}
	return sessions, nil
}
