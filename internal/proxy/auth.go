package proxy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Authenticator drives the interactive institutional single-sign-on flow
// and harvests the resulting session cookies. It is a capability interface:
// production opens a real browser and waits on the user, tests return a
// canned session instantly.
type Authenticator interface {
	// Login starts the flow at loginURL and returns the harvested cookies.
	// Implementations must respect ctx cancellation and deadline.
	Login(ctx context.Context, loginURL string) ([]Cookie, error)
}

// BrowserAuthenticator opens the proxy login page in the system browser,
// then waits for the user to complete single-sign-on and paste the resulting
// Cookie header back into the terminal. The wait is bounded by the context
// deadline.
type BrowserAuthenticator struct {
	// CookieDomain is the domain stored on harvested cookies, normally the
	// proxy host.
	CookieDomain string

	// In/Out default to stdin/stdout; overridable for tests.
	In  io.Reader
	Out io.Writer

	// OpenBrowser launches a URL in the user's browser. Defaults to the
	// platform opener.
	OpenBrowser func(url string) error
}

func (a *BrowserAuthenticator) Login(ctx context.Context, loginURL string) ([]Cookie, error) {
	open := a.OpenBrowser
	if open == nil {
		open = openInBrowser
	}
	in := a.In
	if in == nil {
		in = os.Stdin
	}
	out := a.Out
	if out == nil {
		out = os.Stdout
	}

	fmt.Fprintf(out, "\nOpening browser for institutional login:\n  %s\n\n", loginURL)
	if err := open(loginURL); err != nil {
		fmt.Fprintf(out, "Could not open a browser automatically (%v).\nOpen the URL above manually.\n\n", err)
	}

	fmt.Fprintln(out, "After signing in, copy the Cookie header for the proxy domain")
	fmt.Fprintln(out, "(browser dev tools > Network > any request > Request Headers > Cookie)")
	fmt.Fprint(out, "and paste it here: ")

	type lineResult struct {
		line string
		err  error
	}
	ch := make(chan lineResult, 1)
	go func() {
		reader := bufio.NewReader(in)
		line, err := reader.ReadString('\n')
		ch <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: no input before deadline", ErrAuthTimeout)
	case res := <-ch:
		if res.err != nil && res.line == "" {
			return nil, fmt.Errorf("%w: reading input: %v", ErrAuthFailed, res.err)
		}
		cookies := ParseCookieHeader(res.line, a.CookieDomain)
		if len(cookies) == 0 {
			return nil, fmt.Errorf("%w: no cookies in pasted input", ErrAuthFailed)
		}
		return cookies, nil
	}
}

// ParseCookieHeader parses a "name=value; name2=value2" header string into
// session cookies on the given domain.
func ParseCookieHeader(header, domain string) []Cookie {
	var cookies []Cookie
	for _, pair := range strings.Split(strings.TrimSpace(header), ";") {
		pair = strings.TrimSpace(pair)
		eq := strings.IndexByte(pair, '=')
		if eq <= 0 {
			continue
		}
		cookies = append(cookies, Cookie{
			Name:    pair[:eq],
			Value:   pair[eq+1:],
			Domain:  domain,
			Path:    "/",
			Expires: time.Now().Add(30 * 24 * time.Hour),
		})
	}
	return cookies
}

// openInBrowser launches a URL with the platform's default opener.
func openInBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
