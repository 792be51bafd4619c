package proxy

import (
	"testing"

	"github.com/LLLin000/paper-fetcher/internal/config"
)

func TestEZProxyApply(t *testing.T) {
	inst := &config.Institution{
		Name:      "hku",
		Scheme:    config.SchemeEZProxy,
		ProxyBase: "https://eproxy.lib.hku.hk/login?url=",
	}
	scheme, err := NewScheme(inst)
	if err != nil {
		t.Fatalf("NewScheme(): %v", err)
	}

	got, err := scheme.Apply("https://www.nature.com/articles/x")
	if err != nil {
		t.Fatalf("Apply(): %v", err)
	}
	want := "https://eproxy.lib.hku.hk/login?url=https://www.nature.com/articles/x"
	if got != want {
		t.Errorf("Apply() = %q, want %q", got, want)
	}

	// Already-proxied URLs pass through unchanged.
	again, err := scheme.Apply(got)
	if err != nil {
		t.Fatalf("Apply(applied): %v", err)
	}
	if again != got {
		t.Errorf("Apply() not idempotent: %q", again)
	}
}

func TestWebVPNApply(t *testing.T) {
	inst := &config.Institution{
		Name:      "tsinghua",
		Scheme:    config.SchemeWebVPN,
		ProxyHost: "webvpn.tsinghua.edu.cn",
	}
	scheme, err := NewScheme(inst)
	if err != nil {
		t.Fatalf("NewScheme(): %v", err)
	}

	got, err := scheme.Apply("https://www.sciencedirect.com/science/article/pii/S123?via=ihub")
	if err != nil {
		t.Fatalf("Apply(): %v", err)
	}
	want := "https://webvpn.tsinghua.edu.cn/https/www.sciencedirect.com/science/article/pii/S123?via=ihub"
	if got != want {
		t.Errorf("Apply() = %q, want %q", got, want)
	}

	if _, err := scheme.Apply("not-a-url"); err == nil {
		t.Error("Apply() on a relative string should fail")
	}
}

func TestNewSchemeUnknown(t *testing.T) {
	_, err := NewScheme(&config.Institution{Name: "x", Scheme: "socks5"})
	if err == nil {
		t.Error("NewScheme() with unknown scheme should fail")
	}
}

func TestParseCookieHeader(t *testing.T) {
	cookies := ParseCookieHeader("ezproxy=abc123; JSESSIONID=xyz; malformed", "eproxy.lib.hku.hk")
	if len(cookies) != 2 {
		t.Fatalf("ParseCookieHeader() = %v", cookies)
	}
	if cookies[0].Name != "ezproxy" || cookies[0].Value != "abc123" {
		t.Errorf("cookies[0] = %+v", cookies[0])
	}
	if cookies[1].Domain != "eproxy.lib.hku.hk" {
		t.Errorf("cookies[1].Domain = %q", cookies[1].Domain)
	}

	if got := ParseCookieHeader("   ", "d"); len(got) != 0 {
		t.Errorf("ParseCookieHeader(blank) = %v", got)
	}
}
