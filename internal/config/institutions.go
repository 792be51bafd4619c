package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Valid proxy schemes.
const (
	SchemeEZProxy = "ezproxy"
	SchemeWebVPN  = "webvpn"
)

// Institution describes one institution's proxy setup.
type Institution struct {
	Name      string `yaml:"name"`                 // Short tag, e.g. "hku"
	Scheme    string `yaml:"scheme"`               // ezproxy or webvpn
	ProxyBase string `yaml:"proxy_base,omitempty"` // EZproxy: login prefix, e.g. https://eproxy.lib.hku.hk/login?url=
	ProxyHost string `yaml:"proxy_host,omitempty"` // WebVPN: gateway host, e.g. webvpn.tsinghua.edu.cn
	TestURL   string `yaml:"test_url,omitempty"`   // Session validity probe target; defaults to nature.com
}

// Institutions is the institutions.yml document.
type Institutions struct {
	Institutions []Institution `yaml:"institutions"`
}

// LoadInstitutions reads and validates institutions.yml. A missing file
// yields an empty set, meaning no proxy is configured.
func LoadInstitutions(path string) (*Institutions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Institutions{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var inst Institutions
	if err := yaml.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for i, entry := range inst.Institutions {
		if entry.Name == "" {
			return nil, fmt.Errorf("institution entry %d must have a 'name'", i+1)
		}
		switch entry.Scheme {
		case SchemeEZProxy:
			if entry.ProxyBase == "" {
				return nil, fmt.Errorf("institution %q: ezproxy requires 'proxy_base'", entry.Name)
			}
		case SchemeWebVPN:
			if entry.ProxyHost == "" {
				return nil, fmt.Errorf("institution %q: webvpn requires 'proxy_host'", entry.Name)
			}
		default:
			return nil, fmt.Errorf("institution %q: unknown scheme %q (valid: %s, %s)",
				entry.Name, entry.Scheme, SchemeEZProxy, SchemeWebVPN)
		}
	}

	return &inst, nil
}

// Find returns the named institution, or nil if absent.
func (in *Institutions) Find(name string) *Institution {
	for i := range in.Institutions {
		if in.Institutions[i].Name == name {
			return &in.Institutions[i]
		}
	}
	return nil
}
