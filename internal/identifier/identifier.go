// Package identifier classifies and canonicalizes paper identifiers.
package identifier

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Kind is the identifier variant.
type Kind string

const (
	KindDOI   Kind = "doi"
	KindPMID  Kind = "pmid"
	KindPMCID Kind = "pmcid"
	KindURL   Kind = "url"
)

// ErrUnrecognized indicates the input matched none of the known identifier patterns.
var ErrUnrecognized = errors.New("unrecognized identifier")

// DOI pattern: 10.XXXX/... where XXXX is 4-9 digits.
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

// DOI embedded in a URL path or query string.
var doiInURLPattern = regexp.MustCompile(`(10\.\d{4,9}/[^\s&?#]+)`)

// PMIDs are 7-8 digit numeric strings.
var pmidPattern = regexp.MustCompile(`^\d{7,8}$`)

// PMCIDs are "PMC" followed by digits.
var pmcidPattern = regexp.MustCompile(`^(?i:PMC)(\d+)$`)

// DOI URL prefixes stripped during normalization.
var doiURLPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
}

// Identifier is a classified, canonical paper identifier.
// Exactly one variant is active, indicated by Kind.
type Identifier struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

func (id Identifier) String() string {
	return id.Value
}

// IsZero reports whether the identifier is unset.
func (id Identifier) IsZero() bool {
	return id.Kind == "" && id.Value == ""
}

// Normalize classifies a raw input string into one of the identifier variants
// and canonicalizes it. It is a pure function and idempotent: normalizing an
// already-normalized value yields the same value.
func Normalize(raw string) (Identifier, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Identifier{}, fmt.Errorf("%w: empty input", ErrUnrecognized)
	}

	// Bare DOI
	if doiPattern.MatchString(s) {
		return Identifier{Kind: KindDOI, Value: canonicalDOI(s)}, nil
	}

	// DOI URL (doi.org and dx.doi.org resolve to the DOI itself)
	lower := strings.ToLower(s)
	for _, prefix := range doiURLPrefixes {
		if strings.HasPrefix(lower, prefix) {
			doi := s[len(prefix):]
			if doiPattern.MatchString(doi) {
				return Identifier{Kind: KindDOI, Value: canonicalDOI(doi)}, nil
			}
		}
	}

	// PMID: 7-8 digit numeric string
	if pmidPattern.MatchString(s) {
		return Identifier{Kind: KindPMID, Value: s}, nil
	}

	// PMCID: PMC prefix, canonical form is upper-case PMC + digits
	if m := pmcidPattern.FindStringSubmatch(s); m != nil {
		return Identifier{Kind: KindPMCID, Value: "PMC" + m[1]}, nil
	}

	// Absolute http(s) URL. A DOI embedded in a publisher URL path is
	// preferred over the URL itself, since the DOI is the stabler handle.
	if u, err := url.Parse(s); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		if m := doiInURLPattern.FindStringSubmatch(s); m != nil {
			return Identifier{Kind: KindDOI, Value: canonicalDOI(m[1])}, nil
		}
		return Identifier{Kind: KindURL, Value: s}, nil
	}

	return Identifier{}, fmt.Errorf("%w: %q", ErrUnrecognized, raw)
}

// canonicalDOI lowercases a DOI and strips trailing punctuation that commonly
// rides along when a DOI is copied out of running text.
func canonicalDOI(doi string) string {
	doi = strings.TrimRight(doi, ".,;:)")
	return strings.ToLower(doi)
}

// IsUnrecognized returns true if the error indicates an unrecognized identifier.
func IsUnrecognized(err error) bool {
	return errors.Is(err, ErrUnrecognized)
}
