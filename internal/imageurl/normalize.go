// Package imageurl rewrites supplier thumbnail URLs into their highest
// resolution equivalent and resolves them against the page they came from.
package imageurl

import (
	"net/url"
	"regexp"
	"strings"
)

// Rewrite is a single regex substitution. FirstOnly limits it to the leftmost match.
type Rewrite struct {
	Pattern     *regexp.Regexp
	Replacement string
	FirstOnly   bool
}

func (rw Rewrite) apply(s string) string {
	if !rw.FirstOnly {
		return rw.Pattern.ReplaceAllString(s, rw.Replacement)
	}
	loc := rw.Pattern.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	var dst []byte
	dst = rw.Pattern.ExpandString(dst, rw.Replacement, s, loc)
	return s[:loc[0]] + string(dst) + s[loc[1]:]
}

// RuleSet is the rewrite list of one supplier, applied when the image URL's
// host contains any of Hosts.
type RuleSet struct {
	Supplier string
	Hosts    []string
	Rewrites []Rewrite
}

// Matches reports whether the rule set applies to rawURL. Relative URLs carry
// no host, so the whole string is matched instead.
func (rs RuleSet) Matches(rawURL string) bool {
	target := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		target = u.Host
	}
	target = strings.ToLower(target)
	for _, h := range rs.Hosts {
		if strings.Contains(target, h) {
			return true
		}
	}
	return false
}

// maxPasses bounds Apply for rule sets that never settle.
const maxPasses = 8

// Apply runs the rewrites of the set in order, repeating until the URL no
// longer changes. Adjacent size tokens share a delimiter, so one pass can
// leave a token behind.
func (rs RuleSet) Apply(rawURL string) string {
	for i := 0; i < maxPasses; i++ {
		next := rawURL
		for _, rw := range rs.Rewrites {
			next = rw.apply(next)
		}
		if next == rawURL {
			break
		}
		rawURL = next
	}
	return rawURL
}

// Normalizer holds the independent per-supplier rule sets.
type Normalizer struct {
	rules []RuleSet
}

// New returns a normalizer over the given rule sets.
func New(rules ...RuleSet) *Normalizer {
	return &Normalizer{rules: rules}
}

// Default returns a normalizer with the built-in supplier rule sets.
func Default() *Normalizer {
	return New(DefaultRules()...)
}

// Rules returns the configured rule sets.
func (n *Normalizer) Rules() []RuleSet {
	out := make([]RuleSet, len(n.rules))
	copy(out, n.rules)
	return out
}

// Normalize applies every matching rule set. It is a pure string transform.
func (n *Normalizer) Normalize(rawURL string) string {
	for _, rs := range n.rules {
		if rs.Matches(rawURL) {
			rawURL = rs.Apply(rawURL)
		}
	}
	return rawURL
}

// Resolve makes ref absolute against base. Absolute http(s) URLs are returned
// unchanged; an unparseable ref or base yields ref as is.
func Resolve(ref, base string) string {
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
