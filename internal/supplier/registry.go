package supplier

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrUnsupported is returned when no registry entry matches a URL.
var ErrUnsupported = errors.New("unsupported supplier")

var (
	defaultRender = RenderProfile{
		SettleDelay:     8 * time.Second,
		SelectorTimeout: 15 * time.Second,
		FinalDelay:      2 * time.Second,
	}
	defaultPacing = Pacing{Min: 2 * time.Second, Max: 5 * time.Second}
)

// Registry is an ordered, read-only table of supplier configurations.
// Order encodes match priority.
type Registry struct {
	entries []Config
}

// NewRegistry builds a registry from the given entries, in priority order.
func NewRegistry(entries ...Config) (*Registry, error) {
	seen := make(map[string]bool, len(entries))
	out := make([]Config, 0, len(entries))
	for _, e := range entries {
		if e.MatchKey == "" {
			return nil, fmt.Errorf("supplier %q has no match key", e.DisplayName)
		}
		if seen[e.MatchKey] {
			return nil, fmt.Errorf("duplicate match key %q", e.MatchKey)
		}
		seen[e.MatchKey] = true
		if err := validateFields(e); err != nil {
			return nil, err
		}
		if e.Render.SettleDelay == 0 {
			e.Render = mergeRender(e.Render)
		}
		if e.Pacing == (Pacing{}) {
			e.Pacing = defaultPacing
		}
		out = append(out, e)
	}
	return &Registry{entries: out}, nil
}

// Entries returns a copy of the registry table.
func (r *Registry) Entries() []Config {
	out := make([]Config, len(r.entries))
	copy(out, r.entries)
	return out
}

// Detect resolves the supplier of an absolute URL. A match succeeds when the
// hostname contains the match key or the match key contains the hostname.
func (r *Registry) Detect(rawURL string) (Config, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return Config{}, fmt.Errorf("%w: cannot parse %q", ErrUnsupported, rawURL)
	}
	host := strings.ToLower(u.Hostname())

	for _, e := range r.entries {
		if strings.Contains(host, e.MatchKey) || strings.Contains(e.MatchKey, host) {
			return e, nil
		}
	}
	return Config{}, fmt.Errorf("%w: %s", ErrUnsupported, host)
}

func mergeRender(p RenderProfile) RenderProfile {
	d := defaultRender
	d.Headful = p.Headful
	d.Thumbnails = p.Thumbnails
	d.ReadMore = p.ReadMore
	if p.SelectorTimeout > 0 {
		d.SelectorTimeout = p.SelectorTimeout
	}
	if p.FinalDelay > 0 {
		d.FinalDelay = p.FinalDelay
	}
	return d
}

// validateFields rejects kinds that make no sense for a field.
func validateFields(c Config) error {
	allowed := map[Field][]Kind{
		FieldTitle:       {KindEmpty, KindPlainText},
		FieldPrice:       {KindEmpty, KindPlainText, KindAttributeDerived},
		FieldDescription: {KindEmpty, KindListItems, KindConcatenatedBlock},
		FieldImages:      {KindEmpty, KindImageCollection},
	}
	for _, f := range []Field{FieldTitle, FieldPrice, FieldDescription, FieldImages} {
		spec := c.Spec(f)
		ok := false
		for _, k := range allowed[f] {
			if spec.Kind == k {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("supplier %q: kind %s not valid for field %s", c.DisplayName, spec.Kind, f)
		}
		if spec.Kind == KindAttributeDerived && spec.Attribute == "" {
			return fmt.Errorf("supplier %q: field %s needs an attribute", c.DisplayName, f)
		}
	}
	return nil
}
