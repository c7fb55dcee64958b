// Package kpi resolves dairy KPI identifiers across their three naming
// schemes (raw codes, display names, slug aliases) and owns the static
// domain-to-KPI-scope configuration.
package kpi

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"sync"
)

// canonicalDomainOrder is the fixed iteration order for analysis
// domains, used for defaults, fan-out scheduling, and reproducibility.
var canonicalDomainOrder = []string{"Fertility", "Production", "Health", "Calf Raising", "Culling"}

// CanonicalDomains returns the fixed domain iteration order.
func CanonicalDomains() []string {
	return append([]string(nil), canonicalDomainOrder...)
}

// domainEntry is one section of the domain config file, as produced by
// the KPI catalog grouping tooling.
type domainEntry struct {
	Section     string       `json:"section"`
	Description string       `json:"description"`
	KPIs        []Identifier `json:"kpis"`
}

// Registry is the process-wide, read-only alias registry. Safe for
// unsynchronized concurrent reads once constructed; the domain config
// is loaded once on first use.
type Registry struct {
	entries []Identifier
	byAlias map[string]Identifier
	byCode  map[string]Identifier

	domainConfigPath string
	loadDomains      sync.Once
	domains          map[string][]string // domain key -> ordered default aliases
	domainDesc       map[string]string   // domain key -> description
	domainOrder      []string            // keys in load order
}

// NewRegistry builds a registry from the built-in catalog. Domain
// defaults come from the JSON file at domainConfigPath when set, loaded
// lazily on first use; otherwise from the built-in domain mapping.
func NewRegistry(domainConfigPath string) *Registry {
	r := &Registry{
		byAlias:          make(map[string]Identifier),
		byCode:           make(map[string]Identifier),
		domainConfigPath: domainConfigPath,
	}
	for _, id := range builtinCatalog {
		id.Alias = Slugify(id.Name)
		r.entries = append(r.entries, id)
		// two names normalizing to the same alias are the same KPI,
		// first one wins
		if _, ok := r.byAlias[id.Alias]; !ok {
			r.byAlias[id.Alias] = id
		}
		if _, ok := r.byCode[id.Code]; !ok {
			r.byCode[id.Code] = id
		}
	}
	return r
}

// Lookup returns the identifier for an alias, if known.
func (r *Registry) Lookup(alias string) (Identifier, bool) {
	id, ok := r.byAlias[alias]
	return id, ok
}

// Entries returns all known identifiers in catalog order.
func (r *Registry) Entries() []Identifier {
	return append([]Identifier(nil), r.entries...)
}

// DomainDefaults returns the ordered default KPI aliases for a domain.
// The domain is matched by exact key first, then by slugified key or
// slugified description in load order, first match wins. Unknown
// domains yield nil.
func (r *Registry) DomainDefaults(domain string) []string {
	r.ensureDomains()
	if aliases, ok := r.domains[domain]; ok {
		return append([]string(nil), aliases...)
	}
	target := Slugify(domain)
	for _, key := range r.domainOrder {
		if Slugify(key) == target || Slugify(r.domainDesc[key]) == target {
			return append([]string(nil), r.domains[key]...)
		}
	}
	return nil
}

// MergeWithDefaults prepends the prioritized aliases to the domain
// defaults, first occurrence wins, duplicates dropped.
func (r *Registry) MergeWithDefaults(domain string, prioritized []string) []string {
	var merged []string
	seen := make(map[string]struct{})
	for _, bucket := range [][]string{prioritized, r.DomainDefaults(domain)} {
		for _, alias := range bucket {
			if alias == "" {
				continue
			}
			if _, dup := seen[alias]; dup {
				continue
			}
			seen[alias] = struct{}{}
			merged = append(merged, alias)
		}
	}
	return merged
}

// ResolveSelection maps requested alias-or-code tokens to upstream codes
// and an alias whitelist for post-filtering summaries. Each token is
// tried as an exact alias, then an exact code, then slugified and
// retried as an alias. Unrecognized tokens pass through verbatim as
// codes and make the whitelist unbounded (nil), since they may still be
// valid upstream. An empty selection resolves to every known code with
// a whitelist of every known alias.
func (r *Registry) ResolveSelection(requested []string) (codes []string, whitelist map[string]struct{}) {
	if len(requested) == 0 {
		whitelist = make(map[string]struct{}, len(r.entries))
		for _, id := range r.entries {
			codes = append(codes, id.Code)
			whitelist[id.Alias] = struct{}{}
		}
		return codes, whitelist
	}

	whitelist = make(map[string]struct{})
	unbounded := false
	seen := make(map[string]struct{})

	add := func(code, alias string) {
		if _, dup := seen[code]; dup {
			return
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
		if alias != "" {
			whitelist[alias] = struct{}{}
		}
	}

	for _, token := range requested {
		if token == "" {
			continue
		}
		if id, ok := r.byAlias[token]; ok {
			add(id.Code, id.Alias)
			continue
		}
		if id, ok := r.byCode[token]; ok {
			add(id.Code, id.Alias)
			continue
		}
		if id, ok := r.byAlias[Slugify(token)]; ok {
			add(id.Code, id.Alias)
			continue
		}
		// pass through as a raw code; we can no longer filter by alias
		add(token, "")
		unbounded = true
	}

	if unbounded {
		whitelist = nil
	}
	return codes, whitelist
}

func (r *Registry) ensureDomains() {
	r.loadDomains.Do(func() {
		r.domains = make(map[string][]string)
		r.domainDesc = make(map[string]string)

		if r.domainConfigPath != "" && r.loadDomainConfig(r.domainConfigPath) {
			return
		}

		for _, domain := range canonicalDomainOrder {
			aliases := make([]string, 0, len(builtinDomains[domain]))
			for _, code := range builtinDomains[domain] {
				if id, ok := r.byCode[code]; ok {
					aliases = append(aliases, id.Alias)
				}
			}
			r.domains[domain] = aliases
			r.domainDesc[domain] = domain
			r.domainOrder = append(r.domainOrder, domain)
		}
	})
}

// loadDomainConfig reads a domain config JSON file, preserving the file
// order of sections. Absence or malformed content degrades to the
// built-in mapping rather than failing.
func (r *Registry) loadDomainConfig(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	keys, entries, err := decodeOrderedSections(raw)
	if err != nil {
		return false
	}

	for _, key := range keys {
		entry := entries[key]
		var aliases []string
		seen := make(map[string]struct{})
		for _, id := range entry.KPIs {
			alias := id.Alias
			if alias == "" {
				if id.Name != "" {
					alias = Slugify(id.Name)
				} else {
					alias = Slugify(id.Code)
				}
			}
			if alias == "" {
				continue
			}
			if _, dup := seen[alias]; dup {
				continue
			}
			seen[alias] = struct{}{}
			aliases = append(aliases, alias)
		}
		desc := entry.Description
		if desc == "" {
			desc = key
		}
		r.domains[key] = aliases
		r.domainDesc[key] = desc
		r.domainOrder = append(r.domainOrder, key)
	}
	return len(r.domains) > 0
}

// decodeOrderedSections decodes a {section: entry} object keeping key
// order, which a plain map unmarshal would lose.
func decodeOrderedSections(raw []byte) ([]string, map[string]domainEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("domain config: expected top-level object")
	}

	var keys []string
	entries := make(map[string]domainEntry)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := keyTok.(string)
		var entry domainEntry
		if err := dec.Decode(&entry); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		entries[key] = entry
	}
	return keys, entries, nil
}
