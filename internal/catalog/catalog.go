// Package catalog is the load-once, read-only materials index: canonical
// entries, their aliases and accepted units, and per-vendor offers.
// Loading fails fast on a malformed source; a process must not serve
// traffic with a corrupt or empty catalog.
package catalog

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Catalog is safe for unlimited concurrent readers: nothing mutates it
// after New returns.
type Catalog struct {
	entries map[string]Entry
	offers  map[string][]Offer
	keys    []string
}

// Load reads a catalog source, dispatching on the file extension:
// .json documents, or .db/.sqlite databases.
func Load(path string) (*Catalog, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(path)
	case ".db", ".sqlite":
		return loadSQLite(path)
	default:
		return nil, fmt.Errorf("catalog %s: unsupported source format", path)
	}
}

// New validates entries and offers and builds the index. It is the single
// construction path for every loader and for test fixtures.
func New(entries []Entry, offers []Offer) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	c := &Catalog{
		entries: make(map[string]Entry, len(entries)),
		offers:  make(map[string][]Offer),
	}
	aliasOwner := map[string]string{}

	for _, e := range entries {
		key := strings.TrimSpace(e.CanonicalKey)
		if key == "" {
			return nil, fmt.Errorf("catalog entry with empty canonical key")
		}
		if _, dup := c.entries[key]; dup {
			return nil, fmt.Errorf("duplicate canonical key %q", key)
		}
		if len(e.Aliases) == 0 {
			return nil, fmt.Errorf("entry %q has no aliases", key)
		}
		for _, a := range e.Aliases {
			alias := strings.ToLower(strings.TrimSpace(a))
			if alias == "" {
				return nil, fmt.Errorf("entry %q has an empty alias", key)
			}
			if owner, taken := aliasOwner[alias]; taken && owner != key {
				return nil, fmt.Errorf("alias %q claimed by both %q and %q", alias, owner, key)
			}
			aliasOwner[alias] = key
		}
		e.CanonicalKey = key
		c.entries[key] = e
		c.keys = append(c.keys, key)
	}
	sort.Strings(c.keys)

	for _, o := range offers {
		if _, ok := c.entries[o.CanonicalKey]; !ok {
			return nil, fmt.Errorf("offer from %q references unknown key %q", o.VendorID, o.CanonicalKey)
		}
		if strings.TrimSpace(o.VendorID) == "" {
			return nil, fmt.Errorf("offer for %q has empty vendor id", o.CanonicalKey)
		}
		if !o.UnitPrice.IsPositive() {
			return nil, fmt.Errorf("offer %s/%s has non-positive price %s", o.VendorID, o.CanonicalKey, o.UnitPrice)
		}
		if len(o.CoverageZips) == 0 {
			return nil, fmt.Errorf("offer %s/%s has no coverage", o.VendorID, o.CanonicalKey)
		}
		if o.Currency == "" {
			o.Currency = Currency
		}
		if o.Currency != Currency {
			return nil, fmt.Errorf("offer %s/%s has unsupported currency %q", o.VendorID, o.CanonicalKey, o.Currency)
		}
		c.offers[o.CanonicalKey] = append(c.offers[o.CanonicalKey], o)
	}

	// Deterministic offer order regardless of source order.
	for key := range c.offers {
		list := c.offers[key]
		sort.Slice(list, func(i, j int) bool {
			if list[i].VendorID != list[j].VendorID {
				return list[i].VendorID < list[j].VendorID
			}
			return list[i].UnitPrice.LessThan(list[j].UnitPrice)
		})
	}
	return c, nil
}

// Lookup returns the entry for a canonical key.
func (c *Catalog) Lookup(key string) (Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// OffersFor returns the offers for a canonical key, sorted by vendor id.
// Callers must treat the slice as read-only.
func (c *Catalog) OffersFor(key string) []Offer {
	return c.offers[key]
}

// Keys returns all canonical keys in lexicographic order.
func (c *Catalog) Keys() []string { return c.keys }

func (c *Catalog) Len() int { return len(c.entries) }
