// Package catalog loads the list of assets a user selected for export and
// drops those whose usage rights are not currently active.
//
// A catalog is YAML (or JSON) of the form:
//
//	assets:
//	  - id: recA1
//	    source_url: https://dl.example.com/a1.jpg
//	    display_name: Summer shoot 01
//	    rights:
//	      start: 15/03/2024
//	      end: 2024-09-30
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/collabspace/assetkit/internal/exporter"
	"github.com/collabspace/assetkit/internal/rights"
)

var (
	ErrNoAssets     = errors.New("catalog: no assets")
	ErrUnknownAsset = errors.New("catalog: unknown asset")
)

// Entry is one asset in the catalog.
type Entry struct {
	ID          string        `yaml:"id"`
	SourceURL   string        `yaml:"source_url"`
	DisplayName string        `yaml:"display_name"`
	Rights      rights.Window `yaml:"rights"`
}

// Asset returns the descriptor handed to the exporter.
func (e Entry) Asset() exporter.Asset {
	return exporter.Asset{
		ID:          e.ID,
		SourceURL:   e.SourceURL,
		DisplayName: e.DisplayName,
	}
}

// Catalog is an ordered list of entries.
type Catalog struct {
	Assets []Entry `yaml:"assets"`
}

// Load reads and validates a catalog file from fs.
func Load(fs afero.Fs, path string) (*Catalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that the catalog is non-empty, every entry has an ID and a
// source URL, and IDs are unique.
func (c *Catalog) Validate() error {
	if len(c.Assets) == 0 {
		return ErrNoAssets
	}

	seen := make(map[string]int, len(c.Assets))
	for i, e := range c.Assets {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("catalog: asset %d: id is required", i)
		}
		if strings.TrimSpace(e.SourceURL) == "" {
			return fmt.Errorf("catalog: asset %s: source_url is required", e.ID)
		}
		if j, dup := seen[e.ID]; dup {
			return fmt.Errorf("catalog: asset %s: duplicate id (entries %d and %d)", e.ID, j, i)
		}
		seen[e.ID] = i
	}
	return nil
}

// Select returns a catalog restricted to ids, in the order given.
// An empty ids selects everything.
func (c *Catalog) Select(ids []string) (*Catalog, error) {
	if len(ids) == 0 {
		return c, nil
	}

	byID := make(map[string]Entry, len(c.Assets))
	for _, e := range c.Assets {
		byID[e.ID] = e
	}

	out := &Catalog{Assets: make([]Entry, 0, len(ids))}
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, id)
		}
		out.Assets = append(out.Assets, e)
	}
	return out, nil
}

// Authorized splits the catalog into descriptors whose rights window is
// active according to ev and entries that are restricted.
func (c *Catalog) Authorized(ev *rights.Evaluator) (allowed []exporter.Asset, restricted []Entry) {
	for _, e := range c.Assets {
		if ev.Active(e.Rights) {
			allowed = append(allowed, e.Asset())
		} else {
			restricted = append(restricted, e)
		}
	}
	return allowed, restricted
}
