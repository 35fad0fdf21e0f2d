// Package fixture provides a source connector backed by YAML files.
//
// Each source lives in <dir>/<source>.yaml and lists observations grouped
// by city:
//
//	cities:
//	  Berlin:
//	    - entity_type: venue
//	      source_id: "ra-venue-1"
//	      name: Berghain
//	      address: Am Wriezener Bahnhof
//	    - entity_type: event
//	      source_id: "ra-event-7"
//	      name: Klubnacht
//	      date: "2026-05-09"
//	      venue: Berghain
//	      artists: [Ben Klock, Marcel Dettmann]
//
// The file is read on every scrape so edits show up in the next sync.
package fixture

import (
	"context"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/sources"
	"github.com/agentstation/lineup/pkg/types"
)

// Ext is the fixture file extension.
const Ext = ".yaml"

// Document is the content of one fixture file.
type Document struct {
	Cities map[string][]sources.Observation `yaml:"cities"`
}

// Connector scrapes a fixture file.
type Connector struct {
	id   types.SourceTag
	fsys fs.FS
	file string
}

// New returns a connector for source reading <dir>/<source>.yaml.
func New(source types.SourceTag, dir string) *Connector {
	return NewFS(source, os.DirFS(dir))
}

// NewFS returns a connector for source reading <source>.yaml from fsys.
func NewFS(source types.SourceTag, fsys fs.FS) *Connector {
	return &Connector{id: source, fsys: fsys, file: string(source) + Ext}
}

// ID implements sources.Connector.
func (c *Connector) ID() types.SourceTag { return c.id }

// Load parses the fixture file.
func (c *Connector) Load() (*Document, error) {
	data, err := fs.ReadFile(c.fsys, c.file)
	if err != nil {
		return nil, errors.WrapResource("read", "fixture", c.file, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapParse("yaml", c.file, err)
	}
	return &doc, nil
}

// Scrape implements sources.Connector. City names match case-insensitively;
// a city the file does not list yields no observations.
func (c *Connector) Scrape(ctx context.Context, city string, emit func(sources.Observation) error) error {
	doc, err := c.Load()
	if err != nil {
		return err
	}
	for name, observations := range doc.Cities {
		if !strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(city)) {
			continue
		}
		for _, o := range observations {
			if err := ctx.Err(); err != nil {
				return err
			}
			o.Source = c.id
			if o.City == "" {
				o.City = city
			}
			if err := emit(o); err != nil {
				return err
			}
		}
	}
	return nil
}

// Discover returns a connector for every fixture file in dir, sorted by
// source tag. Files named after reserved tags are skipped.
func Discover(dir string) ([]sources.Connector, error) {
	return DiscoverFS(os.DirFS(dir))
}

// DiscoverFS is Discover over fsys.
func DiscoverFS(fsys fs.FS) ([]sources.Connector, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, errors.WrapResource("list", "fixtures", ".", err)
	}
	var tags []types.SourceTag
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != Ext {
			continue
		}
		tag := types.SourceTag(strings.TrimSuffix(entry.Name(), Ext))
		if tag == "" || tag.IsReserved() {
			continue
		}
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	connectors := make([]sources.Connector, 0, len(tags))
	for _, tag := range tags {
		connectors = append(connectors, NewFS(tag, fsys))
	}
	return connectors, nil
}
