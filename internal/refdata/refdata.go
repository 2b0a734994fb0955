// Package refdata loads the site directory and data-entry option lists.
//
// Load(path) parses a YAML file with sites, officers, weather and
// wind_directions keys; an empty path returns the embedded defaults. A Source
// holds the active lists and Watch swaps them in when the file changes.
package refdata

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type file struct {
	Sites []struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"sites"`
	Officers       []string `yaml:"officers"`
	Weather        []string `yaml:"weather"`
	WindDirections []string `yaml:"wind_directions"`
}

// Defaults returns the embedded reference lists.
func Defaults() domain.Reference {
	ref, err := parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("refdata: embedded defaults: %v", err))
	}
	return ref
}

// Load reads reference lists from path, or the defaults when path is empty.
func Load(path string) (domain.Reference, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Reference{}, fmt.Errorf("refdata: read %s: %w", path, err)
	}
	ref, err := parse(data)
	if err != nil {
		return domain.Reference{}, fmt.Errorf("refdata: %s: %w", path, err)
	}
	return ref, nil
}

func parse(data []byte) (domain.Reference, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Reference{}, fmt.Errorf("parse: %w", err)
	}

	ref := domain.Reference{
		Officers:       trimAll(f.Officers),
		Weather:        trimAll(f.Weather),
		WindDirections: trimAll(f.WindDirections),
	}
	for _, o := range ref.Officers {
		if strings.Contains(o, domain.OfficerSeparator) {
			return domain.Reference{}, fmt.Errorf("officer %q: names must not contain commas", o)
		}
	}
	seen := make(map[string]bool, len(f.Sites))
	for _, s := range f.Sites {
		id, name := strings.TrimSpace(s.ID), strings.TrimSpace(s.Name)
		if id == "" || name == "" {
			return domain.Reference{}, errors.New("every site needs an id and a name")
		}
		if seen[id] {
			return domain.Reference{}, fmt.Errorf("duplicate site id %q", id)
		}
		seen[id] = true
		ref.Sites = append(ref.Sites, domain.Site{ID: id, Name: name})
	}
	if len(ref.Sites) == 0 {
		return domain.Reference{}, errors.New("at least one site is required")
	}
	return ref, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Source serves the active reference lists to concurrent readers.
type Source struct {
	mu  sync.RWMutex
	ref domain.Reference
}

// NewSource returns a Source holding ref.
func NewSource(ref domain.Reference) *Source {
	return &Source{ref: ref}
}

// Reference returns the active lists.
func (s *Source) Reference() domain.Reference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ref
}

// Set replaces the active lists.
func (s *Source) Set(ref domain.Reference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ref = ref
}

// Watch reloads path into s whenever the file is written, until ctx is
// cancelled. A reload that fails to parse is logged and the previous lists
// stay active.
func (s *Source) Watch(ctx context.Context, path string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}
	logger.Info("watching reference data", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			ref, err := Load(path)
			if err != nil {
				logger.Error("reference data reload failed, keeping previous lists", "path", path, "error", err)
				continue
			}
			s.Set(ref)
			logger.Info("reference data reloaded", "path", path, "sites", len(ref.Sites))

			// Atomic saves replace the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("reference data watcher error", "error", err)
		}
	}
}
