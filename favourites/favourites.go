// Package favourites stores the pages bookmarked from the command line.
package favourites

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// Favourite represents a saved bookmark.
type Favourite struct {
	URL     string    `json:"url"`
	Title   string    `json:"title"`
	AddedAt time.Time `json:"added_at"`
}

// Store manages the favourites collection.
type Store struct {
	path       string
	Favourites []Favourite `json:"favourites"`
}

// Path returns the default favourites file, next to the config.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pagenav", "favourites.json"), nil
}

// Load reads the default favourites file.
func Load() (*Store, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Open reads favourites from path. A missing file yields an empty store
// that Save will create.
func Open(path string) (*Store, error) {
	store := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return store, nil
}

// Save writes favourites to disk.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// Add bookmarks a page unless its URL is already stored.
func (s *Store) Add(pageURL, title string) bool {
	if s.Has(pageURL) {
		return false
	}
	s.Favourites = append(s.Favourites, Favourite{
		URL:     pageURL,
		Title:   title,
		AddedAt: time.Now(),
	})
	return true
}

// Has reports whether pageURL is bookmarked.
func (s *Store) Has(pageURL string) bool {
	return slices.ContainsFunc(s.Favourites, func(f Favourite) bool { return f.URL == pageURL })
}

// OnSite returns the bookmarks sharing scheme and host with site, oldest
// first. These are the pages worth preloading when the site opens.
func (s *Store) OnSite(site *url.URL) []Favourite {
	if site == nil {
		return nil
	}
	var out []Favourite
	for _, f := range s.Favourites {
		u, err := url.Parse(f.URL)
		if err != nil {
			continue
		}
		if u.Scheme == site.Scheme && u.Host == site.Host {
			out = append(out, f)
		}
	}
	return out
}

// Remove removes a favourite by index.
func (s *Store) Remove(index int) bool {
	if index < 0 || index >= len(s.Favourites) {
		return false
	}
	s.Favourites = slices.Delete(s.Favourites, index, index+1)
	return true
}

// Len returns the number of favourites.
func (s *Store) Len() int {
	return len(s.Favourites)
}
