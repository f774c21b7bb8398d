package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Session is the persisted state of a window's history.
type Session struct {
	Entries []Entry `json:"entries"`
	Index   int     `json:"index"`
}

// SessionPath returns the session file path.
func SessionPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "pagenav", "session.json"), nil
}

// Snapshot captures the history for persistence.
func (h *History) Snapshot() *Session {
	h.saveScroll()
	return &Session{Entries: h.Entries(), Index: h.index}
}

// Restore replaces the history with s and returns the entry to load, if any.
// The caller loads it; Restore does not touch the document.
func (h *History) Restore(s *Session) (Entry, bool) {
	if s == nil || len(s.Entries) == 0 {
		return Entry{}, false
	}
	h.entries = append([]Entry(nil), s.Entries...)
	h.index = min(max(s.Index, 0), len(h.entries)-1)
	return h.entries[h.index], true
}

// RestoreSession replaces the history with s and reloads its current entry
// natively. Stateful entries stay traversable by the navigator.
func (w *Window) RestoreSession(s *Session) bool {
	e, ok := w.History.Restore(s)
	if !ok {
		return false
	}
	w.load(e.URL, false)
	return true
}

// LoadSession reads the session from path.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &s, nil
}

// SaveSession writes s to path.
func SaveSession(path string, s *Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ClearSession removes the session file. A missing file is not an error.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
