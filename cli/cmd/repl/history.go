package repl

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync"
)

const baseHistory = "history.utf8"

// defaultHistoryLimit bounds the number of remembered entries.
const defaultHistoryLimit = 1000

// History is the list of previously entered lines, persisted one per line
// in a file. Entries are unique: re-entering a line moves it to the end.
type History struct {
	path    string
	limit   int
	entries []string
	mu      sync.RWMutex
}

// NewHistory creates a History backed by the file at path. An empty path
// keeps history in memory only.
func NewHistory(path string) *History {
	return &History{path: path, limit: defaultHistoryLimit}
}

// Load replaces the entries with the contents of the history file.
// A missing file is not an error.
func (h *History) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.path == "" {
		return nil
	}

	file, err := os.Open(h.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return err
	}
	defer file.Close()

	h.entries = nil

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			h.add(line)
		}
	}

	return scanner.Err()
}

// Add appends line to the history and persists it.
func (h *History) Add(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return nil
	}

	if h.add(line) {
		return h.rewrite()
	}

	return h.append(line)
}

// add records line, reporting whether earlier entries were removed.
// Must be called with h.mu held.
func (h *History) add(line string) (removed bool) {
	if i := slices.Index(h.entries, line); i >= 0 {
		h.entries = slices.Delete(h.entries, i, i+1)
		removed = true
	}

	h.entries = append(h.entries, line)

	if over := len(h.entries) - h.limit; h.limit > 0 && over > 0 {
		h.entries = slices.Delete(h.entries, 0, over)
		removed = true
	}

	return removed
}

func (h *History) append(line string) error {
	if h.path == "" {
		return nil
	}

	file, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(line + "\n")

	return err
}

// rewrite replaces the history file with the current entries.
// Must be called with h.mu held.
func (h *History) rewrite() error {
	if h.path == "" {
		return nil
	}

	var sb strings.Builder

	for _, line := range h.entries {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	return os.WriteFile(h.path, []byte(sb.String()), 0o600)
}

// Line returns the entry at index i; index 0 is the oldest.
func (h *History) Line(i int) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if i < 0 || i >= len(h.entries) {
		return "", ErrOutOfBounds
	}

	return h.entries[i], nil
}

// Len returns the number of history entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// Entries returns a copy of all entries, oldest first.
func (h *History) Entries() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return slices.Clone(h.entries)
}
