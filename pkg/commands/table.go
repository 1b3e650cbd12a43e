// Package commands loads the spoken-phrase command table.
//
// The table is a line-oriented text file where each line maps a phrase
// fragment to an integer command code:
//
//	停止-0
//	开始定位-1
//	向左转-300
//
// Entries keep their file order. Matching is first-match-wins in that order,
// so an earlier entry always shadows a later one whose phrase also appears in
// the same transcript.
package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Entry maps a phrase fragment to a command code.
type Entry struct {
	Phrase string `json:"phrase"`
	Code   int    `json:"code"`
}

// Table is an ordered, immutable list of entries.
// The zero value is an empty table.
type Table struct {
	entries []Entry
}

// ConfigError is returned when the command source cannot be used at all.
type ConfigError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("commands: %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ErrNoEntries is wrapped in a ConfigError when no line of the source parses.
var ErrNoEntries = errors.New("no valid command entries")

// New builds a table from entries in priority order.
func New(entries ...Entry) *Table {
	t := &Table{entries: make([]Entry, len(entries))}
	copy(t.entries, entries)
	return t
}

// LoadFile reads a command table from path.
func LoadFile(path string, logger *slog.Logger) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: err}
	}
	defer f.Close()

	t, err := parse(f, path, logger)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Parse reads a command table from r.
// Malformed lines are logged and skipped.
func Parse(r io.Reader, logger *slog.Logger) (*Table, error) {
	return parse(r, "reader", logger)
}

func parse(r io.Reader, source string, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "commands", "source", source)

	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		entry, err := ParseLine(line)
		if err != nil {
			logger.Warn("skipping malformed command line", "line", lineNo, "text", line, "error", err)
			continue
		}
		logger.Debug("loaded command", "phrase", entry.Phrase, "code", entry.Code)
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ConfigError{Source: source, Err: err}
	}
	if len(entries) == 0 {
		return nil, &ConfigError{Source: source, Err: ErrNoEntries}
	}

	logger.Info("command table loaded", "entries", len(entries))
	return &Table{entries: entries}, nil
}

// ParseLine parses one `<phrase>-<code>` line.
// The phrase ends at the first '-'; the code must be a non-negative integer.
func ParseLine(line string) (Entry, error) {
	phrase, rawCode, ok := strings.Cut(strings.TrimSpace(line), "-")
	if !ok {
		return Entry{}, fmt.Errorf("missing '-' separator")
	}
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return Entry{}, fmt.Errorf("empty phrase")
	}
	code, err := strconv.Atoi(strings.TrimSpace(rawCode))
	if err != nil {
		return Entry{}, fmt.Errorf("invalid code %q: %w", rawCode, err)
	}
	if code < 0 {
		return Entry{}, fmt.Errorf("negative code %d", code)
	}
	return Entry{Phrase: phrase, Code: code}, nil
}

// Match returns the first entry whose phrase occurs in text.
func (t *Table) Match(text string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	for _, e := range t.entries {
		if strings.Contains(text, e.Phrase) {
			return e, true
		}
	}
	return Entry{}, false
}

// FindCodeByPhrase returns the code of the first entry whose phrase occurs in text.
func (t *Table) FindCodeByPhrase(text string) (int, bool) {
	e, ok := t.Match(text)
	return e.Code, ok
}

// FindEntryByCode returns the first entry carrying code.
func (t *Table) FindEntryByCode(code int) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	for _, e := range t.entries {
		if e.Code == code {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns a copy of the entries in priority order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
