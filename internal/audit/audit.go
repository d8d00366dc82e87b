// Package audit implements the guard's append-only, rotating event log.
//
// One line per entry, `<RFC3339 UTC> [<SEVERITY>] <event>: <detail>`. The log
// is the single shared resource between concurrent guard invocations, so every
// append is a single write under the logger's mutex and rotation replaces the
// file atomically via rename.
package audit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityAsk   Severity = "ASK"
	SeverityDeny  Severity = "DENY"
	SeverityError Severity = "ERROR"
)

// Entry is one immutable audit record. A zero Time is stamped at append.
type Entry struct {
	Time     time.Time
	Severity Severity
	Event    string
	Detail   string
}

// Line renders the entry in the wire format, without a trailing newline.
func (e Entry) Line() string {
	detail := sanitize(e.Detail)
	return fmt.Sprintf("%s [%s] %s: %s",
		e.Time.UTC().Format(time.RFC3339), e.Severity, sanitize(e.Event), detail)
}

// ParseLine is the inverse of Line, used by the log viewer. Malformed lines
// return ok=false and are skipped by callers.
func ParseLine(line string) (Entry, bool) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) != 3 {
		return Entry{}, false
	}
	ts, err := time.Parse(time.RFC3339, fields[0])
	if err != nil {
		return Entry{}, false
	}
	if !strings.HasPrefix(fields[1], "[") || !strings.HasSuffix(fields[1], "]") {
		return Entry{}, false
	}
	sev := Severity(strings.Trim(fields[1], "[]"))
	event, detail, found := strings.Cut(fields[2], ": ")
	if !found {
		return Entry{}, false
	}
	return Entry{Time: ts, Severity: sev, Event: event, Detail: detail}, true
}

// sanitize keeps the one-line-per-entry invariant even when reasons or error
// text contain newlines.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

const (
	// DefaultMaxBytes is the rotation threshold.
	DefaultMaxBytes = 1 << 20 // 1 MiB

	// DefaultKeepEntries is how many of the newest entries survive rotation.
	DefaultKeepEntries = 1000
)

// Logger appends entries to a single log file. The file is created lazily on
// first append, including missing parent directories. Safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	keep     int
}

func New(path string) *Logger {
	return &Logger{path: path, maxBytes: DefaultMaxBytes, keep: DefaultKeepEntries}
}

// NewWithLimits is New with an explicit rotation threshold and retention
// count, for tests and non-default deployments.
func NewWithLimits(path string, maxBytes int64, keep int) *Logger {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if keep <= 0 {
		keep = DefaultKeepEntries
	}
	return &Logger{path: path, maxBytes: maxBytes, keep: keep}
}

// Path returns the log file location.
func (l *Logger) Path() string { return l.path }

// Append writes one entry as a single atomic write, then rotates if the file
// has grown past the threshold.
func (l *Logger) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	_, werr := f.Write([]byte(e.Line() + "\n"))
	info, serr := f.Stat()
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	if cerr != nil {
		return cerr
	}

	if serr == nil && info.Size() > l.maxBytes {
		return l.rotate()
	}
	return nil
}

// rotate truncates the log to its newest entries: read the file, keep the
// tail, write it to a temp file in the same directory, and rename it over the
// original. Entries appended by other processes between the read and the
// rename can be lost; rotation is housekeeping, not a durability guarantee.
// Caller holds l.mu.
func (l *Logger) rotate() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return err
	}

	lines := bytes.Split(bytes.TrimSuffix(data, []byte("\n")), []byte("\n"))
	if len(lines) > l.keep {
		lines = lines[len(lines)-l.keep:]
	}
	tail := append(bytes.Join(lines, []byte("\n")), '\n')
	if len(data) == 0 {
		tail = nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".audit-rotate-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(tail); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, l.path)
}

// Read returns every well-formed entry currently in the log. A missing file
// yields no entries and no error.
func (l *Logger) Read() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if e, ok := ParseLine(line); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
