package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEntry_Line(t *testing.T) {
	e := Entry{
		Time:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Severity: SeverityDeny,
		Event:    "command-deny",
		Detail:   "rm -rf /etc [cmd-rm-system-path] recursive forced delete",
	}
	got := e.Line()
	want := "2026-03-01T12:00:00Z [DENY] command-deny: rm -rf /etc [cmd-rm-system-path] recursive forced delete"
	if got != want {
		t.Errorf("Line() = %q, want %q", got, want)
	}

	parsed, ok := ParseLine(got)
	if !ok {
		t.Fatalf("ParseLine failed on %q", got)
	}
	if parsed.Severity != SeverityDeny || parsed.Event != "command-deny" {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}

func TestEntry_Line_SanitizesNewlines(t *testing.T) {
	e := Entry{
		Time:     time.Now(),
		Severity: SeverityError,
		Event:    "guard-failure",
		Detail:   "command: panic:\nmulti\r\nline",
	}
	if strings.ContainsAny(e.Line(), "\n\r") {
		t.Errorf("Line() contains newline: %q", e.Line())
	}
}

func TestLogger_LazyCreate(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "nested", "dir", "audit.log")

	lg := New(logPath)
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Fatal("log file should not exist before first append")
	}

	if err := lg.Append(Entry{Severity: SeverityInfo, Event: "domain-allow", Detail: "x"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("log file missing after append: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected permissions 0600, got %04o", perm)
	}
}

func TestLogger_Rotation(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")

	lg := NewWithLimits(logPath, 2048, 10)
	for i := 0; i < 60; i++ {
		e := Entry{
			Severity: SeverityDeny,
			Event:    "command-deny",
			Detail:   fmt.Sprintf("entry %03d padding padding padding padding", i),
		}
		if err := lg.Append(e); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("log does not end with a newline after rotation")
	}

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	for i, line := range lines {
		if _, ok := ParseLine(line); !ok {
			t.Errorf("line %d is malformed after rotation: %q", i, line)
		}
	}

	// The retained lines must be a suffix of the true entry sequence ending
	// with the newest entry.
	last := lines[len(lines)-1]
	if !strings.Contains(last, "entry 059") {
		t.Errorf("newest entry lost by rotation; last line: %q", last)
	}
	if len(lines) > 11 {
		t.Errorf("rotation kept %d lines, want at most keep+1", len(lines))
	}
}

func TestLogger_ConcurrentAppends(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")
	lg := New(logPath)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = lg.Append(Entry{
					Severity: SeverityInfo,
					Event:    "domain-allow",
					Detail:   fmt.Sprintf("writer %d entry %d", g, i),
				})
			}
		}(g)
	}
	wg.Wait()

	entries, err := lg.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 200 {
		t.Errorf("expected 200 entries, got %d", len(entries))
	}

	data, _ := os.ReadFile(logPath)
	for i, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		if _, ok := ParseLine(line); !ok {
			t.Errorf("interleaved or partial line %d: %q", i, line)
		}
	}
}

func TestLogger_ReadMissingFile(t *testing.T) {
	lg := New(filepath.Join(t.TempDir(), "nope.log"))
	entries, err := lg.Read()
	if err != nil {
		t.Fatalf("Read of missing file errored: %v", err)
	}
	if entries != nil {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}
