package joern

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// Record file names, one per stage, kept in the stage's output directory.
// ExportRecordName belongs to the pdg representation.
const (
	ParseRecordName  = "parse_res.txt"
	ExportRecordName = "export_res.txt"
)

// ExportRecordFor returns the export record name for repr. Each
// representation keeps its own record so exporting a second one into the
// same directory does not skip stems finished by the first.
func ExportRecordFor(repr Repr) string {
	if repr == "" || repr == ReprPDG {
		return ExportRecordName
	}
	return "export_" + string(repr) + "_res.txt"
}

// Record is a durable, append-only set of stems that completed a stage.
// The file holds one stem per line. Appends are serialized within the
// process by a mutex and across processes by an advisory lock file, and
// are fsynced before Append returns. Entries are never removed.
type Record struct {
	path  string
	lock  *flock.Flock
	mu    sync.RWMutex
	stems map[string]bool
}

// OpenRecord opens (creating if needed) the record at path and loads it.
func OpenRecord(path string) (*Record, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open record %s: %w", path, err)
	}
	f.Close()

	r := &Record{
		path:  path,
		lock:  flock.New(path + ".lock"),
		stems: make(map[string]bool),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the record file path.
func (r *Record) Path() string {
	return r.path
}

// Contains reports whether stem is recorded.
func (r *Record) Contains(stem string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stems[stem]
}

// Len returns the number of recorded stems.
func (r *Record) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stems)
}

// Stems returns the recorded stems, sorted.
func (r *Record) Stems() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.stems))
	for s := range r.stems {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Reload re-reads the file, picking up entries appended by other processes.
func (r *Record) Reload() error {
	stems, err := readStems(r.path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for s := range stems {
		r.stems[s] = true
	}
	return nil
}

// Append durably records stem. Recording an existing stem is a no-op.
func (r *Record) Append(stem string) error {
	stem = strings.TrimSpace(stem)
	if stem == "" || strings.ContainsAny(stem, "\r\n") {
		return fmt.Errorf("invalid stem %q", stem)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock record: %w", err)
	}
	defer r.lock.Unlock()

	// Another process may have appended since we loaded.
	onDisk, err := readStems(r.path)
	if err != nil {
		return err
	}
	for s := range onDisk {
		r.stems[s] = true
	}
	if r.stems[stem] {
		return nil
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open record for append: %w", err)
	}
	defer f.Close()

	line := stem + "\n"
	if needsNewline(r.path) {
		line = "\n" + line
	}
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append to record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync record: %w", err)
	}

	r.stems[stem] = true
	return nil
}

func readStems(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", path, err)
	}
	defer f.Close()

	stems := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			stems[s] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan record %s: %w", path, err)
	}
	return stems, nil
}

// needsNewline reports whether the file is non-empty and lacks a trailing newline.
func needsNewline(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return false
	}
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, info.Size()-1); err != nil {
		return false
	}
	return buf[0] != '\n'
}
