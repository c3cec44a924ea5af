package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Destination persists the rendered lines of one channel
type Destination interface {
	Write(channel Channel, lines []string) error
	// Remove drops what an earlier parse left for the channel. A channel
	// that was never written is not an error.
	Remove(channel Channel) error
}

// Log owns the three channels of a single parse
type Log struct {
	dest    Destination
	buffers map[Channel]*Buffer
	flushed map[Channel]bool
}

// NewLog creates a log flushing to dest. A nil dest discards everything.
func NewLog(dest Destination) *Log {
	l := &Log{
		dest:    dest,
		buffers: make(map[Channel]*Buffer, len(Channels)),
		flushed: make(map[Channel]bool, len(Channels)),
	}
	for _, ch := range Channels {
		l.buffers[ch] = &Buffer{channel: ch}
	}
	return l
}

// Warnings returns the warning channel
func (l *Log) Warnings() *Buffer { return l.buffers[Warning] }

// Errors returns the error channel
func (l *Log) Errors() *Buffer { return l.buffers[Error] }

// Data returns the data-dump channel
func (l *Log) Data() *Buffer { return l.buffers[Data] }

// Flush writes the channel to the destination. Only the first call per
// channel writes; later calls return nil.
func (l *Log) Flush(ch Channel) error {
	buf, ok := l.buffers[ch]
	if !ok {
		return fmt.Errorf("unknown diagnostics channel %q", ch)
	}
	if l.flushed[ch] {
		return nil
	}
	l.flushed[ch] = true
	if l.dest == nil {
		return nil
	}
	if err := l.dest.Write(ch, buf.Lines()); err != nil {
		return fmt.Errorf("failed to write %s diagnostics: %w", ch, err)
	}
	return nil
}

// Clear removes the channel's output from an earlier parse
func (l *Log) Clear(ch Channel) error {
	if l.dest == nil {
		return nil
	}
	if err := l.dest.Remove(ch); err != nil {
		return fmt.Errorf("failed to clear %s diagnostics: %w", ch, err)
	}
	return nil
}

// Flushed reports whether the channel has been flushed
func (l *Log) Flushed(ch Channel) bool {
	return l.flushed[ch]
}

// FileDestination writes each channel to {Dir}/{channel}/{Stem}.{ext}
type FileDestination struct {
	Dir  string
	Stem string
}

// NewFileDestination derives the destination from the source document path:
// channel directories are created next to the source unless dir is set.
func NewFileDestination(sourcePath, dir string) *FileDestination {
	if dir == "" {
		dir = filepath.Dir(sourcePath)
	}
	base := filepath.Base(sourcePath)
	return &FileDestination{
		Dir:  dir,
		Stem: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

// Path returns the file a channel is written to
func (d *FileDestination) Path(ch Channel) string {
	return filepath.Join(d.Dir, string(ch), d.Stem+"."+ch.Extension())
}

// Write replaces the channel file with one line per entry
func (d *FileDestination) Write(ch Channel, lines []string) error {
	path := d.Path(ch)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Remove deletes the channel file if it exists
func (d *FileDestination) Remove(ch Channel) error {
	if err := os.Remove(d.Path(ch)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemoryDestination keeps flushed lines in memory
type MemoryDestination struct {
	mu    sync.Mutex
	lines map[Channel][]string
}

// NewMemoryDestination creates an empty in-memory destination
func NewMemoryDestination() *MemoryDestination {
	return &MemoryDestination{lines: make(map[Channel][]string)}
}

// Write stores lines for the channel, replacing previous content
func (d *MemoryDestination) Write(ch Channel, lines []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines[ch] = append([]string(nil), lines...)
	return nil
}

// Remove forgets the channel
func (d *MemoryDestination) Remove(ch Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.lines, ch)
	return nil
}

// Lines returns what was written for the channel
func (d *MemoryDestination) Lines(ch Channel) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lines[ch]...)
}

// Written reports whether the channel was written at all
func (d *MemoryDestination) Written(ch Channel) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.lines[ch]
	return ok
}
