// Package diagnostics records data-quality warnings, fatal error detail and
// the optional parsed-structure dump of a single parse. Each channel is an
// append-only buffer flushed to its destination at most once.
package diagnostics

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Channel identifies one diagnostic stream
type Channel string

const (
	// Warning holds data-quality issues that never block processing
	Warning Channel = "warning"
	// Error holds the detail of fatal resolution and validation failures
	Error Channel = "error"
	// Data holds the suite -> section -> case listing
	Data Channel = "data"
)

// Channels lists every channel in flush order
var Channels = []Channel{Warning, Error, Data}

// Extension returns the file extension used when a channel is written to disk
func (c Channel) Extension() string {
	if c == Error {
		return "log"
	}
	return "txt"
}

// Sink receives diagnostic messages
type Sink interface {
	Record(message any)
}

// Entry is one recorded message. Level and Index are only meaningful for the
// hierarchical data dump; zero values render the message unadorned.
type Entry struct {
	Message any
	Level   int
	Index   int
}

// String renders the entry as written to its destination
func (e Entry) String() string {
	text := Render(e.Message)
	if e.Index > 0 {
		text = fmt.Sprintf("%d. %s", e.Index, text)
	}
	if e.Level > 1 {
		text = strings.Repeat("    ", e.Level-1) + text
	}
	return text
}

// Render formats a message: strings verbatim, errors and Stringers by their
// text, anything else as pretty-printed YAML.
func Render(message any) string {
	switch m := message.(type) {
	case nil:
		return ""
	case string:
		return m
	case error:
		return m.Error()
	case fmt.Stringer:
		return m.String()
	}

	out, err := yaml.Marshal(message)
	if err != nil {
		return fmt.Sprintf("%v", message)
	}
	return strings.TrimSuffix(string(out), "\n")
}

// Buffer is the append-only store behind one channel
type Buffer struct {
	channel Channel
	entries []Entry
}

// Record appends message; nil messages are ignored
func (b *Buffer) Record(message any) {
	if message == nil {
		return
	}
	b.entries = append(b.entries, Entry{Message: message})
}

// Add appends message with a dump level and index
func (b *Buffer) Add(message any, level, index int) {
	if message == nil {
		return
	}
	b.entries = append(b.entries, Entry{Message: message, Level: level, Index: index})
}

// Channel returns the buffer's channel
func (b *Buffer) Channel() Channel {
	return b.channel
}

// Entries returns a copy of the recorded entries
func (b *Buffer) Entries() []Entry {
	return append([]Entry(nil), b.entries...)
}

// Messages returns the raw recorded messages in order
func (b *Buffer) Messages() []any {
	out := make([]any, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.Message
	}
	return out
}

// Lines returns the rendered entries
func (b *Buffer) Lines() []string {
	out := make([]string, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.String()
	}
	return out
}

// Len returns the number of recorded entries
func (b *Buffer) Len() int {
	return len(b.entries)
}
