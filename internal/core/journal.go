package core

import (
	"fmt"
	"sync"
	"time"
)

// EntryLevel tags an operator log entry.
type EntryLevel string

const (
	LevelSystem  EntryLevel = "system"
	LevelError   EntryLevel = "error"
	LevelMessage EntryLevel = "message"
)

// Entry is one line of the operator log.
type Entry struct {
	Time  time.Time  `json:"time"`
	Level EntryLevel `json:"level"`
	Text  string     `json:"text"`
}

// Journal keeps the most recent operator log entries and fans new ones out
// to subscribers. A nil *Journal discards everything.
type Journal struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	subs     map[chan Entry]struct{}
}

// NewJournal keeps at most capacity entries; capacity <= 0 keeps none.
func NewJournal(capacity int) *Journal {
	return &Journal{
		capacity: capacity,
		subs:     make(map[chan Entry]struct{}),
	}
}

// System records a lifecycle line (start, stop, connect, disconnect).
func (j *Journal) System(format string, args ...any) {
	j.Append(LevelSystem, fmt.Sprintf(format, args...))
}

// Error records a dropped frame or failed operation.
func (j *Journal) Error(format string, args ...any) {
	j.Append(LevelError, fmt.Sprintf(format, args...))
}

// Message records relayed chat traffic.
func (j *Journal) Message(format string, args ...any) {
	j.Append(LevelMessage, fmt.Sprintf(format, args...))
}

// Append stores an entry and delivers it to subscribers.
func (j *Journal) Append(level EntryLevel, text string) {
	if j == nil || text == "" {
		return
	}
	entry := Entry{Time: time.Now().UTC(), Level: level, Text: text}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.capacity > 0 {
		if len(j.entries) == j.capacity {
			copy(j.entries, j.entries[1:])
			j.entries = j.entries[:len(j.entries)-1]
		}
		j.entries = append(j.entries, entry)
	}

	for sub := range j.subs {
		select {
		case sub <- entry:
		default:
			// Drop if slow consumer.
		}
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (j *Journal) Entries() []Entry {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Entry(nil), j.entries...)
}

// Clear drops retained entries. Subscribers are kept.
func (j *Journal) Clear() {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.entries = nil
	j.mu.Unlock()
}

// Subscribe returns a channel of new entries and a function that ends the subscription.
func (j *Journal) Subscribe(buffer int) (<-chan Entry, func()) {
	ch := make(chan Entry, buffer)
	if j == nil {
		close(ch)
		return ch, func() {}
	}

	j.mu.Lock()
	j.subs[ch] = struct{}{}
	j.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			j.mu.Lock()
			delete(j.subs, ch)
			j.mu.Unlock()
			close(ch)
		})
	}
}
