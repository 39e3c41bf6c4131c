package audit

import "sync"

// Writer persists audit events.
//
// Implementations validate the event, fill HashPrev and Hash, and return an
// error when the event could not be stored durably.
type Writer interface {
	Write(event *Event) error
	Close() error

	// LastHash is GenesisHash until the first event is written.
	LastHash() string
}

// NopWriter discards all events. Used when audit logging is disabled.
type NopWriter struct{}

var _ Writer = NopWriter{}

func (NopWriter) Write(*Event) error { return nil }
func (NopWriter) Close() error       { return nil }
func (NopWriter) LastHash() string   { return GenesisHash }

// MultiWriter writes to several writers and fails on the first failure.
type MultiWriter struct {
	writers []Writer
}

var _ Writer = (*MultiWriter)(nil)

// NewMultiWriter creates a writer that writes to all provided writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(event *Event) error {
	for _, w := range m.writers {
		// Each writer chains its own copy so hashes stay per log.
		ev := *event
		if err := w.Write(&ev); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiWriter) Close() error {
	var lastErr error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (m *MultiWriter) LastHash() string {
	if len(m.writers) > 0 {
		return m.writers[0].LastHash()
	}
	return GenesisHash
}

// MemoryWriter keeps chained events in memory. The server exposes them on the
// audit endpoint when no log file is configured.
type MemoryWriter struct {
	mu     sync.Mutex
	chain  chain
	events []Event
}

var _ Writer = (*MemoryWriter)(nil)

// NewMemoryWriter returns an empty in-memory log.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{chain: chain{lastHash: GenesisHash}}
}

func (m *MemoryWriter) Write(event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.chain.seal(event); err != nil {
		return err
	}
	m.chain.commit(event)
	m.events = append(m.events, *event)
	return nil
}

func (m *MemoryWriter) Close() error { return nil }

func (m *MemoryWriter) LastHash() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chain.lastHash
}

// Events returns a copy of the stored events, oldest first.
func (m *MemoryWriter) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
