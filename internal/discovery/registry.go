package discovery

import (
	"net/netip"
	"sync"

	"go.uber.org/zap"

	"github.com/lxdmxwifi/espdmx/internal/logging"
)

// RegistryEventType identifies a registry change.
type RegistryEventType int

const (
	// RecordAdded means a node was seen for the first time.
	RecordAdded RegistryEventType = iota
	// RecordReplaced means a known node replied again. Its record moved to
	// the end of the list.
	RecordReplaced
	// RegistryCleared means all records were removed.
	RegistryCleared
)

func (t RegistryEventType) String() string {
	switch t {
	case RecordAdded:
		return "added"
	case RecordReplaced:
		return "replaced"
	case RegistryCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// RegistryEvent describes a change. Record is nil for RegistryCleared.
type RegistryEvent struct {
	Type   RegistryEventType
	Record *Record
	Len    int
}

// RegistryHandler is a registry change callback.
type RegistryHandler func(RegistryEvent)

// Registry holds the most recent record per source address, in the order the
// records were last received. All methods are safe for concurrent use.
//
// Handlers are called synchronously after the registry lock is released, so
// a handler may read the registry. A panicking handler is recovered.
type Registry struct {
	mu       sync.RWMutex
	records  []*Record
	handlers map[uint64]RegistryHandler
	nextID   uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[uint64]RegistryHandler),
	}
}

// Add stores rec, replacing any record from the same source.
func (r *Registry) Add(rec *Record) {
	r.mu.Lock()
	evType := RecordAdded
	for i, existing := range r.records {
		if existing.Source == rec.Source {
			r.records = append(r.records[:i], r.records[i+1:]...)
			evType = RecordReplaced
			break
		}
	}
	r.records = append(r.records, rec)
	n := len(r.records)
	r.mu.Unlock()

	r.emit(RegistryEvent{Type: evType, Record: rec, Len: n})
}

// List returns a snapshot of the records in order.
func (r *Registry) List() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Record, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// At returns the record at index i, or nil when i is out of range. An index
// taken from an earlier List may be stale by the time At is called.
func (r *Registry) At(i int) *Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.records) {
		return nil
	}
	return r.records[i]
}

// Lookup returns the record for addr, or nil.
func (r *Registry) Lookup(addr netip.Addr) *Record {
	addr = addr.Unmap()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.Source == addr {
			return rec
		}
	}
	return nil
}

// Reset removes every record.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()

	r.emit(RegistryEvent{Type: RegistryCleared})
}

// Subscribe registers a change handler and returns its unsubscribe function.
func (r *Registry) Subscribe(handler RegistryHandler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.handlers[id] = handler
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.handlers, id)
	}
}

func (r *Registry) emit(ev RegistryEvent) {
	r.mu.RLock()
	handlers := make([]RegistryHandler, 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if p := recover(); p != nil {
					logging.Error("registry handler panic",
						zap.Stringer("event", ev.Type),
						zap.Any("panic", p),
					)
				}
			}()
			h(ev)
		}()
	}
}
