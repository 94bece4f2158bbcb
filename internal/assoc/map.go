package assoc

// Ownership tags an entry as owned by the map or borrowed from the caller.
type Ownership int

const (
	// ByValue entries are owned by the map and released with it.
	ByValue Ownership = iota

	// ByReference entries point at caller-owned payloads that must
	// survive map teardown.
	ByReference
)

// String returns the ownership tag name.
func (o Ownership) String() string {
	switch o {
	case ByValue:
		return "by_value"
	case ByReference:
		return "by_reference"
	default:
		return "unknown"
	}
}

// Releaser is implemented by payloads that hold resources of their own.
// Release is called exactly once for an owned payload when the map lets
// go of it.
type Releaser interface {
	Release()
}

// Slot is a payload together with its ownership tag.
// Construct slots with Owned or Borrowed.
type Slot[V any] struct {
	value     V
	ownership Ownership
}

// Owned wraps v as a payload owned by the map.
func Owned[V any](v V) Slot[V] {
	return Slot[V]{value: v, ownership: ByValue}
}

// Borrowed wraps v as a caller-owned payload.
func Borrowed[V any](v V) Slot[V] {
	return Slot[V]{value: v, ownership: ByReference}
}

// Value returns the wrapped payload.
func (s Slot[V]) Value() V {
	return s.value
}

// Ownership returns the slot's ownership tag.
func (s Slot[V]) Ownership() Ownership {
	return s.ownership
}

type entry[V any] struct {
	key  string
	slot Slot[V]
}

// Map is a string-keyed associative map with ownership-aware teardown.
type Map[V any] struct {
	index   map[string]int
	entries []entry[V]
}

// New creates an empty map.
func New[V any]() *Map[V] {
	return &Map[V]{
		index: make(map[string]int),
	}
}

// Put inserts or overwrites the entry for key.
// When an owned payload is overwritten it is released first.
func (m *Map[V]) Put(key string, s Slot[V]) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		release(m.entries[i].slot)
		m.entries[i].slot = s
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, entry[V]{key: key, slot: s})
}

// Get returns the payload stored under key.
// The boolean is false when key is absent; the payload is then the zero value.
func (m *Map[V]) Get(key string) (V, bool) {
	if i, ok := m.index[key]; ok {
		return m.entries[i].slot.value, true
	}
	var zero V
	return zero, false
}

// Lookup returns the full slot stored under key, including its ownership.
func (m *Map[V]) Lookup(key string) (Slot[V], bool) {
	if i, ok := m.index[key]; ok {
		return m.entries[i].slot, true
	}
	return Slot[V]{}, false
}

// Has reports whether key is present.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.index[key]
	return ok
}

// Size returns the number of entries.
func (m *Map[V]) Size() int {
	return len(m.entries)
}

// Keys returns all keys in first-insertion order.
func (m *Map[V]) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
	}
	return keys
}

// Range calls fn for each entry in insertion order until fn returns false.
// fn must not modify the map.
func (m *Map[V]) Range(fn func(key string, v V) bool) {
	for _, e := range m.entries {
		if !fn(e.key, e.slot.value) {
			return
		}
	}
}

// Close releases every owned payload and empties the map.
// Borrowed payloads are left untouched. Close is idempotent.
func (m *Map[V]) Close() {
	for _, e := range m.entries {
		release(e.slot)
	}
	m.entries = nil
	m.index = make(map[string]int)
}

func release[V any](s Slot[V]) {
	if s.ownership != ByValue {
		return
	}
	if r, ok := any(s.value).(Releaser); ok {
		r.Release()
	}
}
