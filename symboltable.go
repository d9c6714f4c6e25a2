package cbor

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// SymbolTable canonicalizes decoded field-name bytes into shared, interned
// strings keyed by packing the name's UTF-8 bytes into 32-bit little-endian
// quads, per spec.md §4.3. It is typically owned by whatever constructs a
// family of Decoders (analogous to the factory spec.md treats as an
// external collaborator) and shared across their lifetimes so common field
// names are interned once.
//
// Find is safe for concurrent use by many Decoders. Intern must linearize:
// concurrent Intern calls for the *same* byte sequence must agree on one
// canonical result ("first writer wins"). This is implemented with a
// sync.RWMutex for the common read path plus golang.org/x/sync/singleflight
// to coalesce concurrent first-time inserts of the same name into a single
// winner, rather than serializing all interning behind one exclusive lock
// (grounded on uniyakcom-beat's go.mod, the one retrieved repo that
// imports golang.org/x/sync).
type SymbolTable struct {
	mu    sync.RWMutex
	names map[string]string
	group singleflight.Group

	maxNames int // 0 means unlimited
}

// NewSymbolTable returns an empty table. maxNames caps the number of
// distinct interned names; once reached, new names bypass interning and
// are returned as-is (find always misses for them). A maxNames of 0 means
// unlimited.
func NewSymbolTable(maxNames int) *SymbolTable {
	return &SymbolTable{
		names:    make(map[string]string),
		maxNames: maxNames,
	}
}

// quadKey unpacks two little-endian quads holding the first length bytes
// (at most 8) of a name back into the string the table is keyed by; longer
// names are looked up by their string through Find. Either way, content
// equality is what determines identity, exactly as spec.md requires; the
// quad-packing only exists to let a decoder avoid allocating a string
// before it knows whether one already exists (see decoder_string.go).
func quadKey(q1, q2 uint32, length int) string {
	b := make([]byte, length)
	for i := 0; i < length && i < 4; i++ {
		b[i] = byte(q1 >> (8 * i))
	}
	for i := 4; i < length && i < 8; i++ {
		b[i] = byte(q2 >> (8 * (i - 4)))
	}
	return string(b)
}

// Find looks up a name already known to the table without interning it.
// It returns the canonical string and true on a hit.
func (t *SymbolTable) Find(name string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	canon, ok := t.names[name]
	return canon, ok
}

// FindQuads is the quad-keyed variant of Find, used by the decoder's fast
// path for names up to 8 bytes that avoids decoding UTF-8 before probing
// the table.
func (t *SymbolTable) FindQuads(q1, q2 uint32, length int) (string, bool) {
	return t.Find(quadKey(q1, q2, length))
}

// Intern returns the canonical string equal to name, inserting it if this
// is the first time the table has seen it. Concurrent Intern calls for the
// same name are coalesced: exactly one of them performs the insert, and
// all of them observe the same canonical value.
func (t *SymbolTable) Intern(name string) string {
	if canon, ok := t.Find(name); ok {
		return canon
	}

	result, _, _ := t.group.Do(name, func() (interface{}, error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if canon, ok := t.names[name]; ok {
			return canon, nil
		}
		if t.maxNames > 0 && len(t.names) >= t.maxNames {
			return name, nil
		}
		// Copy the key so it doesn't keep a larger backing array (e.g.
		// a decoder's text accumulator) alive.
		canon := string([]byte(name))
		t.names[canon] = canon
		return canon, nil
	})
	return result.(string)
}

// Len reports the number of distinct names currently interned.
func (t *SymbolTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}
