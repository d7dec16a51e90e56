// Package typemap implements a heterogeneous map from (TypeID, instance-id)
// to an owned value of that type. It underlies the Injector's instance
// cache; a Map is not safe for concurrent use, so callers guard it with
// their own lock (the Injector guards its Map with its state mutex).
package typemap

import (
	"errors"
	"io"
	"math"

	"github.com/me/mgfw/pkg/typeid"
)

// DefaultInstance is the sentinel instance-id used when a caller does not
// request a specific instance. Chosen as all-ones (math.MaxInt64) so that
// enum-valued instance ids starting at 0 never collide with it.
const DefaultInstance int64 = math.MaxInt64

// ErrAlreadyPresent is returned by Emplace/Insert when the key is already
// mapped.
var ErrAlreadyPresent = errors.New("typemap: key already present")

// ErrNotFound is returned by GetRef when the key is missing.
var ErrNotFound = errors.New("typemap: key not found")

type key struct {
	id       uint32
	instance int64
}

// box type-erases a stored value while retaining enough information for
// GetRef's runtime self-check and for invoking a destructor-equivalent on
// erase.
type box interface {
	typeID() uint32
	close()
}

type typedBox[T any] struct {
	id  uint32
	val T
}

func (b *typedBox[T]) typeID() uint32 { return b.id }

// close calls Close on the stored value if it implements io.Closer. Go has
// no destructors, so this is the closest analogue to the original's
// unique_ptr-driven dtor-on-erase behavior; values that don't need cleanup
// simply don't implement io.Closer.
func (b *typedBox[T]) close() {
	if c, ok := any(b.val).(io.Closer); ok {
		_ = c.Close()
	}
}

// Map is the heterogeneous store itself. The zero value is not usable; use
// New.
type Map struct {
	entries map[key]box
}

// New creates an empty Map.
func New() *Map {
	return &Map{entries: make(map[key]box)}
}

// Contains reports whether an entry exists for (id, instance).
func (m *Map) Contains(id uint32, instance int64) bool {
	_, ok := m.entries[key{id, instance}]
	return ok
}

// Erase removes the entry for (id, instance), if any, closing it first if
// it implements io.Closer.
func (m *Map) Erase(id uint32, instance int64) {
	k := key{id, instance}
	if b, ok := m.entries[k]; ok {
		b.close()
	}
	delete(m.entries, k)
}

// Find returns a pointer to the cached T at instance, or (nil, false) if
// absent.
func Find[T any](m *Map, instance int64) (*T, bool) {
	k := key{typeid.Of[T](), instance}
	b, ok := m.entries[k]
	if !ok {
		return nil, false
	}
	tb, ok := b.(*typedBox[T])
	if !ok {
		return nil, false
	}
	return &tb.val, true
}

// Emplace constructs a T via build and stores it at instance, failing with
// ErrAlreadyPresent if the key is already mapped.
func Emplace[T any](m *Map, instance int64, build func() T) (*T, error) {
	id := typeid.Of[T]()
	k := key{id, instance}
	if _, ok := m.entries[k]; ok {
		return nil, ErrAlreadyPresent
	}
	tb := &typedBox[T]{id: id, val: build()}
	m.entries[k] = tb
	return &tb.val, nil
}

// Insert stores v at instance by value, failing with ErrAlreadyPresent if
// the key is already mapped.
func Insert[T any](m *Map, instance int64, v T) (*T, error) {
	return Emplace(m, instance, func() T { return v })
}

// GetRef returns a reference to the cached T at instance, failing with
// ErrNotFound if missing or if the stored entry's TypeID does not match T's
// (the self-check).
func GetRef[T any](m *Map, instance int64) (*T, error) {
	id := typeid.Of[T]()
	b, ok := m.entries[key{id, instance}]
	if !ok {
		return nil, ErrNotFound
	}
	tb, ok := b.(*typedBox[T])
	if !ok || tb.typeID() != id {
		return nil, ErrNotFound
	}
	return &tb.val, nil
}
