package queue

import (
	"fmt"
	"sync"

	"github.com/me/mgfw/pkg/logging"
	"github.com/me/mgfw/pkg/typeid"
)

// ErrTypeMismatch is returned by GetWriter/GetReader when a channel id is
// reused with a different T than the one it was first bound with.
type ErrTypeMismatch struct {
	ID            uint64
	StoredType    string
	RequestedType string
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("queue: type mismatch on channel %d (stored=%s, requested=%s)",
		e.ID, e.StoredType, e.RequestedType)
}

// hiveEntry type-erases a *Queue[T] so Hive can hold heterogeneous queues
// in one map, while still being able to report the bound type and close it.
type hiveEntry interface {
	typeID() uint32
	typeName() string
	close()
}

type typedEntry[T any] struct {
	q *Queue[T]
}

func (e *typedEntry[T]) typeID() uint32   { return typeid.Of[T]() }
func (e *typedEntry[T]) typeName() string { return typeid.NameOf[T]() }
func (e *typedEntry[T]) close()           { e.q.Close() }

// Hive manages MessageQueues, vending Reader/Writer endpoints for the queue
// bound to a given channel id. Queues are created lazily on first use.
type Hive struct {
	mu     sync.Mutex
	sink   logging.Sink
	queues map[uint64]hiveEntry
}

// NewHive creates an empty Hive using sink for every queue it creates.
func NewHive(sink logging.Sink) *Hive {
	return &Hive{sink: sink, queues: make(map[uint64]hiveEntry)}
}

// GetWriter returns a Writer for channel id, creating the underlying queue
// bound to T if this is the first request for id.
func GetWriter[T any](h *Hive, id uint64) (*Writer[T], error) {
	q, err := getOrCreate[T](h, id)
	if err != nil {
		return nil, err
	}
	return &Writer[T]{q: q}, nil
}

// GetReader returns a Reader for channel id, creating the underlying queue
// bound to T if this is the first request for id.
func GetReader[T any](h *Hive, id uint64) (*Reader[T], error) {
	q, err := getOrCreate[T](h, id)
	if err != nil {
		return nil, err
	}
	return &Reader[T]{q: q}, nil
}

func getOrCreate[T any](h *Hive, id uint64) (*Queue[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.queues[id]
	if !ok {
		q := NewQueue[T](h.sink, id)
		h.queues[id] = &typedEntry[T]{q: q}
		return q, nil
	}

	typed, ok := entry.(*typedEntry[T])
	if !ok {
		return nil, &ErrTypeMismatch{
			ID:            id,
			StoredType:    entry.typeName(),
			RequestedType: typeid.NameOf[T](),
		}
	}
	return typed.q, nil
}

// Channels reports the type name bound to each channel id currently in use,
// for debug introspection.
func (h *Hive) Channels() map[uint64]string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[uint64]string, len(h.queues))
	for id, e := range h.queues {
		out[id] = e.typeName()
	}
	return out
}

// Close closes every queue the Hive owns, emitting residual-message
// warnings for any that still hold messages.
func (h *Hive) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.queues {
		e.close()
	}
}
