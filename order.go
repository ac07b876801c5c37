package asyncq

import (
	"cmp"
	"fmt"
	"slices"
)

// orderRestorer releases keyed completions to a sink.
//
// Unordered, it passes every completion through as it arrives. Ordered, it keeps
// a cursor at the next expected key: a completion carrying that key is released
// at once, followed by any buffered successors that are now contiguous; a
// completion with a later key is held in a slice sorted by key. Keys are unique
// and each is delivered once, so a key below the cursor is a broken invariant.
//
// The restorer is owned by the consuming loop and is not safe for concurrent use.
type orderRestorer[E any] struct {
	ordered bool
	next    int
	held    []keyed[E]
}

type keyed[E any] struct {
	key int
	val E
}

func newOrderRestorer[E any](ordered bool) *orderRestorer[E] {
	return &orderRestorer[E]{ordered: ordered}
}

// push accepts the completion with the given key and releases whatever became
// releasable. It stops at, and returns, the first error from emit.
func (o *orderRestorer[E]) push(key int, v E, emit func(E) error) error {
	if !o.ordered {
		return emit(v)
	}
	if key < o.next {
		panic(fmt.Sprintf("asyncq: completion %d delivered after %d was released", key, o.next))
	}
	if key > o.next {
		i, found := slices.BinarySearchFunc(o.held, key, func(k keyed[E], target int) int {
			return cmp.Compare(k.key, target)
		})
		if found {
			panic(fmt.Sprintf("asyncq: completion %d delivered twice", key))
		}
		o.held = slices.Insert(o.held, i, keyed[E]{key: key, val: v})
		return nil
	}

	o.next++
	if err := emit(v); err != nil {
		return err
	}
	for len(o.held) > 0 && o.held[0].key == o.next {
		h := o.pop()
		o.next++
		if err := emit(h.val); err != nil {
			return err
		}
	}
	return nil
}

// flush releases every held completion in ascending key order, gaps included.
func (o *orderRestorer[E]) flush(emit func(E) error) error {
	for len(o.held) > 0 {
		h := o.pop()
		o.next = h.key + 1
		if err := emit(h.val); err != nil {
			return err
		}
	}
	return nil
}

func (o *orderRestorer[E]) pop() keyed[E] {
	h := o.held[0]
	o.held[0] = keyed[E]{}
	o.held = o.held[1:]
	return h
}

// pending returns the number of held completions.
func (o *orderRestorer[E]) pending() int { return len(o.held) }
