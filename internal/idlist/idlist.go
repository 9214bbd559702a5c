// Package idlist provides an ordered list of values indexed by key.
//
// Routing groups, constraint node sets and the stream priority list are
// all ordered collections that must unlink a member in O(1) when a node
// disappears. A List keeps the order in a container/list and a key to
// element map beside it.
package idlist

import (
	"container/list"
	"iter"
)

type item[K comparable, V any] struct {
	key   K
	value V
}

// List is an ordered collection of unique keys, each carrying a value.
// The zero value is not usable; call New.
type List[K comparable, V any] struct {
	order *list.List
	index map[K]*list.Element
}

// New returns an empty list.
func New[K comparable, V any]() *List[K, V] {
	return &List[K, V]{
		order: list.New(),
		index: make(map[K]*list.Element),
	}
}

// Len returns the number of members.
func (l *List[K, V]) Len() int {
	return l.order.Len()
}

// Contains reports whether key is a member.
func (l *List[K, V]) Contains(key K) bool {
	_, ok := l.index[key]
	return ok
}

// Get returns the value stored under key.
func (l *List[K, V]) Get(key K) (V, bool) {
	if e, ok := l.index[key]; ok {
		return e.Value.(item[K, V]).value, true
	}
	var zero V
	return zero, false
}

// PushBack appends key. It returns false, leaving the list unchanged, when
// key is already a member.
func (l *List[K, V]) PushBack(key K, value V) bool {
	if l.Contains(key) {
		return false
	}
	l.index[key] = l.order.PushBack(item[K, V]{key: key, value: value})
	return true
}

// InsertBefore inserts key in front of the first member for which before
// returns true, or at the back when there is none. Members that compare
// equal therefore keep their insertion order as long as before is strict.
// It returns false when key is already a member.
func (l *List[K, V]) InsertBefore(key K, value V, before func(K, V) bool) bool {
	if l.Contains(key) {
		return false
	}
	it := item[K, V]{key: key, value: value}
	for e := l.order.Front(); e != nil; e = e.Next() {
		cur := e.Value.(item[K, V])
		if before(cur.key, cur.value) {
			l.index[key] = l.order.InsertBefore(it, e)
			return true
		}
	}
	l.index[key] = l.order.PushBack(it)
	return true
}

// Remove unlinks key and returns its value.
func (l *List[K, V]) Remove(key K) (V, bool) {
	e, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(l.index, key)
	return l.order.Remove(e).(item[K, V]).value, true
}

// All iterates over the members in order. The list must not be modified
// during iteration; iterate over Keys() instead when it may be.
func (l *List[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for e := l.order.Front(); e != nil; e = e.Next() {
			it := e.Value.(item[K, V])
			if !yield(it.key, it.value) {
				return
			}
		}
	}
}

// Keys returns a snapshot of the member keys in order.
func (l *List[K, V]) Keys() []K {
	out := make([]K, 0, l.order.Len())
	for k := range l.All() {
		out = append(out, k)
	}
	return out
}

// Values returns a snapshot of the member values in order.
func (l *List[K, V]) Values() []V {
	out := make([]V, 0, l.order.Len())
	for _, v := range l.All() {
		out = append(out, v)
	}
	return out
}
