// Package egraph hashcons table.
// This file implements the global structural-deduplication table
// mapping canonical e-nodes to class ids. It hashes nodes with xxhash
// and resolves collisions with exact comparison inside small buckets,
// so a hash collision can never conflate two distinct nodes.
package egraph

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// memoEntry pairs a canonical node with the canonical id of the class
// that contains it.
type memoEntry struct {
	node  Node
	class ClassID
}

// memoTable is the hashcons: every live canonical e-node maps to the
// canonical id of its class. It is the source of the e-graph's
// compactness; Add consults it before allocating, and rebuild repairs
// it as canonical children change.
type memoTable struct {
	buckets map[uint64][]memoEntry
	count   int
}

func newMemoTable() *memoTable {
	return &memoTable{buckets: make(map[uint64][]memoEntry)}
}

// hashNode computes a structural hash of (op, children). Children must
// already be canonical for lookups to be meaningful.
func hashNode(n Node) uint64 {
	var d xxhash.Digest
	d.Reset()
	_, _ = d.WriteString(n.Op())
	var buf [8]byte
	// Separate op from children so ("ab", [1]) and ("a", ["b1"-ish])
	// cannot collide structurally.
	binary.LittleEndian.PutUint64(buf[:], uint64(n.Arity()))
	_, _ = d.Write(buf[:])
	for i := 0; i < n.Arity(); i++ {
		binary.LittleEndian.PutUint64(buf[:], uint64(n.Child(i)))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// lookup returns the class id for a canonical node, if present.
func (m *memoTable) lookup(n Node) (ClassID, bool) {
	for _, e := range m.buckets[hashNode(n)] {
		if sameNode(e.node, n) {
			return e.class, true
		}
	}
	return InvalidID, false
}

// insert records node -> class, replacing any existing entry for the
// same node. Returns the previously mapped class if one existed.
func (m *memoTable) insert(n Node, class ClassID) (ClassID, bool) {
	h := hashNode(n)
	bucket := m.buckets[h]
	for i, e := range bucket {
		if sameNode(e.node, n) {
			prev := e.class
			bucket[i].class = class
			return prev, true
		}
	}
	m.buckets[h] = append(bucket, memoEntry{node: n, class: class})
	m.count++
	return InvalidID, false
}

// remove deletes the entry for a node, if present.
func (m *memoTable) remove(n Node) {
	h := hashNode(n)
	bucket := m.buckets[h]
	for i, e := range bucket {
		if sameNode(e.node, n) {
			last := len(bucket) - 1
			bucket[i] = bucket[last]
			bucket = bucket[:last]
			if len(bucket) == 0 {
				delete(m.buckets, h)
			} else {
				m.buckets[h] = bucket
			}
			m.count--
			return
		}
	}
}

// size returns the number of live entries.
func (m *memoTable) size() int { return m.count }
