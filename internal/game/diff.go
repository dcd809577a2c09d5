package game

import (
	"cmp"
	"slices"
)

// ChangeKind classifies a map difference.
type ChangeKind uint8

const (
	ChangeAdd ChangeKind = iota + 1
	ChangeRemove
	ChangeUpdate
)

// String returns the change name.
func (c ChangeKind) String() string {
	switch c {
	case ChangeAdd:
		return "add"
	case ChangeRemove:
		return "remove"
	case ChangeUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Change is one key that differs between two maps.
type Change[K cmp.Ordered, V comparable] struct {
	Kind ChangeKind
	Key  K
	Old  V
	New  V
}

// Diff compares two maps and returns the changes ordered by key.
func Diff[K cmp.Ordered, V comparable](prev, next map[K]V) []Change[K, V] {
	var out []Change[K, V]
	for k, ov := range prev {
		nv, ok := next[k]
		switch {
		case !ok:
			out = append(out, Change[K, V]{Kind: ChangeRemove, Key: k, Old: ov})
		case nv != ov:
			out = append(out, Change[K, V]{Kind: ChangeUpdate, Key: k, Old: ov, New: nv})
		}
	}
	for k, nv := range next {
		if _, ok := prev[k]; !ok {
			out = append(out, Change[K, V]{Kind: ChangeAdd, Key: k, New: nv})
		}
	}
	slices.SortFunc(out, func(a, b Change[K, V]) int { return cmp.Compare(a.Key, b.Key) })
	return out
}
