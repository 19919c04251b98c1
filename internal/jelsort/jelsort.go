// Package jelsort sorts lists of records by one or more keys.
package jelsort

import (
	"cmp"
	"sort"
	"strings"
)

// Less reports whether left comes before right.
type Less[E any] func(left, right E) bool

// By returns a sorted copy of items ordered by lt. Items that lt considers
// equal keep their original relative order.
//
// items will not be modified.
func By[E any](items []E, lt Less[E]) []E {
	if len(items) == 0 || lt == nil {
		return items
	}

	sorted := make([]E, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lt(sorted[i], sorted[j])
	})
	return sorted
}

// Asc orders by key, smallest first.
func Asc[E any, K cmp.Ordered](key func(E) K) Less[E] {
	return func(left, right E) bool {
		return key(left) < key(right)
	}
}

// Desc orders by key, largest first.
func Desc[E any, K cmp.Ordered](key func(E) K) Less[E] {
	return func(left, right E) bool {
		return key(left) > key(right)
	}
}

// Fold orders by a string key without regard to case.
func Fold[E any](key func(E) string) Less[E] {
	return func(left, right E) bool {
		return strings.ToLower(key(left)) < strings.ToLower(key(right))
	}
}

// Then orders by the first Less, falling back to each following one only when
// all the earlier ones consider two items equal.
func Then[E any](lts ...Less[E]) Less[E] {
	return func(left, right E) bool {
		for _, lt := range lts {
			if lt(left, right) {
				return true
			}
			if lt(right, left) {
				return false
			}
		}
		return false
	}
}
