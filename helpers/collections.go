package helpers

import (
	"cmp"
	"slices"
	"strings"
)

// GroupBy buckets items by the key returned from key.
func GroupBy[T any, K comparable](items []T, key func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, it := range items {
		k := key(it)
		out[k] = append(out[k], it)
	}
	return out
}

// SortBy returns a sorted copy; the input is left untouched.
func SortBy[T any, K cmp.Ordered](items []T, key func(T) K, desc bool) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		if desc {
			return cmp.Compare(key(b), key(a))
		}
		return cmp.Compare(key(a), key(b))
	})
	return out
}

// UniqueBy keeps the first item for every distinct key.
func UniqueBy[T any, K comparable](items []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

// FuzzySearch keeps items where any field contains term, case-insensitively.
// An empty term returns items as-is.
func FuzzySearch[T any](items []T, term string, fields ...func(T) string) []T {
	if term == "" {
		return items
	}
	term = strings.ToLower(term)
	var out []T
	for _, it := range items {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f(it)), term) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}
