package catalog

import "sort"

// sortSlice orders entities by name using the loader's collation. Stable so
// equal names keep provider order.
func sortSlice[T any](items []T, name func(T) string, compare func(a, b string) int) {
	sort.SliceStable(items, func(i, j int) bool {
		return compare(name(items[i]), name(items[j])) < 0
	})
}
