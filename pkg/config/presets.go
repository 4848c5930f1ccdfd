package config

import "slices"

// DefaultPageSizes are the page sizes offered by the list views.
func DefaultPageSizes() []int {
	return []int{5, 10, 25, 50}
}

// NextPageSize returns the size after current in sizes, wrapping around.
// A current value not in sizes yields the next larger size, or the first
// size.
func NextPageSize(sizes []int, current int) int {
	if len(sizes) == 0 {
		return current
	}
	sorted := slices.Clone(sizes)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	if i := slices.Index(sorted, current); i >= 0 {
		return sorted[(i+1)%len(sorted)]
	}
	for _, n := range sorted {
		if n > current {
			return n
		}
	}
	return sorted[0]
}

// TimeLayoutPreset returns the Go time layout for a named preset.
// If the name is not recognized, the value is returned unchanged so a
// literal layout can be configured directly.
func TimeLayoutPreset(name string) string {
	switch name {
	case "short":
		return "2006-01-02 15:04"
	case "long":
		return "Mon Jan 2 2006 15:04:05"
	case "iso":
		return "2006-01-02T15:04:05Z07:00"
	case "kitchen":
		return "Jan 2 3:04PM"
	default:
		return name
	}
}
