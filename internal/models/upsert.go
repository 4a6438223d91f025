package models

// UpsertByRace replaces every row of older whose race id appears in newer with
// the rows of newer. Rows keep their relative order: surviving older rows first.
func UpsertByRace[T any](older, newer []T, raceID func(T) string) []T {
	replaced := make(map[string]struct{}, len(newer))
	for _, row := range newer {
		replaced[raceID(row)] = struct{}{}
	}
	merged := make([]T, 0, len(older)+len(newer))
	for _, row := range older {
		if _, ok := replaced[raceID(row)]; ok {
			continue
		}
		merged = append(merged, row)
	}
	return append(merged, newer...)
}
