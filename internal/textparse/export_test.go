package textparse

// AlignChunk exports alignChunk for testing.
//
//nolint:gochecknoglobals // Test-only exports
var AlignChunk = alignChunk

// PriorityPrefixes exports the prefix priority order for testing.
func PriorityPrefixes(r Rules) []string {
	table := priorityTable(r)

	prefixes := make([]string, len(table))
	for i, entry := range table {
		prefixes[i] = entry.prefix
	}

	return prefixes
}
