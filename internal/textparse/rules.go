package textparse

import (
	"slices"
	"strings"
	"sync"
)

// PackageMetaMode controls how a package-level metadata line interacts
// with a block that is still open when the line arrives.
type PackageMetaMode int

const (
	// PackageMetaDisallowInBlock leaves package metadata lines inside an
	// open block unclassified; they fall through to content handling.
	PackageMetaDisallowInBlock PackageMetaMode = iota
	// PackageMetaAllowInBlock applies package metadata without touching
	// the open block.
	PackageMetaAllowInBlock
	// PackageMetaImplicitCloseBlock completes and flushes the open block
	// before applying the package metadata.
	PackageMetaImplicitCloseBlock
)

// Rules is the declarative parser configuration. A Rules value is
// immutable for the duration of a parse.
//
// None of the four structural prefixes may be empty or equal to another
// structural prefix. The parser does not re-check this on the hot path;
// config validation catches it at load time.
type Rules struct {
	BlockIDPrefix     string
	BlockMetaPrefix   string
	BlockEndPrefix    string
	PackageMetaPrefix string
	CommentPrefix     string
	MetaDelimiters    string
	RequireBlockEnd   bool
	PackageMetaMode   PackageMetaMode
}

// DefaultRules returns the shipped format surface.
func DefaultRules() Rules {
	return Rules{
		BlockIDPrefix:     "::",
		BlockMetaPrefix:   "@",
		BlockEndPrefix:    "===",
		PackageMetaPrefix: "#",
		CommentPrefix:     "//",
		MetaDelimiters:    ":= \t",
		RequireBlockEnd:   false,
		PackageMetaMode:   PackageMetaAllowInBlock,
	}
}

// SplitMeta splits a metadata line (already stripped of its structural
// prefix) into id and value at the first delimiter character. The value
// keeps everything after the delimiter, trimmed; a line with no
// delimiter is all id.
func SplitMeta(line, delimiters string) (string, string) {
	line = strings.TrimSpace(line)
	if i := strings.IndexAny(line, delimiters); i >= 0 {
		return line[:i], strings.TrimSpace(line[i+1:])
	}

	return line, ""
}

type prefixKind int

const (
	prefixBlockID prefixKind = iota
	prefixBlockMeta
	prefixBlockEnd
	prefixPackageMeta
)

type prefixEntry struct {
	kind   prefixKind
	prefix string
}

// prefixKey identifies a priority table by the structural prefixes that
// produced it.
type prefixKey struct {
	blockID     string
	blockMeta   string
	blockEnd    string
	packageMeta string
}

//nolint:gochecknoglobals // Shared cache of pure derived data, keyed by prefix strings.
var (
	prefixMu    sync.Mutex
	prefixCache = map[prefixKey][]prefixEntry{}
)

// priorityTable returns the four structural prefixes ordered longest
// first, ties broken by a fixed kind order. Longest-first matching
// keeps a short prefix (say "#") from shadowing a longer one ("###")
// when both could match the same line. Tables are cached: deriving one
// is pure computation, so parses sharing the same prefixes share the
// table.
func priorityTable(r Rules) []prefixEntry {
	key := prefixKey{r.BlockIDPrefix, r.BlockMetaPrefix, r.BlockEndPrefix, r.PackageMetaPrefix}

	prefixMu.Lock()
	defer prefixMu.Unlock()

	if table, ok := prefixCache[key]; ok {
		return table
	}

	table := []prefixEntry{
		{prefixBlockID, r.BlockIDPrefix},
		{prefixBlockMeta, r.BlockMetaPrefix},
		{prefixBlockEnd, r.BlockEndPrefix},
		{prefixPackageMeta, r.PackageMetaPrefix},
	}

	slices.SortStableFunc(table, func(a, b prefixEntry) int {
		return len(b.prefix) - len(a.prefix)
	})

	prefixCache[key] = table

	return table
}
