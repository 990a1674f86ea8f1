package textparse

// ContentMode selects how a block's body reaches its handler.
type ContentMode int

const (
	// ContentLineByLine delivers each content line as soon as it is
	// read.
	ContentLineByLine ContentMode = iota
	// ContentBatched concatenates content lines with the registered
	// joiner and delivers the result once, when the block is flushed.
	ContentBatched
)

// MetaFunc handles one registered metadata id. value is the text after
// the id and its delimiter, trimmed. A non-nil error marks the line as
// a recoverable failure; it never aborts the parse.
type MetaFunc[P, B any] func(pkg P, block B, value string) error

// ContentFunc receives block content, per the registered ContentMode.
type ContentFunc[P, B any] func(pkg P, block B, content string) error

// CommandTable is the secondary lookup the dispatcher consults when the
// generator's Try hooks decline a line. It is built explicitly at
// startup; there is no reflection behind it.
type CommandTable[P, B any] struct {
	meta        map[string]MetaFunc[P, B]
	packageMeta map[string]MetaFunc[P, B]
	content     ContentFunc[P, B]
	mode        ContentMode
	joiner      string
}

func NewCommandTable[P, B any]() *CommandTable[P, B] {
	return &CommandTable[P, B]{
		meta:        map[string]MetaFunc[P, B]{},
		packageMeta: map[string]MetaFunc[P, B]{},
		joiner:      "\n",
	}
}

// Meta registers a handler for a block metadata id.
func (t *CommandTable[P, B]) Meta(id string, fn MetaFunc[P, B]) *CommandTable[P, B] {
	t.meta[id] = fn
	return t
}

// PackageMeta registers a handler for a package metadata id.
func (t *CommandTable[P, B]) PackageMeta(id string, fn MetaFunc[P, B]) *CommandTable[P, B] {
	t.packageMeta[id] = fn
	return t
}

// Content registers the fallback content sink and its delivery mode.
// The joiner only applies to ContentBatched; an empty joiner
// concatenates lines directly.
func (t *CommandTable[P, B]) Content(mode ContentMode, joiner string, fn ContentFunc[P, B]) *CommandTable[P, B] {
	t.mode = mode
	t.joiner = joiner
	t.content = fn

	return t
}

func (t *CommandTable[P, B]) metaFunc(id string) (MetaFunc[P, B], bool) {
	if t == nil {
		return nil, false
	}

	fn, ok := t.meta[id]

	return fn, ok
}

func (t *CommandTable[P, B]) packageMetaFunc(id string) (MetaFunc[P, B], bool) {
	if t == nil {
		return nil, false
	}

	fn, ok := t.packageMeta[id]

	return fn, ok
}

func (t *CommandTable[P, B]) contentFunc() (ContentFunc[P, B], ContentMode, string) {
	if t == nil {
		return nil, ContentLineByLine, ""
	}

	return t.content, t.mode, t.joiner
}
