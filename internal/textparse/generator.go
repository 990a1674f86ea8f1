package textparse

// Generator is the caller-supplied hook set that builds the target
// package and block types. The parser owns no knowledge of either type;
// it only passes them back through these calls. P is the package type,
// B the block type.
//
// Try hooks report whether they handled the input. Returning false is
// not an error by itself: the dispatcher falls back to the command
// table and records a recoverable error only when both decline.
//
// A hook that panics aborts the whole parse; OnEnd still fires with
// hadError = true.
type Generator[P, B any] interface {
	// CreatePackage builds the package every block is added to.
	CreatePackage(name string) P

	// OnStart fires once, immediately after CreatePackage.
	OnStart(pkg P)

	// OnBlocksStart fires once, just before the first block is created.
	OnBlocksStart(pkg P)

	// OnEnd fires exactly once per completed parse, on clean exhaustion
	// and fatal failure alike. hadError reports the sticky parse-wide
	// error flag.
	OnEnd(pkg P, hadError bool)

	// TryCreateBlock builds a block for an id line. Returning false
	// rejects the block (duplicate id, unknown kind); the parser records
	// a recoverable error and the block's remaining lines error
	// individually until the next block starts.
	TryCreateBlock(pkg P, id string) (B, bool)

	// TryEvaluateMeta applies one block metadata line. line is the text
	// after the structural prefix, trimmed.
	TryEvaluateMeta(pkg P, block B, metaID, line string) bool

	// CompleteHeader fires exactly once per block, before its first
	// content line or before the block closes, whichever comes first.
	CompleteHeader(pkg P, block B)

	// TryAddContent applies one content line.
	TryAddContent(pkg P, block B, content string) bool

	// CompleteBlock fires when the block is flushed, explicitly or
	// implicitly. hadBlockError reports the per-block error flag.
	CompleteBlock(pkg P, block B, hadBlockError bool)

	// TryEvaluatePackageMeta applies one package metadata line. block is
	// the open block, if any.
	TryEvaluatePackageMeta(pkg P, block B, metaID, line string) bool

	// ProcessLine observes every logical line before classification, for
	// side-effect-only needs such as statistics.
	ProcessLine(pkg P, block B, rawLine string)
}

// NopGenerator is an embeddable adapter with every hook defaulted to a
// no-op, so generators only spell out the hooks they care about.
type NopGenerator[P, B any] struct{}

func (NopGenerator[P, B]) CreatePackage(string) P {
	var zero P
	return zero
}

func (NopGenerator[P, B]) OnStart(P)       {}
func (NopGenerator[P, B]) OnBlocksStart(P) {}
func (NopGenerator[P, B]) OnEnd(P, bool)   {}

func (NopGenerator[P, B]) TryCreateBlock(P, string) (B, bool) {
	var zero B
	return zero, false
}

func (NopGenerator[P, B]) TryEvaluateMeta(P, B, string, string) bool        { return false }
func (NopGenerator[P, B]) CompleteHeader(P, B)                              {}
func (NopGenerator[P, B]) TryAddContent(P, B, string) bool                  { return false }
func (NopGenerator[P, B]) CompleteBlock(P, B, bool)                         {}
func (NopGenerator[P, B]) TryEvaluatePackageMeta(P, B, string, string) bool { return false }
func (NopGenerator[P, B]) ProcessLine(P, B, string)                         {}

// Validator is implemented by block types that want a validation pass
// at flush time. A non-nil error marks the block as failed but does not
// stop the parse.
type Validator interface {
	Validate() error
}
