package textparse_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/g5becks/blockparse/internal/textparse"
)

func collectWarnings(warnings *[]string) textparse.Options[*testDoc, *testBlock] {
	return textparse.Options[*testDoc, *testBlock]{
		Diagnostic: func(pos textparse.Position, msg string) {
			*warnings = append(*warnings, pos.String()+" "+msg)
		},
	}
}

func TestMisplacedLinesAreRecoverableErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		text string
		want string
	}{
		{name: "content outside block", text: "stray content\n", want: "content outside of a block"},
		{name: "metadata outside block", text: "@k: v\n", want: "metadata outside of a block"},
		{name: "end without block", text: "===\n", want: "block end without an open block"},
		{name: "empty block id", text: "::\n", want: "empty block id"},
		{name: "empty metadata id", text: ":: b\n@: v\n", want: "empty metadata id"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var warnings []string
			doc := runParse(t, newTestGen(), tc.text, collectWarnings(&warnings))

			if !doc.endErr {
				t.Fatalf("endErr = false, want true")
			}

			if len(warnings) == 0 || !strings.Contains(warnings[0], tc.want) {
				t.Fatalf("warnings = %v, want first containing %q", warnings, tc.want)
			}
		})
	}
}

func TestDiagnosticCarriesLineNumber(t *testing.T) {
	t.Parallel()

	var warnings []string
	runParse(t, newTestGen(), ":: b\nfine\n===\nstray\n", collectWarnings(&warnings))

	if len(warnings) != 1 || !strings.HasPrefix(warnings[0], "main.blk:4 ") {
		t.Fatalf("warnings = %v, want one at main.blk:4", warnings)
	}
}

func TestCommandTableMetaFallback(t *testing.T) {
	t.Parallel()

	gen := newTestGen()
	gen.declineMeta = true

	var got string
	cmds := textparse.NewCommandTable[*testDoc, *testBlock]()
	cmds.Meta("color", func(_ *testDoc, _ *testBlock, value string) error {
		got = value
		return nil
	})

	var warnings []string
	opts := collectWarnings(&warnings)
	opts.Commands = cmds

	doc := runParse(t, gen, ":: b\n@color: red\n@shape: round\nx\n===\n", opts)

	if got != "red" {
		t.Fatalf("color value = %q, want %q", got, "red")
	}

	// "shape" has no handler anywhere, so the block fails.
	if !doc.blocks[0].failed {
		t.Fatalf("block clean, want failed")
	}

	if len(warnings) != 1 || !strings.Contains(warnings[0], `unrecognized block metadata "shape"`) {
		t.Fatalf("warnings = %v, want unrecognized shape", warnings)
	}
}

func TestCommandTableMetaErrorMarksBlock(t *testing.T) {
	t.Parallel()

	gen := newTestGen()
	gen.declineMeta = true

	cmds := textparse.NewCommandTable[*testDoc, *testBlock]()
	cmds.Meta("color", func(_ *testDoc, _ *testBlock, _ string) error {
		return errors.New("no such color")
	})

	opts := textparse.Options[*testDoc, *testBlock]{Commands: cmds}
	doc := runParse(t, gen, ":: b\n@color: red\nx\n===\n", opts)

	if !doc.blocks[0].failed {
		t.Fatalf("block clean, want failed")
	}

	if !doc.endErr {
		t.Fatalf("endErr = false, want true")
	}
}

func TestBatchedContentDelivery(t *testing.T) {
	t.Parallel()

	gen := newTestGen()
	gen.declineBody = true

	cmds := textparse.NewCommandTable[*testDoc, *testBlock]()
	cmds.Content(textparse.ContentBatched, " ", func(_ *testDoc, block *testBlock, content string) error {
		block.body = content
		return nil
	})

	opts := textparse.Options[*testDoc, *testBlock]{Commands: cmds}
	doc := runParse(t, gen, ":: b\nhello\nworld\n===\n", opts)

	if doc.blocks[0].body != "hello world" {
		t.Fatalf("body = %q, want %q", doc.blocks[0].body, "hello world")
	}

	if len(doc.blocks[0].lines) != 0 {
		t.Fatalf("lines = %v, want none in batched mode", doc.blocks[0].lines)
	}
}

func TestLineByLineContentFallback(t *testing.T) {
	t.Parallel()

	gen := newTestGen()
	gen.declineBody = true

	var got []string
	cmds := textparse.NewCommandTable[*testDoc, *testBlock]()
	cmds.Content(textparse.ContentLineByLine, "", func(_ *testDoc, _ *testBlock, content string) error {
		got = append(got, content)
		return nil
	})

	opts := textparse.Options[*testDoc, *testBlock]{Commands: cmds}
	runParse(t, gen, ":: b\none\ntwo\n===\n", opts)

	want := []string{"one", "two"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("content = %v, want %v", got, want)
	}
}

func TestUnhandledContentMarksBlock(t *testing.T) {
	t.Parallel()

	gen := newTestGen()
	gen.declineBody = true

	var warnings []string
	doc := runParse(t, gen, ":: b\norphan\n===\n", collectWarnings(&warnings))

	if !doc.blocks[0].failed {
		t.Fatalf("block clean, want failed")
	}

	if len(warnings) != 1 || !strings.Contains(warnings[0], "unrecognized content line") {
		t.Fatalf("warnings = %v, want unrecognized content", warnings)
	}
}

func TestRequireBlockEndFlagsImplicitCompletion(t *testing.T) {
	t.Parallel()

	rules := textparse.DefaultRules()
	rules.RequireBlockEnd = true

	text := ":: one\na\n" + // implicitly closed by the next block
		":: two\nb\n===\n" + // explicit end
		":: three\nc\n" // implicitly closed by exhaustion

	gen := newTestGen()
	doc := runParse(t, gen, text, textparse.Options[*testDoc, *testBlock]{Rules: rules})

	if !doc.blocks[0].failed {
		t.Fatalf("block one clean, want failed")
	}

	if doc.blocks[1].failed {
		t.Fatalf("block two failed, want clean")
	}

	if !doc.blocks[2].failed {
		t.Fatalf("block three clean, want failed")
	}
}

func TestImplicitCompletionIsSilentByDefault(t *testing.T) {
	t.Parallel()

	text := ":: one\na\n:: two\nb\n"

	var warnings []string
	doc := runParse(t, newTestGen(), text, collectWarnings(&warnings))

	for _, block := range doc.blocks {
		if block.failed {
			t.Fatalf("block %q failed, want clean", block.id)
		}
	}

	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}

	if doc.endErr {
		t.Fatalf("endErr = true, want false")
	}
}

func TestBlockMetaInDataSectionIsContent(t *testing.T) {
	t.Parallel()

	// Once a block has content, a line carrying the metadata prefix is
	// plain content: the header is closed.
	var warnings []string
	doc := runParse(t, newTestGen(), ":: b\n@early: 1\nbody\n@late: 2\n===\n",
		collectWarnings(&warnings))

	block := doc.blocks[0]
	if block.meta["early"] != "1" {
		t.Fatalf("meta[early] = %q, want %q", block.meta["early"], "1")
	}

	if _, ok := block.meta["late"]; ok {
		t.Fatalf("meta[late] set, want the line treated as content")
	}

	want := []string{"body", "@late: 2"}
	if !reflect.DeepEqual(block.lines, want) {
		t.Fatalf("lines = %v, want %v", block.lines, want)
	}

	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}

	if block.failed || doc.endErr {
		t.Fatalf("failed = %v endErr = %v, want clean parse", block.failed, doc.endErr)
	}
}

func TestPackageMetaModeDisallowFallsThroughToContent(t *testing.T) {
	t.Parallel()

	rules := textparse.DefaultRules()
	rules.PackageMetaMode = textparse.PackageMetaDisallowInBlock

	doc := runParse(t, newTestGen(), "# top: 1\n:: b\n# not: meta\n===\n",
		textparse.Options[*testDoc, *testBlock]{Rules: rules})

	// Outside a block the marker still works.
	if doc.meta["top"] != "1" {
		t.Fatalf("meta[top] = %q, want %q", doc.meta["top"], "1")
	}

	// Inside a block the line is plain content.
	want := []string{"# not: meta"}
	if !reflect.DeepEqual(doc.blocks[0].lines, want) {
		t.Fatalf("lines = %v, want %v", doc.blocks[0].lines, want)
	}

	if _, ok := doc.meta["not"]; ok {
		t.Fatalf("meta[not] set, want absent")
	}
}

func TestPackageMetaModeAllowKeepsBlockOpen(t *testing.T) {
	t.Parallel()

	doc := runParse(t, newTestGen(), ":: b\nbefore\n# k: v\nafter\n===\n",
		textparse.Options[*testDoc, *testBlock]{})

	if doc.meta["k"] != "v" {
		t.Fatalf("meta[k] = %q, want %q", doc.meta["k"], "v")
	}

	want := []string{"before", "after"}
	if !reflect.DeepEqual(doc.blocks[0].lines, want) {
		t.Fatalf("lines = %v, want %v", doc.blocks[0].lines, want)
	}

	if len(doc.blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(doc.blocks))
	}
}

func TestPackageMetaModeCloseFlushesBlock(t *testing.T) {
	t.Parallel()

	rules := textparse.DefaultRules()
	rules.PackageMetaMode = textparse.PackageMetaImplicitCloseBlock

	doc := runParse(t, newTestGen(), ":: b\nbody\n# k: v\nstray\n",
		textparse.Options[*testDoc, *testBlock]{Rules: rules})

	if doc.meta["k"] != "v" {
		t.Fatalf("meta[k] = %q, want %q", doc.meta["k"], "v")
	}

	want := []string{"body"}
	if !reflect.DeepEqual(doc.blocks[0].lines, want) {
		t.Fatalf("lines = %v, want %v", doc.blocks[0].lines, want)
	}

	// "stray" arrives after the block was closed.
	if !doc.endErr {
		t.Fatalf("endErr = false, want true for content after implicit close")
	}
}

func TestImplicitCloseSpareDataSectionUnderRequireEnd(t *testing.T) {
	t.Parallel()

	rules := textparse.DefaultRules()
	rules.PackageMetaMode = textparse.PackageMetaImplicitCloseBlock
	rules.RequireBlockEnd = true

	// Block h is still in its header when the package metadata closes
	// it; block d already reached its data section.
	text := ":: h\n@k: v\n# one: 1\n" +
		":: d\nbody\n# two: 2\n"

	doc := runParse(t, newTestGen(), text, textparse.Options[*testDoc, *testBlock]{Rules: rules})

	if !doc.blocks[0].failed {
		t.Fatalf("header-stage block clean, want failed")
	}

	if doc.blocks[1].failed {
		t.Fatalf("data-stage block failed, want clean")
	}
}

func TestCustomPrefixesLongestWins(t *testing.T) {
	t.Parallel()

	rules := textparse.Rules{
		BlockIDPrefix:     "::",
		BlockMetaPrefix:   "@",
		BlockEndPrefix:    "###",
		PackageMetaPrefix: "#",
		CommentPrefix:     "//",
		MetaDelimiters:    ":= \t",
	}

	doc := runParse(t, newTestGen(), "# k: v\n:: b\nbody\n###\n",
		textparse.Options[*testDoc, *testBlock]{Rules: rules})

	if doc.meta["k"] != "v" {
		t.Fatalf("meta[k] = %q, want %q", doc.meta["k"], "v")
	}

	if len(doc.blocks) != 1 || doc.blocks[0].failed {
		t.Fatalf("blocks = %+v, want one clean block", doc.blocks)
	}

	if doc.endErr {
		t.Fatalf("endErr = true, want false")
	}
}

func TestOverlappingPrefixesClassifyByLength(t *testing.T) {
	t.Parallel()

	// "#" and "##" hold different structural roles; a "##" line must
	// never classify as the shorter prefix.
	rules := textparse.Rules{
		BlockIDPrefix:     "::",
		BlockMetaPrefix:   "##",
		BlockEndPrefix:    "===",
		PackageMetaPrefix: "#",
		CommentPrefix:     "//",
		MetaDelimiters:    ":= \t",
	}

	doc := runParse(t, newTestGen(), "# top: 1\n:: b\n## k: v\nbody\n===\n",
		textparse.Options[*testDoc, *testBlock]{Rules: rules})

	if doc.meta["top"] != "1" {
		t.Fatalf("meta[top] = %q, want %q", doc.meta["top"], "1")
	}

	block := doc.blocks[0]
	if block.meta["k"] != "v" {
		t.Fatalf("block meta[k] = %q, want %q", block.meta["k"], "v")
	}

	if _, ok := doc.meta["k"]; ok {
		t.Fatalf("## line reached package metadata, want block metadata")
	}
}

func TestPriorityPrefixesOrderedLongestFirst(t *testing.T) {
	t.Parallel()

	rules := textparse.Rules{
		BlockIDPrefix:     "::",
		BlockMetaPrefix:   "@",
		BlockEndPrefix:    "###",
		PackageMetaPrefix: "#",
	}

	want := []string{"###", "::", "@", "#"}
	got := textparse.PriorityPrefixes(rules)

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PriorityPrefixes() = %v, want %v", got, want)
	}

	// The table is cached; asking again must give the same order.
	if again := textparse.PriorityPrefixes(rules); !reflect.DeepEqual(again, want) {
		t.Fatalf("cached PriorityPrefixes() = %v, want %v", again, want)
	}
}
