package document

import (
	"os"
	"path/filepath"
	"strings"

	"resty.dev/v3"

	"github.com/g5becks/blockparse/internal/textparse"
	"github.com/g5becks/blockparse/internal/textsource"
)

// Options configure a Builder.
type Options struct {
	// Rules must match the rules the parser runs with; the builder uses
	// the same delimiters to split metadata values.
	Rules textparse.Rules

	// Batched switches the builder's content handling to batched
	// delivery through its command table; the default stores content
	// line by line.
	Batched bool

	// BaseDir anchors relative include paths. Empty means the process
	// working directory.
	BaseDir string

	// HTTP fetches includes that name a URL. Nil disables URL includes.
	HTTP *resty.Client
}

// Builder assembles a Document from generator callbacks. Bind it to
// its parser before the first step when includes should work.
type Builder struct {
	textparse.NopGenerator[*Document, *Block]

	opts   Options
	parser *textparse.Parser[*Document, *Block]
}

func NewBuilder(opts Options) *Builder {
	if opts.Rules == (textparse.Rules{}) {
		opts.Rules = textparse.DefaultRules()
	}

	return &Builder{opts: opts}
}

// Bind gives the builder the parser it feeds, enabling the include
// directive to push sources onto it.
func (g *Builder) Bind(p *textparse.Parser[*Document, *Block]) {
	g.parser = p
}

// Commands returns the builder's command table: the batched content
// sink, registered only when the builder runs in batched mode.
func (g *Builder) Commands() *textparse.CommandTable[*Document, *Block] {
	table := textparse.NewCommandTable[*Document, *Block]()

	if g.opts.Batched {
		table.Content(textparse.ContentBatched, "\n",
			func(_ *Document, block *Block, content string) error {
				block.Body = content
				return nil
			})
	}

	return table
}

func (g *Builder) CreatePackage(name string) *Document {
	return &Document{
		Name: name,
		Meta: map[string]string{},
		byID: map[string]*Block{},
	}
}

func (g *Builder) OnEnd(d *Document, hadError bool) {
	d.HadError = hadError
}

// TryCreateBlock rejects duplicate ids; the parser records the
// rejection as a recoverable error.
func (g *Builder) TryCreateBlock(d *Document, id string) (*Block, bool) {
	if d.byID[id] != nil {
		return nil, false
	}

	block := &Block{ID: id, Meta: map[string]string{}}
	d.byID[id] = block
	d.Blocks = append(d.Blocks, block)

	return block, true
}

func (g *Builder) TryEvaluateMeta(_ *Document, block *Block, metaID, line string) bool {
	_, value := textparse.SplitMeta(line, g.opts.Rules.MetaDelimiters)
	block.Meta[metaID] = value

	return true
}

func (g *Builder) TryAddContent(_ *Document, block *Block, content string) bool {
	if g.opts.Batched {
		return false
	}

	block.Lines = append(block.Lines, content)

	return true
}

func (g *Builder) CompleteBlock(_ *Document, block *Block, hadBlockError bool) {
	block.HadError = hadBlockError
}

// TryEvaluatePackageMeta stores package metadata, handling the include
// directive specially: its value names a file or URL whose text is
// parsed in place of the directive line.
func (g *Builder) TryEvaluatePackageMeta(d *Document, _ *Block, metaID, line string) bool {
	_, value := textparse.SplitMeta(line, g.opts.Rules.MetaDelimiters)

	if metaID == "include" {
		return g.include(value)
	}

	d.Meta[metaID] = value

	return true
}

// ProcessLine counts every logical line the parse saw, inclusions
// included.
func (g *Builder) ProcessLine(d *Document, _ *Block, _ string) {
	d.Lines++
}

func (g *Builder) include(target string) bool {
	if g.parser == nil || target == "" {
		return false
	}

	src, ok := g.sourceFor(target)
	if !ok {
		return false
	}

	if err := g.parser.Include(src, target); err != nil {
		_ = src.Close()
		return false
	}

	return true
}

func (g *Builder) sourceFor(target string) (textsource.Source, bool) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		if g.opts.HTTP == nil {
			return nil, false
		}

		return textsource.NewHTTP(g.opts.HTTP, target), true
	}

	path := target
	if !filepath.IsAbs(path) && g.opts.BaseDir != "" {
		path = filepath.Join(g.opts.BaseDir, path)
	}

	// Declining a missing file keeps the failure recoverable; a source
	// that errors mid-read would abort the whole parse instead.
	if _, err := os.Stat(path); err != nil {
		return nil, false
	}

	return textsource.NewFile(path), true
}
