package textparse

import (
	"strings"

	"github.com/samber/oops"
)

// lineResult classifies what dispatching one logical line did.
type lineResult int

const (
	lineOK lineResult = iota
	lineError
	lineEmpty
)

// dispatchLine classifies and applies one logical line, converting a
// panic in any generator hook or command handler into a fatal error.
// Recoverable failures never surface here; they set the buffer's error
// flags and parsing continues.
func (p *Parser[P, B]) dispatchLine(line string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.
				Code("GENERATOR_PANIC").
				With("position", p.buf.pos.String()).
				With("line", line).
				Errorf("generator hook panicked: %v", r)
		}
	}()

	p.dispatch(line)

	return nil
}

// dispatch walks the prefix priority table once; the first matching
// prefix wins. The block-metadata check is skipped while the block is
// in its data section, and the package-metadata check is gated by the
// configured mode, so a line carrying either prefix can still fall
// through to content. A line matching nothing is content.
func (p *Parser[P, B]) dispatch(raw string) lineResult {
	p.gen.ProcessLine(p.pkg, p.block, raw)

	if raw == "" {
		return lineEmpty
	}

	for _, entry := range p.prefixes {
		if entry.prefix == "" || !strings.HasPrefix(raw, entry.prefix) {
			continue
		}

		rest := raw[len(entry.prefix):]

		switch entry.kind {
		case prefixBlockID:
			return p.startBlock(strings.TrimSpace(rest))

		case prefixBlockMeta:
			if p.buf.state == stateInData {
				continue
			}

			return p.setBlockMeta(strings.TrimSpace(rest))

		case prefixBlockEnd:
			return p.endBlock()

		case prefixPackageMeta:
			if !p.packageMetaAllowed() {
				continue
			}

			return p.setPackageMeta(strings.TrimSpace(rest))
		}
	}

	return p.addContent(raw)
}

func (p *Parser[P, B]) inBlock() bool {
	switch p.buf.state {
	case stateBlockStarted, stateInHeader, stateInData:
		return true
	default:
		return false
	}
}

func (p *Parser[P, B]) packageMetaAllowed() bool {
	if !p.inBlock() {
		return true
	}

	return p.rules.PackageMetaMode != PackageMetaDisallowInBlock
}

// startBlock flushes any open block and creates the next one.
func (p *Parser[P, B]) startBlock(id string) lineResult {
	b := p.buf

	if id == "" {
		return p.recordError("empty block id")
	}

	if p.hasBlock {
		p.flushBlock(p.rules.RequireBlockEnd)
	}

	if !p.blocksStarted {
		p.blocksStarted = true
		p.gen.OnBlocksStart(p.pkg)
	}

	block, ok := p.gen.TryCreateBlock(p.pkg, id)
	if !ok {
		b.state = stateBlockDone
		return p.recordError("block %q rejected", id)
	}

	p.block = block
	p.hasBlock = true
	b.state = stateBlockStarted
	b.blockErr = false
	b.headerDone = false
	b.content = b.content[:0]

	return lineOK
}

// setBlockMeta applies a block metadata line. The generator's hook is
// tried first; the command table second; a line both decline is a
// recoverable error. The state is InData-gated by dispatch, so only
// header states and the not-in-block errors reach here.
func (p *Parser[P, B]) setBlockMeta(line string) lineResult {
	b := p.buf

	if !p.inBlock() {
		return p.recordError("metadata outside of a block")
	}

	b.state = stateInHeader

	metaID, value := SplitMeta(line, p.rules.MetaDelimiters)
	if metaID == "" {
		return p.recordBlockError("empty metadata id")
	}

	if p.gen.TryEvaluateMeta(p.pkg, p.block, metaID, line) {
		return lineOK
	}

	if fn, ok := p.cmds.metaFunc(metaID); ok {
		if err := fn(p.pkg, p.block, value); err != nil {
			return p.recordBlockError("metadata %q failed: %v", metaID, err)
		}

		return lineOK
	}

	return p.recordBlockError("unrecognized block metadata %q", metaID)
}

// endBlock closes the open block explicitly.
func (p *Parser[P, B]) endBlock() lineResult {
	if !p.inBlock() {
		return p.recordError("block end without an open block")
	}

	p.flushBlock(false)

	return lineOK
}

// addContent delivers a content line, completing the header first when
// this is the block's first one.
func (p *Parser[P, B]) addContent(raw string) lineResult {
	b := p.buf

	if !p.inBlock() {
		return p.recordError("content outside of a block")
	}

	p.completeHeader()
	b.state = stateInData

	if p.gen.TryAddContent(p.pkg, p.block, raw) {
		return lineOK
	}

	if fn, mode, _ := p.cmds.contentFunc(); fn != nil {
		if mode == ContentBatched {
			b.content = append(b.content, raw)
			return lineOK
		}

		if err := fn(p.pkg, p.block, raw); err != nil {
			return p.recordBlockError("content failed: %v", err)
		}

		return lineOK
	}

	return p.recordBlockError("unrecognized content line")
}

// setPackageMeta applies a package metadata line, implicitly closing an
// open block first when the rules say so. Implicitly closing a block
// whose header is still open violates a mandatory-end configuration; a
// block already in its data section closes silently.
func (p *Parser[P, B]) setPackageMeta(line string) lineResult {
	b := p.buf

	if p.inBlock() && p.rules.PackageMetaMode == PackageMetaImplicitCloseBlock {
		p.flushBlock(p.rules.RequireBlockEnd && b.state != stateInData)
	}

	metaID, value := SplitMeta(line, p.rules.MetaDelimiters)
	if metaID == "" {
		return p.recordError("empty package metadata id")
	}

	if p.gen.TryEvaluatePackageMeta(p.pkg, p.block, metaID, line) {
		return lineOK
	}

	if fn, ok := p.cmds.packageMetaFunc(metaID); ok {
		if err := fn(p.pkg, p.block, value); err != nil {
			return p.recordError("package metadata %q failed: %v", metaID, err)
		}

		return lineOK
	}

	return p.recordError("unrecognized package metadata %q", metaID)
}

// completeHeader fires the header-completion hook, exactly once per
// block.
func (p *Parser[P, B]) completeHeader() {
	if !p.hasBlock || p.buf.headerDone {
		return
	}

	p.buf.headerDone = true
	p.gen.CompleteHeader(p.pkg, p.block)
}

// flushBlock completes the open block: pending header completion,
// batched content delivery, the optional validation hook, then the
// completion hook with the per-block error flag. endViolated marks the
// flush as breaking a mandatory explicit-end configuration.
func (p *Parser[P, B]) flushBlock(endViolated bool) {
	b := p.buf

	if !p.hasBlock {
		b.state = stateBlockDone
		return
	}

	if endViolated {
		p.recordBlockError("block not explicitly terminated")
	}

	p.completeHeader()

	if fn, mode, joiner := p.cmds.contentFunc(); fn != nil && mode == ContentBatched && len(b.content) > 0 {
		if err := fn(p.pkg, p.block, strings.Join(b.content, joiner)); err != nil {
			p.recordBlockError("content failed: %v", err)
		}
	}

	if v, ok := any(p.block).(Validator); ok {
		if err := v.Validate(); err != nil {
			p.recordBlockError("block validation failed: %v", err)
		}
	}

	p.gen.CompleteBlock(p.pkg, p.block, b.blockErr)

	var zero B
	p.block = zero
	p.hasBlock = false
	b.blockErr = false
	b.content = b.content[:0]
	b.state = stateBlockDone
}

// recordError logs a recoverable diagnostic and sets the sticky
// parse-wide error flag.
func (p *Parser[P, B]) recordError(format string, args ...any) lineResult {
	p.buf.parseErr = true
	p.warn(format, args...)

	return lineError
}

// recordBlockError additionally marks the current block as failed.
func (p *Parser[P, B]) recordBlockError(format string, args ...any) lineResult {
	p.buf.blockErr = true

	return p.recordError(format, args...)
}
