package textparse

import (
	"errors"
	"fmt"
	"io"

	"github.com/samber/oops"

	"github.com/g5becks/blockparse/internal/textsource"
)

// Progress reports whether a Step left work behind.
type Progress int

const (
	Continue Progress = iota
	Done
)

const (
	defaultChunkSize = 64
	chunkAlign       = 32
)

// DiagnosticFunc receives recoverable parse diagnostics and the fatal
// abort message, each with the position it was raised at.
type DiagnosticFunc func(pos Position, msg string)

// Options configure a Parser beyond its rules. The zero value selects
// DefaultRules, no command table, no pool, and the default chunk size.
type Options[P, B any] struct {
	Rules      Rules
	Commands   *CommandTable[P, B]
	Pool       *BufferPool
	ChunkSize  int
	Diagnostic DiagnosticFunc
}

// Parser drives one parse of one package. A full parse is a sequence of
// Step calls, each doing one chunk's worth of work, so a long parse can
// be interleaved with other work by the caller. A Parser is not safe
// for concurrent use.
type Parser[P, B any] struct {
	rules    Rules
	prefixes []prefixEntry
	gen      Generator[P, B]
	cmds     *CommandTable[P, B]
	diag     DiagnosticFunc
	pool     *BufferPool
	chunk    int

	buf           *parseBuffer
	pkg           P
	block         B
	hasBlock      bool
	blocksStarted bool
	done          bool
	hadError      bool
}

// New leases a parse buffer, creates the package via the generator, and
// positions the parser at the first line of src. The parser takes
// ownership of src and of any sources pushed later; they are closed on
// exhaustion, on fatal failure, and on Close.
func New[P, B any](name string, src textsource.Source, gen Generator[P, B], opts Options[P, B]) *Parser[P, B] {
	rules := opts.Rules
	if rules == (Rules{}) {
		rules = DefaultRules()
	}

	chunk := alignChunk(opts.ChunkSize)

	var buf *parseBuffer
	if opts.Pool != nil {
		buf = opts.Pool.lease(chunk)
	} else {
		buf = newParseBuffer(chunk)
		buf.reset(chunk)
	}

	buf.src = src
	buf.pos = NewPosition(name, 1)

	p := &Parser[P, B]{
		rules:    rules,
		prefixes: priorityTable(rules),
		gen:      gen,
		cmds:     opts.Commands,
		diag:     opts.Diagnostic,
		pool:     opts.Pool,
		chunk:    chunk,
		buf:      buf,
	}

	p.pkg = gen.CreatePackage(name)
	gen.OnStart(p.pkg)

	return p
}

// alignChunk rounds a chunk size up to a multiple of chunkAlign.
func alignChunk(size int) int {
	if size <= 0 {
		size = defaultChunkSize
	}

	return (size + chunkAlign - 1) / chunkAlign * chunkAlign
}

// Package returns the package under construction.
func (p *Parser[P, B]) Package() P {
	return p.pkg
}

// Position returns the current parse position.
func (p *Parser[P, B]) Position() Position {
	if p.buf == nil {
		return Position{}
	}

	return p.buf.pos
}

// HadError reports the sticky parse-wide error flag.
func (p *Parser[P, B]) HadError() bool {
	if p.buf != nil {
		return p.buf.parseErr
	}

	return p.hadError
}

// Step does one chunk's worth of work: at most one chunk of characters
// is read, which may complete zero, one, or many logical lines. It
// reports Done when the parse has finished. The returned error is
// non-nil only for fatal failures, which also finish the parse.
func (p *Parser[P, B]) Step() (Progress, error) {
	if p.done {
		return Done, nil
	}

	finished, err := p.step()
	if err != nil {
		p.fail(err)
		return Done, err
	}

	if finished {
		return Done, nil
	}

	return Continue, nil
}

// Run steps the parse to completion.
func (p *Parser[P, B]) Run() error {
	for {
		progress, err := p.Step()
		if err != nil {
			return err
		}

		if progress == Done {
			return nil
		}
	}
}

// Close releases the parse buffer and any streams still held. It must
// be called when a parse is abandoned mid-stream; it is a no-op after
// the parse has finished and released its own resources.
func (p *Parser[P, B]) Close() error {
	p.done = true
	p.releaseBuffer()

	return nil
}

// Include pushes src so its text is parsed, in order, before the
// current stream resumes. An empty displayName with an unnamed source
// makes the inclusion inline: the surrounding position is kept and the
// outer line count is not perturbed. Include may only be called from
// generator hooks or command handlers, while a line is being
// dispatched.
func (p *Parser[P, B]) Include(src textsource.Source, displayName string) error {
	b := p.buf
	if b == nil {
		return oops.
			Code("PARSE_FINISHED").
			Errorf("include after parse completed")
	}

	if len(b.stack) >= MaxIncludeDepth {
		return oops.
			Code("INCLUDE_DEPTH").
			With("depth", len(b.stack)).
			With("source", src.Name()).
			Hint("Flatten nested includes; the stream stack is bounded").
			Errorf("include depth limit %d exceeded", MaxIncludeDepth)
	}

	if b.src != nil {
		b.stack = append(b.stack, streamFrame{
			src:      b.src,
			pos:      b.pos,
			inline:   b.inline,
			leftover: append([]byte(nil), b.pending...),
		})
	}

	b.src = src
	b.pending = nil

	if displayName == "" && src.Name() == "" {
		b.inline = true
	} else {
		b.inline = false
		b.pos = NewDisplayPosition(src.Name(), displayName, 1)
	}

	b.skipWS = true
	b.inComment = false

	return nil
}

// step reads one chunk (or resumes leftover bytes) and consumes it.
// The bool result reports parse completion.
func (p *Parser[P, B]) step() (bool, error) {
	b := p.buf

	if len(b.pending) == 0 {
		n, err := b.src.Read(b.scratch[:p.chunk])
		if n > 0 {
			b.pending = b.scratch[:n]
		} else {
			if err != nil && !errors.Is(err, io.EOF) {
				return true, oops.
					Code("SOURCE_READ_FAILED").
					With("source", b.src.Name()).
					With("position", b.pos.String()).
					Wrapf(err, "reading text source")
			}

			return p.popStream()
		}
	}

	return p.consumePending()
}

// consumePending walks the unread tail of the current chunk, assembling
// logical lines. It returns early when a dispatched line pushed an
// included stream; the remaining bytes were saved as that push's
// leftover and resume after the inclusion drains.
func (p *Parser[P, B]) consumePending() (bool, error) {
	b := p.buf

	for len(b.pending) > 0 {
		ch := b.pending[0]
		b.pending = b.pending[1:]

		if b.inComment {
			if ch != '\n' {
				continue
			}

			b.inComment = false
		}

		if ch == '\n' {
			pushed, err := p.finishLine(true)
			if err != nil {
				return true, err
			}

			if pushed {
				return false, nil
			}

			continue
		}

		if b.skipWS && isLineSpace(ch) {
			continue
		}

		b.skipWS = false
		b.line = append(b.line, ch)
		p.checkComment()
	}

	return false, nil
}

// finishLine completes the assembled logical line at a newline (or at
// stream exhaustion, as if terminated by one). A line whose trimmed
// tail is a single backslash is a continuation: the backslash is
// dropped and assembly carries on with the next physical line. The bool
// result reports whether dispatching the line pushed an included
// stream.
func (p *Parser[P, B]) finishLine(advance bool) (bool, error) {
	b := p.buf

	trimmed := trimLineSpace(b.line)
	if n := len(trimmed); n > 0 && trimmed[n-1] == '\\' && (n == 1 || trimmed[n-2] != '\\') {
		b.line = trimmed[:n-1]
		b.skipWS = false

		if advance && !b.inline {
			b.pos = b.pos.Next()
		}

		return false, nil
	}

	line := string(trimmed)
	b.line = b.line[:0]
	b.skipWS = true

	depth := len(b.stack)
	if err := p.dispatchLine(line); err != nil {
		return false, err
	}

	if len(b.stack) > depth {
		// Dispatch pushed an inclusion, suspending this stream. The
		// newline just consumed belongs to the suspended stream, so the
		// advance applies to its saved frame.
		if advance {
			frame := &b.stack[depth]
			if !frame.inline {
				frame.pos = frame.pos.Next()
			}
		}

		return true, nil
	}

	if advance && !b.inline {
		b.pos = b.pos.Next()
	}

	return false, nil
}

// checkComment truncates the line accumulator when its tail completes
// the comment prefix. Matching against the accumulator tail keeps
// prefixes that straddle a chunk boundary intact: the already-
// accumulated half is part of the line by the time the second half
// arrives.
func (p *Parser[P, B]) checkComment() {
	prefix := p.rules.CommentPrefix
	if prefix == "" {
		return
	}

	b := p.buf
	if n := len(b.line); n >= len(prefix) && string(b.line[n-len(prefix):]) == prefix {
		b.line = b.line[:n-len(prefix)]
		b.inComment = true
	}
}

// popStream flushes the exhausted stream's partial trailing line, then
// resumes its parent exactly where it paused. With no parent left the
// parse completes.
func (p *Parser[P, B]) popStream() (bool, error) {
	b := p.buf
	b.inComment = false

	if len(b.line) > 0 {
		pushed, err := p.finishLine(false)
		if err != nil {
			return true, err
		}

		if pushed {
			return false, nil
		}
	}

	_ = b.src.Close()
	b.src = nil

	if len(b.stack) == 0 {
		return p.finishParse()
	}

	frame := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]

	b.src = frame.src
	b.pos = frame.pos
	b.inline = frame.inline

	n := copy(b.scratch, frame.leftover)
	b.pending = b.scratch[:n]
	b.skipWS = true

	return false, nil
}

// finishParse flushes a pending continuation line and the open block,
// fires the end hook with the sticky error flag, and releases the
// buffer.
func (p *Parser[P, B]) finishParse() (bool, error) {
	b := p.buf

	// A continuation backslash on the very last line leaves its text in
	// the accumulator; dispatch it as-is.
	if len(b.line) > 0 {
		line := string(trimLineSpace(b.line))
		b.line = b.line[:0]

		if err := p.dispatchLine(line); err != nil {
			return false, err
		}

		if b.src != nil {
			// The final line pushed an inclusion; keep going.
			return false, nil
		}
	}

	if p.hasBlock {
		if err := p.flushFinal(); err != nil {
			return false, err
		}
	}

	p.hadError = b.parseErr
	p.done = true

	// The release must survive a misbehaving end hook.
	defer p.releaseBuffer()
	p.gen.OnEnd(p.pkg, p.hadError)

	return true, nil
}

// flushFinal flushes the block left open at end of input. The flush
// runs the same generator hooks a dispatched line can, so a panic here
// converts to the fatal taxonomy exactly as it would mid-stream.
func (p *Parser[P, B]) flushFinal() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.
				Code("GENERATOR_PANIC").
				With("position", p.buf.pos.String()).
				Errorf("generator hook panicked: %v", r)
		}
	}()

	p.flushBlock(p.rules.RequireBlockEnd)

	return nil
}

// fail terminates the parse after a fatal error. The end hook still
// fires, with hadError = true, and the buffer is released regardless of
// what the hook does.
func (p *Parser[P, B]) fail(err error) {
	p.warn("fatal: %v", err)
	p.hadError = true
	p.done = true

	func() {
		defer func() {
			_ = recover()
		}()
		p.gen.OnEnd(p.pkg, true)
	}()

	p.releaseBuffer()
}

func (p *Parser[P, B]) releaseBuffer() {
	buf := p.buf
	if buf == nil {
		return
	}

	p.hadError = p.hadError || buf.parseErr
	p.buf = nil

	if p.pool != nil {
		p.pool.release(buf)
		return
	}

	buf.releaseStreams()
}

func (p *Parser[P, B]) warn(format string, args ...any) {
	if p.diag == nil {
		return
	}

	pos := Position{}
	if p.buf != nil {
		pos = p.buf.pos
	}

	p.diag(pos, fmt.Sprintf(format, args...))
}

func isLineSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r'
}

func trimLineSpace(line []byte) []byte {
	n := len(line)
	for n > 0 && isLineSpace(line[n-1]) {
		n--
	}

	return line[:n]
}
