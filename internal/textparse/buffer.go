package textparse

import (
	"sync"

	"github.com/g5becks/blockparse/internal/textsource"
)

// blockState tracks the lifecycle of the block under construction.
// A parse never revisits stateNotStarted.
type blockState int

const (
	stateNotStarted blockState = iota
	stateBlockStarted
	stateInHeader
	stateInData
	stateBlockDone
)

// MaxIncludeDepth bounds the stream stack. Exceeding it is caller
// misconfiguration; Include reports it as an error instead of growing
// the stack.
const MaxIncludeDepth = 8

// streamFrame snapshots the suspended state of a parent stream while an
// included stream is being drained: its position, inline flag, and the
// leftover bytes that were read into the chunk but not yet consumed.
type streamFrame struct {
	src      textsource.Source
	pos      Position
	inline   bool
	leftover []byte
}

// parseBuffer is the session-scoped mutable state of one parse. It
// exclusively owns its accumulators and stream stack; stream entries
// hold caller-provided source handles, not the underlying bytes.
type parseBuffer struct {
	state blockState

	pos    Position
	inline bool

	src   textsource.Source
	stack []streamFrame

	scratch []byte
	pending []byte

	line    []byte
	content []string

	skipWS     bool
	inComment  bool
	headerDone bool

	parseErr bool
	blockErr bool
}

func newParseBuffer(chunkSize int) *parseBuffer {
	return &parseBuffer{
		scratch: make([]byte, chunkSize),
		line:    make([]byte, 0, initialLineCapacity),
	}
}

const initialLineCapacity = 128

func (b *parseBuffer) reset(chunkSize int) {
	if cap(b.scratch) < chunkSize {
		b.scratch = make([]byte, chunkSize)
	}

	b.state = stateNotStarted
	b.pos = Position{}
	b.inline = false
	b.src = nil
	b.stack = b.stack[:0]
	b.pending = nil
	b.line = b.line[:0]
	b.content = b.content[:0]
	b.skipWS = true
	b.inComment = false
	b.headerDone = false
	b.parseErr = false
	b.blockErr = false
}

// releaseStreams closes every stream still held, current first. Close
// errors are ignored: release runs on abandonment and fatal paths where
// there is nobody left to report them to.
func (b *parseBuffer) releaseStreams() {
	if b.src != nil {
		_ = b.src.Close()
		b.src = nil
	}

	for i := len(b.stack) - 1; i >= 0; i-- {
		_ = b.stack[i].src.Close()
	}

	b.stack = b.stack[:0]
}

// BufferPool recycles parse buffers across parses. Lease and release
// are serialized, so distinct parses may share one pool; a single
// parse's buffer is only ever touched by its own parser.
type BufferPool struct {
	mu      sync.Mutex
	free    []*parseBuffer
	maxIdle int
}

// NewBufferPool returns a pool that keeps at most maxIdle buffers
// around between parses.
func NewBufferPool(maxIdle int) *BufferPool {
	if maxIdle <= 0 {
		maxIdle = 1
	}

	return &BufferPool{maxIdle: maxIdle}
}

func (p *BufferPool) lease(chunkSize int) *parseBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		buf := p.free[n-1]
		p.free = p.free[:n-1]
		buf.reset(chunkSize)

		return buf
	}

	return newParseBuffer(chunkSize)
}

func (p *BufferPool) release(buf *parseBuffer) {
	if buf == nil {
		return
	}

	buf.releaseStreams()

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) < p.maxIdle {
		p.free = append(p.free, buf)
	}
}

// Idle reports how many buffers the pool currently holds.
func (p *BufferPool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.free)
}
