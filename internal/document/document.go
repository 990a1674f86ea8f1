// Package document provides the reference object model built from a
// parse: a Document of named Blocks, plus the Builder generator that
// assembles it.
package document

import "strings"

// Document collects the blocks produced from one parse, possibly
// merged from multiple inclusions.
type Document struct {
	Name     string
	Meta     map[string]string
	Blocks   []*Block
	Lines    int
	HadError bool

	byID map[string]*Block
}

// Block is one named unit of the format: a metadata header followed by
// a content body.
type Block struct {
	ID       string
	Meta     map[string]string
	Lines    []string
	Body     string
	HadError bool
}

// Block returns the block with the given id, or nil.
func (d *Document) Block(id string) *Block {
	return d.byID[id]
}

// Content returns the block body: the batched Body when one was
// delivered, otherwise the content lines joined with newlines.
func (b *Block) Content() string {
	if b.Body != "" {
		return b.Body
	}

	return strings.Join(b.Lines, "\n")
}
