package textparse

import "fmt"

// Position identifies a line in a named text source. Values are
// immutable; the parser creates a fresh one each time the logical line
// advances, so diagnostics can hold on to them safely.
type Position struct {
	Source  string
	Display string
	Line    int
}

// NewPosition returns a position whose display name is the source name.
func NewPosition(source string, line int) Position {
	return Position{Source: source, Display: source, Line: line}
}

// NewDisplayPosition returns a position with a distinct display name,
// used when an inclusion is parsed under a different name than the
// source it came from. An empty display falls back to the source name.
func NewDisplayPosition(source, display string, line int) Position {
	if display == "" {
		display = source
	}

	return Position{Source: source, Display: display, Line: line}
}

// Next returns the position of the following line.
func (p Position) Next() Position {
	p.Line++
	return p
}

func (p Position) String() string {
	if p.Display != "" && p.Display != p.Source {
		return fmt.Sprintf("%s:%d (%s)", p.Source, p.Line, p.Display)
	}
	if p.Source == "" {
		return fmt.Sprintf("<inline>:%d", p.Line)
	}

	return fmt.Sprintf("%s:%d", p.Source, p.Line)
}
