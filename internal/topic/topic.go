// Package topic implements the hierarchical topic grammar and the
// wildcard-aware matching algorithm used to route published messages to
// subscriber filters.
package topic

import (
	"errors"
	"strings"
)

// ErrInvalid is returned by Parse when the input violates the topic
// grammar: an empty level, a '#' that is not the final level, or more
// than one '#'.
var ErrInvalid = errors.New("topic: invalid topic string")

// Topic is a parsed, immutable topic or filter. The original unparsed
// form is retained for logging; matching operates on levels.
type Topic struct {
	original string
	levels   []string
	// multiIndex is the position of a trailing '#' wildcard level, or
	// -1 if the topic has none.
	multiIndex int
}

// String returns the original unparsed form.
func (t Topic) String() string {
	return t.original
}

func (t Topic) hasMulti() bool {
	return t.multiIndex >= 0
}

// Parse splits s on '/' into levels and validates wildcard placement.
// Every level must be non-empty, except that the single-level input
// "#" is explicitly permitted as the degenerate "match everything"
// topic. '#' may appear only as the final level, and at most once.
func Parse(s string) (Topic, error) {
	if s == "#" {
		return Topic{original: s, levels: []string{"#"}, multiIndex: 0}, nil
	}

	levels := strings.Split(s, "/")
	multiIndex := -1
	for i, level := range levels {
		if level == "" {
			return Topic{}, ErrInvalid
		}
		if level == "#" {
			if multiIndex != -1 {
				return Topic{}, ErrInvalid
			}
			multiIndex = i
		}
	}
	if multiIndex != -1 && multiIndex != len(levels)-1 {
		return Topic{}, ErrInvalid
	}

	return Topic{original: s, levels: levels, multiIndex: multiIndex}, nil
}

func levelIsWildcard(level string) bool {
	return strings.HasPrefix(level, "+") || strings.HasPrefix(level, "#")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Matches reports whether a and b describe overlapping topic streams.
// It is symmetric: Matches(a, b) == Matches(b, a). Either or both
// sides may carry wildcards — the broker calls this with a concrete
// publisher topic on one side and a subscriber filter on the other,
// but the algorithm itself does not distinguish the two roles.
func Matches(a, b Topic) bool {
	minLen := min(len(a.levels), len(b.levels))

	var compareUpto int
	switch {
	case a.hasMulti() && b.hasMulti():
		compareUpto = min(a.multiIndex, b.multiIndex)
	case a.hasMulti():
		// a's literal prefix (everything before '#') must fully fit
		// within b; a shorter b cannot satisfy it.
		if a.multiIndex > len(b.levels) {
			return false
		}
		compareUpto = a.multiIndex
	case b.hasMulti():
		if b.multiIndex > len(a.levels) {
			return false
		}
		compareUpto = b.multiIndex
	case len(a.levels) != len(b.levels):
		return false
	default:
		compareUpto = minLen
	}

	for i := 0; i < compareUpto; i++ {
		if levelIsWildcard(a.levels[i]) || levelIsWildcard(b.levels[i]) {
			continue
		}
		if a.levels[i] != b.levels[i] {
			return false
		}
	}
	return true
}
