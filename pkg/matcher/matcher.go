// Package matcher implements the composable request-path predicates that
// routing handlers are guarded by. A matcher tree is built once from
// configuration, prepared once, and is immutable afterwards.
package matcher

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Matcher is a boolean predicate over a request path.
//
// Prepare performs the one-time setup (regex compilation, combinator
// validation) and is the only place a matcher may fail. Matches must only be
// called after a successful Prepare; it is pure and total.
type Matcher interface {
	Prepare() error
	Matches(path string) bool
}

// Path matches when the request path equals the configured value, with
// leading and trailing slashes stripped from both sides of the comparison.
type Path struct {
	Value string
}

func (m *Path) Prepare() error {
	return nil
}

func (m *Path) Matches(path string) bool {
	return strings.Trim(path, "/") == strings.Trim(m.Value, "/")
}

// Regex matches when the compiled pattern matches the raw, untrimmed
// request path.
type Regex struct {
	Pattern string

	re *regexp.Regexp
}

func (m *Regex) Prepare() error {
	re, err := regexp.Compile(m.Pattern)
	if err != nil {
		return errors.Wrapf(err, "invalid pattern %q", m.Pattern)
	}
	m.re = re

	return nil
}

func (m *Regex) Matches(path string) bool {
	if m.re == nil {
		// Matching against an unprepared pattern is a programming error,
		// not a recoverable condition.
		panic("matcher: regex evaluated before Prepare")
	}

	return m.re.MatchString(path)
}

// Any matches when at least one child matches. The child list must be
// non-empty, which Prepare enforces.
type Any struct {
	Of []Matcher
}

func (m *Any) Prepare() error {
	if len(m.Of) == 0 {
		return errors.New("an any block needs at least one child matcher")
	}

	for _, child := range m.Of {
		if err := child.Prepare(); err != nil {
			return errors.Wrap(err, "inside an any block")
		}
	}

	return nil
}

func (m *Any) Matches(path string) bool {
	for _, child := range m.Of {
		if child.Matches(path) {
			return true
		}
	}

	return false
}

// All matches when every child matches. The child list must be non-empty,
// which Prepare enforces.
type All struct {
	Of []Matcher
}

func (m *All) Prepare() error {
	if len(m.Of) == 0 {
		return errors.New("an all block needs at least one child matcher")
	}

	for _, child := range m.Of {
		if err := child.Prepare(); err != nil {
			return errors.Wrap(err, "inside an all block")
		}
	}

	return nil
}

func (m *All) Matches(path string) bool {
	for _, child := range m.Of {
		if !child.Matches(path) {
			return false
		}
	}

	return true
}

// Not negates its single child.
type Not struct {
	Child Matcher
}

func (m *Not) Prepare() error {
	if m.Child == nil {
		return errors.New("a not block needs a child matcher")
	}

	if err := m.Child.Prepare(); err != nil {
		return errors.Wrap(err, "inside a not block")
	}

	return nil
}

func (m *Not) Matches(path string) bool {
	return !m.Child.Matches(path)
}

// Root matches paths consisting solely of slash characters, including the
// empty path. A path like "///" still counts; callers that want normalized
// root semantics should not rely on length.
type Root struct{}

func (m *Root) Prepare() error {
	return nil
}

func (m *Root) Matches(path string) bool {
	return strings.Trim(path, "/") == ""
}
