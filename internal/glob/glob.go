package glob

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled glob.
type Pattern struct {
	source string
	re     *regexp.Regexp
}

// Compile translates pattern into an anchored full-path matcher.
func Compile(pattern string) (*Pattern, error) {
	expr := translate(pattern)
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling glob %q: %w", pattern, err)
	}
	return &Pattern{source: pattern, re: re}, nil
}

// String returns the original pattern text.
func (p *Pattern) String() string { return p.source }

// Match reports whether path matches the whole pattern.
func (p *Pattern) Match(path string) bool {
	return p.re.MatchString(path)
}

func translate(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); {
		switch {
		case strings.HasPrefix(pattern[i:], "**"):
			b.WriteString(".*")
			i += 2
		case pattern[i] == '*':
			b.WriteString("[^/]*")
			i++
		default:
			// copy the literal run up to the next star
			j := i
			for j < len(pattern) && pattern[j] != '*' {
				j++
			}
			b.WriteString(regexp.QuoteMeta(pattern[i:j]))
			i = j
		}
	}
	b.WriteString("$")
	return b.String()
}

// Set is a precompiled list of patterns.
type Set struct {
	patterns []*Pattern
}

// NewSet compiles every pattern. An empty list yields a Set that matches all paths.
func NewSet(patterns []string) (*Set, error) {
	s := &Set{patterns: make([]*Pattern, 0, len(patterns))}
	for _, raw := range patterns {
		p, err := Compile(raw)
		if err != nil {
			return nil, err
		}
		s.patterns = append(s.patterns, p)
	}
	return s, nil
}

// Match reports whether path matches any pattern in the set.
func (s *Set) Match(path string) bool {
	if s == nil || len(s.patterns) == 0 {
		return true
	}
	for _, p := range s.patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}

// Len returns the number of patterns.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Match compiles patterns and matches path against them. Patterns that fail
// to compile never match.
func Match(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, raw := range patterns {
		p, err := Compile(raw)
		if err != nil {
			continue
		}
		if p.Match(path) {
			return true
		}
	}
	return false
}
