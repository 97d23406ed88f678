// Package glob decides whether a changed path is in review scope.
//
// Patterns are compiled once into anchored matchers. A single "*" matches
// within one path segment, "**" matches across segments, and every other
// character is literal. An empty pattern set matches every path.
package glob
