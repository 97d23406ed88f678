package dispatch

import (
	"fmt"
	"strings"

	"github.com/dshills/patchpilot/internal/review"
)

// FallbackBody renders every comment as one markdown summary. rejected
// selects the explanation shown above the list.
func FallbackBody(comments []review.Comment, rejected bool) string {
	var b strings.Builder
	b.WriteString("## patchpilot review\n\n")
	if rejected {
		b.WriteString("The inline review could not be placed on this diff, so all comments are listed here.\n")
	} else {
		b.WriteString("None of these comments could be anchored to an added line, so they are listed here.\n")
	}
	writeList(&b, comments)
	return b.String()
}

// ReviewBody is the body of the inline review. Comments that could not be
// placed inline are listed under it.
func ReviewBody(unanchored []review.Comment) string {
	if len(unanchored) == 0 {
		return reviewBody
	}
	var b strings.Builder
	b.WriteString(reviewBody)
	b.WriteString("\n\nThese comments could not be anchored to an added line:\n")
	writeList(&b, unanchored)
	return b.String()
}

func writeList(b *strings.Builder, comments []review.Comment) {
	for i, c := range comments {
		b.WriteString("\n")
		fmt.Fprintf(b, "%d. `%s`", i+1, c.Path)
		if loc := lineLabel(c); loc != "" {
			fmt.Fprintf(b, " (%s)", loc)
		}
		b.WriteString("\n\n")
		b.WriteString(indent(c.Body, "   "))
		b.WriteString("\n")
		if c.Suggestion != "" {
			b.WriteString("\n   Suggestion:\n\n")
			b.WriteString(indent("```\n"+strings.TrimRight(c.Suggestion, "\n")+"\n```", "   "))
			b.WriteString("\n")
		}
	}
}

func lineLabel(c review.Comment) string {
	switch {
	case c.Line == nil:
		return ""
	case c.StartLine != nil && *c.StartLine != *c.Line:
		return fmt.Sprintf("lines %d-%d", *c.StartLine, *c.Line)
	default:
		return fmt.Sprintf("line %d", *c.Line)
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
