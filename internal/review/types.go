package review

// Comment is one inline review comment proposed by the model. Line and
// StartLine are 1-based ordinals over the added lines of the file's patch,
// not file line numbers.
type Comment struct {
	Path       string `json:"path" validate:"required"`
	Line       *int   `json:"line,omitempty"`
	StartLine  *int   `json:"start_line,omitempty"`
	Body       string `json:"body" validate:"required"`
	Suggestion string `json:"suggestion,omitempty"`
}

// HasLine reports whether the comment names an added-line ordinal.
func (c Comment) HasLine() bool {
	return c.Line != nil
}

// TestFile is a generated test to be committed to the branch.
type TestFile struct {
	Path    string `json:"path" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// DocFile is generated documentation. Append adds Content to the end of the
// file at the head ref instead of replacing it.
type DocFile struct {
	Path    string `json:"path" validate:"required"`
	Content string `json:"content" validate:"required"`
	Append  bool   `json:"append,omitempty"`
}

// Output is the validated model answer. All three arrays are always non-nil
// once validation succeeds.
type Output struct {
	Comments []Comment  `json:"comments" validate:"required,dive"`
	Tests    []TestFile `json:"tests" validate:"required,dive"`
	Docs     []DocFile  `json:"docs" validate:"required,dive"`
}

// Empty reports whether the output proposes nothing at all.
func (o Output) Empty() bool {
	return len(o.Comments) == 0 && len(o.Tests) == 0 && len(o.Docs) == 0
}
