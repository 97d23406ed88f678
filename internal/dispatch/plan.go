package dispatch

import (
	"github.com/dshills/patchpilot/internal/diffpos"
	"github.com/dshills/patchpilot/internal/review"
)

// ResolvedComment is a proposed comment together with its diff position.
// FileLine is the new-file line number, zero when the hunk headers do not
// yield one.
type ResolvedComment struct {
	review.Comment
	Position int `json:"position"`
	FileLine int `json:"fileLine,omitempty"`
}

// Features gates which generated files are committed.
type Features struct {
	Tests bool
	Docs  bool
}

// FileKind tells generated tests from generated docs.
type FileKind string

const (
	KindTest FileKind = "test"
	KindDoc  FileKind = "doc"
)

// FileChange is one generated file to commit.
type FileChange struct {
	Kind    FileKind `json:"kind"`
	Path    string   `json:"path"`
	Content string   `json:"content"`
	Append  bool     `json:"append,omitempty"`
}

// Plan is everything a run would publish. Comments keeps model order;
// Anchored and Unanchored partition it, each also in model order.
type Plan struct {
	Comments   []review.Comment  `json:"-"`
	Anchored   []ResolvedComment `json:"anchored"`
	Unanchored []review.Comment  `json:"unanchored"`
	Files      []FileChange      `json:"files"`
}

// Anchorable reports whether at least one comment can be placed inline.
func (p Plan) Anchorable() bool {
	return len(p.Anchored) > 0
}

// BuildPlan resolves each comment's added-line ordinal against the patch of
// its file. Comments without an ordinal, for files outside patches, or with an
// ordinal past the file's additions are unanchored. Tests precede docs in
// Files, and each kind is kept only when enabled.
func BuildPlan(out review.Output, patches map[string]string, features Features) Plan {
	plan := Plan{Comments: out.Comments}
	indexes := make(map[string]*diffpos.Index)
	for _, c := range out.Comments {
		if pos, ok := resolve(c, patches, indexes); ok {
			line, _ := diffpos.FileLine(patches[c.Path], *c.Line)
			plan.Anchored = append(plan.Anchored, ResolvedComment{Comment: c, Position: pos, FileLine: line})
			continue
		}
		plan.Unanchored = append(plan.Unanchored, c)
	}
	if features.Tests {
		for _, t := range out.Tests {
			plan.Files = append(plan.Files, FileChange{Kind: KindTest, Path: t.Path, Content: t.Content})
		}
	}
	if features.Docs {
		for _, d := range out.Docs {
			plan.Files = append(plan.Files, FileChange{Kind: KindDoc, Path: d.Path, Content: d.Content, Append: d.Append})
		}
	}
	return plan
}

func resolve(c review.Comment, patches map[string]string, indexes map[string]*diffpos.Index) (int, bool) {
	if c.Line == nil {
		return 0, false
	}
	patch, ok := patches[c.Path]
	if !ok {
		return 0, false
	}
	ix, ok := indexes[c.Path]
	if !ok {
		ix = diffpos.NewIndex(patch)
		indexes[c.Path] = ix
	}
	return ix.Resolve(*c.Line)
}
