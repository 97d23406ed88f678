package review

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/patchpilot/internal/providers"
)

const systemPrompt = `You are a strict, expert code reviewer working on a pull request. You review unified diffs and respond with structured JSON.

Rules:
1. Only review the changes shown in the diffs. Do not comment on unchanged code.
2. Focus on bugs, security issues, performance problems, and correctness. Avoid style nits unless they hurt readability.
3. Be concise and actionable. Put replacement code in "suggestion" when you have one.
4. "line" is the ordinal of an added line within that file's patch: 1 means the first line starting with "+", 2 the second, and so on. Do not count context lines, removed lines, hunk headers, or the "+++" header. Omit "line" for comments about the file as a whole.
5. "start_line" is optional and uses the same counting; set it only for comments spanning several added lines.

You MUST respond with ONLY one JSON object. No markdown, no explanation, no preamble.

The object must have exactly this structure:
{
  "comments": [
    {"path": "relative/file/path", "line": 1, "start_line": 1, "body": "What is wrong and why it matters", "suggestion": "optional replacement code"}
  ],
  "tests": [
    {"path": "relative/test/file/path", "content": "full file content"}
  ],
  "docs": [
    {"path": "relative/doc/path.md", "content": "markdown content", "append": false}
  ]
}

All three arrays are required. Use an empty array when you have nothing to add.`

const repairInstruction = `Your previous answer could not be parsed. Reprint the same answer as a single JSON object that matches the required structure. Output JSON only: no code fences, no prose, no comments.`

// PromptFile is one in-scope changed file as shown to the model.
type PromptFile struct {
	Path      string
	Status    string
	Patch     string
	Truncated bool
}

// PromptInput carries everything BuildMessages renders.
type PromptInput struct {
	Title        string
	Description  string
	Files        []PromptFile
	README       string
	Addendum     string
	MaxComments  int
	TestsEnabled bool
	DocsEnabled  bool
}

// SystemPrompt returns the fixed reviewer instructions.
func SystemPrompt() string {
	return systemPrompt
}

// BuildMessages assembles the conversation in a fixed order: reviewer
// instructions, README excerpt, addendum, then the diff message.
func BuildMessages(in PromptInput) []providers.Message {
	msgs := []providers.Message{
		{Role: providers.RoleSystem, Content: systemPrompt + limitsSection(in)},
	}
	if s := strings.TrimSpace(in.README); s != "" {
		msgs = append(msgs, providers.Message{
			Role:    providers.RoleSystem,
			Content: "Repository README (excerpt) for context:\n\n" + s,
		})
	}
	if s := strings.TrimSpace(in.Addendum); s != "" {
		msgs = append(msgs, providers.Message{
			Role:    providers.RoleSystem,
			Content: "Additional instructions from the repository maintainers:\n\n" + s,
		})
	}
	msgs = append(msgs, providers.Message{Role: providers.RoleUser, Content: BuildDiffMessage(in)})
	return msgs
}

func limitsSection(in PromptInput) string {
	var b strings.Builder
	b.WriteString("\n\nLimits:\n")
	if in.MaxComments > 0 {
		fmt.Fprintf(&b, "- Return at most %d comments.\n", in.MaxComments)
	}
	if in.TestsEnabled {
		b.WriteString("- Propose unit tests for new behavior in \"tests\" when it helps.\n")
	} else {
		b.WriteString("- Test generation is disabled: \"tests\" must be an empty array.\n")
	}
	if in.DocsEnabled {
		b.WriteString("- Propose documentation updates in \"docs\" when public behavior changes.\n")
	} else {
		b.WriteString("- Documentation generation is disabled: \"docs\" must be an empty array.\n")
	}
	return b.String()
}

// BuildDiffMessage renders the pull request summary and every file patch.
func BuildDiffMessage(in PromptInput) string {
	var b strings.Builder
	b.WriteString("Review the following pull request.\n\n")
	if in.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", in.Title)
	}
	if s := strings.TrimSpace(in.Description); s != "" {
		fmt.Fprintf(&b, "Description:\n%s\n", s)
	}
	for _, f := range in.Files {
		fmt.Fprintf(&b, "\n--- FILE: %s", f.Path)
		if f.Status != "" {
			fmt.Fprintf(&b, " (%s)", f.Status)
		}
		b.WriteString(" ---\n")
		b.WriteString(f.Patch)
		if !strings.HasSuffix(f.Patch, "\n") {
			b.WriteString("\n")
		}
		if f.Truncated {
			b.WriteString("[patch truncated; comment only on the lines shown]\n")
		}
	}
	b.WriteString("--- END OF DIFFS ---\n")
	return b.String()
}

// TruncatePatch cuts patch to at most limit characters, ending on a line
// boundary when one exists. A non-positive limit leaves the patch whole.
func TruncatePatch(patch string, limit int) (string, bool) {
	if limit <= 0 || len(patch) <= limit {
		return patch, false
	}
	cut := patch[:limit]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	}
	return cut, true
}

// Excerpt returns at most limit bytes of s without splitting a rune.
func Excerpt(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// RepairMessages returns the original conversation followed by the model's
// previous answer and the instruction to reprint it as bare JSON.
func RepairMessages(messages []providers.Message, previous string) []providers.Message {
	out := make([]providers.Message, 0, len(messages)+2)
	out = append(out, messages...)
	out = append(out,
		providers.Message{Role: providers.RoleAssistant, Content: previous},
		providers.Message{Role: providers.RoleUser, Content: repairInstruction},
	)
	return out
}

// NewRepairer returns a Repairer that resends messages through c with the
// repair instruction appended.
func NewRepairer(c providers.Completer, messages []providers.Message, previous string, maxOutputTokens int) Repairer {
	return RepairFunc(func(ctx context.Context) (string, error) {
		return c.Complete(ctx, RepairMessages(messages, previous), maxOutputTokens)
	})
}
