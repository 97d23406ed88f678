package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
)

// Publication modes reported by Publish.
const (
	ModeNone     = "none"
	ModeReview   = "review"
	ModeFallback = "fallback"
)

const reviewBody = "Automated review by patchpilot."

// PublishResult describes what Publish did. Listed counts comments carried
// in the review body instead of inline.
type PublishResult struct {
	Mode     string `json:"mode"`
	Inline   int    `json:"inline"`
	Listed   int    `json:"listed,omitempty"`
	Rejected bool   `json:"rejected,omitempty"`
}

// Publish posts the plan's comments on pull request number. Anchorable
// comments go out as one review on headSHA whose body lists the unanchored
// ones. When the host rejects that batch,
// or when nothing anchors, a single fallback comment lists every proposed
// comment. Any other host error is returned unchanged.
func Publish(ctx context.Context, host Host, number int, headSHA string, plan Plan) (PublishResult, error) {
	logger := logging.GetLogger()
	if len(plan.Comments) == 0 {
		return PublishResult{Mode: ModeNone}, nil
	}

	if plan.Anchorable() {
		inline := make([]InlineComment, 0, len(plan.Anchored))
		for _, rc := range plan.Anchored {
			inline = append(inline, InlineComment{
				Path:     rc.Path,
				Position: rc.Position,
				Body:     InlineBody(rc.Body, rc.Suggestion),
			})
		}
		err := host.CreateReview(ctx, number, headSHA, ReviewBody(plan.Unanchored), inline)
		if err == nil {
			logger.Info(ctx, "Published review with %d inline comments (%d listed in the body)",
				len(inline), len(plan.Unanchored))
			return PublishResult{Mode: ModeReview, Inline: len(inline), Listed: len(plan.Unanchored)}, nil
		}
		if !IsPublishRejected(err) {
			return PublishResult{}, fmt.Errorf("creating review: %w", err)
		}
		logger.Warn(ctx, "Host rejected inline review, falling back to a summary comment: %v", err)
		if err := host.CreateComment(ctx, number, FallbackBody(plan.Comments, true)); err != nil {
			return PublishResult{}, fmt.Errorf("creating fallback comment: %w", err)
		}
		return PublishResult{Mode: ModeFallback, Rejected: true}, nil
	}

	if err := host.CreateComment(ctx, number, FallbackBody(plan.Comments, false)); err != nil {
		return PublishResult{}, fmt.Errorf("creating fallback comment: %w", err)
	}
	logger.Info(ctx, "No comment could be anchored; published %d as a summary comment", len(plan.Comments))
	return PublishResult{Mode: ModeFallback}, nil
}

// InlineBody renders a comment body with an optional suggestion block.
func InlineBody(body, suggestion string) string {
	if suggestion == "" {
		return body
	}
	return body + "\n\n```suggestion\n" + strings.TrimRight(suggestion, "\n") + "\n```"
}
