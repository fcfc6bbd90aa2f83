package transport

import (
	"fmt"
	"strings"

	"github.com/aretw0/reviewlink/pkg/domain"
)

// Format renders a batch of comments as a single Markdown message.
// The output is deterministic for a given batch.
func Format(payloads []domain.CommentPayload) string {
	var b strings.Builder

	noun := "comments"
	if len(payloads) == 1 {
		noun = "comment"
	}
	fmt.Fprintf(&b, "# Review feedback (%d %s)\n\n", len(payloads), noun)
	b.WriteString("Please address the following review comments on the current diff.\n")

	for _, c := range payloads {
		fmt.Fprintf(&b, "\n## %s\n\n", location(c))
		fmt.Fprintf(&b, "<!-- comment:%s -->\n", c.ID)
		b.WriteString(strings.TrimSpace(c.Content))
		b.WriteString("\n")

		for _, r := range c.Replies {
			fmt.Fprintf(&b, "\n> **%s:** %s\n", r.Author, quote(r.Content))
		}
	}

	return b.String()
}

func location(c domain.CommentPayload) string {
	loc := "`" + c.FilePath + "`"
	switch {
	case c.LineStart != nil && c.LineEnd != nil && *c.LineEnd != *c.LineStart:
		loc += fmt.Sprintf(" lines %d-%d", *c.LineStart, *c.LineEnd)
	case c.LineStart != nil:
		loc += fmt.Sprintf(" line %d", *c.LineStart)
	}
	if c.Side != "" && c.Side != domain.SideNew {
		loc += fmt.Sprintf(" (%s)", c.Side)
	}
	return loc
}

// quote keeps multi-line replies inside the blockquote.
func quote(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n> ")
}

// CommentIDs returns the ids of a batch in order.
func CommentIDs(payloads []domain.CommentPayload) []string {
	ids := make([]string, len(payloads))
	for i, c := range payloads {
		ids[i] = c.ID
	}
	return ids
}
