package domain

// Side tells which version of the file a comment is anchored to.
type Side string

const (
	SideOld  Side = "old"
	SideNew  Side = "new"
	SideBoth Side = "both"
)

// CommentStatus is the lifecycle position of a comment: draft -> sent -> resolved.
// The storage layer enforces transitions; transports only report what they are given.
type CommentStatus string

const (
	StatusDraft    CommentStatus = "draft"
	StatusSent     CommentStatus = "sent"
	StatusResolved CommentStatus = "resolved"
)

// Author distinguishes the reviewer from the agent.
type Author string

const (
	AuthorHuman Author = "human"
	AuthorAgent Author = "agent"
)

// Reply is one entry of a comment thread.
type Reply struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Author  Author `json:"author"`
}

// CommentPayload is the snapshot of a comment taken at send time.
type CommentPayload struct {
	ID        string        `json:"id"`
	FilePath  string        `json:"file_path"`
	LineStart *int          `json:"line_start,omitempty"`
	LineEnd   *int          `json:"line_end,omitempty"`
	Side      Side          `json:"side,omitempty"`
	Content   string        `json:"content"`
	Status    CommentStatus `json:"status"`
	Author    Author        `json:"author"`
	Replies   []Reply       `json:"replies,omitempty"`
}

// Clone returns a deep copy so callers can hand payloads to a channel
// without sharing mutable state with the source.
func (c CommentPayload) Clone() CommentPayload {
	out := c
	if c.LineStart != nil {
		v := *c.LineStart
		out.LineStart = &v
	}
	if c.LineEnd != nil {
		v := *c.LineEnd
		out.LineEnd = &v
	}
	if c.Replies != nil {
		out.Replies = make([]Reply, len(c.Replies))
		copy(out.Replies, c.Replies)
	}
	return out
}

// ClonePayloads deep-copies a batch.
func ClonePayloads(in []CommentPayload) []CommentPayload {
	out := make([]CommentPayload, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
