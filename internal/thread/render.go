package thread

import (
	"time"

	"github.com/google/uuid"
)

// ViewMode selects which affordances a rendered tree offers.
type ViewMode int

const (
	ViewPublic ViewMode = iota
	ViewModerator
)

type Kind string

const (
	KindComment    Kind = "comment"
	KindReply      Kind = "reply"
	KindAdminReply Kind = "admin_reply"
)

// RenderedNode is the UI-agnostic view of one comment. Key is stable across
// renders and children always come in the same order: admin replies, then
// replies.
type RenderedNode struct {
	Key        uuid.UUID      `json:"key"`
	ParentKey  *uuid.UUID     `json:"parent_key,omitempty"`
	Depth      int            `json:"depth"`
	Kind       Kind           `json:"kind"`
	Role       AuthorRole     `json:"role"`
	State      State          `json:"state"`
	Rejected   bool           `json:"rejected"`
	AuthorName string         `json:"author_name"`
	Content    string         `json:"content"`
	Likes      *int           `json:"likes,omitempty"`
	Actions    []Action       `json:"actions"`
	CreatedAt  time.Time      `json:"created_at"`
	Children   []RenderedNode `json:"children"`
}

// Render walks an assembled tree. Like counts are only shown on approved
// comments. In public mode the content of comments that are not approved is
// withheld but the node stays in place so the thread keeps its shape.
func Render(nodes []*Node, mode ViewMode) []RenderedNode {
	return renderList(nodes, nil, KindComment, 0, mode)
}

func renderList(nodes []*Node, parent *uuid.UUID, kind Kind, depth int, mode ViewMode) []RenderedNode {
	out := make([]RenderedNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, renderNode(n, parent, kind, depth, mode))
	}
	return out
}

func renderNode(n *Node, parent *uuid.UUID, kind Kind, depth int, mode ViewMode) RenderedNode {
	r := RenderedNode{
		Key:        n.ID,
		ParentKey:  parent,
		Depth:      depth,
		Kind:       kind,
		Role:       n.Role,
		State:      n.State,
		Rejected:   n.State == StateRejected,
		AuthorName: n.AuthorName,
		Content:    n.Content,
		Actions:    Actions(n.State, mode),
		CreatedAt:  n.CreatedAt,
	}
	if n.State == StateApproved {
		likes := n.Likes
		r.Likes = &likes
	} else if mode == ViewPublic {
		r.Content = ""
	}

	id := n.ID
	r.Children = append(
		renderList(n.AdminReplies, &id, KindAdminReply, depth+1, mode),
		renderList(n.Replies, &id, KindReply, depth+1, mode)...,
	)
	return r
}

// Actions lists the affordances offered for a comment in state s.
func Actions(s State, mode ViewMode) []Action {
	actions := []Action{}
	switch s {
	case StatePending:
		if mode == ViewModerator {
			actions = append(actions, ActionApprove, ActionReject)
		}
	case StateApproved:
		actions = append(actions, ActionLike, ActionReply)
		if mode == ViewModerator {
			actions = append(actions, ActionDelete)
		}
	}
	return actions
}
