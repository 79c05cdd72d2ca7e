package thread

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultPreviewLength is the rune length of a "replying to" preview.
const DefaultPreviewLength = 50

// ReplyingTo is display metadata for the comment a reply answers. It is not
// persisted.
type ReplyingTo struct {
	ID         uuid.UUID  `json:"id"`
	AuthorName string     `json:"author_name"`
	Role       AuthorRole `json:"role"`
	Preview    string     `json:"preview"`
}

// Route is where a new reply attaches.
type Route struct {
	BlogID     uuid.UUID
	ParentID   uuid.UUID
	ReplyingTo ReplyingTo
}

// RouteReply decides the parent of a reply to target. Top-level comments,
// user replies and admin replies all take the reply as a direct child; the
// assembler later files it under replies or admin replies by the replier's
// role. Only approved comments accept replies.
func RouteReply(target *Node, previewLen int) (Route, error) {
	if target == nil {
		return Route{}, ErrNotFound
	}
	if _, err := Transition(target.State, ActionReply); err != nil {
		return Route{}, err
	}
	if previewLen <= 0 {
		previewLen = DefaultPreviewLength
	}
	return Route{
		BlogID:   target.BlogID,
		ParentID: target.ID,
		ReplyingTo: ReplyingTo{
			ID:         target.ID,
			AuthorName: target.AuthorName,
			Role:       target.Role,
			Preview:    Preview(target.Content, previewLen),
		},
	}, nil
}

// Preview collapses whitespace and cuts content to n runes, marking the cut.
func Preview(content string, n int) string {
	collapsed := strings.Join(strings.Fields(content), " ")
	runes := []rune(collapsed)
	if n <= 0 || len(runes) <= n {
		return collapsed
	}
	return strings.TrimRight(string(runes[:n]), " ") + "..."
}
