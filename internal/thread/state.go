package thread

import (
	"fmt"

	"github.com/softiel/backend/internal/domain"
)

// State is the moderation state of a comment.
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
	// StateRemoved is the result of a delete; removed comments leave the data set.
	StateRemoved State = "removed"
)

// StateOf derives the state from the persisted flags. A record carrying both
// flags is treated as rejected so it never becomes publicly visible.
func StateOf(c *domain.Comment) State {
	switch {
	case c.IsRejected:
		return StateRejected
	case c.IsApproved:
		return StateApproved
	default:
		return StatePending
	}
}

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionReply   Action = "reply"
	ActionLike    Action = "like"
	ActionUnlike  Action = "unlike"
	ActionDelete  Action = "delete"
)

// Transition returns the state reached by applying a to a comment in state
// from. Approve and reject are legal from every live state, so re-moderation
// and repeated calls are allowed. Everything else requires an approved comment.
func Transition(from State, a Action) (State, error) {
	if from == StateRemoved {
		return from, fmt.Errorf("%w: %s on removed comment", ErrInvalidTransition, a)
	}
	switch a {
	case ActionApprove:
		return StateApproved, nil
	case ActionReject:
		return StateRejected, nil
	case ActionReply, ActionLike, ActionUnlike:
		if from != StateApproved {
			return from, fmt.Errorf("%w: %s on %s comment", ErrInvalidTransition, a, from)
		}
		return from, nil
	case ActionDelete:
		if from != StateApproved {
			return from, fmt.Errorf("%w: %s on %s comment", ErrInvalidTransition, a, from)
		}
		return StateRemoved, nil
	default:
		return from, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, a)
	}
}

func CanReply(s State) bool  { return s == StateApproved }
func CanLike(s State) bool   { return s == StateApproved }
func CanDelete(s State) bool { return s == StateApproved }

// ApplyApproval sets the flags for an approval decision. It always clears the
// opposite flag.
func ApplyApproval(c *domain.Comment, approved bool) {
	c.IsApproved = approved
	c.IsRejected = !approved
}
