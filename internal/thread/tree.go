package thread

import (
	"sort"

	"github.com/google/uuid"
	"github.com/softiel/backend/internal/domain"
)

// Node is an assembled comment with its children split by author role.
type Node struct {
	domain.Comment
	Role         AuthorRole `json:"role"`
	State        State      `json:"state"`
	AdminReplies []*Node    `json:"admin_replies"`
	Replies      []*Node    `json:"replies"`
}

// Assemble builds the display tree of a flat comment list.
//
// Comments without a parent, or whose parent is missing from the list, belongs
// to another blog or closes a cycle, become top-level nodes. Siblings are
// ordered by creation time, then id. The result does not depend on the input
// order and every distinct id appears exactly once.
func Assemble(comments []domain.Comment, cls Classifier) []*Node {
	sorted := make([]domain.Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessComment(&sorted[i], &sorted[j])
	})

	// arena of unique records, addressed by index
	index := make(map[uuid.UUID]int, len(sorted))
	arena := make([]domain.Comment, 0, len(sorted))
	for _, c := range sorted {
		if _, dup := index[c.ID]; dup {
			continue
		}
		index[c.ID] = len(arena)
		arena = append(arena, c)
	}

	parent := make([]int, len(arena))
	for i := range arena {
		parent[i] = -1
		pid := arena[i].ParentID
		if pid == nil {
			continue
		}
		p, ok := index[*pid]
		if !ok || p == i || arena[p].BlogID != arena[i].BlogID {
			continue
		}
		parent[i] = p
	}
	breakCycles(parent)

	nodes := make([]Node, len(arena))
	for i := range arena {
		nodes[i] = Node{
			Comment:      arena[i],
			Role:         cls.Role(arena[i].AuthorEmail),
			State:        StateOf(&arena[i]),
			AdminReplies: []*Node{},
			Replies:      []*Node{},
		}
	}

	roots := make([]*Node, 0)
	// arena is sorted, so appending in index order keeps every bucket sorted
	for i := range nodes {
		p := parent[i]
		if p < 0 {
			roots = append(roots, &nodes[i])
			continue
		}
		if nodes[i].Role == RoleAdmin {
			nodes[p].AdminReplies = append(nodes[p].AdminReplies, &nodes[i])
		} else {
			nodes[p].Replies = append(nodes[p].Replies, &nodes[i])
		}
	}
	return roots
}

func lessComment(a, b *domain.Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// breakCycles detaches the lowest-index member of every parent cycle so that
// it becomes a root.
func breakCycles(parent []int) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(parent))
	var path []int
	for i := range parent {
		if state[i] != unvisited {
			continue
		}
		path = path[:0]
		cur := i
		for cur >= 0 && state[cur] == unvisited {
			state[cur] = visiting
			path = append(path, cur)
			cur = parent[cur]
		}
		if cur >= 0 && state[cur] == visiting {
			lowest := cur
			for k := len(path) - 1; k >= 0 && path[k] != cur; k-- {
				if path[k] < lowest {
					lowest = path[k]
				}
			}
			parent[lowest] = -1
		}
		for _, n := range path {
			state[n] = done
		}
	}
}

// Walk visits nodes depth-first in render order: the node, its admin replies,
// then its replies. Returning false from fn stops the walk.
func Walk(nodes []*Node, fn func(n *Node, depth int) bool) {
	var visit func(list []*Node, depth int) bool
	visit = func(list []*Node, depth int) bool {
		for _, n := range list {
			if !fn(n, depth) {
				return false
			}
			if !visit(n.AdminReplies, depth+1) {
				return false
			}
			if !visit(n.Replies, depth+1) {
				return false
			}
		}
		return true
	}
	visit(nodes, 0)
}

// Flatten returns the ids of an assembled tree in pre-order.
func Flatten(nodes []*Node) []uuid.UUID {
	var ids []uuid.UUID
	Walk(nodes, func(n *Node, _ int) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// Find returns the node with the given id, or nil.
func Find(nodes []*Node, id uuid.UUID) *Node {
	var found *Node
	Walk(nodes, func(n *Node, _ int) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Subtree returns the ids of a node and all of its descendants in post-order,
// children before their parent. It returns nil when id is not in the tree.
func Subtree(nodes []*Node, id uuid.UUID) []uuid.UUID {
	root := Find(nodes, id)
	if root == nil {
		return nil
	}
	var ids []uuid.UUID
	var visit func(n *Node)
	visit = func(n *Node) {
		for _, c := range n.AdminReplies {
			visit(c)
		}
		for _, c := range n.Replies {
			visit(c)
		}
		ids = append(ids, n.ID)
	}
	visit(root)
	return ids
}

// Count returns the number of nodes in the tree.
func Count(nodes []*Node) int {
	n := 0
	Walk(nodes, func(*Node, int) bool {
		n++
		return true
	})
	return n
}
