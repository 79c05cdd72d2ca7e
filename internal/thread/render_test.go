package thread

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findRendered(nodes []RenderedNode, key uuid.UUID) *RenderedNode {
	for i := range nodes {
		if nodes[i].Key == key {
			return &nodes[i]
		}
		if found := findRendered(nodes[i].Children, key); found != nil {
			return found
		}
	}
	return nil
}

func renderedKeys(nodes []RenderedNode) []uuid.UUID {
	var out []uuid.UUID
	var visit func([]RenderedNode)
	visit = func(list []RenderedNode) {
		for _, n := range list {
			out = append(out, n.Key)
			visit(n.Children)
		}
	}
	visit(nodes)
	return out
}

func TestRender_OrderMatchesFlatten(t *testing.T) {
	roots := Assemble(sampleThread(), classify)

	first := Render(roots, ViewModerator)
	second := Render(Assemble(sampleThread(), classify), ViewModerator)

	assert.Equal(t, Flatten(roots), renderedKeys(first))
	assert.Equal(t, renderedKeys(first), renderedKeys(second), "keys must be stable across renders")
}

func TestRender_KindsAndDepth(t *testing.T) {
	view := Render(Assemble(sampleThread(), classify), ViewPublic)

	two := findRendered(view, id(2))
	require.NotNil(t, two)
	assert.Equal(t, KindAdminReply, two.Kind)
	assert.Equal(t, 1, two.Depth)
	assert.Equal(t, id(1), *two.ParentKey)

	three := findRendered(view, id(3))
	assert.Equal(t, KindReply, three.Kind)
	assert.Equal(t, 2, three.Depth)

	one := findRendered(view, id(1))
	assert.Equal(t, KindComment, one.Kind)
	assert.Nil(t, one.ParentKey)
}

func TestRender_ModeratorAffordances(t *testing.T) {
	flat := sampleThread()
	flat[0].Likes = 4
	view := Render(Assemble(flat, classify), ViewModerator)

	approvedNode := findRendered(view, id(1))
	require.NotNil(t, approvedNode.Likes)
	assert.Equal(t, 4, *approvedNode.Likes)
	assert.Equal(t, []Action{ActionLike, ActionReply, ActionDelete}, approvedNode.Actions)

	pending := findRendered(view, id(5))
	assert.Nil(t, pending.Likes)
	assert.Equal(t, []Action{ActionApprove, ActionReject}, pending.Actions)
	assert.Equal(t, "comment 5", pending.Content)

	rejectedNode := findRendered(view, id(7))
	assert.True(t, rejectedNode.Rejected)
	assert.Nil(t, rejectedNode.Likes)
	assert.Empty(t, rejectedNode.Actions)
}

func TestRender_PublicViewWithholdsUnapprovedContent(t *testing.T) {
	view := Render(Assemble(sampleThread(), classify), ViewPublic)

	pending := findRendered(view, id(5))
	require.NotNil(t, pending, "pending comments keep their place in the thread")
	assert.Empty(t, pending.Content)
	assert.Empty(t, pending.Actions)

	rejectedNode := findRendered(view, id(7))
	assert.True(t, rejectedNode.Rejected)
	assert.Empty(t, rejectedNode.Content)

	approvedNode := findRendered(view, id(1))
	assert.Equal(t, "comment 1", approvedNode.Content)
	assert.Equal(t, []Action{ActionLike, ActionReply}, approvedNode.Actions)
}
