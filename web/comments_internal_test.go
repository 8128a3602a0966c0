package web

import (
	"testing"

	"github.com/gupshupx/gupshupx/discuss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parentID(id int64) *int64 {
	return &id
}

func TestCommentViews(t *testing.T) {
	t.Parallel()

	comments := []*discuss.Comment{
		{ID: 1},
		{ID: 2, ParentCommentID: parentID(1)},
		{ID: 3, ParentCommentID: parentID(2)},
		{ID: 4, ParentCommentID: parentID(1)},
		{ID: 5},
	}

	voteData := map[int64]*VoteWidgetData{3: {TargetID: 3}}

	views, total := commentViews(discuss.BuildTree(comments), voteData)

	assert.Equal(t, 5, total)
	require.Len(t, views, 2)

	assert.Equal(t, 3, views[0].ReplyCount)
	assert.Equal(t, 0, views[1].ReplyCount)

	require.Len(t, views[0].Replies, 2)
	assert.Equal(t, 1, views[0].Replies[0].ReplyCount)
	assert.Equal(t, 0, views[0].Replies[1].ReplyCount)

	deepest := views[0].Replies[0].Replies[0]
	assert.Equal(t, int64(3), deepest.ID)
	assert.Same(t, voteData[3], deepest.Votes)
	assert.Nil(t, views[1].Votes)
}

func TestCommentViews_LongReplyChain(t *testing.T) {
	t.Parallel()

	const depth = 2000

	comments := make([]*discuss.Comment, 0, depth)
	comments = append(comments, &discuss.Comment{ID: 1})

	for id := int64(2); id <= depth; id++ {
		comments = append(comments, &discuss.Comment{ID: id, ParentCommentID: parentID(id - 1)})
	}

	nodes := discuss.BuildTree(comments)
	views, total := commentViews(nodes, nil)

	assert.Equal(t, depth, total)
	require.Len(t, views, 1)

	view, node := views[0], nodes[0]
	for view != nil {
		assert.Equal(t, discuss.ReplyCount(node), view.ReplyCount, "comment %d", view.ID)

		if len(view.Replies) == 0 {
			break
		}

		view, node = view.Replies[0], node.Children[0]
	}

	assert.Equal(t, int64(depth), view.ID)
}

func TestCommentViews_Empty(t *testing.T) {
	t.Parallel()

	views, total := commentViews(nil, nil)

	assert.Empty(t, views)
	assert.NotNil(t, views)
	assert.Zero(t, total)
}
