package services

import (
	"context"
	"slices"
	"testing"
	"time"

	"socialfeed/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boardIDs(posts []model.BoardPost) []int {
	var ids []int
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func listBoard(t *testing.T, b BoardService, query string, order model.SortOrder) []model.BoardPost {
	t.Helper()
	seq, err := b.List(context.Background(), query, order)
	require.NoError(t, err)
	return slices.Collect(seq)
}

func TestBoardSeed(t *testing.T) {
	ctx := context.Background()
	b := NewBoardService(nil, nil)

	assert.Equal(t, BoardStats{TotalPosts: 3, TotalComments: 0}, b.Stats(ctx))
	for id, want := range []int{15, 28, 5} {
		got, err := b.Likes(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		comments, err := b.Comments(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, comments)
	}

	assert.Equal(t, []int{2, 1, 0}, boardIDs(listBoard(t, b, "", model.SortNewest)))
	assert.Equal(t, []int{1, 0, 2}, boardIDs(listBoard(t, b, "", model.SortMostLiked)))
}

func TestBoardWrite(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 9, 1, 8, 30, 0, 0, time.UTC)
	b := NewBoardService(nil, func() time.Time { return now })

	_, err := b.Write(ctx, "kim", "", "content")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = b.Write(ctx, "kim", "title", " ")
	assert.ErrorIs(t, err, model.ErrValidation)

	post, err := b.Write(ctx, "", "새 제목", "새 내용")
	require.NoError(t, err)
	assert.Equal(t, 3, post.ID)
	assert.Equal(t, AnonymousAuthor, post.Author)
	assert.Equal(t, "2025-09-01 08:30:00", post.CreatedAt)

	likes, err := b.Likes(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, likes)
	assert.Equal(t, 3, listBoard(t, b, "", model.SortNewest)[0].ID)
}

func TestBoardLikeIsCounter(t *testing.T) {
	ctx := context.Background()
	b := NewBoardService(nil, nil)

	n, err := b.Like(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	n, err = b.Like(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = b.Like(ctx, 42)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestBoardSearchMatchesTitleOrContent(t *testing.T) {
	b := NewBoardService(nil, nil)

	assert.Equal(t, []int{0}, boardIDs(listBoard(t, b, "고혈압", model.SortNewest)))
	assert.Equal(t, []int{1}, boardIDs(listBoard(t, b, "위암", model.SortNewest)))
	assert.Empty(t, listBoard(t, b, "없는 단어", model.SortNewest))
}

func TestBoardMostLikedIsStable(t *testing.T) {
	ctx := context.Background()
	b := NewBoardService(nil, nil)
	for i := 0; i < 10; i++ {
		_, err := b.Like(ctx, 2)
		require.NoError(t, err)
	}
	// post 2 now has 15 likes, tied with post 0 which comes first in storage
	assert.Equal(t, []int{1, 0, 2}, boardIDs(listBoard(t, b, "", model.SortMostLiked)))
}

func TestBoardCommentsAndPopular(t *testing.T) {
	ctx := context.Background()
	b := NewBoardService(nil, nil)

	assert.ErrorIs(t, b.AddComment(ctx, 0, ""), model.ErrValidation)
	assert.ErrorIs(t, b.AddComment(ctx, 9, "hi"), model.ErrNotFound)
	require.NoError(t, b.AddComment(ctx, 0, "힘내세요"))
	require.NoError(t, b.AddComment(ctx, 0, "감사합니다"))

	comments, err := b.Comments(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"힘내세요", "감사합니다"}, comments)
	assert.Equal(t, 2, b.Stats(ctx).TotalComments)

	assert.Equal(t, []int{1, 0}, boardIDs(b.Popular(ctx, 2)))
	assert.Len(t, b.Popular(ctx, 0), 3)

	_, err = b.List(ctx, "", model.SortOrder("random"))
	assert.ErrorIs(t, err, model.ErrValidation)
}
