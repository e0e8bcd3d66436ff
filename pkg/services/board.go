package services

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"socialfeed/pkg/model"
)

const (
	AnonymousAuthor     = "익명"
	DefaultPopularCount = 5
)

// BoardService is the in-memory community board. Likes are plain counters and
// comments are bare strings.
type BoardService interface {
	Write(ctx context.Context, author string, title string, content string) (model.BoardPost, error)
	Like(ctx context.Context, postID int) (int, error)
	AddComment(ctx context.Context, postID int, text string) error
	List(ctx context.Context, query string, order model.SortOrder) (iter.Seq[model.BoardPost], error)
	Popular(ctx context.Context, n int) []model.BoardPost
	Stats(ctx context.Context) BoardStats
	Comments(ctx context.Context, postID int) ([]string, error)
	Likes(ctx context.Context, postID int) (int, error)
}

type BoardStats struct {
	TotalPosts    int `json:"total_posts"`
	TotalComments int `json:"total_comments"`
}

type boardService struct {
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	posts    []model.BoardPost
	comments map[int][]string
	likes    map[int]int
}

// NewBoardService returns a board seeded with the demonstration posts.
func NewBoardService(logger *slog.Logger, now func() time.Time) BoardService {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	b := &boardService{
		logger:   logger,
		now:      now,
		comments: map[int][]string{},
		likes:    map[int]int{},
	}
	for _, seed := range boardSeed {
		b.posts = append(b.posts, seed.post)
		b.comments[seed.post.ID] = []string{}
		b.likes[seed.post.ID] = seed.likes
	}
	return b
}

func (b *boardService) Write(ctx context.Context, author string, title string, content string) (model.BoardPost, error) {
	b.logger.Debug("entering Write", "author", author, "title", title)
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return model.BoardPost{}, model.ValidationErrorf("title and content are required")
	}
	if strings.TrimSpace(author) == "" {
		author = AnonymousAuthor
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	post := model.BoardPost{
		ID:        len(b.posts),
		Author:    author,
		Title:     title,
		Content:   content,
		CreatedAt: b.now().Format(model.BoardPostTimeLayout),
	}
	b.posts = append(b.posts, post)
	b.comments[post.ID] = []string{}
	b.likes[post.ID] = 0
	b.logger.Info("board post written", "post_id", post.ID)
	return post, nil
}

func (b *boardService) Like(ctx context.Context, postID int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.exists(postID) {
		return 0, boardPostNotFound(postID)
	}
	b.likes[postID]++
	return b.likes[postID], nil
}

func (b *boardService) AddComment(ctx context.Context, postID int, text string) error {
	if strings.TrimSpace(text) == "" {
		return model.ValidationErrorf("comment is empty")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.exists(postID) {
		return boardPostNotFound(postID)
	}
	b.comments[postID] = append(b.comments[postID], text)
	return nil
}

// List matches the query against title or content and sorts stably.
func (b *boardService) List(ctx context.Context, query string, order model.SortOrder) (iter.Seq[model.BoardPost], error) {
	order, ok := model.ParseSortOrder(string(order))
	if !ok {
		return nil, model.ValidationErrorf("unknown sort order")
	}
	q := strings.ToLower(query)

	b.mu.RLock()
	posts := make([]model.BoardPost, 0, len(b.posts))
	for _, p := range b.posts {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Content), q) {
			posts = append(posts, p)
		}
	}
	likes := maps.Clone(b.likes)
	b.mu.RUnlock()

	if order == model.SortMostLiked {
		slices.SortStableFunc(posts, func(x, y model.BoardPost) int { return cmp.Compare(likes[y.ID], likes[x.ID]) })
	} else {
		slices.SortStableFunc(posts, func(x, y model.BoardPost) int { return cmp.Compare(y.CreatedAt, x.CreatedAt) })
	}
	return slices.Values(posts), nil
}

func (b *boardService) Popular(ctx context.Context, n int) []model.BoardPost {
	if n <= 0 {
		n = DefaultPopularCount
	}
	b.mu.RLock()
	posts := slices.Clone(b.posts)
	likes := maps.Clone(b.likes)
	b.mu.RUnlock()

	slices.SortStableFunc(posts, func(x, y model.BoardPost) int { return cmp.Compare(likes[y.ID], likes[x.ID]) })
	if len(posts) > n {
		posts = posts[:n]
	}
	return posts
}

func (b *boardService) Stats(ctx context.Context) BoardStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	stats := BoardStats{TotalPosts: len(b.posts)}
	for _, c := range b.comments {
		stats.TotalComments += len(c)
	}
	return stats
}

func (b *boardService) Comments(ctx context.Context, postID int) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.exists(postID) {
		return nil, boardPostNotFound(postID)
	}
	return slices.Clone(b.comments[postID]), nil
}

func (b *boardService) Likes(ctx context.Context, postID int) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.exists(postID) {
		return 0, boardPostNotFound(postID)
	}
	return b.likes[postID], nil
}

func (b *boardService) exists(postID int) bool {
	return postID >= 0 && postID < len(b.posts)
}

func boardPostNotFound(postID int) error {
	return fmt.Errorf("%w: board post %d", model.ErrNotFound, postID)
}
