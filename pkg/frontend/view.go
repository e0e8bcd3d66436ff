package frontend

import (
	"context"
	"errors"
	"time"

	"socialfeed/pkg/display"
	"socialfeed/pkg/model"
	"socialfeed/pkg/services"
)

type Tab string

const (
	TabMain  Tab = "main"
	TabWrite Tab = "write"

	UnknownAuthor = "알 수 없음"
)

// AppState is everything a client carries between interactions. Pages are
// recomputed from it and the current store contents on every request.
type AppState struct {
	CurrentUserID string          `json:"current_user_id,omitempty"`
	Tab           Tab             `json:"tab,omitempty"`
	Sort          model.SortOrder `json:"sort,omitempty"`
	Query         string          `json:"query,omitempty"`
}

type PostView struct {
	ID              string          `json:"id"`
	AuthorID        string          `json:"author_id"`
	AuthorName      string          `json:"author_name"`
	Content         string          `json:"content"`
	Preview         string          `json:"preview"`
	YoutubeURL      string          `json:"youtube_url,omitempty"`
	EmbedURL        string          `json:"embed_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Likes           int             `json:"likes"`
	LikedByMe       bool            `json:"liked_by_me"`
	RetweetCount    int             `json:"retweet_count"`
	CanRetweet      bool            `json:"can_retweet"`
	ContentMissing  bool            `json:"content_missing"`
	Original        *PostView       `json:"original,omitempty"`
	OriginalMissing bool            `json:"original_missing,omitempty"`
	Comments        []model.Comment `json:"comments"`
}

type BoardPostView struct {
	model.BoardPost
	Tag      string   `json:"tag"`
	Preview  string   `json:"preview"`
	Likes    int      `json:"likes"`
	Comments []string `json:"comments"`
}

type Page struct {
	State    AppState            `json:"state"`
	Username string              `json:"username,omitempty"`
	Feed     []PostView          `json:"feed"`
	Board    []BoardPostView     `json:"board"`
	Popular  []BoardPostView     `json:"popular"`
	Stats    services.BoardStats `json:"stats"`
}

type Renderer struct {
	feed  services.FeedService
	board services.BoardService
}

func NewRenderer(feed services.FeedService, board services.BoardService) *Renderer {
	return &Renderer{feed: feed, board: board}
}

// normalizeState fills in the default tab and sort order and rejects
// values no page can be rendered for.
func normalizeState(state AppState) (AppState, error) {
	switch state.Tab {
	case "":
		state.Tab = TabMain
	case TabMain, TabWrite:
	default:
		return AppState{}, model.ValidationErrorf("unknown tab %q", state.Tab)
	}
	order, ok := model.ParseSortOrder(string(state.Sort))
	if !ok {
		return AppState{}, model.ValidationErrorf("unknown sort order %q", state.Sort)
	}
	state.Sort = order
	return state, nil
}

// Render recomputes the whole page for state.
func (r *Renderer) Render(ctx context.Context, state AppState) (Page, error) {
	state, err := normalizeState(state)
	if err != nil {
		return Page{}, err
	}
	order := state.Sort

	page := Page{
		State: state,
		Feed:  []PostView{},
		Board: []BoardPostView{},
		Stats: r.board.Stats(ctx),
	}
	if state.CurrentUserID != "" {
		user, err := r.feed.User(ctx, state.CurrentUserID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return Page{}, err
		}
		page.Username = user.Username
	}

	posts, err := r.feed.ListFeed(ctx, model.FeedFilter{Query: state.Query}, order)
	if err != nil {
		return Page{}, err
	}
	for post := range posts {
		page.Feed = append(page.Feed, r.postView(ctx, post, state.CurrentUserID))
	}

	boardPosts, err := r.board.List(ctx, state.Query, order)
	if err != nil {
		return Page{}, err
	}
	for post := range boardPosts {
		view, err := r.boardPostView(ctx, post)
		if err != nil {
			return Page{}, err
		}
		page.Board = append(page.Board, view)
	}

	popular := r.board.Popular(ctx, services.DefaultPopularCount)
	page.Popular = make([]BoardPostView, 0, len(popular))
	for _, post := range popular {
		view, err := r.boardPostView(ctx, post)
		if err != nil {
			return Page{}, err
		}
		page.Popular = append(page.Popular, view)
	}
	return page, nil
}

func (r *Renderer) postView(ctx context.Context, post model.Post, viewerID string) PostView {
	view := PostView{
		ID:             post.ID,
		AuthorID:       post.AuthorID,
		AuthorName:     r.authorName(ctx, post.AuthorID),
		Content:        post.Content,
		Preview:        display.Preview(post.Content),
		YoutubeURL:     post.YoutubeURL,
		CreatedAt:      post.CreatedAt,
		Likes:          post.Likes(),
		LikedByMe:      viewerID != "" && post.LikedByUser(viewerID),
		RetweetCount:   post.RetweetCount,
		CanRetweet:     !post.IsRetweet(),
		ContentMissing: display.ContentMissing(post.Content, post.YoutubeURL),
		Comments:       post.Comments,
	}
	if embed, ok := display.EmbedURL(post.YoutubeURL); ok {
		view.EmbedURL = embed
	}
	if post.IsRetweet() {
		original, ok := r.feed.ResolveOriginal(ctx, post)
		if ok {
			ov := r.postView(ctx, original, viewerID)
			view.Original = &ov
		} else {
			view.OriginalMissing = true
		}
	}
	return view
}

func (r *Renderer) authorName(ctx context.Context, userID string) string {
	user, err := r.feed.User(ctx, userID)
	if err != nil {
		return UnknownAuthor
	}
	return user.Username
}

func (r *Renderer) boardPostView(ctx context.Context, post model.BoardPost) (BoardPostView, error) {
	likes, err := r.board.Likes(ctx, post.ID)
	if err != nil {
		return BoardPostView{}, err
	}
	comments, err := r.board.Comments(ctx, post.ID)
	if err != nil {
		return BoardPostView{}, err
	}
	return BoardPostView{
		BoardPost: post,
		Tag:       display.CategoryTag(post.Title),
		Preview:   display.Preview(post.Content),
		Likes:     likes,
		Comments:  comments,
	}, nil
}
