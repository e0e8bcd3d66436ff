package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"socialfeed/pkg/display"
	sf_metrics "socialfeed/pkg/metrics"
	"socialfeed/pkg/model"
	"socialfeed/pkg/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FeedService is the only mutation and query surface over users, posts,
// likes, retweets and comments.
type FeedService interface {
	RegisterOrLogin(ctx context.Context, username string) (string, error)
	CreatePost(ctx context.Context, authorID string, content string, youtubeURL string) (string, error)
	CreateRetweet(ctx context.Context, authorID string, originalPostID string) (string, error)
	ToggleLike(ctx context.Context, userID string, postID string) (bool, error)
	AddComment(ctx context.Context, postID string, text string) error
	ListFeed(ctx context.Context, filter model.FeedFilter, order model.SortOrder) (iter.Seq[model.Post], error)
	ResolveOriginal(ctx context.Context, post model.Post) (model.Post, bool)
	Post(ctx context.Context, postID string) (model.Post, error)
	User(ctx context.Context, userID string) (model.User, error)
	Comments(ctx context.Context, postID string) ([]model.Comment, error)
}

const (
	retweetExcerptLimit = 50
	retweetPrefix       = "리트윗: "
)

var tracer = otel.Tracer("socialfeed/pkg/services")

// errUnchanged aborts a mutation without saving.
var errUnchanged = errors.New("unchanged")

type feedService struct {
	store    storage.DocumentStore
	ids      IDGenerator
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	region   string

	mu  sync.RWMutex
	doc model.Document
}

type Option func(*feedService)

func WithIDGenerator(ids IDGenerator) Option {
	return func(f *feedService) { f.ids = ids }
}

func WithNotifier(n Notifier) Option {
	return func(f *feedService) { f.notifier = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *feedService) { f.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(f *feedService) { f.now = now }
}

func WithRegion(region string) Option {
	return func(f *feedService) { f.region = region }
}

// NewFeedService loads the document from store and returns a service owning it.
func NewFeedService(ctx context.Context, store storage.DocumentStore, opts ...Option) (FeedService, error) {
	f := &feedService{
		store:    store,
		ids:      UUIDGenerator{},
		notifier: NopNotifier{},
		logger:   slog.Default(),
		now:      time.Now,
		region:   "local",
	}
	for _, opt := range opts {
		opt(f)
	}

	doc, err := store.Load(ctx)
	if err != nil {
		sf_metrics.StorageFailures.Get(sf_metrics.OperationLabel{Region: f.region, Operation: "load"}).Inc()
		f.logger.Error("error loading feed document", "msg", err.Error())
		return nil, model.NewStorageError("load", err)
	}
	f.doc = doc
	f.logger.Info("feed service running!", "region", f.region, "users", doc.Users.Len(), "posts", len(doc.Posts))
	return f, nil
}

// Logger returns the service logger, tagged with the trace id when ctx carries a span.
func (f *feedService) Logger(ctx context.Context) *slog.Logger {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return f.logger.With("trace_id", sc.TraceID().String())
	}
	return f.logger
}

func (f *feedService) RegisterOrLogin(ctx context.Context, username string) (string, error) {
	ctx, span := tracer.Start(ctx, "FeedService.RegisterOrLogin")
	defer span.End()
	logger := f.Logger(ctx)
	logger.Debug("entering RegisterOrLogin", "username", username)

	if strings.TrimSpace(username) == "" {
		return "", f.reject(ctx, "register_or_login", model.ValidationErrorf("username is empty"))
	}

	f.mu.RLock()
	user, ok := f.doc.Users.FindByUsername(username)
	f.mu.RUnlock()
	if ok {
		logger.Debug("found existing user", "user_id", user.ID)
		return user.ID, nil
	}

	newID, err := f.ids.NewID()
	if err != nil {
		logger.Error("error generating user id", "msg", err.Error())
		return "", err
	}
	userID := newID
	created := false
	err = f.mutate(ctx, "register_or_login", func(doc *model.Document) error {
		// another caller may have registered the name between the lookup and the lock
		if existing, ok := doc.Users.FindByUsername(username); ok {
			userID = existing.ID
			return errUnchanged
		}
		doc.Users.Add(model.User{ID: newID, Username: username})
		created = true
		return nil
	})
	if err != nil {
		return "", err
	}
	if created {
		logger.Info("registered user", "user_id", userID, "username", username)
		f.publish(ctx, FeedEvent{Type: EventUserRegistered, UserID: userID})
	}
	return userID, nil
}

func (f *feedService) CreatePost(ctx context.Context, authorID string, content string, youtubeURL string) (string, error) {
	ctx, span := tracer.Start(ctx, "FeedService.CreatePost")
	defer span.End()
	logger := f.Logger(ctx)
	logger.Debug("entering CreatePost", "author_id", authorID, "youtube_url", youtubeURL)

	if strings.TrimSpace(authorID) == "" {
		return "", f.reject(ctx, "create_post", model.ValidationErrorf("author id is empty"))
	}
	if strings.TrimSpace(content) == "" && strings.TrimSpace(youtubeURL) == "" {
		return "", f.reject(ctx, "create_post", model.ValidationErrorf("content and youtube url are both empty"))
	}

	postID, err := f.ids.NewID()
	if err != nil {
		logger.Error("error generating post id", "msg", err.Error())
		return "", err
	}
	post := model.Post{
		ID:         postID,
		AuthorID:   authorID,
		Content:    content,
		YoutubeURL: strings.TrimSpace(youtubeURL),
		CreatedAt:  f.now(),
		LikedBy:    []string{},
		Comments:   []model.Comment{},
	}
	err = f.mutate(ctx, "create_post", func(doc *model.Document) error {
		doc.Posts = slices.Insert(doc.Posts, 0, post)
		return nil
	})
	if err != nil {
		return "", err
	}

	span.SetAttributes(attribute.String("post_id", postID))
	sf_metrics.CreatedPosts.Get(sf_metrics.RegionLabel{Region: f.region}).Inc()
	f.publish(ctx, FeedEvent{Type: EventPostCreated, PostID: postID, UserID: authorID})
	return postID, nil
}

func (f *feedService) CreateRetweet(ctx context.Context, authorID string, originalPostID string) (string, error) {
	ctx, span := tracer.Start(ctx, "FeedService.CreateRetweet")
	defer span.End()
	logger := f.Logger(ctx)
	logger.Debug("entering CreateRetweet", "author_id", authorID, "original_post_id", originalPostID)

	if strings.TrimSpace(authorID) == "" {
		return "", f.reject(ctx, "create_retweet", model.ValidationErrorf("author id is empty"))
	}

	postID, err := f.ids.NewID()
	if err != nil {
		logger.Error("error generating post id", "msg", err.Error())
		return "", err
	}
	err = f.mutate(ctx, "create_retweet", func(doc *model.Document) error {
		idx := doc.PostIndex(originalPostID)
		if idx < 0 {
			return model.PostNotFound(originalPostID)
		}
		original := &doc.Posts[idx]
		if original.IsRetweet() {
			return fmt.Errorf("%w: post %q is a retweet and cannot be retweeted", model.ErrInvalidOperation, originalPostID)
		}
		original.RetweetCount++
		retweet := model.Post{
			ID:             postID,
			AuthorID:       authorID,
			Content:        RetweetContent(original.Content),
			YoutubeURL:     original.YoutubeURL,
			CreatedAt:      f.now(),
			LikedBy:        []string{},
			OriginalPostID: original.ID,
			Comments:       []model.Comment{},
		}
		doc.Posts = slices.Insert(doc.Posts, 0, retweet)
		return nil
	})
	if err != nil {
		return "", f.reject(ctx, "create_retweet", err)
	}

	span.SetAttributes(attribute.String("post_id", postID), attribute.String("original_post_id", originalPostID))
	sf_metrics.CreatedPosts.Get(sf_metrics.RegionLabel{Region: f.region}).Inc()
	sf_metrics.CreatedRetweets.Get(sf_metrics.RegionLabel{Region: f.region}).Inc()
	f.publish(ctx, FeedEvent{Type: EventRetweetCreated, PostID: postID, UserID: authorID, OriginalPostID: originalPostID})
	return postID, nil
}

// RetweetContent quotes the original content, cut to 50 characters.
func RetweetContent(original string) string {
	return fmt.Sprintf("%s\" %s \"", retweetPrefix, display.Truncate(original, retweetExcerptLimit))
}

func (f *feedService) ToggleLike(ctx context.Context, userID string, postID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "FeedService.ToggleLike")
	defer span.End()
	logger := f.Logger(ctx)
	logger.Debug("entering ToggleLike", "user_id", userID, "post_id", postID)

	if strings.TrimSpace(userID) == "" {
		return false, f.reject(ctx, "toggle_like", model.ValidationErrorf("user id is empty"))
	}

	var liked bool
	err := f.mutate(ctx, "toggle_like", func(doc *model.Document) error {
		idx := doc.PostIndex(postID)
		if idx < 0 {
			return model.PostNotFound(postID)
		}
		post := &doc.Posts[idx]
		if i := slices.Index(post.LikedBy, userID); i >= 0 {
			post.LikedBy = slices.Delete(post.LikedBy, i, i+1)
			liked = false
		} else {
			post.LikedBy = append(post.LikedBy, userID)
			liked = true
		}
		return nil
	})
	if err != nil {
		return false, f.reject(ctx, "toggle_like", err)
	}

	span.SetAttributes(attribute.Bool("liked", liked))
	sf_metrics.LikeToggles.Get(sf_metrics.RegionLabel{Region: f.region}).Inc()
	f.publish(ctx, FeedEvent{Type: EventLikeToggled, PostID: postID, UserID: userID, Liked: liked})
	return liked, nil
}

func (f *feedService) AddComment(ctx context.Context, postID string, text string) error {
	ctx, span := tracer.Start(ctx, "FeedService.AddComment")
	defer span.End()
	logger := f.Logger(ctx)
	logger.Debug("entering AddComment", "post_id", postID)

	if strings.TrimSpace(text) == "" {
		return f.reject(ctx, "add_comment", model.ValidationErrorf("comment is empty"))
	}

	err := f.mutate(ctx, "add_comment", func(doc *model.Document) error {
		idx := doc.PostIndex(postID)
		if idx < 0 {
			return model.PostNotFound(postID)
		}
		doc.Posts[idx].Comments = append(doc.Posts[idx].Comments, model.Comment{Text: text, CreatedAt: f.now()})
		return nil
	})
	if err != nil {
		return f.reject(ctx, "add_comment", err)
	}

	sf_metrics.AddedComments.Get(sf_metrics.RegionLabel{Region: f.region}).Inc()
	f.publish(ctx, FeedEvent{Type: EventCommentAdded, PostID: postID})
	return nil
}

// ListFeed snapshots, filters and sorts the posts. The returned sequence can be
// ranged over any number of times and always yields the same snapshot.
func (f *feedService) ListFeed(ctx context.Context, filter model.FeedFilter, order model.SortOrder) (iter.Seq[model.Post], error) {
	_, span := tracer.Start(ctx, "FeedService.ListFeed")
	defer span.End()

	order, ok := model.ParseSortOrder(string(order))
	if !ok {
		return nil, f.reject(ctx, "list_feed", model.ValidationErrorf("unknown sort order"))
	}

	query := strings.ToLower(filter.Query)
	f.mu.RLock()
	posts := make([]model.Post, 0, len(f.doc.Posts))
	for _, p := range f.doc.Posts {
		if query == "" || strings.Contains(strings.ToLower(p.Content), query) {
			posts = append(posts, p.Clone())
		}
	}
	f.mu.RUnlock()

	SortPosts(posts, order)
	span.SetAttributes(attribute.Int("posts", len(posts)))
	return func(yield func(model.Post) bool) {
		for _, p := range posts {
			if !yield(p.Clone()) {
				return
			}
		}
	}, nil
}

// SortPosts orders posts in place. The sort is stable so equal keys keep the
// backing (newest-first insertion) order.
func SortPosts(posts []model.Post, order model.SortOrder) {
	switch order {
	case model.SortMostLiked:
		slices.SortStableFunc(posts, func(a, b model.Post) int {
			return cmp.Compare(b.Likes(), a.Likes())
		})
	default:
		slices.SortStableFunc(posts, func(a, b model.Post) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
}

func (f *feedService) ResolveOriginal(ctx context.Context, post model.Post) (model.Post, bool) {
	if !post.IsRetweet() {
		return model.Post{}, false
	}
	original, err := f.Post(ctx, post.OriginalPostID)
	if err != nil {
		f.Logger(ctx).Debug("original post is missing", "post_id", post.ID, "original_post_id", post.OriginalPostID)
		return model.Post{}, false
	}
	return original, true
}

func (f *feedService) Post(ctx context.Context, postID string) (model.Post, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	idx := f.doc.PostIndex(postID)
	if idx < 0 {
		return model.Post{}, model.PostNotFound(postID)
	}
	return f.doc.Posts[idx].Clone(), nil
}

func (f *feedService) User(ctx context.Context, userID string) (model.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	u, ok := f.doc.Users.Get(userID)
	if !ok {
		return model.User{}, fmt.Errorf("%w: user %q", model.ErrNotFound, userID)
	}
	return u, nil
}

func (f *feedService) Comments(ctx context.Context, postID string) ([]model.Comment, error) {
	post, err := f.Post(ctx, postID)
	if err != nil {
		return nil, err
	}
	return post.Comments, nil
}

// mutate applies fn to a copy of the resident document, saves the copy and
// only then makes it resident. A failed save leaves the service unchanged.
func (f *feedService) mutate(ctx context.Context, op string, fn func(doc *model.Document) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.doc.Clone()
	if err := fn(&next); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}

	start := time.Now()
	if err := f.store.Save(ctx, next); err != nil {
		sf_metrics.StorageFailures.Get(sf_metrics.OperationLabel{Region: f.region, Operation: op}).Inc()
		f.Logger(ctx).Error("error saving feed document", "op", op, "msg", err.Error())
		trace.SpanFromContext(ctx).RecordError(err)
		trace.SpanFromContext(ctx).SetStatus(codes.Error, "save failed")
		return model.NewStorageError("save", err)
	}
	sf_metrics.SaveDurationMs.Get(sf_metrics.RegionLabel{Region: f.region}).Put(float64(time.Since(start).Milliseconds()))

	trace.SpanFromContext(ctx).AddEvent("saved feed document",
		trace.WithAttributes(
			attribute.String("op", op),
			attribute.Int("posts", len(next.Posts)),
		))
	f.doc = next
	return nil
}

// reject counts and logs a refused operation and returns err unchanged.
func (f *feedService) reject(ctx context.Context, op string, err error) error {
	if errors.Is(err, model.ErrStorage) {
		return err
	}
	sf_metrics.RejectedOperations.Get(sf_metrics.OperationLabel{Region: f.region, Operation: op}).Inc()
	f.Logger(ctx).Debug("operation rejected", "op", op, "msg", err.Error())
	trace.SpanFromContext(ctx).RecordError(err)
	return err
}

func (f *feedService) publish(ctx context.Context, event FeedEvent) {
	event.Timestamp = f.now().UnixMilli()
	if err := f.notifier.Notify(ctx, event); err != nil {
		f.Logger(ctx).Warn("error publishing feed event", "type", string(event.Type), "msg", err.Error())
	}
}
