package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"socialfeed/pkg/model"
	"socialfeed/pkg/services"

	"github.com/ServiceWeaver/weaver"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Server struct {
	feed     services.FeedService
	board    services.BoardService
	renderer *Renderer
	logger   *slog.Logger
}

func NewServer(feed services.FeedService, board services.BoardService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		feed:     feed,
		board:    board,
		renderer: NewRenderer(feed, board),
		logger:   logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/login", instrument("login", s.loginHandler, http.MethodPost))
	mux.Handle("/posts", instrument("create_post", s.createPostHandler, http.MethodPost))
	mux.Handle("/posts/retweet", instrument("create_retweet", s.retweetHandler, http.MethodPost))
	mux.Handle("/posts/like", instrument("toggle_like", s.likeHandler, http.MethodPost))
	mux.Handle("/posts/comment", instrument("add_comment", s.commentHandler, http.MethodPost))
	mux.Handle("/feed", instrument("feed", s.feedHandler, http.MethodGet))
	mux.Handle("/board", instrument("board", s.feedHandler, http.MethodGet))
	mux.Handle("/board/posts", instrument("board_write", s.boardWriteHandler, http.MethodPost))
	mux.Handle("/board/like", instrument("board_like", s.boardLikeHandler, http.MethodPost))
	mux.Handle("/board/comment", instrument("board_comment", s.boardCommentHandler, http.MethodPost))
	return mux
}

// Serve blocks until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info("frontend available", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func instrument(label string, fn func(http.ResponseWriter, *http.Request), methods ...string) http.Handler {
	allowed := map[string]struct{}{}
	for _, method := range methods {
		allowed[method] = struct{}{}
	}
	handler := func(w http.ResponseWriter, r *http.Request) {
		if _, ok := allowed[r.Method]; len(allowed) > 0 && !ok {
			msg := fmt.Sprintf("method %q not allowed", r.Method)
			http.Error(w, msg, http.StatusMethodNotAllowed)
			return
		}
		trace.SpanFromContext(r.Context()).AddEvent("handling http request",
			trace.WithAttributes(
				attribute.String("label", label),
			))
		fn(w, r)
	}
	return weaver.InstrumentHandlerFunc(label, handler)
}

type response struct {
	Result any  `json:"result,omitempty"`
	Page   Page `json:"page"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	State    AppState `json:"state"`
	Username string   `json:"username"`
}

type postRequest struct {
	State      AppState `json:"state"`
	Content    string   `json:"content"`
	YoutubeURL string   `json:"youtube_url"`
}

type postIDRequest struct {
	State  AppState `json:"state"`
	PostID string   `json:"post_id"`
}

type commentRequest struct {
	State  AppState `json:"state"`
	PostID string   `json:"post_id"`
	Text   string   `json:"text"`
}

type boardWriteRequest struct {
	State   AppState `json:"state"`
	Author  string   `json:"author"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
}

type boardPostRequest struct {
	State  AppState `json:"state"`
	PostID int      `json:"post_id"`
	Text   string   `json:"text"`
}

type stateRequest interface {
	appState() *AppState
}

func (r *loginRequest) appState() *AppState      { return &r.State }
func (r *postRequest) appState() *AppState       { return &r.State }
func (r *postIDRequest) appState() *AppState     { return &r.State }
func (r *commentRequest) appState() *AppState    { return &r.State }
func (r *boardWriteRequest) appState() *AppState { return &r.State }
func (r *boardPostRequest) appState() *AppState  { return &r.State }

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	userID, err := s.feed.RegisterOrLogin(r.Context(), req.Username)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req.State.CurrentUserID = userID
	s.respond(w, r, req.State, map[string]string{"user_id": userID})
}

func (s *Server) createPostHandler(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if !s.decode(w, r, &req) {
		return
	}
	postID, err := s.feed.CreatePost(r.Context(), req.State.CurrentUserID, req.Content, req.YoutubeURL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, req.State, map[string]string{"post_id": postID})
}

func (s *Server) retweetHandler(w http.ResponseWriter, r *http.Request) {
	var req postIDRequest
	if !s.decode(w, r, &req) {
		return
	}
	postID, err := s.feed.CreateRetweet(r.Context(), req.State.CurrentUserID, req.PostID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, req.State, map[string]string{"post_id": postID})
}

func (s *Server) likeHandler(w http.ResponseWriter, r *http.Request) {
	var req postIDRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.State.CurrentUserID == "" {
		s.fail(w, r, model.ValidationErrorf("log in to like posts"))
		return
	}
	liked, err := s.feed.ToggleLike(r.Context(), req.State.CurrentUserID, req.PostID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, req.State, map[string]bool{"liked": liked})
}

func (s *Server) commentHandler(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.feed.AddComment(r.Context(), req.PostID, req.Text); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, req.State, nil)
}

func (s *Server) feedHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := AppState{
		CurrentUserID: q.Get("user"),
		Tab:           Tab(q.Get("tab")),
		Sort:          model.SortOrder(q.Get("sort")),
		Query:         q.Get("q"),
	}
	s.respond(w, r, state, nil)
}

func (s *Server) boardWriteHandler(w http.ResponseWriter, r *http.Request) {
	var req boardWriteRequest
	if !s.decode(w, r, &req) {
		return
	}
	post, err := s.board.Write(r.Context(), req.Author, req.Title, req.Content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req.State.Tab = TabMain
	s.respond(w, r, req.State, post)
}

func (s *Server) boardLikeHandler(w http.ResponseWriter, r *http.Request) {
	var req boardPostRequest
	if !s.decode(w, r, &req) {
		return
	}
	likes, err := s.board.Like(r.Context(), req.PostID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, req.State, map[string]int{"likes": likes})
}

func (s *Server) boardCommentHandler(w http.ResponseWriter, r *http.Request) {
	var req boardPostRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.board.AddComment(r.Context(), req.PostID, req.Text); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, req.State, nil)
}

// decode reads the request body and normalizes its state. It runs before
// any mutation so a request with an unusable state changes nothing.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, req stateRequest) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.fail(w, r, model.ValidationErrorf("invalid request body: %v", err))
		return false
	}
	state, err := normalizeState(*req.appState())
	if err != nil {
		s.fail(w, r, err)
		return false
	}
	*req.appState() = state
	return true
}

// respond re-renders the page for state after the operation.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, state AppState, result any) {
	page, err := s.renderer.Render(r.Context(), state)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Result: result, Page: page})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "msg", err.Error())
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "msg", err.Error())
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// StatusFor maps error kinds to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrStorage):
		return http.StatusInternalServerError
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidOperation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
