// Package devserver is an in-memory implementation of the instagram-light
// REST API for running the client offline and for tests.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	defaultPageLimit = 20
	maxUploadBytes   = 10 << 20
)

type ctxKey int

const userIDKey ctxKey = iota

// Options configures a Server.
type Options struct {
	// Secret signs bearer tokens. Defaults to a fixed development key.
	Secret []byte
	// LogRequests enables chi's request logger.
	LogRequests bool
	// RejectMedia reports whether an upload should fail moderation.
	RejectMedia func(filename string) bool
}

// Server is the dev API server.
type Server struct {
	store  *Store
	secret []byte
	reject func(string) bool
	router chi.Router
}

// New creates a server over store.
func New(store *Store, opts Options) *Server {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("instalight-dev-secret")
	}
	if opts.RejectMedia == nil {
		opts.RejectMedia = func(name string) bool {
			return strings.Contains(strings.ToLower(name), "nsfw")
		}
	}
	s := &Server{store: store, secret: opts.Secret, reject: opts.RejectMedia}
	s.setupRoutes(opts.LogRequests)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Token issues a token for an existing user, for seeding and tests.
func (s *Server) Token(userID int64) (string, error) {
	u, ok := s.store.User(userID)
	if !ok {
		return "", errNotFound
	}
	return signToken(s.secret, u.ID, u.Username, time.Now())
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Printf("[INFO] dev server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) setupRoutes(logRequests bool) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if logRequests {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Get("/media/{name}", s.handleMedia)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/feed", s.handleFeed)
			r.Post("/upload", s.handleUpload)

			r.Route("/posts", func(r chi.Router) {
				r.Get("/", s.handleListPosts)
				r.Post("/", s.handleCreatePost)
				r.Get("/{id}", s.handleGetPost)
				r.Delete("/{id}", s.handleDeletePost)
				r.Post("/{id}/like", s.handleToggleLike)
				r.Get("/{id}/comments", s.handleListComments)
				r.Post("/{id}/comments", s.handleCreateComment)
				r.Delete("/{id}/comments/{commentID}", s.handleDeleteComment)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/search", s.handleSearchUsers)
				r.Get("/{id}", s.handleGetUser)
				r.Get("/{id}/followers", s.handleFollowers)
				r.Get("/{id}/following", s.handleFollowing)
			})
		})
	})

	s.router = r
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}
		userID, err := parseToken(s.secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if _, ok := s.store.User(userID); !ok {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func viewerID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

// --- Auth ---

type authRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if _, err := s.store.AddUser(req.Username, req.Email, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	user, ok := s.store.Authenticate(req.Username, req.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token, err := signToken(s.secret, user.ID, user.Username, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// --- Feed and posts ---

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}
	page, limit := pagination(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"page":  page,
		"limit": limit,
		"posts": s.store.Feed(userID, page, limit),
	})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"page":  page,
		"limit": limit,
		"posts": s.store.Posts(page, limit, viewerID(r)),
	})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   int64  `json:"user_id"`
		MediaURL string `json:"media_url"`
		Caption  string `json:"caption"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == 0 || req.MediaURL == "" {
		writeError(w, http.StatusBadRequest, "UserID and MediaURL are required")
		return
	}
	if req.UserID != viewerID(r) {
		writeError(w, http.StatusForbidden, "Cannot post as another user")
		return
	}
	post, err := s.store.AddPost(req.UserID, req.MediaURL, req.Caption)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid post ID")
	if !ok {
		return
	}
	post, found := s.store.Post(id, viewerID(r))
	if !found {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid post ID")
	if !ok {
		return
	}
	if err := s.store.DeletePost(id, viewerID(r)); err != nil {
		writeStoreError(w, err, "Post not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid post ID")
	if !ok {
		return
	}
	liked, err := s.store.ToggleLike(id, viewerID(r))
	if err != nil {
		writeStoreError(w, err, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if s.reject(header.Filename) {
		writeError(w, http.StatusUnprocessableEntity, "Image rejected by content moderation")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save file")
		return
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	s.store.PutMedia(name, data)
	writeJSON(w, http.StatusOK, map[string]string{"media_url": "/media/" + name})
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	data, ok := s.store.Media(chi.URLParam(r, "name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}

// --- Comments ---

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid post_id")
	if !ok {
		return
	}
	comments, err := s.store.Comments(id)
	if err != nil {
		writeStoreError(w, err, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(comments))
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid post_id")
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Comment text is required")
		return
	}
	comment, err := s.store.AddComment(id, viewerID(r), req.Text)
	if err != nil {
		writeStoreError(w, err, "Post not found")
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "id", "Invalid post_id")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentID", "Invalid comment_id")
	if !ok {
		return
	}
	if err := s.store.DeleteComment(postID, commentID, viewerID(r)); err != nil {
		writeStoreError(w, err, "Comment not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Users ---

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Search query is required")
		return
	}
	writeJSON(w, http.StatusOK, s.store.SearchUsers(q))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid user ID")
	if !ok {
		return
	}
	user, found := s.store.User(id)
	if !found {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid user ID")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.store.Followers(id)))
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid user ID")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.store.Following(id)))
}

// --- Helpers ---

func pagination(r *http.Request) (int, int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultPageLimit
	}
	return page, limit
}

func pathID(w http.ResponseWriter, r *http.Request, param, msg string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, msg)
		return 0, false
	}
	return id, true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, errForbidden):
		writeError(w, http.StatusForbidden, "You can only modify your own content")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
