package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iudanet/campussync/internal/models"
	"github.com/iudanet/campussync/internal/server/storage"
	"github.com/iudanet/campussync/internal/validation"
	"github.com/iudanet/campussync/pkg/api"
)

//go:generate moq -out publisher_mock.go . Publisher

// Publisher рассылает realtime-события подписчикам сущности
type Publisher interface {
	Publish(ev models.RealtimeEvent)
}

// PostsHandler обрабатывает ленту, реакции и комментарии
type PostsHandler struct {
	logger    *slog.Logger
	storage   storage.Storage
	publisher Publisher
}

// NewPostsHandler создает новый handler ленты
func NewPostsHandler(logger *slog.Logger, storage storage.Storage, publisher Publisher) *PostsHandler {
	return &PostsHandler{
		logger:    logger,
		storage:   storage,
		publisher: publisher,
	}
}

// ListPosts обрабатывает GET /api/v1/posts?offset=&limit=
func (h *PostsHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID, ok := GetActorID(ctx)
	if !ok {
		sendError(h.logger, w, "actor not found in context", http.StatusUnauthorized)
		return
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		sendError(h.logger, w, "invalid offset parameter", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", api.DefaultPageLimit)
	if err != nil || limit <= 0 {
		sendError(h.logger, w, "invalid limit parameter", http.StatusBadRequest)
		return
	}
	if limit > api.MaxPageLimit {
		limit = api.MaxPageLimit
	}

	posts, err := h.storage.ListPosts(ctx, actorID, offset, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list posts", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}

	h.logger.DebugContext(ctx, "posts listed",
		slog.String("actor_id", actorID), slog.Int("offset", offset), slog.Int("count", len(posts)))

	sendJSON(h.logger, w, api.PostsResponse{Posts: posts}, http.StatusOK)
}

// CreatePost обрабатывает POST /api/v1/posts
func (h *PostsHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID, ok := GetActorID(ctx)
	if !ok {
		sendError(h.logger, w, "actor not found in context", http.StatusUnauthorized)
		return
	}

	var req api.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateBody(req.Body); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	post := &models.Post{AuthorID: actorID, Body: req.Body}
	if err := h.storage.CreatePost(ctx, post); err != nil {
		h.logger.ErrorContext(ctx, "failed to create post", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "post created", slog.String("post_id", post.ID), slog.String("actor_id", actorID))

	sendJSON(h.logger, w, post, http.StatusCreated)
}

// GetReaction обрабатывает GET /api/v1/posts/{id}/reaction
func (h *PostsHandler) GetReaction(w http.ResponseWriter, r *http.Request) {
	postID, actorID, ok := h.postRequest(w, r)
	if !ok {
		return
	}

	res, err := h.storage.GetReaction(r.Context(), postID, actorID)
	if err != nil {
		h.sendStorageError(w, r, err)
		return
	}

	sendJSON(h.logger, w, reactionResponse(res), http.StatusOK)
}

// AddReaction обрабатывает POST /api/v1/posts/{id}/reaction.
// Повторная вставка отвечает 409 already_applied.
func (h *PostsHandler) AddReaction(w http.ResponseWriter, r *http.Request) {
	postID, actorID, ok := h.postRequest(w, r)
	if !ok {
		return
	}

	res, err := h.storage.AddReaction(r.Context(), postID, actorID)
	if err != nil {
		h.sendStorageError(w, r, err)
		return
	}

	h.publishReaction(postID, res)
	sendJSON(h.logger, w, reactionResponse(res), http.StatusOK)
}

// RemoveReaction обрабатывает DELETE /api/v1/posts/{id}/reaction.
// Отсутствующая реакция не ошибка.
func (h *PostsHandler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	postID, actorID, ok := h.postRequest(w, r)
	if !ok {
		return
	}

	res, err := h.storage.RemoveReaction(r.Context(), postID, actorID)
	if err != nil {
		h.sendStorageError(w, r, err)
		return
	}

	h.publishReaction(postID, res)
	sendJSON(h.logger, w, reactionResponse(res), http.StatusOK)
}

// AddComment обрабатывает POST /api/v1/posts/{id}/comments
func (h *PostsHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	postID, actorID, ok := h.postRequest(w, r)
	if !ok {
		return
	}

	var req api.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateBody(req.Body); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	comment := &models.Comment{PostID: postID, AuthorID: actorID, Body: req.Body}
	post, err := h.storage.AddComment(r.Context(), comment)
	if err != nil {
		h.sendStorageError(w, r, err)
		return
	}

	h.publisher.Publish(models.RealtimeEvent{
		EntityID: postID,
		Channel:  models.ChannelComments,
		Version:  post.Version,
		Fields:   models.Fields{Counters: map[string]uint64{models.CounterComments: post.CommentCount}},
	})

	sendJSON(h.logger, w, comment, http.StatusCreated)
}

// postRequest извлекает actor из контекста и id поста из пути
func (h *PostsHandler) postRequest(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	actorID, ok := GetActorID(r.Context())
	if !ok {
		sendError(h.logger, w, "actor not found in context", http.StatusUnauthorized)
		return "", "", false
	}

	postID := r.PathValue("id")
	if err := validation.ValidateEntityID(postID); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return "", "", false
	}
	return postID, actorID, true
}

func (h *PostsHandler) sendStorageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrAlreadyApplied):
		sendErrorCode(h.logger, w, api.ErrCodeAlreadyApplied, "reaction already applied", http.StatusConflict)
	case errors.Is(err, storage.ErrPostNotFound):
		sendError(h.logger, w, "post not found", http.StatusNotFound)
	default:
		h.logger.ErrorContext(r.Context(), "storage operation failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
	}
}

// publishReaction рассылает новый счетчик. Active персонален и в событие не входит.
func (h *PostsHandler) publishReaction(postID string, res models.ToggleResult) {
	count := res.Count
	h.publisher.Publish(models.RealtimeEvent{
		EntityID: postID,
		Channel:  models.ChannelReactions,
		Version:  res.Version,
		Fields:   models.Fields{Count: &count},
	})
}

func reactionResponse(res models.ToggleResult) api.ReactionResponse {
	return api.ReactionResponse{
		IsActive: res.Active,
		Count:    res.Count,
		Version:  res.Version,
	}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
