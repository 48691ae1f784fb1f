package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/campussync/internal/validation"
	"github.com/iudanet/campussync/pkg/api"
)

// SessionHandler выдает dev-сессии: токен на любой валидный actor_id без пароля
type SessionHandler struct {
	logger    *slog.Logger
	jwtConfig JWTConfig
}

// NewSessionHandler создает новый handler сессий
func NewSessionHandler(logger *slog.Logger, jwtConfig JWTConfig) *SessionHandler {
	return &SessionHandler{
		logger:    logger,
		jwtConfig: jwtConfig,
	}
}

// CreateSession обрабатывает POST /api/v1/auth/session
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode session request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateActorID(req.ActorID); err != nil {
		h.logger.WarnContext(ctx, "invalid actor id", slog.String("actor_id", req.ActorID), slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	token, expiresIn, err := GenerateAccessToken(h.jwtConfig, req.ActorID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		sendError(h.logger, w, "failed to create session", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "session created", slog.String("actor_id", req.ActorID))

	sendJSON(h.logger, w, api.SessionResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
	}, http.StatusOK)
}
