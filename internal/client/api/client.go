package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iudanet/campussync/internal/models"
	"github.com/iudanet/campussync/pkg/api"
)

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	mu          sync.RWMutex
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// SetAccessToken устанавливает токен для последующих запросов
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// AccessToken возвращает текущий токен
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// RealtimeURL возвращает ws(s):// адрес realtime-канала
func (c *Client) RealtimeURL() string {
	u := c.baseURL + "/api/v1/realtime"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// CreateSession получает dev-сессию для actorID и запоминает токен
func (c *Client) CreateSession(ctx context.Context, actorID string) (*api.SessionResponse, error) {
	var resp api.SessionResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/session", api.SessionRequest{ActorID: actorID}, &resp)
	if err != nil {
		return nil, fmt.Errorf("session request failed: %w", err)
	}
	c.SetAccessToken(resp.AccessToken)
	return &resp, nil
}

// ListPosts читает страницу ленты (offset/limit)
func (c *Client) ListPosts(ctx context.Context, offset, limit int) ([]models.Post, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var resp api.PostsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/posts?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("list posts request failed: %w", err)
	}
	return resp.Posts, nil
}

// CreatePost публикует пост
func (c *Client) CreatePost(ctx context.Context, body string) (*models.Post, error) {
	var post models.Post
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/posts", api.CreatePostRequest{Body: body}, &post); err != nil {
		return nil, fmt.Errorf("create post request failed: %w", err)
	}
	return &post, nil
}

// GetReaction читает состояние реакции текущего пользователя
func (c *Client) GetReaction(ctx context.Context, postID string) (models.ToggleResult, error) {
	res, err := c.reaction(ctx, http.MethodGet, postID)
	if err != nil {
		return res, fmt.Errorf("get reaction request failed: %w", err)
	}
	return res, nil
}

// SetReaction приводит реакцию к желаемому состоянию: insert (POST) или delete (DELETE).
// Повторная вставка возвращает ошибку, удовлетворяющую errors.Is(err, ErrConflict).
func (c *Client) SetReaction(ctx context.Context, postID string, active bool) (models.ToggleResult, error) {
	method := http.MethodDelete
	if active {
		method = http.MethodPost
	}
	res, err := c.reaction(ctx, method, postID)
	if err != nil {
		return res, fmt.Errorf("set reaction request failed: %w", err)
	}
	return res, nil
}

// AddComment добавляет комментарий к посту
func (c *Client) AddComment(ctx context.Context, postID, body string) (*models.Comment, error) {
	var comment models.Comment
	path := "/api/v1/posts/" + url.PathEscape(postID) + "/comments"
	if err := c.doRequest(ctx, http.MethodPost, path, api.CommentRequest{Body: body}, &comment); err != nil {
		return nil, fmt.Errorf("add comment request failed: %w", err)
	}
	return &comment, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) error {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	return nil
}

// reaction выполняет запрос к ресурсу реакции и валидирует ответ на границе
func (c *Client) reaction(ctx context.Context, method, postID string) (models.ToggleResult, error) {
	var raw map[string]any
	path := "/api/v1/posts/" + url.PathEscape(postID) + "/reaction"
	if err := c.doRequest(ctx, method, path, nil, &raw); err != nil {
		return models.ToggleResult{}, err
	}

	res, err := models.ParseToggleResult(raw)
	if err != nil {
		return models.ToggleResult{}, fmt.Errorf("invalid reaction payload: %w", err)
	}
	return res, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Отмена вызывающим - не признак недоступности сервера
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("request canceled: %w", ctxErr)
		}
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", ErrUnreachable, err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, respBody)
	}

	// Декодируем успешный ответ
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func statusError(status int, body []byte) error {
	serr := &StatusError{StatusCode: status}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		serr.Code = errResp.Error
		serr.Message = errResp.Message
	} else {
		serr.Code = strings.TrimSpace(string(body))
	}

	var sentinel error
	switch {
	case status == http.StatusConflict && serr.Code == api.ErrCodeAlreadyApplied:
		sentinel = ErrConflict
	case status == http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case status == http.StatusNotFound:
		sentinel = ErrNotFound
	case status == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	}
	if sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, serr)
	}
	return serr
}
