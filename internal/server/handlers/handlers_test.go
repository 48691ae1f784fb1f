package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/campussync/internal/models"
	"github.com/iudanet/campussync/internal/server/storage/sqlite"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

func testJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:         []byte("test-secret-key-0123456789"),
		AccessTokenTTL: 15 * time.Minute,
	}
}

func setupTestStorage(t *testing.T) *sqlite.Storage {
	t.Helper()
	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func newPublisherMock() *PublisherMock {
	return &PublisherMock{PublishFunc: func(models.RealtimeEvent) {}}
}

// postsMux собирает маршруты постов; actor подставляется в контекст из заголовка X-Actor
func postsMux(h *PostsHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/posts", h.ListPosts)
	mux.HandleFunc("POST /api/v1/posts", h.CreatePost)
	mux.HandleFunc("GET /api/v1/posts/{id}/reaction", h.GetReaction)
	mux.HandleFunc("POST /api/v1/posts/{id}/reaction", h.AddReaction)
	mux.HandleFunc("DELETE /api/v1/posts/{id}/reaction", h.RemoveReaction)
	mux.HandleFunc("POST /api/v1/posts/{id}/comments", h.AddComment)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := r.Header.Get("X-Actor"); actor != "" {
			r = r.WithContext(WithActorID(r.Context(), actor))
		}
		mux.ServeHTTP(w, r)
	})
}

func doRequest(t *testing.T, h http.Handler, method, path, actor string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor != "" {
		req.Header.Set("X-Actor", actor)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}
