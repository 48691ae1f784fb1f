package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/campussync/internal/client/api"
	"github.com/iudanet/campussync/internal/client/iocli"
	"github.com/iudanet/campussync/internal/client/storage"
	"github.com/iudanet/campussync/internal/client/storage/boltdb"
	"github.com/iudanet/campussync/internal/config"
	"github.com/iudanet/campussync/internal/models"
	pkgapi "github.com/iudanet/campussync/pkg/api"
)

// fakeServer минимальный сервер ленты для тестов команд
type fakeServer struct {
	liked    map[string]bool
	counts   map[string]uint64
	comments map[string]uint64
	posts    []models.Post
	failSet  bool
	mu       sync.Mutex
}

func newFakeServer(posts ...models.Post) *fakeServer {
	f := &fakeServer{
		posts:    posts,
		liked:    map[string]bool{},
		counts:   map[string]uint64{},
		comments: map[string]uint64{},
	}
	for _, p := range posts {
		f.counts[p.ID] = p.LikeCount
	}
	return f
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, pkgapi.HealthResponse{Status: "ok"})
	})
	mux.HandleFunc("POST /api/v1/auth/session", func(w http.ResponseWriter, r *http.Request) {
		var req pkgapi.SessionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, pkgapi.SessionResponse{AccessToken: "token-" + req.ActorID, ExpiresIn: 3600})
	})
	mux.HandleFunc("GET /api/v1/posts", func(w http.ResponseWriter, r *http.Request) {
		var offset, limit int
		_, _ = fmt.Sscan(r.URL.Query().Get("offset"), &offset)
		_, _ = fmt.Sscan(r.URL.Query().Get("limit"), &limit)

		f.mu.Lock()
		defer f.mu.Unlock()
		out := []models.Post{}
		for i := offset; i < len(f.posts) && i < offset+limit; i++ {
			p := f.posts[i]
			p.LikeCount = f.counts[p.ID]
			p.Liked = f.liked[p.ID]
			out = append(out, p)
		}
		writeJSON(w, http.StatusOK, pkgapi.PostsResponse{Posts: out})
	})
	mux.HandleFunc("POST /api/v1/posts", func(w http.ResponseWriter, r *http.Request) {
		var req pkgapi.CreatePostRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusCreated, models.Post{ID: "new-post", Body: req.Body})
	})
	mux.HandleFunc("POST /api/v1/posts/{id}/comments", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.comments[r.PathValue("id")]++
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, models.Comment{ID: "c1", PostID: r.PathValue("id")})
	})
	mux.HandleFunc("/api/v1/posts/{id}/reaction", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodPost, http.MethodDelete:
			if f.failSet {
				writeJSON(w, http.StatusInternalServerError, pkgapi.ErrorResponse{Error: "boom"})
				return
			}
			active := r.Method == http.MethodPost
			if active && !f.liked[id] {
				f.counts[id]++
			} else if !active && f.liked[id] {
				f.counts[id]--
			}
			f.liked[id] = active
		}
		writeJSON(w, http.StatusOK, pkgapi.ReactionResponse{IsActive: f.liked[id], Count: f.counts[id], Version: 10})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// captureIO IOMock, собирающий вывод в буфер
func captureIO(input ...string) (*iocli.IOMock, *bytes.Buffer) {
	var (
		out bytes.Buffer
		mu  sync.Mutex
	)
	inputs := append([]string(nil), input...)
	return &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintln(&out, a...)
		},
		PrintfFunc: func(format string, a ...any) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(&out, format, a...)
		},
		WriteFunc: func(p []byte) (int, error) {
			mu.Lock()
			defer mu.Unlock()
			return out.Write(p)
		},
		ReadInputFunc: func(prompt string) (string, error) {
			if len(inputs) == 0 {
				return "", io.EOF
			}
			next := inputs[0]
			inputs = inputs[1:]
			return next, nil
		},
		IsTerminalFunc: func() bool { return true },
	}, &out
}

func newTestCli(t *testing.T, srv *httptest.Server, mockIO iocli.IO) (*Cli, *boltdb.Storage) {
	t.Helper()
	st, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.DefaultSync()
	cfg.ServerURL = srv.URL
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(mockIO, api.NewClient(srv.URL), st, st, cfg, logger), st
}

func login(t *testing.T, c *Cli, st *boltdb.Storage, actorID string) {
	t.Helper()
	require.NoError(t, st.SaveSession(context.Background(), &storage.SessionData{
		ActorID:     actorID,
		AccessToken: "token-" + actorID,
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	}))
}

func TestCli_runLogin(t *testing.T) {
	srv := httptest.NewServer(newFakeServer().handler())
	defer srv.Close()

	mockIO, out := captureIO("alice")
	c, st := newTestCli(t, srv, mockIO)

	require.NoError(t, c.runLogin(context.Background(), ""))
	assert.Contains(t, out.String(), "Logged in as alice")
	require.Len(t, mockIO.ReadInputCalls(), 1)

	session, err := st.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", session.ActorID)
	assert.Equal(t, "token-alice", session.AccessToken)
	assert.Equal(t, srv.URL, session.ServerURL)
	assert.NotEmpty(t, session.NodeID)
	assert.Greater(t, session.ExpiresAt, time.Now().Unix())
}

func TestCli_runLogin_InvalidActor(t *testing.T) {
	srv := httptest.NewServer(newFakeServer().handler())
	defer srv.Close()

	mockIO, _ := captureIO()
	c, st := newTestCli(t, srv, mockIO)

	err := c.runLogin(context.Background(), "a!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid actor id")

	_, err = st.GetSession(context.Background())
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestCli_runLogout(t *testing.T) {
	srv := httptest.NewServer(newFakeServer().handler())
	defer srv.Close()

	mockIO, out := captureIO()
	c, st := newTestCli(t, srv, mockIO)

	require.NoError(t, c.runLogout(context.Background()))
	assert.Contains(t, out.String(), "Not logged in.")

	login(t, c, st, "alice")
	require.NoError(t, c.runLogout(context.Background()))
	assert.Contains(t, out.String(), "Logged out.")

	_, err := c.requireSession(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCli_requireSession_Expired(t *testing.T) {
	srv := httptest.NewServer(newFakeServer().handler())
	defer srv.Close()

	mockIO, _ := captureIO()
	c, st := newTestCli(t, srv, mockIO)
	login(t, c, st, "alice")
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := c.requireSession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestCli_runStatus(t *testing.T) {
	srv := httptest.NewServer(newFakeServer().handler())
	defer srv.Close()

	mockIO, out := captureIO()
	c, st := newTestCli(t, srv, mockIO)

	require.NoError(t, c.runStatus(context.Background()))
	assert.Contains(t, out.String(), "Server status: ok")
	assert.Contains(t, out.String(), "Not authenticated")

	out.Reset()
	login(t, c, st, "alice")
	require.NoError(t, c.runStatus(context.Background()))
	assert.Contains(t, out.String(), "Actor: alice")
	assert.Contains(t, out.String(), "Time remaining:")
}

func TestCli_runFeed(t *testing.T) {
	var posts []models.Post
	for i := 0; i < 25; i++ {
		posts = append(posts, models.Post{ID: fmt.Sprintf("p%d", i), AuthorID: "bob", Body: fmt.Sprintf("post number %d", i), Version: 1})
	}
	fake := newFakeServer(posts...)
	fake.counts["p0"] = 7
	fake.liked["p0"] = true
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	t.Run("not authenticated", func(t *testing.T) {
		mockIO, _ := captureIO()
		c, _ := newTestCli(t, srv, mockIO)
		assert.ErrorIs(t, c.runFeed(context.Background(), 1), ErrNotAuthenticated)
	})

	t.Run("first page", func(t *testing.T) {
		mockIO, out := captureIO()
		c, st := newTestCli(t, srv, mockIO)
		login(t, c, st, "alice")

		require.NoError(t, c.runFeed(context.Background(), 1))
		text := out.String()
		assert.Contains(t, text, "1. post number 0")
		assert.Contains(t, text, "ID: p0  by bob  ♥ 7")
		assert.Contains(t, text, "20. post number 19")
		assert.NotContains(t, text, "post number 20")
		assert.Contains(t, text, "campusctl feed --pages 2")
	})

	t.Run("all pages", func(t *testing.T) {
		mockIO, out := captureIO()
		c, st := newTestCli(t, srv, mockIO)
		login(t, c, st, "alice")

		require.NoError(t, c.runFeed(context.Background(), 3))
		text := out.String()
		assert.Contains(t, text, "25. post number 24")
		assert.NotContains(t, text, "More posts available")
	})
}

func TestCli_runFeed_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	mockIO, _ := captureIO()
	c, st := newTestCli(t, srv, mockIO)
	login(t, c, st, "alice")

	err := c.runFeed(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnreachable)
}

func TestCli_runLike(t *testing.T) {
	fake := newFakeServer(models.Post{ID: "p1", LikeCount: 4})
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	mockIO, out := captureIO()
	c, st := newTestCli(t, srv, mockIO)
	login(t, c, st, "alice")

	require.NoError(t, c.runLike(context.Background(), "p1"))
	assert.Contains(t, out.String(), "Liked p1: ♥ 5")

	require.NoError(t, c.runLike(context.Background(), "p1"))
	assert.Contains(t, out.String(), "Unliked p1: ♡ 4")
}

func TestCli_runLike_Reverted(t *testing.T) {
	fake := newFakeServer(models.Post{ID: "p1", LikeCount: 4})
	fake.failSet = true
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	mockIO, out := captureIO()
	c, st := newTestCli(t, srv, mockIO)
	login(t, c, st, "alice")

	err := c.runLike(context.Background(), "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverted")
	assert.Contains(t, out.String(), "! p1: action failed, changes reverted")
}

func TestCli_runLike_OfflineUsesFallback(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	mockIO, out := captureIO()
	c, st := newTestCli(t, srv, mockIO)
	login(t, c, st, "alice")

	require.NoError(t, c.runLike(context.Background(), "p1"))
	assert.Contains(t, out.String(), "Liked p1: ♥ 1")

	active, err := st.GetFlag(context.Background(), "p1", "alice")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestCli_runLike_InvalidID(t *testing.T) {
	srv := httptest.NewServer(newFakeServer().handler())
	defer srv.Close()

	mockIO, _ := captureIO()
	c, _ := newTestCli(t, srv, mockIO)
	assert.Error(t, c.runLike(context.Background(), "../p1"))
}

func TestCli_runComment(t *testing.T) {
	fake := newFakeServer(models.Post{ID: "p1"})
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	mockIO, out := captureIO("from stdin")
	c, st := newTestCli(t, srv, mockIO)
	login(t, c, st, "alice")

	require.NoError(t, c.runComment(context.Background(), "p1", ""))
	assert.Contains(t, out.String(), "Comment c1 added to p1")
	assert.Len(t, mockIO.ReadInputCalls(), 1)

	require.NoError(t, c.runComment(context.Background(), "p1", "inline"))
	assert.Len(t, mockIO.ReadInputCalls(), 1)

	fake.mu.Lock()
	assert.Equal(t, uint64(2), fake.comments["p1"])
	fake.mu.Unlock()

	assert.Error(t, c.runComment(context.Background(), "p1", "   "))
}

func TestCli_runPost(t *testing.T) {
	srv := httptest.NewServer(newFakeServer().handler())
	defer srv.Close()

	mockIO, out := captureIO()
	c, st := newTestCli(t, srv, mockIO)

	assert.ErrorIs(t, c.runPost(context.Background(), "hello"), ErrNotAuthenticated)

	login(t, c, st, "alice")
	require.NoError(t, c.runPost(context.Background(), "hello"))
	assert.Contains(t, out.String(), "Post published: new-post")
}

func TestCli_printUpdate_NonTerminal(t *testing.T) {
	srv := httptest.NewServer(newFakeServer().handler())
	defer srv.Close()

	mockIO, out := captureIO()
	mockIO.IsTerminalFunc = func() bool { return false }
	c, _ := newTestCli(t, srv, mockIO)
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	c.printUpdate("p1", models.EntityToggleState{Active: true, Count: 3, Version: 2})

	var line watchLine
	require.NoError(t, json.Unmarshal(out.Bytes(), &line))
	assert.Equal(t, "p1", line.EntityID)
	assert.Equal(t, uint64(3), line.State.Count)
	assert.True(t, line.State.Active)
	assert.True(t, strings.HasSuffix(out.String(), "\n"))
}

func TestFormatState(t *testing.T) {
	assert.Equal(t, "♡ 0", formatState(models.EntityToggleState{}))
	assert.Equal(t, "♥ 3 · 2 comments (syncing)", formatState(models.EntityToggleState{
		Active:   true,
		Count:    3,
		Pending:  true,
		Counters: map[string]uint64{models.CounterComments: 2},
	}))
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "short text", shorten("short\n  text", 20))
	assert.Equal(t, "абв…", shorten("абвгдеж", 4))
}
