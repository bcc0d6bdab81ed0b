package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/internal/auth"
	"github.com/novelforge/novelforge/internal/chapters"
	"github.com/novelforge/novelforge/internal/generation"
	"github.com/novelforge/novelforge/internal/novels"
	"github.com/novelforge/novelforge/internal/reorder"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultServer, cfg.Server)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.AutosaveDelay)
	assert.False(t, cfg.loggedIn())
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "novelctl.yaml")
	want := Config{
		Server:        "https://forge.example",
		Username:      "ana",
		Token:         "tok",
		TokenExpires:  time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
		Timeout:       5 * time.Second,
		AutosaveDelay: 750 * time.Millisecond,
	}
	require.NoError(t, saveConfig(path, want))

	got, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want.Server, got.Server)
	assert.Equal(t, want.Username, got.Username)
	assert.Equal(t, want.Token, got.Token)
	assert.True(t, want.TokenExpires.Equal(got.TokenExpires))
	assert.Equal(t, want.Timeout, got.Timeout)
	assert.Equal(t, want.AutosaveDelay, got.AutosaveDelay)
	assert.True(t, got.loggedIn())
}

func TestExpiredTokenIsNotLoggedIn(t *testing.T) {
	cfg := Config{Token: "tok", TokenExpires: time.Now().Add(-time.Minute)}
	assert.False(t, cfg.loggedIn())
}

func TestConfigPathPrecedence(t *testing.T) {
	t.Setenv(configEnv, "/tmp/from-env.yaml")
	p, err := configPath("/tmp/flag.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/flag.yaml", p)

	p, err = configPath("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env.yaml", p)
}

// ---- fake server ----

type fakeServer struct {
	mu        sync.Mutex
	chapters  []chapters.Chapter
	saved     []chapters.ChapterRequest
	orders    [][]reorder.Item
	genKeys   []string
	authorize string
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{chapters: []chapters.Chapter{
		{ID: 11, NovelID: 1, Title: "One", Order: 1, Status: chapters.StatusDraft},
		{ID: 12, NovelID: 1, Title: "Two", Order: 2, Status: chapters.StatusDraft},
		{ID: 13, NovelID: 1, Title: "Three", Order: 3, Status: chapters.StatusDraft},
	}}

	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in auth.LoginInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "secret-pass" {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"title":"Unauthorized","detail":"invalid credentials"}`)
			return
		}
		writeJSON(w, http.StatusOK, auth.Session{
			Token:     "jwt-token",
			ExpiresAt: time.Now().Add(time.Hour),
			User:      auth.Profile{ID: 1, Username: in.Login, Role: "user"},
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fs.mu.Lock()
				fs.authorize = r.Header.Get("Authorization")
				fs.mu.Unlock()
				next.ServeHTTP(w, r)
			})
		})
		r.Get("/api/novels", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, novels.ListResponse{Novels: []novels.Novel{
				{ID: 1, Title: "The Long Road", Status: novels.StatusDrafting, WordCount: 4200, ChapterCount: 3},
			}})
		})
		r.Get("/api/novels/{novelID}/chapters", func(w http.ResponseWriter, r *http.Request) {
			fs.mu.Lock()
			list := append([]chapters.Chapter(nil), fs.chapters...)
			fs.mu.Unlock()
			writeJSON(w, http.StatusOK, chapters.ListResponse{Chapters: list})
		})
		r.Get("/api/chapters/{chapterID}", func(w http.ResponseWriter, r *http.Request) {
			fs.mu.Lock()
			ch := fs.chapters[0]
			fs.mu.Unlock()
			writeJSON(w, http.StatusOK, ch)
		})
		r.Put("/api/chapters/{chapterID}", func(w http.ResponseWriter, r *http.Request) {
			var req chapters.ChapterRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			fs.mu.Lock()
			fs.saved = append(fs.saved, req)
			ch := fs.chapters[0]
			fs.mu.Unlock()
			ch.Content = req.Content
			writeJSON(w, http.StatusOK, ch)
		})
		r.Put("/api/novels/{novelID}/chapters/order", func(w http.ResponseWriter, r *http.Request) {
			var items []reorder.Item
			_ = json.NewDecoder(r.Body).Decode(&items)
			fs.mu.Lock()
			fs.orders = append(fs.orders, items)
			fs.mu.Unlock()
			writeJSON(w, http.StatusOK, chapters.ListResponse{})
		})
		r.Post("/api/novels/{novelID}/chapters/generate", func(w http.ResponseWriter, r *http.Request) {
			fs.mu.Lock()
			fs.genKeys = append(fs.genKeys, r.Header.Get(generation.IdempotencyHeader))
			fs.mu.Unlock()
			writeJSON(w, http.StatusAccepted, generation.Ticket{TaskID: "task-1", State: "pending"})
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return fs, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func run(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	c := &cli{
		stdin:  strings.NewReader(stdin),
		stdout: out,
		stderr: io.Discard,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	root := newRootCmd(c)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func loggedInConfig(t *testing.T, server string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "novelctl.yaml")
	require.NoError(t, saveConfig(path, Config{
		Server:        server,
		Username:      "ana",
		Token:         "jwt-token",
		Timeout:       2 * time.Second,
		AutosaveDelay: 10 * time.Millisecond,
	}))
	return path
}

func TestLoginStoresToken(t *testing.T) {
	_, srv := newFakeServer(t)
	path := filepath.Join(t.TempDir(), "novelctl.yaml")

	out, err := run(t, path, "secret-pass\n", "--server", srv.URL, "login", "-u", "ana")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as ana")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", cfg.Token)
	assert.Equal(t, srv.URL, cfg.Server)
	assert.True(t, cfg.loggedIn())
}

func TestLoginRejectedKeepsConfigUntouched(t *testing.T) {
	_, srv := newFakeServer(t)
	path := filepath.Join(t.TempDir(), "novelctl.yaml")

	_, err := run(t, path, "", "--server", srv.URL, "login", "-u", "ana", "-p", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Token)
}

func TestCommandsRequireLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novelctl.yaml")
	_, err := run(t, path, "", "novels", "list")
	require.ErrorIs(t, err, errNotLoggedIn)
}

func TestNovelsListSendsBearerToken(t *testing.T) {
	fs, srv := newFakeServer(t)
	out, err := run(t, loggedInConfig(t, srv.URL), "", "novels", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "The Long Road")
	assert.Contains(t, out, "4200")

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, "Bearer jwt-token", fs.authorize)
}

func TestChaptersMovePersistsFullOrder(t *testing.T) {
	fs, srv := newFakeServer(t)
	out, err := run(t, loggedInConfig(t, srv.URL), "", "chapters", "move", "1", "11", "--to", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "moved chapter 11 to position 3")

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Len(t, fs.orders, 1)
	assert.Equal(t, []reorder.Item{{ID: 12, Order: 1}, {ID: 13, Order: 2}, {ID: 11, Order: 3}}, fs.orders[0])
}

func TestChaptersMoveSamePositionIsNoop(t *testing.T) {
	fs, srv := newFakeServer(t)
	out, err := run(t, loggedInConfig(t, srv.URL), "", "chapters", "move", "1", "12", "--to", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "already at position 2")

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Empty(t, fs.orders)
}

func TestChaptersMoveRejectsOutOfRangePosition(t *testing.T) {
	_, srv := newFakeServer(t)
	_, err := run(t, loggedInConfig(t, srv.URL), "", "chapters", "move", "1", "11", "--to", "9")
	require.Error(t, err)
}

func TestChaptersEditFlushesStreamedContent(t *testing.T) {
	fs, srv := newFakeServer(t)
	out, err := run(t, loggedInConfig(t, srv.URL), "first line\nsecond line\n", "chapters", "edit", "11")
	require.NoError(t, err)
	assert.Contains(t, out, "saved chapter 11")

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.NotEmpty(t, fs.saved)
	last := fs.saved[len(fs.saved)-1]
	assert.Equal(t, "first line\nsecond line\n", last.Content)
	assert.Equal(t, "One", last.Title)
}

func TestChaptersEditRejectsUnknownField(t *testing.T) {
	_, srv := newFakeServer(t)
	_, err := run(t, loggedInConfig(t, srv.URL), "x\n", "chapters", "edit", "11", "--field", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestGenerateSendsIdempotencyKey(t *testing.T) {
	fs, srv := newFakeServer(t)
	out, err := run(t, loggedInConfig(t, srv.URL), "", "generate", "1", "--key", "draft-7", "-w", "800")
	require.NoError(t, err)
	assert.Contains(t, out, "task task-1 pending")

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, []string{"draft-7"}, fs.genKeys)
}
